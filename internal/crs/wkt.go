package crs

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/cockroachdb/errors"
)

// node is one bracketed WKT element: KEYWORD[arg, arg, ...]. Arguments are
// quoted strings (string), numbers (float64), bare enums (enum) or nodes.
type node struct {
	keyword string
	args    []any
}

type enum string

func (n *node) str(i int) (string, bool) {
	if i >= len(n.args) {
		return "", false
	}
	s, ok := n.args[i].(string)
	return s, ok
}

func (n *node) num(i int) (float64, bool) {
	if i >= len(n.args) {
		return 0, false
	}
	f, ok := n.args[i].(float64)
	return f, ok
}

// child returns the first child node with the given keyword.
func (n *node) child(keyword string) *node {
	for _, a := range n.args {
		if c, ok := a.(*node); ok && c.keyword == keyword {
			return c
		}
	}
	return nil
}

func (n *node) children(keyword string) []*node {
	var out []*node
	for _, a := range n.args {
		if c, ok := a.(*node); ok && c.keyword == keyword {
			out = append(out, c)
		}
	}
	return out
}

type wktParser struct {
	src string
	pos int
}

func syntaxErr(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrSyntax)
}

func (p *wktParser) skipSpace() {
	for p.pos < len(p.src) && unicode.IsSpace(rune(p.src[p.pos])) {
		p.pos++
	}
}

func (p *wktParser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *wktParser) ident() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '_' || c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9' && p.pos > start {
			p.pos++
			continue
		}
		break
	}
	return p.src[start:p.pos]
}

func (p *wktParser) parseNode() (*node, error) {
	kw := p.ident()
	if kw == "" {
		return nil, syntaxErr("expected WKT keyword at offset %d", p.pos)
	}
	open := p.peek()
	if open != '[' && open != '(' {
		return nil, syntaxErr("expected '[' after %s at offset %d", kw, p.pos)
	}
	closeCh := byte(']')
	if open == '(' {
		closeCh = ')'
	}
	p.pos++
	n := &node{keyword: strings.ToUpper(kw)}
	for {
		arg, err := p.parseArg()
		if err != nil {
			return nil, err
		}
		n.args = append(n.args, arg)
		switch c := p.peek(); c {
		case ',':
			p.pos++
		case closeCh:
			p.pos++
			return n, nil
		case 0:
			return nil, syntaxErr("unterminated %s", kw)
		default:
			return nil, syntaxErr("unexpected %q in %s at offset %d", c, kw, p.pos)
		}
	}
}

func (p *wktParser) parseArg() (any, error) {
	c := p.peek()
	switch {
	case c == '"':
		return p.quoted()
	case c == '-' || c == '+' || c == '.' || c >= '0' && c <= '9':
		return p.number()
	case c == '_' || unicode.IsLetter(rune(c)):
		save := p.pos
		id := p.ident()
		if q := p.peek(); q == '[' || q == '(' {
			p.pos = save
			return p.parseNode()
		}
		return enum(id), nil
	case c == 0:
		return nil, syntaxErr("unexpected end of WKT")
	}
	return nil, syntaxErr("unexpected %q at offset %d", c, p.pos)
}

func (p *wktParser) quoted() (string, error) {
	p.pos++ // opening quote
	var b strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		p.pos++
		if c != '"' {
			b.WriteByte(c)
			continue
		}
		if p.pos < len(p.src) && p.src[p.pos] == '"' {
			b.WriteByte('"')
			p.pos++
			continue
		}
		return b.String(), nil
	}
	return "", syntaxErr("unterminated string")
}

func (p *wktParser) number() (float64, error) {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '-' || c == '+' || c == '.' || c == 'e' || c == 'E' || c >= '0' && c <= '9' {
			p.pos++
			continue
		}
		break
	}
	v, err := strconv.ParseFloat(p.src[start:p.pos], 64)
	if err != nil {
		return 0, syntaxErr("bad number %q", p.src[start:p.pos])
	}
	return v, nil
}

// ParseWKT parses a WKT1 GEOGCS or PROJCS definition.
func ParseWKT(s string) (CRS, error) {
	p := &wktParser{src: s}
	root, err := p.parseNode()
	if err != nil {
		return CRS{}, err
	}
	if p.peek() != 0 {
		return CRS{}, syntaxErr("trailing characters after WKT at offset %d", p.pos)
	}
	var c CRS
	switch root.keyword {
	case "GEOGCS":
		c, err = geogFromWKT(root)
	case "PROJCS":
		c, err = projFromWKT(root)
	default:
		return CRS{}, errors.Mark(errors.Newf("unsupported WKT root %s", root.keyword), ErrInvalid)
	}
	if err != nil {
		return CRS{}, err
	}
	if auth := root.child("AUTHORITY"); auth != nil {
		if a, ok := authorityFromWKT(auth); ok {
			c = c.WithAuthority(a)
		}
	}
	if err := c.Validate(); err != nil {
		return CRS{}, err
	}
	return c, nil
}

func invalidf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrInvalid)
}

func geogFromWKT(n *node) (CRS, error) {
	name, _ := n.str(0)
	dn := n.child("DATUM")
	if dn == nil {
		return CRS{}, invalidf("GEOGCS %q has no DATUM", name)
	}
	datumName, _ := dn.str(0)
	sn := dn.child("SPHEROID")
	if sn == nil {
		return CRS{}, invalidf("DATUM %q has no SPHEROID", datumName)
	}
	ellpsName, _ := sn.str(0)
	a, ok1 := sn.num(1)
	rf, ok2 := sn.num(2)
	if !ok1 || !ok2 {
		return CRS{}, invalidf("SPHEROID %q needs semi-major axis and inverse flattening", ellpsName)
	}
	var pm float64
	if pn := n.child("PRIMEM"); pn != nil {
		v, ok := pn.num(1)
		if !ok {
			return CRS{}, invalidf("PRIMEM without longitude")
		}
		pm = v
	}
	if un := n.child("UNIT"); un != nil {
		f, ok := un.num(1)
		uname, _ := un.str(0)
		if !ok || !isDegree(Unit{Name: uname, Factor: f}) {
			return CRS{}, invalidf("unsupported angular unit %q", uname)
		}
	}
	d := Datum{Name: datumName, Ellipsoid: Ellipsoid{Name: ellpsName, SemiMajor: a, InvFlattening: rf}}
	return NewGeographic(name, d, pm), nil
}

func projFromWKT(n *node) (CRS, error) {
	name, _ := n.str(0)
	gn := n.child("GEOGCS")
	if gn == nil {
		return CRS{}, invalidf("PROJCS %q has no GEOGCS", name)
	}
	base, err := geogFromWKT(gn)
	if err != nil {
		return CRS{}, err
	}
	pn := n.child("PROJECTION")
	if pn == nil {
		return CRS{}, invalidf("PROJCS %q has no PROJECTION", name)
	}
	methodName, _ := pn.str(0)
	m, ok := methodByWKT(methodName)
	if !ok {
		return CRS{}, invalidf("unsupported projection %q", methodName)
	}
	params := make(map[string]float64)
	for _, pp := range n.children("PARAMETER") {
		pname, _ := pp.str(0)
		v, ok := pp.num(1)
		if !ok {
			return CRS{}, invalidf("PARAMETER %q has no value", pname)
		}
		if m.ignored(pname) {
			continue
		}
		p, ok := m.wktParam(pname)
		if !ok {
			return CRS{}, invalidf("parameter %q does not apply to %s", pname, m.WKT)
		}
		params[p.WKT] = v
	}
	unit := Metre
	if un := n.child("UNIT"); un != nil {
		uname, _ := un.str(0)
		f, ok := un.num(1)
		if !ok {
			return CRS{}, invalidf("UNIT %q has no factor", uname)
		}
		unit = Unit{Name: uname, Factor: f}
	}
	return NewProjected(name, base, m, params, unit)
}

func authorityFromWKT(n *node) (Authority, bool) {
	name, ok := n.str(0)
	if !ok {
		return Authority{}, false
	}
	var code int
	if s, ok := n.str(1); ok {
		v, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return Authority{}, false
		}
		code = v
	} else if f, ok := n.num(1); ok {
		code = int(f)
	}
	a := Authority{Name: strings.ToUpper(name), Code: code}
	return a, !a.IsZero()
}

// WKT returns the canonical WKT1 form of c. The output is deterministic:
// equal inputs always export to identical text.
func (c CRS) WKT() string {
	var b strings.Builder
	switch c.kind {
	case Geographic:
		c.writeGeogCS(&b, true)
	case Projected:
		c.writeProjCS(&b)
	}
	return b.String()
}

func (c CRS) writeGeogCS(b *strings.Builder, withAuthority bool) {
	e := c.datum.Ellipsoid
	b.WriteString(`GEOGCS[`)
	writeQuoted(b, c.geogName)
	b.WriteString(`,DATUM[`)
	writeQuoted(b, c.datum.Name)
	b.WriteString(`,SPHEROID[`)
	writeQuoted(b, e.Name)
	b.WriteString(`,` + formatNum(e.SemiMajor) + `,` + formatNum(e.InvFlattening) + `]],PRIMEM[`)
	writeQuoted(b, primeMeridianName(c.pm))
	b.WriteString(`,` + formatNum(c.pm) + `],UNIT["degree",0.0174532925199433]`)
	b.WriteString(`,AXIS["Latitude",NORTH],AXIS["Longitude",EAST]`)
	if withAuthority {
		writeAuthority(b, c.authority)
	}
	b.WriteString(`]`)
}

func (c CRS) writeProjCS(b *strings.Builder) {
	b.WriteString(`PROJCS[`)
	writeQuoted(b, c.name)
	b.WriteString(`,`)
	c.writeGeogCS(b, false)
	b.WriteString(`,PROJECTION[`)
	writeQuoted(b, c.method.WKT)
	b.WriteString(`]`)
	for _, p := range c.method.Params {
		b.WriteString(`,PARAMETER[`)
		writeQuoted(b, p.WKT)
		b.WriteString(`,` + formatNum(c.params[p.WKT]) + `]`)
	}
	b.WriteString(`,UNIT[`)
	writeQuoted(b, c.unit.Name)
	b.WriteString(`,` + formatNum(c.unit.Factor) + `]`)
	b.WriteString(`,AXIS["Easting",EAST],AXIS["Northing",NORTH]`)
	writeAuthority(b, c.authority)
	b.WriteString(`]`)
}

func writeQuoted(b *strings.Builder, s string) {
	b.WriteByte('"')
	b.WriteString(strings.ReplaceAll(s, `"`, `""`))
	b.WriteByte('"')
}

func writeAuthority(b *strings.Builder, a Authority) {
	if a.IsZero() {
		return
	}
	b.WriteString(`,AUTHORITY[`)
	writeQuoted(b, a.Name)
	b.WriteString(`,`)
	writeQuoted(b, strconv.Itoa(a.Code))
	b.WriteString(`]`)
}

func formatNum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
