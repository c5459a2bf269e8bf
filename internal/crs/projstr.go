package crs

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// Params holds Proj construction parameters keyed without the leading '+'.
// Flags such as no_defs map to "".
type Params map[string]string

// geodeticKeys describe the ellipsoid, datum and prime meridian.
var geodeticKeys = map[string]bool{
	"datum": true, "ellps": true, "a": true, "b": true, "rf": true, "f": true, "R": true, "pm": true,
}

// toleratedKeys are accepted and dropped.
var toleratedKeys = map[string]bool{
	"no_defs": true, "type": true, "wktext": true, "towgs84": true, "nadgrids": true,
	"axis": true, "over": true, "title": true, "lon_wrap": true, "units": true, "to_meter": true,
}

var geographicProj = map[string]bool{"longlat": true, "latlong": true, "lonlat": true, "latlon": true}

// ParseProj parses a Proj string such as "+proj=longlat +datum=WGS84" or an
// authority reference such as "EPSG:4326".
func ParseProj(s string) (CRS, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return CRS{}, syntaxErr("empty proj string")
	}
	if code, ok := epsgRef(s); ok {
		return fromEPSGRef(code)
	}
	p := make(Params)
	for _, tok := range strings.Fields(s) {
		if !strings.HasPrefix(tok, "+") {
			return CRS{}, syntaxErr("proj token %q does not start with '+'", tok)
		}
		k, v, _ := strings.Cut(tok[1:], "=")
		if k == "" {
			return CRS{}, syntaxErr("empty proj key in %q", tok)
		}
		p[k] = v
	}
	return FromParams(p)
}

// epsgRef recognizes "EPSG:4326" and "epsg:4326".
func epsgRef(s string) (string, bool) {
	prefix, code, ok := strings.Cut(s, ":")
	if !ok || !strings.EqualFold(prefix, "epsg") {
		return "", false
	}
	return strings.TrimSpace(code), true
}

func fromEPSGRef(code string) (CRS, error) {
	n, err := strconv.Atoi(code)
	if err != nil {
		return CRS{}, syntaxErr("bad EPSG code %q", code)
	}
	c, ok := FromEPSG(n)
	if !ok {
		return CRS{}, errors.Mark(errors.Newf("EPSG:%d is not a known code", n), ErrInvalid)
	}
	return c, nil
}

func (p Params) normalized() Params {
	out := make(Params, len(p))
	for k, v := range p {
		k = strings.TrimPrefix(strings.TrimSpace(k), "+")
		if k != "R" {
			k = strings.ToLower(k)
		}
		out[k] = strings.TrimSpace(v)
	}
	return out
}

func (p Params) float(key string) (float64, bool, error) {
	s, ok := p[key]
	if !ok {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, true, syntaxErr("+%s=%q is not a number", key, s)
	}
	return v, true, nil
}

// FromParams builds a CRS from Proj construction parameters. Keys may carry
// a leading '+'; "init" accepts "epsg:NNNN".
func FromParams(p Params) (CRS, error) {
	p = p.normalized()
	if init, ok := p["init"]; ok {
		code, ok := epsgRef(init)
		if !ok {
			return CRS{}, errors.Mark(errors.Newf("unsupported init %q", init), ErrInvalid)
		}
		return fromEPSGRef(code)
	}
	name, ok := p["proj"]
	if !ok {
		return CRS{}, syntaxErr("missing +proj")
	}
	name = strings.ToLower(name)
	base, err := p.geographic()
	if err != nil {
		return CRS{}, err
	}
	keys := make([]string, 0, len(p))
	for k := range p {
		if k != "proj" && !geodeticKeys[k] && !toleratedKeys[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	if geographicProj[name] {
		if len(keys) > 0 {
			return CRS{}, errors.Mark(errors.Newf("parameter %q does not apply to longlat", keys[0]), ErrInvalid)
		}
		if err := base.Validate(); err != nil {
			return CRS{}, err
		}
		return base, nil
	}
	unit, err := p.unit()
	if err != nil {
		return CRS{}, err
	}
	if name == "utm" {
		return p.utm(base, keys, unit)
	}
	m, ok := methodByProj(name)
	if !ok {
		return CRS{}, errors.Mark(errors.Newf("unsupported projection %q", name), ErrInvalid)
	}
	// A zero true-scale latitude is the 1SP form with k=1.
	if ts, ok, err := p.float("lat_ts"); err != nil {
		return CRS{}, err
	} else if ok && ts != 0 && m == Mercator1SP {
		m = Mercator2SP
	}
	params := make(map[string]float64)
	for _, k := range keys {
		if k == "lat_0" && m.ignored("latitude_of_origin") || k == "lat_ts" && m == Mercator1SP {
			continue
		}
		param, ok := projParam(m, k)
		if !ok {
			return CRS{}, errors.Mark(errors.Newf("parameter %q does not apply to %s", k, m.Proj), ErrInvalid)
		}
		v, _, err := p.float(k)
		if err != nil {
			return CRS{}, err
		}
		params[param.WKT] = v
	}
	title := p["title"]
	if title == "" {
		title = "unknown"
	}
	c, err := NewProjected(title, base, m, params, unit)
	if err != nil {
		return CRS{}, err
	}
	if err := c.Validate(); err != nil {
		return CRS{}, err
	}
	return c, nil
}

func projParam(m *Method, key string) (Param, bool) {
	for _, p := range m.Params {
		if p.Proj == key {
			return p, true
		}
		for _, a := range p.ProjAlias {
			if a == key {
				return p, true
			}
		}
	}
	return Param{}, false
}

func (p Params) utm(base CRS, keys []string, unit Unit) (CRS, error) {
	zone := 0
	south := false
	for _, k := range keys {
		switch k {
		case "zone":
			z, err := strconv.Atoi(p[k])
			if err != nil {
				return CRS{}, syntaxErr("+zone=%q is not an integer", p[k])
			}
			zone = z
		case "south":
			south = true
		default:
			return CRS{}, errors.Mark(errors.Newf("parameter %q does not apply to utm", k), ErrInvalid)
		}
	}
	if zone < 1 || zone > 60 {
		return CRS{}, errors.Mark(errors.Newf("utm zone %d out of range", zone), ErrInvalid)
	}
	return utmCRS(base, zone, south, unit)
}

func utmCRS(base CRS, zone int, south bool, unit Unit) (CRS, error) {
	hemi := "N"
	falseNorthing := 0.0
	if south {
		hemi = "S"
		falseNorthing = 10000000
	}
	name := fmt.Sprintf("UTM zone %d%s", zone, hemi)
	if base.geogName != "unknown" {
		name = base.geogName + " / " + name
	}
	return NewProjected(name, base, TransverseMercator, map[string]float64{
		"latitude_of_origin": 0,
		"central_meridian":   float64(zone*6 - 183),
		"scale_factor":       0.9996,
		"false_easting":      500000,
		"false_northing":     falseNorthing,
	}, unit)
}

// geographic resolves the datum, ellipsoid and prime meridian keys.
func (p Params) geographic() (CRS, error) {
	d := DatumWGS84
	if name, ok := p["datum"]; ok {
		known, ok := datums[strings.ToLower(name)]
		if !ok {
			return CRS{}, errors.Mark(errors.Newf("unknown datum %q", name), ErrInvalid)
		}
		d = known
	} else if name, ok := p["ellps"]; ok {
		e, ok := ellipsoids[strings.ToLower(name)]
		if !ok {
			return CRS{}, errors.Mark(errors.Newf("unknown ellipsoid %q", name), ErrInvalid)
		}
		d = datumForEllipsoid(e)
	}
	e, explicit, err := p.ellipsoid(d.Ellipsoid)
	if err != nil {
		return CRS{}, err
	}
	if explicit && e != d.Ellipsoid {
		d = datumForEllipsoid(e)
	}
	var pm float64
	if s, ok := p["pm"]; ok {
		if v, known := primeMeridians[strings.ToLower(s)]; known {
			pm = v
		} else {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return CRS{}, errors.Mark(errors.Newf("unknown prime meridian %q", s), ErrInvalid)
			}
			pm = v
		}
	}
	return NewGeographic("", d, pm), nil
}

// ellipsoid applies explicit +a/+b/+rf/+f/+R overrides to def.
func (p Params) ellipsoid(def Ellipsoid) (Ellipsoid, bool, error) {
	if r, ok, err := p.float("R"); err != nil || ok {
		return Ellipsoid{Name: "sphere", SemiMajor: r}, ok, err
	}
	a, hasA, err := p.float("a")
	if err != nil {
		return Ellipsoid{}, false, err
	}
	if !hasA {
		return def, false, nil
	}
	e := Ellipsoid{SemiMajor: a}
	switch {
	case p["rf"] != "":
		if e.InvFlattening, _, err = p.float("rf"); err != nil {
			return Ellipsoid{}, false, err
		}
	case p["f"] != "":
		f, _, err := p.float("f")
		if err != nil {
			return Ellipsoid{}, false, err
		}
		if f != 0 {
			e.InvFlattening = 1 / f
		}
	case p["b"] != "":
		b, _, err := p.float("b")
		if err != nil {
			return Ellipsoid{}, false, err
		}
		if b != a {
			e.InvFlattening = a / (a - b)
		}
	default:
		e.InvFlattening = def.InvFlattening
	}
	e.Name = "unknown"
	for _, known := range ellipsoids {
		if closeTo(known.SemiMajor, e.SemiMajor) && closeTo(known.InvFlattening, e.InvFlattening) {
			e = known
			break
		}
	}
	return e, true, nil
}

func (p Params) unit() (Unit, error) {
	if s, ok := p["units"]; ok {
		u, ok := projUnitNames[strings.ToLower(s)]
		if !ok {
			return Unit{}, errors.Mark(errors.Newf("unsupported units %q", s), ErrInvalid)
		}
		return u, nil
	}
	f, ok, err := p.float("to_meter")
	if err != nil {
		return Unit{}, err
	}
	if ok {
		return canonicalLinearUnit("", f), nil
	}
	return Metre, nil
}

// Proj4 returns the Proj string form of c. The ellipsoid is always written
// as explicit axes so the output does not depend on ellipsoid tables.
func (c CRS) Proj4() string {
	var parts []string
	if c.kind == Projected {
		parts = append(parts, "+proj="+c.method.Proj)
		for _, p := range c.method.Params {
			parts = append(parts, "+"+p.Proj+"="+formatNum(c.params[p.WKT]))
		}
	} else {
		parts = append(parts, "+proj=longlat")
	}
	e := c.datum.Ellipsoid
	if e.IsSphere() {
		parts = append(parts, "+a="+formatNum(e.SemiMajor), "+b="+formatNum(e.SemiMajor))
	} else {
		parts = append(parts, "+a="+formatNum(e.SemiMajor), "+rf="+formatNum(e.InvFlattening))
	}
	if c.pm != 0 {
		parts = append(parts, "+pm="+formatNum(c.pm))
	}
	if c.kind == Projected {
		if key, ok := projUnitKey(c.unit); ok {
			parts = append(parts, "+units="+key)
		} else {
			parts = append(parts, "+to_meter="+formatNum(c.unit.Factor))
		}
	}
	parts = append(parts, "+no_defs")
	return strings.Join(parts, " ")
}
