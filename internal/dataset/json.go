package dataset

import (
	"bytes"
	"encoding/json"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// CF-JSON layout:
//
//	{
//	  "attributes": {...},
//	  "dimensions": {"y": 2, "x": 3},
//	  "variables": {
//	    "name": {"shape": ["y", "x"], "type": "double", "attributes": {...}, "data": [[...], [...]]}
//	  }
//	}
//
// A variable is read as a coordinate when it is named after a dimension,
// carries grid_mapping_name, or is referenced by another variable's
// grid_mapping attribute.

type jsonVariable struct {
	Shape      []string        `json:"shape"`
	Type       string          `json:"type"`
	Attributes jsonAttrs       `json:"attributes"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// jsonAttrs keeps attribute order through encoding and decoding.
type jsonAttrs struct{ Attrs }

func (a jsonAttrs) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range a.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, _ := json.Marshal(k)
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := marshalAttr(a.m[k])
		if err != nil {
			return nil, errors.Wrapf(err, "attribute %q", k)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (a *jsonAttrs) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	return decodeObject(dec, func(key string) error {
		var raw any
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		v, err := attrValue(raw)
		if err != nil {
			return errors.Wrapf(err, "attribute %q", key)
		}
		a.Set(key, v)
		return nil
	})
}

// decodeObject reads one JSON object, calling fn for each key. fn must
// consume the value.
func decodeObject(dec *json.Decoder, fn func(key string) error) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.Newf("expected object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		if err := fn(tok.(string)); err != nil {
			return err
		}
	}
	_, err = dec.Token()
	return err
}

// marshalAttr writes floats with a fraction or exponent so that attrValue
// reads them back as floats, and integers without, so they come back as
// int32.
func marshalAttr(v any) ([]byte, error) {
	switch v := v.(type) {
	case float64:
		return marshalFloat(v)
	case float32:
		return marshalFloat(float64(v))
	case []float64:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, f := range v {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := marshalFloat(f)
			if err != nil {
				return nil, errors.Wrapf(err, "element %d", i)
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	}
	return json.Marshal(v)
}

func marshalFloat(f float64) ([]byte, error) {
	b, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	if !bytes.ContainsAny(b, ".eE") {
		b = append(b, ".0"...)
	}
	return b, nil
}

// numberValue returns n as int32 when it is written as an integer in int32
// range, and as float64 otherwise.
func numberValue(n json.Number) (any, bool, error) {
	if !strings.ContainsAny(n.String(), ".eE") {
		if i, err := strconv.ParseInt(n.String(), 10, 32); err == nil {
			return int32(i), true, nil
		}
	}
	f, err := n.Float64()
	return f, false, err
}

func attrValue(raw any) (any, error) {
	switch v := raw.(type) {
	case string, bool:
		return v, nil
	case json.Number:
		x, _, err := numberValue(v)
		return x, err
	case []any:
		if len(v) == 0 {
			return []float64{}, nil
		}
		if _, ok := v[0].(string); ok {
			out := make([]string, len(v))
			for i, e := range v {
				s, ok := e.(string)
				if !ok {
					return nil, errors.New("mixed string and non-string array")
				}
				out[i] = s
			}
			return out, nil
		}
		floats := make([]float64, len(v))
		ints := make([]int32, len(v))
		allInt := true
		for i, e := range v {
			n, ok := e.(json.Number)
			if !ok {
				return nil, errors.Newf("array element %d is not a number", i)
			}
			x, isInt, err := numberValue(n)
			if err != nil {
				return nil, err
			}
			if isInt {
				ints[i] = x.(int32)
				floats[i] = float64(ints[i])
			} else {
				allInt = false
				floats[i] = x.(float64)
			}
		}
		if allInt {
			return ints, nil
		}
		return floats, nil
	}
	return nil, errors.Newf("unsupported attribute value %T", raw)
}

// DecodeJSON reads a CF-JSON document.
func DecodeJSON(r io.Reader) (*Dataset, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var (
		attrs jsonAttrs
		dims  = map[string]int{}
		names []string
		vars  = map[string]jsonVariable{}
	)
	err := decodeObject(dec, func(key string) error {
		switch key {
		case "attributes":
			return dec.Decode(&attrs)
		case "dimensions":
			return dec.Decode(&dims)
		case "variables":
			return decodeObject(dec, func(name string) error {
				var jv jsonVariable
				if err := dec.Decode(&jv); err != nil {
					return errors.Wrapf(err, "variable %q", name)
				}
				names = append(names, name)
				vars[name] = jv
				return nil
			})
		default:
			var skip json.RawMessage
			return dec.Decode(&skip)
		}
	})
	if err != nil {
		return nil, errors.Wrap(err, "decoding CF-JSON")
	}

	refs := map[string]bool{}
	for _, jv := range vars {
		if gm, ok := jv.Attributes.String("grid_mapping"); ok {
			refs[gm] = true
		}
	}
	ds := &Dataset{Attrs: attrs.Attrs}
	for _, name := range names {
		jv := vars[name]
		v, err := decodeVariable(name, jv, dims)
		if err != nil {
			return nil, err
		}
		_, isDim := dims[name]
		if isDim || refs[name] || jv.Attributes.Has("grid_mapping_name") {
			ds.Coords = append(ds.Coords, v)
		} else {
			ds.Vars = append(ds.Vars, v)
		}
	}
	return ds, nil
}

func decodeVariable(name string, jv jsonVariable, dims map[string]int) (*Variable, error) {
	v := &Variable{Name: name, Dims: jv.Shape, Attrs: jv.Attributes.Attrs}
	n := 1
	for _, d := range jv.Shape {
		size, ok := dims[d]
		if !ok {
			return nil, errors.Newf("variable %q: unknown dimension %q", name, d)
		}
		v.Shape = append(v.Shape, size)
		n *= size
	}
	if len(jv.Data) == 0 {
		return v, nil
	}
	var raw any
	dec := json.NewDecoder(bytes.NewReader(jv.Data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, errors.Wrapf(err, "variable %q data", name)
	}
	if len(jv.Shape) == 0 {
		d, err := scalarData(raw, jv.Type)
		if err != nil {
			return nil, errors.Wrapf(err, "variable %q", name)
		}
		v.Data = d
		return v, nil
	}
	var flat []any
	flatten(raw, &flat)
	if len(flat) != n {
		return nil, errors.Newf("variable %q: %d values for shape %v", name, len(flat), v.Shape)
	}
	d, err := sliceData(flat, jv.Type)
	if err != nil {
		return nil, errors.Wrapf(err, "variable %q", name)
	}
	v.Data = d
	return v, nil
}

func flatten(raw any, out *[]any) {
	if a, ok := raw.([]any); ok {
		for _, e := range a {
			flatten(e, out)
		}
		return
	}
	*out = append(*out, raw)
}

func isIntType(t string) bool {
	return slices.Contains([]string{"int", "short", "byte", "int32", "int16", "int8"}, t)
}

func scalarData(raw any, typ string) (any, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case json.Number:
		if isIntType(typ) {
			if i, err := strconv.ParseInt(v.String(), 10, 32); err == nil {
				return int32(i), nil
			}
		}
		return v.Float64()
	}
	return nil, errors.Newf("unsupported scalar %T", raw)
}

func int32Data(flat []any) ([]int32, bool) {
	out := make([]int32, len(flat))
	for i, e := range flat {
		n, ok := e.(json.Number)
		if !ok {
			return nil, false
		}
		v, err := strconv.ParseInt(n.String(), 10, 32)
		if err != nil {
			return nil, false
		}
		out[i] = int32(v)
	}
	return out, true
}

func sliceData(flat []any, typ string) (any, error) {
	if typ == "string" || typ == "char" {
		out := make([]string, len(flat))
		for i, e := range flat {
			s, ok := e.(string)
			if !ok {
				return nil, errors.Newf("element %d is not a string", i)
			}
			out[i] = s
		}
		return out, nil
	}
	if isIntType(typ) {
		if out, ok := int32Data(flat); ok {
			return out, nil
		}
		// Values outside int32 range are kept as float64.
	}
	out := make([]float64, len(flat))
	for i, e := range flat {
		n, ok := e.(json.Number)
		if !ok {
			return nil, errors.Newf("element %d is not a number", i)
		}
		v, err := n.Float64()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// EncodeJSON writes d as an indented CF-JSON document. Coordinates come
// before data variables; attribute order is preserved.
func EncodeJSON(w io.Writer, d *Dataset) error {
	var buf bytes.Buffer
	buf.WriteString("{\n  \"attributes\": ")
	if err := writeJSON(&buf, jsonAttrs{d.Attrs}); err != nil {
		return err
	}
	buf.WriteString(",\n  \"dimensions\": {")
	for i, dim := range d.Dims() {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, _ := json.Marshal(dim.Name)
		buf.WriteString("\n    ")
		buf.Write(kb)
		buf.WriteString(": ")
		buf.WriteString(jsonInt(dim.Size))
	}
	buf.WriteString("\n  },\n  \"variables\": {")
	all := append(slices.Clone([]*Variable(d.Coords)), d.Vars...)
	for i, v := range all {
		if i > 0 {
			buf.WriteByte(',')
		}
		jv, err := encodeVariable(v)
		if err != nil {
			return err
		}
		kb, _ := json.Marshal(v.Name)
		buf.WriteString("\n    ")
		buf.Write(kb)
		buf.WriteString(": ")
		if err := writeJSON(&buf, jv); err != nil {
			return errors.Wrapf(err, "variable %q", v.Name)
		}
	}
	buf.WriteString("\n  }\n}\n")
	_, err := w.Write(buf.Bytes())
	return err
}

func writeJSON(buf *bytes.Buffer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}

func jsonInt(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func encodeVariable(v *Variable) (jsonVariable, error) {
	jv := jsonVariable{Shape: v.Dims, Attributes: jsonAttrs{v.Attrs}}
	if jv.Shape == nil {
		jv.Shape = []string{}
	}
	var flat []any
	switch d := v.Data.(type) {
	case nil:
		return jv, nil
	case float64:
		jv.Type = "double"
		return withData(jv, d)
	case int32:
		jv.Type = "int"
		return withData(jv, d)
	case string:
		jv.Type = "string"
		return withData(jv, d)
	case []float64:
		jv.Type = "double"
		flat = toAny(d)
	case []int32:
		jv.Type = "int"
		flat = toAny(d)
	case []string:
		jv.Type = "string"
		flat = toAny(d)
	default:
		return jv, errors.Newf("unsupported data type %T", v.Data)
	}
	nested, err := reshape(flat, v.Shape)
	if err != nil {
		return jv, errors.Wrapf(err, "variable %q", v.Name)
	}
	return withData(jv, nested)
}

func withData(jv jsonVariable, data any) (jsonVariable, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return jv, err
	}
	jv.Data = b
	return jv, nil
}

func toAny[T any](s []T) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}

// reshape nests a flat row-major slice according to shape.
func reshape(flat []any, shape []int) (any, error) {
	n := 1
	for _, s := range shape {
		n *= s
	}
	if len(shape) == 0 || n != len(flat) {
		return nil, errors.Newf("%d values do not fit shape %v", len(flat), shape)
	}
	if len(shape) == 1 {
		return flat, nil
	}
	if shape[0] == 0 {
		return []any{}, nil
	}
	step := n / shape[0]
	out := make([]any, shape[0])
	for i := range out {
		sub, err := reshape(flat[i*step:(i+1)*step], shape[1:])
		if err != nil {
			return nil, err
		}
		out[i] = sub
	}
	return out, nil
}
