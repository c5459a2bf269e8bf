package convert

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"

	"github.com/pspoerri/cfgeo/internal/cf"
	"github.com/pspoerri/cfgeo/internal/crs"
	"github.com/pspoerri/cfgeo/internal/dataset"
	"github.com/pspoerri/cfgeo/internal/geotiff"
)

// ErrCRSUnparseable marks a string that is neither WKT nor a Proj string.
var ErrCRSUnparseable = errors.New("unparseable crs")

// WKTExporter is a native spatial reference that can export WKT.
type WKTExporter interface {
	ExportToWKT() (string, error)
}

// ProjExporter is a native spatial reference that can export a Proj string.
type ProjExporter interface {
	ExportToProj4() (string, error)
}

func (c *Converter) registerCRS() {
	RegisterCRS(c, func(v crs.CRS, _ CRSOptions) (crs.CRS, error) { return v, nil })
	RegisterCRS(c, func(v *crs.CRS, _ CRSOptions) (crs.CRS, error) {
		if v == nil {
			return crs.CRS{}, errors.Mark(errors.New("nil *crs.CRS"), crs.ErrInvalid)
		}
		return *v, nil
	})
	RegisterCRS(c, c.crsFromString)

	c.crsTable.RegisterTypes(c.crsFromCode,
		reflect.TypeOf((*int)(nil)).Elem(),
		reflect.TypeOf((*int32)(nil)).Elem(),
		reflect.TypeOf((*int64)(nil)).Elem(),
		reflect.TypeOf((*uint16)(nil)).Elem(),
		reflect.TypeOf((*uint32)(nil)).Elem(),
	)

	RegisterCRS(c, func(v crs.Params, _ CRSOptions) (crs.CRS, error) { return c.svc.FromParams(v) })
	RegisterCRS(c, func(v map[string]string, _ CRSOptions) (crs.CRS, error) {
		return c.svc.FromParams(crs.Params(v))
	})
	RegisterCRS(c, func(v map[string]any, _ CRSOptions) (crs.CRS, error) {
		p, err := paramsFromMap(v)
		if err != nil {
			return crs.CRS{}, err
		}
		return c.svc.FromParams(p)
	})

	RegisterCRS(c, func(g *geotiff.Georef, _ CRSOptions) (crs.CRS, error) {
		if g == nil {
			return crs.CRS{}, errors.Mark(errors.New("nil *geotiff.Georef"), geotiff.ErrNotGeoreferenced)
		}
		out, err := g.CRS()
		if err != nil {
			return crs.CRS{}, err
		}
		return out, c.svc.Validate(out)
	})
	RegisterCRS(c, func(d *dataset.Dataset, o CRSOptions) (crs.CRS, error) { return c.crsFromObject(d, o) })
	RegisterCRS(c, func(a *dataset.DataArray, o CRSOptions) (crs.CRS, error) { return c.crsFromObject(a, o) })

	// Fallbacks, tried in this order.
	RegisterCRS(c, func(v WKTExporter, o CRSOptions) (crs.CRS, error) {
		s, err := v.ExportToWKT()
		if err != nil {
			return crs.CRS{}, errors.Wrapf(err, "exporting WKT from %T", v)
		}
		return c.crsFromString(s, o)
	})
	RegisterCRS(c, func(v ProjExporter, o CRSOptions) (crs.CRS, error) {
		s, err := v.ExportToProj4()
		if err != nil {
			return crs.CRS{}, errors.Wrapf(err, "exporting Proj string from %T", v)
		}
		return c.crsFromString(s, o)
	})
}

func (c *Converter) crsFromCode(v any, _ CRSOptions) (crs.CRS, error) {
	rv := reflect.ValueOf(v)
	var code int64
	switch rv.Kind() {
	case reflect.Int, reflect.Int32, reflect.Int64:
		code = rv.Int()
	case reflect.Uint16, reflect.Uint32:
		code = int64(rv.Uint())
	default:
		return crs.CRS{}, errors.AssertionFailedf("crsFromCode called with %T", v)
	}
	return c.svc.FromAuthority(int(code))
}

// crsFromString parses WKT, falling back to a Proj string. Results are
// cached by the hash of the trimmed input.
func (c *Converter) crsFromString(s string, _ CRSOptions) (crs.CRS, error) {
	s = strings.TrimSpace(s)
	var key uint64
	if c.cache != nil {
		key = xxhash.Sum64String(s)
		if v, ok := c.cache.Get(key); ok {
			c.metrics.CacheHit()
			return v, nil
		}
	}
	out, err := c.parseCRS(s)
	if err != nil {
		return crs.CRS{}, err
	}
	if c.cache != nil {
		c.cache.Add(key, out)
	}
	return out, nil
}

func (c *Converter) parseCRS(s string) (crs.CRS, error) {
	out, wktErr := crs.ParseWKT(s)
	if wktErr == nil {
		if wktErr = c.svc.Validate(out); wktErr == nil {
			return out, nil
		}
	}
	c.log.Debug().Err(wktErr).Msg("could not parse crs as WKT")
	c.metrics.Fallback()

	out, projErr := crs.ParseProj(s)
	if projErr == nil {
		if projErr = c.svc.Validate(out); projErr == nil {
			return out, nil
		}
	}
	c.log.Debug().Err(projErr).Msg("could not parse crs as Proj string")
	return crs.CRS{}, errors.Mark(
		errors.Newf("could not interpret %q as either WKT (%v) or Proj string (%v)", abbrev(s), wktErr, projErr),
		ErrCRSUnparseable)
}

func abbrev(s string) string {
	const limit = 60
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}

// paramsFromMap converts a parameter mapping with loosely typed values.
// true and nil mark flags such as no_defs; false drops the key.
func paramsFromMap(m map[string]any) (crs.Params, error) {
	p := make(crs.Params, len(m))
	for k, v := range m {
		switch x := v.(type) {
		case nil:
			p[k] = ""
		case string:
			p[k] = x
		case bool:
			if x {
				p[k] = ""
			}
		case float64:
			p[k] = strconv.FormatFloat(x, 'f', -1, 64)
		case float32:
			p[k] = strconv.FormatFloat(float64(x), 'f', -1, 32)
		case int, int32, int64, uint16, uint32:
			p[k] = fmt.Sprint(x)
		default:
			return nil, errors.Mark(errors.Newf("parameter %s: unsupported value type %T", k, v), crs.ErrSyntax)
		}
	}
	return p, nil
}

// crsFromObject reads the spatial_ref (or crs_wkt) attribute of a
// dataset's grid mapping variable.
func (c *Converter) crsFromObject(obj any, o CRSOptions) (crs.CRS, error) {
	gm, err := cf.GetGridMapping(obj, o.GridMapping)
	if err != nil {
		return crs.CRS{}, err
	}
	for _, key := range []string{cf.AttrSpatialRef, "crs_wkt"} {
		if s, ok := gm.Attrs.String(key); ok && s != "" {
			return c.crsFromString(s, o)
		}
	}
	return crs.CRS{}, errors.Mark(
		errors.Newf("grid mapping variable %q has no spatial_ref or crs_wkt", gm.Name),
		cf.ErrMissingGridMapping)
}
