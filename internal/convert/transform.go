package convert

import (
	"reflect"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/floats/scalar"

	"github.com/pspoerri/cfgeo/internal/affine"
	"github.com/pspoerri/cfgeo/internal/cf"
	"github.com/pspoerri/cfgeo/internal/dataset"
	"github.com/pspoerri/cfgeo/internal/geotiff"
)

func (c *Converter) registerTransform() {
	RegisterTransform(c, func(v affine.Transform, _ TransformOptions) (affine.Transform, error) { return v, nil })
	RegisterTransform(c, func(v affine.GDAL, _ TransformOptions) (affine.Transform, error) {
		return affine.FromGDAL(v), nil
	})
	RegisterTransform(c, func(v affine.Algebraic, _ TransformOptions) (affine.Transform, error) {
		return affine.FromAlgebraic(v), nil
	})
	RegisterTransform(c, func(v []float64, o TransformOptions) (affine.Transform, error) {
		return affine.FromSlice(v, o.FromGDAL)
	})
	RegisterTransform(c, func(v [6]float64, o TransformOptions) (affine.Transform, error) {
		return affine.FromSlice(v[:], o.FromGDAL)
	})
	RegisterTransform(c, func(v []any, o TransformOptions) (affine.Transform, error) {
		f, err := toFloats(v)
		if err != nil {
			return affine.Transform{}, err
		}
		return affine.FromSlice(f, o.FromGDAL)
	})
	RegisterTransform(c, func(v string, _ TransformOptions) (affine.Transform, error) {
		return affine.ParseGDALString(v)
	})
	RegisterTransform(c, func(g *geotiff.Georef, _ TransformOptions) (affine.Transform, error) {
		if g == nil || !g.HasTransform() {
			return affine.Transform{}, errors.Mark(errors.New("no geotransform"), geotiff.ErrNotGeoreferenced)
		}
		return g.Transform, nil
	})
	RegisterTransform(c, func(w geotiff.WorldFile, _ TransformOptions) (affine.Transform, error) {
		return w.Transform(), nil
	})
	RegisterTransform(c, func(d *dataset.Dataset, o TransformOptions) (affine.Transform, error) {
		if d == nil {
			return affine.Transform{}, errors.New("nil *dataset.Dataset")
		}
		return transformFromObject(d, d.Coords, o)
	})
	RegisterTransform(c, func(a *dataset.DataArray, o TransformOptions) (affine.Transform, error) {
		if a == nil {
			return affine.Transform{}, errors.New("nil *dataset.DataArray")
		}
		return transformFromObject(a, a.Coords, o)
	})
}

// toFloats converts a sequence of numbers of any numeric type.
func toFloats(v []any) ([]float64, error) {
	out := make([]float64, len(v))
	for i, e := range v {
		rv := reflect.ValueOf(e)
		switch rv.Kind() {
		case reflect.Float32, reflect.Float64:
			out[i] = rv.Float()
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			out[i] = float64(rv.Int())
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			out[i] = float64(rv.Uint())
		default:
			return nil, errors.Newf("element %d: %T is not a number", i, e)
		}
	}
	return out, nil
}

// transformFromObject reads GeoTransform from the grid mapping variable, or
// derives the transform from regularly spaced 1-D x/y coordinates.
func transformFromObject(obj any, coords dataset.Coords, o TransformOptions) (affine.Transform, error) {
	if gm, err := cf.GetGridMapping(obj, o.GridMapping); err == nil {
		if s, ok := gm.Attrs.String(cf.AttrGeoTransform); ok {
			t, err := affine.ParseGDALString(s)
			if err != nil {
				return affine.Transform{}, errors.Wrapf(err, "grid mapping %q", gm.Name)
			}
			return t, nil
		}
	}

	xv, err := findCoord(coords, o.XCoord, cf.XDimensions, "x")
	if err != nil {
		return affine.Transform{}, err
	}
	yv, err := findCoord(coords, o.YCoord, cf.YDimensions, "y")
	if err != nil {
		return affine.Transform{}, err
	}
	x0, dx, err := spacing(xv)
	if err != nil {
		return affine.Transform{}, err
	}
	y0, dy, err := spacing(yv)
	if err != nil {
		return affine.Transform{}, err
	}
	// Coordinates are cell centres; the transform addresses cell corners.
	return affine.Transform{A: dx, C: x0 - dx/2, E: dy, F: y0 - dy/2}, nil
}

func findCoord(coords dataset.Coords, name string, candidates []string, axis string) (*dataset.Variable, error) {
	if name != "" {
		v, ok := coords.Get(name)
		if !ok {
			return nil, errors.Newf("no %s coordinate named %q", axis, name)
		}
		return v, nil
	}
	for _, n := range candidates {
		if v, ok := coords.Get(n); ok && len(v.Dims) == 1 {
			return v, nil
		}
	}
	return nil, errors.WithHint(
		errors.Newf("cannot find %s coordinate among %v", axis, candidates),
		"name it with XCoord/YCoord")
}

// spacing returns the first value and the constant step of a regular 1-D
// coordinate.
func spacing(v *dataset.Variable) (first, step float64, err error) {
	vals, ok := v.Float64s()
	if !ok {
		return 0, 0, errors.Newf("coordinate %q is not numeric", v.Name)
	}
	if len(vals) < 2 {
		return 0, 0, errors.Newf("coordinate %q needs at least 2 values, has %d", v.Name, len(vals))
	}
	step = vals[1] - vals[0]
	if step == 0 {
		return 0, 0, errors.Newf("coordinate %q has zero spacing", v.Name)
	}
	for i := 2; i < len(vals); i++ {
		if !scalar.EqualWithinAbsOrRel(vals[i]-vals[i-1], step, 1e-9, 1e-6) {
			return 0, 0, errors.Newf("coordinate %q is not regularly spaced at index %d", v.Name, i)
		}
	}
	return vals[0], step, nil
}
