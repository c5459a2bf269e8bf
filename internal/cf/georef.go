package cf

import (
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/pspoerri/cfgeo/internal/affine"
	"github.com/pspoerri/cfgeo/internal/crs"
	"github.com/pspoerri/cfgeo/internal/dataset"
	"github.com/pspoerri/cfgeo/internal/projection"
)

// Georeference attaches a grid mapping variable for c and t to a
// *dataset.DataArray or *dataset.Dataset, links every variable with both
// x and y dimensions to it and declares CF conventions. Unless InPlace is
// given, a shallow copy is modified and returned; the result has the type
// of obj.
func Georeference(obj any, svc projection.Service, c crs.CRS, t affine.Transform, opts ...Option) (any, error) {
	o := newOptions(opts)
	switch v := obj.(type) {
	case *dataset.DataArray:
		if v == nil {
			return nil, unsupported(obj)
		}
	case *dataset.Dataset:
		if v == nil {
			return nil, unsupported(obj)
		}
	default:
		return nil, unsupported(obj)
	}

	gm, err := CreateGridMapping(svc, c, t, o.gridMapping, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "creating grid mapping")
	}
	xDim, yDim, err := svc.AxisNames(c)
	if err != nil {
		return nil, errors.Wrap(err, "axis names")
	}

	switch v := obj.(type) {
	case *dataset.DataArray:
		if !o.inPlace {
			v = v.Copy()
		}
		v.Coords.Set(gm)
		link(&v.Variable, xDim, yDim, o)
		v.Attrs.Update(CFAttrs())
		return v, nil
	case *dataset.Dataset:
		if !o.inPlace {
			v = v.Copy()
		}
		v.Coords.Set(gm)
		for _, dv := range v.Vars {
			link(dv, xDim, yDim, o)
		}
		v.Attrs.Update(CFAttrs())
		return v, nil
	}
	return nil, unsupported(obj)
}

// link sets grid_mapping on v if it spans both spatial dimensions.
func link(v *dataset.Variable, xDim, yDim string, o options) {
	if !v.HasDims(xDim, yDim) {
		o.log.Debug().
			Str("variable", v.Name).
			Strs("dims", v.Dims).
			Msgf("not georeferencing: lacks x/y dimensions (%q and %q)", xDim, yDim)
		return
	}
	v.Attrs.Set(AttrGridMapping, o.gridMapping)
}

// IsGeoreferenced reports whether obj carries a grid mapping variable with
// grid_mapping_name (and, with RequireGDAL, spatial_ref and GeoTransform),
// and at least one variable linked to it: the array itself for a
// *dataset.DataArray, any data variable for a *dataset.Dataset.
func IsGeoreferenced(obj any, opts ...Option) (bool, error) {
	o := newOptions(opts)
	gm, err := GetGridMapping(obj, o.gridMapping)
	if err != nil {
		if errors.Is(err, ErrUnsupportedObject) {
			return false, err
		}
		o.log.Debug().Err(err).Msg("not georeferenced")
		return false, nil
	}

	cfOK := hasAttrs(gm, o.log, AttrGridMappingName)
	gdalOK := hasAttrs(gm, o.log, AttrSpatialRef, AttrGeoTransform)
	if !cfOK || (o.requireGDAL && !gdalOK) {
		return false, nil
	}

	switch v := obj.(type) {
	case *dataset.DataArray:
		return hasAttrs(&v.Variable, o.log, AttrGridMapping), nil
	case *dataset.Dataset:
		linked := false
		for _, dv := range v.Vars {
			if hasAttrs(dv, o.log, AttrGridMapping) {
				linked = true
			}
		}
		return linked, nil
	}
	return false, unsupported(obj)
}

func hasAttrs(v *dataset.Variable, log zerolog.Logger, keys ...string) bool {
	missing := v.Attrs.Missing(keys...)
	if len(missing) == 0 {
		return true
	}
	log.Debug().
		Str("variable", v.Name).
		Strs("missing", missing).
		Msg("cannot find required grid mapping attributes")
	return false
}
