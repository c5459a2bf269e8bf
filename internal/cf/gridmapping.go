package cf

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/pspoerri/cfgeo/internal/affine"
	"github.com/pspoerri/cfgeo/internal/crs"
	"github.com/pspoerri/cfgeo/internal/dataset"
	"github.com/pspoerri/cfgeo/internal/projection"
)

// CreateGridMapping returns a scalar grid mapping variable describing c and
// t. Its data is the EPSG code as int32, or 0 when c matches no registered
// definition. Attributes are grid_mapping_name, long_name, the CF
// projection and ellipsoid parameters, then spatial_ref and GeoTransform
// for GDAL. An empty name means DefaultGridMapping.
func CreateGridMapping(
	svc projection.Service, c crs.CRS, t affine.Transform, name string, opts ...Option,
) (*dataset.Variable, error) {
	o := newOptions(opts)
	if name == "" {
		name = DefaultGridMapping
	}

	gmName, err := svc.GridMappingName(c)
	if err != nil {
		return nil, errors.Wrap(err, "grid mapping name")
	}
	code := authorityCode(svc, c, o)

	attrs := dataset.NewAttrs(
		AttrGridMappingName, gmName,
		AttrLongName, c.Name(),
	)
	proj, err := svc.CFProjectionParams(c)
	if err != nil {
		return nil, errors.Wrap(err, "projection parameters")
	}
	attrs.Update(proj)
	ellps, err := svc.CFEllipsoidParams(c)
	if err != nil {
		return nil, errors.Wrap(err, "ellipsoid parameters")
	}
	attrs.Update(ellps)

	wkt, err := svc.WellKnownText(c)
	if err != nil {
		return nil, errors.Wrap(err, "well-known text")
	}
	attrs.Set(AttrSpatialRef, wkt)
	attrs.Set(AttrGeoTransform, t.GDALString())
	attrs.Normalize()

	return dataset.NewScalar(name, code, attrs), nil
}

// authorityCode returns the numeric authority code of c, or 0. Failures
// are logged, never returned.
func authorityCode(svc projection.Service, c crs.CRS, o options) int32 {
	s, ok, err := svc.AuthorityCode(c)
	if err != nil || !ok {
		o.log.Debug().Err(err).Str("crs", c.String()).Msg("could not determine EPSG code")
		return 0
	}
	_, num, found := strings.Cut(s, ":")
	if !found {
		num = s
	}
	n, err := strconv.ParseInt(num, 10, 32)
	if err != nil {
		o.log.Debug().Err(err).Str("code", s).Msg("could not determine EPSG code")
		return 0
	}
	return int32(n)
}
