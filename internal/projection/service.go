// Package projection answers CF and GDAL questions about a coordinate
// reference system: grid mapping name, authority code, CF parameters,
// well-known text and axis naming.
package projection

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/ctessum/geom/proj"
	"github.com/rs/zerolog"

	"github.com/pspoerri/cfgeo/internal/crs"
	"github.com/pspoerri/cfgeo/internal/dataset"
)

// ErrUnknownAuthority marks an authority code with no known definition.
var ErrUnknownAuthority = errors.New("unknown authority code")

// Service is the projection backend used by the converters and the CF
// synthesizers.
type Service interface {
	GridMappingName(c crs.CRS) (string, error)
	// AuthorityCode returns "AUTH:CODE", or ok=false if no registered
	// definition matches.
	AuthorityCode(c crs.CRS) (code string, ok bool, err error)
	CFProjectionParams(c crs.CRS) (dataset.Attrs, error)
	CFEllipsoidParams(c crs.CRS) (dataset.Attrs, error)
	IsProjected(c crs.CRS) (bool, error)
	LinearUnitName(c crs.CRS) (string, error)
	WellKnownText(c crs.CRS) (string, error)
	// AxisNames returns the x and y coordinate names.
	AxisNames(c crs.CRS) (x, y string, err error)

	FromAuthority(code int) (crs.CRS, error)
	FromParams(p crs.Params) (crs.CRS, error)
	Validate(c crs.CRS) error
}

// Option configures a Default service.
type Option func(*Default)

// WithLogger sets the logger for validation diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(d *Default) { d.log = l }
}

// Default implements Service over the built-in CRS model. Definitions are
// cross-checked against github.com/ctessum/geom/proj.
type Default struct {
	log zerolog.Logger
}

var _ Service = (*Default)(nil)

// New returns the default projection service.
func New(opts ...Option) *Default {
	d := &Default{log: zerolog.Nop()}
	for _, o := range opts {
		o(d)
	}
	return d
}

func requireCRS(c crs.CRS) error {
	if c.IsZero() {
		return errors.Mark(errors.New("no crs given"), crs.ErrInvalid)
	}
	return nil
}

func (d *Default) GridMappingName(c crs.CRS) (string, error) {
	if err := requireCRS(c); err != nil {
		return "", err
	}
	return c.GridMappingName(), nil
}

func (d *Default) AuthorityCode(c crs.CRS) (string, bool, error) {
	if err := requireCRS(c); err != nil {
		return "", false, err
	}
	a, ok := crs.LookupAuthority(c)
	if !ok {
		return "", false, nil
	}
	return a.String(), true, nil
}

// CFProjectionParams returns the CF grid mapping parameters of a projected
// CRS in method order. Parameters sharing a CF name (the two standard
// parallels of a conic) are combined into one list. Geographic systems have
// none.
func (d *Default) CFProjectionParams(c crs.CRS) (dataset.Attrs, error) {
	if err := requireCRS(c); err != nil {
		return dataset.Attrs{}, err
	}
	var out dataset.Attrs
	if !c.IsProjected() {
		return out, nil
	}
	m := c.Method()
	count := make(map[string]int, len(m.Params))
	for _, p := range m.Params {
		count[p.CF]++
	}
	for _, p := range m.Params {
		v, _ := c.Param(p.WKT)
		if count[p.CF] == 1 {
			out.Set(p.CF, v)
			continue
		}
		prev, _ := out.Get(p.CF)
		list, _ := prev.([]float64)
		out.Set(p.CF, append(list, v))
	}
	return out, nil
}

func (d *Default) CFEllipsoidParams(c crs.CRS) (dataset.Attrs, error) {
	if err := requireCRS(c); err != nil {
		return dataset.Attrs{}, err
	}
	e := c.Ellipsoid()
	return dataset.NewAttrs(
		"semi_major_axis", e.SemiMajor,
		"semi_minor_axis", e.SemiMinor(),
		"inverse_flattening", e.InvFlattening,
		"reference_ellipsoid_name", e.Name,
		"longitude_of_prime_meridian", c.PrimeMeridian(),
		"prime_meridian_name", c.PrimeMeridianName(),
		"geographic_crs_name", c.GeographicName(),
		"horizontal_datum_name", c.Datum().Name,
	), nil
}

func (d *Default) IsProjected(c crs.CRS) (bool, error) {
	if err := requireCRS(c); err != nil {
		return false, err
	}
	return c.IsProjected(), nil
}

// LinearUnitName returns the unit of the projected axes, or "degree" for
// geographic systems.
func (d *Default) LinearUnitName(c crs.CRS) (string, error) {
	if err := requireCRS(c); err != nil {
		return "", err
	}
	u, ok := c.LinearUnit()
	if !ok {
		return crs.Degree.Name, nil
	}
	return u.Name, nil
}

// WellKnownText exports c as WKT1. A CRS without an authority tag gets the
// one its definition matches, so GDAL can identify it.
func (d *Default) WellKnownText(c crs.CRS) (string, error) {
	if err := requireCRS(c); err != nil {
		return "", err
	}
	if c.Authority().IsZero() {
		if a, ok := crs.LookupAuthority(c); ok {
			c = c.WithAuthority(a)
		}
	}
	return c.WKT(), nil
}

func (d *Default) AxisNames(c crs.CRS) (string, string, error) {
	if err := requireCRS(c); err != nil {
		return "", "", err
	}
	if c.IsProjected() {
		return "x", "y", nil
	}
	return "longitude", "latitude", nil
}

func (d *Default) FromAuthority(code int) (crs.CRS, error) {
	c, ok := crs.FromEPSG(code)
	if !ok {
		return crs.CRS{}, errors.WithHint(
			errors.Mark(errors.Newf("EPSG:%d", code), ErrUnknownAuthority),
			"pass a WKT or Proj definition instead")
	}
	if err := d.Validate(c); err != nil {
		return crs.CRS{}, errors.Wrapf(err, "EPSG:%d", code)
	}
	return c, nil
}

func (d *Default) FromParams(p crs.Params) (crs.CRS, error) {
	c, err := crs.FromParams(p)
	if err != nil {
		return crs.CRS{}, err
	}
	if err := d.Validate(c); err != nil {
		return crs.CRS{}, err
	}
	return c, nil
}

// Proj names with transformers in github.com/ctessum/geom/proj.
var checkedMethods = map[string]bool{
	"longlat": true,
	"tmerc":   true,
	"merc":    true,
	"lcc":     true,
}

func projName(c crs.CRS) string {
	if c.IsProjected() {
		return c.Method().Proj
	}
	return "longlat"
}

// Validate checks c and, for methods ctessum/geom/proj implements, that an
// independent Proj parser accepts the exported definition and can build
// transformers for it.
func (d *Default) Validate(c crs.CRS) error {
	if err := requireCRS(c); err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return err
	}
	name := projName(c)
	if !checkedMethods[name] {
		d.log.Debug().Str("method", name).Msg("no reference implementation, skipping transformer check")
		return nil
	}
	def := c.Proj4()
	sr, err := proj.Parse(def)
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "parsing %q", def), crs.ErrInvalid)
	}
	if _, _, err := sr.Transformers(); err != nil {
		return errors.Mark(errors.Wrapf(err, "building transformers for %q", strings.TrimSpace(def)), crs.ErrInvalid)
	}
	return nil
}
