// Package cf synthesizes and detects CF-1.7 georeferencing metadata on
// datasets: grid mapping variables, coordinate variables and the
// grid_mapping links between them. GDAL compatibility attributes
// (spatial_ref, GeoTransform) are written alongside.
package cf

import (
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/pspoerri/cfgeo/internal/dataset"
)

// Attribute keys.
const (
	AttrConventions     = "Conventions"
	AttrGridMapping     = "grid_mapping"
	AttrGridMappingName = "grid_mapping_name"
	AttrStandardName    = "standard_name"
	AttrLongName        = "long_name"
	AttrUnits           = "units"
	AttrAxis            = "axis"
	AttrCalendar        = "calendar"
	AttrSpatialRef      = "spatial_ref"
	AttrGeoTransform    = "GeoTransform"
)

// DefaultGridMapping is the default name of the grid mapping variable.
const DefaultGridMapping = "crs"

var (
	// ErrMissingGridMapping marks an object without a grid mapping variable.
	ErrMissingGridMapping = errors.New("no grid mapping variable")
	// ErrUnsupportedObject marks an object that is neither a
	// *dataset.DataArray nor a *dataset.Dataset.
	ErrUnsupportedObject = errors.New("unsupported object")
)

// Names of x/y dimensions, in order of preference.
var (
	XDimensions = []string{"x", "longitude", "lon", "long"}
	YDimensions = []string{"y", "latitude", "lat"}
)

// CoordDefs returns the CF attributes of the well-known coordinates
// longitude, latitude, x, y and time. Every call returns fresh attributes.
func CoordDefs() map[string]dataset.Attrs {
	return map[string]dataset.Attrs{
		"longitude": dataset.NewAttrs(
			AttrStandardName, "longitude",
			AttrLongName, "longitude",
			AttrUnits, "degrees_east",
		),
		"latitude": dataset.NewAttrs(
			AttrStandardName, "latitude",
			AttrLongName, "latitude",
			AttrUnits, "degrees_north",
		),
		"x": dataset.NewAttrs(
			AttrStandardName, "projection_x_coordinate",
			AttrLongName, "x coordinate of projection",
		),
		"y": dataset.NewAttrs(
			AttrStandardName, "projection_y_coordinate",
			AttrLongName, "y coordinate of projection",
		),
		"time": dataset.NewAttrs(
			AttrStandardName, "time",
			AttrLongName, "Time, unix time-stamp",
			AttrAxis, "T",
			AttrCalendar, "standard",
		),
	}
}

// CFAttrs returns the dataset-level attributes declaring CF conventions.
func CFAttrs() dataset.Attrs {
	return dataset.NewAttrs(AttrConventions, "CF-1.7")
}

// Option configures Georeference, IsGeoreferenced and CreateGridMapping.
type Option func(*options)

type options struct {
	gridMapping string
	inPlace     bool
	requireGDAL bool
	log         zerolog.Logger
}

func newOptions(opts []Option) options {
	o := options{gridMapping: DefaultGridMapping, log: zerolog.Nop()}
	for _, fn := range opts {
		fn(&o)
	}
	if o.gridMapping == "" {
		o.gridMapping = DefaultGridMapping
	}
	return o
}

// WithGridMapping sets the grid mapping variable name.
func WithGridMapping(name string) Option {
	return func(o *options) { o.gridMapping = name }
}

// InPlace makes Georeference modify its input instead of a copy.
func InPlace() Option {
	return func(o *options) { o.inPlace = true }
}

// RequireGDAL makes IsGeoreferenced also require spatial_ref and
// GeoTransform on the grid mapping variable.
func RequireGDAL() Option {
	return func(o *options) { o.requireGDAL = true }
}

// WithLogger sets the logger for debug diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.log = l }
}

// GetGridMapping returns the grid mapping coordinate of a *dataset.DataArray
// or *dataset.Dataset. An empty name means DefaultGridMapping.
func GetGridMapping(obj any, name string) (*dataset.Variable, error) {
	if name == "" {
		name = DefaultGridMapping
	}
	var coords dataset.Coords
	switch v := obj.(type) {
	case *dataset.DataArray:
		if v == nil {
			return nil, unsupported(obj)
		}
		coords = v.Coords
	case *dataset.Dataset:
		if v == nil {
			return nil, unsupported(obj)
		}
		coords = v.Coords
	default:
		return nil, unsupported(obj)
	}
	gm, ok := coords.Get(name)
	if !ok {
		return nil, errors.Mark(errors.Newf("no grid mapping variable %q", name), ErrMissingGridMapping)
	}
	return gm, nil
}

func unsupported(obj any) error {
	return errors.Mark(
		errors.Newf("%T is not a *dataset.DataArray or *dataset.Dataset", obj),
		ErrUnsupportedObject)
}
