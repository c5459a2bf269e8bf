// Package convert normalizes heterogeneous geospatial descriptions into the
// canonical CRS, affine transform, bounds and bounding polygon values.
//
// Each target kind has its own open dispatch table keyed by input type.
// Built-in converters are registered by New; other packages add their own
// with RegisterCRS, RegisterTransform, RegisterBounds and RegisterBBox
// before the Converter is shared.
package convert

import (
	"github.com/cockroachdb/errors"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/paulmach/orb"
	"github.com/rs/zerolog"

	"github.com/pspoerri/cfgeo/internal/affine"
	"github.com/pspoerri/cfgeo/internal/bounds"
	"github.com/pspoerri/cfgeo/internal/crs"
	"github.com/pspoerri/cfgeo/internal/dispatch"
	"github.com/pspoerri/cfgeo/internal/metrics"
	"github.com/pspoerri/cfgeo/internal/projection"
)

// Target kind names, used in errors and metrics.
const (
	KindCRS       = "CRS"
	KindTransform = "Transform"
	KindBounds    = "Bounds"
	KindBBox      = "BBox"
)

// DefaultCacheSize is the default number of parsed CRS strings kept.
const DefaultCacheSize = 128

// Converter holds the dispatch tables and the projection service they use.
type Converter struct {
	svc       projection.Service
	log       zerolog.Logger
	metrics   *metrics.Metrics
	cacheSize int
	cache     *lru.Cache[uint64, crs.CRS]

	crsTable       *dispatch.Table[crs.CRS, CRSOptions]
	transformTable *dispatch.Table[affine.Transform, TransformOptions]
	boundsTable    *dispatch.Table[bounds.Bounds, BoundsOptions]
	bboxTable      *dispatch.Table[orb.Polygon, BoundsOptions]
}

// Option configures a Converter.
type Option func(*Converter)

// WithLogger sets the logger for parse diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Converter) { c.log = l }
}

// WithMetrics records conversions in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Converter) { c.metrics = m }
}

// WithCacheSize sets how many parsed CRS strings are cached. 0 disables
// the cache.
func WithCacheSize(n int) Option {
	return func(c *Converter) { c.cacheSize = n }
}

// New returns a Converter with the built-in converters registered.
func New(svc projection.Service, opts ...Option) (*Converter, error) {
	c := &Converter{
		svc:            svc,
		log:            zerolog.Nop(),
		cacheSize:      DefaultCacheSize,
		crsTable:       dispatch.New[crs.CRS, CRSOptions](KindCRS),
		transformTable: dispatch.New[affine.Transform, TransformOptions](KindTransform),
		boundsTable:    dispatch.New[bounds.Bounds, BoundsOptions](KindBounds),
		bboxTable:      dispatch.New[orb.Polygon, BoundsOptions](KindBBox),
	}
	for _, o := range opts {
		o(c)
	}
	if c.svc == nil {
		return nil, errors.New("convert: projection service is required")
	}
	if c.cacheSize < 0 {
		return nil, errors.Newf("convert: negative cache size %d", c.cacheSize)
	}
	if c.cacheSize > 0 {
		cache, err := lru.New[uint64, crs.CRS](c.cacheSize)
		if err != nil {
			return nil, errors.Wrap(err, "creating crs cache")
		}
		c.cache = cache
	}
	c.registerCRS()
	c.registerTransform()
	c.registerBounds()
	c.registerBBox()
	return c, nil
}

// Service returns the projection service.
func (c *Converter) Service() projection.Service { return c.svc }

// CRSOptions configures ToCRS.
type CRSOptions struct {
	// GridMapping names the grid mapping variable read from datasets.
	GridMapping string
}

// CRSOption sets a CRSOptions field.
type CRSOption func(*CRSOptions)

// CRSGridMapping sets the grid mapping variable read from datasets.
func CRSGridMapping(name string) CRSOption {
	return func(o *CRSOptions) { o.GridMapping = name }
}

// TransformOptions configures ToTransform.
type TransformOptions struct {
	// FromGDAL reads plain six-number sequences in GDAL order
	// (c, a, b, f, d, e) instead of algebraic order.
	FromGDAL bool
	// XCoord and YCoord override coordinate detection on datasets.
	XCoord, YCoord string
	// GridMapping names the grid mapping variable read from datasets.
	GridMapping string
}

// TransformOption sets a TransformOptions field.
type TransformOption func(*TransformOptions)

// FromGDAL selects GDAL ordering for plain sequences.
func FromGDAL(gdal bool) TransformOption {
	return func(o *TransformOptions) { o.FromGDAL = gdal }
}

// XCoord names the x coordinate of a dataset.
func XCoord(name string) TransformOption {
	return func(o *TransformOptions) { o.XCoord = name }
}

// YCoord names the y coordinate of a dataset.
func YCoord(name string) TransformOption {
	return func(o *TransformOptions) { o.YCoord = name }
}

// TransformGridMapping sets the grid mapping variable read from datasets.
func TransformGridMapping(name string) TransformOption {
	return func(o *TransformOptions) { o.GridMapping = name }
}

// BoundsOptions configures ToBounds and ToBBox. It has no fields yet.
type BoundsOptions struct{}

// ToCRS converts v to a CRS.
func (c *Converter) ToCRS(v any, opts ...CRSOption) (crs.CRS, error) {
	var o CRSOptions
	for _, fn := range opts {
		fn(&o)
	}
	out, err := c.crsTable.Convert(v, o)
	c.metrics.Conversion(KindCRS, err)
	return out, err
}

// ToTransform converts v to an affine transform.
func (c *Converter) ToTransform(v any, opts ...TransformOption) (affine.Transform, error) {
	var o TransformOptions
	for _, fn := range opts {
		fn(&o)
	}
	out, err := c.transformTable.Convert(v, o)
	c.metrics.Conversion(KindTransform, err)
	return out, err
}

// ToBounds converts v to bounds.
func (c *Converter) ToBounds(v any) (bounds.Bounds, error) {
	out, err := c.boundsTable.Convert(v, BoundsOptions{})
	c.metrics.Conversion(KindBounds, err)
	return out, err
}

// ToBBox converts v to a rectangular polygon.
func (c *Converter) ToBBox(v any) (orb.Polygon, error) {
	out, err := c.bboxTable.Convert(v, BoundsOptions{})
	c.metrics.Conversion(KindBBox, err)
	return out, err
}

// RegisterCRS adds a CRS converter for input type In.
func RegisterCRS[In any](c *Converter, fn func(In, CRSOptions) (crs.CRS, error)) {
	dispatch.Register(c.crsTable, fn)
}

// RegisterTransform adds a transform converter for input type In.
func RegisterTransform[In any](c *Converter, fn func(In, TransformOptions) (affine.Transform, error)) {
	dispatch.Register(c.transformTable, fn)
}

// RegisterBounds adds a bounds converter for input type In.
func RegisterBounds[In any](c *Converter, fn func(In, BoundsOptions) (bounds.Bounds, error)) {
	dispatch.Register(c.boundsTable, fn)
}

// RegisterBBox adds a polygon converter for input type In.
func RegisterBBox[In any](c *Converter, fn func(In, BoundsOptions) (orb.Polygon, error)) {
	dispatch.Register(c.bboxTable, fn)
}
