package cf

import (
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/pspoerri/cfgeo/internal/crs"
	"github.com/pspoerri/cfgeo/internal/dataset"
	"github.com/pspoerri/cfgeo/internal/projection"
)

// CreateCoordinates returns y and x as CF coordinate variables for c.
// Geographic systems get latitude/longitude, projected systems y/x with
// units taken from the linear unit of c.
func CreateCoordinates(svc projection.Service, y, x []float64, c crs.CRS) (yVar, xVar *dataset.Variable, err error) {
	xName, yName, err := svc.AxisNames(c)
	if err != nil {
		return nil, nil, errors.Wrap(err, "axis names")
	}
	projected, err := svc.IsProjected(c)
	if err != nil {
		return nil, nil, errors.Wrap(err, "projected status")
	}
	defs := CoordDefs()
	yAttrs, xAttrs := defs[yName], defs[xName]

	if projected {
		unit, err := svc.LinearUnitName(c)
		if err != nil {
			return nil, nil, errors.Wrap(err, "linear unit")
		}
		unit = strings.ToLower(unit)
		yAttrs.Set(AttrUnits, unit)
		xAttrs.Set(AttrUnits, unit)
	}
	return dataset.New1D(yName, yName, y, yAttrs), dataset.New1D(xName, xName, x, xAttrs), nil
}
