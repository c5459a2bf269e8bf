package projection

import "math"

// originShift is half the equatorial circumference of the Web Mercator
// sphere in metres.
const originShift = 20037508.342789244

// webMercator converts EPSG:3857 coordinates on the spherical formulas.
type webMercator struct{}

func (webMercator) ToWGS84(x, y float64) (lon, lat float64, err error) {
	lon = x / originShift * 180
	lat = math.Atan(math.Exp(y*math.Pi/originShift))*360/math.Pi - 90
	return lon, lat, nil
}

func (webMercator) FromWGS84(lon, lat float64) (x, y float64, err error) {
	x = lon * originShift / 180
	y = math.Log(math.Tan((90+lat)*math.Pi/360)) / (math.Pi / 180)
	y = y * originShift / 180
	return x, y, nil
}
