package projection

// swissLV95 converts EPSG:2056 (CH1903+ / LV95) coordinates with swisstopo's
// published polynomial approximation. Accuracy is about one metre.
//
// Reference: https://www.swisstopo.admin.ch/en/knowledge-facts/surveying-geodesy/reference-frames/local/lv95.html
type swissLV95 struct{}

func (swissLV95) ToWGS84(easting, northing float64) (lon, lat float64, err error) {
	// Auxiliary values: offsets from Bern in units of 1000 km.
	y := (easting - 2_600_000) / 1_000_000
	x := (northing - 1_200_000) / 1_000_000

	// In units of 10000".
	lonSec := 2.6779094 +
		4.728982*y +
		0.791484*y*x +
		0.1306*y*x*x -
		0.0436*y*y*y
	latSec := 16.9023892 +
		3.238272*x -
		0.270978*y*y -
		0.002528*x*x -
		0.0447*y*y*x -
		0.0140*x*x*x

	return lonSec * 100 / 36, latSec * 100 / 36, nil
}

func (swissLV95) FromWGS84(lon, lat float64) (easting, northing float64, err error) {
	phi := (lat*3600 - 169028.66) / 10000
	lambda := (lon*3600 - 26782.5) / 10000

	easting = 2_600_072.37 +
		211_455.93*lambda -
		10_938.51*lambda*phi -
		0.36*lambda*phi*phi -
		44.54*lambda*lambda*lambda
	northing = 1_200_147.07 +
		308_807.95*phi +
		3_745.25*lambda*lambda +
		76.63*phi*phi -
		194.56*lambda*lambda*phi +
		119.79*phi*phi*phi
	return easting, northing, nil
}
