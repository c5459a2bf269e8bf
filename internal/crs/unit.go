package crs

import "math"

// Unit is a named unit with its conversion factor to the base unit
// (metres for linear units, radians for angular units).
type Unit struct {
	Name   string
	Factor float64
}

// degreeFactor is the WKT conversion factor of one degree to radians.
const degreeFactor = 0.0174532925199433

var (
	Metre         = Unit{Name: "metre", Factor: 1}
	Kilometre     = Unit{Name: "kilometre", Factor: 1000}
	Foot          = Unit{Name: "foot", Factor: 0.3048}
	USSurveyFoot  = Unit{Name: "US survey foot", Factor: 1200.0 / 3937.0}
	Degree        = Unit{Name: "degree", Factor: degreeFactor}
	linearUnits   = []Unit{Metre, Kilometre, Foot, USSurveyFoot}
	projUnitNames = map[string]Unit{
		"m":     Metre,
		"km":    Kilometre,
		"ft":    Foot,
		"us-ft": USSurveyFoot,
	}
)

// canonicalLinearUnit maps a unit to its canonical name when the factor
// matches a known unit, so "Meter", "metre" and "m" all read "metre".
func canonicalLinearUnit(name string, factor float64) Unit {
	for _, u := range linearUnits {
		if closeTo(u.Factor, factor) {
			return u
		}
	}
	if name == "" {
		name = "unknown"
	}
	return Unit{Name: name, Factor: factor}
}

func projUnitKey(u Unit) (string, bool) {
	for k, known := range projUnitNames {
		if closeTo(known.Factor, u.Factor) {
			return k, true
		}
	}
	return "", false
}

func isDegree(u Unit) bool {
	return math.Abs(u.Factor-math.Pi/180) < 1e-10
}
