// Package geometry converts between filament mass and length, modelling a
// strand as a cylinder of uniform density.
package geometry

import (
	"math"
)

// Weight returns the mass in grams of lengthMM millimetres of filament with
// the given diameter (mm) and density (g/cm3). The 0.1 factors convert
// millimetres to centimetres so the volume emerges in cm3.
func Weight(lengthMM, diameterMM, density float64) float64 {
	radiusCM := diameterMM * 0.1 / 2
	volume := lengthMM * 0.1 * math.Pi * radiusCM * radiusCM
	return density * volume
}

// Length is the inverse of Weight: millimetres of filament for a mass in
// grams.
func Length(weightG, diameterMM, density float64) float64 {
	radiusCM := diameterMM * 0.1 / 2
	crossSection := math.Pi * radiusCM * radiusCM
	return weightG / (density * crossSection) * 10
}
