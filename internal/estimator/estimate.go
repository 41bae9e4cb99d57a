package estimator

import "math"

// Formula constants. They are fixed by the published equation.
const (
	Coefficient           = 175.0
	CreatinineExponent    = -1.154
	AgeExponent           = -0.203
	FemaleFactor          = 0.742
	AfricanAmericanFactor = 1.212
)

// Estimate returns the filtration rate for a subject of the given age and
// serum creatinine. An indicator adjusts the result only when it equals 1.
// Age or creatinine at or below zero yields NaN or +Inf.
func Estimate(age float64, female, africanAmerican int, creatinine float64) float64 {
	base := Coefficient * math.Pow(creatinine, CreatinineExponent) * math.Pow(age, AgeExponent)
	if female == 1 {
		base *= FemaleFactor
	}
	if africanAmerican == 1 {
		base *= AfricanAmericanFactor
	}
	return base
}
