package funnel

import "math"

// zTestEpsilon floors the pooled variance before the square root.
const zTestEpsilon = 1e-9

// TwoProportionPValue returns the two-tailed p-value of a pooled
// two-proportion z-test for conversion rates p1 and p2 observed over n1
// and n2 trials. Empty samples yield 1.0.
func TwoProportionPValue(p1, p2 float64, n1, n2 int) float64 {
	if n1 <= 0 || n2 <= 0 {
		return 1.0
	}

	fn1, fn2 := float64(n1), float64(n2)
	pooled := (p1*fn1 + p2*fn2) / (fn1 + fn2)
	se := math.Sqrt(math.Max(zTestEpsilon, pooled*(1-pooled)*(1/fn1+1/fn2)))

	z := (p1 - p2) / se
	p := 2 * (1 - normalCDF(math.Abs(z)))
	return math.Max(0, math.Min(1, p))
}

func normalCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

// round rounds x to the given number of decimal places.
func round(x float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(x*scale) / scale
}
