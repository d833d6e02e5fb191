package provider

import "strconv"

// Score widens a float32 vendor score to the shortest float64 with the same
// decimal form, so 0.9 encodes as 0.9 rather than 0.8999999761581421.
func Score(v float32) float64 {
	f, err := strconv.ParseFloat(strconv.FormatFloat(float64(v), 'g', -1, 32), 64)
	if err != nil {
		return float64(v)
	}
	return f
}
