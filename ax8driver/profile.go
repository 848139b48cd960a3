package ax8driver

import "math"

// ProfileStats summarises a cutline.
type ProfileStats struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	ArgMin int     `json:"argmin"`
	ArgMax int     `json:"argmax"`
}

// CutlineStats returns min, max and mean of a profile and where the extremes are.
// An empty profile gives NaN values and -1 indices.
func CutlineStats(values []float64) ProfileStats {
	if len(values) == 0 {
		return ProfileStats{Min: math.NaN(), Max: math.NaN(), Mean: math.NaN(), ArgMin: -1, ArgMax: -1}
	}
	s := ProfileStats{Min: values[0], Max: values[0]}
	var acc float64
	for i, v := range values {
		acc += v
		if v < s.Min {
			s.Min = v
			s.ArgMin = i
		}
		if v > s.Max {
			s.Max = v
			s.ArgMax = i
		}
	}
	s.Mean = acc / float64(len(values))
	return s
}
