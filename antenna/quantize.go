package antenna

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Quantize returns, for each value, the index of the closest entry of sector.
// Ties resolve to the first minimum.
func Quantize(values, sector []float64) ([]int, error) {
	if len(sector) == 0 {
		return nil, ErrEmptyGrid
	}
	diff := make([]float64, len(sector))
	result := make([]int, len(values))
	for i, v := range values {
		for k, s := range sector {
			diff[k] = math.Abs(s - v)
		}
		result[i] = floats.MinIdx(diff)
	}
	return result, nil
}

// QuantizeOne is Quantize for a single value.
func QuantizeOne(value float64, sector []float64) (int, error) {
	idx, err := Quantize([]float64{value}, sector)
	if err != nil {
		return 0, err
	}
	return idx[0], nil
}
