package nulling

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/wiless/vlib"
)

// BoresightClass simulates direction finding inaccuracy toward each
// interference direction as an offset in sweep grid steps.
type BoresightClass int

const (
	BoresightNone BoresightClass = iota
	BoresightSmall
	BoresightMedium
	BoresightLarge
)

var boresightNames = [...]string{"none", "small", "medium", "large"}

var boresightOffsets = [...][]int{
	nil,
	{-3, -2, 2, 3},
	{-5, -4, 4, 5},
	{-10, -9, -8, 8, 9, 10},
}

func (b BoresightClass) String() string {
	if int(b) < 0 || int(b) >= len(boresightNames) {
		return fmt.Sprintf("BoresightClass(%d)", int(b))
	}
	return boresightNames[b]
}

// ParseBoresightClass accepts none/small/medium/large and the legacy
// no_err/small_err/med_err/large_err keys. Empty means none.
func ParseBoresightClass(s string) (BoresightClass, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "no_err":
		return BoresightNone, nil
	case "small", "small_err":
		return BoresightSmall, nil
	case "medium", "med_err":
		return BoresightMedium, nil
	case "large", "large_err":
		return BoresightLarge, nil
	}
	return BoresightNone, fmt.Errorf("nulling: unknown boresight error class %q", s)
}

// Offsets is the set of grid offsets this class draws from.
func (b BoresightClass) Offsets() []int {
	if int(b) < 0 || int(b) >= len(boresightOffsets) {
		return nil
	}
	return boresightOffsets[b]
}

// Draw picks one offset per interference direction. BoresightNone draws
// nothing from rng and returns zeros.
func (b BoresightClass) Draw(rng *rand.Rand, count int) vlib.VectorI {
	result := vlib.NewVectorI(count)
	set := b.Offsets()
	if len(set) == 0 {
		return result
	}
	for i := range result {
		result[i] = set[rng.IntN(len(set))]
	}
	return result
}
