// Implements the geometry of a linear phased array and its steering phase
package antenna

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/wiless/vlib"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Sign selects the direction of a steering phase.
type Sign float64

const (
	// Focus points the array at a direction (receive focusing).
	Focus Sign = -1
	// Forward reconstructs the forward propagation phase.
	Forward Sign = 1
)

var (
	DefaultResolution         = 10000
	DefaultSpacing    float64 = 0.6
)

// Geometry is a linear array of N elements sampled over a fixed sweep of
// R angles in [-pi/2, pi/2]. It is read-only once built.
type Geometry struct {
	N           int
	DLambda     float64
	PhaseFactor float64      // 2*pi*d/lambda
	Index       vlib.VectorF // centered element positions
	Theta       vlib.VectorF // sweep in radians
	ThetaDeg    vlib.VectorF

	sinTheta vlib.VectorF
}

// NewGeometry builds the element index and the angular sweep.
func NewGeometry(n int, dLambda float64, resolution int) (*Geometry, error) {
	if n < 2 {
		return nil, fmt.Errorf("%w: element count %d, need at least 2", ErrGeometry, n)
	}
	if resolution < 2 {
		return nil, fmt.Errorf("%w: resolution %d, need at least 2", ErrGeometry, resolution)
	}
	if dLambda <= 0 || math.IsNaN(dLambda) || math.IsInf(dLambda, 0) {
		return nil, fmt.Errorf("%w: element spacing %v", ErrGeometry, dLambda)
	}
	g := &Geometry{
		N:           n,
		DLambda:     dLambda,
		PhaseFactor: 2 * math.Pi * dLambda,
		Index:       ElementIndex(n),
		Theta:       Linspace(-math.Pi/2, math.Pi/2, resolution),
	}
	g.ThetaDeg = vlib.NewVectorF(resolution)
	g.sinTheta = vlib.NewVectorF(resolution)
	for i, t := range g.Theta {
		g.ThetaDeg[i] = Degree(t)
		g.sinTheta[i] = math.Sin(t)
	}
	return g, nil
}

// Resolution is the number of sweep angles.
func (g *Geometry) Resolution() int {
	return len(g.Theta)
}

// Step is the signed sweep step in degrees, measured at the top of the grid.
func (g *Geometry) Step() float64 {
	r := len(g.ThetaDeg)
	return g.ThetaDeg[r-2] - g.ThetaDeg[r-1]
}

// CheckIndex reports ErrIndexRange for positions outside the sweep.
func (g *Geometry) CheckIndex(i int) error {
	if i < 0 || i >= len(g.Theta) {
		return fmt.Errorf("%w: index %d not in [0,%d)", ErrIndexRange, i, len(g.Theta))
	}
	return nil
}

// AngleIndex quantizes an angle given in degrees onto the sweep.
func (g *Geometry) AngleIndex(degree float64) int {
	idx, _ := QuantizeOne(Radian(degree), g.Theta)
	return idx
}

// AngleIndices quantizes a set of angles given in degrees.
func (g *Geometry) AngleIndices(degrees []float64) vlib.VectorI {
	result := vlib.NewVectorI(len(degrees))
	for i, d := range degrees {
		result[i] = g.AngleIndex(d)
	}
	return result
}

// Steer returns exp(j*sign*(offset[n] + Index[n]*sin(angle)*PhaseFactor)),
// one entry per element. A nil offset means no additive phase.
func (g *Geometry) Steer(angle float64, sign Sign, offset vlib.VectorF) vlib.VectorC {
	return g.steer(math.Sin(angle), sign, offset)
}

func (g *Geometry) steer(sinAngle float64, sign Sign, offset vlib.VectorF) vlib.VectorC {
	result := vlib.NewVectorC(g.N)
	for n, pos := range g.Index {
		arg := pos * sinAngle * g.PhaseFactor
		if offset != nil {
			arg += offset[n]
		}
		result[n] = cmplx.Exp(complex(0, float64(sign)*arg))
	}
	return result
}

// SteerGrid evaluates Steer over the whole sweep: an N x R matrix whose
// column c is the steering vector toward Theta[c].
func (g *Geometry) SteerGrid(sign Sign, offset vlib.VectorF) *mat.CDense {
	r := len(g.Theta)
	data := make([]complex128, g.N*r)
	for n, pos := range g.Index {
		var add float64
		if offset != nil {
			add = offset[n]
		}
		row := data[n*r : (n+1)*r]
		for c, s := range g.sinTheta {
			row[c] = cmplx.Exp(complex(0, float64(sign)*(add+pos*s*g.PhaseFactor)))
		}
	}
	return mat.NewCDense(g.N, r, data)
}

// ElementIndex returns the centered element positions of an n element array:
// -(n-1)/2 ... (n-1)/2 for even n and -floor(n/2) ... floor(n/2) for odd n.
func ElementIndex(n int) vlib.VectorF {
	if n%2 == 0 {
		half := float64(n-1) / 2
		return Linspace(-half, half, n)
	}
	half := math.Floor(float64(n) / 2)
	return Linspace(-half, half, n)
}

// Linspace returns n evenly spaced values over [lo, hi].
func Linspace(lo, hi float64, n int) vlib.VectorF {
	if n == 1 {
		return vlib.VectorF{lo}
	}
	return vlib.VectorF(floats.Span(make([]float64, n), lo, hi))
}

func Radian(degree float64) float64 {
	return degree * math.Pi / 180.0
}

func Degree(radian float64) float64 {
	return radian * 180.0 / math.Pi
}
