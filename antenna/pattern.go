package antenna

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/wiless/vlib"
	"gonum.org/v1/gonum/mat"
)

// DbFloor is reported in place of -Inf for exact zeros of a diagram.
var DbFloor = -300.0

// Taper returns a + (1-a)*cos^2(pi*index/(2N)) for every element.
func Taper(index vlib.VectorF, a float64) vlib.VectorF {
	n := float64(len(index))
	result := vlib.NewVectorF(len(index))
	for i, pos := range index {
		c := math.Cos(math.Pi * pos / (2 * n))
		result[i] = a + (1-a)*c*c
	}
	return result
}

// Pattern is the plain (non adaptive) linear array: tapered, with amplitude
// and phase imperfections applied to every element.
type Pattern struct {
	*Geometry
	Amp      vlib.VectorF // deterministic taper
	AmpErr   vlib.VectorF
	PhaseErr vlib.VectorF
	Diagram  *mat.CDense // N x R element diagram
}

// NewPattern synthesizes the per element diagram of g with taper a and the
// supplied error vectors. Nil errors mean a perfect array.
func NewPattern(g *Geometry, a float64, ampErr, phaseErr vlib.VectorF) (*Pattern, error) {
	ampErr, err := perElement(g, ampErr, "amplitude error")
	if err != nil {
		return nil, err
	}
	phaseErr, err = perElement(g, phaseErr, "phase error")
	if err != nil {
		return nil, err
	}
	p := &Pattern{
		Geometry: g,
		Amp:      Taper(g.Index, a),
		AmpErr:   ampErr,
		PhaseErr: phaseErr,
	}
	p.Diagram = g.ElementDiagram(p.Amplitude(), phaseErr)
	return p, nil
}

// Amplitude is taper plus amplitude error.
func (p *Pattern) Amplitude() vlib.VectorF {
	result := vlib.NewVectorF(p.N)
	for i := range result {
		result[i] = p.Amp[i] + p.AmpErr[i]
	}
	return result
}

// ComputePattern focuses the element diagram at the sweep position scanIndex
// and returns the normalized linear diagram.
func (p *Pattern) ComputePattern(scanIndex int) (vlib.VectorF, error) {
	return p.Focus(p.Diagram, scanIndex)
}

// ElementDiagram returns amp ⊙ SteerGrid(Forward, phaseErr).
func (g *Geometry) ElementDiagram(amp, phaseErr vlib.VectorF) *mat.CDense {
	d := g.SteerGrid(Forward, phaseErr)
	raw := d.RawCMatrix()
	for n := 0; n < g.N; n++ {
		a := complex(amp[n], 0)
		row := raw.Data[n*raw.Stride : n*raw.Stride+raw.Cols]
		for c := range row {
			row[c] *= a
		}
	}
	return d
}

// Focus steers an N x R element diagram toward Theta[scanIndex], sums over
// elements and normalizes the magnitude by its peak.
func (g *Geometry) Focus(diagram *mat.CDense, scanIndex int) (vlib.VectorF, error) {
	if err := g.CheckIndex(scanIndex); err != nil {
		return nil, err
	}
	steer := g.Steer(g.Theta[scanIndex], Focus, nil)
	raw := diagram.RawCMatrix()
	sum := vlib.NewVectorC(raw.Cols)
	for n := 0; n < raw.Rows; n++ {
		s := steer[n]
		row := raw.Data[n*raw.Stride : n*raw.Stride+raw.Cols]
		for c, v := range row {
			sum[c] += v * s
		}
	}
	return Normalize(sum)
}

// Normalize returns |v| / max|v|.
func Normalize(v vlib.VectorC) (vlib.VectorF, error) {
	result := vlib.NewVectorF(len(v))
	var peak float64
	for i, c := range v {
		result[i] = cmplx.Abs(c)
		if result[i] > peak {
			peak = result[i]
		}
	}
	if peak == 0 || math.IsNaN(peak) || math.IsInf(peak, 0) {
		return nil, ErrZeroPeak
	}
	for i := range result {
		if math.IsNaN(result[i]) {
			return nil, ErrZeroPeak
		}
		result[i] /= peak
	}
	return result, nil
}

// ToDb converts a linear amplitude diagram to decibels (20*log10).
func ToDb(linear vlib.VectorF) vlib.VectorF {
	result := vlib.NewVectorF(len(linear))
	for i, v := range linear {
		if p := v * v; p > 0 {
			result[i] = math.Max(vlib.Db(p), DbFloor)
			continue
		}
		result[i] = DbFloor
	}
	return result
}

func perElement(g *Geometry, v vlib.VectorF, what string) (vlib.VectorF, error) {
	if v == nil {
		return vlib.NewVectorF(g.N), nil
	}
	if len(v) != g.N {
		return nil, fmt.Errorf("%w: %s has %d entries, array has %d", ErrLength, what, len(v), g.N)
	}
	return v, nil
}

// PerElement checks that v has one entry per element, substituting zeros
// for nil.
func (g *Geometry) PerElement(v vlib.VectorF, what string) (vlib.VectorF, error) {
	return perElement(g, v, what)
}
