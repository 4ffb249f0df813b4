// Package beamformer implements adaptive spatial filtering: it synthesizes
// interference plus noise samples seen by a linear array, estimates their
// second moment matrix and solves for the minimum variance weights that keep
// unit gain toward the scan direction.
package beamformer

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"math/rand/v2"

	log "github.com/sirupsen/logrus"
	"github.com/wiless/vlib"
	"gonum.org/v1/gonum/mat"

	"github.com/wiless/arraysim/antenna"
)

// ErrSingular is returned when the second moment matrix cannot be inverted
// reliably.
var ErrSingular = errors.New("beamformer: singular or ill-conditioned second moment matrix")

// ConditionLimit bounds the condition number accepted for the weight solve.
var ConditionLimit = 1e12

// Params configures the beamformer. Error vectors may be nil.
type Params struct {
	Samples      int
	SNRDb        float64
	Ratio        vlib.VectorF // optional share of power per direction
	Interference vlib.VectorI // quantized sweep positions
	AmpErr       vlib.VectorF
	PhaseErr     vlib.VectorF
}

// Power returns the amplitude injected for each interference direction:
// 10^(SNR/20) split evenly, or scaled by Ratio when given.
func (p Params) Power() (vlib.VectorF, error) {
	k := len(p.Interference)
	total := math.Pow(10, p.SNRDb/20)
	result := vlib.NewVectorF(k)
	if p.Ratio == nil {
		for i := range result {
			result[i] = total / float64(k)
		}
		return result, nil
	}
	if len(p.Ratio) != k {
		return nil, fmt.Errorf("beamformer: clutter ratio has %d entries for %d directions", len(p.Ratio), k)
	}
	for i, r := range p.Ratio {
		result[i] = r * total
	}
	return result, nil
}

// Beamformer holds the synthetic clutter of one computation and the weights
// solved from it.
type Beamformer struct {
	geo *antenna.Geometry
	Params
	Clutter *Clutter
	Weights vlib.VectorC
	Cond    float64
}

// New validates p and synthesizes the clutter from rng.
func New(g *antenna.Geometry, p Params, rng *rand.Rand) (*Beamformer, error) {
	if len(p.Interference) == 0 {
		return nil, errors.New("beamformer: no interference direction")
	}
	if p.Samples < 2 {
		return nil, fmt.Errorf("beamformer: sample count %d, need at least 2", p.Samples)
	}
	power, err := p.Power()
	if err != nil {
		return nil, err
	}
	cl, err := Generate(g, rng, p.Samples, p.Interference, power, p.AmpErr, p.PhaseErr)
	if err != nil {
		return nil, err
	}
	return &Beamformer{geo: g, Params: p, Clutter: cl}, nil
}

// Covariance returns R = 1/2 * X^T * conj(X) for the S x N sample matrix X.
func (b *Beamformer) Covariance() *mat.CDense {
	x := b.Clutter.Samples.RawCMatrix()
	n := x.Cols
	r := mat.NewCDense(n, n, nil)
	raw := r.RawCMatrix()
	for s := 0; s < x.Rows; s++ {
		row := x.Data[s*x.Stride : s*x.Stride+n]
		for i, xi := range row {
			dst := raw.Data[i*raw.Stride : i*raw.Stride+n]
			for j, xj := range row {
				dst[j] += xi * cmplx.Conj(xj)
			}
		}
	}
	for i := range raw.Data {
		raw.Data[i] *= 0.5
	}
	return r
}

// Solve returns the weights W with R*W = S, S the steering vector toward
// Theta[scanIndex].
func (b *Beamformer) Solve(scanIndex int) (vlib.VectorC, error) {
	g := b.geo
	if err := g.CheckIndex(scanIndex); err != nil {
		return nil, err
	}
	steer := g.Steer(g.Theta[scanIndex], antenna.Focus, nil)
	w, cond, err := SolveComplex(b.Covariance(), steer)
	b.Cond = cond
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"cond": cond, "samples": b.Samples}).Debug("beamformer weights solved")
	b.Weights = w
	return w, nil
}

// ComputePattern solves the weights for scanIndex and returns the
// normalized diagram |sum_n W[n]*exp(j*pf*n*sin(theta))|.
func (b *Beamformer) ComputePattern(scanIndex int) (vlib.VectorF, error) {
	w, err := b.Solve(scanIndex)
	if err != nil {
		return nil, err
	}
	grid := b.geo.SteerGrid(antenna.Forward, nil)
	raw := grid.RawCMatrix()
	sum := vlib.NewVectorC(raw.Cols)
	for n := 0; n < raw.Rows; n++ {
		row := raw.Data[n*raw.Stride : n*raw.Stride+raw.Cols]
		for c, v := range row {
			sum[c] += w[n] * v
		}
	}
	return antenna.Normalize(sum)
}

// SolveComplex solves a*x = rhs for complex a through the real system
// [Re -Im; Im Re] [Re x; Im x] = [Re rhs; Im rhs]. It returns the estimated
// condition number and ErrSingular above ConditionLimit.
func SolveComplex(a *mat.CDense, rhs vlib.VectorC) (vlib.VectorC, float64, error) {
	n, c := a.Dims()
	if n != c || len(rhs) != n {
		return nil, 0, fmt.Errorf("beamformer: cannot solve %dx%d system with %d right hand side entries", n, c, len(rhs))
	}
	real2 := mat.NewDense(2*n, 2*n, nil)
	b := mat.NewVecDense(2*n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := a.At(i, j)
			real2.Set(i, j, real(v))
			real2.Set(i, j+n, -imag(v))
			real2.Set(i+n, j, imag(v))
			real2.Set(i+n, j+n, real(v))
		}
		b.SetVec(i, real(rhs[i]))
		b.SetVec(i+n, imag(rhs[i]))
	}

	var lu mat.LU
	lu.Factorize(real2)
	cond := lu.Cond()
	if math.IsNaN(cond) || math.IsInf(cond, 0) || cond > ConditionLimit {
		return nil, cond, fmt.Errorf("%w: condition number %.3g", ErrSingular, cond)
	}
	x := mat.NewVecDense(2*n, nil)
	if err := lu.SolveVecTo(x, false, b); err != nil {
		return nil, cond, fmt.Errorf("%w: %v", ErrSingular, err)
	}
	result := vlib.NewVectorC(n)
	for i := range result {
		result[i] = complex(x.AtVec(i), x.AtVec(i+n))
		if cmplx.IsNaN(result[i]) || cmplx.IsInf(result[i]) {
			return nil, cond, fmt.Errorf("%w: non-finite weight", ErrSingular)
		}
	}
	return result, cond, nil
}
