// Package nulling implements the "controlled connections" sidelobe canceller:
// an iterative correction of the element diagram that drives the array
// response toward known interference bearings to zero. Partitioning the
// array into subarrays is a parameter of the same engine.
package nulling

import (
	"errors"
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"
	"github.com/wiless/vlib"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/wiless/arraysim/antenna"
)

var (
	// ErrPartition is returned when the subarray count does not split the
	// array into equal blocks.
	ErrPartition = errors.New("nulling: subarray count must divide the element count")

	// ErrNoInterference is returned when no interference direction is given.
	ErrNoInterference = errors.New("nulling: no interference direction")

	// ErrWeights is returned when the element power shares cannot be
	// normalized.
	ErrWeights = errors.New("nulling: element weights sum to zero")

	// ErrIndexRange is reported when a boresight shift leaves the sweep.
	ErrIndexRange = antenna.ErrIndexRange
)

// Params configures a Canceller. Error vectors may be nil (perfect array).
type Params struct {
	Taper         vlib.VectorF
	AmpErr        vlib.VectorF
	PhaseErr      vlib.VectorF
	ResidualAmp   vlib.VectorF
	ResidualPhase vlib.VectorF

	Interference vlib.VectorI // quantized sweep positions
	Boresight    vlib.VectorI // grid offset per interference direction, nil for none
	Iterations   int
	SubArrays    int // 0 or 1 for the whole array
}

// Canceller owns the element diagram and rewrites it in place on every
// iteration; iteration t+1 reads the output of iteration t.
type Canceller struct {
	geo *antenna.Geometry

	Iterations   int
	SubArrays    int
	Interference vlib.VectorI
	Boresight    vlib.VectorI

	weights vlib.VectorF // normalized power share per element
	phase   vlib.VectorF // phase error plus residual phase per element
	diagram *mat.CDense
	done    bool
}

// New validates p against g and synthesizes the unfocused element diagram.
func New(g *antenna.Geometry, p Params) (*Canceller, error) {
	if len(p.Interference) == 0 {
		return nil, ErrNoInterference
	}
	if p.Iterations < 0 {
		return nil, fmt.Errorf("nulling: negative iteration count %d", p.Iterations)
	}
	sub := p.SubArrays
	if sub == 0 {
		sub = 1
	}
	if sub < 0 || g.N%sub != 0 {
		return nil, fmt.Errorf("%w: %d subarrays for %d elements", ErrPartition, p.SubArrays, g.N)
	}

	taper := p.Taper
	if taper == nil {
		taper = antenna.Taper(g.Index, 1)
	}
	vectors := []*vlib.VectorF{&taper, &p.AmpErr, &p.PhaseErr, &p.ResidualAmp, &p.ResidualPhase}
	names := []string{"taper", "amplitude error", "phase error", "residual amplitude", "residual phase"}
	for i, v := range vectors {
		checked, err := g.PerElement(*v, names[i])
		if err != nil {
			return nil, err
		}
		*v = checked
	}

	bore := p.Boresight
	if bore == nil {
		bore = vlib.NewVectorI(len(p.Interference))
	}
	if len(bore) != len(p.Interference) {
		return nil, fmt.Errorf("nulling: %d boresight offsets for %d interference directions", len(bore), len(p.Interference))
	}
	for r, ind := range p.Interference {
		if err := g.CheckIndex(ind + bore[r]); err != nil {
			return nil, fmt.Errorf("interference %d shifted by %d: %w", ind, bore[r], err)
		}
	}

	c := &Canceller{
		geo:          g,
		Iterations:   p.Iterations,
		SubArrays:    sub,
		Interference: p.Interference,
		Boresight:    bore,
		weights:      vlib.NewVectorF(g.N),
		phase:        vlib.NewVectorF(g.N),
	}

	amp := vlib.NewVectorF(g.N)
	var total float64
	for n := 0; n < g.N; n++ {
		amp[n] = taper[n] + p.AmpErr[n]
		c.weights[n] = amp[n] + p.ResidualAmp[n]
		total += c.weights[n]
		c.phase[n] = p.PhaseErr[n] + p.ResidualPhase[n]
	}
	if total == 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return nil, ErrWeights
	}
	for n := range c.weights {
		c.weights[n] /= total
	}
	c.diagram = g.ElementDiagram(amp, p.PhaseErr)
	return c, nil
}

// Weights returns the normalized power share of each element; it sums to 1.
func (c *Canceller) Weights() vlib.VectorF {
	return append(vlib.VectorF(nil), c.weights...)
}

// Diagram returns the element diagram, running the iterations first.
func (c *Canceller) Diagram() *mat.CDense {
	c.Run()
	return c.diagram
}

// ComputePattern runs the canceller and focuses the adapted element diagram
// at scanIndex.
func (c *Canceller) ComputePattern(scanIndex int) (vlib.VectorF, error) {
	c.Run()
	return c.geo.Focus(c.diagram, scanIndex)
}

// Run performs all iterations once; later calls are no-ops.
func (c *Canceller) Run() {
	if c.done {
		return
	}
	c.done = true

	g := c.geo
	first := make([]vlib.VectorC, len(c.Interference))
	second := make([]vlib.VectorC, len(c.Interference))
	negPhase := vlib.NewVectorF(g.N)
	for n, ph := range c.phase {
		negPhase[n] = -ph
	}
	for r, ind := range c.Interference {
		angle := g.Theta[ind+c.Boresight[r]]
		first[r] = g.Steer(angle, antenna.Focus, negPhase)
		second[r] = g.Steer(angle, antenna.Forward, c.phase)
	}

	block := g.N / c.SubArrays
	raw := c.diagram.RawCMatrix()
	for it := 0; it < c.Iterations; it++ {
		var eg errgroup.Group
		for lo := 0; lo < g.N; lo += block {
			lo, hi := lo, lo+block
			eg.Go(func() error {
				c.cancel(raw.Data, raw.Stride, raw.Cols, lo, hi, first, second)
				return nil
			})
		}
		// cancel never fails; Wait only joins the blocks before the next pass
		_ = eg.Wait()
		log.WithFields(log.Fields{"iteration": it + 1, "of": c.Iterations, "subarrays": c.SubArrays}).Debug("nulling pass")
	}
}

// cancel applies one iteration to rows [lo,hi). Blocks touch disjoint rows
// of data, so they may run concurrently.
func (c *Canceller) cancel(data []complex128, stride, cols, lo, hi int, first, second []vlib.VectorC) {
	corr := make([]complex128, (hi-lo)*cols)
	proj := make([]complex128, cols)
	for r := range c.Interference {
		c1, c2 := first[r], second[r]
		for k := range proj {
			proj[k] = 0
		}
		for n := lo; n < hi; n++ {
			s := c1[n]
			row := data[n*stride : n*stride+cols]
			for k, v := range row {
				proj[k] += v * s
			}
		}
		for n := lo; n < hi; n++ {
			f := complex(c.weights[n], 0) * c2[n]
			acc := corr[(n-lo)*cols : (n-lo+1)*cols]
			for k, p := range proj {
				acc[k] -= f * p
			}
		}
	}
	for n := lo; n < hi; n++ {
		row := data[n*stride : n*stride+cols]
		acc := corr[(n-lo)*cols : (n-lo+1)*cols]
		for k := range row {
			row[k] += acc[k]
		}
	}
}
