package beamformer

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/wiless/vlib"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/wiless/arraysim/antenna"
)

// Waveform is the archetype of one interference source.
type Waveform int

const (
	Harmonic Waveform = iota
	Noise
	Pulse
)

var waveformNames = [...]string{"harmonic", "noise", "pulse"}

func (w Waveform) String() string {
	if int(w) < 0 || int(w) >= len(waveformNames) {
		return fmt.Sprintf("Waveform(%d)", int(w))
	}
	return waveformNames[w]
}

const (
	harmonicSigma = 1.5
	pulseSigma    = 2.0
	maxBorder     = 15
)

// Burst is the phase window (-Lo, Hi) outside which a pulse source is
// silent. It is zero for the other waveforms.
type Burst struct {
	Lo float64 `json:"lo"`
	Hi float64 `json:"hi"`
}

// Clutter is the synthetic received sample matrix together with the traces
// that produced it.
type Clutter struct {
	Phase     vlib.VectorF // time axis, linspace(-10pi, 10pi, S)
	Waveforms []Waveform
	Bursts    []Burst
	Samples   *mat.CDense // S x N observed samples
	Traces    *mat.CDense // S x K mid element trace of each source
}

// Generate synthesizes S samples for every interference index in
// interference. power holds the amplitude of each source. All randomness is
// drawn from rng in a fixed order.
func Generate(g *antenna.Geometry, rng *rand.Rand, samples int, interference vlib.VectorI, power, ampErr, phaseErr vlib.VectorF) (*Clutter, error) {
	k := len(interference)
	if len(power) != k {
		return nil, fmt.Errorf("beamformer: %d powers for %d interference directions", len(power), k)
	}
	for _, ind := range interference {
		if err := g.CheckIndex(ind); err != nil {
			return nil, err
		}
	}
	ampErr, err := g.PerElement(ampErr, "amplitude error")
	if err != nil {
		return nil, err
	}
	phaseErr, err = g.PerElement(phaseErr, "phase error")
	if err != nil {
		return nil, err
	}

	n := g.N
	cl := &Clutter{
		Phase:     antenna.Linspace(-10*math.Pi, 10*math.Pi, samples),
		Waveforms: make([]Waveform, k),
		Bursts:    make([]Burst, k),
		Samples:   mat.NewCDense(samples, n, nil),
		Traces:    mat.NewCDense(samples, k, nil),
	}
	for i := range cl.Waveforms {
		cl.Waveforms[i] = Waveform(rng.IntN(len(waveformNames)))
	}

	sum := cl.Samples.RawCMatrix()
	mid := n / 2
	column := vlib.NewVectorF(samples)
	for i, ind := range interference {
		cl.Bursts[i] = cl.waveform(rng, cl.Waveforms[i], power[i], column)
		steer := g.Steer(g.Theta[ind], antenna.Focus, nil)
		for s, amp := range column {
			a := complex(amp, 0)
			row := sum.Data[s*sum.Stride : s*sum.Stride+n]
			for e := range row {
				row[e] += a * steer[e]
			}
			cl.Traces.Set(s, i, a*steer[mid])
		}
	}

	noise := distuv.Normal{Mu: 0, Sigma: 1 / math.Sqrt2, Src: rng}
	rot := g.Steer(0, antenna.Focus, phaseErr)
	for s := 0; s < samples; s++ {
		row := sum.Data[s*sum.Stride : s*sum.Stride+n]
		for e := range row {
			v := row[e] + complex(noise.Rand(), noise.Rand())
			row[e] = v*rot[e] + complex(ampErr[e], 0)
		}
	}
	return cl, nil
}

// waveform fills column with the real envelope of one source and returns
// the burst window of a pulse.
func (cl *Clutter) waveform(rng *rand.Rand, w Waveform, power float64, column vlib.VectorF) Burst {
	switch w {
	case Noise:
		d := distuv.Normal{Mu: 0, Sigma: power, Src: rng}
		for s := range column {
			column[s] = d.Rand()
		}
	case Harmonic, Pulse:
		sigma := harmonicSigma
		if w == Pulse {
			sigma = pulseSigma
		}
		f := distuv.Normal{Mu: 0, Sigma: sigma, Src: rng}.Rand()
		for s, ph := range cl.Phase {
			column[s] = power * math.Sin(f*ph)
		}
		if w == Pulse {
			b := Burst{
				Lo: float64(1 + rng.IntN(maxBorder-1)),
				Hi: float64(1 + rng.IntN(maxBorder-1)),
			}
			for s, ph := range cl.Phase {
				if ph <= -b.Lo || ph >= b.Hi {
					column[s] = 0
				}
			}
			return b
		}
	}
	return Burst{}
}

// Trace returns the mid element trace of source i.
func (cl *Clutter) Trace(i int) vlib.VectorC {
	s, _ := cl.Traces.Dims()
	result := vlib.NewVectorC(s)
	for r := range result {
		result[r] = cl.Traces.At(r, i)
	}
	return result
}
