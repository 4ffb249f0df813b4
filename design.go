// Package arraysim models the far field diagram of a linear phased array and
// its interference cancelling variants: the controlled connections canceller
// (whole array or partitioned into subarrays) and the covariance based
// adaptive beamformer.
package arraysim

import (
	"fmt"
	"math/rand/v2"

	log "github.com/sirupsen/logrus"
	"github.com/wiless/vlib"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/wiless/arraysim/antenna"
	"github.com/wiless/arraysim/beamformer"
	"github.com/wiless/arraysim/nulling"
)

// PatternComputer is implemented by every model kind.
type PatternComputer interface {
	ComputePattern(scanIndex int) (vlib.VectorF, error)
}

// NewRand returns the generator threaded through one computation.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
}

// Errors are the random imperfections of one array instance. Phases are in
// radians.
type Errors struct {
	Amp           vlib.VectorF `json:"amp"`
	Phase         vlib.VectorF `json:"phase"`
	ResidualAmp   vlib.VectorF `json:"residual_amp,omitempty"`
	ResidualPhase vlib.VectorF `json:"residual_phase,omitempty"`

	BoresightClass nulling.BoresightClass `json:"-"`
	Boresight      vlib.VectorI           `json:"boresight,omitempty"`
	BoresightDeg   vlib.VectorF           `json:"boresight_deg,omitempty"`
}

// GenerateErrors draws the element errors for cfg from rng: amplitude, then
// phase, and for the nulling kinds residual amplitude, residual phase and
// one boresight offset per interference direction.
func GenerateErrors(rng *rand.Rand, cfg Config, interference int) (Errors, error) {
	n := cfg.Elements
	e := Errors{
		Amp:   gaussian(rng, cfg.AmpSigma, n),
		Phase: gaussian(rng, antenna.Radian(cfg.PhaseSigmaDeg), n),
	}
	if cfg.Kind != KindControlledConnections && cfg.Kind != KindSubArray {
		return e, nil
	}
	e.ResidualAmp = gaussian(rng, cfg.ResidualAmpSigma, n)
	e.ResidualPhase = gaussian(rng, antenna.Radian(cfg.ResidualPhaseSigmaDeg), n)

	class, err := nulling.ParseBoresightClass(cfg.Boresight)
	if err != nil {
		return e, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	e.BoresightClass = class
	e.Boresight = class.Draw(rng, interference)
	return e, nil
}

func gaussian(rng *rand.Rand, sigma float64, n int) vlib.VectorF {
	result := vlib.NewVectorF(n)
	if sigma == 0 {
		return result
	}
	d := distuv.Normal{Mu: 0, Sigma: sigma, Src: rng}
	for i := range result {
		result[i] = d.Rand()
	}
	return result
}

// Result is everything one design hands to presentation.
type Result struct {
	Kind   Kind   `json:"kind"`
	Config Config `json:"config"`

	ThetaDeg          vlib.VectorF `json:"theta_deg"`
	Diagram           vlib.VectorF `json:"diagram"`
	DiagramDb         vlib.VectorF `json:"diagram_db"`
	Baseline          vlib.VectorF `json:"baseline,omitempty"`
	BaselineDb        vlib.VectorF `json:"baseline_db,omitempty"`
	ScanIndex         int          `json:"scan_index"`
	InterferenceIndex vlib.VectorI `json:"interference_index,omitempty"`

	Errors       Errors        `json:"errors"`
	Metrics      Metrics       `json:"metrics"`
	Cancellation *Cancellation `json:"cancellation,omitempty"`
	Context      []ContextItem `json:"context"`
	Clutter      *Diagnostics  `json:"clutter,omitempty"`
}

// Diagnostics exposes the synthetic clutter behind an adaptive filtering
// design.
type Diagnostics struct {
	Phase     vlib.VectorF       `json:"phase"`
	Waveforms []string           `json:"waveforms"`
	Bursts    []beamformer.Burst `json:"bursts"`
	Traces    []vlib.VectorC     `json:"-"`
	Samples   *mat.CDense        `json:"-"` // S x N received samples
	Weights   vlib.VectorC       `json:"-"`
	Condition float64            `json:"condition"`
}

// Design validates cfg and computes the diagram of the selected kind, the
// baseline diagram with the same errors, and the derived metrics.
func Design(cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	g, err := antenna.NewGeometry(cfg.Elements, cfg.Spacing, cfg.Resolution)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	rng := NewRand(cfg.Seed)

	res := &Result{
		Kind:      cfg.Kind,
		Config:    cfg,
		ThetaDeg:  g.ThetaDeg,
		ScanIndex: g.AngleIndex(cfg.ScanDeg),
	}
	if cfg.Kind.Adaptive() {
		res.InterferenceIndex = g.AngleIndices(cfg.InterferenceDeg)
	}
	res.Errors, err = GenerateErrors(rng, cfg, len(res.InterferenceIndex))
	if err != nil {
		return nil, err
	}
	if res.Errors.BoresightClass != nulling.BoresightNone {
		step := g.Step()
		res.Errors.BoresightDeg = vlib.NewVectorF(len(res.Errors.Boresight))
		for i, off := range res.Errors.Boresight {
			res.Errors.BoresightDeg[i] = float64(off) * step
		}
	}

	baseline, err := antenna.NewPattern(g, cfg.Taper, res.Errors.Amp, res.Errors.Phase)
	if err != nil {
		return nil, err
	}
	model, err := newModel(g, cfg, baseline, res, rng)
	if err != nil {
		return nil, numerical(err)
	}
	log.WithFields(log.Fields{"kind": cfg.Kind, "n": cfg.Elements, "scan": cfg.ScanDeg}).Debug("computing diagram")

	res.Diagram, err = model.ComputePattern(res.ScanIndex)
	if err != nil {
		return nil, numerical(err)
	}
	if bf, ok := model.(*beamformer.Beamformer); ok {
		res.Clutter = diagnostics(bf)
	}
	res.DiagramDb = antenna.ToDb(res.Diagram)

	if cfg.Kind.Adaptive() {
		res.Baseline, err = baseline.ComputePattern(res.ScanIndex)
		if err != nil {
			return nil, numerical(err)
		}
		res.BaselineDb = antenna.ToDb(res.Baseline)
	}

	res.Metrics = computeMetrics(res)
	if cfg.Kind.Adaptive() {
		res.Cancellation = cancellation(res)
	}
	res.Context = summary(res)
	return res, nil
}

// newModel picks the pattern computer for cfg.Kind. The plain kind is the
// baseline itself.
func newModel(g *antenna.Geometry, cfg Config, baseline *antenna.Pattern, res *Result, rng *rand.Rand) (PatternComputer, error) {
	e := res.Errors
	switch cfg.Kind {
	case KindControlledConnections, KindSubArray:
		sub := 1
		if cfg.Kind == KindSubArray {
			sub = cfg.SubArrays
		}
		c, err := nulling.New(g, nulling.Params{
			Taper:         baseline.Amp,
			AmpErr:        e.Amp,
			PhaseErr:      e.Phase,
			ResidualAmp:   e.ResidualAmp,
			ResidualPhase: e.ResidualPhase,
			Interference:  res.InterferenceIndex,
			Boresight:     e.Boresight,
			Iterations:    cfg.Iterations,
			SubArrays:     sub,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	case KindAdaptiveFiltering:
		b, err := beamformer.New(g, beamformer.Params{
			Samples:      cfg.Samples,
			SNRDb:        cfg.SNRDb,
			Ratio:        cfg.ClutterRatio,
			Interference: res.InterferenceIndex,
			AmpErr:       e.Amp,
			PhaseErr:     e.Phase,
		}, rng)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
	return baseline, nil
}

func diagnostics(b *beamformer.Beamformer) *Diagnostics {
	d := &Diagnostics{
		Phase:     b.Clutter.Phase,
		Waveforms: make([]string, len(b.Clutter.Waveforms)),
		Traces:    make([]vlib.VectorC, len(b.Clutter.Waveforms)),
		Bursts:    b.Clutter.Bursts,
		Samples:   b.Clutter.Samples,
		Weights:   b.Weights,
		Condition: b.Cond,
	}
	for i, w := range b.Clutter.Waveforms {
		d.Waveforms[i] = w.String()
		d.Traces[i] = b.Clutter.Trace(i)
	}
	return d
}

func numerical(err error) error {
	if IsNumerical(err) {
		return fmt.Errorf("%w: %w", ErrNumerical, err)
	}
	return err
}
