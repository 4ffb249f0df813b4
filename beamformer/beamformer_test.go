package beamformer_test

import (
	"math"
	"math/cmplx"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/wiless/arraysim/antenna"
	"github.com/wiless/arraysim/beamformer"
)

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

func TestSolveComplex(t *testing.T) {
	a := mat.NewCDense(2, 2, []complex128{2, 1i, -1i, 3})
	want := []complex128{1 - 2i, 0.5 + 1i}
	rhs := []complex128{
		2*want[0] + 1i*want[1],
		-1i*want[0] + 3*want[1],
	}
	got, cond, err := beamformer.SolveComplex(a, rhs)
	require.NoError(t, err)
	assert.Greater(t, cond, 0.0)
	for i := range want {
		assert.InDelta(t, 0.0, cmplx.Abs(got[i]-want[i]), 1e-12)
	}

	_, _, err = beamformer.SolveComplex(mat.NewCDense(2, 2, []complex128{1, 2, 2, 4}), rhs)
	assert.ErrorIs(t, err, beamformer.ErrSingular)
}

func TestCovarianceHermitian(t *testing.T) {
	g, err := antenna.NewGeometry(6, 0.5, 500)
	require.NoError(t, err)
	b, err := beamformer.New(g, beamformer.Params{
		Samples:      50,
		SNRDb:        10,
		Interference: g.AngleIndices([]float64{-20, 35}),
	}, newRand(1))
	require.NoError(t, err)

	r := b.Covariance()
	n, _ := r.Dims()
	require.Equal(t, 6, n)
	for i := 0; i < n; i++ {
		assert.InDelta(t, 0.0, imag(r.At(i, i)), 1e-9)
		assert.Greater(t, real(r.At(i, i)), 0.0)
		for j := 0; j < n; j++ {
			assert.InDelta(t, 0.0, cmplx.Abs(r.At(i, j)-cmplx.Conj(r.At(j, i))), 1e-9)
		}
	}
}

func TestBeamformerDeterministic(t *testing.T) {
	g, err := antenna.NewGeometry(8, 0.6, 1000)
	require.NoError(t, err)
	p := beamformer.Params{
		Samples:      120,
		SNRDb:        20,
		Interference: g.AngleIndices([]float64{-30, 10, 60}),
		AmpErr:       []float64{0.01, -0.02, 0, 0.03, 0, 0, -0.01, 0.02},
		PhaseErr:     []float64{0.01, 0, 0.02, -0.01, 0, 0.03, 0, 0},
	}
	scan := g.AngleIndex(0)

	run := func() (*beamformer.Beamformer, []float64) {
		b, err := beamformer.New(g, p, newRand(42))
		require.NoError(t, err)
		d, err := b.ComputePattern(scan)
		require.NoError(t, err)
		return b, d
	}
	b1, d1 := run()
	b2, d2 := run()
	assert.True(t, mat.CEqual(b1.Clutter.Samples, b2.Clutter.Samples))
	assert.Equal(t, b1.Clutter.Waveforms, b2.Clutter.Waveforms)
	assert.Equal(t, b1.Weights, b2.Weights)
	assert.Equal(t, d1, d2)

	b3, err := beamformer.New(g, p, newRand(43))
	require.NoError(t, err)
	assert.False(t, mat.CEqual(b1.Clutter.Samples, b3.Clutter.Samples))
}

func TestBeamformerSuppressesInterference(t *testing.T) {
	g, err := antenna.NewGeometry(10, 0.5, 2000)
	require.NoError(t, err)
	inter := g.AngleIndices([]float64{40})
	scan := g.AngleIndex(0)

	for seed := uint64(1); seed <= 5; seed++ {
		b, err := beamformer.New(g, beamformer.Params{
			Samples:      200,
			SNRDb:        40,
			Interference: inter,
		}, newRand(seed))
		require.NoError(t, err)
		d, err := b.ComputePattern(scan)
		require.NoError(t, err)
		db := antenna.ToDb(d)
		assert.Less(t, db[inter[0]], -25.0, "seed %d waveform %v", seed, b.Clutter.Waveforms[0])
		assert.Greater(t, db[scan], -3.0)
	}
}

func TestBeamformerRankDeficient(t *testing.T) {
	g, err := antenna.NewGeometry(12, 0.5, 500)
	require.NoError(t, err)
	b, err := beamformer.New(g, beamformer.Params{
		Samples:      3,
		SNRDb:        20,
		Interference: g.AngleIndices([]float64{15}),
	}, newRand(5))
	require.NoError(t, err)
	_, err = b.ComputePattern(g.AngleIndex(0))
	assert.ErrorIs(t, err, beamformer.ErrSingular)
	assert.Nil(t, b.Weights)
}

func TestBeamformerInterferenceAtScan(t *testing.T) {
	g, err := antenna.NewGeometry(8, 0.5, 1000)
	require.NoError(t, err)
	scan := g.AngleIndex(20)
	b, err := beamformer.New(g, beamformer.Params{
		Samples:      100,
		SNRDb:        0,
		Interference: []int{scan},
	}, newRand(11))
	require.NoError(t, err)

	d, err := b.ComputePattern(scan)
	if err != nil {
		assert.ErrorIs(t, err, beamformer.ErrSingular)
		return
	}
	for _, v := range d {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
		assert.True(t, v >= 0 && v <= 1+1e-12)
	}
}

func TestPowerSplit(t *testing.T) {
	p := beamformer.Params{SNRDb: 20, Interference: []int{1, 2}}
	even, err := p.Power()
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{5, 5}, []float64(even), 1e-12)

	p.Ratio = []float64{0.75, 0.25}
	split, err := p.Power()
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{7.5, 2.5}, []float64(split), 1e-12)

	p.Ratio = []float64{1}
	_, err = p.Power()
	assert.Error(t, err)
}

func TestPulseIsBurst(t *testing.T) {
	g, err := antenna.NewGeometry(6, 0.5, 300)
	require.NoError(t, err)
	inter := g.AngleIndices([]float64{-60, -40, -20, 20, 40, 60})

	pulses, asymmetric := 0, 0
	for seed := uint64(1); seed <= 50; seed++ {
		b, err := beamformer.New(g, beamformer.Params{Samples: 400, SNRDb: 20, Interference: inter}, newRand(seed))
		require.NoError(t, err)
		require.Len(t, b.Clutter.Bursts, len(inter))
		for i, w := range b.Clutter.Waveforms {
			burst := b.Clutter.Bursts[i]
			if w != beamformer.Pulse {
				assert.Equal(t, beamformer.Burst{}, burst)
				continue
			}
			pulses++
			if burst.Lo != burst.Hi {
				asymmetric++
			}
			require.GreaterOrEqual(t, burst.Lo, 1.0)
			require.LessOrEqual(t, burst.Lo, 14.0)
			require.GreaterOrEqual(t, burst.Hi, 1.0)
			require.LessOrEqual(t, burst.Hi, 14.0)

			trace := b.Clutter.Trace(i)
			require.Len(t, trace, 400)
			inside := 0
			for s, ph := range b.Clutter.Phase {
				if ph > -burst.Lo && ph < burst.Hi {
					inside++
					assert.NotEqual(t, complex128(0), trace[s], "seed %d phase %.3f", seed, ph)
				} else {
					assert.Equal(t, complex128(0), trace[s], "seed %d phase %.3f", seed, ph)
				}
			}
			assert.Positive(t, inside)
		}
	}
	require.Positive(t, pulses, "no pulse source drawn")
	assert.Positive(t, asymmetric, "burst edges always equal")
}

func TestNewRejects(t *testing.T) {
	g, err := antenna.NewGeometry(6, 0.5, 300)
	require.NoError(t, err)
	_, err = beamformer.New(g, beamformer.Params{Samples: 10}, newRand(1))
	assert.Error(t, err)
	_, err = beamformer.New(g, beamformer.Params{Samples: 1, Interference: []int{3}}, newRand(1))
	assert.Error(t, err)
	_, err = beamformer.New(g, beamformer.Params{Samples: 10, Interference: []int{300}}, newRand(1))
	assert.ErrorIs(t, err, antenna.ErrIndexRange)
	_, err = beamformer.New(g, beamformer.Params{Samples: 10, Interference: []int{3}, AmpErr: []float64{1}}, newRand(1))
	assert.ErrorIs(t, err, antenna.ErrLength)
}

func TestWaveformString(t *testing.T) {
	assert.Equal(t, "harmonic", beamformer.Harmonic.String())
	assert.Equal(t, "pulse", beamformer.Pulse.String())
	assert.Equal(t, "Waveform(7)", beamformer.Waveform(7).String())
}
