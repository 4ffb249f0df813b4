package nulling_test

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/wiless/arraysim/antenna"
	"github.com/wiless/arraysim/nulling"
)

func normals(rng *rand.Rand, n int, sigma float64) []float64 {
	d := distuv.Normal{Mu: 0, Sigma: sigma, Src: rng}
	result := make([]float64, n)
	for i := range result {
		result[i] = d.Rand()
	}
	return result
}

func TestOddArrayNullsInterference(t *testing.T) {
	g, err := antenna.NewGeometry(15, 0.6, 4000)
	require.NoError(t, err)
	scan := g.AngleIndex(0)
	inter := g.AngleIndices([]float64{30})

	base, err := antenna.NewPattern(g, 1, nil, nil)
	require.NoError(t, err)
	baseline, err := base.ComputePattern(scan)
	require.NoError(t, err)

	c, err := nulling.New(g, nulling.Params{Interference: inter, Iterations: 5})
	require.NoError(t, err)
	adapted, err := c.ComputePattern(scan)
	require.NoError(t, err)

	i := inter[0]
	assert.Less(t, adapted[i], baseline[i])
	db := antenna.ToDb(adapted)
	baseDb := antenna.ToDb(baseline)
	assert.Less(t, db[i], baseDb[i]-20)
	assert.InDelta(t, 1.0, floats.Max(adapted), 1e-12)
}

func TestZeroIterationsIsBaseline(t *testing.T) {
	g, err := antenna.NewGeometry(10, 0.5, 1000)
	require.NoError(t, err)
	rng := rand.New(rand.NewPCG(7, 7))
	ampErr := normals(rng, 10, 0.1)
	phErr := normals(rng, 10, 0.05)

	base, err := antenna.NewPattern(g, 0.5, ampErr, phErr)
	require.NoError(t, err)
	want, err := base.ComputePattern(g.AngleIndex(10))
	require.NoError(t, err)

	c, err := nulling.New(g, nulling.Params{
		Taper:        base.Amp,
		AmpErr:       ampErr,
		PhaseErr:     phErr,
		Interference: g.AngleIndices([]float64{-40}),
		Iterations:   0,
	})
	require.NoError(t, err)
	got, err := c.ComputePattern(g.AngleIndex(10))
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64(want), []float64(got), 1e-12)
}

func TestNullingDeepensWithIterations(t *testing.T) {
	g, err := antenna.NewGeometry(16, 0.5, 2000)
	require.NoError(t, err)
	scan := g.AngleIndex(5)
	inter := g.AngleIndices([]float64{-35})

	var before, after float64
	for seed := uint64(1); seed <= 8; seed++ {
		rng := rand.New(rand.NewPCG(seed, 99))
		p := nulling.Params{
			AmpErr:        normals(rng, 16, 0.05),
			PhaseErr:      normals(rng, 16, antenna.Radian(3)),
			ResidualAmp:   normals(rng, 16, 0.01),
			ResidualPhase: normals(rng, 16, antenna.Radian(0.5)),
			Interference:  inter,
		}
		p.Iterations = 0
		c0, err := nulling.New(g, p)
		require.NoError(t, err)
		d0, err := c0.ComputePattern(scan)
		require.NoError(t, err)

		p.Iterations = 10
		c1, err := nulling.New(g, p)
		require.NoError(t, err)
		d1, err := c1.ComputePattern(scan)
		require.NoError(t, err)

		before += d0[inter[0]]
		after += d1[inter[0]]
	}
	assert.Less(t, after, before)
}

func TestSubArrayTradesDepth(t *testing.T) {
	g, err := antenna.NewGeometry(16, 0.5, 2000)
	require.NoError(t, err)
	scan := g.AngleIndex(0)
	inter := g.AngleIndices([]float64{25})

	base, err := antenna.NewPattern(g, 1, nil, nil)
	require.NoError(t, err)
	baseline, err := base.ComputePattern(scan)
	require.NoError(t, err)

	depth := map[int][]float64{}
	for _, sub := range []int{1, 2, 4} {
		c, err := nulling.New(g, nulling.Params{Interference: inter, Iterations: 5, SubArrays: sub})
		require.NoError(t, err)
		d, err := c.ComputePattern(scan)
		require.NoError(t, err)
		depth[sub] = d
	}
	for _, i := range inter {
		for _, sub := range []int{2, 4} {
			assert.Less(t, depth[sub][i], baseline[i], "subarrays=%d", sub)
		}
		assert.LessOrEqual(t, depth[1][i], depth[4][i])
	}
}

func TestSubArrayPassesJoin(t *testing.T) {
	g, err := antenna.NewGeometry(16, 0.5, 1000)
	require.NoError(t, err)
	inter := g.AngleIndices([]float64{25, -40})
	scan := g.AngleIndex(0)

	var got [3][]float64
	for k := range got {
		c, err := nulling.New(g, nulling.Params{Interference: inter, Iterations: 6, SubArrays: 4})
		require.NoError(t, err)
		got[k], err = c.ComputePattern(scan)
		require.NoError(t, err)
	}
	assert.Equal(t, got[0], got[1])
	assert.Equal(t, got[0], got[2])
}

func TestSingleSubArrayMatchesPlain(t *testing.T) {
	g, err := antenna.NewGeometry(12, 0.6, 1500)
	require.NoError(t, err)
	inter := g.AngleIndices([]float64{20, -10})
	scan := g.AngleIndex(-5)

	var got [2][]float64
	for k, sub := range []int{0, 1} {
		c, err := nulling.New(g, nulling.Params{Interference: inter, Iterations: 3, SubArrays: sub})
		require.NoError(t, err)
		got[k], err = c.ComputePattern(scan)
		require.NoError(t, err)
	}
	assert.Equal(t, got[0], got[1])
}

func TestWeightsSumToOne(t *testing.T) {
	g, err := antenna.NewGeometry(9, 0.5, 100)
	require.NoError(t, err)
	rng := rand.New(rand.NewPCG(3, 3))
	c, err := nulling.New(g, nulling.Params{
		Taper:        antenna.Taper(g.Index, 0.3),
		AmpErr:       normals(rng, 9, 0.1),
		ResidualAmp:  normals(rng, 9, 0.01),
		Interference: g.AngleIndices([]float64{10}),
	})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, floats.Sum(c.Weights()), 1e-12)
}

func TestNewRejects(t *testing.T) {
	g, err := antenna.NewGeometry(10, 0.5, 200)
	require.NoError(t, err)

	for _, tc := range []struct {
		name string
		p    nulling.Params
		want error
	}{
		{"no interference", nulling.Params{Iterations: 1}, nulling.ErrNoInterference},
		{"bad partition", nulling.Params{Interference: []int{50}, SubArrays: 3}, nulling.ErrPartition},
		{"shift below grid", nulling.Params{Interference: []int{1}, Boresight: []int{-3}}, antenna.ErrIndexRange},
		{"shift above grid", nulling.Params{Interference: []int{197}, Boresight: []int{5}}, antenna.ErrIndexRange},
		{"short error vector", nulling.Params{Interference: []int{50}, AmpErr: []float64{1}}, antenna.ErrLength},
		{"zero weights", nulling.Params{Interference: []int{50}, Taper: make([]float64, 10)}, nulling.ErrWeights},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := nulling.New(g, tc.p)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestBoresightClasses(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want nulling.BoresightClass
	}{
		{"", nulling.BoresightNone},
		{"no_err", nulling.BoresightNone},
		{"small", nulling.BoresightSmall},
		{"med_err", nulling.BoresightMedium},
		{"Large", nulling.BoresightLarge},
	} {
		got, err := nulling.ParseBoresightClass(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got)
	}
	_, err := nulling.ParseBoresightClass("huge")
	assert.Error(t, err)

	rng := rand.New(rand.NewPCG(42, 42))
	for _, class := range []nulling.BoresightClass{nulling.BoresightSmall, nulling.BoresightMedium, nulling.BoresightLarge} {
		t.Run(class.String(), func(t *testing.T) {
			offsets := class.Draw(rng, 50)
			require.Len(t, offsets, 50)
			for _, o := range offsets {
				assert.Contains(t, class.Offsets(), o)
				assert.NotZero(t, o)
			}
		})
	}
	assert.Equal(t, []int{0, 0, 0}, []int(nulling.BoresightNone.Draw(rng, 3)))
	assert.Equal(t, "BoresightClass(9)", fmt.Sprint(nulling.BoresightClass(9)))
}
