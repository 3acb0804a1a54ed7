package optimize

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// quadratic builds a strictly convex objective centered at c.
func quadratic(c []float64) Function {
	return func(x []float64) ([]float64, float64, error) {
		res := make([]float64, len(x))
		var cost float64
		for i := range x {
			res[i] = x[i] - c[i]
			cost += res[i] * res[i]
		}
		return res, cost, nil
	}
}

func TestNelderMeadConvergesOnQuadratic(t *testing.T) {
	center := []float64{1, -2, 3, -4, 5}
	eval := quadratic(center)

	rng := rand.New(rand.NewSource(7))
	xmin := make([]float64, 5)
	dx := make([]float64, 5)
	for i := range xmin {
		xmin[i] = center[i] - 0.5
		dx[i] = 1.0
	}

	result, err := NelderMead(eval, RandSimplex(xmin, dx, rng), 1e-12, 500)
	require.NoError(t, err)

	assert.Less(t, result.Cost, 1e-8)
	assert.LessOrEqual(t, result.Iterations, 500)
	for i := range center {
		assert.InDelta(t, center[i], result.X[i], 1e-3)
	}
}

func TestNelderMeadRejectsDegenerateSimplex(t *testing.T) {
	_, err := NelderMead(quadratic([]float64{0}), [][]float64{{0}}, 1e-8, 10)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestRandSimplexShape(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	xmin := []float64{0, 10}
	dx := []float64{1, 2}

	s := RandSimplex(xmin, dx, rng)
	require.Len(t, s, 3)
	assert.Equal(t, xmin, s[0])
	for _, v := range s[1:] {
		for j := range v {
			assert.GreaterOrEqual(t, v[j], xmin[j])
			assert.LessOrEqual(t, v[j], xmin[j]+dx[j])
		}
	}
}

func TestReflectIntoBounds(t *testing.T) {
	xmin := []float64{-1, 0, 5}
	xmax := []float64{1, 2, 5}

	v := []float64{1.5, -0.5, 17}
	reflect(v, xmin, xmax)
	assert.InDelta(t, 0.5, v[0], 1e-12)
	assert.InDelta(t, 0.5, v[1], 1e-12)
	assert.Equal(t, 5.0, v[2])

	for j := range v {
		assert.GreaterOrEqual(t, v[j], xmin[j])
		assert.LessOrEqual(t, v[j], xmax[j])
	}
}

func TestDiffEvolutionFindsSphereMinimum(t *testing.T) {
	center := []float64{0.5, -1.5, 2.5}
	eval := quadratic(center)

	xmin := []float64{-5, -5, -5}
	xmax := []float64{5, 5, 5}

	result, err := DiffEvolution(eval, xmin, xmax, DEOptions{
		MaxGenerations: 500,
		Epsilon:        1e-9,
		F:              0.8,
		CR:             0.5,
		Strategy:       DEBest2,
		Rng:            rand.New(rand.NewSource(3)),
	})
	require.NoError(t, err)

	assert.Less(t, result.Cost, 1e-4)
	for j := range result.X {
		assert.GreaterOrEqual(t, result.X[j], xmin[j])
		assert.LessOrEqual(t, result.X[j], xmax[j])
		assert.InDelta(t, center[j], result.X[j], 0.05)
	}
}

func TestDiffEvolutionStrategies(t *testing.T) {
	center := []float64{1, 2}
	xmin := []float64{-4, -4}
	xmax := []float64{4, 4}

	strategies := []MutationStrategy{
		DERand1, DERand2, DERandDir1, DERandDir2,
		DEBest1, DEBest2, DERandToBest1, DETargetToBest1, DESACP,
	}
	for _, strategy := range strategies {
		result, err := DiffEvolution(quadratic(center), xmin, xmax, DEOptions{
			MaxGenerations: 300,
			Epsilon:        1e-9,
			F:              0.8,
			CR:             0.5,
			Strategy:       strategy,
			Rng:            rand.New(rand.NewSource(11)),
		})
		require.NoError(t, err, "strategy %d", strategy)
		assert.Less(t, result.Cost, 1e-2, "strategy %d", strategy)
	}
}

func TestDiffEvolutionAdaptiveControls(t *testing.T) {
	center := []float64{-1, 1}
	xmin := []float64{-4, -4}
	xmax := []float64{4, 4}

	controls := []AdaptiveControl{
		AdaptiveNone, AdaptiveDecreasing, AdaptiveRandom,
		AdaptiveJitter, AdaptiveMFDE, AdaptiveSAM,
	}
	for _, control := range controls {
		result, err := DiffEvolution(quadratic(center), xmin, xmax, DEOptions{
			MaxGenerations: 300,
			Epsilon:        1e-9,
			F:              0.8,
			CR:             0.5,
			Strategy:       DERand1,
			Control:        control,
			Rng:            rand.New(rand.NewSource(13)),
		})
		require.NoError(t, err, "control %d", control)
		assert.Less(t, result.Cost, 1e-2, "control %d", control)
	}
}

func TestDiffEvolutionPinnedCoordinate(t *testing.T) {
	center := []float64{2, 0}
	xmin := []float64{2, -4}
	xmax := []float64{2, 4}

	result, err := DiffEvolution(quadratic(center), xmin, xmax, DEOptions{
		PopulationSize: 10,
		MaxGenerations: 200,
		Epsilon:        1e-9,
		F:              0.8,
		CR:             0.5,
		Strategy:       DERand1,
		Rng:            rand.New(rand.NewSource(5)),
	})
	require.NoError(t, err)
	assert.Equal(t, 2.0, result.X[0])
}

func TestDiffEvolutionBadBounds(t *testing.T) {
	_, err := DiffEvolution(quadratic([]float64{0}), []float64{1}, []float64{0}, DEOptions{MaxGenerations: 1})
	assert.ErrorIs(t, err, ErrBadInterval)

	_, err = DiffEvolution(quadratic([]float64{0, 0}), []float64{0}, []float64{1, 2}, DEOptions{MaxGenerations: 1})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestDiffEvolutionInvalidEvaluationsSurvive(t *testing.T) {
	// Half the box is invalid; the search must still find the minimum in
	// the valid half.
	eval := func(x []float64) ([]float64, float64, error) {
		if x[0] < 0 {
			return nil, 0, ErrBadInterval
		}
		d := x[0] - 1
		return []float64{d}, d * d, nil
	}

	result, err := DiffEvolution(eval, []float64{-5}, []float64{5}, DEOptions{
		PopulationSize: 10,
		MaxGenerations: 200,
		Epsilon:        1e-9,
		F:              0.8,
		CR:             0.5,
		Strategy:       DERand1,
		Rng:            rand.New(rand.NewSource(17)),
	})
	require.NoError(t, err)
	assert.False(t, math.IsInf(result.Cost, 0))
	assert.InDelta(t, 1.0, result.X[0], 0.05)
}

func TestLeastSquaresSolvesQuadratic(t *testing.T) {
	center := []float64{3, -1, 2}
	eval := quadratic(center)

	result, err := NonLinearLeastSquares(eval, []float64{0, 0, 0}, nil, NLSOptions{
		Epsilon:       1e-10,
		MaxIterations: 200,
	})
	require.NoError(t, err)

	assert.Less(t, result.Cost, 1e-12)
	for i := range center {
		assert.InDelta(t, center[i], result.X[i], 1e-5)
	}
}

func TestLeastSquaresHonorsWeights(t *testing.T) {
	// Two incompatible residuals; the zero-weighted one must not pull the
	// solution.
	eval := func(x []float64) ([]float64, float64, error) {
		res := []float64{x[0] - 1, x[0] - 100}
		w := []float64{1, 0}
		var cost float64
		for i := range res {
			cost += w[i] * res[i] * res[i]
		}
		return res, cost, nil
	}

	result, err := NonLinearLeastSquares(eval, []float64{0}, []float64{1, 0}, NLSOptions{
		Epsilon:       1e-10,
		MaxIterations: 100,
	})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, result.X[0], 1e-6)
}

func TestLeastSquaresNonlinearResiduals(t *testing.T) {
	// Fit y = exp(a*t) samples for a = 0.5
	ts := []float64{0, 0.5, 1, 1.5, 2}
	obs := make([]float64, len(ts))
	for i, tv := range ts {
		obs[i] = math.Exp(0.5 * tv)
	}

	eval := func(x []float64) ([]float64, float64, error) {
		res := make([]float64, len(ts))
		var cost float64
		for i, tv := range ts {
			res[i] = math.Exp(x[0]*tv) - obs[i]
			cost += res[i] * res[i]
		}
		return res, cost, nil
	}

	result, err := NonLinearLeastSquares(eval, []float64{0}, nil, NLSOptions{
		Epsilon:       1e-12,
		MaxIterations: 200,
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, result.X[0], 1e-6)
}
