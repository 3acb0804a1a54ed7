package transform

import (
	"fmt"
	"math"

	"projdetect/pkg/geometry"
)

// IRLS tuning. Iteration stops on relative key change below the tolerance
// or at the iteration cap; points whose final weight falls below the
// cutoff are declared outliers.
const (
	irlsTolerance     = 1.0e-6
	irlsMaxIterations = 25
	irlsWeightCutoff  = 0.1
)

// IRLSResult is the outcome of iteratively reweighted outlier detection.
type IRLSResult struct {
	Key     HelmertKey
	Weights []float64
	// KBest lists the indices of the surviving (inlier) pairs in order.
	KBest []int
}

// FindOutliersIRLS iterates the weighted Helmert adjustment with
// residual-dependent Cauchy weights w = 1/(1+(r/sigma)^2) until the key
// stabilizes, then reports the surviving point pairs.
func FindOutliersIRLS(src, dst []geometry.Point2D) (IRLSResult, error) {
	n := len(src)
	if n < 2 || len(dst) < n {
		return IRLSResult{}, fmt.Errorf("irls: not enough points (%d, %d): %w", n, len(dst), ErrBadData)
	}

	weights := make([]float64, n)
	for i := range weights {
		weights[i] = 1
	}

	var key HelmertKey
	for iter := 0; iter < irlsMaxIterations; iter++ {
		next, err := HelmertKeyFor(src, dst, weights)
		if err != nil {
			return IRLSResult{}, fmt.Errorf("irls iteration %d: %w", iter, err)
		}

		res := make([]float64, n)
		var sumSq, sumW float64
		for i := 0; i < n; i++ {
			r := next.Apply(src[i]).Distance(dst[i])
			res[i] = r
			sumSq += weights[i] * r * r
			sumW += weights[i]
		}
		if sumW == 0 {
			return IRLSResult{}, fmt.Errorf("irls iteration %d: all weights vanished: %w", iter, ErrBadData)
		}
		sigma := math.Sqrt(sumSq / sumW)
		if sigma == 0 {
			// Perfect fit, everything is an inlier
			key = next
			break
		}

		for i := 0; i < n; i++ {
			q := res[i] / sigma
			weights[i] = 1 / (1 + q*q)
		}

		if iter > 0 && keyChange(key, next) < irlsTolerance {
			key = next
			break
		}
		key = next
	}

	var kBest []int
	for i, w := range weights {
		if w >= irlsWeightCutoff {
			kBest = append(kBest, i)
		}
	}
	if len(kBest) < 2 {
		return IRLSResult{}, fmt.Errorf("irls: fewer than two inliers survive: %w", ErrBadData)
	}

	// Final adjustment over the inliers only
	finalKey, err := HelmertKeyFor(geometry.Select(src, kBest), geometry.Select(dst, kBest), nil)
	if err != nil {
		return IRLSResult{}, fmt.Errorf("irls final adjustment: %w", err)
	}

	return IRLSResult{Key: finalKey, Weights: weights, KBest: kBest}, nil
}

// keyChange measures the relative change between two Helmert keys.
func keyChange(a, b HelmertKey) float64 {
	scale := math.Max(1, math.Max(math.Abs(b.C1), math.Abs(b.C2)))
	return math.Max(math.Abs(a.C1-b.C1), math.Abs(a.C2-b.C2)) / scale
}
