package optimize

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// Nelder-Mead operation coefficients.
const (
	nmReflection  = 1.0
	nmExpansion   = 2.0
	nmContraction = 0.5
	nmShrink      = 0.5
)

// RandSimplex builds the initial simplex: one vertex at xmin, the others
// at xmin plus a random fraction of the per-coordinate span dx.
func RandSimplex(xmin, dx []float64, rng *rand.Rand) [][]float64 {
	dim := len(xmin)
	simplex := make([][]float64, dim+1)
	simplex[0] = append([]float64(nil), xmin...)
	for i := 1; i <= dim; i++ {
		v := make([]float64, dim)
		for j := 0; j < dim; j++ {
			v[j] = xmin[j] + rng.Float64()*dx[j]
		}
		simplex[i] = v
	}
	return simplex
}

// NelderMead minimizes the objective with the downhill simplex method from
// the given initial simplex. Iteration stops when the cost span across the
// simplex drops below eps relative to the best cost, or at maxIter.
func NelderMead(eval Function, simplex [][]float64, eps float64, maxIter int) (Result, error) {
	dim := len(simplex) - 1
	if dim < 1 {
		return Result{}, fmt.Errorf("simplex of %d vertices: %w", len(simplex), ErrDimensionMismatch)
	}
	for _, v := range simplex {
		if len(v) != dim {
			return Result{}, fmt.Errorf("vertex of length %d in a %d-dim simplex: %w", len(v), dim, ErrDimensionMismatch)
		}
	}

	costs := make([]float64, dim+1)
	for i, v := range simplex {
		costs[i] = costOf(eval, v)
	}

	order := make([]int, dim+1)
	for i := range order {
		order[i] = i
	}

	iter := 0
	for ; iter < maxIter; iter++ {
		sort.Slice(order, func(a, b int) bool { return costs[order[a]] < costs[order[b]] })
		best, worst := order[0], order[dim]

		if costs[worst]-costs[best] < eps*math.Max(1, costs[best]) {
			break
		}

		// Centroid of all vertices but the worst
		centroid := make([]float64, dim)
		for _, idx := range order[:dim] {
			for j := 0; j < dim; j++ {
				centroid[j] += simplex[idx][j]
			}
		}
		for j := 0; j < dim; j++ {
			centroid[j] /= float64(dim)
		}

		reflected := axpy(centroid, simplex[worst], nmReflection)
		costReflected := costOf(eval, reflected)

		switch {
		case costReflected < costs[best]:
			expanded := axpy(centroid, simplex[worst], nmExpansion)
			costExpanded := costOf(eval, expanded)
			if costExpanded < costReflected {
				simplex[worst], costs[worst] = expanded, costExpanded
			} else {
				simplex[worst], costs[worst] = reflected, costReflected
			}

		case costReflected < costs[order[dim-1]]:
			simplex[worst], costs[worst] = reflected, costReflected

		default:
			var contracted []float64
			if costReflected < costs[worst] {
				// Outer contraction toward the reflected point
				contracted = axpy(centroid, simplex[worst], nmContraction)
			} else {
				// Inner contraction toward the worst vertex
				contracted = axpy(centroid, simplex[worst], -nmContraction)
			}
			costContracted := costOf(eval, contracted)
			if costContracted < math.Min(costReflected, costs[worst]) {
				simplex[worst], costs[worst] = contracted, costContracted
			} else {
				// Shrink everything toward the best vertex
				for _, idx := range order[1:] {
					for j := 0; j < dim; j++ {
						simplex[idx][j] = simplex[best][j] + nmShrink*(simplex[idx][j]-simplex[best][j])
					}
					costs[idx] = costOf(eval, simplex[idx])
				}
			}
		}
	}

	sort.Slice(order, func(a, b int) bool { return costs[order[a]] < costs[order[b]] })
	best := order[0]

	// Re-evaluate at the winner so the objective's side effects (weights,
	// sample fields) reflect the returned vertex.
	finalCost := costOf(eval, simplex[best])

	return Result{
		X:          append([]float64(nil), simplex[best]...),
		Cost:       finalCost,
		Iterations: iter,
	}, nil
}

// axpy returns centroid + coeff*(centroid - from).
func axpy(centroid, from []float64, coeff float64) []float64 {
	out := make([]float64, len(centroid))
	for j := range centroid {
		out[j] = centroid[j] + coeff*(centroid[j]-from[j])
	}
	return out
}

func costOf(eval Function, x []float64) float64 {
	_, cost, err := eval(x)
	if err != nil {
		return math.Inf(1)
	}
	return cost
}
