// Package optimize provides the minimizers used by the projection search:
// a Nelder-Mead simplex, a differential evolution global minimizer and a
// damped Gauss-Newton/BFGS non-linear least squares solver. All of them
// minimize the weighted squared residual norm of a shared objective.
package optimize

import (
	"errors"
	"fmt"
	"math"
)

// ErrBadInterval reports a lower bound above its upper bound.
var ErrBadInterval = errors.New("bad interval: min > max")

// ErrDimensionMismatch reports inconsistent vector lengths.
var ErrDimensionMismatch = errors.New("dimension mismatch")

// Function evaluates the objective at x: the residual vector and the cost
// V'WV. Implementations may mutate a shared weight vector as a side
// effect. An error marks the evaluation invalid: Nelder-Mead and
// differential evolution treat it as infinite cost; the least squares
// solver rejects a failed trial step and gives up only when the initial
// evaluation or a Jacobian evaluation fails.
type Function func(x []float64) (residuals []float64, cost float64, err error)

// Result is the outcome of a minimization.
type Result struct {
	X          []float64
	Cost       float64
	Iterations int
}

func checkBounds(xmin, xmax []float64) error {
	if len(xmin) != len(xmax) {
		return fmt.Errorf("bounds of length %d and %d: %w", len(xmin), len(xmax), ErrDimensionMismatch)
	}
	for i := range xmin {
		if xmin[i] > xmax[i] {
			return fmt.Errorf("coordinate %d: [%g, %g]: %w", i, xmin[i], xmax[i], ErrBadInterval)
		}
	}
	return nil
}

// reflect folds every coordinate of x back into [xmin, xmax] by mirroring
// at the violated bound. Collapsed intervals pin the coordinate.
func reflect(x, xmin, xmax []float64) {
	for j := range x {
		for x[j] < xmin[j] || x[j] > xmax[j] {
			switch {
			case xmin[j] == xmax[j]:
				x[j] = xmin[j]
			case x[j] > xmax[j]:
				x[j] = 2*xmax[j] - x[j]
			case x[j] < xmin[j]:
				x[j] = 2*xmin[j] - x[j]
			}
		}
	}
}

func normInf(v []float64) float64 {
	var m float64
	for _, x := range v {
		if a := math.Abs(x); a > m {
			m = a
		}
	}
	return m
}
