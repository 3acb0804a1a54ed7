package optimize

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Least-squares tuning.
const (
	nlsJacobianStep = 1.0e-6
	nlsLambdaInit   = 1.0e-3
	nlsLambdaUp     = 10.0
	nlsLambdaDown   = 10.0
	nlsLambdaMax    = 1.0e12
)

// NLSOptions configures the damped non-linear least squares solver.
type NLSOptions struct {
	Epsilon       float64
	MaxIterations int
	// Jacobian, when non-nil, supplies analytic partials dV/dX at x into
	// the dst matrix (rows = residuals, cols = parameters). Nil selects
	// central-difference numeric partials.
	Jacobian func(x []float64, dst *mat.Dense) error
}

// NonLinearLeastSquares minimizes V'WV with a damped Gauss-Newton descent:
// each step solves (J'WJ + lambda*I) dx = -J'WV, with the damping raised on
// a worsening step and lowered on an improving one. The weight slice is
// shared with the objective, which may update it during evaluation.
func NonLinearLeastSquares(eval Function, x0 []float64, weights []float64, opts NLSOptions) (Result, error) {
	dim := len(x0)
	if dim == 0 {
		return Result{}, fmt.Errorf("least squares: empty parameter vector: %w", ErrDimensionMismatch)
	}

	x := append([]float64(nil), x0...)
	res, cost, err := eval(x)
	if err != nil {
		return Result{}, fmt.Errorf("least squares: initial evaluation: %w", err)
	}
	m := len(res)
	if weights != nil && len(weights) != m {
		return Result{}, fmt.Errorf("least squares: %d weights for %d residuals: %w", len(weights), m, ErrDimensionMismatch)
	}

	lambda := nlsLambdaInit
	jac := mat.NewDense(m, dim, nil)

	iter := 0
	for ; iter < opts.MaxIterations; iter++ {
		if opts.Jacobian != nil {
			if err := opts.Jacobian(x, jac); err != nil {
				return Result{}, fmt.Errorf("least squares: analytic jacobian: %w", err)
			}
		} else if err := numericJacobian(eval, x, res, jac); err != nil {
			return Result{}, fmt.Errorf("least squares: numeric jacobian: %w", err)
		}

		// Gradient g = J'WV and normal matrix N = J'WJ
		g := make([]float64, dim)
		n := mat.NewSymDense(dim, nil)
		for j := 0; j < dim; j++ {
			for k := j; k < dim; k++ {
				var acc float64
				for i := 0; i < m; i++ {
					w := 1.0
					if weights != nil {
						w = weights[i]
					}
					acc += jac.At(i, j) * w * jac.At(i, k)
				}
				n.SetSym(j, k, acc)
			}
			var acc float64
			for i := 0; i < m; i++ {
				w := 1.0
				if weights != nil {
					w = weights[i]
				}
				acc += jac.At(i, j) * w * res[i]
			}
			g[j] = acc
		}

		if normInf(g) < opts.Epsilon {
			break
		}

		// Damped step: (N + lambda*I) dx = -g
		var dx []float64
		for {
			damped := mat.NewSymDense(dim, nil)
			for j := 0; j < dim; j++ {
				for k := j; k < dim; k++ {
					v := n.At(j, k)
					if j == k {
						v += lambda
					}
					damped.SetSym(j, k, v)
				}
			}

			var chol mat.Cholesky
			if !chol.Factorize(damped) {
				lambda *= nlsLambdaUp
				if lambda > nlsLambdaMax {
					return Result{X: x, Cost: cost, Iterations: iter},
						fmt.Errorf("least squares: normal matrix not positive definite: %w", ErrBadInterval)
				}
				continue
			}

			rhs := mat.NewVecDense(dim, nil)
			for j := 0; j < dim; j++ {
				rhs.SetVec(j, -g[j])
			}
			var sol mat.VecDense
			if err := chol.SolveVecTo(&sol, rhs); err != nil {
				lambda *= nlsLambdaUp
				if lambda > nlsLambdaMax {
					return Result{X: x, Cost: cost, Iterations: iter},
						fmt.Errorf("least squares: damped system unsolvable: %w", ErrBadInterval)
				}
				continue
			}
			dx = make([]float64, dim)
			for j := 0; j < dim; j++ {
				dx[j] = sol.AtVec(j)
			}
			break
		}

		trial := make([]float64, dim)
		for j := 0; j < dim; j++ {
			trial[j] = x[j] + dx[j]
		}

		trialRes, trialCost, err := eval(trial)
		if err != nil || trialCost > cost {
			// Worse step: raise the damping and retry from the same point
			lambda *= nlsLambdaUp
			if lambda > nlsLambdaMax {
				break
			}
			continue
		}

		lambda /= nlsLambdaDown
		x = trial
		res = trialRes
		cost = trialCost

		if normInf(dx) < opts.Epsilon*(1+normInf(x)) {
			break
		}
	}

	// Leave the objective's side effects consistent with the solution
	_, cost, err = eval(x)
	if err != nil {
		return Result{X: x, Cost: math.Inf(1), Iterations: iter}, nil
	}
	return Result{X: x, Cost: cost, Iterations: iter}, nil
}

// numericJacobian fills dst with central-difference partials of the
// residual vector, stepping each coordinate by nlsJacobianStep*max(1,|xj|).
func numericJacobian(eval Function, x, res []float64, dst *mat.Dense) error {
	m := len(res)
	dim := len(x)
	xs := append([]float64(nil), x...)

	for j := 0; j < dim; j++ {
		h := nlsJacobianStep * math.Max(1, math.Abs(x[j]))

		xs[j] = x[j] + h
		plus, _, err := eval(xs)
		if err != nil {
			return err
		}
		xs[j] = x[j] - h
		minus, _, err := eval(xs)
		if err != nil {
			return err
		}
		xs[j] = x[j]

		if len(plus) != m || len(minus) != m {
			return fmt.Errorf("residual length changed during differentiation: %w", ErrDimensionMismatch)
		}
		for i := 0; i < m; i++ {
			dst.Set(i, j, (plus[i]-minus[i])/(2*h))
		}
	}
	return nil
}
