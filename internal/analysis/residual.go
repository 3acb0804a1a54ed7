package analysis

import (
	"fmt"
	"math"

	"projdetect/internal/projection"
	"projdetect/internal/transform"
	"projdetect/pkg/geometry"
)

// residualFunc is the cost functor handed to the optimizers. The parameter
// vector is X = (R, latp, lonp, lat0, lon0); evaluation sanitizes X in
// place, writes it into the projection instance, forward-projects the
// reference set and returns the 2-D Helmert residual vector of length 2m
// together with the weighted squared norm. The weight vector is co-owned
// with the optimizer across iterations; per-point projection failures zero
// the corresponding entries.
type residualFunc struct {
	analyzer *Analyzer
	ds       *Dataset
	p        *projection.Projection
	aspect   projection.Aspect

	weights []float64 // length 2m, diagonal of W
	sample  *Sample

	// computeAnalysis additionally runs the full criterion battery and
	// refreshes the weights from the singular/outlier filtering.
	computeAnalysis bool
}

func newResidualFunc(a *Analyzer, ds *Dataset, p *projection.Projection, aspect projection.Aspect, sample *Sample) *residualFunc {
	m := len(ds.Test)
	w := make([]float64, 2*m)
	for i := range w {
		w[i] = 1
	}
	return &residualFunc{analyzer: a, ds: ds, p: p, aspect: aspect, weights: w, sample: sample}
}

// sanitize wraps the angular components of X into their natural periods
// and forces the aspect constraints, mirroring the parameter handling of
// the optimizers' shared functor.
func (r *residualFunc) sanitize(x []float64) {
	lat0Min := r.p.Family.Lat0Interval.Min
	lat0Max := r.p.Family.Lat0Interval.Max

	switch r.aspect {
	case projection.NormalAspect:
		x[1] = projection.MaxLat
		x[2] = 0
		x[3] = wrapAngle(x[3], projection.MaxLat)
		if x[3] < lat0Min {
			x[3] = lat0Min
		}
		if x[3] > lat0Max {
			x[3] = lat0Max
		}
		x[4] = wrapAngle(x[4], projection.MaxLon)

	case projection.TransverseAspect:
		x[1] = 0
		x[2] = wrapAngle(x[2], projection.MaxLon)
		x[3] = wrapAngle(x[3], projection.MaxLat)
		if x[3] < lat0Min {
			x[3] = lat0Min
		}
		if x[3] > lat0Max {
			x[3] = lat0Max
		}
		x[4] = 0

	case projection.ObliqueAspect:
		x[1] = wrapAngle(x[1], projection.MaxLat)
		x[2] = wrapAngle(x[2], projection.MaxLon)
		x[3] = wrapAngle(x[3], projection.MaxLat)
		if x[3] < lat0Min || x[3] > lat0Max {
			x[3] = 0.5 * (lat0Min + lat0Max)
		}
		// A pole latitude this close to 90 degrees is the normal aspect
		if math.Abs(x[1]-projection.MaxLat) < 1 {
			x[1] = projection.MaxLat
			x[2] = 0
		}
		x[4] = 0
	}

	if x[0] <= 0 {
		x[0] = math.Abs(x[0])
		if x[0] == 0 {
			x[0] = 1
		}
	}
}

// eval implements optimize.Function.
func (r *residualFunc) eval(x []float64) ([]float64, float64, error) {
	m := len(r.ds.Test)

	r.sanitize(x)

	r.p.R = x[0]
	r.p.CartPole = projection.GeoPoint{Lat: x[1], Lon: x[2]}
	r.p.Lat0 = x[3]
	r.p.Lon0 = x[4]
	r.p.Dx = 0
	r.p.Dy = 0

	if r.computeAnalysis && r.sample != nil {
		if err := r.analyzer.analyzeOneSample(r.ds, r.p, r.sample); err == nil {
			// Weights follow the filtering: surviving k-best points carry
			// weight one, singular points and outliers weight zero.
			kept := make(map[int]bool, len(r.sample.KBest))
			for _, idx := range composeIndices(r.sample.NonSingular, r.sample.KBest) {
				kept[idx] = true
			}
			for i := 0; i < m; i++ {
				w := 0.0
				if kept[i] {
					w = 1.0
				}
				r.weights[i] = w
				r.weights[i+m] = w
			}
		} else if r.analyzer.Params.PrintExceptions {
			r.analyzer.logDiscard(r.p, err)
		}
	}

	reference := reduceLon(r.ds.Reference, x[4])

	projected := make([]geometry.Point2D, m)
	for i, gp := range reference {
		if isSingular(gp, r.p.CartPole) {
			r.weights[i] = 0
			r.weights[i+m] = 0
			continue
		}
		pt, err := r.p.Project(gp.Lat, gp.Lon)
		if err != nil {
			r.weights[i] = 0
			r.weights[i+m] = 0
			continue
		}
		projected[i] = pt
	}

	key, err := transform.HelmertKeyFor(projected, r.ds.Test, r.weights[:m])
	if err != nil {
		return nil, math.Inf(1), fmt.Errorf("residuals: %w", err)
	}
	q1, q2 := key.C1, key.C2

	v := make([]float64, 2*m)
	var cost float64
	for i := 0; i < m; i++ {
		if r.weights[i] == 0 {
			continue
		}
		xr := projected[i].X - key.SrcMass.X
		yr := projected[i].Y - key.SrcMass.Y
		v[i] = q1*xr - q2*yr - (r.ds.Test[i].X - key.DstMass.X)
		v[i+m] = q2*xr + q1*yr - (r.ds.Test[i].Y - key.DstMass.Y)
		cost += r.weights[i]*v[i]*v[i] + r.weights[i+m]*v[i+m]*v[i+m]
	}

	if r.sample != nil {
		r.sample.Rotation = key.RotationDeg()
		r.sample.Dx, r.sample.Dy = key.Shift()
	}
	// The similarity absorbs any scale mismatch; the effective sphere
	// radius is the evaluated one scaled accordingly.
	r.p.R = x[0] * key.Scale()
	if r.sample != nil {
		r.sample.R = r.p.R
	}

	return v, cost, nil
}
