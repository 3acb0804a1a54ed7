// Package transform implements planar similarity transformations between
// equally-sized point sets: the 2-D Helmert (rotation + scale + shift) and
// homothetic (scale + shift) estimators, residual statistics, point match
// ratios and IRLS outlier rejection.
package transform

import (
	"errors"
	"fmt"
	"math"

	"projdetect/pkg/geometry"
)

// ErrSingularGeometry reports a degenerate source set (all points
// coincide), which leaves the similarity underdetermined.
var ErrSingularGeometry = errors.New("singular geometry: source points coincide")

// ErrBadData reports empty or mismatched point sets.
var ErrBadData = errors.New("bad data")

// HelmertKey is the closed-form solution of the weighted 2-D Helmert
// transformation mapping a source set onto a destination set.
type HelmertKey struct {
	C1 float64
	C2 float64
	J  float64 // weighted squared norm of the reduced source set
	K  float64 // sum of weights

	SrcMass geometry.Point2D
	DstMass geometry.Point2D
}

// Scale returns the uniform scale of the similarity.
func (k HelmertKey) Scale() float64 {
	return math.Hypot(k.C1, k.C2)
}

// RotationDeg returns the rotation of the similarity in degrees.
func (k HelmertKey) RotationDeg() float64 {
	return math.Atan2(k.C2, k.C1) * 180 / math.Pi
}

// Shift returns the translation (dx, dy) of the similarity.
func (k HelmertKey) Shift() (float64, float64) {
	dx := k.DstMass.X - k.SrcMass.X*k.C1 + k.SrcMass.Y*k.C2
	dy := k.DstMass.Y - k.SrcMass.X*k.C2 - k.SrcMass.Y*k.C1
	return dx, dy
}

// Apply maps one source point into the destination frame.
func (k HelmertKey) Apply(p geometry.Point2D) geometry.Point2D {
	xr := p.X - k.SrcMass.X
	yr := p.Y - k.SrcMass.Y
	return geometry.Point2D{
		X: k.C1*xr - k.C2*yr + k.DstMass.X,
		Y: k.C2*xr + k.C1*yr + k.DstMass.Y,
	}
}

// HelmertKeyFor solves the weighted 2-D Helmert transformation from src to
// dst. A nil weight slice means unit weights; a zero weight removes the
// point from the adjustment.
func HelmertKeyFor(src, dst []geometry.Point2D, weights []float64) (HelmertKey, error) {
	n := len(src)
	if n < 2 || len(dst) < 2 {
		return HelmertKey{}, fmt.Errorf("helmert key: not enough points (%d, %d): %w", n, len(dst), ErrBadData)
	}
	if len(dst) < n {
		return HelmertKey{}, fmt.Errorf("helmert key: fewer destination than source points: %w", ErrBadData)
	}

	srcMass, sumW := geometry.WeightedCentroid(src[:n], weights)
	dstMass, _ := geometry.WeightedCentroid(dst[:n], weights)
	if sumW == 0 {
		return HelmertKey{}, fmt.Errorf("helmert key: all weights zero: %w", ErrBadData)
	}

	var j, k1, k2 float64
	for i := 0; i < n; i++ {
		w := 1.0
		if weights != nil {
			w = weights[i]
		}
		xr := src[i].X - srcMass.X
		yr := src[i].Y - srcMass.Y
		xrd := dst[i].X - dstMass.X
		yrd := dst[i].Y - dstMass.Y

		j += w * (xr*xr + yr*yr)
		k1 += w * (xrd*xr + yrd*yr)
		k2 += w * (yrd*xr - xrd*yr)
	}

	if j == 0 {
		return HelmertKey{}, fmt.Errorf("helmert key: %w", ErrSingularGeometry)
	}

	return HelmertKey{
		C1:      k1 / j,
		C2:      k2 / j,
		J:       j,
		K:       sumW,
		SrcMass: srcMass,
		DstMass: dstMass,
	}, nil
}

// HelmertTransform solves the weighted Helmert key and maps every source
// point into the destination frame.
func HelmertTransform(src, dst []geometry.Point2D, weights []float64) ([]geometry.Point2D, HelmertKey, error) {
	key, err := HelmertKeyFor(src, dst, weights)
	if err != nil {
		return nil, HelmertKey{}, err
	}
	out := make([]geometry.Point2D, len(src))
	for i, p := range src {
		out[i] = key.Apply(p)
	}
	return out, key, nil
}
