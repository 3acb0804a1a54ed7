package transform

import (
	"fmt"

	"projdetect/pkg/geometry"
)

// HomotheticKey is the closed-form solution of the weighted homothetic
// (scale + shift, no rotation) transformation from a source set onto a
// destination set.
type HomotheticKey struct {
	C float64
	J float64

	SrcMass geometry.Point2D
	DstMass geometry.Point2D
}

// Shift returns the translation (dx, dy) of the transformation.
func (k HomotheticKey) Shift() (float64, float64) {
	return k.DstMass.X - k.SrcMass.X*k.C, k.DstMass.Y - k.SrcMass.Y*k.C
}

// Apply maps one source point into the destination frame.
func (k HomotheticKey) Apply(p geometry.Point2D) geometry.Point2D {
	return geometry.Point2D{
		X: k.C*(p.X-k.SrcMass.X) + k.DstMass.X,
		Y: k.C*(p.Y-k.SrcMass.Y) + k.DstMass.Y,
	}
}

// HomotheticKeyFor solves the weighted homothetic transformation from src
// to dst. A nil weight slice means unit weights.
func HomotheticKeyFor(src, dst []geometry.Point2D, weights []float64) (HomotheticKey, error) {
	n := len(src)
	if n < 2 || len(dst) < n {
		return HomotheticKey{}, fmt.Errorf("homothetic key: not enough points (%d, %d): %w", n, len(dst), ErrBadData)
	}

	srcMass, sumW := geometry.WeightedCentroid(src[:n], weights)
	dstMass, _ := geometry.WeightedCentroid(dst[:n], weights)
	if sumW == 0 {
		return HomotheticKey{}, fmt.Errorf("homothetic key: all weights zero: %w", ErrBadData)
	}

	var j, k1 float64
	for i := 0; i < n; i++ {
		w := 1.0
		if weights != nil {
			w = weights[i]
		}
		xr := src[i].X - srcMass.X
		yr := src[i].Y - srcMass.Y

		j += w * (xr*xr + yr*yr)
		k1 += w * ((dst[i].X-dstMass.X)*xr + (dst[i].Y-dstMass.Y)*yr)
	}

	if j == 0 {
		return HomotheticKey{}, fmt.Errorf("homothetic key: %w", ErrSingularGeometry)
	}

	return HomotheticKey{C: k1 / j, J: j, SrcMass: srcMass, DstMass: dstMass}, nil
}

// HomotheticTransform solves the weighted homothetic key and maps every
// source point into the destination frame.
func HomotheticTransform(src, dst []geometry.Point2D, weights []float64) ([]geometry.Point2D, HomotheticKey, error) {
	key, err := HomotheticKeyFor(src, dst, weights)
	if err != nil {
		return nil, HomotheticKey{}, err
	}
	out := make([]geometry.Point2D, len(src))
	for i, p := range src {
		out[i] = key.Apply(p)
	}
	return out, key, nil
}
