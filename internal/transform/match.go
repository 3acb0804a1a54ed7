package transform

import (
	"math"

	"projdetect/pkg/geometry"
)

// Ellipse is an uncertainty region around a point: semi-axes and the major
// axis azimuth in degrees. A unit circle when A == B.
type Ellipse struct {
	A  float64
	B  float64
	Ae float64
}

// MatchRatioCircle counts the point pairs whose mutual distance falls
// inside a circle of radius tolerance·(mean nearest neighbour spacing of
// the reference set). Returns the percentage of matched pairs and their
// indices.
func MatchRatioCircle(reference, transformed []geometry.Point2D, tolerance float64) (float64, []int) {
	n := len(reference)
	if n == 0 || len(transformed) < n {
		return 0, nil
	}

	radius := tolerance * MeanNearestNeighbourDistance(reference)
	if radius <= 0 {
		return 0, nil
	}

	var matched []int
	for i := 0; i < n; i++ {
		if reference[i].Distance(transformed[i]) <= radius {
			matched = append(matched, i)
		}
	}
	return 100 * float64(len(matched)) / float64(n), matched
}

// MatchRatioEllipse counts the point pairs whose transformed position falls
// inside the per-point uncertainty ellipse, scaled by tolerance relative to
// the mean nearest neighbour spacing of the reference set. Points without
// an ellipse (zero axes) fall back to the circle test.
func MatchRatioEllipse(reference, transformed []geometry.Point2D, ellipses []Ellipse, tolerance float64) (float64, []int) {
	n := len(reference)
	if n == 0 || len(transformed) < n {
		return 0, nil
	}

	scale := tolerance * MeanNearestNeighbourDistance(reference)
	if scale <= 0 {
		return 0, nil
	}

	var matched []int
	for i := 0; i < n; i++ {
		e := Ellipse{A: 1, B: 1}
		if ellipses != nil && i < len(ellipses) && ellipses[i].A > 0 && ellipses[i].B > 0 {
			e = ellipses[i]
		}

		// Rotate the offset into the ellipse frame
		d := transformed[i].Sub(reference[i]).Rotate(-e.Ae * math.Pi / 180)
		u := d.X / (e.A * scale)
		v := d.Y / (e.B * scale)
		if u*u+v*v <= 1 {
			matched = append(matched, i)
		}
	}
	return 100 * float64(len(matched)) / float64(n), matched
}
