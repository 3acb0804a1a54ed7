package transform

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"projdetect/pkg/geometry"
)

// Accuracy summarizes the residuals left after mapping a source set onto a
// destination set with a similarity transformation.
type Accuracy struct {
	Deviations []float64
	MeanDev    float64
	StdDev     float64
}

// AccuracyFor computes the per-point residual distances between the
// transformed source set and the destination set, their mean and the
// standard deviation about zero.
func AccuracyFor(transformed, dst []geometry.Point2D) Accuracy {
	n := len(transformed)
	if n == 0 || len(dst) < n {
		return Accuracy{StdDev: math.Inf(1), MeanDev: math.Inf(1)}
	}

	dev := make([]float64, n)
	var sumSq float64
	for i := 0; i < n; i++ {
		d := transformed[i].Distance(dst[i])
		dev[i] = d
		sumSq += d * d
	}

	return Accuracy{
		Deviations: dev,
		MeanDev:    stat.Mean(dev, nil),
		StdDev:     math.Sqrt(sumSq / float64(n)),
	}
}

// CrossNearestNeighbourDistance returns the symmetric mean nearest
// neighbour distance between two point sets.
func CrossNearestNeighbourDistance(a, b []geometry.Point2D) float64 {
	if len(a) == 0 || len(b) == 0 {
		return math.Inf(1)
	}
	return 0.5 * (meanNearest(a, b) + meanNearest(b, a))
}

func meanNearest(from, to []geometry.Point2D) float64 {
	var sum float64
	for _, p := range from {
		best := math.Inf(1)
		for _, q := range to {
			if d := p.Distance(q); d < best {
				best = d
			}
		}
		sum += best
	}
	return sum / float64(len(from))
}

// MeanNearestNeighbourDistance returns the mean distance from each point of
// the set to its nearest distinct neighbour in the same set. Used as the
// sensitivity scale for point matching.
func MeanNearestNeighbourDistance(points []geometry.Point2D) float64 {
	if len(points) < 2 {
		return 0
	}
	var sum float64
	for i, p := range points {
		best := math.Inf(1)
		for j, q := range points {
			if i == j {
				continue
			}
			if d := p.Distance(q); d < best {
				best = d
			}
		}
		sum += best
	}
	return sum / float64(len(points))
}
