// Package turning implements the turning-function shape descriptor of a
// polyline and a distance between two descriptors. The turning function
// maps normalized arc length to the cumulative direction angle, which makes
// the distance invariant to translation and uniform scale; rotation
// invariance is optional.
package turning

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"projdetect/pkg/geometry"
)

// ErrDegenerate reports a polyline too short or of zero length.
var ErrDegenerate = errors.New("degenerate polyline")

// RotationMode selects whether the distance removes the best rotation
// offset between the two functions.
type RotationMode int

const (
	RotationInvariant RotationMode = iota
	RotationDependent
)

// Function is a turning function: a step function over normalized arc
// length in [0, 1].
type Function struct {
	// S holds the normalized arc length of each vertex, S[0] = 0, last = 1.
	S []float64
	// Theta holds the cumulative direction angle, radians, per segment;
	// Theta[i] is the direction of the segment starting at vertex i.
	Theta []float64
}

// New builds the turning function of a polyline.
func New(points []geometry.Point2D) (Function, error) {
	if len(points) < 3 {
		return Function{}, fmt.Errorf("turning function needs at least 3 points, got %d: %w", len(points), ErrDegenerate)
	}
	total := geometry.PolylineLength(points)
	if total == 0 {
		return Function{}, fmt.Errorf("turning function of zero-length polyline: %w", ErrDegenerate)
	}

	n := len(points)
	fn := Function{
		S:     make([]float64, n),
		Theta: make([]float64, n-1),
	}

	var acc float64
	prevDir := math.Atan2(points[1].Y-points[0].Y, points[1].X-points[0].X)
	fn.Theta[0] = prevDir
	for i := 1; i < n; i++ {
		acc += points[i].Distance(points[i-1])
		fn.S[i] = acc / total
		if i < n-1 {
			dir := math.Atan2(points[i+1].Y-points[i].Y, points[i+1].X-points[i].X)
			// Accumulate the signed turn so the function stays continuous
			turn := normalizeAngle(dir - prevDir)
			fn.Theta[i] = fn.Theta[i-1] + turn
			prevDir = dir
		}
	}
	return fn, nil
}

// At evaluates the step function at normalized arc length s.
func (f Function) At(s float64) float64 {
	if s <= 0 {
		return f.Theta[0]
	}
	// Segment index: the last vertex with S < s
	idx := sort.SearchFloat64s(f.S, s) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(f.Theta) {
		idx = len(f.Theta) - 1
	}
	return f.Theta[idx]
}

// Distance computes the L2 distance between the turning functions of two
// polylines. In RotationInvariant mode the optimal constant angle offset is
// removed first. The result is always scale invariant.
func Distance(a, b []geometry.Point2D, mode RotationMode) (float64, error) {
	fa, err := New(a)
	if err != nil {
		return 0, err
	}
	fb, err := New(b)
	if err != nil {
		return 0, err
	}

	// Integrate over the union of breakpoints
	breaks := mergeBreaks(fa.S, fb.S)

	var offset float64
	if mode == RotationInvariant {
		// The L2-optimal offset is the length-weighted mean difference
		var sum float64
		for i := 1; i < len(breaks); i++ {
			mid := 0.5 * (breaks[i-1] + breaks[i])
			sum += (fa.At(mid) - fb.At(mid)) * (breaks[i] - breaks[i-1])
		}
		offset = sum
	}

	var integral float64
	for i := 1; i < len(breaks); i++ {
		mid := 0.5 * (breaks[i-1] + breaks[i])
		d := fa.At(mid) - fb.At(mid) - offset
		integral += d * d * (breaks[i] - breaks[i-1])
	}
	return math.Sqrt(integral), nil
}

func mergeBreaks(a, b []float64) []float64 {
	out := make([]float64, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	sort.Float64s(out)
	uniq := out[:0]
	for i, v := range out {
		if i == 0 || v > uniq[len(uniq)-1] {
			uniq = append(uniq, v)
		}
	}
	return uniq
}

func normalizeAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}
