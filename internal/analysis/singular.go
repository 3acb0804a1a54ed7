package analysis

import (
	"math"

	"projdetect/internal/projection"
	"projdetect/pkg/geometry"
)

// removeSingularPoints filters out geographic points that coincide with
// the cartographic pole or lie on the meridian opposite it, where the
// oblique transform degenerates. Returns the filtered parallel lists and
// the original indices of the survivors.
func removeSingularPoints(test []geometry.Point2D, reference []projection.GeoPoint, pole projection.GeoPoint) ([]geometry.Point2D, []projection.GeoPoint, []int) {
	outTest := make([]geometry.Point2D, 0, len(test))
	outRef := make([]projection.GeoPoint, 0, len(reference))
	survivors := make([]int, 0, len(reference))

	for i, p := range reference {
		if isSingular(p, pole) {
			continue
		}
		outTest = append(outTest, test[i])
		outRef = append(outRef, p)
		survivors = append(survivors, i)
	}
	return outTest, outRef, survivors
}

// isSingular reports whether one geographic point degenerates under the
// pole, matching removeSingularPoints.
func isSingular(p projection.GeoPoint, pole projection.GeoPoint) bool {
	return p.Equal(pole) || math.Abs(p.Lon-pole.Lon) == projection.MaxLon
}

// remapLines rewrites the point-index lists of the graticule against a
// survivor list: dropped indices are removed, kept indices renumbered to
// their new positions, and lines left with fewer than MinLinePoints
// members are discarded.
func remapLines(meridians []Meridian, parallels []Parallel, survivors []int) ([]Meridian, []Parallel) {
	newIndex := make(map[int]int, len(survivors))
	for newIdx, oldIdx := range survivors {
		newIndex[oldIdx] = newIdx
	}

	outM := make([]Meridian, 0, len(meridians))
	for _, m := range meridians {
		indices := remapIndices(m.Indices, newIndex)
		if len(indices) < MinLinePoints {
			continue
		}
		outM = append(outM, Meridian{Lon: m.Lon, Indices: indices})
	}

	outP := make([]Parallel, 0, len(parallels))
	for _, p := range parallels {
		indices := remapIndices(p.Indices, newIndex)
		if len(indices) < MinLinePoints {
			continue
		}
		outP = append(outP, Parallel{Lat: p.Lat, Indices: indices})
	}
	return outM, outP
}

func remapIndices(indices []int, newIndex map[int]int) []int {
	out := make([]int, 0, len(indices))
	for _, idx := range indices {
		if mapped, ok := newIndex[idx]; ok {
			out = append(out, mapped)
		}
	}
	return out
}

// medianLine returns the index of the median element, used to fall back to
// the central meridian/parallel of the dataset when the prime one is absent.
func medianLine(n int) int {
	return n / 2
}

// composeIndices maps k-best indices (into the non-singular lists) back to
// original point indices.
func composeIndices(nonSingular, kBest []int) []int {
	out := make([]int, 0, len(kBest))
	for _, k := range kBest {
		if k >= 0 && k < len(nonSingular) {
			out = append(out, nonSingular[k])
		}
	}
	return out
}

// wrapAngle reduces an angle to [-period, period] by subtracting whole
// periods, mirroring the sanitizer of the residual functor.
func wrapAngle(v, period float64) float64 {
	if math.Abs(v) > period {
		return math.Mod(v, period)
	}
	return v
}
