package analysis

import (
	"math"

	"projdetect/internal/projection"
)

// Criterion is one cartometric ratio of a sample together with its rank
// after sorting. A negative position marks the criterion unavailable.
type Criterion struct {
	Value    float64
	Position int
}

// unavailable resets a criterion to its missing state.
func unavailable() Criterion {
	return Criterion{Value: maxFloat, Position: -1}
}

// available wraps a freshly computed criterion value.
func available(v float64) Criterion {
	return Criterion{Value: v, Position: 1}
}

// Sample is one (family, aspect, parameters) hypothesis with every
// criterion evaluated on it.
type Sample struct {
	Family *projection.Family

	R    float64
	Latp float64
	Lonp float64
	Lat0 float64
	Lon0 float64
	Dx   float64
	Dy   float64

	Rotation  float64
	ScaleHomT float64
	ScaleHelT float64

	CrossNN     Criterion
	Homothetic  Criterion
	Helmert     Criterion
	GraticuleTF Criterion
	VoronoiTF   Criterion

	HomotheticMatch   int
	HelmertMatch      int
	HomotheticMatched []int
	HelmertMatched    []int

	// NonSingular lists the original indices surviving singular removal;
	// KBest indexes into the non-singular lists after outlier rejection.
	NonSingular []int
	KBest       []int

	SingularPointsFound bool
	OutliersFound       bool
	Rotated             bool
	IsTarget            bool
}

// newSample seeds a sample from the current projection parameters.
func newSample(p *projection.Projection) Sample {
	return Sample{
		Family:      p.Family,
		R:           p.R,
		Latp:        p.CartPole.Lat,
		Lonp:        p.CartPole.Lon,
		Lat0:        p.Lat0,
		Lon0:        p.Lon0,
		Dx:          p.Dx,
		Dy:          p.Dy,
		CrossNN:     unavailable(),
		Homothetic:  unavailable(),
		Helmert:     unavailable(),
		GraticuleTF: unavailable(),
		VoronoiTF:   unavailable(),
	}
}

// Cost sums the enabled criterion values of the sample; an unavailable
// enabled criterion makes the cost infinite.
func (s *Sample) Cost(criteria CriteriaSet) float64 {
	var cost float64
	add := func(enabled bool, c Criterion) {
		if !enabled {
			return
		}
		if c.Position < 0 {
			cost = math.Inf(1)
			return
		}
		cost += c.Value
	}
	add(criteria.CrossNN, s.CrossNN)
	add(criteria.Homothetic, s.Homothetic)
	add(criteria.Helmert, s.Helmert)
	add(criteria.GraticuleTF, s.GraticuleTF)
	add(criteria.VoronoiTF, s.VoronoiTF)
	return cost
}

// AggregateRank is the mean of the available criterion positions,
// or +Inf when none is available.
func (s *Sample) AggregateRank() float64 {
	var sum float64
	var n int
	for _, c := range []Criterion{s.CrossNN, s.Homothetic, s.Helmert, s.GraticuleTF, s.VoronoiTF} {
		if c.Position > 0 {
			sum += float64(c.Position)
			n++
		}
	}
	if n == 0 {
		return math.Inf(1)
	}
	return sum / float64(n)
}
