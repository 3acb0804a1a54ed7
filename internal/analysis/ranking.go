package analysis

import (
	"math"
	"sort"
)

// ArgumentRoundError is the tolerance below which two criterion values are
// considered equal when assigning ranks.
const ArgumentRoundError = 1.0e-5

// criterionAccess pairs a getter and setter for one criterion of a sample.
type criterionAccess struct {
	enabled bool
	get     func(*Sample) *Criterion
}

// RankSamples assigns per-criterion positions to every sample and orders
// the list by the aggregate rank. For each enabled criterion the available
// values are ranked ascending with competition ranking: equal values (up
// to ArgumentRoundError) share a position and the following positions are
// skipped accordingly.
func RankSamples(samples []Sample, criteria CriteriaSet) {
	accessors := []criterionAccess{
		{criteria.CrossNN, func(s *Sample) *Criterion { return &s.CrossNN }},
		{criteria.Homothetic, func(s *Sample) *Criterion { return &s.Homothetic }},
		{criteria.Helmert, func(s *Sample) *Criterion { return &s.Helmert }},
		{criteria.GraticuleTF, func(s *Sample) *Criterion { return &s.GraticuleTF }},
		{criteria.VoronoiTF, func(s *Sample) *Criterion { return &s.VoronoiTF }},
	}

	for _, acc := range accessors {
		if !acc.enabled {
			continue
		}
		rankCriterion(samples, acc.get)
	}

	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].AggregateRank() < samples[j].AggregateRank()
	})
}

// rankCriterion assigns competition ranks for one criterion across the
// sample list. Unavailable values keep position -1.
func rankCriterion(samples []Sample, get func(*Sample) *Criterion) {
	var order []int
	for i := range samples {
		if c := get(&samples[i]); c.Position > 0 && !math.IsInf(c.Value, 0) {
			order = append(order, i)
		} else {
			get(&samples[i]).Position = -1
		}
	}

	sort.SliceStable(order, func(a, b int) bool {
		return get(&samples[order[a]]).Value < get(&samples[order[b]]).Value
	})

	for k, idx := range order {
		c := get(&samples[idx])
		if k > 0 {
			prev := get(&samples[order[k-1]])
			if math.Abs(c.Value-prev.Value) <= ArgumentRoundError {
				c.Position = prev.Position
				continue
			}
		}
		c.Position = k + 1
	}
}
