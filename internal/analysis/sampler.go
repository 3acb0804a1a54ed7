package analysis

import (
	"math"
	"sort"

	"projdetect/internal/projection"
)

// PolePosition is one candidate (latp, lonp, lat0) triple of the grid
// search, with its complexity criterion.
type PolePosition struct {
	Latp float64
	Lonp float64
	Lat0 float64
	Crit float64
}

// complexityFilterMin is the minimum number of candidates before the
// complexity pre-filter is worth applying.
const complexityFilterMin = 10

// findLatPLonPIntervals shrinks the latp/lonp search intervals from the
// geographic extent of the data through the family-supplied heuristic
// maps. The shrinking is skipped for territories spanning three or more
// longitude quadrants, where the bounding interval stops being meaningful.
func findLatPLonPIntervals(ds *Dataset, family *projection.Family, latp, lonp *projection.Interval) {
	var q1, q2, q3, q4 bool
	for _, p := range ds.Reference {
		switch {
		case p.Lon > projection.MinLon && p.Lon < -90:
			q1 = true
		case p.Lon > -90 && p.Lon < 0:
			q2 = true
		case p.Lon > 0 && p.Lon < 90:
			q3 = true
		case p.Lon > 90 && p.Lon < projection.MaxLon:
			q4 = true
		}
	}

	threeQuadrants := (q1 && q2 && q3) || (q2 && q3 && q4) || (q3 && q4 && q1) || (q4 && q1 && q2)
	if threeQuadrants || latp.Min == projection.MaxLat {
		return
	}

	latpH := family.LatPIntervalH(ds.LatExtent())
	lonpH := family.LonPIntervalH(ds.LonExtent())

	// Territory across the antimeridian: the interval wraps
	if q1 && q4 {
		lonpH.Min, lonpH.Max = lonpH.Max, lonpH.Min
	}

	// Round to multiples of 10 degrees: the minimum toward zero, the
	// maximum to the nearest
	lonpH.Min = math.Trunc(lonpH.Min/10.0) * 10.0
	lonpH.Max = math.Trunc(lonpH.Max/10.0+0.5) * 10.0

	*latp = latpH
	*lonp = lonpH
}

// enumeratePolePositions builds the candidate (latp, lonp, lat0) triples
// of one aspect on the configured grid, restricted by the heuristic
// intervals. With the heuristic enabled and more than complexityFilterMin
// candidates, those whose distortion complexity criterion exceeds twice the
// mean are pruned. The result is ordered by latp.
func (a *Analyzer) enumeratePolePositions(ds *Dataset, p *projection.Projection, aspect projection.Aspect,
	latpHeur, lonpHeur projection.Interval) []PolePosition {

	family := p.Family
	var out []PolePosition
	var critSum float64

	latpMin, latpMax := projection.MaxLat, projection.MaxLat
	lonpMin, lonpMax := 0.0, 0.0
	switch aspect {
	case projection.TransverseAspect:
		latpMin, latpMax = 0, 0
		lonpMin, lonpMax = family.LonPInterval.Min, family.LonPInterval.Max
	case projection.ObliqueAspect:
		latpMin, latpMax = family.LatPInterval.Min, family.LatPInterval.Max
		lonpMin, lonpMax = family.LonPInterval.Min, family.LonPInterval.Max
	}

	lat0Interval := family.Lat0Interval

	for latp := latpMin; latp <= latpMax; latp += a.Params.LatPStep {
		lonpFrom, lonpTo := lonpMin, lonpMax
		if latp == projection.MaxLat {
			lonpFrom, lonpTo = 0, 0
		}
		for lonp := lonpFrom; lonp <= lonpTo; lonp += a.Params.LonPStep {
			if a.Params.PerformHeuristic && aspect != projection.NormalAspect {
				if !lonpHeur.Contains(lonp) || !latpHeur.Contains(latp) {
					continue
				}
			}
			for lat0 := lat0Interval.Min; lat0 <= lat0Interval.Max; lat0 += a.Params.Lat0Step {
				crit := 0.0
				if a.Params.PerformHeuristic {
					crit = a.complexityCriterion(ds, p, latp, lonp, lat0)
					critSum += crit
				}
				out = append(out, PolePosition{Latp: latp, Lonp: lonp, Lat0: lat0, Crit: crit})
			}
			if latp == projection.MaxLat {
				break
			}
		}
		if aspect == projection.TransverseAspect {
			break
		}
	}

	if a.Params.PerformHeuristic && len(out) > complexityFilterMin {
		limit := 2.0 * critSum / float64(len(out))
		kept := out[:0]
		for _, pos := range out {
			if pos.Crit <= limit {
				kept = append(kept, pos)
			}
		}
		out = kept
		sort.Slice(out, func(i, j int) bool { return out[i].Latp < out[j].Latp })
	}
	return out
}

// complexityCriterion scores one pole position by the Tissot distortion at
// the two extreme corners of the transformed bounding box:
// 0.5(|h-1|+|k-1|) + h/k - 1, weighted by cos(lat).
func (a *Analyzer) complexityCriterion(ds *Dataset, p *projection.Projection, latp, lonp, lat0 float64) float64 {
	save := p.Save()
	defer p.Restore(save)

	p.CartPole = projection.GeoPoint{Lat: latp, Lon: lonp}
	p.Lat0 = lat0

	// Transformed bounding box of the reference set
	latMin, lonMin := projection.MaxLat, projection.MaxLon
	latMax, lonMax := projection.MinLat, projection.MinLon
	for _, gp := range ds.Reference {
		latTrans := projection.LatToLatTrans(gp.Lat, gp.Lon, latp, lonp)
		lonTrans := projection.LonToLonTrans(gp.Lat, gp.Lon, latTrans, latp, lonp, p.Family.LonDir)
		latMin = math.Min(latMin, latTrans)
		latMax = math.Max(latMax, latTrans)
		lonMin = math.Min(lonMin, lonTrans)
		lonMax = math.Max(lonMax, lonTrans)
	}

	corners := [][2]float64{{latMin, lonMin}, {latMax, lonMax}}

	var crit, weightSum float64
	for _, c := range corners {
		h, errH := p.DistortionH(c[0], c[1])
		k, errK := p.DistortionK(c[0], c[1])
		if errH != nil || errK != nil {
			h, k = 1, 1
		}
		if h < k {
			h, k = k, h
		}
		if k == 0 {
			continue
		}
		weight := math.Cos(c[0] * math.Pi / 180)
		crit += (0.5*(math.Abs(h-1)+math.Abs(k-1)) + h/k - 1) * weight
		weightSum += weight
	}
	if weightSum == 0 {
		return 0
	}
	return crit / weightSum
}
