package analysis

import (
	"fmt"
	"math"

	"projdetect/internal/projection"
	"projdetect/internal/transform"
	"projdetect/internal/turning"
	"projdetect/pkg/geometry"
)

// Shape heuristic tuning.
const (
	// RemDivRotAngle is the tolerated deviation, degrees, of the Helmert
	// rotation from a multiple of 90 degrees.
	RemDivRotAngle = 2.0
	// MatchingFactor scales the circular match tolerance of the heuristic.
	MatchingFactor = 0.1
	// TurningFunctionMaxDifference bounds the per-point turning distance
	// of a graticule line before a candidate is dismissed.
	TurningFunctionMaxDifference = 1.5
	// minHeuristicMatch is the fraction of points that must match inside
	// the tolerance circle.
	minHeuristicMatch = 75.0
	// ImproveRatioStdDev triggers the rotation correction when the
	// Helmert fit beats the homothetic fit by this factor.
	ImproveRatioStdDev = 2.0
)

// analyzeOneSample evaluates the full criterion battery of one candidate:
// singular removal, optional outlier rejection, the shape heuristic gate,
// the similarity/nearest-neighbour/turning criteria and the optional
// rotation-corrected second pass. It reports errSampleRejected when the
// heuristic dismisses the candidate.
func (a *Analyzer) analyzeOneSample(ds *Dataset, p *projection.Projection, sample *Sample) error {
	reference := reduceLon(ds.Reference, p.Lon0)

	test, reference, survivors := removeSingularPoints(ds.Test, reference, p.CartPole)
	nNonSing := len(test)
	if nNonSing < 2 {
		return fmt.Errorf("no non-singular points under pole (%.2f, %.2f): %w", p.CartPole.Lat, p.CartPole.Lon, ErrBadData)
	}

	meridians, parallels := ds.Meridians, ds.Parallels
	singularFound := nNonSing != len(ds.Test)
	if singularFound {
		meridians, parallels = remapLines(meridians, parallels, survivors)
	}

	*sample = newSample(p)
	sample.SingularPointsFound = singularFound
	sample.NonSingular = survivors

	// Forward-project the surviving reference points. A projection failure
	// here discards the whole candidate.
	projected := make([]geometry.Point2D, nNonSing)
	for i, gp := range reference {
		pt, err := p.Project(gp.Lat, gp.Lon)
		if err != nil {
			return fmt.Errorf("candidate %s: %w", p.Family.Name, err)
		}
		projected[i] = pt
	}

	// Outlier rejection over the aligned pair lists
	kBest := make([]int, nNonSing)
	for i := range kBest {
		kBest[i] = i
	}
	testBest, projectedBest := test, projected
	meridiansBest, parallelsBest := meridians, parallels

	if a.Params.RemoveOutliers {
		irls, err := transform.FindOutliersIRLS(projected, test)
		if err != nil {
			return fmt.Errorf("outlier rejection: %w", err)
		}
		if len(irls.KBest) != nNonSing {
			sample.OutliersFound = true
			kBest = irls.KBest
			testBest = geometry.Select(test, kBest)
			projectedBest = geometry.Select(projected, kBest)
			meridiansBest, parallelsBest = remapLines(meridians, parallels, kBest)
		}
	}
	sample.KBest = kBest
	nBest := len(kBest)

	if a.Params.PerformHeuristic {
		if !checkSample(meridiansBest, parallelsBest, testBest, projectedBest, a.Params.Sensitivity) {
			return fmt.Errorf("candidate %s latp=%.1f lonp=%.1f lat0=%.1f: %w",
				p.Family.Name, p.CartPole.Lat, p.CartPole.Lon, p.Lat0, errSampleRejected)
		}
	}

	multRatio := 2.0 - float64(nBest)/float64(nNonSing)

	// Uncertainty ellipses for the Tissot match variant
	var ellipses []transform.Ellipse
	if a.Params.Match == MatchTissot {
		ellipses = a.tissotEllipses(p, geometry.Select(toPoints(reference), kBest))
	}

	// The Helmert criterion is rotation-blind: one evaluation serves both
	// the plain and the rotation-corrected pass.
	a.analyzeHelmert(sample, testBest, projectedBest, ellipses, multRatio)

	rotSample := *sample
	target := sample
	testCur := testBest

	for pass := 0; pass < 2; pass++ {
		if a.Params.Criteria.Homothetic {
			a.analyzeHomothetic(target, testCur, projectedBest, ellipses, multRatio)
		}
		if a.Params.Criteria.CrossNN {
			a.analyzeCrossNN(target, testCur, projectedBest, multRatio)
		}
		if a.Params.Criteria.GraticuleTF {
			a.analyzeGraticuleTF(target, testCur, projectedBest, meridiansBest, parallelsBest, multRatio)
		}
		if a.Params.Criteria.VoronoiTF {
			a.analyzeVoronoiTF(target, testCur, projectedBest, multRatio)
		}

		rotAngle := target.Rotation
		improves := a.Params.CorrectRotation &&
			ImproveRatioStdDev*target.Helmert.Value < target.Homothetic.Value
		nearQuarterTurn := math.Mod(math.Abs(rotAngle)+RemDivRotAngle, 90) < 2*RemDivRotAngle &&
			math.Abs(rotAngle) > projection.MaxLat-RemDivRotAngle

		if pass == 0 && improves && nearQuarterTurn {
			// One corrected pass: undo the estimated rotation on the test
			// points and re-run the rotation-sensitive criteria.
			rad := rotAngle * math.Pi / 180
			rotated := make([]geometry.Point2D, len(testBest))
			for i, pt := range testBest {
				rotated[i] = pt.Rotate(rad)
			}
			rotSample = *sample
			rotSample.Rotated = true
			target = &rotSample
			testCur = rotated
			continue
		}
		break
	}

	if rotSample.Rotated {
		*sample = rotSample
	}
	return nil
}

// checkSample is the shape heuristic: a candidate survives only when the
// full-set alignment is nearly axis-aligned, at least 75% of points match
// inside the tolerance circle, and the prime meridian/equator/pole lines
// (or the median lines when absent) have similar turning functions.
func checkSample(meridians []Meridian, parallels []Parallel, test, projected []geometry.Point2D, sensitivity float64) bool {
	transformed, key, err := transform.HelmertTransform(projected, test, nil)
	if err != nil {
		return false
	}

	rot := key.RotationDeg()
	if math.Mod(math.Abs(rot)+RemDivRotAngle, 90) > 2*RemDivRotAngle {
		return false
	}

	if ratio, _ := transform.MatchRatioCircle(test, transformed, MatchingFactor*sensitivity); ratio < minHeuristicMatch {
		return false
	}

	lineOK := func(indices []int, n int) bool {
		testLine := geometry.Select(test, indices)
		projLine := geometry.Select(projected, indices)
		d, err := turning.Distance(testLine, projLine, turning.RotationInvariant)
		if err != nil {
			// Too short to compare, not a reason to dismiss
			return true
		}
		return d <= TurningFunctionMaxDifference*float64(n)*sensitivity
	}

	primeFound, equatorFound := false, false
	for _, m := range meridians {
		if m.Lon == 0 {
			if !lineOK(m.Indices, len(m.Indices)) {
				return false
			}
			primeFound = true
		}
	}
	for _, p := range parallels {
		if p.Lat == 0 {
			if !lineOK(p.Indices, len(p.Indices)) {
				return false
			}
			equatorFound = true
		}
		if p.Lat == projection.MaxLat || p.Lat == projection.MinLat {
			if !lineOK(p.Indices, len(p.Indices)) {
				return false
			}
		}
	}

	if !primeFound && len(meridians) > 0 {
		m := meridians[medianLine(len(meridians))]
		if !lineOK(m.Indices, len(m.Indices)) {
			return false
		}
	}
	if !equatorFound && len(parallels) > 0 {
		p := parallels[medianLine(len(parallels))]
		if !lineOK(p.Indices, len(p.Indices)) {
			return false
		}
	}
	return true
}

func (a *Analyzer) analyzeHelmert(s *Sample, test, projected []geometry.Point2D, ellipses []transform.Ellipse, multRatio float64) {
	transformed, key, err := transform.HelmertTransform(projected, test, nil)
	if err != nil {
		s.Helmert = unavailable()
		s.HelmertMatch = 0
		return
	}

	acc := transform.AccuracyFor(transformed, test)
	var perc float64
	var matched []int
	if a.Params.Match == MatchTissot && ellipses != nil {
		perc, matched = transform.MatchRatioEllipse(test, transformed, ellipses, 0.5)
	} else {
		perc, matched = transform.MatchRatioCircle(test, transformed, 0.1)
	}

	s.Helmert = available(multRatio * acc.StdDev)
	s.HelmertMatch = int(perc)
	s.HelmertMatched = matched
	s.ScaleHelT = key.Scale()
	s.Rotation = key.RotationDeg()
	s.Dx, s.Dy = key.Shift()
}

func (a *Analyzer) analyzeHomothetic(s *Sample, test, projected []geometry.Point2D, ellipses []transform.Ellipse, multRatio float64) {
	transformed, key, err := transform.HomotheticTransform(projected, test, nil)
	if err != nil {
		s.Homothetic = unavailable()
		s.HomotheticMatch = 0
		return
	}

	acc := transform.AccuracyFor(transformed, test)
	var perc float64
	var matched []int
	if a.Params.Match == MatchTissot && ellipses != nil {
		perc, matched = transform.MatchRatioEllipse(test, transformed, ellipses, 0.5)
	} else {
		perc, matched = transform.MatchRatioCircle(test, transformed, 0.1)
	}

	s.Homothetic = available(multRatio * acc.StdDev)
	s.HomotheticMatch = int(perc)
	s.HomotheticMatched = matched
	s.ScaleHomT = key.C
}

func (a *Analyzer) analyzeCrossNN(s *Sample, test, projected []geometry.Point2D, multRatio float64) {
	transformed, _, err := transform.HomotheticTransform(projected, test, nil)
	if err != nil {
		s.CrossNN = unavailable()
		return
	}
	s.CrossNN = available(multRatio * transform.CrossNearestNeighbourDistance(test, transformed))
}

func (a *Analyzer) analyzeGraticuleTF(s *Sample, test, projected []geometry.Point2D, meridians []Meridian, parallels []Parallel, multRatio float64) {
	if len(meridians) == 0 && len(parallels) == 0 {
		s.GraticuleTF = unavailable()
		return
	}

	var total float64
	for _, m := range meridians {
		d, err := turning.Distance(geometry.Select(test, m.Indices), geometry.Select(projected, m.Indices), turning.RotationDependent)
		if err != nil {
			s.GraticuleTF = unavailable()
			return
		}
		total += d
	}
	for _, p := range parallels {
		d, err := turning.Distance(geometry.Select(test, p.Indices), geometry.Select(projected, p.Indices), turning.RotationDependent)
		if err != nil {
			s.GraticuleTF = unavailable()
			return
		}
		total += d
	}
	s.GraticuleTF = available(multRatio * total)
}

func (a *Analyzer) analyzeVoronoiTF(s *Sample, test, projected []geometry.Point2D, multRatio float64) {
	cellRatio := a.CellRatio
	if cellRatio == nil {
		cellRatio = noCellRatio
	}
	v, err := cellRatio(test, projected)
	if err != nil {
		s.VoronoiTF = unavailable()
		return
	}
	s.VoronoiTF = available(multRatio * math.Sqrt(v))
}

// tissotEllipses computes the per-point uncertainty ellipses of the match
// test from the local distortion of the candidate projection.
func (a *Analyzer) tissotEllipses(p *projection.Projection, reference []geometry.Point2D) []transform.Ellipse {
	out := make([]transform.Ellipse, len(reference))
	for i, gp := range reference {
		latTrans := projection.LatToLatTrans(gp.Y, gp.X, p.CartPole.Lat, p.CartPole.Lon)
		lonTrans := projection.LonToLonTrans(gp.Y, gp.X, latTrans, p.CartPole.Lat, p.CartPole.Lon, p.Family.LonDir)
		tiss, err := p.TissotAt(latTrans, lonTrans)
		if err != nil {
			out[i] = transform.Ellipse{A: 1, B: 1}
			continue
		}
		out[i] = transform.Ellipse{A: tiss.A, B: tiss.B, Ae: tiss.Ae}
	}
	return out
}

// toPoints flattens geographic points into planar lon/lat pairs, used only
// to reuse index selection helpers.
func toPoints(reference []projection.GeoPoint) []geometry.Point2D {
	out := make([]geometry.Point2D, len(reference))
	for i, p := range reference {
		out[i] = geometry.Point2D{X: p.Lon, Y: p.Lat}
	}
	return out
}
