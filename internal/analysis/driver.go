package analysis

import (
	"errors"
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"projdetect/internal/optimize"
	"projdetect/internal/projection"
)

// Optimizer tolerances mirroring the search tuning of the analysis.
const (
	nmEpsilonNormal  = 1.0e-10
	nmEpsilonOblique = 1.0e-8
	nmMaxIterations  = 500
	deEpsilon        = 1.0e-9
	nlsEpsilon       = 1.0e-8
	nlsMaxIterations = 200
)

// Analyzer runs the projection detection over a dataset.
type Analyzer struct {
	Params Parameters
	Logger *zap.Logger

	// CellRatio is the query hook into the Voronoi shape-descriptor
	// subsystem; nil leaves the criterion unavailable.
	CellRatio CellRatioFunc

	rng *rand.Rand
}

// NewAnalyzer builds an analyzer. A nil logger disables logging.
func NewAnalyzer(params Parameters, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{
		Params: params,
		Logger: logger,
		rng:    rand.New(rand.NewSource(params.Seed)),
	}
}

// Run analyzes every candidate family and returns the ranked sample list.
func (a *Analyzer) Run(ds *Dataset, families []*projection.Family) ([]Sample, error) {
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	if a.rng == nil {
		a.rng = rand.New(rand.NewSource(a.Params.Seed))
	}

	var samples []Sample

	// Pre-specified target hypotheses run once at published parameters
	if len(a.Params.AnalyzedProjections) > 0 {
		created := 0
		for _, tp := range a.Params.AnalyzedProjections {
			s, err := a.runTarget(ds, tp)
			if err != nil {
				a.logDiscardErr(tp.Family, err)
				continue
			}
			samples = append(samples, s)
			created++
		}
		if created == 0 {
			return nil, fmt.Errorf("no analyzed projection survived the similarity checks: %w", ErrBadData)
		}
	}

	for _, family := range families {
		n, err := a.runFamily(ds, family, &samples)
		if err != nil {
			a.Logger.Warn("family aborted", zap.String("family", family.Name), zap.Error(err))
			continue
		}
		a.Logger.Info("family analyzed", zap.String("family", family.Name), zap.Int("samples", n))
	}

	RankSamples(samples, a.Params.Criteria)
	return samples, nil
}

// runFamily analyzes one family with the selected optimizer. The
// projection instance is always restored before returning.
func (a *Analyzer) runFamily(ds *Dataset, family *projection.Family, samples *[]Sample) (created int, err error) {
	p := projection.New(family)
	save := p.Save()
	defer p.Restore(save)

	before := len(*samples)
	switch a.Params.Optimizer {
	case GridSearch:
		err = a.runGridSearch(ds, p, samples)
	case NelderMead:
		err = a.runSimplex(ds, p, samples)
	case DifferentialEvolution:
		err = a.runDE(ds, p, samples)
	case LeastSquares:
		err = a.runLeastSquares(ds, p, samples)
	default:
		err = fmt.Errorf("unknown optimizer %d: %w", a.Params.Optimizer, ErrBadData)
	}
	return len(*samples) - before, err
}

// runTarget evaluates one pre-specified hypothesis.
func (a *Analyzer) runTarget(ds *Dataset, tp TargetProjection) (Sample, error) {
	family := projection.FindFamily(tp.Family)
	if family == nil {
		return Sample{}, fmt.Errorf("unknown family %q: %w", tp.Family, ErrBadData)
	}
	p := projection.New(family)
	p.R = tp.R
	if p.R == 0 {
		p.R = 1
	}
	p.CartPole = projection.GeoPoint{Lat: tp.Latp, Lon: tp.Lonp}
	p.Lat0 = tp.Lat0
	p.Lon0 = tp.Lon0
	if tp.C != 0 {
		p.C = tp.C
	}

	var s Sample
	if err := a.analyzeOneSample(ds, p, &s); err != nil {
		return Sample{}, err
	}
	s.IsTarget = true
	return s, nil
}

// aspects lists the enabled aspects in canonical order.
func (a *Analyzer) aspects() []projection.Aspect {
	var out []projection.Aspect
	if a.Params.AnalyzeNormal {
		out = append(out, projection.NormalAspect)
	}
	if a.Params.AnalyzeTransverse {
		out = append(out, projection.TransverseAspect)
	}
	if a.Params.AnalyzeOblique {
		out = append(out, projection.ObliqueAspect)
	}
	return out
}

// heuristicIntervals resolves the latp/lonp search intervals of a family,
// optionally shrunk by the data extent.
func (a *Analyzer) heuristicIntervals(ds *Dataset, family *projection.Family) (latp, lonp projection.Interval) {
	latp = family.LatPInterval
	lonp = family.LonPInterval
	if a.Params.PerformHeuristic {
		findLatPLonPIntervals(ds, family, &latp, &lonp)
	}
	return latp, lonp
}

// runGridSearch evaluates the criterion battery at every pole position of
// every enabled aspect.
func (a *Analyzer) runGridSearch(ds *Dataset, p *projection.Projection, samples *[]Sample) error {
	latpHeur, lonpHeur := a.heuristicIntervals(ds, p.Family)

	for _, aspect := range a.aspects() {
		positions := a.enumeratePolePositions(ds, p, aspect, latpHeur, lonpHeur)
		for _, pos := range positions {
			save := p.Save()
			p.CartPole = projection.GeoPoint{Lat: pos.Latp, Lon: pos.Lonp}
			p.Lat0 = pos.Lat0

			var s Sample
			if err := a.analyzeOneSample(ds, p, &s); err != nil {
				a.logDiscard(p, err)
				p.Restore(save)
				continue
			}
			// The similarity scale relates the working radius to the map
			s.R = p.R * s.ScaleHelT
			*samples = append(*samples, s)
			p.Restore(save)
		}
	}
	return nil
}

// initialRadius estimates R from a similarity-only analysis in the
// family's default placement.
func (a *Analyzer) initialRadius(ds *Dataset, p *projection.Projection) float64 {
	save := p.Save()
	defer p.Restore(save)

	probe := *a
	probe.Params.Criteria = CriteriaSet{Helmert: true}
	probe.Params.PerformHeuristic = false
	probe.Params.RemoveOutliers = false
	probe.Params.CorrectRotation = false

	var s Sample
	if err := probe.analyzeOneSample(ds, p, &s); err != nil || s.ScaleHelT == 0 {
		return p.R
	}
	return p.R * s.ScaleHelT
}

// searchBox assembles the parameter bounds (R, latp, lonp, lat0, lon0) of
// one aspect.
func (a *Analyzer) searchBox(ds *Dataset, family *projection.Family, aspect projection.Aspect,
	rInit float64, latpHeur, lonpHeur projection.Interval) (xmin, xmax []float64) {

	lat0 := family.Lat0Interval
	lonExt := ds.LonExtent()

	xmin = make([]float64, 5)
	xmax = make([]float64, 5)
	xmin[0], xmax[0] = 0.1*rInit, 10*rInit
	xmin[3], xmax[3] = lat0.Min, lat0.Max

	switch aspect {
	case projection.NormalAspect:
		xmin[1], xmax[1] = projection.MaxLat, projection.MaxLat
		xmin[2], xmax[2] = 0, 0
		if lonpHeur.Min <= lonpHeur.Max {
			xmin[4], xmax[4] = lonExt.Min, lonExt.Max
		} else {
			xmin[4], xmax[4] = projection.MinLon, lonExt.Min
		}

	case projection.TransverseAspect:
		xmin[1], xmax[1] = 0, 0
		if lonpHeur.Min <= lonpHeur.Max {
			xmin[2], xmax[2] = lonpHeur.Min, lonpHeur.Max
		} else {
			xmin[2], xmax[2] = projection.MinLon, lonpHeur.Max
		}
		xmin[4], xmax[4] = 0, 0

	case projection.ObliqueAspect:
		xmin[1], xmax[1] = latpHeur.Min, latpHeur.Max
		if lonpHeur.Min <= lonpHeur.Max {
			xmin[2], xmax[2] = lonpHeur.Min, lonpHeur.Max
		} else {
			xmin[2], xmax[2] = projection.MinLon, lonpHeur.Max
		}
		xmin[4], xmax[4] = 0, 0
	}
	return xmin, xmax
}

// finalizeCandidate re-evaluates the optimizer's best vector, runs the
// full criterion battery at it and applies the interval containment
// post-filter. Returns false when the candidate is rejected.
func (a *Analyzer) finalizeCandidate(ds *Dataset, p *projection.Projection, rf *residualFunc,
	x []float64, aspect projection.Aspect, lonpHeur projection.Interval) (Sample, bool) {

	rf.sanitize(x)

	lat0OK := p.Family.Lat0Interval.Contains(x[3])
	lonpOK := aspect != projection.TransverseAspect || lonpHeur.Contains(x[2])
	if !lat0OK || !lonpOK {
		return Sample{}, false
	}

	var s Sample
	rf.sample = &s
	rf.computeAnalysis = false
	if _, _, err := rf.eval(x); err != nil {
		a.logDiscard(p, err)
		return Sample{}, false
	}
	if err := a.analyzeOneSample(ds, p, &s); err != nil {
		a.logDiscard(p, err)
		return Sample{}, false
	}
	s.R = p.R
	return s, true
}

// runSimplex minimizes each enabled aspect with Nelder-Mead from a random
// initial simplex.
func (a *Analyzer) runSimplex(ds *Dataset, p *projection.Projection, samples *[]Sample) error {
	latpHeur, lonpHeur := a.heuristicIntervals(ds, p.Family)
	rInit := a.initialRadius(ds, p)

	for _, aspect := range a.aspects() {
		save := p.Save()

		xmin, xmax := a.searchBox(ds, p.Family, aspect, rInit, latpHeur, lonpHeur)
		dx := make([]float64, len(xmin))
		for j := range dx {
			dx[j] = xmax[j] - xmin[j]
		}
		// A tight radius span keeps the simplex well conditioned
		xmin[0] = 0.99 * rInit
		dx[0] = 0.02 * rInit

		eps := nmEpsilonOblique
		if aspect == projection.NormalAspect {
			eps = nmEpsilonNormal
		}

		rf := newResidualFunc(a, ds, p, aspect, nil)
		simplex := optimize.RandSimplex(xmin, dx, a.rng)
		result, err := optimize.NelderMead(rf.eval, simplex, eps, nmMaxIterations)
		if err != nil {
			p.Restore(save)
			return fmt.Errorf("simplex (%s): %w", aspect, err)
		}

		if s, ok := a.finalizeCandidate(ds, p, rf, result.X, aspect, lonpHeur); ok {
			*samples = append(*samples, s)
		}
		p.Restore(save)
	}
	return nil
}

// runDE minimizes each enabled aspect with differential evolution. A
// wrapped heuristic lonp interval is solved as two boxes.
func (a *Analyzer) runDE(ds *Dataset, p *projection.Projection, samples *[]Sample) error {
	latpHeur, lonpHeur := a.heuristicIntervals(ds, p.Family)
	rInit := a.initialRadius(ds, p)

	for _, aspect := range a.aspects() {
		boxes := a.deBoxes(ds, p.Family, aspect, rInit, latpHeur, lonpHeur)
		for _, box := range boxes {
			save := p.Save()

			rf := newResidualFunc(a, ds, p, aspect, nil)
			result, err := optimize.DiffEvolution(rf.eval, box[0], box[1], optimize.DEOptions{
				MaxGenerations: a.Params.MaxGenerations,
				Epsilon:        deEpsilon,
				F:              0.8,
				CR:             0.5,
				Strategy:       a.Params.DEStrategy,
				Control:        a.Params.DEControl,
				Rng:            a.rng,
			})
			if err != nil {
				p.Restore(save)
				return fmt.Errorf("differential evolution (%s): %w", aspect, err)
			}

			if s, ok := a.finalizeCandidate(ds, p, rf, result.X, aspect, lonpHeur); ok {
				*samples = append(*samples, s)
			}
			p.Restore(save)
		}
	}
	return nil
}

// deBoxes splits the search box when the heuristic lonp interval wraps
// across the antimeridian.
func (a *Analyzer) deBoxes(ds *Dataset, family *projection.Family, aspect projection.Aspect,
	rInit float64, latpHeur, lonpHeur projection.Interval) [][2][]float64 {

	xmin, xmax := a.searchBox(ds, family, aspect, rInit, latpHeur, lonpHeur)
	boxes := [][2][]float64{{xmin, xmax}}

	if lonpHeur.Min > lonpHeur.Max {
		second := [2][]float64{
			append([]float64(nil), xmin...),
			append([]float64(nil), xmax...),
		}
		idx := 2
		if aspect == projection.NormalAspect {
			idx = 4
		}
		second[0][idx] = lonpHeur.Min
		second[1][idx] = projection.MaxLon
		boxes = append(boxes, second)
	}
	return boxes
}

// runLeastSquares refines each enabled aspect with the damped least
// squares descent from the interval midpoints.
func (a *Analyzer) runLeastSquares(ds *Dataset, p *projection.Projection, samples *[]Sample) error {
	latpHeur, lonpHeur := a.heuristicIntervals(ds, p.Family)
	rInit := a.initialRadius(ds, p)
	lat0 := p.Family.Lat0Interval

	lonMean := 0.0
	for _, gp := range ds.Reference {
		lonMean += gp.Lon
	}
	lonMean /= float64(len(ds.Reference))

	for _, aspect := range a.aspects() {
		save := p.Save()

		x0 := []float64{rInit, projection.MaxLat, 0, lat0.Mid(), 0}
		switch aspect {
		case projection.NormalAspect:
			x0[4] = lonMean
		case projection.TransverseAspect:
			x0[1] = 0
			x0[2] = lonpHeur.Mid()
		case projection.ObliqueAspect:
			x0[1] = latpHeur.Mid()
			x0[2] = lonpHeur.Mid()
		}

		rf := newResidualFunc(a, ds, p, aspect, nil)
		result, err := optimize.NonLinearLeastSquares(rf.eval, x0, rf.weights, optimize.NLSOptions{
			Epsilon:       nlsEpsilon,
			MaxIterations: nlsMaxIterations,
		})
		if err != nil {
			p.Restore(save)
			a.logDiscard(p, err)
			continue
		}

		if s, ok := a.finalizeCandidate(ds, p, rf, result.X, aspect, lonpHeur); ok {
			*samples = append(*samples, s)
		}
		p.Restore(save)
	}
	return nil
}

func (a *Analyzer) logDiscard(p *projection.Projection, err error) {
	if !a.Params.PrintExceptions && errors.Is(err, errSampleRejected) {
		return
	}
	if a.Params.PrintExceptions {
		a.Logger.Debug("sample discarded",
			zap.String("family", p.Family.Name),
			zap.Float64("latp", p.CartPole.Lat),
			zap.Float64("lonp", p.CartPole.Lon),
			zap.Float64("lat0", p.Lat0),
			zap.Error(err))
	}
}

func (a *Analyzer) logDiscardErr(family string, err error) {
	if a.Params.PrintExceptions {
		a.Logger.Debug("target discarded", zap.String("family", family), zap.Error(err))
	}
}
