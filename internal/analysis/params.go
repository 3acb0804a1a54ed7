package analysis

import (
	"projdetect/internal/optimize"
)

// OptimizerKind selects the search method of the analysis.
type OptimizerKind int

const (
	GridSearch OptimizerKind = iota
	NelderMead
	DifferentialEvolution
	LeastSquares
)

func (o OptimizerKind) String() string {
	switch o {
	case GridSearch:
		return "grid"
	case NelderMead:
		return "simplex"
	case DifferentialEvolution:
		return "de"
	case LeastSquares:
		return "nls"
	}
	return "unknown"
}

// MatchMethod selects the uncertainty region of the point match test.
type MatchMethod int

const (
	MatchCircle MatchMethod = iota
	MatchTissot
)

// CriteriaSet enables individual cartometric criteria.
type CriteriaSet struct {
	CrossNN     bool
	Homothetic  bool
	Helmert     bool
	GraticuleTF bool
	VoronoiTF   bool
}

// AllCriteria enables the full battery.
func AllCriteria() CriteriaSet {
	return CriteriaSet{CrossNN: true, Homothetic: true, Helmert: true, GraticuleTF: true, VoronoiTF: true}
}

// Parameters configures one analysis run.
type Parameters struct {
	Optimizer OptimizerKind

	AnalyzeNormal     bool
	AnalyzeTransverse bool
	AnalyzeOblique    bool

	// PerformHeuristic enables the data-driven interval shrinking, the
	// complexity pre-filter on pole positions and the shape heuristic.
	PerformHeuristic bool
	// Sensitivity scales the shape heuristic tolerances.
	Sensitivity float64

	// Angular grid steps, degrees, for the grid search.
	Lat0Step float64
	LatPStep float64
	LonPStep float64

	RemoveOutliers  bool
	CorrectRotation bool
	Match           MatchMethod

	Criteria CriteriaSet

	PrintExceptions bool
	PrintedResults  int

	// AnalyzedProjections optionally pins target hypotheses; each is run
	// once at its published parameters and its sample flagged.
	AnalyzedProjections []TargetProjection

	// MaxGenerations bounds the differential evolution search.
	MaxGenerations int
	// DEStrategy and DEControl select the differential evolution mutation
	// strategy and adaptive-control scheme.
	DEStrategy optimize.MutationStrategy
	DEControl  optimize.AdaptiveControl
	// Seed makes the randomized optimizers reproducible.
	Seed int64
}

// TargetProjection is a pre-specified hypothesis: a family at published
// parameters.
type TargetProjection struct {
	Family string
	R      float64
	Latp   float64
	Lonp   float64
	Lat0   float64
	Lon0   float64
	C      float64
}

// DefaultParameters returns the canonical analysis setup: grid search over
// the normal aspect with the full criterion battery.
func DefaultParameters() Parameters {
	return Parameters{
		Optimizer:        GridSearch,
		AnalyzeNormal:    true,
		PerformHeuristic: true,
		Sensitivity:      1.0,
		Lat0Step:         10,
		LatPStep:         10,
		LonPStep:         10,
		RemoveOutliers:   false,
		CorrectRotation:  false,
		Match:            MatchCircle,
		Criteria:         AllCriteria(),
		PrintedResults:   20,
		MaxGenerations:   1000,
		DEStrategy:       optimize.DEBest2,
		DEControl:        optimize.AdaptiveNone,
		Seed:             1,
	}
}
