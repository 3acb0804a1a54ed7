package analysis

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projdetect/internal/projection"
	"projdetect/pkg/geometry"
)

// gridDataset builds a dataset whose test points are the forward
// projection of a lat/lon grid under the given projection, optionally
// transformed afterwards.
func gridDataset(t *testing.T, p *projection.Projection, mutate func(geometry.Point2D) geometry.Point2D) *Dataset {
	t.Helper()

	lats := []float64{0, 15, 30, 45}
	lons := []float64{0, 15, 30, 45}

	ds := &Dataset{}
	id := 0
	for _, lat := range lats {
		for _, lon := range lons {
			pt, err := p.Project(lat, lon)
			require.NoError(t, err)
			if mutate != nil {
				pt = mutate(pt)
			}
			ds.Test = append(ds.Test, pt)
			ds.Reference = append(ds.Reference, projection.GeoPoint{ID: id, Lat: lat, Lon: lon})
			id++
		}
	}
	return ds
}

func testParams() Parameters {
	params := DefaultParameters()
	params.PerformHeuristic = false
	params.Lat0Step = 30
	params.Criteria = CriteriaSet{CrossNN: true, Homothetic: true, Helmert: true}
	return params
}

func TestIdentityProjectionRecovery(t *testing.T) {
	truth := projection.New(projection.FindFamily("eqdc"))
	truth.Lat0 = 0
	ds := gridDataset(t, truth, nil)

	a := NewAnalyzer(testParams(), nil)
	samples, err := a.Run(ds, []*projection.Family{projection.FindFamily("eqdc")})
	require.NoError(t, err)
	require.NotEmpty(t, samples)

	best := samples[0]
	assert.Equal(t, "eqdc", best.Family.Name)
	assert.InDelta(t, 1.0, best.R, 1e-6)
	assert.InDelta(t, projection.MaxLat, best.Latp, 1e-9)
	assert.InDelta(t, 0.0, best.Lonp, 1e-9)
	assert.InDelta(t, 0.0, best.Lat0, 1e-9)
	assert.InDelta(t, 0.0, best.Lon0, 1e-9)
	assert.InDelta(t, 0.0, best.Rotation, 1e-6)
	assert.Less(t, best.Helmert.Value, 1e-6)
}

func TestPureRotationRecovery(t *testing.T) {
	truth := projection.New(projection.FindFamily("eqdc"))
	truth.Lat0 = 0
	angle := 30.0 * math.Pi / 180
	ds := gridDataset(t, truth, func(p geometry.Point2D) geometry.Point2D {
		return p.Rotate(angle)
	})

	a := NewAnalyzer(testParams(), nil)
	samples, err := a.Run(ds, []*projection.Family{projection.FindFamily("eqdc")})
	require.NoError(t, err)
	require.NotEmpty(t, samples)

	best := samples[0]
	assert.InDelta(t, 30.0, best.Rotation, 1e-6)
	assert.InDelta(t, 0.0, best.Lat0, 1e-9)
	assert.Less(t, best.Helmert.Value, 1e-6)
}

func TestMercatorRadiusRecoveryNLS(t *testing.T) {
	truth := projection.New(projection.FindFamily("merc"))
	truth.R = 6378
	ds := &Dataset{}
	for i, gp := range []projection.GeoPoint{
		{Lat: 0, Lon: 0}, {Lat: 0, Lon: 45}, {Lat: 45, Lon: 0}, {Lat: 45, Lon: 45},
	} {
		pt, err := truth.Project(gp.Lat, gp.Lon)
		require.NoError(t, err)
		gp.ID = i
		ds.Test = append(ds.Test, pt)
		ds.Reference = append(ds.Reference, gp)
	}

	params := testParams()
	params.Optimizer = LeastSquares
	a := NewAnalyzer(params, nil)

	samples, err := a.Run(ds, []*projection.Family{projection.FindFamily("merc")})
	require.NoError(t, err)
	require.NotEmpty(t, samples)

	best := samples[0]
	assert.InDelta(t, 6378.0, best.R, 6378*1e-4)
	assert.Less(t, best.Helmert.Value, 1e-4)
}

func TestTransverseMercatorLonpRecoveryDE(t *testing.T) {
	truth := projection.New(projection.FindFamily("merc"))
	truth.CartPole = projection.GeoPoint{Lat: 0, Lon: 45}

	ds := &Dataset{}
	for i, gp := range []projection.GeoPoint{
		{Lat: 10, Lon: 10}, {Lat: 20, Lon: 40}, {Lat: 40, Lon: 20},
		{Lat: 45, Lon: 45}, {Lat: 30, Lon: 0}, {Lat: 5, Lon: 30},
	} {
		pt, err := truth.Project(gp.Lat, gp.Lon)
		require.NoError(t, err)
		gp.ID = i
		ds.Test = append(ds.Test, pt)
		ds.Reference = append(ds.Reference, gp)
	}

	params := testParams()
	params.Optimizer = DifferentialEvolution
	params.AnalyzeNormal = false
	params.AnalyzeTransverse = true
	params.MaxGenerations = 2000
	a := NewAnalyzer(params, nil)

	samples, err := a.Run(ds, []*projection.Family{projection.FindFamily("merc")})
	require.NoError(t, err)
	require.NotEmpty(t, samples)

	best := samples[0]
	assert.InDelta(t, 0.0, best.Latp, 1e-9)
	// The pole at lon -135 reproduces the same map rotated by 180
	// degrees, which the similarity absorbs; both optima are exact.
	dist := math.Min(math.Abs(best.Lonp-45), math.Abs(best.Lonp+135))
	assert.Less(t, dist, 0.1)
}

func TestOutlierRejection(t *testing.T) {
	truth := projection.New(projection.FindFamily("eqdc"))
	truth.Lat0 = 0
	ds := gridDataset(t, truth, nil)

	// Perturb one point far beyond the mean residual
	outlier := 5
	ds.Test[outlier] = ds.Test[outlier].Add(geometry.Point2D{X: 2, Y: -3})

	paramsKeep := testParams()
	paramsKeep.RemoveOutliers = false
	aKeep := NewAnalyzer(paramsKeep, nil)
	var kept Sample
	require.NoError(t, aKeep.analyzeOneSample(ds, projection.New(projection.FindFamily("eqdc")), &kept))

	paramsDrop := testParams()
	paramsDrop.RemoveOutliers = true
	aDrop := NewAnalyzer(paramsDrop, nil)
	var dropped Sample
	require.NoError(t, aDrop.analyzeOneSample(ds, projection.New(projection.FindFamily("eqdc")), &dropped))

	assert.True(t, dropped.OutliersFound)
	assert.NotContains(t, dropped.KBest, outlier)
	assert.Greater(t, kept.Homothetic.Value, 10*dropped.Homothetic.Value)
}

func TestSingularPoleInput(t *testing.T) {
	truth := projection.New(projection.FindFamily("sinu"))
	ds := gridDataset(t, truth, nil)

	// A point at the cartographic pole is singular and must be dropped
	ds.Test = append(ds.Test, geometry.Point2D{X: 0, Y: truth.R * math.Pi / 2})
	ds.Reference = append(ds.Reference, projection.GeoPoint{ID: 99, Lat: 90, Lon: 0})

	a := NewAnalyzer(testParams(), nil)
	var s Sample
	p := projection.New(projection.FindFamily("sinu"))
	require.NoError(t, a.analyzeOneSample(ds, p, &s))

	assert.True(t, s.SingularPointsFound)
	assert.Len(t, s.NonSingular, len(ds.Test)-1)
	assert.NotContains(t, s.NonSingular, len(ds.Test)-1)
	assert.Less(t, s.Helmert.Value, 1e-6)
}

func TestSingularRemovalIdempotent(t *testing.T) {
	pole := projection.GeoPoint{Lat: 90, Lon: 0}
	test := []geometry.Point2D{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 2}}
	ref := []projection.GeoPoint{
		{Lat: 90, Lon: 0},
		{Lat: 10, Lon: 180},
		{Lat: 20, Lon: 30},
	}

	t1, r1, idx1 := removeSingularPoints(test, ref, pole)
	require.Len(t, r1, 1)
	assert.Equal(t, []int{2}, idx1)

	t2, r2, idx2 := removeSingularPoints(t1, r1, pole)
	assert.Equal(t, t1, t2)
	assert.Equal(t, r1, r2)
	assert.Equal(t, []int{0}, idx2)

	for _, p := range r2 {
		assert.False(t, isSingular(p, pole))
	}
}

func TestRemapLinesDropsShortLines(t *testing.T) {
	meridians := []Meridian{
		{Lon: 0, Indices: []int{0, 1, 2, 3}},
		{Lon: 10, Indices: []int{4, 5, 6}},
	}
	parallels := []Parallel{{Lat: 0, Indices: []int{0, 4, 2}}}

	// Points 1 and 5 die
	survivors := []int{0, 2, 3, 4, 6}
	m, p := remapLines(meridians, parallels, survivors)

	require.Len(t, m, 1)
	assert.Equal(t, []int{0, 1, 2}, m[0].Indices)
	require.Len(t, p, 1)
	assert.Equal(t, []int{0, 3, 1}, p[0].Indices)
}

func TestSanitizerKeepsParametersAdmissible(t *testing.T) {
	ds := gridDataset(t, projection.New(projection.FindFamily("eqdc")), nil)
	a := NewAnalyzer(testParams(), nil)

	p := projection.New(projection.FindFamily("eqdc"))
	rf := newResidualFunc(a, ds, p, projection.ObliqueAspect, nil)

	x := []float64{1, 100, 200, 95, 30}
	rf.sanitize(x)

	assert.InDelta(t, 10.0, x[1], 1e-12)
	assert.InDelta(t, 20.0, x[2], 1e-12)
	assert.True(t, p.Family.Lat0Interval.Contains(x[3]))
	assert.Equal(t, 0.0, x[4])

	// Near-polar latp snaps to the normal aspect
	x = []float64{1, 89.5, 120, 10, 0}
	rf.sanitize(x)
	assert.Equal(t, projection.MaxLat, x[1])
	assert.Equal(t, 0.0, x[2])

	// Normal aspect forces the pole
	rfN := newResidualFunc(a, ds, p, projection.NormalAspect, nil)
	x = []float64{1, 12, 34, 200, 400}
	rfN.sanitize(x)
	assert.Equal(t, projection.MaxLat, x[1])
	assert.Equal(t, 0.0, x[2])
	assert.True(t, p.Family.Lat0Interval.Contains(x[3]))
}

func TestResidualWeightMonotonicity(t *testing.T) {
	ds := gridDataset(t, projection.New(projection.FindFamily("eqdc")), nil)
	a := NewAnalyzer(testParams(), nil)

	p := projection.New(projection.FindFamily("eqdc"))
	rf := newResidualFunc(a, ds, p, projection.NormalAspect, nil)

	m := len(ds.Test)
	rf.weights[3] = 0
	rf.weights[3+m] = 0

	v, cost, err := rf.eval([]float64{1, 90, 0, 0, 0})
	require.NoError(t, err)

	assert.Equal(t, 0.0, v[3])
	assert.Equal(t, 0.0, v[3+m])

	var manual float64
	for i, r := range v {
		manual += rf.weights[i] * r * r
	}
	assert.InDelta(t, manual, cost, 1e-12)
}

func TestRankingWithTies(t *testing.T) {
	f := projection.FindFamily("eqdc")
	samples := []Sample{
		{Family: f, Helmert: available(3.0)},
		{Family: f, Helmert: available(1.0)},
		{Family: f, Helmert: available(1.0)},
		{Family: f, Helmert: available(2.0)},
		{Family: f, Helmert: unavailable()},
	}

	RankSamples(samples, CriteriaSet{Helmert: true})

	// Sorted by aggregate rank: the two tied firsts, then 2.0, then 3.0,
	// then the unavailable one.
	assert.Equal(t, 1, samples[0].Helmert.Position)
	assert.Equal(t, 1, samples[1].Helmert.Position)
	assert.Equal(t, 3, samples[2].Helmert.Position)
	assert.Equal(t, 4, samples[3].Helmert.Position)
	assert.Equal(t, -1, samples[4].Helmert.Position)

	assert.InDelta(t, 1.0, samples[0].AggregateRank(), 1e-12)
	assert.True(t, math.IsInf(samples[4].AggregateRank(), 1))
}

func TestRankingStrictOrderHasNoGaps(t *testing.T) {
	f := projection.FindFamily("eqdc")
	samples := []Sample{
		{Family: f, Helmert: available(5.0)},
		{Family: f, Helmert: available(1.0)},
		{Family: f, Helmert: available(3.0)},
	}
	RankSamples(samples, CriteriaSet{Helmert: true})

	for i, s := range samples {
		assert.Equal(t, i+1, s.Helmert.Position)
	}
}

func TestReduceLon(t *testing.T) {
	ref := []projection.GeoPoint{{Lat: 0, Lon: 170}, {Lat: 0, Lon: -170}}
	red := reduceLon(ref, 20)
	assert.InDelta(t, 150.0, red[0].Lon, 1e-12)
	assert.InDelta(t, 170.0, red[1].Lon, 1e-12)

	// Zero central meridian returns the original slice
	same := reduceLon(ref, 0)
	assert.Equal(t, &ref[0], &same[0])
}

func TestTargetProjectionSample(t *testing.T) {
	truth := projection.New(projection.FindFamily("eqdc"))
	truth.Lat0 = 0
	ds := gridDataset(t, truth, nil)

	params := testParams()
	params.AnalyzedProjections = []TargetProjection{
		{Family: "eqdc", R: 1, Latp: 90, Lonp: 0, Lat0: 0, Lon0: 0},
	}
	a := NewAnalyzer(params, nil)

	samples, err := a.Run(ds, nil)
	require.NoError(t, err)
	require.NotEmpty(t, samples)
	assert.True(t, samples[0].IsTarget)
	assert.Less(t, samples[0].Helmert.Value, 1e-6)
}

func TestUnknownTargetFamilyFailsAnalysis(t *testing.T) {
	truth := projection.New(projection.FindFamily("eqdc"))
	ds := gridDataset(t, truth, nil)

	params := testParams()
	params.AnalyzedProjections = []TargetProjection{{Family: "missing"}}
	a := NewAnalyzer(params, nil)

	_, err := a.Run(ds, nil)
	assert.ErrorIs(t, err, ErrBadData)
}

func TestValidateRejectsMismatchedSets(t *testing.T) {
	ds := &Dataset{
		Test:      []geometry.Point2D{{X: 0, Y: 0}},
		Reference: []projection.GeoPoint{{Lat: 0, Lon: 0}, {Lat: 1, Lon: 1}},
	}
	assert.ErrorIs(t, ds.Validate(), ErrBadData)

	assert.ErrorIs(t, (&Dataset{}).Validate(), ErrBadData)
}

func TestShapeHeuristicRejectsRotatedSample(t *testing.T) {
	truth := projection.New(projection.FindFamily("eqdc"))
	truth.Lat0 = 0
	ds := gridDataset(t, truth, func(p geometry.Point2D) geometry.Point2D {
		return p.Rotate(30 * math.Pi / 180)
	})

	params := testParams()
	params.PerformHeuristic = true
	a := NewAnalyzer(params, nil)

	var s Sample
	err := a.analyzeOneSample(ds, projection.New(projection.FindFamily("eqdc")), &s)
	assert.ErrorIs(t, err, errSampleRejected)
}

func TestShapeHeuristicAcceptsCleanSample(t *testing.T) {
	truth := projection.New(projection.FindFamily("eqdc"))
	truth.Lat0 = 0
	ds := gridDataset(t, truth, nil)

	// Mark the prime meridian and the equator in the graticule
	var primeM, equator []int
	for i, gp := range ds.Reference {
		if gp.Lon == 0 {
			primeM = append(primeM, i)
		}
		if gp.Lat == 0 {
			equator = append(equator, i)
		}
	}
	ds.Meridians = []Meridian{{Lon: 0, Indices: primeM}}
	ds.Parallels = []Parallel{{Lat: 0, Indices: equator}}

	params := testParams()
	params.PerformHeuristic = true
	params.Criteria.GraticuleTF = true
	a := NewAnalyzer(params, nil)

	var s Sample
	require.NoError(t, a.analyzeOneSample(ds, projection.New(projection.FindFamily("eqdc")), &s))
	assert.Less(t, s.GraticuleTF.Value, 1e-6)
}

func TestPrintResults(t *testing.T) {
	truth := projection.New(projection.FindFamily("eqdc"))
	truth.Lat0 = 0
	ds := gridDataset(t, truth, nil)

	a := NewAnalyzer(testParams(), nil)
	samples, err := a.Run(ds, []*projection.Family{projection.FindFamily("eqdc")})
	require.NoError(t, err)

	var buf bytes.Buffer
	PrintResults(&buf, samples, ds, a.Params)

	out := buf.String()
	assert.Contains(t, out, "eqdc")
	assert.Contains(t, out, "HELT")
	assert.Contains(t, out, "Analyzed and reference points:")
}
