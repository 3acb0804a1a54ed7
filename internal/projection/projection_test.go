package projection

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedLon0(t *testing.T) {
	assert.InDelta(t, 10.0, RedLon0(25, 15), 1e-12)
	assert.InDelta(t, -170.0, RedLon0(170, -20), 1e-12)
	assert.InDelta(t, 175.0, RedLon0(-170, 15), 1e-12)
}

func TestLatTransNormalAspectIsIdentity(t *testing.T) {
	assert.InDelta(t, 37.5, LatToLatTrans(37.5, 12, MaxLat, 0), 1e-12)
	assert.InDelta(t, 12.0, LonToLonTrans(37.5, 12, 37.5, MaxLat, 0, NormalDirection), 1e-12)
	assert.InDelta(t, -12.0, LonToLonTrans(37.5, 12, 37.5, MaxLat, 0, ReversedDirection), 1e-12)
}

func TestTransverseRotation(t *testing.T) {
	// Pole on the equator at lon 45: the point 90 degrees away along the
	// equator maps to the transformed equator at lon 90.
	latTrans := LatToLatTrans(0, 135, 0, 45)
	assert.InDelta(t, 0.0, latTrans, 1e-9)

	lonTrans := LonToLonTrans(0, 135, latTrans, 0, 45, NormalDirection)
	assert.InDelta(t, 90.0, lonTrans, 1e-9)
}

func TestTransformedPoleLongitudeArbitrary(t *testing.T) {
	// The point at the cartographic pole saturates the latitude
	latTrans := LatToLatTrans(0, 45, 0, 45)
	assert.InDelta(t, MaxLat, latTrans, 1e-9)
	assert.Equal(t, 0.0, LonToLonTrans(0, 45, latTrans, 0, 45, NormalDirection))
}

func TestMercatorForward(t *testing.T) {
	f := FindFamily("merc")
	require.NotNil(t, f)

	p := New(f)
	pt, err := p.Project(45, 45)
	require.NoError(t, err)

	assert.InDelta(t, math.Pi/4, pt.X, 1e-12)
	assert.InDelta(t, math.Log(math.Tan(math.Pi/4+math.Pi/8)), pt.Y, 1e-12)
}

func TestMercatorPoleIsFatal(t *testing.T) {
	p := New(FindFamily("merc"))
	_, err := p.Project(90, 0)
	assert.ErrorIs(t, err, ErrMathDomain)
}

func TestEquirectangularForward(t *testing.T) {
	p := New(FindFamily("eqdc"))
	p.R = 6378
	p.Lat0 = 0

	pt, err := p.Project(30, 60)
	require.NoError(t, err)
	assert.InDelta(t, 6378*math.Pi/3, pt.X, 1e-6)
	assert.InDelta(t, 6378*math.Pi/6, pt.Y, 1e-6)
}

func TestWernerNudgeRetryAtApex(t *testing.T) {
	// The Werner apex (transformed latitude 90) is a removable singularity.
	// Under an oblique pole it is reached from an interior geographic
	// latitude, so the nudged retry must succeed.
	p := New(FindFamily("werner"))
	p.CartPole = GeoPoint{Lat: 40, Lon: 0}

	// The cartographic pole itself transforms to latitude 90, where the
	// equations are undefined; its input latitude of 40 is interior.
	_, err := p.Project(40, 0)
	assert.NoError(t, err)

	// An ordinary point projects fine.
	_, err = p.Project(10, 10)
	assert.NoError(t, err)
}

func TestSnapshotRestore(t *testing.T) {
	p := New(FindFamily("sinu"))
	save := p.Save()

	p.R = 42
	p.CartPole = GeoPoint{Lat: 10, Lon: 20}
	p.Lat0 = 30
	p.Lon0 = 40
	p.Dx = 1

	p.Restore(save)
	assert.Equal(t, 1.0, p.R)
	assert.Equal(t, GeoPoint{Lat: MaxLat, Lon: 0}, p.CartPole)
	assert.Equal(t, 0.0, p.Lat0)
	assert.Equal(t, 0.0, p.Lon0)
	assert.Equal(t, 0.0, p.Dx)
}

func TestDistortionEquirectangular(t *testing.T) {
	p := New(FindFamily("eqdc"))
	p.Lat0 = 0

	h, err := p.DistortionH(0, 0)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, h, 1e-6)

	k, err := p.DistortionK(0, 0)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, k, 1e-6)

	// Away from the equator the parallels stretch by 1/cos(lat)
	k, err = p.DistortionK(60, 0)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, k, 1e-4)
}

func TestTissotUnitAtUndistortedPoint(t *testing.T) {
	p := New(FindFamily("eqdc"))
	p.Lat0 = 0

	tiss, err := p.TissotAt(0, 0)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, tiss.A, 1e-5)
	assert.InDelta(t, 1.0, tiss.B, 1e-5)
}

func TestIntervalContainsWrapped(t *testing.T) {
	iv := Interval{Min: 150, Max: -150}
	assert.True(t, iv.Contains(170))
	assert.True(t, iv.Contains(-170))
	assert.False(t, iv.Contains(0))
}

func TestCatalogComplete(t *testing.T) {
	for _, f := range Catalog() {
		require.NotEmpty(t, f.Name)
		require.NotNil(t, f.Forward, f.Name)
		assert.LessOrEqual(t, f.Lat0Interval.Min, f.Lat0Interval.Max, f.Name)
	}
	assert.Nil(t, FindFamily("nope"))
}
