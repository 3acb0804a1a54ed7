// Package analysis detects the cartographic projection of an early map: it
// searches the parameter space of every candidate projection family for the
// parameters minimizing the residual between the map's plane points and the
// forward-projected positions of their known geographic counterparts, and
// ranks the resulting hypotheses by a battery of cartometric criteria.
package analysis

import (
	"errors"
	"math"

	"projdetect/internal/projection"
	"projdetect/pkg/geometry"
)

// ErrBadData reports empty, mismatched or fully degenerate inputs.
var ErrBadData = errors.New("bad data")

// errSampleRejected marks a candidate dismissed by the shape heuristic; the
// driver moves on and logs it only when PrintExceptions is set.
var errSampleRejected = errors.New("sample rejected")

// MinLinePoints is the minimum number of surviving points for a meridian
// or parallel to stay in the graticule.
const MinLinePoints = 3

// maxFloat stands in for an unavailable criterion value.
var maxFloat = math.Inf(1)

// Meridian is one mapped meridian: its longitude and the ordered indices
// of its points in the reference set.
type Meridian struct {
	Lon     float64
	Indices []int
}

// Parallel is one mapped parallel: its latitude and the ordered indices of
// its points in the reference set.
type Parallel struct {
	Lat     float64
	Indices []int
}

// Dataset couples the map's plane points with their geographic
// counterparts (1-to-1 by index) and the graticule line membership.
type Dataset struct {
	Test      []geometry.Point2D
	Reference []projection.GeoPoint
	Meridians []Meridian
	Parallels []Parallel
}

// Validate checks the structural invariants of the dataset.
func (d *Dataset) Validate() error {
	if len(d.Test) == 0 || len(d.Reference) == 0 {
		return errors.Join(ErrBadData, errors.New("empty point sets"))
	}
	if len(d.Test) != len(d.Reference) {
		return errors.Join(ErrBadData, errors.New("test and reference sets differ in size"))
	}
	for _, m := range d.Meridians {
		for _, idx := range m.Indices {
			if idx < 0 || idx >= len(d.Reference) {
				return errors.Join(ErrBadData, errors.New("meridian index out of range"))
			}
		}
	}
	for _, p := range d.Parallels {
		for _, idx := range p.Indices {
			if idx < 0 || idx >= len(d.Reference) {
				return errors.Join(ErrBadData, errors.New("parallel index out of range"))
			}
		}
	}
	return nil
}

// LatExtent returns the latitude range of the reference set.
func (d *Dataset) LatExtent() projection.Interval {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, p := range d.Reference {
		lo = math.Min(lo, p.Lat)
		hi = math.Max(hi, p.Lat)
	}
	return projection.Interval{Min: lo, Max: hi}
}

// LonExtent returns the longitude range of the reference set.
func (d *Dataset) LonExtent() projection.Interval {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, p := range d.Reference {
		lo = math.Min(lo, p.Lon)
		hi = math.Max(hi, p.Lon)
	}
	return projection.Interval{Min: lo, Max: hi}
}

// reduceLon returns a copy of the reference set with all longitudes
// reduced to the central meridian lon0. A zero lon0 returns the original
// slice unchanged.
func reduceLon(reference []projection.GeoPoint, lon0 float64) []projection.GeoPoint {
	if lon0 == 0 {
		return reference
	}
	out := make([]projection.GeoPoint, len(reference))
	for i, p := range reference {
		out[i] = projection.GeoPoint{Lat: p.Lat, Lon: projection.RedLon0(p.Lon, lon0), ID: p.ID}
	}
	return out
}
