package analysis

import (
	"errors"

	"projdetect/pkg/geometry"
)

// MinBoundedVoronoiCells is the minimum number of corresponding bounded
// cell pairs required for the Voronoi criterion to be meaningful.
const MinBoundedVoronoiCells = 5

// ErrInsufficientCells reports that a cell-ratio provider could not build
// enough bounded cell pairs.
var ErrInsufficientCells = errors.New("not enough bounded voronoi cells")

// CellRatioFunc is the narrow query interface to the Voronoi/turning
// shape-descriptor subsystem: given the test and projected point sets it
// returns the mean turning-function difference over corresponding bounded
// merged cells. Implementations return ErrInsufficientCells when fewer
// than MinBoundedVoronoiCells pairs are usable.
type CellRatioFunc func(test, projected []geometry.Point2D) (float64, error)

// noCellRatio is the default provider: the criterion stays unavailable.
func noCellRatio(test, projected []geometry.Point2D) (float64, error) {
	return 0, ErrInsufficientCells
}
