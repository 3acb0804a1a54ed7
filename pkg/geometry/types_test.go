package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRotate(t *testing.T) {
	p := Point2D{X: 1, Y: 0}
	r := p.Rotate(math.Pi / 2)
	assert.InDelta(t, 0.0, r.X, 1e-12)
	assert.InDelta(t, 1.0, r.Y, 1e-12)
}

func TestWeightedCentroid(t *testing.T) {
	pts := []Point2D{{X: 0, Y: 0}, {X: 10, Y: 10}}

	c, sum := WeightedCentroid(pts, nil)
	assert.Equal(t, Point2D{X: 5, Y: 5}, c)
	assert.Equal(t, 2.0, sum)

	c, sum = WeightedCentroid(pts, []float64{1, 0})
	assert.Equal(t, Point2D{X: 0, Y: 0}, c)
	assert.Equal(t, 1.0, sum)

	_, sum = WeightedCentroid(pts, []float64{0, 0})
	assert.Equal(t, 0.0, sum)
}

func TestPolylineLength(t *testing.T) {
	pts := []Point2D{{X: 0, Y: 0}, {X: 3, Y: 4}, {X: 3, Y: 5}}
	assert.InDelta(t, 6.0, PolylineLength(pts), 1e-12)
}

func TestSelect(t *testing.T) {
	pts := []Point2D{{X: 0}, {X: 1}, {X: 2}, {X: 3}}
	sub := Select(pts, []int{3, 1})
	assert.Equal(t, []Point2D{{X: 3}, {X: 1}}, sub)
}

func TestBoundingBox(t *testing.T) {
	pts := []Point2D{{X: -1, Y: 2}, {X: 4, Y: -3}, {X: 0, Y: 0}}
	r := BoundingBox(pts)
	assert.Equal(t, Rect{X: -1, Y: -3, Width: 5, Height: 5}, r)
	assert.True(t, r.Contains(Point2D{X: 0, Y: 0}))
}
