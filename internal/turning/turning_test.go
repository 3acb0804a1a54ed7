package turning

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projdetect/pkg/geometry"
)

func lShape() []geometry.Point2D {
	return []geometry.Point2D{
		{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 1}, {X: 2, Y: 2},
	}
}

func TestDistanceOfIdenticalPolylinesIsZero(t *testing.T) {
	d, err := Distance(lShape(), lShape(), RotationDependent)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, d, 1e-12)
}

func TestDistanceIsScaleInvariant(t *testing.T) {
	scaled := make([]geometry.Point2D, 0, len(lShape()))
	for _, p := range lShape() {
		scaled = append(scaled, p.Scale(7.3))
	}
	d, err := Distance(lShape(), scaled, RotationDependent)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, d, 1e-12)
}

func TestRotationInvariantModeIgnoresRotation(t *testing.T) {
	rotated := make([]geometry.Point2D, 0, len(lShape()))
	for _, p := range lShape() {
		rotated = append(rotated, p.Rotate(0.7))
	}

	dInv, err := Distance(lShape(), rotated, RotationInvariant)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, dInv, 1e-9)

	dDep, err := Distance(lShape(), rotated, RotationDependent)
	require.NoError(t, err)
	assert.InDelta(t, 0.7, dDep, 1e-9)
}

func TestDifferentShapesHavePositiveDistance(t *testing.T) {
	straight := []geometry.Point2D{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}, {X: 3, Y: 0}, {X: 4, Y: 0}}
	d, err := Distance(straight, lShape(), RotationInvariant)
	require.NoError(t, err)
	assert.Greater(t, d, 0.1)
}

func TestDegeneratePolyline(t *testing.T) {
	_, err := Distance([]geometry.Point2D{{X: 0, Y: 0}, {X: 1, Y: 1}}, lShape(), RotationInvariant)
	assert.ErrorIs(t, err, ErrDegenerate)

	same := []geometry.Point2D{{X: 1, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 1}}
	_, err = Distance(same, lShape(), RotationInvariant)
	assert.ErrorIs(t, err, ErrDegenerate)
}

func TestFunctionEvaluation(t *testing.T) {
	fn, err := New(lShape())
	require.NoError(t, err)

	// First half runs along +x, second half along +y
	assert.InDelta(t, 0.0, fn.At(0.25), 1e-12)
	assert.InDelta(t, math.Pi/2, fn.At(0.75), 1e-12)
}
