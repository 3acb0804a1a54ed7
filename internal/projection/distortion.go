package projection

import (
	"fmt"
	"math"
)

// NumDerivStep is the angular step, in degrees, of the central differences
// used for the local distortion partials.
const NumDerivStep = 1.0e-3

// Tissot holds the local distortion ellipse parameters of a projection at a
// point: the semi-axes and the azimuth of the major axis in degrees.
type Tissot struct {
	A  float64
	B  float64
	Ae float64
}

// UnitTissot is the indicatrix of an undistorted point.
var UnitTissot = Tissot{A: 1, B: 1, Ae: 0}

// partials evaluates the four partial derivatives of the forward equations
// at a transformed position using central differences.
func (p *Projection) partials(latTrans, lonTrans float64) (dxdLat, dydLat, dxdLon, dydLon float64, err error) {
	eval := func(lat, lon float64) (float64, float64, error) {
		x, y, err := p.Family.Forward(p.env(lat, lon))
		if err == nil {
			x, y, err = checkFinite(x, y)
		}
		return x, y, err
	}

	x1, y1, err := eval(latTrans+NumDerivStep, lonTrans)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	x2, y2, err := eval(latTrans-NumDerivStep, lonTrans)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	x3, y3, err := eval(latTrans, lonTrans+NumDerivStep)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	x4, y4, err := eval(latTrans, lonTrans-NumDerivStep)
	if err != nil {
		return 0, 0, 0, 0, err
	}

	h := 2 * radians(NumDerivStep)
	dxdLat = (x1 - x2) / h
	dydLat = (y1 - y2) / h
	dxdLon = (x3 - x4) / h
	dydLon = (y3 - y4) / h
	return dxdLat, dydLat, dxdLon, dydLon, nil
}

// DistortionH returns the meridian scale factor of the projection at a
// transformed position.
func (p *Projection) DistortionH(latTrans, lonTrans float64) (float64, error) {
	dxdLat, dydLat, _, _, err := p.partials(latTrans, lonTrans)
	if err != nil {
		return 0, fmt.Errorf("distortion h at (%.4f, %.4f): %w", latTrans, lonTrans, err)
	}
	return math.Hypot(dxdLat, dydLat) / p.R, nil
}

// DistortionK returns the parallel scale factor of the projection at a
// transformed position.
func (p *Projection) DistortionK(latTrans, lonTrans float64) (float64, error) {
	_, _, dxdLon, dydLon, err := p.partials(latTrans, lonTrans)
	if err != nil {
		return 0, fmt.Errorf("distortion k at (%.4f, %.4f): %w", latTrans, lonTrans, err)
	}
	cosLat := math.Cos(radians(latTrans))
	if cosLat == 0 {
		return 0, fmt.Errorf("distortion k at (%.4f, %.4f): %w", latTrans, lonTrans, ErrMathDomain)
	}
	return math.Hypot(dxdLon, dydLon) / (p.R * cosLat), nil
}

// TissotAt computes the local distortion ellipse at a transformed position.
// The semi-axes follow from the meridian/parallel scale factors and the
// angular deformation between the projected graticule directions.
func (p *Projection) TissotAt(latTrans, lonTrans float64) (Tissot, error) {
	dxdLat, dydLat, dxdLon, dydLon, err := p.partials(latTrans, lonTrans)
	if err != nil {
		return Tissot{}, fmt.Errorf("tissot at (%.4f, %.4f): %w", latTrans, lonTrans, err)
	}
	cosLat := math.Cos(radians(latTrans))
	if cosLat == 0 {
		return Tissot{}, fmt.Errorf("tissot at (%.4f, %.4f): %w", latTrans, lonTrans, ErrMathDomain)
	}

	h := math.Hypot(dxdLat, dydLat) / p.R
	k := math.Hypot(dxdLon, dydLon) / (p.R * cosLat)

	// h*k times the sine of the angle between the projected meridian and
	// parallel, independent of the orientation of the plane axes
	cross := math.Abs(dxdLat*dydLon-dydLat*dxdLon) / (p.R * p.R * cosLat)
	hk := h * k
	if hk == 0 {
		return Tissot{}, fmt.Errorf("tissot at (%.4f, %.4f): %w", latTrans, lonTrans, ErrMathDomain)
	}

	// Apollonius relations for the ellipse semi-axes
	sumSq := h*h + k*k + 2*cross
	difSq := h*h + k*k - 2*cross
	if sumSq < 0 {
		sumSq = 0
	}
	if difSq < 0 {
		difSq = 0
	}
	aPlusB := math.Sqrt(sumSq)
	aMinusB := math.Sqrt(difSq)

	a := 0.5 * (aPlusB + aMinusB)
	b := 0.5 * (aPlusB - aMinusB)
	// Major axis: principal direction of the image of the unit circle,
	// measured from the x axis
	nx, ny := dxdLat/p.R, dydLat/p.R
	ex, ey := dxdLon/(p.R*cosLat), dydLon/(p.R*cosLat)
	sxx := nx*nx + ex*ex
	syy := ny*ny + ey*ey
	sxy := nx*ny + ex*ey
	ae := degrees(0.5 * math.Atan2(2*sxy, sxx-syy))
	return Tissot{A: a, B: b, Ae: ae}, nil
}
