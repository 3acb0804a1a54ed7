package projection

import (
	"fmt"
	"math"

	"projdetect/pkg/geometry"
)

// GraticuleAngleShift is the angular nudge, in degrees, applied to a point
// whose forward evaluation hits a singularity of the equations before the
// evaluation is retried once.
const GraticuleAngleShift = 1.0e-4

// latPoleTolerance guards the asin/atan2 expressions when the transformed
// latitude saturates at a pole and the transformed longitude becomes
// arbitrary.
const latPoleTolerance = 1.0e-13

// RedLon0 reduces a longitude to the central meridian lon0 and wraps the
// result back into (-180, 180].
func RedLon0(lon, lon0 float64) float64 {
	lonRed := lon - lon0
	if lonRed > MaxLon {
		lonRed -= 360
	} else if lonRed < MinLon {
		lonRed += 360
	}
	return lonRed
}

// LatToLatTrans rotates a geographic latitude into the aspect frame given
// by the cartographic pole (latp, lonp). All angles in degrees.
func LatToLatTrans(lat, lon, latp, lonp float64) float64 {
	if latp == MaxLat {
		return lat
	}
	arg := math.Sin(radians(lat))*math.Sin(radians(latp)) +
		math.Cos(radians(lat))*math.Cos(radians(latp))*math.Cos(radians(lon-lonp))
	// Clamp rounding overshoot
	if arg > 1 {
		arg = 1
	} else if arg < -1 {
		arg = -1
	}
	return degrees(math.Asin(arg))
}

// LonToLonTrans rotates a geographic longitude into the aspect frame given
// by the cartographic pole (latp, lonp), honoring the family's longitude
// direction convention. When the transformed latitude saturates at a pole
// the longitude is arbitrary and zero is returned.
func LonToLonTrans(lat, lon, latTrans, latp, lonp float64, dir LonDirection) float64 {
	if latp == MaxLat {
		if dir == ReversedDirection {
			return -lon
		}
		return lon
	}
	if MaxLat-math.Abs(latTrans) < latPoleTolerance {
		return 0
	}

	dLon := radians(lon - lonp)
	num := math.Cos(radians(lat)) * math.Sin(dLon)
	den := math.Sin(radians(latp))*math.Cos(radians(lat))*math.Cos(dLon) -
		math.Cos(radians(latp))*math.Sin(radians(lat))
	lonTrans := degrees(math.Atan2(num, den))

	if dir == ReversedDirection {
		lonTrans = -lonTrans
	}
	return lonTrans
}

// Project converts one geographic point to planar coordinates under the
// projection: the point is rotated into the aspect frame and the family's
// forward equations are evaluated. A singularity at an interior point is
// retried once with the position nudged by GraticuleAngleShift; failure is
// final when the input latitude equals a pole exactly.
func (p *Projection) Project(lat, lon float64) (geometry.Point2D, error) {
	latTrans := LatToLatTrans(lat, lon, p.CartPole.Lat, p.CartPole.Lon)
	lonTrans := LonToLonTrans(lat, lon, latTrans, p.CartPole.Lat, p.CartPole.Lon, p.Family.LonDir)

	x, y, err := p.Family.Forward(p.env(latTrans, lonTrans))
	if err == nil {
		x, y, err = checkFinite(x, y)
	}
	if err != nil {
		// Fatal at the pole, nudge and retry elsewhere
		if math.Abs(lat) == MaxLat {
			return geometry.Point2D{}, fmt.Errorf("project (%.6f, %.6f): %w", lat, lon, err)
		}
		x, y, err = p.Family.Forward(p.env(latTrans+GraticuleAngleShift, lonTrans+GraticuleAngleShift))
		if err == nil {
			x, y, err = checkFinite(x, y)
		}
		if err != nil {
			return geometry.Point2D{}, fmt.Errorf("project (%.6f, %.6f): %w", lat, lon, err)
		}
	}
	return geometry.Point2D{X: x + p.Dx, Y: y + p.Dy}, nil
}
