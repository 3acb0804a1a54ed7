package projection

import (
	"math"
)

// Projection categories used in reports.
const (
	CategoryCylindrical       = "cyli"
	CategoryPseudoCylindrical = "pscy"
	CategoryConic             = "coni"
	CategoryPseudoConic       = "psco"
	CategoryAzimuthal         = "azim"
)

// Catalog returns the compiled-in projection families. The slice and the
// families are shared and must not be mutated.
func Catalog() []*Family {
	return catalog
}

// FindFamily returns the family with the given name, or nil.
func FindFamily(name string) *Family {
	for _, f := range catalog {
		if f.Name == name {
			return f
		}
	}
	return nil
}

var (
	fullLatP = Interval{Min: MinLat, Max: MaxLat}
	fullLonP = Interval{Min: MinLon, Max: MaxLon}
)

// latPFromData centers the latp search on the pole of the small circle best
// covering the data extent; used by azimuthal-like families.
func latPFromData(latExtent Interval) Interval {
	mid := latExtent.Mid()
	lo := math.Max(MinLat, mid-50)
	hi := math.Min(MaxLat, mid+50)
	return Interval{Min: lo, Max: hi}
}

// latPComplement prefers poles far from the mapped band; used by
// cylindrical-like families whose undistorted line passes through the data.
func latPComplement(latExtent Interval) Interval {
	mid := latExtent.Mid()
	lo := math.Max(MinLat, 90-mid-50)
	hi := math.Min(MaxLat, 90-mid+50)
	if lo > hi {
		lo, hi = hi, lo
	}
	return Interval{Min: lo, Max: hi}
}

// lonPFromData widens the data longitude extent by 30 degrees on both
// sides, wrapping across the antimeridian when needed.
func lonPFromData(lonExtent Interval) Interval {
	lo := lonExtent.Min - 30
	hi := lonExtent.Max + 30
	if lo < MinLon {
		lo += 360
	}
	if hi > MaxLon {
		hi -= 360
	}
	return Interval{Min: lo, Max: hi}
}

var catalog = []*Family{
	{
		Name:      "eqdc",
		Category:  CategoryCylindrical,
		XEquation: "R*lon*cos(lat0)",
		YEquation: "R*lat",
		Lat0Interval: Interval{Min: 0, Max: 85},
		LatPInterval: fullLatP,
		LonPInterval: fullLonP,
		LatPHeuristic: latPComplement,
		LonPHeuristic: lonPFromData,
		Forward: func(e Env) (float64, float64, error) {
			x := e.R * radians(e.Lon) * math.Cos(radians(e.Lat0))
			y := e.R * radians(e.Lat)
			return x, y, nil
		},
	},
	{
		Name:      "merc",
		Category:  CategoryCylindrical,
		XEquation: "R*lon",
		YEquation: "R*ln(tan(45+lat/2))",
		Lat0Interval: Interval{Min: 0, Max: 80},
		LatPInterval: fullLatP,
		LonPInterval: fullLonP,
		LatPHeuristic: latPComplement,
		LonPHeuristic: lonPFromData,
		Forward: func(e Env) (float64, float64, error) {
			if math.Abs(e.Lat) >= MaxLat {
				return 0, 0, ErrMathDomain
			}
			t := math.Tan(math.Pi/4 + radians(e.Lat)/2)
			if t <= 0 {
				return 0, 0, ErrMathDomain
			}
			x := e.R * radians(e.Lon)
			y := e.R * math.Log(t)
			return x, y, nil
		},
	},
	{
		Name:      "cea",
		Category:  CategoryCylindrical,
		XEquation: "R*lon*cos(lat0)",
		YEquation: "R*sin(lat)/cos(lat0)",
		Lat0Interval: Interval{Min: 0, Max: 85},
		LatPInterval: fullLatP,
		LonPInterval: fullLonP,
		LatPHeuristic: latPComplement,
		LonPHeuristic: lonPFromData,
		Forward: func(e Env) (float64, float64, error) {
			c0 := math.Cos(radians(e.Lat0))
			if c0 == 0 {
				return 0, 0, ErrMathDomain
			}
			x := e.R * radians(e.Lon) * c0
			y := e.R * math.Sin(radians(e.Lat)) / c0
			return x, y, nil
		},
	},
	{
		Name:      "sinu",
		Category:  CategoryPseudoCylindrical,
		XEquation: "R*lon*cos(lat)",
		YEquation: "R*lat",
		Lat0Interval: Interval{Min: 0, Max: 85},
		LatPInterval: fullLatP,
		LonPInterval: fullLonP,
		LatPHeuristic: latPComplement,
		LonPHeuristic: lonPFromData,
		Forward: func(e Env) (float64, float64, error) {
			x := e.R * radians(e.Lon) * math.Cos(radians(e.Lat))
			y := e.R * radians(e.Lat)
			return x, y, nil
		},
	},
	{
		Name:      "bonne",
		Category:  CategoryPseudoConic,
		XEquation: "rho*sin(eps), rho=R*(cot(lat0)+lat0-lat)",
		YEquation: "R*cot(lat0)-rho*cos(eps)",
		Lat0Interval: Interval{Min: 10, Max: 85},
		LatPInterval: fullLatP,
		LonPInterval: fullLonP,
		LatPHeuristic: latPFromData,
		LonPHeuristic: lonPFromData,
		Forward: func(e Env) (float64, float64, error) {
			lat0 := radians(e.Lat0)
			if math.Sin(lat0) == 0 {
				return 0, 0, ErrMathDomain
			}
			cot0 := math.Cos(lat0) / math.Sin(lat0)
			rho := e.R * (cot0 + lat0 - radians(e.Lat))
			if rho == 0 {
				return 0, 0, ErrMathDomain
			}
			eps := e.R * radians(e.Lon) * math.Cos(radians(e.Lat)) / rho
			x := rho * math.Sin(eps)
			y := e.R*cot0 - rho*math.Cos(eps)
			return x, y, nil
		},
	},
	{
		Name:      "werner",
		Category:  CategoryPseudoConic,
		XEquation: "rho*sin(eps), rho=R*(90-lat)",
		YEquation: "R*90-rho*cos(eps)",
		Lat0Interval: Interval{Min: 85, Max: 90},
		LatPInterval: fullLatP,
		LonPInterval: fullLonP,
		LatPHeuristic: latPFromData,
		LonPHeuristic: lonPFromData,
		Forward: func(e Env) (float64, float64, error) {
			colat := math.Pi/2 - radians(e.Lat)
			rho := e.R * colat
			if rho == 0 {
				return 0, 0, ErrMathDomain
			}
			eps := radians(e.Lon) * math.Cos(radians(e.Lat)) / colat
			x := rho * math.Sin(eps)
			y := e.R*math.Pi/2 - rho*math.Cos(eps)
			return x, y, nil
		},
	},
	{
		Name:      "aeqd",
		Category:  CategoryAzimuthal,
		XEquation: "R*(90-lat)*sin(lon)",
		YEquation: "-R*(90-lat)*cos(lon)",
		Lat0Interval: Interval{Min: 0, Max: 90},
		LatPInterval: fullLatP,
		LonPInterval: fullLonP,
		LatPHeuristic: latPFromData,
		LonPHeuristic: lonPFromData,
		Forward: func(e Env) (float64, float64, error) {
			rho := e.R * (math.Pi/2 - radians(e.Lat))
			x := rho * math.Sin(radians(e.Lon))
			y := -rho * math.Cos(radians(e.Lon))
			return x, y, nil
		},
	},
	{
		Name:      "stere",
		Category:  CategoryAzimuthal,
		XEquation: "2*R*tan(45-lat/2)*sin(lon)",
		YEquation: "-2*R*tan(45-lat/2)*cos(lon)",
		Lat0Interval: Interval{Min: 0, Max: 90},
		LatPInterval: fullLatP,
		LonPInterval: fullLonP,
		LatPHeuristic: latPFromData,
		LonPHeuristic: lonPFromData,
		Forward: func(e Env) (float64, float64, error) {
			if e.Lat <= MinLat {
				return 0, 0, ErrMathDomain
			}
			rho := 2 * e.R * math.Tan(math.Pi/4-radians(e.Lat)/2)
			x := rho * math.Sin(radians(e.Lon))
			y := -rho * math.Cos(radians(e.Lon))
			return x, y, nil
		},
	},
	{
		Name:      "ortho",
		Category:  CategoryAzimuthal,
		XEquation: "R*cos(lat)*sin(lon)",
		YEquation: "-R*cos(lat)*cos(lon)",
		Lat0Interval: Interval{Min: 0, Max: 90},
		LatPInterval: fullLatP,
		LonPInterval: fullLonP,
		LatPHeuristic: latPFromData,
		LonPHeuristic: lonPFromData,
		Forward: func(e Env) (float64, float64, error) {
			if e.Lat < 0 {
				return 0, 0, ErrMathDomain
			}
			rho := e.R * math.Cos(radians(e.Lat))
			x := rho * math.Sin(radians(e.Lon))
			y := -rho * math.Cos(radians(e.Lon))
			return x, y, nil
		},
	},
	{
		Name:      "gnom",
		Category:  CategoryAzimuthal,
		XEquation: "R*cot(lat)*sin(lon)",
		YEquation: "-R*cot(lat)*cos(lon)",
		Lat0Interval: Interval{Min: 0, Max: 90},
		LatPInterval: fullLatP,
		LonPInterval: fullLonP,
		LatPHeuristic: latPFromData,
		LonPHeuristic: lonPFromData,
		Forward: func(e Env) (float64, float64, error) {
			if e.Lat <= 10 {
				return 0, 0, ErrMathDomain
			}
			rho := e.R * math.Cos(radians(e.Lat)) / math.Sin(radians(e.Lat))
			x := rho * math.Sin(radians(e.Lon))
			y := -rho * math.Cos(radians(e.Lon))
			return x, y, nil
		},
	},
	{
		Name:      "lcc",
		Category:  CategoryConic,
		XEquation: "rho*sin(n*lon), n=sin(lat0)",
		YEquation: "rho0-rho*cos(n*lon)",
		Lat0Interval: Interval{Min: 20, Max: 80},
		LatPInterval: fullLatP,
		LonPInterval: fullLonP,
		LatPHeuristic: latPFromData,
		LonPHeuristic: lonPFromData,
		Forward: func(e Env) (float64, float64, error) {
			lat0 := radians(e.Lat0)
			n := math.Sin(lat0)
			if n == 0 || math.Abs(e.Lat) >= MaxLat {
				return 0, 0, ErrMathDomain
			}
			t0 := math.Tan(math.Pi/4 + lat0/2)
			t := math.Tan(math.Pi/4 + radians(e.Lat)/2)
			if t <= 0 || t0 <= 0 {
				return 0, 0, ErrMathDomain
			}
			f := math.Cos(lat0) * math.Pow(t0, n) / n
			rho := e.R * f / math.Pow(t, n)
			rho0 := e.R * math.Cos(lat0) / n
			x := rho * math.Sin(n*radians(e.Lon))
			y := rho0 - rho*math.Cos(n*radians(e.Lon))
			return x, y, nil
		},
	},
	{
		Name:      "aea",
		Category:  CategoryConic,
		XEquation: "rho*sin(n*lon), n=sin(lat0)",
		YEquation: "rho0-rho*cos(n*lon)",
		Lat0Interval: Interval{Min: 20, Max: 80},
		LatPInterval: fullLatP,
		LonPInterval: fullLonP,
		LatPHeuristic: latPFromData,
		LonPHeuristic: lonPFromData,
		Forward: func(e Env) (float64, float64, error) {
			lat0 := radians(e.Lat0)
			n := math.Sin(lat0)
			if n == 0 {
				return 0, 0, ErrMathDomain
			}
			cc := math.Cos(lat0)*math.Cos(lat0) + 2*n*math.Sin(lat0)
			arg := cc - 2*n*math.Sin(radians(e.Lat))
			if arg < 0 {
				return 0, 0, ErrMathDomain
			}
			rho := e.R / n * math.Sqrt(arg)
			rho0 := e.R * math.Cos(lat0) / n
			x := rho * math.Sin(n*radians(e.Lon))
			y := rho0 - rho*math.Cos(n*radians(e.Lon))
			return x, y, nil
		},
	},
}
