// Package coordinate implements the gateway's coordinate transformation
// engine (spec.md §4.G): a closed, table-driven registry of the seven
// Korean geodetic/projected systems, forward/inverse transverse
// Mercator projection, and a Helmert datum shift for the Bessel-based
// systems.
package coordinate

import (
	"math"

	"github.com/joonake9644/koreagate/internal/apperrors"
	"github.com/joonake9644/koreagate/internal/telemetry"
)

// System is one of the closed set of seven coordinate system codes.
type System string

const (
	WGS84         System = "WGS84"
	GRS80Central  System = "GRS80_CENTRAL"
	GRS80West     System = "GRS80_WEST"
	GRS80East     System = "GRS80_EAST"
	BesselCentral System = "BESSEL_CENTRAL"
	KATEC         System = "KATEC"
	UTMK          System = "UTM_K"
)

// Unit is the system's native coordinate unit.
type Unit string

const (
	UnitDegree Unit = "degree"
	UnitMeter  Unit = "meter"
)

// ellipsoid carries a reference ellipsoid's semi-major axis and
// flattening.
type ellipsoid struct {
	a float64
	f float64
}

var (
	grs80  = ellipsoid{a: 6378137.0, f: 1 / 298.257222101}
	bessel = ellipsoid{a: 6377397.155, f: 1 / 299.152813}
)

// datumShift is a Helmert 7-parameter transform to WGS84 geocentric
// coordinates: three translations (meters), three rotations (radians),
// and a scale factor (dimensionless, 1+ppm). Rotation/scale are zero
// for the shift this registry actually uses, but the struct carries
// all seven so a future system with a rotated datum slots in without
// a signature change.
type datumShift struct {
	dx, dy, dz    float64
	rx, ry, rz    float64
	scale         float64
}

// tokyoToWGS84 is the Bessel (Tokyo Datum) to WGS84 geocentric shift
// used by the two Bessel-ellipsoid systems in this registry.
var tokyoToWGS84 = datumShift{dx: -146.43, dy: 507.89, dz: 681.46}

// Range bounds one axis for validation/autodetect.
type Range struct {
	Min, Max float64
}

// Definition is one closed-registry entry: everything transform,
// validate, and detectSystem need for one coordinate system.
type Definition struct {
	Code            System
	EPSG            int
	PROJ            string
	Unit            Unit
	OriginLat       float64
	OriginLon       float64
	FalseEasting    float64
	FalseNorthing   float64
	ScaleFactor     float64
	Ellipsoid       ellipsoid
	Shift           *datumShift // nil when the system shares WGS84's datum
	XRange, YRange  Range
}

// registry is the closed set of seven systems. No runtime mutation.
var registry = map[System]Definition{
	WGS84: {
		Code: WGS84, EPSG: 4326, PROJ: "+proj=longlat +datum=WGS84 +no_defs",
		Unit:   UnitDegree,
		XRange: Range{-180, 180}, YRange: Range{-90, 90},
	},
	GRS80Central: {
		Code: GRS80Central, EPSG: 5186,
		PROJ:          "+proj=tmerc +lat_0=38 +lon_0=127 +k=1 +x_0=200000 +y_0=600000 +ellps=GRS80 +units=m +no_defs",
		Unit:          UnitMeter,
		OriginLat:     38, OriginLon: 127,
		FalseEasting:  200000, FalseNorthing: 600000, ScaleFactor: 1.0,
		Ellipsoid:     grs80,
		XRange:        Range{100000, 300000}, YRange: Range{400000, 800000},
	},
	GRS80West: {
		Code: GRS80West, EPSG: 5185,
		PROJ:          "+proj=tmerc +lat_0=38 +lon_0=125 +k=1 +x_0=200000 +y_0=600000 +ellps=GRS80 +units=m +no_defs",
		Unit:          UnitMeter,
		OriginLat:     38, OriginLon: 125,
		FalseEasting:  200000, FalseNorthing: 600000, ScaleFactor: 1.0,
		Ellipsoid:     grs80,
		XRange:        Range{100000, 300000}, YRange: Range{400000, 800000},
	},
	GRS80East: {
		Code: GRS80East, EPSG: 5187,
		PROJ:          "+proj=tmerc +lat_0=38 +lon_0=129 +k=1 +x_0=200000 +y_0=600000 +ellps=GRS80 +units=m +no_defs",
		Unit:          UnitMeter,
		OriginLat:     38, OriginLon: 129,
		FalseEasting:  200000, FalseNorthing: 600000, ScaleFactor: 1.0,
		Ellipsoid:     grs80,
		XRange:        Range{100000, 300000}, YRange: Range{400000, 800000},
	},
	BesselCentral: {
		Code: BesselCentral, EPSG: 2097,
		PROJ:          "+proj=tmerc +lat_0=38 +lon_0=127 +k=1 +x_0=200000 +y_0=500000 +ellps=bessel +towgs84=-146.43,507.89,681.46,0,0,0,0 +units=m +no_defs",
		Unit:          UnitMeter,
		OriginLat:     38, OriginLon: 127,
		FalseEasting:  200000, FalseNorthing: 500000, ScaleFactor: 1.0,
		Ellipsoid:     bessel,
		Shift:         &tokyoToWGS84,
		XRange:        Range{100000, 300000}, YRange: Range{300000, 700000},
	},
	KATEC: {
		Code: KATEC, EPSG: 0,
		PROJ:          "+proj=tmerc +lat_0=38 +lon_0=127 +k=0.9999 +x_0=200000 +y_0=500000 +ellps=bessel +towgs84=-146.43,507.89,681.46,0,0,0,0 +units=m +no_defs",
		Unit:          UnitMeter,
		OriginLat:     38, OriginLon: 127,
		FalseEasting:  200000, FalseNorthing: 500000, ScaleFactor: 0.9999,
		Ellipsoid:     bessel,
		Shift:         &tokyoToWGS84,
		XRange:        Range{100000, 300000}, YRange: Range{300000, 700000},
	},
	UTMK: {
		Code: UTMK, EPSG: 5179,
		PROJ:          "+proj=tmerc +lat_0=38 +lon_0=127.5 +k=0.9996 +x_0=1000000 +y_0=2000000 +ellps=GRS80 +units=m +no_defs",
		Unit:          UnitMeter,
		OriginLat:     38, OriginLon: 127.5,
		FalseEasting:  1000000, FalseNorthing: 2000000, ScaleFactor: 0.9996,
		Ellipsoid:     grs80,
		XRange:        Range{900000, 1100000}, YRange: Range{1800000, 2200000},
	},
}

// SupportedSystems returns every registered system code.
func SupportedSystems() []System {
	return []System{WGS84, GRS80Central, GRS80West, GRS80East, BesselCentral, KATEC, UTMK}
}

func lookup(code System) (Definition, error) {
	def, ok := registry[code]
	if !ok {
		return Definition{}, apperrors.NewCoordinateError("unknown coordinate system: " + string(code))
	}
	return def, nil
}

// Point is either a geographic (lon, lat) or projected (x, y) pair;
// the engine always normalizes its return value to {X, Y} form.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NormalizePoint returns the {x,y} form of a point, mapping lon->x,
// lat->y. This is the identity for already-normalized points.
func NormalizePoint(p Point) Point {
	return p
}

// toGeodeticWGS84 converts a point in system `from` into WGS84
// geographic coordinates (lon, lat), the engine's canonical interchange
// form.
func toGeodeticWGS84(p Point, from Definition) (Point, error) {
	if from.Code == WGS84 {
		return p, nil
	}

	lon, lat := tmInverse(p.X, p.Y, from)

	if from.Shift != nil {
		x, y, z := geodeticToGeocentric(lat, lon, 0, from.Ellipsoid)
		x, y, z = applyShift(x, y, z, *from.Shift)
		lat, lon = geocentricToGeodetic(x, y, z, grs80)
	}

	return Point{X: lon, Y: lat}, nil
}

// fromGeodeticWGS84 converts WGS84 geographic coordinates into system
// `to`.
func fromGeodeticWGS84(lonLat Point, to Definition) Point {
	if to.Code == WGS84 {
		return lonLat
	}

	lon, lat := lonLat.X, lonLat.Y

	if to.Shift != nil {
		x, y, z := geodeticToGeocentric(lat, lon, 0, grs80)
		x, y, z = applyInverseShift(x, y, z, *to.Shift)
		lat, lon = geocentricToGeodetic(x, y, z, to.Ellipsoid)
	}

	x, y := tmForward(lon, lat, to)
	return Point{X: x, Y: y}
}

// Transform converts point from system `from` to system `to`, per
// spec.md §4.G's seven-step algorithm.
func Transform(point Point, from, to System) (Point, error) {
	fromDef, err := lookup(from)
	if err != nil {
		return Point{}, err
	}
	toDef, err := lookup(to)
	if err != nil {
		return Point{}, err
	}

	telemetry.CoordinateTransformsTotal.WithLabelValues(string(from), string(to)).Inc()

	if from == to {
		return NormalizePoint(point), nil
	}

	if res := ValidatePoint(point, from); !res.Valid {
		return Point{}, apperrors.NewCoordinateError("input point violates " + string(from) + "'s domain: " + joinErrors(res.Errors))
	}

	wgs84Point, err := toGeodeticWGS84(point, fromDef)
	if err != nil {
		return Point{}, err
	}

	result := fromGeodeticWGS84(wgs84Point, toDef)
	return NormalizePoint(result), nil
}

func joinErrors(errs []string) string {
	out := ""
	for i, e := range errs {
		if i > 0 {
			out += "; "
		}
		out += e
	}
	return out
}

// TransformBatch applies Transform to every point in a single pass,
// reusing the resolved system definitions instead of looking them up
// per point.
func TransformBatch(points []Point, from, to System) ([]Point, error) {
	if _, err := lookup(from); err != nil {
		return nil, err
	}
	if _, err := lookup(to); err != nil {
		return nil, err
	}

	out := make([]Point, len(points))
	for i, p := range points {
		transformed, err := Transform(p, from, to)
		if err != nil {
			return nil, err
		}
		out[i] = transformed
	}
	return out, nil
}

// Metadata describes one Transform call with its accuracy class.
type Metadata struct {
	Input struct {
		Point  Point  `json:"point"`
		System System `json:"system"`
	} `json:"input"`
	Output struct {
		Point  Point  `json:"point"`
		System System `json:"system"`
	} `json:"output"`
	Accuracy string `json:"accuracy"`
}

// TransformWithMetadata wraps Transform with the input/output/accuracy
// envelope spec.md §4.G specifies.
func TransformWithMetadata(point Point, from, to System) (Metadata, error) {
	result, err := Transform(point, from, to)
	if err != nil {
		return Metadata{}, err
	}
	var m Metadata
	m.Input.Point = point
	m.Input.System = from
	m.Output.Point = result
	m.Output.System = to
	m.Accuracy = "<1m"
	return m, nil
}

// DetectSystem returns the system whose numeric range covers point,
// preferring WGS84 first, then each projected system in registry order.
func DetectSystem(point Point) (System, bool) {
	if inRange(point, registry[WGS84]) {
		return WGS84, true
	}
	for _, code := range []System{GRS80Central, GRS80West, GRS80East, BesselCentral, KATEC, UTMK} {
		if inRange(point, registry[code]) {
			return code, true
		}
	}
	return "", false
}

func inRange(p Point, def Definition) bool {
	return p.X >= def.XRange.Min && p.X <= def.XRange.Max &&
		p.Y >= def.YRange.Min && p.Y <= def.YRange.Max
}

// ValidationResult is the outcome of ValidatePoint.
type ValidationResult struct {
	Valid          bool     `json:"valid"`
	Errors         []string `json:"errors,omitempty"`
	Warnings       []string `json:"warnings,omitempty"`
	DetectedSystem System   `json:"detectedSystem,omitempty"`
}

// ValidatePoint checks point against system's domain. Degree systems
// require lon/lat within their hard range; projected systems require
// finite x/y. Values outside system's informal Korean-range table
// produce warnings, not errors.
func ValidatePoint(point Point, system System) ValidationResult {
	def, err := lookup(system)
	if err != nil {
		return ValidationResult{Valid: false, Errors: []string{err.Error()}}
	}

	var res ValidationResult
	res.Valid = true

	if def.Unit == UnitDegree {
		if point.X < -180 || point.X > 180 {
			res.Valid = false
			res.Errors = append(res.Errors, "longitude out of [-180, 180]")
		}
		if point.Y < -90 || point.Y > 90 {
			res.Valid = false
			res.Errors = append(res.Errors, "latitude out of [-90, 90]")
		}
	} else {
		if math.IsNaN(point.X) || math.IsInf(point.X, 0) {
			res.Valid = false
			res.Errors = append(res.Errors, "x is not finite")
		}
		if math.IsNaN(point.Y) || math.IsInf(point.Y, 0) {
			res.Valid = false
			res.Errors = append(res.Errors, "y is not finite")
		}
	}

	if res.Valid && !inRange(point, def) {
		res.Warnings = append(res.Warnings, "point falls outside the expected Korean range for "+string(system))
	}

	if detected, ok := DetectSystem(point); ok {
		res.DetectedSystem = detected
	}

	return res
}

// IsValidPoint reports whether ValidatePoint would report no errors.
func IsValidPoint(point Point, system System) bool {
	return ValidatePoint(point, system).Valid
}
