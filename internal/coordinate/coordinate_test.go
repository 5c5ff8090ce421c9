package coordinate

import (
	"math"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// TestTransform_SeoulCityHallWGS84ToGRS80Central is the literal S1
// scenario: Seoul City Hall, WGS84 -> GRS80_CENTRAL.
func TestTransform_SeoulCityHallWGS84ToGRS80Central(t *testing.T) {
	result, err := Transform(Point{X: 126.9780, Y: 37.5665}, WGS84, GRS80Central)
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	if !almostEqual(result.X, 198056.37, 1) {
		t.Errorf("X = %f, want ~198056.37 ± 1", result.X)
	}
	if !almostEqual(result.Y, 551885.03, 1) {
		t.Errorf("Y = %f, want ~551885.03 ± 1", result.Y)
	}
}

// TestTransformBatch_TwoPoints is the literal S3 scenario.
func TestTransformBatch_TwoPoints(t *testing.T) {
	points := []Point{{X: 200000, Y: 600000}, {X: 200100, Y: 600100}}
	results, err := TransformBatch(points, GRS80Central, WGS84)
	if err != nil {
		t.Fatalf("TransformBatch() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	for i, r := range results {
		if r.X < 100 || r.X > 135 {
			t.Errorf("result[%d].X = %f, not a plausible Korean longitude", i, r.X)
		}
		if r.Y < 30 || r.Y > 45 {
			t.Errorf("result[%d].Y = %f, not a plausible Korean latitude", i, r.Y)
		}
	}
}

// TestTransform_IdentityWhenSameSystem covers property 7.
func TestTransform_IdentityWhenSameSystem(t *testing.T) {
	p := Point{X: 126.9780, Y: 37.5665}
	result, err := Transform(p, WGS84, WGS84)
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	if result != p {
		t.Errorf("Transform(p, S, S) = %+v, want %+v unchanged", result, p)
	}
}

// TestTransform_RoundTripPreservesWGS84ToSixDecimals covers property 6
// for every registered projected system.
func TestTransform_RoundTripPreservesWGS84ToSixDecimals(t *testing.T) {
	seoul := Point{X: 126.9780, Y: 37.5665}

	for _, sys := range []System{GRS80Central, GRS80West, GRS80East, BesselCentral, KATEC, UTMK} {
		projected, err := Transform(seoul, WGS84, sys)
		if err != nil {
			t.Fatalf("Transform(WGS84->%s) error = %v", sys, err)
		}
		back, err := Transform(projected, sys, WGS84)
		if err != nil {
			t.Fatalf("Transform(%s->WGS84) error = %v", sys, err)
		}
		if !almostEqual(back.X, seoul.X, 1e-6) {
			t.Errorf("%s round-trip X = %f, want %f ± 1e-6", sys, back.X, seoul.X)
		}
		if !almostEqual(back.Y, seoul.Y, 1e-6) {
			t.Errorf("%s round-trip Y = %f, want %f ± 1e-6", sys, back.Y, seoul.Y)
		}
	}
}

func TestDetectSystem_PrefersWGS84ForDegreeRangeValues(t *testing.T) {
	sys, ok := DetectSystem(Point{X: 126.9780, Y: 37.5665})
	if !ok || sys != WGS84 {
		t.Errorf("DetectSystem() = (%v, %v), want (WGS84, true)", sys, ok)
	}
}

func TestDetectSystem_ClassifiesProjectedRanges(t *testing.T) {
	sys, ok := DetectSystem(Point{X: 1000000, Y: 2000000})
	if !ok || sys != UTMK {
		t.Errorf("DetectSystem() = (%v, %v), want (UTM_K, true)", sys, ok)
	}
}

func TestDetectSystem_ReturnsFalseOutsideAllRanges(t *testing.T) {
	_, ok := DetectSystem(Point{X: -500000, Y: 9999999})
	if ok {
		t.Error("DetectSystem() should return false for values outside every registered range")
	}
}

func TestValidatePoint_RejectsOutOfRangeDegreeAsError(t *testing.T) {
	res := ValidatePoint(Point{X: 200, Y: 37.5665}, WGS84)
	if res.Valid {
		t.Error("expected invalid for longitude outside [-180, 180]")
	}
}

func TestValidatePoint_OutOfKoreanRangeGRS80IsWarningNotError(t *testing.T) {
	// Finite, in-domain x/y for a projected system, but outside the
	// system's expected Korean bounding box.
	res := ValidatePoint(Point{X: 100000000, Y: 100000000}, GRS80Central)
	if !res.Valid {
		t.Error("an out-of-Korean-range but finite projected point must still validate")
	}
	if len(res.Warnings) == 0 {
		t.Error("expected a warning for a point outside the Korean range")
	}
}

func TestIsValidPoint_MatchesValidatePoint(t *testing.T) {
	if !IsValidPoint(Point{X: 126.9780, Y: 37.5665}, WGS84) {
		t.Error("expected Seoul City Hall to validate under WGS84")
	}
	if IsValidPoint(Point{X: 999, Y: 999}, WGS84) {
		t.Error("expected out-of-domain point to fail validation")
	}
}

func TestTransform_UnknownSystemIsCoordinateError(t *testing.T) {
	_, err := Transform(Point{X: 0, Y: 0}, "NOT_A_SYSTEM", WGS84)
	if err == nil {
		t.Fatal("expected error for unknown system")
	}
}

func TestSupportedSystems_ListsAllSeven(t *testing.T) {
	systems := SupportedSystems()
	if len(systems) != 7 {
		t.Errorf("len(SupportedSystems()) = %d, want 7", len(systems))
	}
}
