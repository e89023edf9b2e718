package calculator

import (
	"errors"
	"math"
	"strconv"
	"testing"

	"github.com/hitoshi/scaffcalc/internal/model"
)

func outside(l, h string) model.CalculationRequest {
	return model.CalculationRequest{Location: model.LocationOutside, Length: l, Height: h}
}

func assertInvalidInput(t *testing.T, res *model.CalculationResult, err error) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %T (%v)", err, err)
	}
	if apiErr.Code != model.ErrCodeInvalidInput {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeInvalidInput)
	}
	if res != nil {
		t.Errorf("result should be nil on invalid input, got %+v", res)
	}
}

func TestCalculate_Outside(t *testing.T) {
	engine := NewEngine(false)

	res, err := engine.Calculate(outside("10", "12"))
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}

	if res.Branch != model.BranchOutside {
		t.Errorf("Branch = %q, want %q", res.Branch, model.BranchOutside)
	}
	if res.Volume != 120 {
		t.Errorf("Volume = %v, want 120", res.Volume)
	}
	if res.Formula != "V = L × H = 10 × 12" {
		t.Errorf("Formula = %q", res.Formula)
	}
	if len(res.FormulaBreakdown) != 3 || res.FormulaBreakdown[1].Symbol != "L" {
		t.Errorf("FormulaBreakdown = %+v", res.FormulaBreakdown)
	}
	if res.Coefficient != nil {
		t.Errorf("Coefficient = %+v, want nil for H <= 16", res.Coefficient)
	}
	if res.Justification.Title == "" || res.Justification.Text == "" {
		t.Error("justification should be attached")
	}
}

func TestCalculate_InsideCeiling(t *testing.T) {
	res, err := NewEngine(false).Calculate(model.CalculationRequest{
		Location:   model.LocationInside,
		InsideType: model.InsideCeiling,
		RoomLength: "6.5",
		RoomWidth:  "4",
	})
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}
	if res.Volume != 26 {
		t.Errorf("Volume = %v, want 26", res.Volume)
	}
	if res.Formula != "V = Lпом × Wпом = 6.5 × 4" {
		t.Errorf("Formula = %q", res.Formula)
	}
	if res.Coefficient != nil {
		t.Error("inside branches never carry a coefficient")
	}
	if res.Justification != justifications[model.BranchCeiling] {
		t.Error("ceiling justification expected")
	}
}

func TestCalculate_InsideWalls(t *testing.T) {
	res, err := NewEngine(false).Calculate(model.CalculationRequest{
		Location:      model.LocationInside,
		InsideType:    model.InsideWalls,
		WallsLength:   "40",
		ScaffoldWidth: "1.25",
	})
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}
	if res.Volume != 50 {
		t.Errorf("Volume = %v, want 50", res.Volume)
	}
	if res.Formula != "V = Lстен × Wнастила = 40 × 1.25" {
		t.Errorf("Formula = %q", res.Formula)
	}
	if res.Justification != justifications[model.BranchWalls] {
		t.Error("walls justification expected")
	}
}

func TestCalculate_VolumeRoundedToTwoDecimals(t *testing.T) {
	pairs := [][2]float64{
		{10, 20}, {3.333, 3}, {0.1, 0.2}, {12.345, 6.789}, {1, 16.0001}, {99.99, 0.01},
	}
	engine := NewEngine(false)

	for _, p := range pairs {
		l := strconv.FormatFloat(p[0], 'f', -1, 64)
		h := strconv.FormatFloat(p[1], 'f', -1, 64)

		res, err := engine.Calculate(outside(l, h))
		if err != nil {
			t.Fatalf("Calculate(%s, %s) error = %v", l, h, err)
		}
		want := math.Round(p[0]*p[1]*100) / 100
		if res.Volume != want {
			t.Errorf("Calculate(%s, %s).Volume = %v, want %v", l, h, res.Volume, want)
		}
	}
}

func TestCalculate_Coefficient(t *testing.T) {
	tests := []struct {
		height    string
		wantValue int
		wantNil   bool
	}{
		{"10", 0, true},
		{"16", 0, true},
		{"16.5", 1, false},
		{"20", 1, false},
		{"20.01", 2, false},
		{"24", 2, false},
		{"25", 3, false},
		{"36", 5, false},
	}

	engine := NewEngine(false)
	for _, tt := range tests {
		t.Run("H="+tt.height, func(t *testing.T) {
			res, err := engine.Calculate(outside("10", tt.height))
			if err != nil {
				t.Fatalf("Calculate() error = %v", err)
			}
			if tt.wantNil {
				if res.Coefficient != nil {
					t.Errorf("Coefficient = %+v, want nil", res.Coefficient)
				}
				return
			}
			if res.Coefficient == nil {
				t.Fatal("Coefficient = nil, want non-nil")
			}
			if res.Coefficient.Value != tt.wantValue {
				t.Errorf("Coefficient.Value = %d, want %d", res.Coefficient.Value, tt.wantValue)
			}
			if res.Coefficient.Explanation == "" {
				t.Error("explanation should not be empty")
			}
		})
	}
}

func TestCalculate_CoefficientFormulaSubstitutesHeight(t *testing.T) {
	res, err := NewEngine(false).Calculate(outside("10", "22.5"))
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}
	want := "K = Округл.вверх((22.5 - 16) / 4) = 2"
	if res.Coefficient.Formula != want {
		t.Errorf("Coefficient.Formula = %q, want %q", res.Coefficient.Formula, want)
	}
}

// TestCalculate_CoefficientStepsEveryFourMeters は係数が高さに対して単調非減少で、
// 16mを超えると4mごとにちょうど1ずつ増えることを検証する。
func TestCalculate_CoefficientStepsEveryFourMeters(t *testing.T) {
	engine := NewEngine(false)
	prev := 0

	for h := 16.25; h <= 60; h += 0.25 {
		res, err := engine.Calculate(outside("1", strconv.FormatFloat(h, 'f', -1, 64)))
		if err != nil {
			t.Fatalf("Calculate(H=%v) error = %v", h, err)
		}
		k := res.Coefficient.Value
		if k < prev {
			t.Fatalf("coefficient decreased at H=%v: %d < %d", h, k, prev)
		}
		if k-prev > 1 {
			t.Fatalf("coefficient jumped by %d at H=%v", k-prev, h)
		}
		want := int(math.Ceil((h - 16) / 4))
		if k != want {
			t.Fatalf("coefficient at H=%v = %d, want %d", h, k, want)
		}
		prev = k
	}
}

// TestCalculate_CoefficientLargeHeights は極端に高い値でも係数が正のまま単調に増えることを検証する。
func TestCalculate_CoefficientLargeHeights(t *testing.T) {
	engine := NewEngine(false)
	prev := 0

	for _, h := range []string{"1e3", "1e6", "1e12", "1e15", "1e18"} {
		res, err := engine.Calculate(outside("1", h))
		if err != nil {
			t.Fatalf("Calculate(H=%s) error = %v", h, err)
		}
		if math.IsInf(res.Volume, 0) {
			t.Fatalf("Volume at H=%s is infinite", h)
		}
		k := res.Coefficient.Value
		if k <= prev {
			t.Fatalf("coefficient at H=%s = %d, want > %d", h, k, prev)
		}
		prev = k
	}
}

func TestCalculate_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		req  model.CalculationRequest
	}{
		{"missing height", outside("10", "")},
		{"zero length", outside("0", "10")},
		{"negative height", outside("10", "-5")},
		{"non-numeric", outside("abc", "10")},
		{"trailing garbage", outside("10m", "10")},
		{"NaN", outside("NaN", "10")},
		{"Inf", outside("10", "Inf")},
		{"hex float", outside("10", "0x1p4")},
		{"upper hex", outside("0X10", "5")},
		{"height beyond coefficient range", outside("1", "1e20")},
		{"huge height", outside("1", "1e200")},
		{"volume overflows", outside("1e200", "1e200")},
		{"ceiling volume overflows", model.CalculationRequest{
			Location: model.LocationInside, InsideType: model.InsideCeiling, RoomLength: "1e300", RoomWidth: "1e300",
		}},
		{"ceiling missing width", model.CalculationRequest{
			Location: model.LocationInside, InsideType: model.InsideCeiling, RoomLength: "5",
		}},
		{"walls zero width", model.CalculationRequest{
			Location: model.LocationInside, InsideType: model.InsideWalls, WallsLength: "5", ScaffoldWidth: "0",
		}},
	}

	engine := NewEngine(false)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := engine.Calculate(tt.req)
			assertInvalidInput(t, res, err)
		})
	}
}

func TestCalculate_InvalidInputMessageNamesFieldPair(t *testing.T) {
	engine := NewEngine(false)

	_, err := engine.Calculate(model.CalculationRequest{
		Location: model.LocationInside, InsideType: model.InsideWalls, WallsLength: "x", ScaffoldWidth: "1",
	})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Message != wallsFormula.invalid {
		t.Errorf("Message = %q, want %q", apiErr.Message, wallsFormula.invalid)
	}
}

func TestCalculate_WhitespaceTolerated(t *testing.T) {
	res, err := NewEngine(false).Calculate(outside(" 10 ", "\t5"))
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}
	if res.Volume != 50 {
		t.Errorf("Volume = %v, want 50", res.Volume)
	}
}

func TestCalculate_UnknownBranch_Lenient(t *testing.T) {
	tests := []model.CalculationRequest{
		{Location: "roof", Length: "10", Height: "10"},
		{Location: model.LocationInside, InsideType: "floor"},
		{},
	}

	engine := NewEngine(false)
	for _, req := range tests {
		res, err := engine.Calculate(req)
		if err != nil {
			t.Fatalf("Calculate(%+v) error = %v", req, err)
		}
		if res.Branch != model.BranchUnknown {
			t.Errorf("Branch = %q, want unknown", res.Branch)
		}
		if res.Volume != 0 || res.Formula != "" {
			t.Errorf("unknown branch should yield zero volume and empty formula, got %+v", res)
		}
		if res.Coefficient != nil {
			t.Error("unknown branch should not carry a coefficient")
		}
	}
}

func TestCalculate_UnknownBranch_Strict(t *testing.T) {
	res, err := NewEngine(true).Calculate(model.CalculationRequest{Location: "roof"})
	assertInvalidInput(t, res, err)
}

func TestCalculate_ResultsAreIndependent(t *testing.T) {
	engine := NewEngine(false)

	first, _ := engine.Calculate(outside("10", "20"))
	first.FormulaBreakdown[0].Meaning = "changed"

	second, _ := engine.Calculate(outside("10", "20"))
	if second.FormulaBreakdown[0].Meaning == "changed" {
		t.Error("results must not share the breakdown slice")
	}
}
