package calculator

import (
	"errors"
	"fmt"
	"math"

	"github.com/Knetic/govaluate"
	"github.com/hitoshi/scaffcalc/internal/model"
)

// baseHeight を超える高さについて、stepHeightごとに係数Kが1ずつ増える。
const (
	baseHeight = 16.0
	stepHeight = 4.0
)

// operand は計算式の1変数。
type operand struct {
	param  string // govaluateのパラメータ名
	symbol string // 表示用の記号
	field  func(req model.CalculationRequest) string
}

// volumeFormula は1つの分岐の体積計算式。
type volumeFormula struct {
	branch    model.Branch
	expr      *govaluate.EvaluableExpression
	operands  [2]operand
	breakdown []model.BreakdownEntry
	// invalid は入力検証に失敗したときのメッセージ。対象フィールドの組を名指しする。
	invalid string
}

var formulaFunctions = map[string]govaluate.ExpressionFunction{
	"ceil": func(args ...interface{}) (interface{}, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("ceil expects 1 argument, got %d", len(args))
		}
		v, ok := args[0].(float64)
		if !ok {
			return nil, fmt.Errorf("ceil expects a number, got %T", args[0])
		}
		return math.Ceil(v), nil
	},
}

func mustCompile(expression string) *govaluate.EvaluableExpression {
	expr, err := govaluate.NewEvaluableExpressionWithFunctions(expression, formulaFunctions)
	if err != nil {
		panic(fmt.Sprintf("calculator: invalid expression %q: %v", expression, err))
	}
	return expr
}

var (
	outsideFormula = &volumeFormula{
		branch: model.BranchOutside,
		expr:   mustCompile("L * H"),
		operands: [2]operand{
			{param: "L", symbol: "L", field: func(r model.CalculationRequest) string { return r.Length }},
			{param: "H", symbol: "H", field: func(r model.CalculationRequest) string { return r.Height }},
		},
		breakdown: []model.BreakdownEntry{
			{Symbol: "V", Meaning: "искомый объем работ, м²"},
			{Symbol: "L", Meaning: "длина фасада здания, м"},
			{Symbol: "H", Meaning: "высота фасада здания, м"},
		},
		invalid: "Длина и высота должны быть положительными числами.",
	}

	ceilingFormula = &volumeFormula{
		branch: model.BranchCeiling,
		expr:   mustCompile("Lp * Wp"),
		operands: [2]operand{
			{param: "Lp", symbol: "Lпом", field: func(r model.CalculationRequest) string { return r.RoomLength }},
			{param: "Wp", symbol: "Wпом", field: func(r model.CalculationRequest) string { return r.RoomWidth }},
		},
		breakdown: []model.BreakdownEntry{
			{Symbol: "V", Meaning: "искомый объем работ, м²"},
			{Symbol: "Lпом", Meaning: "длина помещения, м"},
			{Symbol: "Wпом", Meaning: "ширина помещения, м"},
		},
		invalid: "Длина и ширина помещения должны быть положительными числами.",
	}

	wallsFormula = &volumeFormula{
		branch: model.BranchWalls,
		expr:   mustCompile("Ls * Wn"),
		operands: [2]operand{
			{param: "Ls", symbol: "Lстен", field: func(r model.CalculationRequest) string { return r.WallsLength }},
			{param: "Wn", symbol: "Wнастила", field: func(r model.CalculationRequest) string { return r.ScaffoldWidth }},
		},
		breakdown: []model.BreakdownEntry{
			{Symbol: "V", Meaning: "искомый объем работ, м²"},
			{Symbol: "Lстен", Meaning: "общая длина стен, м"},
			{Symbol: "Wнастила", Meaning: "ширина настила лесов, м"},
		},
		invalid: "Длина стен и ширина настила должны быть положительными числами.",
	}

	// K = ceil((H - 16) / 4)
	coefficientExpr = mustCompile("ceil((H - 16) / 4)")
)

// selectFormula は設置場所と内部種別から計算式を選ぶ。未知の組み合わせはfalse。
func selectFormula(req model.CalculationRequest) (*volumeFormula, bool) {
	switch req.Location {
	case model.LocationOutside:
		return outsideFormula, true
	case model.LocationInside:
		switch req.InsideType {
		case model.InsideCeiling:
			return ceilingFormula, true
		case model.InsideWalls:
			return wallsFormula, true
		}
	}
	return nil, false
}

// evaluate は2つの値で体積を計算する。
func (f *volumeFormula) evaluate(a, b float64) (float64, error) {
	out, err := f.expr.Evaluate(map[string]interface{}{
		f.operands[0].param: a,
		f.operands[1].param: b,
	})
	if err != nil {
		return 0, fmt.Errorf("evaluate %s volume: %w", f.branch, err)
	}
	v, ok := out.(float64)
	if !ok {
		return 0, fmt.Errorf("evaluate %s volume: unexpected result type %T", f.branch, out)
	}
	return v, nil
}

// text は値を代入した計算式の表示文字列を返す。
func (f *volumeFormula) text(a, b float64) string {
	return fmt.Sprintf("V = %s × %s = %s × %s",
		f.operands[0].symbol, f.operands[1].symbol,
		formatNumber(a), formatNumber(b),
	)
}

// errCoefficientOverflow は係数Kがintで表せないほど高さが大きいことを表す。
var errCoefficientOverflow = errors.New("coefficient exceeds int range")

// maxCoefficient 以上のKはintに変換できない。
const maxCoefficient = float64(math.MaxInt)

// evaluateCoefficient は高さHに対する係数Kを計算する。
func evaluateCoefficient(h float64) (int, error) {
	out, err := coefficientExpr.Evaluate(map[string]interface{}{"H": h})
	if err != nil {
		return 0, fmt.Errorf("evaluate coefficient: %w", err)
	}
	v, ok := out.(float64)
	if !ok {
		return 0, fmt.Errorf("evaluate coefficient: unexpected result type %T", out)
	}
	if math.IsNaN(v) || v >= maxCoefficient {
		return 0, errCoefficientOverflow
	}
	return int(v), nil
}
