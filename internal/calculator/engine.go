// Package calculator は足場の作業量（面積）を求める計算エンジンを提供する。
// 計算は純粋関数であり、共有状態を持たずI/Oも行わない。
package calculator

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/hitoshi/scaffcalc/internal/model"
)

// Engine は計算リクエストを分岐ごとの計算式に振り分ける。
type Engine struct {
	// strict がtrueの場合、未知の設置場所・内部種別をInvalidInputとして扱う。
	// falseの場合は体積0・空の計算式を返す。
	strict bool
}

// NewEngine はEngineを生成する。
func NewEngine(strict bool) *Engine {
	return &Engine{strict: strict}
}

// Calculate は入力を検証し、体積、計算式、係数、根拠を返す。
// 入力が不正な場合は計算前にInvalidInputエラーを返す。
func (e *Engine) Calculate(req model.CalculationRequest) (*model.CalculationResult, error) {
	formula, ok := selectFormula(req)
	if !ok {
		if e.strict {
			return nil, model.NewInvalidInputError(
				"Неизвестный тип расчёта: укажите location (outside/inside) и insideType (ceiling/walls).",
			)
		}
		return &model.CalculationResult{
			Branch:           model.BranchUnknown,
			FormulaBreakdown: []model.BreakdownEntry{},
			Justification:    justificationFor(model.BranchUnknown),
		}, nil
	}

	a, errA := parsePositive(formula.operands[0].field(req))
	b, errB := parsePositive(formula.operands[1].field(req))
	if errA != nil || errB != nil {
		return nil, model.NewInvalidInputError(formula.invalid)
	}

	volume, err := formula.evaluate(a, b)
	if err != nil {
		return nil, err
	}
	volume = roundTo2(volume)
	if math.IsInf(volume, 0) || math.IsNaN(volume) {
		return nil, model.NewInvalidInputError(formula.invalid)
	}

	result := &model.CalculationResult{
		Branch:           formula.branch,
		Volume:           volume,
		Formula:          formula.text(a, b),
		FormulaBreakdown: append([]model.BreakdownEntry(nil), formula.breakdown...),
		Justification:    justificationFor(formula.branch),
	}

	if formula.branch == model.BranchOutside {
		coefficient, err := coefficientFor(b)
		if errors.Is(err, errCoefficientOverflow) {
			return nil, model.NewInvalidInputError(formula.invalid)
		}
		if err != nil {
			return nil, err
		}
		result.Coefficient = coefficient
	}

	return result, nil
}

// coefficientFor は高さが16mを超える場合の係数Kを返す。16m以下ならnil。
func coefficientFor(h float64) (*model.Coefficient, error) {
	if h <= baseHeight {
		return nil, nil
	}

	k, err := evaluateCoefficient(h)
	if err != nil {
		return nil, err
	}

	return &model.Coefficient{
		Value:       k,
		Formula:     fmt.Sprintf("K = Округл.вверх((%s - 16) / 4) = %d", formatNumber(h), k),
		Explanation: "Так как высота лесов превышает 16 м, дополнительно применяется коэффициент К.",
	}, nil
}

// parsePositive は文字列を有限かつ0より大きい10進数として解析する。
func parsePositive(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("value is required")
	}
	// 16進表記はParseFloatが受け付けるため先に弾く
	if strings.ContainsAny(s, "xX") {
		return 0, fmt.Errorf("value %q is not a decimal number", raw)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("value %q is not a number", raw)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("value %q is not finite", raw)
	}
	if v <= 0 {
		return 0, fmt.Errorf("value %q must be greater than zero", raw)
	}
	return v, nil
}

func roundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}

// formatNumber は末尾の0を付けずに数値を表示する。
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
