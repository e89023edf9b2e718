// Package response はAPIレスポンスの組み立てと書き込みを提供する。
package response

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/hitoshi/scaffcalc/internal/model"
)

// CalculationBody は計算成功時のレスポンス。
// coefficientは係数がない場合もnullとして必ず含める。
type CalculationBody struct {
	Success          bool                   `json:"success"`
	Volume           string                 `json:"volume"`
	Formula          string                 `json:"formula"`
	FormulaBreakdown []model.BreakdownEntry `json:"formulaBreakdown"`
	Coefficient      *model.Coefficient     `json:"coefficient"`
	Justification    model.Justification    `json:"justification"`
}

// FailureBody は失敗時のレスポンス。
type FailureBody struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// Calculation は計算結果からレスポンスを組み立てる。
// 体積は整数であっても常に小数点以下2桁で表す。
func Calculation(result *model.CalculationResult) *CalculationBody {
	breakdown := result.FormulaBreakdown
	if breakdown == nil {
		breakdown = []model.BreakdownEntry{}
	}
	return &CalculationBody{
		Success:          true,
		Volume:           FormatVolume(result.Volume),
		Formula:          result.Formula,
		FormulaBreakdown: breakdown,
		Coefficient:      result.Coefficient,
		Justification:    result.Justification,
	}
}

// Failure はAPIErrorから失敗レスポンスを組み立てる。
func Failure(apiErr *model.APIError) *FailureBody {
	return &FailureBody{
		Success: false,
		Code:    apiErr.Code,
		Message: apiErr.Message,
	}
}

// FailureFromError は任意のエラーから失敗レスポンスを組み立てる。
// APIError以外は内部エラーとして扱い、詳細はレスポンスに含めない。
func FailureFromError(err error) *FailureBody {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return Failure(apiErr)
	}
	return Failure(model.NewInternalError())
}

// FormatVolume は体積を小数点以下2桁の文字列にする。
func FormatVolume(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// WriteJSON はJSONレスポンスを書き込む。
func WriteJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}
