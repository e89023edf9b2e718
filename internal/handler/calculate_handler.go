package handler

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/hitoshi/scaffcalc/internal/metrics"
	"github.com/hitoshi/scaffcalc/internal/middleware"
	"github.com/hitoshi/scaffcalc/internal/model"
	"github.com/hitoshi/scaffcalc/internal/response"
)

// maxRequestBodyBytes はリクエストボディの読み込み上限。
const maxRequestBodyBytes = 1 << 20

// CalculatorInterface は計算ハンドラーが必要とする計算エンジンのインターフェース。
type CalculatorInterface interface {
	Calculate(req model.CalculationRequest) (*model.CalculationResult, error)
}

// CalculateHandler は足場の作業量計算のHTTPハンドラー。
type CalculateHandler struct {
	engine  CalculatorInterface
	metrics metrics.MetricsCollector
}

// NewCalculateHandler はCalculateHandlerを生成する。
func NewCalculateHandler(engine CalculatorInterface, collector metrics.MetricsCollector) *CalculateHandler {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &CalculateHandler{engine: engine, metrics: collector}
}

// Calculate は計算リクエストを処理する。アクセスミドルウェアの後に配置する。
// dataの数値フィールドはJSONの数値でも数値文字列でもよい。
// POST /api/calculate, POST /api/calculate/scaffolding
func (h *CalculateHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodyBytes))
	if err != nil {
		slog.Warn("failed to read request body", slog.String("error", err.Error()))
		middleware.WriteAPIError(w, model.NewInvalidInputError("Некорректное тело запроса."))
		return
	}
	if !gjson.ValidBytes(body) {
		middleware.WriteAPIError(w, model.NewInvalidInputError("Некорректное тело запроса."))
		return
	}

	req := parseCalculationRequest(body)

	result, err := h.engine.Calculate(req)
	if err != nil {
		h.metrics.RecordCalculation(metrics.BranchInvalid)
		handleServiceError(w, err)
		return
	}
	h.metrics.RecordCalculation(string(result.Branch))

	response.WriteJSON(w, http.StatusOK, response.Calculation(result))
}

// parseCalculationRequest はボディのdataから計算リクエストを取り出す。
// 数値は元の表記のまま文字列として保持し、検証は計算エンジンが行う。
func parseCalculationRequest(body []byte) model.CalculationRequest {
	data := gjson.GetBytes(body, "data")
	field := func(name string) string {
		v := data.Get(name)
		if v.Type == gjson.Null {
			return ""
		}
		if v.Type == gjson.Number {
			return v.Raw
		}
		return v.String()
	}

	return model.CalculationRequest{
		Location:      model.Location(field("location")),
		InsideType:    model.InsideType(field("insideType")),
		Length:        field("length"),
		Height:        field("height"),
		RoomLength:    field("roomLength"),
		RoomWidth:     field("roomWidth"),
		WallsLength:   field("wallsLength"),
		ScaffoldWidth: field("scaffoldWidth"),
	}
}
