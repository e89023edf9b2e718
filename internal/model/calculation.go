package model

// Location は足場の設置場所。
type Location string

const (
	LocationOutside Location = "outside"
	LocationInside  Location = "inside"
)

// InsideType は内部足場の種別。
type InsideType string

const (
	InsideCeiling InsideType = "ceiling"
	InsideWalls   InsideType = "walls"
)

// Branch は計算式の分岐を表す。メトリクスと根拠テキストの選択に使う。
type Branch string

const (
	BranchOutside Branch = "outside"
	BranchCeiling Branch = "ceiling"
	BranchWalls   Branch = "walls"
	BranchUnknown Branch = "unknown"
)

// CalculationRequest は1リクエスト分の計算入力。
// 数値フィールドはクライアントから受け取った文字列表現のまま保持し、
// 検証と変換は計算エンジンが行う。空文字は未指定を意味する。
type CalculationRequest struct {
	Location   Location
	InsideType InsideType

	Length string
	Height string

	RoomLength string
	RoomWidth  string

	WallsLength   string
	ScaffoldWidth string
}

// BreakdownEntry は計算式の変数とその意味の組。
type BreakdownEntry struct {
	Symbol  string `json:"symbol"`
	Meaning string `json:"meaning"`
}

// Coefficient は高さに応じた割増係数K。
type Coefficient struct {
	Value       int    `json:"value"`
	Formula     string `json:"formula"`
	Explanation string `json:"explanation"`
}

// Justification は計算結果に添付する規範文書の引用。
type Justification struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// CalculationResult は計算エンジンの出力。リクエストごとに新規生成され、再利用しない。
type CalculationResult struct {
	Branch           Branch
	Volume           float64 // 小数点以下2桁に丸め済み
	Formula          string
	FormulaBreakdown []BreakdownEntry
	Coefficient      *Coefficient
	Justification    Justification
}
