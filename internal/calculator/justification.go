package calculator

import "github.com/hitoshi/scaffcalc/internal/model"

const justificationTitle = "ГЭСН 81-02-08-2022, п. 2.8.27"

// justifications は分岐ごとの規範文書の引用。計算ではなく固定の参照テキスト。
var justifications = map[model.Branch]model.Justification{
	model.BranchOutside: {
		Title: justificationTitle,
		Text:  "«...установка и разборка наружных инвентарных лесов исчисляется по площади вертикальной проекции их на фасад здания...»",
	},
	model.BranchCeiling: {
		Title: justificationTitle,
		Text:  "«...установка и разборка внутренних инвентарных лесов исчисляется по горизонтальной проекции на основание...»",
	},
	model.BranchWalls: {
		Title: justificationTitle,
		Text:  "«...Если внутренние леса устанавливаются только для отделки стен (вдоль стен) и не имеют сплошного настила по всему помещению для отделки потолка, то их площадь исчисляется по длине стен, умноженной на ширину настила лесов.»",
	},
	model.BranchUnknown: {
		Title: justificationTitle,
		Text:  "«...установка и разборка наружных инвентарных лесов исчисляется по площади вертикальной проекции их на фасад здания, внутренних — по горизонтальной проекции на основание. Если внутренние леса устанавливаются только для отделки стен (вдоль стен) и не имеют сплошного настила по всему помещению для отделки потолка, то их площадь исчисляется по длине стен, умноженной на ширину настила лесов.»",
	},
}

// justificationFor は分岐に対応する引用を返す。
func justificationFor(branch model.Branch) model.Justification {
	if j, ok := justifications[branch]; ok {
		return j
	}
	return justifications[model.BranchUnknown]
}
