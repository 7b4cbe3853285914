package contract

import (
	"math"
	"strconv"
)

// Record: 一条推荐联系人记录（由解析器产出的值对象）。
// 约束：
// - Phone 仅包含数字与 '+'；
// - 同一批内 Phone 允许重复；
// - 其余字段为空串表示“缺失”，不使用 nil。
type Record struct {
	ID             string
	Phone          string
	Referrer       string
	Company        string
	Language       string
	BusinessPerson string
	Age            string
	Status         string

	// Line: 源文本中的行号（1 起）。
	Line int
	// Layout: 识别该记录的格式名。
	Layout string
	// Raw: 归一化后的原始片段，用于格式回退与导出。
	Raw string
	// Source: 未归一化的源文本片段；按成员发送时原样使用。
	Source string
}

// WithStatus 返回附带状态的副本。
func (r Record) WithStatus(s string) Record {
	r.Status = s
	return r
}

// LineWarning: 无法识别的输入行（不影响整批）。
type LineWarning struct {
	Line    int
	Preview string
}

// PreviewLen: 警告预览截断长度（按 rune 计）。
const PreviewLen = 40

// NewLineWarning 构造带截断预览的警告。
func NewLineWarning(line int, text string) LineWarning {
	rs := []rune(text)
	if len(rs) > PreviewLen {
		rs = rs[:PreviewLen]
	}
	return LineWarning{Line: line, Preview: string(rs)}
}

// Average: 带标记的均值；分母为 0 时为“未定义”，不是 0 也不是 +Inf。
type Average struct {
	value   float64
	defined bool
}

// Undefined 返回未定义的均值。
func Undefined() Average { return Average{} }

// DefinedAverage 返回已定义的均值。
func DefinedAverage(v float64) Average { return Average{value: v, defined: true} }

// ComputeAverage = (monthlyTotal + assigned) / (itemCount + assigned)。
func ComputeAverage(monthlyTotal, itemCount, assigned int) Average {
	den := itemCount + assigned
	if den == 0 {
		return Undefined()
	}
	return DefinedAverage(float64(monthlyTotal+assigned) / float64(den))
}

func (a Average) Defined() bool  { return a.defined }
func (a Average) Value() float64 { return a.value }

// Below 判定均值是否严格小于阈值；未定义永不满足。
func (a Average) Below(threshold float64) bool {
	return a.defined && a.value < threshold
}

// DivZero: 未定义均值的展示文本。
const DivZero = "#DIV/0!"

func (a Average) String() string {
	if !a.defined {
		return DivZero
	}
	return strconv.FormatFloat(math.Round(a.value*100)/100, 'f', -1, 64)
}

// TeamMember: 参与分配的成员及其历史统计。
type TeamMember struct {
	Name              string
	PriorCount        int
	PriorMonthlyTotal int
	PriorItemCount    int
	AssignedCount     int
	Average           Average
}

// CurrentData = PriorCount + AssignedCount。
func (m TeamMember) CurrentData() int { return m.PriorCount + m.AssignedCount }

// Recompute 依据 AssignedCount 重新计算 Average，返回副本。
func (m TeamMember) Recompute() TeamMember {
	m.Average = ComputeAverage(m.PriorMonthlyTotal, m.PriorItemCount, m.AssignedCount)
	return m
}

// Assignment: 池中第 PoolIndex 项的归属；Member 为空表示未分配。
type Assignment struct {
	PoolIndex int
	Member    string
	Record    Record
}

// Assigned 报告该项是否已有归属。
func (a Assignment) Assigned() bool { return a.Member != "" }

// StatusEntry: 状态标签与计数。
type StatusEntry struct {
	Label string
	Count int
}
