package contract

// Layout: 单一文本格式的识别器。
// 约束：
// 1) 输入为已归一化的片段（半角、单空格、去首尾空白）；
// 2) 各实现相互独立，不共享可变状态；
// 3) 仅在 expectStatus 为真时填充 Status，否则丢弃尾随文本；
// 4) Phone 须经 NormalizePhone 处理。
type Layout interface {
	Name() string
	Match(segment string, expectStatus bool) (Record, bool)
	// Format 输出该格式的规范文本（导出首列）。
	Format(r Record) string
}
