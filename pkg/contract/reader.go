package contract

import "context"

// Source: 文本输入源抽象（文件或 STDIN）。
// 约束：
// 1) 一次读取整段文本并做 CRLF→LF 归一；
// 2) 不做业务解析；
// 3) 不在内部起并发。
type Source interface {
	ReadText(ctx context.Context, path string) (string, error)
}
