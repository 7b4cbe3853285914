package diag

import (
	"context"
	"errors"
	"io/fs"
	"net"
	"time"

	"datatools/pkg/contract"
)

// Code 是最小错误分类代码。
// 用于日志 code 字段、指标标签与退出码映射。
type Code string

const (
	CodeUnknown    Code = "unknown"
	CodeNoData     Code = "no_data"
	CodeNoEligible Code = "no_eligible"
	CodeRejected   Code = "rejected"
	CodeInvariant  Code = "invariant"
	CodeIO         Code = "io"
	CodeTransport  Code = "transport"
	CodeCancel     Code = "cancel"
)

// Classify 将错误归为最小分类。
// 仅依赖哨兵错误与标准库错误类型，不做字符串匹配。
func Classify(err error) Code {
	if err == nil {
		return CodeUnknown
	}
	// 取消/超时优先
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return CodeCancel
	}
	if errors.Is(err, contract.ErrNoData) {
		return CodeNoData
	}
	if errors.Is(err, contract.ErrNoEligible) {
		return CodeNoEligible
	}
	if errors.Is(err, contract.ErrNegativeCount) || errors.Is(err, contract.ErrExceedsPool) {
		return CodeRejected
	}
	if errors.Is(err, contract.ErrInvalidInput) ||
		errors.Is(err, contract.ErrUnknownMember) ||
		errors.Is(err, contract.ErrUnknownItem) ||
		errors.Is(err, contract.ErrLabelNotFound) ||
		errors.Is(err, contract.ErrUnknownPolicy) ||
		errors.Is(err, contract.ErrPathInvalid) {
		return CodeInvariant
	}
	if errors.Is(err, contract.ErrTransport) {
		return CodeTransport
	}
	var ue contract.UpstreamError
	if errors.As(err, &ue) {
		return CodeTransport
	}
	var nerr net.Error
	if errors.As(err, &nerr) {
		return CodeTransport
	}
	var perr *fs.PathError
	if errors.As(err, &perr) {
		return CodeIO
	}
	return CodeUnknown
}

// 退出码：0 成功；1 运行失败；2 被拒绝的编辑/无可分配成员；3 配置错误。
const (
	ExitOK       = 0
	ExitRuntime  = 1
	ExitRejected = 2
	ExitConfig   = 3
)

// ExitCode 将错误映射为进程退出码（配置错误由调用方直接给出 ExitConfig）。
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch Classify(err) {
	case CodeRejected, CodeNoEligible:
		return ExitRejected
	default:
		return ExitRuntime
	}
}

// NowUTC 返回 RFC3339 UTC 时间字符串。
func NowUTC() string { return time.Now().UTC().Format(time.RFC3339) }
