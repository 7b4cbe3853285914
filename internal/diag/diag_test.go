package diag

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datatools/pkg/contract"
)

// 日志轮转写入
func TestRotatingFile(t *testing.T) {
	dir := t.TempDir()
	w := NewRotatingFile(dir, 30)
	require.NoError(t, w.WriteLine([]byte("first line that is very long")))
	require.NoError(t, w.WriteLine([]byte("second")))
	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(files), 2, "应存在轮转文件")
	require.NoError(t, w.Close())
}

// 当前文件名与时间戳文件同时存在
func TestRotatingFileRotateFiles(t *testing.T) {
	dir := t.TempDir()
	w := NewRotatingFile(dir, 10)
	for i := 0; i < 5; i++ {
		_, err := w.Write([]byte("xxxxxxxxxxxxxxxxxx\n"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Sync())
	ents, err := os.ReadDir(dir)
	require.NoError(t, err)
	hasCurrent, hasRotated := false, false
	for _, e := range ents {
		if e.Name() == "datatools-current.txt" {
			hasCurrent = true
		}
		if strings.HasPrefix(e.Name(), "datatools-") && !strings.Contains(e.Name(), "current") {
			hasRotated = true
		}
	}
	assert.True(t, hasCurrent)
	assert.True(t, hasRotated)
	require.NoError(t, w.Close())
}

// 直接覆盖 ensureOpen 与 rotate 内部分支
func TestRotatingFileEnsureAndRotate(t *testing.T) {
	dir := t.TempDir()
	w := NewRotatingFile(dir, 1024)
	require.NoError(t, w.ensureOpen())
	require.NotNil(t, w.f)
	require.NoError(t, w.rotate())
	ents, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, ents, 2)
	require.NoError(t, w.Close())
}

// 指标计数与文本导出
func TestMetricsDump(t *testing.T) {
	IncOp("metrics-test", "parse", "success")
	IncOp("metrics-test", "parse", "success")
	IncError("metrics-test", string(CodeNoData))
	ObserveDuration("metrics-test", "parse", 3*time.Millisecond)
	AddParseWarnings("metrics-test", 2)
	AddRecords("metrics-test", 5)
	AddRecords("metrics-test", 0)

	var buf bytes.Buffer
	require.NoError(t, DumpMetrics(&buf))
	out := buf.String()
	assert.Contains(t, out, `datatools_op_total{comp="metrics-test",result="success",stage="parse"} 2`)
	assert.Contains(t, out, `datatools_error_total{code="no_data",comp="metrics-test"} 1`)
	assert.Contains(t, out, `datatools_op_duration_seconds_count{comp="metrics-test",stage="parse"} 1`)
	assert.Contains(t, out, `datatools_parse_warnings_total{layout="metrics-test"} 2`)
	assert.Contains(t, out, `datatools_records_total{comp="metrics-test"} 5`)
}

type upstream struct{}

func (upstream) Error() string           { return "bad gateway" }
func (upstream) UpstreamStatus() int     { return 502 }
func (upstream) UpstreamMessage() string { return "bad gateway" }

// 错误分类
func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want Code
	}{
		{nil, CodeUnknown},
		{context.Canceled, CodeCancel},
		{fmt.Errorf("wrap: %w", context.DeadlineExceeded), CodeCancel},
		{fmt.Errorf("parse: %w", contract.ErrNoData), CodeNoData},
		{contract.ErrNoEligible, CodeNoEligible},
		{contract.ErrNegativeCount, CodeRejected},
		{contract.ErrExceedsPool, CodeRejected},
		{contract.ErrUnknownPolicy, CodeInvariant},
		{contract.ErrPathInvalid, CodeInvariant},
		{contract.ErrTransport, CodeTransport},
		{upstream{}, CodeTransport},
		{&net.DNSError{Err: "x"}, CodeTransport},
		{&fs.PathError{Op: "open", Path: "/", Err: errors.New("x")}, CodeIO},
		{errors.New("other"), CodeUnknown},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Classify(c.err), "%v", c.err)
	}
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitOK, ExitCode(nil))
	assert.Equal(t, ExitRejected, ExitCode(contract.ErrExceedsPool))
	assert.Equal(t, ExitRejected, ExitCode(contract.ErrNoEligible))
	assert.Equal(t, ExitRuntime, ExitCode(contract.ErrNoData))
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m), sc.Text())
		out = append(out, m)
	}
	return out
}

// Logger 基本流程：字段与级别
func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerTo("corr", "info", &buf)
	timer := l.Start("parser", "parse")
	timer.Finish("ok", 3)
	l.StartWithKV("matcher", "match", map[string]string{"base": "a.txt"}).Finish("ok", 1)
	since := time.Now()
	l.ErrorWithKV("transport", string(CodeTransport), "send failed", &since, map[string]string{"http_status": "500"})
	l.Warn("parser", "unmatched line", map[string]string{"line": "2"})
	l.DebugStart("parser", "hidden", nil)
	require.NoError(t, l.Sync())

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 6)
	assert.Equal(t, "corr", lines[0]["corr_id"])
	assert.Equal(t, "parser", lines[0]["comp"])
	assert.Equal(t, "start", lines[0]["stage"])
	assert.Equal(t, "finish", lines[1]["stage"])
	assert.EqualValues(t, 3, lines[1]["count"])
	assert.Equal(t, "a.txt", lines[2]["kv"].(map[string]any)["base"])
	assert.Equal(t, "error", lines[4]["level"])
	assert.Equal(t, "transport", lines[4]["code"])
	assert.Equal(t, "warn", lines[5]["stage"])

	// 动态调整级别后 debug 生效
	buf.Reset()
	l.SetLevel("debug")
	assert.Equal(t, "debug", l.Level())
	l.DebugStart("parser", "visible", map[string]string{"k": "v"})
	require.NoError(t, l.Sync())
	assert.Len(t, decodeLines(t, &buf), 1)
}

// nil 日志器为 no-op
func TestLoggerNilSafe(t *testing.T) {
	var l *Logger
	l.Start("c", "m").Finish("x", 1)
	l.Error("c", "code", "m", nil)
	l.Warn("c", "m", nil)
	l.InfoFinish("c", "m", time.Now(), 1)
	assert.NoError(t, l.Close())
	assert.Equal(t, "", l.CorrID())
	assert.NotNil(t, l.Zap())
}

// 文件日志器写入 logs/ 下的 current 文件
func TestNewLoggerWritesFile(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	l := NewLogger("c1", "info")
	l.Start("cli", "run").Finish("done", 0)
	require.NoError(t, l.Close())
	b, err := os.ReadFile("logs/datatools-current.txt")
	require.NoError(t, err)
	assert.Contains(t, string(b), `"corr_id":"c1"`)
}

func TestNowUTC(t *testing.T) {
	_, err := time.Parse(time.RFC3339, NowUTC())
	assert.NoError(t, err)
}

// 终端关键节点输出
func TestTerminalFlow(t *testing.T) {
	var sb strings.Builder
	term := NewTerminal(&sb, true)
	term.RunStart("match", "/data/base.txt", "-")
	term.Step("match", "命中 2 | 未命中 1")
	term.Warn(4, "garbage\nline")
	term.RunFinish(true, 5100*time.Millisecond)

	out := sb.String()
	assert.Contains(t, out, "[run] match | 输入 base.txt, stdin")
	assert.Contains(t, out, "[match] 命中 2 | 未命中 1")
	assert.Contains(t, out, "[warn] 行 4 | garbage line")
	assert.Contains(t, out, "[ok] match 完成 | 告警 1 | 总用时 5.1s")
}

// 写失败降级为禁用态
type flakyWriter struct {
	fail  bool
	count int
}

func (w *flakyWriter) Write(p []byte) (int, error) {
	w.count++
	if w.fail {
		return 0, fmt.Errorf("boom")
	}
	return len(p), nil
}

func TestTerminalDisableOnWriteError(t *testing.T) {
	fw := &flakyWriter{fail: true}
	term := NewTerminal(fw, true)
	term.RunStart("summary")
	term.Step("summary", "x")
	term.RunFinish(false, time.Millisecond)
	assert.Equal(t, 1, fw.count)

	var nilTerm *Terminal
	nilTerm.Step("x", "y")
}

func TestShortenBase(t *testing.T) {
	assert.Equal(t, "stdin", shortenBase("-", 10))
	assert.Equal(t, "abc.txt", shortenBase("/x/y/abc.txt", 10))
	assert.Equal(t, "abcd…", shortenBase("abcdefgh", 5))
	assert.Equal(t, "850ms", formatDur(850*time.Millisecond))
}
