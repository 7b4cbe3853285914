package diag

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Terminal: 终端信息提示（非日志），面向操作者。
// - 输出到提供的 io.Writer（默认 stderr），与 stdout 的结果输出分离。
// - 每个关键节点一行；写失败后进入禁用态为 no-op。
type Terminal struct {
	w       io.Writer
	enabled bool

	command  string
	warnings int
	runStart time.Time

	mu sync.Mutex
}

// NewTerminal 构造终端提示器。enabled=false 时总是 no-op。
func NewTerminal(w io.Writer, enabled bool) *Terminal {
	if w == nil {
		w = os.Stderr
	}
	return &Terminal{w: w, enabled: enabled}
}

// RunStart 记录子命令与输入来源。
func (t *Terminal) RunStart(command string, inputs ...string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	t.command = command
	t.warnings = 0
	t.runStart = time.Now()
	names := make([]string, 0, len(inputs))
	for _, in := range inputs {
		names = append(names, shortenBase(in, 48))
	}
	if len(names) == 0 {
		t.println(fmt.Sprintf("[run] %s", safe(command)))
		return
	}
	t.println(fmt.Sprintf("[run] %s | 输入 %s", safe(command), strings.Join(names, ", ")))
}

// Step 输出一条阶段结果（例如 "命中 80 | 未命中 40"）。
func (t *Terminal) Step(stage, text string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	t.println(fmt.Sprintf("[%s] %s", safe(stage), safe(text)))
}

// Warn 输出未识别行告警（行号从 1 开始）。
func (t *Terminal) Warn(line int, text string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	t.warnings++
	t.println(fmt.Sprintf("[warn] 行 %d | %s", line, safe(text)))
}

// RunFinish 结束总览。
func (t *Terminal) RunFinish(ok bool, dur time.Duration) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	tag := "ok"
	if !ok {
		tag = "fail"
	}
	t.println(fmt.Sprintf("[%s] %s 完成 | 告警 %d | 总用时 %s", tag, safe(t.command), t.warnings, formatDur(dur)))
}

func (t *Terminal) println(s string) {
	if _, err := io.WriteString(t.w, s+"\n"); err != nil {
		// 写失败即禁用
		t.enabled = false
	}
}

// shortenBase: 取基名并按 rune 截断（尾部省略号）。
func shortenBase(s string, max int) string {
	s = strings.TrimSpace(s)
	if s == "-" {
		return "stdin"
	}
	base := filepath.Base(s)
	rs := []rune(base)
	if max <= 0 || len(rs) <= max {
		return base
	}
	return string(rs[:max-1]) + "…"
}

func safe(s string) string {
	// 避免换行等控制字符污染终端
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	return s
}

func formatDur(d time.Duration) string {
	if d < time.Second {
		ms := d.Milliseconds()
		if ms < 0 {
			ms = 0
		}
		return fmt.Sprintf("%dms", ms)
	}
	return fmt.Sprintf("%.1fs", float64(d.Milliseconds())/1000.0)
}
