package diag

import (
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger 为结构化日志器：单行 JSON（zap）写入轮转文件；级别可动态调整。
// 所有方法对 nil 接收者安全。
type Logger struct {
	corrID string
	level  zap.AtomicLevel
	z      *zap.Logger
	sink   *RotatingFile
}

// NewLogger 通过配置的 level 初始化，并将日志写入默认路径 logs/，10MiB 轮转。
func NewLogger(corrID, level string) *Logger {
	sink := NewRotatingFile("logs", 10*1024*1024)
	l := newLogger(corrID, level, sink)
	l.sink = sink
	return l
}

// NewLoggerTo 将日志写入给定 writer（测试与 stderr 输出）。
func NewLoggerTo(corrID, level string, w io.Writer) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return newLogger(corrID, level, zapcore.AddSync(w))
}

func newLogger(corrID, level string, ws zapcore.WriteSyncer) *Logger {
	lvl := zap.NewAtomicLevelAt(parseLevel(level))
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "ts"
	enc.MessageKey = "msg"
	enc.EncodeTime = zapcore.RFC3339TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), ws, lvl)
	z := zap.New(core, zap.ErrorOutput(zapcore.Lock(os.Stderr))).With(zap.String("corr_id", corrID))
	return &Logger{corrID: corrID, level: lvl, z: z}
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// SetLevel 运行期调整级别（--log-level 覆盖配置）。
func (l *Logger) SetLevel(level string) {
	if l == nil {
		return
	}
	l.level.SetLevel(parseLevel(level))
}

// Level 返回当前级别名。
func (l *Logger) Level() string {
	if l == nil {
		return "info"
	}
	return l.level.Level().String()
}

// CorrID 返回本次运行的关联 ID。
func (l *Logger) CorrID() string {
	if l == nil {
		return ""
	}
	return l.corrID
}

// Zap 暴露底层 zap 日志器（组件需要自由字段时）。
func (l *Logger) Zap() *zap.Logger {
	if l == nil || l.z == nil {
		return zap.NewNop()
	}
	return l.z
}

func kvField(kv map[string]string) zap.Field {
	return zap.Any("kv", kv)
}

func (l *Logger) write(lv zapcore.Level, comp, stage, msg string, fields ...zap.Field) {
	if l == nil || l.z == nil {
		return
	}
	ce := l.z.Check(lv, msg)
	if ce == nil {
		return
	}
	base := []zap.Field{zap.String("comp", comp), zap.String("stage", stage)}
	ce.Write(append(base, fields...)...)
}

// Start 记录 start 事件；返回计时器用于 Finish。
func (l *Logger) Start(comp, msg string) *Timer {
	l.write(zapcore.InfoLevel, comp, "start", msg)
	return &Timer{l: l, comp: comp, t0: time.Now()}
}

// StartWithKV 记录带键值的 start。
func (l *Logger) StartWithKV(comp, msg string, kv map[string]string) *Timer {
	if len(kv) > 0 {
		l.write(zapcore.InfoLevel, comp, "start", msg, kvField(kv))
	} else {
		l.write(zapcore.InfoLevel, comp, "start", msg)
	}
	return &Timer{l: l, comp: comp, t0: time.Now()}
}

// Error 记录 error 事件。
func (l *Logger) Error(comp, code, msg string, durSince *time.Time) {
	l.ErrorWithKV(comp, code, msg, durSince, nil)
}

// ErrorWithKV 支持附带键值对（例如 HTTP 状态码、上游错误片段）。
func (l *Logger) ErrorWithKV(comp, code, msg string, durSince *time.Time, kv map[string]string) {
	fields := []zap.Field{zap.String("code", code)}
	if durSince != nil {
		fields = append(fields, zap.Int64("dur_ms", time.Since(*durSince).Milliseconds()))
	}
	if len(kv) > 0 {
		fields = append(fields, kvField(kv))
	}
	l.write(zapcore.ErrorLevel, comp, "error", msg, fields...)
}

// Warn 记录可恢复问题（解析告警、重复键等）。
func (l *Logger) Warn(comp, msg string, kv map[string]string) {
	if len(kv) > 0 {
		l.write(zapcore.WarnLevel, comp, "warn", msg, kvField(kv))
		return
	}
	l.write(zapcore.WarnLevel, comp, "warn", msg)
}

// InfoFinish 在已有起点的情况下记录 finish。
func (l *Logger) InfoFinish(comp, msg string, start time.Time, count int64) {
	l.write(zapcore.InfoLevel, comp, "finish", msg,
		zap.Int64("dur_ms", time.Since(start).Milliseconds()), zap.Int64("count", count))
}

// DebugStart 输出调试级别的 start 类事件（仅在 level=debug 时生效）。
func (l *Logger) DebugStart(comp, msg string, kv map[string]string) {
	if len(kv) == 0 {
		l.write(zapcore.DebugLevel, comp, "start", msg)
		return
	}
	l.write(zapcore.DebugLevel, comp, "start", msg, kvField(kv))
}

// Sync 刷新缓冲。
func (l *Logger) Sync() error {
	if l == nil || l.z == nil {
		return nil
	}
	return l.z.Sync()
}

// Close 刷新并关闭文件句柄。
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	_ = l.Sync()
	if l.sink != nil {
		return l.sink.Close()
	}
	return nil
}

// Timer 用于 start→finish 计时。
type Timer struct {
	l    *Logger
	comp string
	t0   time.Time
}

// Finish 记录 finish；可选 count。
func (t *Timer) Finish(msg string, count int64) {
	if t == nil || t.l == nil {
		return
	}
	t.l.write(zapcore.InfoLevel, t.comp, "finish", msg,
		zap.Int64("dur_ms", time.Since(t.t0).Milliseconds()), zap.Int64("count", count))
	ObserveDuration(t.comp, "finish", time.Since(t.t0))
}

// Since 返回计时起点到现在的时长。
func (t *Timer) Since() time.Duration {
	if t == nil {
		return 0
	}
	return time.Since(t.t0)
}

// Began 返回起点（供 Error 的 durSince 使用）。
func (t *Timer) Began() *time.Time {
	if t == nil {
		return nil
	}
	t0 := t.t0
	return &t0
}
