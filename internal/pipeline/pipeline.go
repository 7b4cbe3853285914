package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"datatools/internal/diag"
	"datatools/internal/distribute"
	"datatools/internal/links"
	"datatools/internal/mail"
	"datatools/internal/parser"
	"datatools/internal/rate"
	"datatools/pkg/contract"
)

// - 编排层：读取输入、调用纯计算组件、再把结果交给外部协作者（剪贴板/导出/打开/投递）。
// - 核心组件不做 I/O，也不持有历史；撤销快照由本层的 Session 持有。
// - 任一动作失败只中止该动作；错误经 diag.Classify 归类后记录日志与指标。

// Components 聚合运行所需的组件。Source 与 Parser 必需，其余协作者可选。
type Components struct {
	Source    contract.Source
	Parser    *parser.Parser
	Clipboard contract.ClipboardSink
	Exporter  contract.Exporter
	Opener    contract.Opener
	Transport contract.Transport
	Composer  *mail.Composer
}

// Settings 运行期配置（最小必要）。
type Settings struct {
	Distribution distribute.Params
	// HistoryDepth: 分配会话的撤销深度；<=0 使用默认 3。
	HistoryDepth int
	// Members: 成员名 → 消息标识（例如 WhatsApp 号码）。
	Members map[string]string
	// EmailSender/EmailTemplate: 邮件默认发件人与模板名。
	EmailSender   string
	EmailTemplate string
	// LinkBase: 链接前缀；为空使用 links.DefaultBase。
	LinkBase string
	// ReportTitle: 分组报表标题；为空使用 DefaultReportTitle。
	ReportTitle string
	// Limits: 投递通道节流（opener / transport）；缺省不限。
	Limits map[rate.Key]rate.Limits
}

// DefaultHistoryDepth: 分配会话默认撤销深度。
const DefaultHistoryDepth = 3

// Runner 持有组件、配置与诊断输出。非并发安全：一次只执行一个动作。
type Runner struct {
	comp   Components
	set    Settings
	log    *diag.Logger
	term   *diag.Terminal
	links  *links.Generator
	sender *mail.Sender
	gate   rate.Gate
}

// New 校验组件并创建 Runner；logger 与 term 可为 nil。
func New(comp Components, set Settings, logger *diag.Logger, term *diag.Terminal) (*Runner, error) {
	if err := sanity(comp, set); err != nil {
		return nil, fmt.Errorf("sanity: %w", err)
	}
	if set.HistoryDepth <= 0 {
		set.HistoryDepth = DefaultHistoryDepth
	}
	if set.ReportTitle == "" {
		set.ReportTitle = DefaultReportTitle
	}
	r := &Runner{comp: comp, set: set, log: logger, term: term, links: links.NewGenerator(set.LinkBase), gate: rate.NewGate(set.Limits, nil)}
	if comp.Transport != nil {
		r.sender = mail.NewSender(comp.Transport)
	}
	return r, nil
}

func sanity(comp Components, set Settings) error {
	if comp.Source == nil {
		return errors.New("source is nil")
	}
	if comp.Parser == nil {
		return errors.New("parser is nil")
	}
	if set.HistoryDepth < 0 {
		return fmt.Errorf("%w: history_depth must be >= 0", contract.ErrInvalidInput)
	}
	return nil
}

// Settings 返回生效配置（含默认值）。
func (r *Runner) Settings() Settings { return r.set }

// Parser 返回装配的记录解析器（用于输出规范文本）。
func (r *Runner) Parser() *parser.Parser { return r.comp.Parser }

// stage 以统一的计时、日志与指标包裹一个动作；fn 返回处理条数。
func (r *Runner) stage(comp, msg string, kv map[string]string, fn func() (int, error)) error {
	timer := r.log.StartWithKV(comp, msg, kv)
	n, err := fn()
	if err != nil {
		r.fail(comp, msg, timer, err)
		return fmt.Errorf("%s %s: %w", comp, msg, err)
	}
	timer.Finish(msg, int64(n))
	diag.IncOp(comp, "finish", "success")
	if n > 0 {
		diag.AddRecords(comp, n)
	}
	return nil
}

func (r *Runner) fail(comp, msg string, timer *diag.Timer, err error) {
	code := diag.Classify(err)
	var kv map[string]string
	var up contract.UpstreamError
	if errors.As(err, &up) {
		kv = map[string]string{"status": strconv.Itoa(up.UpstreamStatus())}
	}
	r.log.ErrorWithKV(comp, string(code), msg+" failed: "+err.Error(), timer.Began(), kv)
	diag.IncOp(comp, "error", "error")
	if code != diag.CodeUnknown {
		diag.IncError(comp, string(code))
	}
}

// read 读取并解析一个输入；逐行警告转发到日志、终端与指标。
func (r *Runner) read(ctx context.Context, comp, path string, expectStatus bool) (parser.Result, error) {
	var res parser.Result
	err := r.stage(comp, "parse", map[string]string{"input": path}, func() (int, error) {
		raw, err := r.comp.Source.ReadText(ctx, path)
		if err != nil {
			return 0, err
		}
		res, err = r.comp.Parser.Parse(raw, expectStatus)
		if err != nil {
			return 0, err
		}
		r.warn(comp, path, res.Warnings)
		return len(res.Records), nil
	})
	return res, err
}

func (r *Runner) warn(comp, path string, ws []contract.LineWarning) {
	if len(ws) == 0 {
		return
	}
	diag.AddParseWarnings(comp, len(ws))
	for _, w := range ws {
		r.log.Warn(comp, "unrecognized line", map[string]string{
			"input":   path,
			"line":    strconv.Itoa(w.Line),
			"preview": w.Preview,
		})
		r.term.Warn(w.Line, w.Preview)
	}
}

// Copy 将文本放入剪贴板；未配置剪贴板时返回 ErrInvalidInput。
func (r *Runner) Copy(ctx context.Context, text string) error {
	if r.comp.Clipboard == nil {
		return fmt.Errorf("clipboard: %w: not configured", contract.ErrInvalidInput)
	}
	return r.stage("clipboard", "copy", nil, func() (int, error) {
		if err := r.comp.Clipboard.Copy(ctx, text); err != nil {
			return 0, err
		}
		r.term.Step("copy", "已复制到剪贴板")
		return 0, nil
	})
}

// Export 以 name 导出表格；未配置导出器时返回 ErrInvalidInput。
func (r *Runner) Export(ctx context.Context, name string, t contract.Table) error {
	if r.comp.Exporter == nil {
		return fmt.Errorf("exporter: %w: not configured", contract.ErrInvalidInput)
	}
	return r.stage("exporter", "export", map[string]string{"name": name}, func() (int, error) {
		if err := r.comp.Exporter.Export(ctx, name, t); err != nil {
			return 0, err
		}
		r.term.Step("export", "已导出 "+name)
		return len(t.Rows), nil
	})
}
