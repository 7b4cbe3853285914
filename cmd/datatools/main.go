package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	cfgpkg "datatools/internal/config"
	"datatools/internal/diag"
	"datatools/internal/pipeline"
)

// 子命令对应原有的几个文本工具：match / summary / report / distribute / link / email。
// 配置优先级：CLI > ENV(.env) > YAML > 默认值。
func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// configError 标记配置/装配阶段的失败（退出码 3）。
type configError struct{ err error }

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

func asConfigErr(format string, err error) error {
	return &configError{err: fmt.Errorf(format+": %w", err)}
}

// app 持有一次 CLI 调用的全局旗标与运行期对象。
type app struct {
	stdout, stderr io.Writer

	flagConfig   string
	flagLogLevel string
	flagCopy     bool
	flagExport   string
	flagMetrics  bool
	flagStatus   bool

	start  time.Time
	corrID string
	cfg    cfgpkg.Config
	logger *diag.Logger
	term   *diag.Terminal
	runner *pipeline.Runner
}

func run(args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr, start: time.Now(), corrID: genCorrID()}
	// 在任何 ENV 读取前，尝试加载工作目录下的 .env（不覆盖已有 ENV）。
	_ = loadDotEnv(".env")

	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(context.Background())
	return a.finish(err)
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "datatools",
		Short:         "推荐联系人文本数据工具：状态匹配、汇总、报表、分配与消息投递",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&a.flagConfig, "config", "", "配置文件路径（YAML）；缺省读取 ./config.yaml（若存在）")
	pf.StringVar(&a.flagLogLevel, "log-level", "", "日志级别 debug|info|warn|error（覆盖配置）")
	pf.BoolVar(&a.flagCopy, "copy", false, "将结果表格复制到剪贴板")
	pf.StringVar(&a.flagExport, "export", "", "导出结果表格；不带值时使用默认文件名")
	pf.Lookup("export").NoOptDefVal = defaultExport
	pf.BoolVar(&a.flagMetrics, "metrics", false, "结束时将指标输出到 stderr")
	pf.BoolVar(&a.flagStatus, "status", true, "终端状态提示（stderr）")

	root.AddCommand(
		a.matchCmd(),
		a.summaryCmd(),
		a.reportCmd(),
		a.distributeCmd(),
		a.linkCmd(),
		a.emailCmd(),
		a.initConfigCmd(),
	)
	return root
}

// defaultExport: --export 不带值时的占位，表示使用各子命令的默认文件名。
const defaultExport = "\x00default"

// exportName 返回导出名；未请求导出时返回空串。
func (a *app) exportName(def string) string {
	switch a.flagExport {
	case "":
		return ""
	case defaultExport:
		return def
	default:
		return a.flagExport
	}
}

// setup 按 默认值 → 文件 → ENV → CLI 合并配置，装配组件并创建 Runner。
// override 用于子命令自身的旗标（例如分配策略参数）。
func (a *app) setup(cmd *cobra.Command, inputs []string, override func(*cfgpkg.Config)) error {
	a.logger = diag.NewLogger(a.corrID, "info")

	cfgFile := a.flagConfig
	if cfgFile == "" {
		cfgFile = os.Getenv("DATATOOLS_CONFIG_FILE")
	}
	// 默认读取工作目录下 config.yaml（若存在）
	if cfgFile == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			cfgFile = "config.yaml"
		}
	}
	var cfgYAML []byte
	if s := os.Getenv("DATATOOLS_CONFIG_YAML"); s != "" {
		cfgYAML = []byte(s)
	}

	cfg := cfgpkg.Defaults()
	if cfgFile != "" || len(cfgYAML) > 0 {
		base, err := cfgpkg.LoadYAML(cfgFile, cfgYAML)
		if err != nil {
			return asConfigErr("配置解析失败", err)
		}
		cfg = cfgpkg.Merge(cfg, base)
	}
	overEnv, err := cfgpkg.EnvOverlay(os.Environ())
	if err != nil {
		return asConfigErr("环境变量解析失败", err)
	}
	cfg = cfgpkg.Merge(cfg, overEnv)

	// CLI 覆盖
	var overCLI cfgpkg.Config
	overCLI.Logging.Level = a.flagLogLevel
	cfg = cfgpkg.Merge(cfg, overCLI)
	if override != nil {
		override(&cfg)
	}

	if err := cfgpkg.Validate(cfg); err != nil {
		a.dumpConfig(cfg)
		return asConfigErr("配置校验失败", err)
	}
	// 使用最终配置中的日志级别
	if lv := strings.TrimSpace(cfg.Logging.Level); lv != "" {
		a.logger.SetLevel(lv)
	}
	if a.exportName("x") != "" {
		if err := preflightCheckOutputDir(cfg); err != nil {
			return asConfigErr("输出目录不可写或无法创建", err)
		}
	}
	comp, set, err := cfgpkg.Assemble(cfg)
	if err != nil {
		return asConfigErr("装配失败", err)
	}
	a.cfg = cfg
	a.term = diag.NewTerminal(a.stderr, a.flagStatus)
	a.runner, err = pipeline.New(comp, set, a.logger, a.term)
	if err != nil {
		return asConfigErr("装配失败", err)
	}
	a.term.RunStart(cmd.Name(), inputs...)
	a.logger.DebugStart("config", "effective", map[string]string{
		"command":   cmd.Name(),
		"layouts":   strings.Join(comp.Parser.Layouts(), ","),
		"policy":    string(set.Distribution.Policy),
		"reader":    cfg.Components.Reader,
		"clipboard": cfg.Components.Clipboard,
		"exporter":  cfg.Components.Exporter,
		"opener":    cfg.Components.Opener,
		"transport": cfg.Components.Transport,
		"members":   fmt.Sprintf("%d", len(set.Members)),
	})
	return nil
}

// finish 统一收尾：日志、终端总览、指标与退出码。
func (a *app) finish(err error) int {
	defer func() {
		if a.logger != nil {
			_ = a.logger.Close()
		}
	}()
	code := diag.ExitOK
	if err != nil {
		var ce *configError
		switch {
		case errors.As(err, &ce):
			code = diag.ExitConfig
		case a.runner == nil:
			// 旗标/参数错误：视为配置问题
			code = diag.ExitConfig
		default:
			code = diag.ExitCode(err)
		}
		c := diag.Classify(err)
		a.logger.Error("cli", string(c), "first error: "+err.Error(), &a.start)
		diag.IncOp("cli", "error", "error")
		if c != diag.CodeUnknown {
			diag.IncError("cli", string(c))
		}
		if !errors.Is(err, context.Canceled) {
			fprintf(a.stderr, "运行失败: %v\n", err)
		}
	} else if a.runner != nil {
		diag.IncOp("cli", "finish", "success")
		diag.ObserveDuration("cli", "finish", time.Since(a.start))
	}
	if a.runner != nil {
		a.term.RunFinish(err == nil, time.Since(a.start))
	}
	if a.flagMetrics {
		_ = diag.DumpMetrics(a.stderr)
	}
	return code
}

func fprintf(w io.Writer, format string, args ...any) { _, _ = fmt.Fprintf(w, format, args...) }

func (a *app) dumpConfig(c cfgpkg.Config) {
	b, err := yaml.Marshal(c)
	if err != nil {
		return
	}
	fprintf(a.stderr, "有效配置:\n%s\n", b)
}

func genCorrID() string { return uuid.NewString() }
