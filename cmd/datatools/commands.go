package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	cfgpkg "datatools/internal/config"
	"datatools/internal/distribute"
	"datatools/internal/links"
	"datatools/internal/mail"
	"datatools/internal/pipeline"
	"datatools/pkg/contract"
)

// emit 打印表格文本，并按全局旗标复制/导出。
func (a *app) emit(cmd *cobra.Command, t contract.Table, exportDef string) error {
	text := pipeline.Text(t)
	fprintf(a.stdout, "%s\n", text)
	if a.flagCopy {
		if err := a.runner.Copy(cmd.Context(), text); err != nil {
			return err
		}
	}
	if name := a.exportName(exportDef); name != "" {
		if err := a.runner.Export(cmd.Context(), name, t); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) matchCmd() *cobra.Command {
	var base, status string
	cmd := &cobra.Command{
		Use:   "match",
		Short: "按规范化号码将状态集合并入基础记录集",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(cmd, []string{base, status}, nil); err != nil {
				return err
			}
			res, err := a.runner.Match(cmd.Context(), base, status)
			if err != nil {
				return err
			}
			return a.emit(cmd, pipeline.MatchTable(a.runner.Parser(), res.Records), pipeline.NameMatched)
		},
	}
	cmd.Flags().StringVar(&base, "base", "", "基础记录文件（- 为 STDIN）")
	cmd.Flags().StringVar(&status, "status", "", "带状态的记录文件")
	_ = cmd.MarkFlagRequired("base")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}

func (a *app) summaryCmd() *cobra.Command {
	var input string
	var merges []string
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "统计状态分布（每行一个状态），可合并相近标签",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ms := make([]pipeline.Merge, 0, len(merges))
			for _, s := range merges {
				m, err := pipeline.ParseMerge(s)
				if err != nil {
					return &configError{err: err}
				}
				ms = append(ms, m)
			}
			if err := a.setup(cmd, []string{input}, nil); err != nil {
				return err
			}
			sum, err := a.runner.Summary(cmd.Context(), input, ms)
			if err != nil {
				return err
			}
			return a.emit(cmd, pipeline.SummaryTable(sum), pipeline.NameSummary)
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "状态列表文件（- 为 STDIN）")
	cmd.Flags().StringArrayVar(&merges, "merge", nil, "合并标签 from=to（可重复，按顺序应用）")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func (a *app) reportCmd() *cobra.Command {
	var input string
	var in pipeline.ReportInput
	cmd := &cobra.Command{
		Use:   "report",
		Short: "按固定类别生成分组报表",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(cmd, []string{input}, nil); err != nil {
				return err
			}
			rep, err := a.runner.Report(cmd.Context(), input, in)
			if err != nil {
				return err
			}
			return a.emit(cmd, pipeline.ReportTable(a.runner.Settings().ReportTitle, rep), pipeline.NameReport)
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "状态列表文件（- 为 STDIN）")
	cmd.Flags().IntVar(&in.TotalWhatsApp, "total-whatsapp", 0, "Total WhatsApp 行的取值")
	cmd.Flags().IntVar(&in.BannedToday, "banned-today", 0, "Banned today 行的取值")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func (a *app) distributeCmd() *cobra.Command {
	var (
		roster, pool    string
		policy          string
		minimum, maxPer int
		threshold       float64
		edits           []pipeline.Edit
		undo            int
		send            bool
		copyData        bool
	)
	cmd := &cobra.Command{
		Use:   "distribute",
		Short: "将数据池分配给团队成员，可手工调整、改派与撤销",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if undo < 0 {
				return &configError{err: fmt.Errorf("undo: %w: must be >= 0", contract.ErrInvalidInput)}
			}
			override := func(c *cfgpkg.Config) {
				f := cmd.Flags()
				if f.Changed("policy") {
					c.Distribution.Policy = policy
				}
				if f.Changed("min") {
					c.Distribution.Minimum = minimum
				}
				if f.Changed("threshold") {
					c.Distribution.Threshold = threshold
				}
				if f.Changed("max-per-member") {
					c.Distribution.MaxPerMember = maxPer
				}
			}
			if err := a.setup(cmd, []string{roster, pool}, override); err != nil {
				return err
			}
			s, err := a.runner.Distribute(cmd.Context(), roster, pool)
			if err != nil {
				return err
			}
			for _, e := range edits {
				if err := a.runner.Apply(s, e); err != nil {
					return err
				}
			}
			for i := 0; i < undo; i++ {
				if err := a.runner.Apply(s, pipeline.Edit{Kind: pipeline.EditUndo}); err != nil {
					return err
				}
			}
			return a.emitDistribution(cmd, s.Result, send, copyData)
		},
	}
	f := cmd.Flags()
	f.StringVar(&roster, "roster", "", "成员名单文件")
	f.StringVar(&pool, "pool", "", "待分配记录文件")
	f.StringVar(&policy, "policy", "", "分配策略 equal|minimum|average（覆盖配置）")
	f.IntVar(&minimum, "min", 0, "minimum 策略的每人保底数量")
	f.Float64Var(&threshold, "threshold", 0, "average 策略的均值上限（严格小于才有资格）")
	f.IntVar(&maxPer, "max-per-member", 0, "单成员新分配上限；0 表示不限")
	f.Var(editList{kind: pipeline.EditAdjust, edits: &edits}, "adjust", "手工调整 name=count（可重复，按出现顺序应用）")
	f.Var(editList{kind: pipeline.EditReassign, edits: &edits}, "reassign", "改派 index=name（index 从 1 起；name 为空表示取消分配）")
	f.IntVar(&undo, "undo", 0, "在全部编辑之后撤销的次数")
	f.BoolVar(&send, "send", false, "为每名分到新项的成员打开消息深链")
	f.BoolVar(&copyData, "copy-distributed", false, "复制分配明细（而非团队表）到剪贴板")
	_ = cmd.MarkFlagRequired("roster")
	_ = cmd.MarkFlagRequired("pool")
	return cmd
}

// editList 收集 --adjust 与 --reassign，保持命令行出现顺序。
type editList struct {
	kind  pipeline.EditKind
	edits *[]pipeline.Edit
}

func (l editList) String() string { return "" }
func (l editList) Type() string   { return "string" }

func (l editList) Set(s string) error {
	var (
		e   pipeline.Edit
		err error
	)
	if l.kind == pipeline.EditAdjust {
		e, err = pipeline.ParseAdjust(s)
	} else {
		e, err = pipeline.ParseReassign(s)
	}
	if err != nil {
		return err
	}
	*l.edits = append(*l.edits, e)
	return nil
}

func (a *app) emitDistribution(cmd *cobra.Command, res distribute.Result, send, copyData bool) error {
	team := pipeline.TeamTable(res)
	data := pipeline.DistributedTable(a.runner.Parser(), res)
	teamText, dataText := pipeline.Text(team), pipeline.Text(data)
	fprintf(a.stdout, "%s\n\n%s\n", teamText, dataText)
	if a.flagCopy {
		text := teamText
		if copyData {
			text = dataText
		}
		if err := a.runner.Copy(cmd.Context(), text); err != nil {
			return err
		}
	}
	if a.flagExport != "" {
		teamName, dataName := pipeline.NameTeam, pipeline.NameDistributed
		if a.flagExport != defaultExport {
			teamName, dataName = a.flagExport+"_team", a.flagExport+"_distributed"
		}
		if err := a.runner.Export(cmd.Context(), teamName, team); err != nil {
			return err
		}
		if err := a.runner.Export(cmd.Context(), dataName, data); err != nil {
			return err
		}
	}
	if send {
		rep, err := a.runner.SendGroups(cmd.Context(), res)
		if err != nil {
			return err
		}
		if len(rep.Skipped) > 0 {
			fprintf(a.stderr, "未配置号码的成员: %s\n", strings.Join(rep.Skipped, ", "))
		}
	}
	return nil
}

func (a *app) linkCmd() *cobra.Command {
	var req links.Request
	var open bool
	cmd := &cobra.Command{
		Use:   "link",
		Short: "生成 WhatsApp 消息深链",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(cmd, nil, nil); err != nil {
				return err
			}
			l, err := a.runner.Link(req)
			if err != nil {
				return err
			}
			fprintf(a.stdout, "%s\n", l.URL)
			if a.flagCopy {
				if err := a.runner.Copy(cmd.Context(), l.URL); err != nil {
					return err
				}
			}
			if open {
				return a.runner.OpenLink(cmd.Context(), l)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Number, "number", "", "接收者号码（仅保留数字与 +）")
	cmd.Flags().StringVar(&req.Message, "message", "", "消息正文")
	cmd.Flags().StringVar(&req.Receipt, "receipt", "", "回执链接（追加为 \"Receipt: <url>\"）")
	cmd.Flags().BoolVar(&open, "open", false, "生成后经 opener 打开")
	_ = cmd.MarkFlagRequired("number")
	return cmd
}

func (a *app) emailCmd() *cobra.Command {
	var in pipeline.EmailInput
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "email",
		Short: "按模板渲染并经邮件网关发送（附件仅限 PDF）",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(cmd, nil, nil); err != nil {
				return err
			}
			req, err := a.runner.ComposeEmail(in)
			if err != nil {
				return err
			}
			if a.flagCopy {
				if err := a.runner.Copy(cmd.Context(), mail.CopyText(req.Subject, req.Body)); err != nil {
					return err
				}
			}
			if dryRun {
				fprintf(a.stdout, "%s", mail.DraftText(req, a.start))
				return nil
			}
			sent, err := a.runner.SendEmail(cmd.Context(), req)
			if err != nil {
				return err
			}
			fprintf(a.stdout, "sent %s -> %s (%s)\n", sent.From, sent.To, sent.ID)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.Recipient, "to", "", "收件人")
	f.StringVar(&in.MemberName, "name", "", "称呼；缺省为 "+mail.DefaultMemberName)
	f.StringVar(&in.Sender, "sender", "", "发件人（覆盖配置 email.sender）")
	f.StringVar(&in.Template, "template", "", "模板名（覆盖配置 email.template）")
	f.StringVar(&in.Subject, "subject", "", "主题（非空时不使用模板主题）")
	f.StringVar(&in.Body, "body", "", "正文（非空时不使用模板正文）")
	f.StringVar(&in.AttachPath, "attach", "", "PDF 附件路径")
	f.BoolVar(&dryRun, "dry-run", false, "仅输出草稿，不发送")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func (a *app) initConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-config [dir]",
		Short: "在目录中生成默认 config.yaml 与 .env 模板（已存在则不覆盖）",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
				dir = strings.TrimSpace(args[0])
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return asConfigErr("生成默认配置失败", err)
			}
			if err := writeConfig(filepath.Join(dir, "config.yaml"), cfgpkg.DefaultTemplateConfig()); err != nil {
				if errors.Is(err, os.ErrExist) {
					return asConfigErr("生成默认配置失败（文件已存在）", err)
				}
				return asConfigErr("生成默认配置失败", err)
			}
			// .env 模板（不覆盖已存在文件）
			if err := writeDotEnv(filepath.Join(dir, ".env")); err != nil {
				fprintf(a.stderr, "提示：.env 生成失败（已跳过）：%v\n", err)
			}
			fprintf(a.stdout, "已生成 %s\n", filepath.Join(dir, "config.yaml"))
			return nil
		},
	}
}
