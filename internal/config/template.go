package config

import (
	"gopkg.in/yaml.v3"

	"datatools/internal/mail"
	"datatools/internal/pipeline"
	"datatools/pkg/registry"
)

// DefaultTemplateConfig 返回一个“可运行”的默认配置模板：
// - 剪贴板不可用时回退到标准输出，链接以打印模式输出；
// - 表格导出到 ./out（xls）；邮件网关指向本地默认端点；
// - 选项包含全部键，值为安全中性默认。
func DefaultTemplateConfig() Config {
	d := Defaults()
	cfg := Config{
		Logging: Logging{Level: "info"},
		Parser: Parser{
			Layouts:     append([]string(nil), registry.DefaultLayouts...),
			RecordStart: "",
		},
		Distribution: Distribution{Policy: "equal", Minimum: 0, Threshold: 0, MaxPerMember: 0},
		HistoryDepth: pipeline.DefaultHistoryDepth,
		Components:   d.Components,
		Members: map[string]string{
			"Alpha": "+1 555 0100",
		},
		Email: Email{Sender: "hr@example.com", Template: mail.TemplateJobOffer},
		Links: Links{Base: "https://wa.me/"},
		Report: Report{Title: pipeline.DefaultReportTitle},
		Limits: Limits{Opener: RateLimit{PerMinute: 30}},
	}
	cfg.Options.Reader = mustNode(map[string]any{
		"buf_size":          65536,
		"max_bytes":         16 << 20,
		"exclude_dir_names": []string{".git", "node_modules"},
		"allow_exts":        []string{".txt"},
	})
	cfg.Options.Clipboard = mustNode(map[string]any{"fallback_stdout": true})
	cfg.Options.Exporter = mustNode(map[string]any{
		"output_dir": "out",
		"format":     "xls",
		"atomic":     true,
		"flat":       true,
		"buf_size":   65536,
	})
	cfg.Options.Opener = mustNode(map[string]any{
		"mode":    "print",
		"base":    "https://wa.me/",
		"command": []string{},
	})
	cfg.Options.Transport = mustNode(map[string]any{
		"endpoint":        "http://localhost:5000/send-email",
		"timeout_seconds": 60,
		"api_key_env":     "",
		"api_key":         "",
		"extra_headers":   map[string]string{},
	})
	cfg.Options.Layouts = map[string]yaml.Node{}
	for _, n := range registry.DefaultLayouts {
		cfg.Options.Layouts[n] = mustNode(map[string]any{"min_phone_digits": 0})
	}
	return cfg
}
