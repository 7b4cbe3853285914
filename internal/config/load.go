package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"datatools/internal/mail"
)

// EnvPrefix: 环境变量覆盖前缀。
const EnvPrefix = "DATATOOLS_"

// Defaults 返回带有安全默认值的 Config 雏形。
func Defaults() Config {
	return Config{
		Logging:      Logging{Level: "info"},
		Distribution: Distribution{Policy: "equal"},
		HistoryDepth: 3,
		Components: Components{
			Reader:    "fs",
			Clipboard: "system",
			Exporter:  "fs",
			Opener:    "wame",
			Transport: "http",
		},
		Options: Options{
			Exporter: mustNode(map[string]any{"output_dir": "out"}),
		},
	}
}

// LoadYAML 从文件路径或原始 YAML 解析 Config（严格拒绝未知字段）。
func LoadYAML(path string, raw []byte) (Config, error) {
	var cfg Config
	var r io.Reader
	switch {
	case len(raw) > 0:
		r = bytes.NewReader(raw)
	case path != "":
		f, err := os.Open(path)
		if err != nil {
			return cfg, err
		}
		defer f.Close()
		r = f
	default:
		return cfg, errors.New("no config source provided")
	}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, err
	}
	return cfg, nil
}

// Merge 按优先级合并（后者覆盖前者）。
// 标量/字符串为“非零即替换”；Options 子树与 Members/Templates 按键整体替换，不做深度合并。
func Merge(base, over Config) Config {
	out := base
	if s := strings.TrimSpace(over.Logging.Level); s != "" {
		out.Logging.Level = s
	}

	// Parser
	if len(over.Parser.Layouts) > 0 {
		out.Parser.Layouts = cloneStrings(over.Parser.Layouts)
	}
	if over.Parser.RecordStart != "" {
		out.Parser.RecordStart = over.Parser.RecordStart
	}

	// Distribution
	if s := strings.TrimSpace(over.Distribution.Policy); s != "" {
		out.Distribution.Policy = s
	}
	if over.Distribution.Minimum != 0 {
		out.Distribution.Minimum = over.Distribution.Minimum
	}
	if over.Distribution.Threshold != 0 {
		out.Distribution.Threshold = over.Distribution.Threshold
	}
	if over.Distribution.MaxPerMember != 0 {
		out.Distribution.MaxPerMember = over.Distribution.MaxPerMember
	}
	if over.HistoryDepth != 0 {
		out.HistoryDepth = over.HistoryDepth
	}

	// 组件名（空不覆盖）
	if over.Components.Reader != "" {
		out.Components.Reader = over.Components.Reader
	}
	if over.Components.Clipboard != "" {
		out.Components.Clipboard = over.Components.Clipboard
	}
	if over.Components.Exporter != "" {
		out.Components.Exporter = over.Components.Exporter
	}
	if over.Components.Opener != "" {
		out.Components.Opener = over.Components.Opener
	}
	if over.Components.Transport != "" {
		out.Components.Transport = over.Components.Transport
	}

	// Options（完整替换对应键）
	out.Options.Reader = pickNode(out.Options.Reader, over.Options.Reader)
	out.Options.Clipboard = pickNode(out.Options.Clipboard, over.Options.Clipboard)
	out.Options.Exporter = pickNode(out.Options.Exporter, over.Options.Exporter)
	out.Options.Opener = pickNode(out.Options.Opener, over.Options.Opener)
	out.Options.Transport = pickNode(out.Options.Transport, over.Options.Transport)
	if len(over.Options.Layouts) > 0 {
		m := make(map[string]yaml.Node, len(out.Options.Layouts)+len(over.Options.Layouts))
		for k, v := range out.Options.Layouts {
			m[k] = v
		}
		for k, v := range over.Options.Layouts {
			m[k] = v
		}
		out.Options.Layouts = m
	}

	if len(over.Members) > 0 {
		m := make(map[string]string, len(out.Members)+len(over.Members))
		for k, v := range out.Members {
			m[k] = v
		}
		for k, v := range over.Members {
			m[k] = v
		}
		out.Members = m
	}

	// Email
	if s := strings.TrimSpace(over.Email.Sender); s != "" {
		out.Email.Sender = s
	}
	if s := strings.TrimSpace(over.Email.Template); s != "" {
		out.Email.Template = s
	}
	if len(over.Email.Templates) > 0 {
		m := make(map[string]mail.Source, len(out.Email.Templates)+len(over.Email.Templates))
		for k, v := range out.Email.Templates {
			m[k] = v
		}
		for k, v := range over.Email.Templates {
			m[k] = v
		}
		out.Email.Templates = m
	}

	if s := strings.TrimSpace(over.Links.Base); s != "" {
		out.Links.Base = s
	}
	if s := strings.TrimSpace(over.Report.Title); s != "" {
		out.Report.Title = s
	}
	out.Limits.Opener = mergeLimit(out.Limits.Opener, over.Limits.Opener)
	out.Limits.Transport = mergeLimit(out.Limits.Transport, over.Limits.Transport)
	return out
}

func mergeLimit(base, over RateLimit) RateLimit {
	if over.PerMinute != 0 {
		base.PerMinute = over.PerMinute
	}
	if over.MaxBytes != 0 {
		base.MaxBytes = over.MaxBytes
	}
	return base
}

// EnvOverlay 从环境变量构建一个 Config 覆盖（仅解析有限键集合）。
// 规则：前缀 DATATOOLS_；集合之外的键忽略。
// 支持：LOG_LEVEL, LAYOUTS, RECORD_START, POLICY, MINIMUM, THRESHOLD, MAX_PER_MEMBER,
// HISTORY_DEPTH, COMPONENTS_*, EMAIL_SENDER, EMAIL_TEMPLATE, LINK_BASE, REPORT_TITLE,
// {OPENER,TRANSPORT}_{PER_MINUTE,MAX_BYTES},
// MEMBER__<name>=<number> 以及 OPTIONS__<component>_YAML（原样 YAML）。
func EnvOverlay(environ []string) (Config, error) {
	var over Config
	for _, kv := range environ {
		if !strings.HasPrefix(kv, EnvPrefix) {
			continue
		}
		eq := strings.IndexByte(kv, '=')
		if eq <= len(EnvPrefix) {
			continue
		}
		key := strings.TrimPrefix(kv[:eq], EnvPrefix)
		val := kv[eq+1:]
		switch key {
		case "LOG_LEVEL":
			over.Logging.Level = strings.TrimSpace(val)
		case "LAYOUTS":
			over.Parser.Layouts = splitComma(val)
		case "RECORD_START":
			over.Parser.RecordStart = val
		case "POLICY":
			over.Distribution.Policy = strings.TrimSpace(val)
		case "MINIMUM":
			n, err := atoi(key, val)
			if err != nil {
				return over, err
			}
			over.Distribution.Minimum = n
		case "THRESHOLD":
			f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
			if err != nil {
				return over, fmt.Errorf("env %s%s: %w", EnvPrefix, key, err)
			}
			over.Distribution.Threshold = f
		case "MAX_PER_MEMBER":
			n, err := atoi(key, val)
			if err != nil {
				return over, err
			}
			over.Distribution.MaxPerMember = n
		case "HISTORY_DEPTH":
			n, err := atoi(key, val)
			if err != nil {
				return over, err
			}
			over.HistoryDepth = n
		case "COMPONENTS_READER":
			over.Components.Reader = strings.TrimSpace(val)
		case "COMPONENTS_CLIPBOARD":
			over.Components.Clipboard = strings.TrimSpace(val)
		case "COMPONENTS_EXPORTER":
			over.Components.Exporter = strings.TrimSpace(val)
		case "COMPONENTS_OPENER":
			over.Components.Opener = strings.TrimSpace(val)
		case "COMPONENTS_TRANSPORT":
			over.Components.Transport = strings.TrimSpace(val)
		case "EMAIL_SENDER":
			over.Email.Sender = strings.TrimSpace(val)
		case "EMAIL_TEMPLATE":
			over.Email.Template = strings.TrimSpace(val)
		case "LINK_BASE":
			over.Links.Base = strings.TrimSpace(val)
		case "REPORT_TITLE":
			over.Report.Title = strings.TrimSpace(val)
		case "OPENER_PER_MINUTE", "OPENER_MAX_BYTES", "TRANSPORT_PER_MINUTE", "TRANSPORT_MAX_BYTES":
			n, err := atoi(key, val)
			if err != nil {
				return over, err
			}
			lim := &over.Limits.Opener
			if strings.HasPrefix(key, "TRANSPORT_") {
				lim = &over.Limits.Transport
			}
			if strings.HasSuffix(key, "_PER_MINUTE") {
				lim.PerMinute = n
			} else {
				lim.MaxBytes = n
			}
		default:
			switch {
			case strings.HasPrefix(key, "MEMBER__"):
				name := strings.TrimSpace(strings.TrimPrefix(key, "MEMBER__"))
				if name == "" || strings.TrimSpace(val) == "" {
					continue
				}
				if over.Members == nil {
					over.Members = map[string]string{}
				}
				over.Members[name] = strings.TrimSpace(val)
			case strings.HasPrefix(key, "OPTIONS__") && strings.HasSuffix(key, "_YAML"):
				// 空值视为未设置，避免清空文件中的配置
				if strings.TrimSpace(val) == "" {
					continue
				}
				comp := strings.TrimSuffix(strings.TrimPrefix(key, "OPTIONS__"), "_YAML")
				var n yaml.Node
				if err := yaml.Unmarshal([]byte(val), &n); err != nil {
					return over, fmt.Errorf("env %s%s: %w", EnvPrefix, key, err)
				}
				// Unmarshal 到 Node 得到 DocumentNode；取其内容
				if n.Kind == yaml.DocumentNode && len(n.Content) == 1 {
					n = *n.Content[0]
				}
				switch comp {
				case "READER":
					over.Options.Reader = n
				case "CLIPBOARD":
					over.Options.Clipboard = n
				case "EXPORTER":
					over.Options.Exporter = n
				case "OPENER":
					over.Options.Opener = n
				case "TRANSPORT":
					over.Options.Transport = n
				}
			}
		}
	}
	return over, nil
}

func pickNode(base, over yaml.Node) yaml.Node {
	if over.Kind != 0 {
		return over
	}
	return base
}

// mustNode 将 Go 值编码为 YAML 节点（仅用于内置默认值）。
func mustNode(v any) yaml.Node {
	var n yaml.Node
	if err := n.Encode(v); err != nil {
		panic(err)
	}
	return n
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func splitComma(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func atoi(key, s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("env %s%s: %w", EnvPrefix, key, err)
	}
	return n, nil
}
