package config

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gopkg.in/yaml.v3"

	"datatools/internal/distribute"
	"datatools/internal/mail"
	"datatools/internal/parser"
	"datatools/internal/pipeline"
	"datatools/internal/rate"
	"datatools/pkg/contract"
	"datatools/pkg/registry"
)

// Validate 对最小必要边界做静态校验。
func Validate(cfg Config) error {
	d := Defaults()
	if _, err := distribute.ParsePolicy(effName(cfg.Distribution.Policy, d.Distribution.Policy)); err != nil {
		return fmt.Errorf("config: distribution.policy: %w", err)
	}
	if cfg.Distribution.Minimum < 0 {
		return errors.New("config: distribution.minimum must be >= 0")
	}
	if cfg.Distribution.MaxPerMember < 0 {
		return errors.New("config: distribution.max_per_member must be >= 0")
	}
	if math.IsNaN(cfg.Distribution.Threshold) || math.IsInf(cfg.Distribution.Threshold, 0) {
		return errors.New("config: distribution.threshold must be finite")
	}
	if cfg.HistoryDepth < 0 {
		return errors.New("config: history_depth must be >= 0")
	}
	for _, n := range cfg.Parser.Layouts {
		if registry.Layout[n] == nil {
			return fmt.Errorf("config: layout %q not registered", n)
		}
	}
	if name := effName(cfg.Components.Reader, d.Components.Reader); registry.Reader[name] == nil {
		return fmt.Errorf("config: reader %q not registered", name)
	}
	if name := effName(cfg.Components.Clipboard, d.Components.Clipboard); name != None && registry.Clipboard[name] == nil {
		return fmt.Errorf("config: clipboard %q not registered", name)
	}
	if name := effName(cfg.Components.Exporter, d.Components.Exporter); name != None && registry.Exporter[name] == nil {
		return fmt.Errorf("config: exporter %q not registered", name)
	}
	if name := effName(cfg.Components.Opener, d.Components.Opener); name != None && registry.Opener[name] == nil {
		return fmt.Errorf("config: opener %q not registered", name)
	}
	if name := effName(cfg.Components.Transport, d.Components.Transport); name != None && registry.Transport[name] == nil {
		return fmt.Errorf("config: transport %q not registered", name)
	}
	for name, l := range map[string]RateLimit{"opener": cfg.Limits.Opener, "transport": cfg.Limits.Transport} {
		if l.PerMinute < 0 || l.MaxBytes < 0 {
			return fmt.Errorf("config: limits.%s must be >= 0", name)
		}
	}
	for name, num := range cfg.Members {
		if strings.TrimSpace(name) == "" {
			return errors.New("config: members: empty name")
		}
		if strings.Trim(contract.NormalizePhone(num), "+") == "" {
			return fmt.Errorf("config: members: %q has no digits in %q", name, num)
		}
	}
	return nil
}

// Assemble 构造 Components 与 Settings。
// 严格 Options 解析在 registry（工厂）层进行；此处只传原样 YAML。
func Assemble(cfg Config) (pipeline.Components, pipeline.Settings, error) {
	if err := Validate(cfg); err != nil {
		return pipeline.Components{}, pipeline.Settings{}, err
	}
	d := Defaults()
	var comp pipeline.Components

	layouts, err := registry.Layouts(cfg.Parser.Layouts, cfg.Options.Layouts)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, err
	}
	if comp.Parser, err = parser.New(layouts, &parser.Options{RecordStart: cfg.Parser.RecordStart}); err != nil {
		return pipeline.Components{}, pipeline.Settings{}, err
	}
	if comp.Source, err = registry.Reader[effName(cfg.Components.Reader, d.Components.Reader)](node(cfg.Options.Reader)); err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("reader: %w", err)
	}
	if name := effName(cfg.Components.Clipboard, d.Components.Clipboard); name != None {
		if comp.Clipboard, err = registry.Clipboard[name](node(cfg.Options.Clipboard)); err != nil {
			return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("clipboard: %w", err)
		}
	}
	if name := effName(cfg.Components.Exporter, d.Components.Exporter); name != None {
		if comp.Exporter, err = registry.Exporter[name](node(cfg.Options.Exporter)); err != nil {
			return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("exporter: %w", err)
		}
	}
	if name := effName(cfg.Components.Opener, d.Components.Opener); name != None {
		if comp.Opener, err = registry.Opener[name](node(cfg.Options.Opener)); err != nil {
			return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("opener: %w", err)
		}
	}
	if name := effName(cfg.Components.Transport, d.Components.Transport); name != None {
		if comp.Transport, err = registry.Transport[name](node(cfg.Options.Transport)); err != nil {
			return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("transport: %w", err)
		}
	}
	if comp.Composer, err = mail.NewComposer(&mail.Options{Templates: cfg.Email.Templates}); err != nil {
		return pipeline.Components{}, pipeline.Settings{}, err
	}
	if t := cfg.Email.Template; t != "" && !contains(comp.Composer.Names(), t) {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("config: email.template %q not defined", t)
	}

	policy, _ := distribute.ParsePolicy(effName(cfg.Distribution.Policy, d.Distribution.Policy))
	set := pipeline.Settings{
		Distribution: distribute.Params{
			Policy:       policy,
			Minimum:      cfg.Distribution.Minimum,
			Threshold:    cfg.Distribution.Threshold,
			MaxPerMember: cfg.Distribution.MaxPerMember,
		},
		HistoryDepth:  cfg.HistoryDepth,
		Members:       cloneMembers(cfg.Members),
		EmailSender:   cfg.Email.Sender,
		EmailTemplate: cfg.Email.Template,
		LinkBase:      cfg.Links.Base,
		ReportTitle:   cfg.Report.Title,
		Limits: map[rate.Key]rate.Limits{
			rate.KeyOpener:    {PerMinute: cfg.Limits.Opener.PerMinute, MaxBytes: cfg.Limits.Opener.MaxBytes},
			rate.KeyTransport: {PerMinute: cfg.Limits.Transport.PerMinute, MaxBytes: cfg.Limits.Transport.MaxBytes},
		},
	}
	return comp, set, nil
}

// node: 零值节点按“未提供”处理。
func node(n yaml.Node) *yaml.Node {
	if n.Kind == 0 {
		return nil
	}
	return &n
}

func effName(got, def string) string {
	if got == "" {
		return def
	}
	return got
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func cloneMembers(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out
}
