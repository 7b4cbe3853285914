package config

import (
	"gopkg.in/yaml.v3"

	"datatools/internal/mail"
)

// Config: 运行期只读配置（一次解析，运行期不变）。
// YAML 使用 snake_case；未知字段在解析期失败。
type Config struct {
	Logging      Logging      `yaml:"logging"`
	Parser       Parser       `yaml:"parser"`
	Distribution Distribution `yaml:"distribution"`
	// HistoryDepth: 分配会话的撤销深度；0 使用默认。
	HistoryDepth int `yaml:"history_depth"`

	// 组件名选择（空则使用默认名；"none" 关闭可选协作者）。
	Components Components `yaml:"components"`
	// 各组件 Options 子树，原样 YAML 传入工厂。
	Options Options `yaml:"options"`

	// Members: 成员名 → 消息标识（WhatsApp 号码）。
	Members map[string]string `yaml:"members,omitempty"`
	Email   Email             `yaml:"email"`
	Links   Links             `yaml:"links"`
	Report  Report            `yaml:"report"`
	Limits  Limits            `yaml:"limits"`
}

// Logging: 仅保留日志等级可配置；输出路径与轮转策略为固定默认。
type Logging struct {
	Level string `yaml:"level"`
}

// Parser: 格式尝试顺序与记录起始标记。
type Parser struct {
	Layouts     []string `yaml:"layouts"`
	RecordStart string   `yaml:"record_start"`
}

// Distribution: 分配策略参数。
type Distribution struct {
	Policy       string  `yaml:"policy"`
	Minimum      int     `yaml:"minimum"`
	Threshold    float64 `yaml:"threshold"`
	MaxPerMember int     `yaml:"max_per_member"`
}

// Components: 组件名选择（注册表中的实现名）。
type Components struct {
	Reader    string `yaml:"reader"`
	Clipboard string `yaml:"clipboard"`
	Exporter  string `yaml:"exporter"`
	Opener    string `yaml:"opener"`
	Transport string `yaml:"transport"`
}

// Options: 各组件的原样 YAML Options。
type Options struct {
	Reader    yaml.Node            `yaml:"reader,omitempty"`
	Clipboard yaml.Node            `yaml:"clipboard,omitempty"`
	Exporter  yaml.Node            `yaml:"exporter,omitempty"`
	Opener    yaml.Node            `yaml:"opener,omitempty"`
	Transport yaml.Node            `yaml:"transport,omitempty"`
	Layouts   map[string]yaml.Node `yaml:"layouts,omitempty"`
}

// Email: 默认发件人、模板名与自定义模板。
type Email struct {
	Sender    string                 `yaml:"sender"`
	Template  string                 `yaml:"template"`
	Templates map[string]mail.Source `yaml:"templates,omitempty"`
}

// Links: 深链前缀。
type Links struct {
	Base string `yaml:"base"`
}

// Report: 分组报表标题。
type Report struct {
	Title string `yaml:"title"`
}

// Limits: 投递通道节流；0 表示不限。
type Limits struct {
	Opener    RateLimit `yaml:"opener"`
	Transport RateLimit `yaml:"transport"`
}

type RateLimit struct {
	PerMinute int `yaml:"per_minute"`
	MaxBytes  int `yaml:"max_bytes"`
}

// None: 关闭某个可选协作者。
const None = "none"
