// Package recruiter 识别以 Recruiter/Company 英文标签为锚点的自由文本格式。
package recruiter

import (
	"regexp"
	"strings"

	"datatools/pkg/contract"
	"datatools/plugins/layout"
)

// Name: 注册名。
const Name = "recruiter"

// Options 为该格式的可选配置。
type Options struct {
	// MinPhoneDigits: 号码最少数字位数；<=0 使用默认。
	MinPhoneDigits int `yaml:"min_phone_digits"`
}

// Layout 实现 contract.Layout。
type Layout struct {
	minDigits int
}

// New 创建识别器。
func New(opts *Options) *Layout {
	n := layout.DefaultMinPhoneDigits
	if opts != nil && opts.MinPhoneDigits > 0 {
		n = opts.MinPhoneDigits
	}
	return &Layout{minDigits: n}
}

var _ contract.Layout = (*Layout)(nil)

// 号码必须带 '+' 前缀，否则自由文本里的数字极易误判。
var (
	re = regexp.MustCompile(`^(?P<lead>.*?)(?P<phone>\+[\d\s\-().]*\d)\s*(?i:Recruiter)` + layout.Colon +
		`(?P<referrer>.+?)\s*(?i:Company)` + layout.Colon + `(?P<company>\S+)` +
		`(?:\s*(?i:Language)` + layout.Colon + `(?P<language>\S+))?(?:\s+(?P<rest>.*))?$`)
	idRe = regexp.MustCompile(`(?:编号|(?i:ID))` + layout.Colon + `(\d+)`)
)

func (l *Layout) Name() string { return Name }

// Match 识别单个已归一化片段。
func (l *Layout) Match(seg string, expectStatus bool) (contract.Record, bool) {
	g, ok := layout.Groups(re, seg)
	if !ok {
		return contract.Record{}, false
	}
	phone, ok := layout.Phone(g["phone"], l.minDigits)
	if !ok {
		return contract.Record{}, false
	}
	var id string
	if m := idRe.FindStringSubmatch(g["lead"]); m != nil {
		id = m[1]
	}
	return contract.Record{
		ID:       id,
		Phone:    phone,
		Referrer: g["referrer"],
		Company:  g["company"],
		Language: g["language"],
		Status:   layout.Status(g["rest"], expectStatus),
		Layout:   Name,
		Raw:      seg,
	}, true
}

// Format 输出导出用的规范文本。
func (l *Layout) Format(r contract.Record) string {
	var b strings.Builder
	if r.ID != "" {
		b.WriteString("ID:" + r.ID + " ")
	}
	b.WriteString(r.Phone)
	b.WriteString(" Recruiter: " + r.Referrer)
	b.WriteString(" Company: " + r.Company)
	if r.Language != "" {
		b.WriteString(" Language: " + r.Language)
	}
	return b.String()
}
