// Package labeled 识别“编号 / WhatsApp / 推荐人 / 公司 / 语言”标签格式。
package labeled

import (
	"fmt"
	"regexp"

	"datatools/pkg/contract"
	"datatools/plugins/layout"
)

// Name: 注册名。
const Name = "labeled"

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

var re = regexp.MustCompile(`^编号` + layout.Colon + `(?P<id>\d+)\s*(?i:WhatsApp)` + layout.Colon +
	`(?P<phone>\+?[\d\s\-().]*\d)\s*推荐人` + layout.Colon + `(?:(?i:Referrer)` + layout.Colon + `)?(?P<referrer>.+?)` +
	`\s*公司\s*(?:(?i:Company\s*Name))?` + layout.Colon + `(?P<company>.+?)` +
	`\s*语言` + layout.Colon + `(?P<language>\S+)(?:\s+(?P<rest>.*))?$`)

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
	return contract.Record{
		ID:       g["id"],
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
	return fmt.Sprintf("编号:%s WhatsApp %s 推荐人：Referrer: %s 公司Company Name :%s 语言:%s",
		r.ID, r.Phone, r.Referrer, r.Company, r.Language)
}
