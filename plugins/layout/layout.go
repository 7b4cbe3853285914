// Package layout 提供各格式识别器共用的无状态工具。
package layout

import (
	"regexp"
	"strings"

	"datatools/pkg/contract"
)

// Colon: 可缺省、两侧可带空格、全/半角均可的冒号。
const Colon = `\s*[:：]?\s*`

// DefaultMinPhoneDigits: 号码最少数字位数。
const DefaultMinPhoneDigits = 6

// Groups 以命名分组返回匹配结果；未匹配返回 false。
func Groups(re *regexp.Regexp, s string) (map[string]string, bool) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return nil, false
	}
	out := make(map[string]string, len(m))
	for i, name := range re.SubexpNames() {
		if name == "" || i >= len(m) {
			continue
		}
		out[name] = strings.TrimSpace(m[i])
	}
	return out, true
}

// Phone 规范化号码并校验最少数字位数。
func Phone(raw string, minDigits int) (string, bool) {
	p := contract.NormalizePhone(raw)
	n := 0
	for _, r := range p {
		if r != '+' {
			n++
		}
	}
	if n < minDigits {
		return "", false
	}
	// '+' 只允许出现在开头
	if strings.LastIndexByte(p, '+') > 0 {
		return "", false
	}
	return p, true
}

// Status 仅在 expectStatus 时保留尾随文本。
func Status(rest string, expectStatus bool) string {
	if !expectStatus {
		return ""
	}
	return strings.TrimSpace(rest)
}
