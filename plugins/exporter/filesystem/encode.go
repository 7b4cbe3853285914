package filesystem

import (
	"encoding/csv"
	"html"
	"io"
	"strconv"
	"strings"

	"datatools/pkg/contract"
)

var encoders = map[string]func(io.Writer, contract.Table) error{
	FormatXLS: encodeXLS,
	FormatCSV: func(w io.Writer, t contract.Table) error { return encodeDelimited(w, t, ',') },
	FormatTSV: func(w io.Writer, t contract.Table) error { return encodeDelimited(w, t, '\t') },
}

// Encode 以指定格式编码表格（供剪贴板等非文件输出复用）。
func Encode(w io.Writer, format string, t contract.Table) error {
	enc, ok := encoders[strings.ToLower(format)]
	if !ok {
		return contract.ErrInvalidInput
	}
	return enc(w, t)
}

func width(t contract.Table) int {
	n := len(t.Header)
	for _, r := range t.Rows {
		if len(r) > n {
			n = len(r)
		}
	}
	if len(t.Footer) > n {
		n = len(t.Footer)
	}
	if n == 0 {
		n = 1
	}
	return n
}

func encodeXLS(w io.Writer, t contract.Table) error {
	var b strings.Builder
	b.WriteString("<html>\n<head>\n<meta charset=\"utf-8\">\n</head>\n<body>\n<table border=\"1\">\n")
	if t.Title != "" {
		b.WriteString(`<tr><th colspan="` + strconv.Itoa(width(t)) + `" style="background-color: #4CAF50; color: white; text-align: center;">`)
		b.WriteString(html.EscapeString(t.Title))
		b.WriteString("</th></tr>\n")
	}
	if len(t.Header) > 0 {
		b.WriteString("<tr>")
		for _, h := range t.Header {
			b.WriteString("<th>" + html.EscapeString(h) + "</th>")
		}
		b.WriteString("</tr>\n")
	}
	for _, r := range t.Rows {
		b.WriteString("<tr>")
		for _, c := range r {
			b.WriteString("<td>" + html.EscapeString(c) + "</td>")
		}
		b.WriteString("</tr>\n")
	}
	if len(t.Footer) > 0 {
		b.WriteString("<tr>")
		for _, c := range t.Footer {
			b.WriteString("<td><strong>" + html.EscapeString(c) + "</strong></td>")
		}
		b.WriteString("</tr>\n")
	}
	b.WriteString("</table>\n</body>\n</html>\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func encodeDelimited(w io.Writer, t contract.Table, comma rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = comma
	if len(t.Header) > 0 {
		if err := cw.Write(t.Header); err != nil {
			return err
		}
	}
	for _, r := range t.Rows {
		if err := cw.Write(r); err != nil {
			return err
		}
	}
	if len(t.Footer) > 0 {
		if err := cw.Write(t.Footer); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
