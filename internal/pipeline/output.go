package pipeline

import (
	"strconv"
	"strings"

	"datatools/internal/distribute"
	"datatools/internal/parser"
	"datatools/internal/status"
	"datatools/pkg/contract"
)

// 导出文件的默认名称。
const (
	NameMatched     = "matched_data"
	NameSummary     = "status_summary"
	NameReport      = "group_report"
	NameTeam        = "team_table"
	NameDistributed = "distributed_data"
)

// DefaultReportTitle: 分组报表标题。
const DefaultReportTitle = "Group C Report"

// MatchTable: 记录规范文本 + 状态。
func MatchTable(p *parser.Parser, recs []contract.Record) contract.Table {
	t := contract.Table{Header: []string{"Data", "Status"}}
	for _, r := range recs {
		t.Rows = append(t.Rows, []string{p.Format(r), r.Status})
	}
	return t
}

// SummaryTable: 状态、计数、百分比，末行为合计。
func SummaryTable(s status.Summary) contract.Table {
	t := contract.Table{
		Header: []string{"Status", "Count", "Percentage"},
		Footer: []string{"Grand Total", strconv.Itoa(s.GrandTotal), status.Percent(s.GrandTotal, s.GrandTotal)},
	}
	for _, e := range s.Entries {
		t.Rows = append(t.Rows, []string{e.Label, strconv.Itoa(e.Count), status.Percent(e.Count, s.GrandTotal)})
	}
	return t
}

// ReportTable: 固定顺序的类别行，附调用方提供的两项。
func ReportTable(title string, rep Report) contract.Table {
	c := rep.Counts
	row := func(label string, n int) []string { return []string{label, strconv.Itoa(n)} }
	return contract.Table{
		Title: title,
		Rows: [][]string{
			row("Total data", c.TotalData()),
			row("Not reply", c[status.NotReply]),
			row("Replied", c[status.Replied]),
			row("Intent", c[status.Intent]),
			row("Not Interested", c[status.NotInterested]),
			row("Single Tick", c[status.SingleTick]),
			row("Registered", c[status.Registered]),
			row("Recharge", c[status.Recharge]),
			row("Total WhatsApp", rep.TotalWhatsApp),
			row("Banned today", rep.BannedToday),
		},
	}
}

// TeamTable: 成员名 + 当前总量；本次未分到新项的成员总量留空。
func TeamTable(res distribute.Result) contract.Table {
	t := contract.Table{Header: []string{"Name", "Total Data"}}
	for _, m := range res.Roster {
		total := ""
		if m.AssignedCount > 0 {
			total = strconv.Itoa(m.CurrentData())
		}
		t.Rows = append(t.Rows, []string{m.Name, total})
	}
	return t
}

// DistributedTable: 已分配项的规范文本 + 成员（输出顺序）。
func DistributedTable(p *parser.Parser, res distribute.Result) contract.Table {
	t := contract.Table{Header: []string{"Data", "Assigned To"}}
	for _, a := range res.Assignments {
		if !a.Assigned() {
			continue
		}
		t.Rows = append(t.Rows, []string{p.Format(a.Record), a.Member})
	}
	return t
}

// Payload 返回成员分组的消息正文：各项源文本以换行连接（输出顺序）。
// 无源文本的项回退为 Raw。
func Payload(res distribute.Result, name string) string {
	group := res.Group(name)
	lines := make([]string, 0, len(group))
	for _, a := range group {
		src := a.Record.Source
		if src == "" {
			src = a.Record.Raw
		}
		lines = append(lines, src)
	}
	return strings.Join(lines, "\n")
}

// Text 将表格行（含合计行）编码为制表符分隔文本，供粘贴到电子表格。
// 不含标题与表头。
func Text(t contract.Table) string {
	var b strings.Builder
	write := func(cells []string) {
		b.WriteString(strings.Join(cells, "\t"))
		b.WriteByte('\n')
	}
	for _, r := range t.Rows {
		write(r)
	}
	if len(t.Footer) > 0 {
		write(t.Footer)
	}
	return strings.TrimSpace(b.String())
}
