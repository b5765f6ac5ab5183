package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hazyhaar/a11ywatch/aria"
	"github.com/hazyhaar/a11ywatch/dom"
	"github.com/hazyhaar/a11ywatch/rule"
	"github.com/hazyhaar/a11ywatch/table"
	"golang.org/x/net/html"
)

// TableSize reports the logical size of tables as "rows×cols".
var TableSize = &rule.Rule{
	Name:           string(tableSizeRule),
	DefaultOptions: enabled,
	TagNames:       []string{"table"},
	Roles:          []aria.Role{"table", "grid", "treegrid"},
	Evaluate:       evalTableSize,
}

func evalTableSize(n *html.Node, _ rule.Options, ctx *rule.Context) rule.Findings {
	role, ok := ctx.Role(n)
	if !ok || !aria.Is(role, "table") {
		return rule.None
	}
	var rows, cols int
	if dom.Tag(n) == "table" {
		rec := ctx.Table(n)
		rows, cols = rec.Rows, rec.Cols
	} else {
		rows, cols = ariaTableSize(n, ctx)
	}
	return rule.Findings{tableSizeRule.finding(rule.TypeTableSize, fmt.Sprintf("%d×%d", rows, cols), "")}
}

// ariaTableSize sizes a table built from ARIA roles. aria-rowcount and
// aria-colcount win when set; otherwise rows are counted and columns are the
// widest row, honouring aria-colspan.
func ariaTableSize(tbl *html.Node, ctx *rule.Context) (int, int) {
	rows, cols := 0, 0
	dom.Walk(tbl, func(n *html.Node) bool {
		r, ok := ctx.Role(n)
		if !ok {
			return true
		}
		// Rows of nested tables belong to those tables.
		if r == "row" && nearestTable(n, ctx) == tbl {
			rows++
			width := 0
			for _, cell := range dom.ChildElements(n) {
				if cr, ok := ctx.Role(cell); ok && aria.Is(cr, "cell") {
					width += table.Span(dom.Attr(cell, "aria-colspan"), table.MaxColspan)
				}
			}
			if width > cols {
				cols = width
			}
		}
		return true
	})
	if v, err := strconv.Atoi(strings.TrimSpace(dom.Attr(tbl, "aria-rowcount"))); err == nil && v > 0 {
		rows = v
	}
	if v, err := strconv.Atoi(strings.TrimSpace(dom.Attr(tbl, "aria-colcount"))); err == nil && v > 0 {
		cols = v
	}
	return rows, cols
}

func nearestTable(n *html.Node, ctx *rule.Context) *html.Node {
	return dom.Closest(n, func(p *html.Node) bool {
		r, ok := ctx.Role(p)
		return ok && aria.Is(r, "table")
	})
}

// TableHeader warns about data tables without any header cell.
var TableHeader = &rule.Rule{
	Name:           string(tableHeaderRule),
	DefaultOptions: enabled,
	TagNames:       []string{"table"},
	Evaluate:       evalTableHeader,
}

func evalTableHeader(n *html.Node, _ rule.Options, ctx *rule.Context) rule.Findings {
	if role, ok := ctx.Role(n); !ok || !aria.Is(role, "table") {
		return rule.None
	}
	if ctx.Table(n).Rows == 0 || table.HasHeaders(n) {
		return rule.None
	}
	return rule.Findings{tableHeaderRule.warn(MsgNoHeaderCells, nil)}
}
