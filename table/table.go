// Package table computes the logical grid of an HTML table: the number of
// rows walked and the number of columns reached once row and column spans
// are placed.
package table

import (
	"strconv"
	"strings"

	"github.com/hazyhaar/a11ywatch/dom"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTML limits on span attributes. Larger values are treated as 1.
const (
	MaxColspan = 1000
	MaxRowspan = 65534
)

// Size is the logical extent of a table.
type Size struct {
	Rows int `json:"rows"`
	Cols int `json:"cols"`
}

// Rows returns the rows of tbl in document order: its own tr children and
// the tr children of its thead, tbody and tfoot children. Nested tables are
// not entered.
func Rows(tbl *html.Node) []*html.Node {
	var rows []*html.Node
	for _, ch := range dom.ChildElements(tbl) {
		switch ch.DataAtom {
		case atom.Tr:
			rows = append(rows, ch)
		case atom.Thead, atom.Tbody, atom.Tfoot:
			for _, r := range dom.ChildElements(ch) {
				if r.DataAtom == atom.Tr {
					rows = append(rows, r)
				}
			}
		}
	}
	return rows
}

// Cells returns the td and th children of a row.
func Cells(row *html.Node) []*html.Node {
	var cells []*html.Node
	for _, ch := range dom.ChildElements(row) {
		if ch.DataAtom == atom.Td || ch.DataAtom == atom.Th {
			cells = append(cells, ch)
		}
	}
	return cells
}

// Analyze places every cell of tbl on an occupancy grid. Each cell takes the
// first free column of its row and claims a rowspan x colspan block; row
// spans are clipped to the rows that exist.
func Analyze(tbl *html.Node) Size {
	rows := Rows(tbl)
	occupied := make([]map[int]bool, len(rows))
	for i := range occupied {
		occupied[i] = make(map[int]bool)
	}

	cols := 0
	for r, row := range rows {
		col := 0
		for _, cell := range Cells(row) {
			for occupied[r][col] {
				col++
			}
			rs := Span(dom.Attr(cell, "rowspan"), MaxRowspan)
			cs := Span(dom.Attr(cell, "colspan"), MaxColspan)
			last := r + rs
			if last > len(rows) {
				last = len(rows)
			}
			for y := r; y < last; y++ {
				for x := col; x < col+cs; x++ {
					occupied[y][x] = true
				}
			}
			col += cs
			if col > cols {
				cols = col
			}
		}
		// Cells spanning down from earlier rows also widen the grid.
		for x := range occupied[r] {
			if x+1 > cols {
				cols = x + 1
			}
		}
	}
	return Size{Rows: len(rows), Cols: cols}
}

// Span parses a rowspan or colspan value. Missing, non-numeric,
// non-positive and out-of-range values yield 1.
func Span(v string, max int) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 1 || n > max {
		return 1
	}
	return n
}

// HasHeaders reports whether any row of tbl carries a th cell, or a cell
// with a columnheader or rowheader role.
func HasHeaders(tbl *html.Node) bool {
	for _, row := range Rows(tbl) {
		for _, cell := range Cells(row) {
			if cell.DataAtom == atom.Th {
				return true
			}
			switch strings.ToLower(strings.TrimSpace(dom.Attr(cell, "role"))) {
			case "columnheader", "rowheader":
				return true
			}
		}
	}
	return false
}
