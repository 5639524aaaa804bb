// Package table renders rows as a fixed-width plain text table.
package table

import (
	"bufio"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Table is a header plus rows of cells.  Cells are formatted with Cell.
type Table struct {
	Columns []string
	Rows    [][]any
}

// New returns an empty table with the given columns.
func New(columns ...string) *Table {
	return &Table{Columns: columns}
}

// Append adds one row.  Missing cells render as None.
func (t *Table) Append(cells ...any) {
	t.Rows = append(t.Rows, cells)
}

// Cell formats a single value: nil and nil pointers as None, floats with
// four decimals, everything else with %v.
func Cell(v any) string {
	if v == nil {
		return "None"
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return "None"
		}
		return Cell(rv.Elem().Interface())
	}
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'f', 4, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', 4, 32)
	case string:
		return x
	}
	return fmt.Sprint(v)
}

// Render writes the table to w.  Each column is as wide as its longest
// value plus two, left aligned.  A dashed line precedes and follows the
// header and follows the rows when there are any.
func (t *Table) Render(w io.Writer) error {
	cells := make([][]string, len(t.Rows))
	widths := make([]int, len(t.Columns))
	for i, c := range t.Columns {
		widths[i] = utf8.RuneCountInString(c) + 2
	}
	for r, row := range t.Rows {
		cells[r] = make([]string, len(t.Columns))
		for i := range t.Columns {
			var v any
			if i < len(row) {
				v = row[i]
			}
			s := Cell(v)
			cells[r][i] = s
			widths[i] = max(widths[i], utf8.RuneCountInString(s)+2)
		}
	}
	total := 0
	for _, n := range widths {
		total += n
	}
	divider := strings.Repeat("-", total)

	bw := bufio.NewWriter(w)
	bw.WriteString(divider + "\n")
	writeLine(bw, t.Columns, widths)
	bw.WriteString(divider + "\n")
	if len(cells) > 0 {
		for _, row := range cells {
			writeLine(bw, row, widths)
		}
		bw.WriteString(divider + "\n")
	}
	return bw.Flush()
}

// String renders the table into a string.
func (t *Table) String() string {
	var b strings.Builder
	_ = t.Render(&b)
	return b.String()
}

func writeLine(w *bufio.Writer, values []string, widths []int) {
	for i, v := range values {
		w.WriteString(v)
		w.WriteString(strings.Repeat(" ", widths[i]-utf8.RuneCountInString(v)))
	}
	w.WriteString("\n")
}
