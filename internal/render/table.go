package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"snowbook/internal/snowflake"
	"snowbook/pkg/errors"
)

const barWidth = 20

// Options controls how a tabular result is displayed
type Options struct {
	// BarColumn draws the named numeric column as a proportional bar
	BarColumn string
	// Limit caps the number of rows displayed (0 means all)
	Limit int
}

// Table writes a tabular result as a terminal table
func Table(out io.Writer, res *snowflake.Result, opts Options) error {
	barIdx := -1
	if opts.BarColumn != "" {
		barIdx = res.ColumnIndex(opts.BarColumn)
		if barIdx < 0 {
			return errors.New(errors.ErrCodeInvalidInput,
				fmt.Sprintf("bar column %q not in result columns", opts.BarColumn))
		}
	}

	var barMax float64
	if barIdx >= 0 {
		for _, row := range res.Rows {
			if f, ok := toFloat(row[barIdx]); ok && f > barMax {
				barMax = f
			}
		}
	}

	rows := res.Rows
	truncated := 0
	if opts.Limit > 0 && len(rows) > opts.Limit {
		truncated = len(rows) - opts.Limit
		rows = rows[:opts.Limit]
	}

	table := tablewriter.NewWriter(out)
	table.SetHeader(res.Columns)
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)

	barColor := color.New(color.FgCyan)

	for _, row := range rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = formatCell(v)
			if i == barIdx {
				if f, ok := toFloat(v); ok {
					cells[i] = fmt.Sprintf("%s %s", cells[i], barColor.Sprint(bar(f, barMax)))
				}
			}
		}
		table.Append(cells)
	}

	table.Render()

	if truncated > 0 {
		fmt.Fprintf(out, "  ... %d more rows\n", truncated)
	}

	return nil
}

// TopRow returns the row holding the maximum value of the named column.
// Ties keep the first row in the engine's returned order.
func TopRow(res *snowflake.Result, column string) ([]interface{}, error) {
	idx := res.ColumnIndex(column)
	if idx < 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("column %q not in result columns", column))
	}

	var (
		best    []interface{}
		bestVal float64
	)

	for _, row := range res.Rows {
		f, ok := toFloat(row[idx])
		if !ok {
			continue
		}
		if best == nil || f > bestVal {
			best = row
			bestVal = f
		}
	}

	if best == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("column %q has no numeric values", column))
	}

	return best, nil
}

// RowSummary formats a row as "COL=value" pairs for one-line display
func RowSummary(res *snowflake.Result, row []interface{}) string {
	parts := make([]string, 0, len(row))
	for i, v := range row {
		name := ""
		if i < len(res.Columns) {
			name = res.Columns[i]
		}
		parts = append(parts, fmt.Sprintf("%s=%s", name, formatCell(v)))
	}
	return strings.Join(parts, "  ")
}

// bar renders a proportional bar of fixed width
func bar(value, max float64) string {
	if max <= 0 || value < 0 {
		return strings.Repeat("░", barWidth)
	}
	filled := int(value / max * barWidth)
	if filled > barWidth {
		filled = barWidth
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
}

// formatCell renders a result value for display
func formatCell(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return val
	case []byte:
		return string(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// toFloat coerces a result value to a float64 for comparison and scaling
func toFloat(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case int:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case float32:
		return float64(val), true
	case float64:
		return val, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	case []byte:
		f, err := strconv.ParseFloat(strings.TrimSpace(string(val)), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
