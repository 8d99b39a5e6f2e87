package snowflake

import (
	"database/sql"
	"strings"
)

// Result is a materialized tabular result: named columns over ordered rows.
// Column names are unique; row order is whatever the engine returned.
type Result struct {
	Columns []string
	Rows    [][]interface{}
}

// ColumnIndex returns the position of a column by case-insensitive name,
// or -1 when absent.
func (r *Result) ColumnIndex(name string) int {
	for i, col := range r.Columns {
		if strings.EqualFold(col, name) {
			return i
		}
	}
	return -1
}

// Scalar returns the single value of a 1x1 result.
func (r *Result) Scalar() (interface{}, bool) {
	if len(r.Rows) == 1 && len(r.Rows[0]) == 1 {
		return r.Rows[0][0], true
	}
	return nil, false
}

// RowCount returns the number of rows.
func (r *Result) RowCount() int {
	return len(r.Rows)
}

// collectRows drains sql.Rows into a Result. Byte slices are copied into
// strings because the driver may reuse the backing buffer between scans.
func collectRows(rows *sql.Rows) (*Result, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := &Result{Columns: cols}

	for rows.Next() {
		values := make([]interface{}, len(cols))
		valuePtrs := make([]interface{}, len(cols))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}

		result.Rows = append(result.Rows, values)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
