package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// Flatten converts an arbitrary decoded JSON value into a flat map keyed by
// dotted paths ("endpoints.0.grade"). Scalars are rendered as strings.
func Flatten(v interface{}) map[string]string {
	out := make(map[string]string)
	flattenInto(v, "", out)
	return out
}

func flattenInto(v interface{}, prefix string, out map[string]string) {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, child := range t {
			flattenInto(child, joinKey(prefix, k), out)
		}
	case []interface{}:
		for i, child := range t {
			flattenInto(child, joinKey(prefix, strconv.Itoa(i)), out)
		}
	case nil:
		out[prefix] = ""
	case string:
		out[prefix] = t
	case bool:
		out[prefix] = strconv.FormatBool(t)
	case float64:
		out[prefix] = strconv.FormatFloat(t, 'f', -1, 64)
	default:
		out[prefix] = fmt.Sprint(t)
	}
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// Workbook accumulates flattened rows with heterogeneous columns and writes
// them as one wide table whose header is the sorted union of all keys.
type Workbook struct {
	rows []map[string]string
}

// Add appends one flattened row.
func (w *Workbook) Add(row map[string]string) {
	w.rows = append(w.rows, row)
}

// Len returns the number of accumulated rows.
func (w *Workbook) Len() int { return len(w.rows) }

// Headers returns the sorted union of all row keys.
func (w *Workbook) Headers() []string {
	set := make(map[string]struct{})
	for _, row := range w.rows {
		for k := range row {
			set[k] = struct{}{}
		}
	}
	headers := make([]string, 0, len(set))
	for k := range set {
		headers = append(headers, k)
	}
	sort.Strings(headers)
	return headers
}

// WriteCSV writes the header row followed by every accumulated row; cells
// missing a column are left empty.
func (w *Workbook) WriteCSV(out io.Writer) error {
	headers := w.Headers()
	cw := csv.NewWriter(out)
	if err := cw.Write(headers); err != nil {
		return fmt.Errorf("write workbook header: %w", err)
	}
	record := make([]string, len(headers))
	for _, row := range w.rows {
		for i, h := range headers {
			record[i] = row[h]
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write workbook row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
