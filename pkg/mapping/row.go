package mapping

import "strings"

// Cell is one header/value pair of a row.
type Cell struct {
	Header string `json:"header"`
	Value  string `json:"value"`
}

// Row is an ordered header to value record. Column sets vary per file, so rows
// stay untyped until a mapping extracts catalog values from them.
type Row []Cell

// NewRow zips headers and values. Missing values are empty strings and extra
// values beyond the header count are dropped.
func NewRow(headers, values []string) Row {
	row := make(Row, len(headers))
	for i, header := range headers {
		cell := Cell{Header: header}
		if i < len(values) {
			cell.Value = values[i]
		}
		row[i] = cell
	}
	return row
}

// Get returns the value stored under header.
func (r Row) Get(header string) (string, bool) {
	for _, cell := range r {
		if cell.Header == header {
			return cell.Value, true
		}
	}
	return "", false
}

// Blank reports whether every cell is empty after trimming.
func (r Row) Blank() bool {
	for _, cell := range r {
		if strings.TrimSpace(cell.Value) != "" {
			return false
		}
	}
	return true
}

// Map returns the row as a plain map, e.g. for JSON previews.
func (r Row) Map() map[string]string {
	out := make(map[string]string, len(r))
	for _, cell := range r {
		out[cell.Header] = cell.Value
	}
	return out
}

// Extract returns trimmed values for every mapped field present in the row.
func (m Mapping) Extract(row Row) map[string]string {
	values := make(map[string]string, len(m))
	for key, header := range m {
		if v, ok := row.Get(header); ok {
			values[key] = strings.TrimSpace(v)
		}
	}
	return values
}
