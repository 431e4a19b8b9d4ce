package spreadsheet

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rpattn/memberimport/pkg/mapping"
)

const (
	maxSearchRows       = 20
	titleRows           = 5
	maxHeaderCellLength = 30
	minHeaderScore      = 3
	parentHeaderBonus   = 8
)

var dataLikePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\d{10,}$`),
	regexp.MustCompile(`^\d{1,4}[-/.]\d{1,2}[-/.]\d{1,4}$`),
	regexp.MustCompile(`^\d{1,2}:\d{2}(:\d{2})?$`),
	regexp.MustCompile(`^\d+(\.\d+)?[eE]\+?\d+$`),
}

// headerChoice is a detected header position. index is 0-based into records.
type headerChoice struct {
	index    int
	count    int
	score    int
	required int
}

func trimmedCells(row []string) []string {
	out := make([]string, len(row))
	for i, cell := range row {
		out[i] = strings.TrimSpace(cell)
	}
	return out
}

func nonEmpty(row []string) []string {
	var cells []string
	for _, cell := range row {
		if v := strings.TrimSpace(cell); v != "" {
			cells = append(cells, v)
		}
	}
	return cells
}

func looksLikeData(row []string) bool {
	for _, cell := range nonEmpty(row) {
		for _, re := range dataLikePatterns {
			if re.MatchString(cell) {
				return true
			}
		}
	}
	return false
}

// looksLikeHeader reports a row of short labels that are mostly not numbers.
func looksLikeHeader(row []string) bool {
	cells := nonEmpty(row)
	if len(cells) < 2 {
		return false
	}
	textual := 0
	for _, cell := range cells {
		if !isNumeric(cell) {
			textual++
		}
	}
	return textual*2 > len(cells)
}

func isNumeric(value string) bool {
	for _, r := range value {
		if (r < '0' || r > '9') && r != '.' && r != ',' && r != '-' {
			return false
		}
	}
	return value != ""
}

// scoreRow rates how likely a single row is the header row for catalog. A
// negative result means the row must not be used.
func scoreRow(row []string, rowIndex int, catalog *mapping.Catalog, matcher *mapping.Matcher) int {
	cells := nonEmpty(row)
	if len(cells) == 0 {
		return -1
	}
	for _, cell := range cells {
		if utf8.RuneCountInString(cell) > maxHeaderCellLength {
			return -1
		}
		if rowIndex < titleRows && matcher.Stoplist().Contains(mapping.Loose(cell)) {
			return -1
		}
	}

	score := 0
	if catalog != nil {
		seen := make(map[string]bool)
		for _, cell := range cells {
			field, ok := matcher.Recognize(cell, catalog)
			if !ok || seen[field.Key] {
				continue
			}
			seen[field.Key] = true
			if field.Required {
				score += 3
			} else {
				score++
			}
		}
	}
	if len(cells) >= 3 {
		score++
	}
	if looksLikeHeader(row) {
		score += 2
	}
	if looksLikeData(row) {
		score -= 5
	}
	return score
}

// requiredMatches counts the distinct required catalog fields recognized in row.
func requiredMatches(row []string, catalog *mapping.Catalog, matcher *mapping.Matcher) int {
	if catalog == nil {
		return 0
	}
	seen := make(map[string]bool)
	for _, cell := range nonEmpty(row) {
		field, ok := matcher.Recognize(cell, catalog)
		if ok && field.Required {
			seen[field.Key] = true
		}
	}
	return len(seen)
}

// hasParentShape reports whether child fills columns that parent leaves blank,
// the layout produced by horizontally merged group headers.
func hasParentShape(parent, child []string) bool {
	if len(nonEmpty(parent)) < 2 || looksLikeData(parent) {
		return false
	}
	for i, cell := range child {
		if strings.TrimSpace(cell) == "" {
			continue
		}
		if i >= len(parent) || strings.TrimSpace(parent[i]) == "" {
			return true
		}
	}
	return false
}

// detectHeader scans the first rows for the best header position. Without a
// convincing candidate it falls back to the first non-empty row that does not
// look like data.
func detectHeader(records [][]string, catalog *mapping.Catalog, matcher *mapping.Matcher) headerChoice {
	limit := len(records)
	if limit > maxSearchRows {
		limit = maxSearchRows
	}

	best := headerChoice{index: -1, score: -1 << 31}
	for i := 0; i < limit; i++ {
		score := scoreRow(records[i], i, catalog, matcher)
		if score < 0 && len(nonEmpty(records[i])) == 0 {
			continue
		}
		if score > best.score {
			best = headerChoice{index: i, count: 1, score: score, required: requiredMatches(records[i], catalog, matcher)}
		}
		if score < 0 || i+1 >= len(records) || !hasParentShape(records[i], records[i+1]) {
			continue
		}
		// A group header never displaces an earlier row that already names
		// required fields; the rows below such a header are data.
		if best.index < i && best.required > 0 {
			continue
		}
		if scoreRow(records[i+1], i+1, catalog, matcher) < minHeaderScore {
			continue
		}
		composed := composeHeaders(records[i], records[i+1])
		required := requiredMatches(composed, catalog, matcher)
		if catalog != nil && required == 0 {
			continue
		}
		if composedScore := scoreRow(composed, i, catalog, matcher); composedScore >= minHeaderScore {
			if total := composedScore + parentHeaderBonus; total > best.score {
				best = headerChoice{index: i, count: 2, score: total, required: required}
			}
		}
	}
	if best.index >= 0 && best.score >= minHeaderScore {
		return best
	}

	for i, row := range records {
		if len(nonEmpty(row)) > 0 && !looksLikeData(row) {
			return headerChoice{index: i, count: 1}
		}
	}
	for i, row := range records {
		if len(nonEmpty(row)) > 0 {
			return headerChoice{index: i, count: 1}
		}
	}
	return headerChoice{index: -1}
}

// composeHeaders joins a group header row with its child row as
// "Parent - Child". Parents carry forward across merged (blank) cells; a column
// without a child takes the carried parent text.
func composeHeaders(parent, child []string) []string {
	width := len(parent)
	if len(child) > width {
		width = len(child)
	}
	parentCells := trimmedCells(padRow(parent, width))
	childCells := trimmedCells(padRow(child, width))

	headers := make([]string, width)
	carried := ""
	for i := 0; i < width; i++ {
		p := parentCells[i]
		c := childCells[i]
		if p != "" {
			carried = p
		}
		switch {
		case c == "":
			headers[i] = carried
		case p == "" && carried == "":
			headers[i] = c
		case p == "":
			headers[i] = joinHeader(carried, c)
		default:
			headers[i] = joinHeader(p, c)
		}
	}
	return headers
}

func joinHeader(parent, child string) string {
	if strings.EqualFold(parent, child) {
		return child
	}
	return parent + " - " + child
}

// sanitizeHeaders trims headers and suffixes repeated names with " (n)".
// Blank headers stay blank so the matcher never considers them.
func sanitizeHeaders(raw []string) []string {
	headers := make([]string, len(raw))
	used := make(map[string]bool)
	for idx, value := range raw {
		name := strings.Join(strings.Fields(value), " ")
		if name == "" {
			continue
		}
		unique := name
		for n := 2; used[strings.ToLower(unique)]; n++ {
			unique = fmt.Sprintf("%s (%d)", name, n)
		}
		used[strings.ToLower(unique)] = true
		headers[idx] = unique
	}
	return headers
}

func padRow(row []string, length int) []string {
	if len(row) >= length {
		return row[:length]
	}
	padded := make([]string, length)
	copy(padded, row)
	return padded
}
