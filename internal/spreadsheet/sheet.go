// Package spreadsheet turns uploaded CSV and Excel files into header lists and
// ordered row records ready for column mapping.
package spreadsheet

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rpattn/memberimport/pkg/mapping"
)

const defaultCandidateLimit = 10

// Options controls header selection. HeaderRow is 1-based; zero means detect.
type Options struct {
	SheetName      string
	HeaderRow      int
	HeaderRowCount int
	Catalog        *mapping.Catalog
	Matcher        *mapping.Matcher
}

// HeaderCandidate is a row the caller may pick as header instead.
type HeaderCandidate struct {
	Row     int      `json:"row"`
	Values  []string `json:"values"`
	Current bool     `json:"current"`
}

// Sheet is a parsed upload.
type Sheet struct {
	FileName       string            `json:"fileName"`
	SheetName      string            `json:"sheetName"`
	SheetNames     []string          `json:"sheetNames"`
	Headers        []string          `json:"headers"`
	Rows           []mapping.Row     `json:"-"`
	TotalRows      int               `json:"totalRows"`
	HeaderRowIndex int               `json:"headerRowIndex"`
	HeaderRowCount int               `json:"headerRowCount"`
	AutoDetected   bool              `json:"autoDetected"`
	Candidates     []HeaderCandidate `json:"headerCandidates"`
}

// FirstDataRow is the 1-based spreadsheet row of Rows[0].
func (s *Sheet) FirstDataRow() int {
	return s.HeaderRowIndex + s.HeaderRowCount
}

// Preview returns up to limit rows.
func (s *Sheet) Preview(limit int) []mapping.Row {
	if limit <= 0 || limit > len(s.Rows) {
		limit = len(s.Rows)
	}
	return s.Rows[:limit]
}

// ReadAll drains r and parses it.
func ReadAll(fileName string, r io.Reader, opts Options) (*Sheet, error) {
	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	return Parse(fileName, payload, opts)
}

// Parse decodes payload according to the file extension and splits it into
// headers and data rows.
func Parse(fileName string, payload []byte, opts Options) (*Sheet, error) {
	if len(payload) == 0 {
		return nil, ErrEmptyFile
	}
	wb, err := readWorkbook(fileName, payload, opts.SheetName)
	if err != nil {
		return nil, err
	}
	records := trimTrailingBlank(wb.records)
	if len(records) == 0 {
		return nil, ErrEmptyFile
	}

	matcher := opts.Matcher
	if matcher == nil {
		matcher = mapping.NewMatcher()
	}

	choice, auto, err := chooseHeader(records, opts, matcher)
	if err != nil {
		return nil, err
	}

	var rawHeaders []string
	if choice.count == 2 {
		rawHeaders = composeHeaders(records[choice.index], records[choice.index+1])
	} else {
		rawHeaders = trimmedCells(records[choice.index])
	}
	headers := sanitizeHeaders(rawHeaders)

	var rows []mapping.Row
	for _, record := range records[choice.index+choice.count:] {
		rows = append(rows, mapping.NewRow(headers, padRow(record, len(headers))))
	}

	return &Sheet{
		FileName:       fileName,
		SheetName:      wb.sheetName,
		SheetNames:     wb.sheetNames,
		Headers:        headers,
		Rows:           rows,
		TotalRows:      len(rows),
		HeaderRowIndex: choice.index + 1,
		HeaderRowCount: choice.count,
		AutoDetected:   auto,
		Candidates:     buildHeaderCandidates(records, defaultCandidateLimit, choice.index),
	}, nil
}

func chooseHeader(records [][]string, opts Options, matcher *mapping.Matcher) (headerChoice, bool, error) {
	if opts.HeaderRowCount < 0 || opts.HeaderRowCount > 2 {
		return headerChoice{}, false, fmt.Errorf("header row count must be 1 or 2, got %d", opts.HeaderRowCount)
	}
	if opts.HeaderRow > 0 {
		index := opts.HeaderRow - 1
		count := opts.HeaderRowCount
		if count == 0 {
			count = 1
		}
		if index+count > len(records) {
			return headerChoice{}, false, fmt.Errorf("header row %d out of range", opts.HeaderRow)
		}
		if len(nonEmpty(records[index])) == 0 {
			return headerChoice{}, false, fmt.Errorf("selected header row %d is empty", opts.HeaderRow)
		}
		return headerChoice{index: index, count: count}, false, nil
	}

	choice := detectHeader(records, opts.Catalog, matcher)
	if choice.index < 0 {
		return headerChoice{}, false, errors.New("no header row detected")
	}
	if opts.HeaderRowCount > 0 && opts.HeaderRowCount != choice.count {
		if choice.index+opts.HeaderRowCount > len(records) {
			return headerChoice{}, false, errors.New("no header row detected")
		}
		choice.count = opts.HeaderRowCount
	}
	return choice, true, nil
}

func trimTrailingBlank(records [][]string) [][]string {
	end := len(records)
	for end > 0 && len(nonEmpty(records[end-1])) == 0 {
		end--
	}
	return records[:end]
}

func buildHeaderCandidates(records [][]string, limit int, currentIndex int) []HeaderCandidate {
	candidates := make([]HeaderCandidate, 0, limit)
	for idx, row := range records {
		if idx >= maxSearchRows || len(candidates) >= limit {
			break
		}
		if len(nonEmpty(row)) == 0 {
			continue
		}
		values := make([]string, len(row))
		for i, cell := range row {
			values[i] = strings.TrimSpace(cell)
		}
		candidates = append(candidates, HeaderCandidate{
			Row:     idx + 1,
			Values:  values,
			Current: idx == currentIndex,
		})
	}
	return candidates
}
