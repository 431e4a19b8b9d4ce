package spreadsheet

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	// ErrUnsupportedFormat is returned when an uploaded file is not supported.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrSheetNotFound is returned when the requested sheet does not exist.
	ErrSheetNotFound = errors.New("sheet not found")
	// ErrEmptyFile is returned when the selected sheet has no rows.
	ErrEmptyFile = errors.New("file is empty")
	// ErrTooManyCells is returned when a legacy workbook sheet exceeds
	// xlsMaxCells.
	ErrTooManyCells = errors.New("sheet has too many cells")
)

// xlsMaxCells bounds how much of a legacy workbook is decoded.
const xlsMaxCells = 100000

// workbook holds the raw cell grid of one sheet plus the names of all sheets.
type workbook struct {
	sheetNames []string
	sheetName  string
	records    [][]string
}

// SupportedExtension reports whether fileName can be parsed.
func SupportedExtension(fileName string) bool {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv", ".xlsx", ".xls":
		return true
	}
	return false
}

func readWorkbook(fileName string, payload []byte, sheet string) (workbook, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".csv":
		return readCSV(payload)
	case ".xlsx":
		return readXLSX(payload, sheet)
	case ".xls":
		return readXLS(payload, sheet)
	default:
		return workbook{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

func readCSV(payload []byte) (workbook, error) {
	var fallback encoding.Encoding = unicode.UTF8
	if !utf8.Valid(payload) {
		fallback = charmap.Windows1252
	}
	decoded := transform.NewReader(bytes.NewReader(payload), unicode.BOMOverride(fallback.NewDecoder()))
	reader := bufio.NewReader(decoded)

	csvReader := csv.NewReader(reader)
	csvReader.Comma = sniffDelimiter(reader)
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1
	csvReader.LazyQuotes = true

	records, err := readCSVRecords(csvReader)
	if err != nil {
		return workbook{}, fmt.Errorf("failed to read csv: %w", err)
	}
	return workbook{sheetNames: []string{"CSV"}, sheetName: "CSV", records: records}, nil
}

// readCSVRecords reads every record and puts an empty record in place of each
// blank line the csv reader skips. A record spanning several lines through a
// quoted field stays one record.
func readCSVRecords(r *csv.Reader) ([][]string, error) {
	var records [][]string
	lastLine := 0
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		line, _ := r.FieldPos(0)
		for ; lastLine+1 < line; lastLine++ {
			records = append(records, nil)
		}
		records = append(records, record)
		end := len(record) - 1
		lastLine, _ = r.FieldPos(end)
		lastLine += strings.Count(record[end], "\n")
	}
}

// sniffDelimiter picks the most frequent of comma, semicolon and tab on the
// first line without consuming it.
func sniffDelimiter(reader *bufio.Reader) rune {
	peek, err := reader.Peek(4096)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return ','
	}
	line := string(peek)
	if i := strings.IndexAny(line, "\r\n"); i >= 0 {
		line = line[:i]
	}
	best, bestCount := ',', strings.Count(line, ",")
	for _, candidate := range []rune{';', '\t'} {
		if n := strings.Count(line, string(candidate)); n > bestCount {
			best, bestCount = candidate, n
		}
	}
	return best
}

func readXLSX(payload []byte, sheet string) (workbook, error) {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return workbook{}, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	names := f.GetSheetList()
	if len(names) == 0 {
		return workbook{}, errors.New("excel file has no sheets")
	}
	selected, err := pickSheet(names, sheet)
	if err != nil {
		return workbook{}, err
	}

	// Raw values keep dates as serial numbers and long identity numbers as
	// digits instead of the cell's display format.
	rows, err := f.GetRows(selected, excelize.Options{RawCellValue: true})
	if err != nil {
		return workbook{}, fmt.Errorf("failed to read rows from xlsx: %w", err)
	}
	return workbook{sheetNames: names, sheetName: selected, records: rows}, nil
}

func readXLS(payload []byte, sheet string) (workbook, error) {
	wb, err := xls.OpenReader(bytes.NewReader(payload), "utf-8")
	if err != nil {
		return workbook{}, fmt.Errorf("failed to open xls: %w", err)
	}

	names := make([]string, 0, wb.NumSheets())
	for i := 0; i < wb.NumSheets(); i++ {
		if ws := wb.GetSheet(i); ws != nil {
			names = append(names, ws.Name)
		}
	}
	if len(names) == 0 {
		return workbook{}, errors.New("excel file has no sheets")
	}
	selected, err := pickSheet(names, sheet)
	if err != nil {
		return workbook{}, err
	}

	var ws *xls.WorkSheet
	for i := 0; i < wb.NumSheets(); i++ {
		if candidate := wb.GetSheet(i); candidate != nil && candidate.Name == selected {
			ws = candidate
			break
		}
	}

	records, err := boundedRecords(selected, int(ws.MaxRow)+1, xlsMaxCells, func(i int) []string {
		row := ws.Row(i)
		if row == nil {
			return nil
		}
		values := make([]string, 0, row.LastCol())
		for c := 0; c < row.LastCol(); c++ {
			values = append(values, row.Col(c))
		}
		return values
	})
	if err != nil {
		return workbook{}, err
	}
	return workbook{sheetNames: names, sheetName: selected, records: records}, nil
}

// boundedRecords collects rowCount rows from rowAt and fails once more than
// maxCells cells have been read.
func boundedRecords(sheet string, rowCount, maxCells int, rowAt func(int) []string) ([][]string, error) {
	records := make([][]string, 0, rowCount)
	cells := 0
	for i := 0; i < rowCount; i++ {
		values := rowAt(i)
		if cells += len(values); cells > maxCells {
			return nil, fmt.Errorf("%w: sheet %q exceeds %d cells", ErrTooManyCells, sheet, maxCells)
		}
		records = append(records, values)
	}
	return records, nil
}

func pickSheet(names []string, requested string) (string, error) {
	if strings.TrimSpace(requested) == "" {
		return names[0], nil
	}
	for _, name := range names {
		if name == requested {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrSheetNotFound, requested)
}
