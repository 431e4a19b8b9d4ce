package export

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rpattn/memberimport/internal/domain"
	"github.com/rpattn/memberimport/internal/metrics"
	"github.com/rpattn/memberimport/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

const (
	defaultPageSize    = 50
	defaultMaxPageSize = 1000
	sheetName          = "Members"
)

// Format selects the file type written by an export.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts csv or xlsx; blank means csv.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unsupported export format %q", raw)
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Request describes one member export.
type Request struct {
	OrganizationID uuid.UUID
	Filter         domain.MemberFilter
	Sort           domain.MemberSort
	Fields         []string
	IncludeHeader  bool
	Format         Format
}

// Page is a window of rendered rows used by the export preview.
type Page struct {
	Columns  []Column   `json:"columns"`
	Rows     [][]string `json:"rows"`
	Total    int        `json:"total"`
	Page     int        `json:"page"`
	PageSize int        `json:"pageSize"`
}

// Result reports what a finished export wrote.
type Result struct {
	Rows  int   `json:"rows"`
	Bytes int64 `json:"bytes"`
}

// Service renders member listings as CSV or XLSX.
type Service struct {
	members     repository.MemberRepository
	metrics     *metrics.ImportMetrics
	log         logrus.FieldLogger
	pageSize    int
	maxPageSize int
}

// Option configures the export service.
type Option func(*Service)

// WithPageSize sets how many members are read per repository call.
func WithPageSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.pageSize = size
		}
	}
}

// WithMaxPageSize caps the preview page size a caller may ask for.
func WithMaxPageSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.maxPageSize = size
		}
	}
}

// WithMetrics counts exported rows.
func WithMetrics(m *metrics.ImportMetrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLogger replaces the default logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// NewService constructs an export service.
func NewService(members repository.MemberRepository, opts ...Option) *Service {
	s := &Service{
		members:     members,
		log:         logrus.StandardLogger(),
		pageSize:    defaultPageSize,
		maxPageSize: defaultMaxPageSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxPageSize < s.pageSize {
		s.maxPageSize = s.pageSize
	}
	return s
}

func normalizeSort(sort domain.MemberSort) domain.MemberSort {
	if sort.Field == "" {
		sort.Field = domain.DefaultMemberSort.Field
	}
	if sort.Direction == "" {
		sort.Direction = domain.DefaultMemberSort.Direction
	}
	return sort
}

func (s *Service) check(req Request) (domain.MemberSort, error) {
	if req.OrganizationID == uuid.Nil {
		return domain.MemberSort{}, errors.New("organization id is required")
	}
	sort := normalizeSort(req.Sort)
	if !sort.Valid() {
		return domain.MemberSort{}, fmt.Errorf("invalid sort %s %s", sort.Field, sort.Direction)
	}
	return sort, nil
}

// Count returns how many members the request's filter matches.
func (s *Service) Count(ctx context.Context, req Request) (int, error) {
	if req.OrganizationID == uuid.Nil {
		return 0, errors.New("organization id is required")
	}
	total, err := s.members.Count(ctx, req.OrganizationID, req.Filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count members: %w", err)
	}
	return total, nil
}

// Preview renders one page of the export as it would be written.
func (s *Service) Preview(ctx context.Context, req Request, page, pageSize int) (Page, error) {
	sort, err := s.check(req)
	if err != nil {
		return Page{}, err
	}
	cols, err := ResolveColumns(req.Fields)
	if err != nil {
		return Page{}, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = s.pageSize
	}
	if pageSize > s.maxPageSize {
		pageSize = s.maxPageSize
	}

	members, total, err := s.members.List(ctx, req.OrganizationID, req.Filter, sort, pageSize, (page-1)*pageSize)
	if err != nil {
		return Page{}, fmt.Errorf("failed to list members: %w", err)
	}
	rows := make([][]string, 0, len(members))
	for _, m := range members {
		rows = append(rows, rowValues(cols, m))
	}
	return Page{Columns: cols, Rows: rows, Total: total, Page: page, PageSize: pageSize}, nil
}

// rowSink receives the header and member rows of an export. Abort releases
// resources when the export stops before Close.
type rowSink interface {
	WriteRow(values []string) error
	Close() (int64, error)
	Abort()
}

func newSink(format Format, w io.Writer) (rowSink, error) {
	switch format {
	case FormatCSV:
		return newCSVSink(w), nil
	case FormatXLSX:
		sink, err := newXLSXSink(w)
		if err != nil {
			return nil, err
		}
		return sink, nil
	}
	return nil, fmt.Errorf("unsupported export format %q", format)
}

// Write streams every matching member to w in the requested format.
func (s *Service) Write(ctx context.Context, w io.Writer, req Request) (Result, error) {
	sort, err := s.check(req)
	if err != nil {
		return Result{}, err
	}
	cols, err := ResolveColumns(req.Fields)
	if err != nil {
		return Result{}, err
	}
	format := req.Format
	if format == "" {
		format = FormatCSV
	}
	sink, err := newSink(format, w)
	if err != nil {
		return Result{}, err
	}

	started := time.Now()
	log := s.log.WithFields(logrus.Fields{
		"organization_id": req.OrganizationID.String(),
		"format":          string(format),
	})

	written, size, err := s.stream(ctx, sink, cols, req, sort)
	if err != nil {
		return Result{Rows: written}, err
	}

	s.metrics.AddExported(string(format), written)
	log.WithFields(logrus.Fields{
		"rows":     written,
		"bytes":    size,
		"duration": time.Since(started).String(),
	}).Info("member export finished")
	return Result{Rows: written, Bytes: size}, nil
}

// stream pages through the members into sink and closes it. On any error the
// sink is aborted instead.
func (s *Service) stream(ctx context.Context, sink rowSink, cols []Column, req Request, sort domain.MemberSort) (written int, size int64, err error) {
	closed := false
	defer func() {
		if !closed {
			sink.Abort()
		}
	}()

	if req.IncludeHeader {
		if err := sink.WriteRow(labels(cols)); err != nil {
			return 0, 0, fmt.Errorf("failed to write header: %w", err)
		}
	}

	offset := 0
	for {
		if err := ctx.Err(); err != nil {
			return written, 0, err
		}
		members, total, err := s.members.List(ctx, req.OrganizationID, req.Filter, sort, s.pageSize, offset)
		if err != nil {
			return written, 0, fmt.Errorf("failed to list members: %w", err)
		}
		for _, m := range members {
			if err := sink.WriteRow(rowValues(cols, m)); err != nil {
				return written, 0, fmt.Errorf("failed to write row: %w", err)
			}
			written++
		}
		offset += len(members)
		if len(members) == 0 || offset >= total {
			break
		}
	}

	closed = true
	if size, err = sink.Close(); err != nil {
		return written, size, fmt.Errorf("failed to finish export: %w", err)
	}
	return written, size, nil
}

type countingWriter struct {
	w     io.Writer
	count int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.count += int64(n)
	return n, err
}

type csvSink struct {
	counter  *countingWriter
	buffered *bufio.Writer
	writer   *csv.Writer
}

func newCSVSink(w io.Writer) *csvSink {
	counter := &countingWriter{w: w}
	buffered := bufio.NewWriter(counter)
	return &csvSink{counter: counter, buffered: buffered, writer: csv.NewWriter(buffered)}
}

func (c *csvSink) WriteRow(values []string) error {
	return c.writer.Write(values)
}

func (c *csvSink) Abort() {}

func (c *csvSink) Close() (int64, error) {
	c.writer.Flush()
	if err := c.writer.Error(); err != nil {
		return c.counter.count, err
	}
	if err := c.buffered.Flush(); err != nil {
		return c.counter.count, err
	}
	return c.counter.count, nil
}

type xlsxSink struct {
	out    io.Writer
	file   *excelize.File
	stream *excelize.StreamWriter
	row    int
	closed bool
}

func newXLSXSink(w io.Writer) (*xlsxSink, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	stream, err := f.NewStreamWriter(sheetName)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to open sheet stream: %w", err)
	}
	return &xlsxSink{out: w, file: f, stream: stream}, nil
}

func (x *xlsxSink) WriteRow(values []string) error {
	x.row++
	cell, err := excelize.CoordinatesToCellName(1, x.row)
	if err != nil {
		return err
	}
	// string cells keep NIK values from turning into numbers
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}
	return x.stream.SetRow(cell, row)
}

// Abort drops the workbook and its temporary files without writing.
func (x *xlsxSink) Abort() {
	if !x.closed {
		x.closed = true
		_ = x.file.Close()
	}
}

func (x *xlsxSink) Close() (int64, error) {
	defer x.Abort()
	if err := x.stream.Flush(); err != nil {
		return 0, err
	}
	counter := &countingWriter{w: x.out}
	if err := x.file.Write(counter); err != nil {
		return counter.count, err
	}
	return counter.count, nil
}
