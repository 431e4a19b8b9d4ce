package validator

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rpattn/memberimport/pkg/mapping"
)

// ErrRequiredFieldUnmapped is wrapped by MappingError.
var ErrRequiredFieldUnmapped = errors.New("required field not mapped")

// MappingError is the configuration error returned before any row is read
// when required catalog fields have no column.
type MappingError struct {
	Catalog string
	Fields  []string
	Labels  []string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("required field(s) not mapped: %s", strings.Join(e.Labels, ", "))
}

func (e *MappingError) Unwrap() error { return ErrRequiredFieldUnmapped }

// Stage tags where a row failed.
type Stage string

const (
	StageValidation  Stage = "validation"
	StagePersistence Stage = "persistence"
)

// RowError reports a failed row. Row is the 1-based spreadsheet row.
type RowError struct {
	Row     int    `json:"row"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Stage   Stage  `json:"stage"`
}

// Record is an accepted row: catalog key to stored value.
type Record struct {
	Row    int               `json:"row"`
	Values map[string]string `json:"values"`
}

// Value returns the stored value for key.
func (r Record) Value(key string) string {
	return r.Values[key]
}

// Summary is the externally visible outcome of a test or import run.
type Summary struct {
	Success  int        `json:"success"`
	Failed   int        `json:"failed"`
	Errors   []RowError `json:"errors"`
	Warnings []RowError `json:"warnings,omitempty"`
}

// Fail records a failed row.
func (s *Summary) Fail(err RowError) {
	s.Failed++
	s.Errors = append(s.Errors, err)
}

// Warn records a non-fatal issue for a row that still succeeded.
func (s *Summary) Warn(err RowError) {
	s.Warnings = append(s.Warnings, err)
}

// FailedAt counts failures tagged with stage.
func (s Summary) FailedAt(stage Stage) int {
	n := 0
	for _, e := range s.Errors {
		if e.Stage == stage {
			n++
		}
	}
	return n
}

// Capped returns a copy with at most n errors and n warnings. Counts are kept.
func (s Summary) Capped(n int) Summary {
	out := s
	if n >= 0 && len(out.Errors) > n {
		out.Errors = append([]RowError(nil), out.Errors[:n]...)
	}
	if n >= 0 && len(out.Warnings) > n {
		out.Warnings = append([]RowError(nil), out.Warnings[:n]...)
	}
	return out
}

// Result pairs a summary with the rows that passed validation.
type Result struct {
	Summary  Summary
	Accepted []Record
}

// DefaultMinIdentityLength is the shortest identity number accepted as a
// natural key.
const DefaultMinIdentityLength = 10

// RowValidator classifies rows against a catalog. It keeps no state between
// calls and may be shared across goroutines.
type RowValidator struct {
	catalog           *mapping.Catalog
	rules             map[mapping.ValueKind]Rule
	minIdentityLength int
}

// Option configures a RowValidator.
type Option func(*RowValidator)

// WithMinIdentityLength sets the minimum length of an identity-kind natural
// key such as NIK. Zero disables the check.
func WithMinIdentityLength(n int) Option {
	return func(v *RowValidator) {
		if n >= 0 {
			v.minIdentityLength = n
		}
	}
}

// NewRowValidator returns a validator using DefaultRules.
func NewRowValidator(catalog *mapping.Catalog, opts ...Option) *RowValidator {
	v := &RowValidator{catalog: catalog, rules: DefaultRules(), minIdentityLength: DefaultMinIdentityLength}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// NewRequiredOnlyValidator checks required values only and stores cells as-is.
func NewRequiredOnlyValidator(catalog *mapping.Catalog) *RowValidator {
	return &RowValidator{catalog: catalog, rules: map[mapping.ValueKind]Rule{}}
}

// Catalog returns the catalog rows are checked against.
func (v *RowValidator) Catalog() *mapping.Catalog { return v.catalog }

// CheckMapping returns a *MappingError when a required field is unmapped.
func (v *RowValidator) CheckMapping(m mapping.Mapping) error {
	missing := m.Missing(v.catalog)
	if len(missing) == 0 {
		return nil
	}
	err := &MappingError{Catalog: v.catalog.Name()}
	for _, field := range missing {
		err.Fields = append(err.Fields, field.Key)
		err.Labels = append(err.Labels, field.Label)
	}
	return err
}

// Validate checks every row in order. Row i is reported as firstRowNumber+i,
// where firstRowNumber is the 1-based header row plus the header row count.
// Only a mapping problem produces an error; row problems land in the summary.
func (v *RowValidator) Validate(m mapping.Mapping, rows []mapping.Row, firstRowNumber int) (Result, error) {
	if err := v.CheckMapping(m); err != nil {
		return Result{}, err
	}

	fields := v.catalog.Fields()
	result := Result{Summary: Summary{Errors: []RowError{}}}
	for i, row := range rows {
		rowNumber := firstRowNumber + i
		record, rowErr := v.validateRow(m, fields, row, rowNumber)
		if rowErr != nil {
			result.Summary.Fail(*rowErr)
			continue
		}
		result.Summary.Success++
		result.Accepted = append(result.Accepted, record)
	}
	return result, nil
}

func (v *RowValidator) validateRow(m mapping.Mapping, fields []mapping.TargetField, row mapping.Row, rowNumber int) (Record, *RowError) {
	values := m.Extract(row)

	for _, field := range fields {
		if !field.Required {
			continue
		}
		if values[field.Key] == "" {
			return Record{}, &RowError{
				Row:     rowNumber,
				Field:   field.Key,
				Message: fmt.Sprintf("%s is required", field.Label),
				Stage:   StageValidation,
			}
		}
	}

	stored := make(map[string]string, len(values))
	for _, field := range fields {
		value, ok := values[field.Key]
		if !ok || value == "" {
			continue
		}
		if rule, ok := v.rules[field.Kind]; ok {
			normalized, err := rule(value)
			if err != nil {
				return Record{}, &RowError{
					Row:     rowNumber,
					Field:   field.Key,
					Message: fmt.Sprintf("%s: %s", field.Label, err),
					Stage:   StageValidation,
				}
			}
			value = normalized
		}
		if v.tooShort(field, value) {
			return Record{}, &RowError{
				Row:     rowNumber,
				Field:   field.Key,
				Message: fmt.Sprintf("%s too short (minimum %d characters): %q", field.Label, v.minIdentityLength, value),
				Stage:   StageValidation,
			}
		}
		stored[field.Key] = value
	}
	return Record{Row: rowNumber, Values: stored}, nil
}

func (v *RowValidator) tooShort(field mapping.TargetField, value string) bool {
	if v.minIdentityLength == 0 || field.Kind != mapping.KindIdentity || field.Key != v.catalog.NaturalKey() {
		return false
	}
	return utf8.RuneCountInString(value) < v.minIdentityLength
}
