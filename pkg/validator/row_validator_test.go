package validator

import (
	"errors"
	"reflect"
	"testing"

	"github.com/rpattn/memberimport/pkg/mapping"
)

var biodataHeaders = []string{"NIK", "Nama Lengkap", "Email"}

func biodataRows(values ...[]string) []mapping.Row {
	rows := make([]mapping.Row, 0, len(values))
	for _, v := range values {
		rows = append(rows, mapping.NewRow(biodataHeaders, v))
	}
	return rows
}

func TestValidateReportsSpreadsheetRowNumbers(t *testing.T) {
	v := NewRowValidator(mapping.BiodataCatalog)
	m := mapping.AutoMap(biodataHeaders, mapping.BiodataCatalog)
	rows := biodataRows([]string{"3201010101010001", "Budi"}, []string{"", "Siti"})

	result, err := v.Validate(m, rows, 1+1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Summary.Success != 1 || result.Summary.Failed != 1 {
		t.Fatalf("expected 1 success and 1 failure, got %+v", result.Summary)
	}
	if len(result.Summary.Errors) != 1 {
		t.Fatalf("expected one error, got %+v", result.Summary.Errors)
	}
	got := result.Summary.Errors[0]
	if got.Row != 3 || got.Message != "NIK is required" || got.Stage != StageValidation {
		t.Fatalf("unexpected row error %+v", got)
	}
	if len(result.Accepted) != 1 || result.Accepted[0].Row != 2 || result.Accepted[0].Value("nama") != "Budi" {
		t.Fatalf("unexpected accepted rows %+v", result.Accepted)
	}
}

func TestValidateNamesFirstMissingRequiredField(t *testing.T) {
	v := NewRowValidator(mapping.BiodataCatalog)
	m := mapping.Mapping{"nik": "NIK", "nama": "Nama Lengkap"}

	result, err := v.Validate(m, biodataRows([]string{"  ", " "}), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Summary.Errors[0].Field != "nik" {
		t.Fatalf("expected nik to be reported first, got %+v", result.Summary.Errors[0])
	}

	result, _ = v.Validate(m, biodataRows([]string{"99", "\t"}), 2)
	if result.Summary.Errors[0].Message != "Nama is required" {
		t.Fatalf("expected nama failure, got %+v", result.Summary.Errors[0])
	}
}

func TestValidateRequiredFieldGate(t *testing.T) {
	cases := []struct {
		name    string
		catalog *mapping.Catalog
		mapping mapping.Mapping
		missing []string
	}{
		{"simple without email", mapping.SimpleCatalog, mapping.Mapping{"full_name": "Nama"}, []string{"email"}},
		{"biodata without nik", mapping.BiodataCatalog, mapping.Mapping{"nama": "Nama"}, []string{"nik"}},
		{"biodata without both", mapping.BiodataCatalog, mapping.Mapping{}, []string{"nik", "nama"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := NewRowValidator(tc.catalog)
			rows := []mapping.Row{mapping.NewRow([]string{"Nama"}, []string{"x"})}

			result, err := v.Validate(tc.mapping, rows, 2)
			if !errors.Is(err, ErrRequiredFieldUnmapped) {
				t.Fatalf("expected ErrRequiredFieldUnmapped, got %v", err)
			}
			var mappingErr *MappingError
			if !errors.As(err, &mappingErr) {
				t.Fatalf("expected *MappingError, got %T", err)
			}
			if !reflect.DeepEqual(mappingErr.Fields, tc.missing) {
				t.Fatalf("expected missing %v, got %v", tc.missing, mappingErr.Fields)
			}
			if result.Summary.Success != 0 || result.Summary.Failed != 0 {
				t.Fatalf("expected no rows processed, got %+v", result.Summary)
			}
		})
	}
}

func TestValidateIsIdempotent(t *testing.T) {
	v := NewRowValidator(mapping.BiodataCatalog)
	m := mapping.AutoMap(biodataHeaders, mapping.BiodataCatalog)
	rows := biodataRows(
		[]string{"1", "A", "a@example.com"},
		[]string{"", "B", ""},
		[]string{"3", "C", "not-an-email"},
	)

	first, err := v.Validate(m, rows, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, _ := v.Validate(m, rows, 2)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical results, got %+v and %+v", first, second)
	}
}

func TestValidateAppliesValueRules(t *testing.T) {
	headers := []string{"NIK", "Nama", "JK", "Tgl Lahir", "Email"}
	m := mapping.AutoMap(headers, mapping.BiodataCatalog)
	v := NewRowValidator(mapping.BiodataCatalog)
	rows := []mapping.Row{
		mapping.NewRow(headers, []string{"3.27E+15", "Budi", "L", "17/08/2001", "Budi@Example.com"}),
		mapping.NewRow(headers, []string{"2", "Siti", "X", "", ""}),
		mapping.NewRow(headers, []string{"3", "Ani", "P", "kemarin", ""}),
		mapping.NewRow(headers, []string{"4", "Dewi", "", "", "dewi@"}),
	}

	result, err := v.Validate(m, rows, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Summary.Success != 1 || result.Summary.Failed != 3 {
		t.Fatalf("unexpected summary %+v", result.Summary)
	}
	rec := result.Accepted[0]
	want := map[string]string{
		"nik":           "3270000000000000",
		"nama":          "Budi",
		"jenis_kelamin": "male",
		"tanggal_lahir": "2001-08-17",
		"email":         "budi@example.com",
	}
	if !reflect.DeepEqual(rec.Values, want) {
		t.Fatalf("unexpected values %+v", rec.Values)
	}
	rowsWithErrors := []int{result.Summary.Errors[0].Row, result.Summary.Errors[1].Row, result.Summary.Errors[2].Row}
	if !reflect.DeepEqual(rowsWithErrors, []int{6, 7, 8}) {
		t.Fatalf("unexpected error rows %v", rowsWithErrors)
	}
}

func TestValidateEnforcesMinimumIdentityLength(t *testing.T) {
	m := mapping.AutoMap(biodataHeaders, mapping.BiodataCatalog)
	rows := biodataRows(
		[]string{"123456789", "Budi"},
		[]string{"1234567890", "Siti"},
		[]string{"1.2E+8", "Ani"},
	)

	result, err := NewRowValidator(mapping.BiodataCatalog).Validate(m, rows, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Summary.Success != 1 || result.Summary.Failed != 2 {
		t.Fatalf("unexpected summary %+v", result.Summary)
	}
	got := result.Summary.Errors[0]
	if got.Row != 2 || got.Field != "nik" || got.Message != `NIK too short (minimum 10 characters): "123456789"` {
		t.Fatalf("unexpected row error %+v", got)
	}
	if result.Summary.Errors[1].Row != 4 {
		t.Fatalf("expected expanded scientific NIK to be checked, got %+v", result.Summary.Errors[1])
	}

	relaxed, _ := NewRowValidator(mapping.BiodataCatalog, WithMinIdentityLength(0)).Validate(m, rows, 2)
	if relaxed.Summary.Success != 3 {
		t.Fatalf("expected the length check to be disabled, got %+v", relaxed.Summary)
	}
	strict, _ := NewRowValidator(mapping.BiodataCatalog, WithMinIdentityLength(16)).Validate(m, rows, 2)
	if strict.Summary.Success != 0 {
		t.Fatalf("expected every NIK to be too short, got %+v", strict.Summary)
	}
}

func TestRequiredOnlyValidatorStoresRawValues(t *testing.T) {
	headers := []string{"NIK", "Nama", "JK"}
	v := NewRequiredOnlyValidator(mapping.BiodataCatalog)
	m := mapping.AutoMap(headers, mapping.BiodataCatalog)

	result, err := v.Validate(m, []mapping.Row{mapping.NewRow(headers, []string{"1", "A", "X"})}, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Summary.Success != 1 || result.Accepted[0].Value("jenis_kelamin") != "X" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestSummaryCapped(t *testing.T) {
	s := Summary{}
	for i := 0; i < 5; i++ {
		s.Fail(RowError{Row: i + 2, Message: "x", Stage: StageValidation})
	}
	s.Fail(RowError{Row: 9, Message: "y", Stage: StagePersistence})

	capped := s.Capped(2)
	if capped.Failed != 6 || len(capped.Errors) != 2 {
		t.Fatalf("unexpected capped summary %+v", capped)
	}
	if s.FailedAt(StagePersistence) != 1 || s.FailedAt(StageValidation) != 5 {
		t.Fatalf("unexpected stage counts")
	}
}
