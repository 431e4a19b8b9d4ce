package mapping

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoMapBiodataExactAndPattern(t *testing.T) {
	got := AutoMap([]string{"NIK", "Nama Lengkap", "Email"}, BiodataCatalog)

	assert.Equal(t, Mapping{"nik": "NIK", "nama": "Nama Lengkap", "email": "Email"}, got)
	for _, key := range []string{"nisn", "jenis_kelamin", "department_id"} {
		_, ok := got.Header(key)
		assert.False(t, ok, "expected %s to stay unmapped", key)
	}
}

func TestAutoMapCompoundHeaderDoesNotMatchNIK(t *testing.T) {
	got := AutoMap([]string{"nik-nisn", "NAMA"}, BiodataCatalog)

	_, ok := got.Header("nik")
	assert.False(t, ok)
	assert.Equal(t, "NAMA", got["nama"])
	assert.Len(t, got, 1)
}

func TestAutoMapJurusanToDepartment(t *testing.T) {
	got := AutoMap([]string{"NIK", "Nama", "Jurusan"}, BiodataCatalog)
	assert.Equal(t, "Jurusan", got["department_id"])
}

func TestAutoMapSimpleCatalog(t *testing.T) {
	headers := []string{"No", "E-mail", "Nama", "No. HP", "Divisi", "Jabatan", "Role", "Status"}
	got := AutoMap(headers, SimpleCatalog)

	assert.Equal(t, Mapping{
		"email":      "E-mail",
		"full_name":  "Nama",
		"phone":      "No. HP",
		"department": "Divisi",
		"position":   "Jabatan",
		"role":       "Role",
		"status":     "Status",
	}, got)
}

func TestAutoMapExactBeatsEarlierPattern(t *testing.T) {
	// "Telepon Kantor" would satisfy no_telepon's pattern, but the exact label
	// wins even though it appears later in the sheet.
	got := AutoMap([]string{"Telepon Kantor", "No Telepon", "NIK", "Nama"}, BiodataCatalog)
	assert.Equal(t, "No Telepon", got["no_telepon"])
}

func TestAutoMapExactMatchIgnoresPunctuation(t *testing.T) {
	got := AutoMap([]string{"jenis_kelamin", "tanggal-lahir", "NO TELEPON"}, BiodataCatalog)
	assert.Equal(t, "jenis_kelamin", got["jenis_kelamin"])
	assert.Equal(t, "tanggal-lahir", got["tanggal_lahir"])
	assert.Equal(t, "NO TELEPON", got["no_telepon"])
}

func TestAutoMapSkipsBlankHeaders(t *testing.T) {
	got := AutoMap([]string{"", "   ", "Email"}, SimpleCatalog)
	assert.Equal(t, Mapping{"email": "Email"}, got)
}

func TestAutoMapSkipsStoplistedHeadersInPatternPass(t *testing.T) {
	got := AutoMap([]string{"Nama Siswa", "Daftar Email Peserta"}, SimpleCatalog)
	assert.Empty(t, got)

	custom := NewMatcher(WithStoplist(nil))
	got = custom.AutoMap([]string{"Daftar Email Peserta"}, SimpleCatalog)
	assert.Equal(t, "Daftar Email Peserta", got["email"])
}

func TestAutoMapLongHeadersOnlyMatchExactly(t *testing.T) {
	long := "email " + strings.Repeat("x", 60)
	got := AutoMap([]string{long}, SimpleCatalog)
	assert.Empty(t, got)

	got = NewMatcher(WithMaxPatternHeaderLength(100)).AutoMap([]string{long}, SimpleCatalog)
	assert.Equal(t, long, got["email"])

	longLabel := MustCatalog("long", "title", TargetField{Key: "title", Label: strings.Repeat("t", 60)})
	got = AutoMap([]string{strings.Repeat("T", 60)}, longLabel)
	assert.Equal(t, strings.Repeat("T", 60), got["title"])
}

func TestAutoMapDuplicateGuard(t *testing.T) {
	catalog := MustCatalog("dup", "a",
		TargetField{Key: "a", Label: "X"},
		TargetField{Key: "b", Pattern: Patterns(`^x$`)},
	)
	var conflicts []string
	m := NewMatcher(WithConflictHook(func(field, header, owner string) {
		conflicts = append(conflicts, field+"->"+header+"<-"+owner)
	}))

	got := m.AutoMap([]string{"X", "X"}, catalog)

	assert.Equal(t, Mapping{"a": "X"}, got)
	assert.Equal(t, []string{"b->X<-a"}, conflicts)
}

func TestAutoMapCatalogsRaiseNoConflicts(t *testing.T) {
	m := NewMatcher(WithConflictHook(func(field, header, owner string) {
		t.Fatalf("unexpected conflict: %s claimed %q already owned by %s", field, header, owner)
	}))
	sheets := [][]string{
		{"NIK", "Nama Lengkap", "NISN", "JK", "Tempat Lahir", "Tanggal Lahir", "Agama", "Alamat", "RT", "RW", "Dusun", "Kelurahan", "Kecamatan", "HP", "E-Mail", "Rombel Saat Ini"},
		{"Email", "Full Name", "Phone Number", "Department/Group", "Position", "Role", "Status"},
	}
	for _, headers := range sheets {
		m.AutoMap(headers, BiodataCatalog)
		m.AutoMap(headers, SimpleCatalog)
	}
}

func TestAssignReassignsHeader(t *testing.T) {
	m := Mapping{"email": "Email", "full_name": "Nama"}

	m.Assign("phone", "Email")

	_, ok := m.Header("email")
	assert.False(t, ok)
	assert.Equal(t, "Email", m["phone"])
	assert.True(t, m.Injective())

	m.Assign("phone", "")
	_, ok = m.Header("phone")
	assert.False(t, ok)
}

func TestMappingMissing(t *testing.T) {
	missing := Mapping{"nama": "Nama"}.Missing(BiodataCatalog)
	require.Len(t, missing, 1)
	assert.Equal(t, "nik", missing[0].Key)

	assert.Len(t, Mapping{}.Missing(BiodataCatalog), 2)
	assert.Empty(t, Mapping{"email": "Email"}.Missing(SimpleCatalog))
}

func TestMappingValidate(t *testing.T) {
	headers := []string{"Email", "Nama"}
	assert.NoError(t, Mapping{"email": "Email"}.Validate(SimpleCatalog, headers))
	assert.Error(t, Mapping{"unknown": "Email"}.Validate(SimpleCatalog, headers))
	assert.Error(t, Mapping{"email": "Missing"}.Validate(SimpleCatalog, headers))
	assert.Error(t, Mapping{"email": "Email", "phone": "Email"}.Validate(SimpleCatalog, headers))
}

func TestMappingUnmarshalJSON(t *testing.T) {
	var m Mapping
	require.NoError(t, json.Unmarshal([]byte(`{"email":"Email","phone":null,"role":"  "}`), &m))
	assert.Equal(t, Mapping{"email": "Email"}, m)
}

func TestMappingDescribe(t *testing.T) {
	described := Mapping{"email": "Email"}.Describe(SimpleCatalog)
	require.Len(t, described, 7)
	assert.Equal(t, "email", described[0].Key)
	require.NotNil(t, described[0].Header)
	assert.Equal(t, "Email", *described[0].Header)
	assert.Nil(t, described[1].Header)
}

var headerPool = []string{
	"NIK", "nik", "Nama", "Nama Lengkap", "NAMA", "Email", "E-mail", "No HP", "Telepon",
	"Jurusan", "Kelas", "JK", "L/P", "Tgl Lahir", "Tanggal Lahir", "Agama", "Alamat",
	"RT", "RW", "Desa", "Kecamatan", "", " ", "Daftar Siswa", "nik-nisn", "Status",
	"Role", "Jabatan", "Divisi", "Full Name", "Phone Number", "Department/Group",
}

func pickHeaders(idx []int) []string {
	out := make([]string, len(idx))
	for i, j := range idx {
		out[i] = headerPool[j]
	}
	return out
}

func TestAutoMapProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)
	headerGen := gen.SliceOf(gen.IntRange(0, len(headerPool)-1))

	for _, catalog := range []*Catalog{SimpleCatalog, BiodataCatalog} {
		catalog := catalog
		properties.Property(catalog.Name()+" auto mapping is deterministic", prop.ForAll(
			func(idx []int) bool {
				headers := pickHeaders(idx)
				first := AutoMap(headers, catalog)
				second := AutoMap(headers, catalog)
				if len(first) != len(second) {
					return false
				}
				for k, v := range first {
					if second[k] != v {
						return false
					}
				}
				return true
			},
			headerGen,
		))

		properties.Property(catalog.Name()+" auto mapping is injective and uses known headers", prop.ForAll(
			func(idx []int) bool {
				headers := pickHeaders(idx)
				got := AutoMap(headers, catalog)
				return got.Injective() && got.Validate(catalog, headers) == nil
			},
			headerGen,
		))

		properties.Property(catalog.Name()+" reassignment keeps injectivity", prop.ForAll(
			func(idx []int, ops []int) bool {
				headers := pickHeaders(idx)
				if len(headers) == 0 {
					return true
				}
				fields := catalog.Fields()
				got := AutoMap(headers, catalog)
				for i, op := range ops {
					field := fields[op%len(fields)]
					header := headers[(op+i)%len(headers)]
					got.Assign(field.Key, header)
					if !got.Injective() {
						return false
					}
					if header != "" && got[field.Key] != header {
						return false
					}
				}
				return true
			},
			headerGen,
			gen.SliceOf(gen.IntRange(0, 1000)),
		))
	}

	properties.TestingRun(t)
}
