package mapping

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStrict(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"NIK", "nik"},
		{"  Nama Lengkap ", "namalengkap"},
		{"nik-nisn", "niknisn"},
		{"Jenis_Kelamin", "jeniskelamin"},
		{"No\tTelepon", "notelepon"},
		{"Department/Group", "department/group"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Strict(tt.in))
		})
	}
}

func TestLoose(t *testing.T) {
	assert.Equal(t, "nama lengkap", Loose("  Nama Lengkap  "))
	assert.Equal(t, "nik-nisn", Loose("NIK-NISN"))
}

func TestEligible(t *testing.T) {
	assert.False(t, Eligible(""))
	assert.False(t, Eligible(" \t "))
	assert.True(t, Eligible("x"))
}

func TestStoplistContains(t *testing.T) {
	assert.True(t, DefaultStoplist.Contains("daftar peserta didik"))
	assert.True(t, DefaultStoplist.Contains("tanggal unduh: 2024-01-01"))
	assert.True(t, DefaultStoplist.Contains("sd negeri 1"))
	assert.False(t, DefaultStoplist.Contains("kode sdm"))
	assert.False(t, DefaultStoplist.Contains("tanggal lahir"))
	assert.False(t, Stoplist(nil).Contains("daftar"))
}

func TestHeaderLength(t *testing.T) {
	assert.Equal(t, 3, headerLength(" abc "))
	assert.Equal(t, 51, headerLength(strings.Repeat("é", 51)))
}
