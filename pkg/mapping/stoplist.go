package mapping

import (
	"strings"
	"unicode"
)

// Stoplist holds generic document words. A header containing one of them is
// treated as a title or metadata cell and skipped by the pattern pass.
type Stoplist []string

// DefaultStoplist covers Indonesian school and report exports.
var DefaultStoplist = Stoplist{
	"daftar", "list", "tabel", "table", "laporan", "report",
	"peserta", "didik", "siswa", "student", "murid",
	"tanggal unduh", "download", "unduh", "pengunduh",
	"kabupaten", "provinsi",
	"smk", "sma", "smp", "sd", "sekolah", "school",
}

// Contains reports whether the loose-normalized header contains any entry as a
// whole word or whole phrase.
func (s Stoplist) Contains(header string) bool {
	if len(s) == 0 {
		return false
	}
	words := tokenize(header)
	if len(words) == 0 {
		return false
	}
	joined := " " + strings.Join(words, " ") + " "
	for _, entry := range s {
		phrase := tokenize(entry)
		if len(phrase) == 0 {
			continue
		}
		if strings.Contains(joined, " "+strings.Join(phrase, " ")+" ") {
			return true
		}
	}
	return false
}

func tokenize(value string) []string {
	return strings.FieldsFunc(strings.ToLower(value), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
