package validator

import (
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/rpattn/memberimport/pkg/mapping"
)

// Rule checks a non-empty, trimmed cell value and returns its stored form.
type Rule func(value string) (string, error)

var (
	emailPattern      = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	scientificPattern = regexp.MustCompile(`^\d+(\.\d+)?[eE]\+?\d+$`)
	trailingZeros     = regexp.MustCompile(`^(\d+)\.0+$`)
	serialPattern     = regexp.MustCompile(`^\d{1,6}(\.\d+)?$`)
)

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2-1-2006",
	"02.01.2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// DefaultRules maps value kinds to their rules. KindText has no rule.
func DefaultRules() map[mapping.ValueKind]Rule {
	return map[mapping.ValueKind]Rule{
		mapping.KindEmail:    EmailRule,
		mapping.KindGender:   GenderRule,
		mapping.KindDate:     DateRule,
		mapping.KindStatus:   StatusRule,
		mapping.KindIdentity: IdentityRule,
	}
}

// EmailRule lowercases addresses and rejects values without a domain.
func EmailRule(value string) (string, error) {
	if !emailPattern.MatchString(value) {
		return "", fmt.Errorf("invalid email format %q", value)
	}
	return strings.ToLower(value), nil
}

// GenderRule maps L/P style codes to male or female.
func GenderRule(value string) (string, error) {
	switch strings.ToUpper(strings.Join(strings.Fields(value), " ")) {
	case "L", "LAKI-LAKI", "LAKI LAKI", "LAKI", "PRIA", "M", "MALE":
		return "male", nil
	case "P", "PEREMPUAN", "WANITA", "F", "FEMALE":
		return "female", nil
	}
	return "", fmt.Errorf("must be L or P, got %q", value)
}

// DateRule accepts ISO and day-first dates as well as Excel serial numbers and
// returns YYYY-MM-DD.
func DateRule(value string) (string, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format("2006-01-02"), nil
		}
	}
	if serialPattern.MatchString(value) {
		serial, err := strconv.ParseFloat(value, 64)
		if err == nil && serial > 0 {
			t, err := excelize.ExcelDateToTime(serial, false)
			if err == nil {
				return t.Format("2006-01-02"), nil
			}
		}
	}
	return "", fmt.Errorf("invalid date %q", value)
}

// StatusRule normalizes membership status flags.
func StatusRule(value string) (string, error) {
	switch strings.ToLower(strings.Join(strings.Fields(value), " ")) {
	case "active", "aktif", "true", "1", "ya", "yes":
		return "active", nil
	case "inactive", "nonaktif", "non-aktif", "non aktif", "tidak aktif", "false", "0", "tidak", "no":
		return "inactive", nil
	}
	return "", fmt.Errorf("must be active or inactive, got %q", value)
}

// IdentityRule undoes spreadsheet number formatting on identity numbers:
// scientific notation and a trailing ".0" are expanded back to digits.
func IdentityRule(value string) (string, error) {
	if m := trailingZeros.FindStringSubmatch(value); m != nil {
		return m[1], nil
	}
	if scientificPattern.MatchString(value) {
		f, _, err := big.ParseFloat(value, 10, 128, big.ToNearestEven)
		if err == nil {
			return f.Text('f', 0), nil
		}
	}
	return value, nil
}
