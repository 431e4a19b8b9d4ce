package validator

import "testing"

func TestRules(t *testing.T) {
	tests := []struct {
		name    string
		rule    Rule
		in      string
		want    string
		wantErr bool
	}{
		{"iso date", DateRule, "2001-08-17", "2001-08-17", false},
		{"day first", DateRule, "7/8/2001", "2001-08-07", false},
		{"dashed day first", DateRule, "17-08-2001", "2001-08-17", false},
		{"excel serial", DateRule, "36892", "2001-01-01", false},
		{"bad date", DateRule, "31/02/2001", "", true},
		{"gender l", GenderRule, "l", "male", false},
		{"gender perempuan", GenderRule, "Perempuan", "female", false},
		{"gender laki laki", GenderRule, "Laki  Laki", "male", false},
		{"gender unknown", GenderRule, "?", "", true},
		{"status aktif", StatusRule, "Aktif", "active", false},
		{"status tidak aktif", StatusRule, "Tidak Aktif", "inactive", false},
		{"status unknown", StatusRule, "maybe", "", true},
		{"email", EmailRule, "A@B.co", "a@b.co", false},
		{"email without tld", EmailRule, "a@b", "", true},
		{"identity plain", IdentityRule, "0012", "0012", false},
		{"identity float", IdentityRule, "123.0", "123", false},
		{"identity scientific", IdentityRule, "1.2e+3", "1200", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.rule(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got %q", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
