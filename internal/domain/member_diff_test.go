package domain

import (
	"testing"
	"time"
)

func TestDiffMembers(t *testing.T) {
	birth := time.Date(2008, 5, 17, 0, 0, 0, 0, time.UTC)
	before := Member{NIK: "3201", FullName: "Budi", Email: "budi@example.com", Status: MemberStatusActive}
	after := before
	after.FullName = "Budi Santoso"
	after.Email = ""
	after.BirthDate = &birth

	changes := DiffMembers(&before, after)
	expected := []FieldChange{
		{Field: "email", Before: "budi@example.com", After: ""},
		{Field: "nama", Before: "Budi", After: "Budi Santoso"},
		{Field: "tanggal_lahir", Before: "", After: "2008-05-17"},
	}
	if len(changes) != len(expected) {
		t.Fatalf("expected %d changes, got %+v", len(expected), changes)
	}
	for i, c := range expected {
		if changes[i] != c {
			t.Errorf("change %d: expected %+v got %+v", i, c, changes[i])
		}
	}

	if got := DiffMembers(&after, after); len(got) != 0 {
		t.Fatalf("expected no changes, got %+v", got)
	}
	if got := DiffMembers(nil, Member{NIK: "1"}); len(got) != 1 || got[0].Field != "nik" {
		t.Fatalf("expected only nik against an empty member, got %+v", got)
	}
}

func TestHistoryMessage(t *testing.T) {
	cases := []struct {
		outcome UpsertOutcome
		changes []FieldChange
		want    string
	}{
		{UpsertCreated, nil, "member 3201 created"},
		{UpsertUpdated, nil, "member 3201 unchanged"},
		{UpsertUpdated, []FieldChange{{Field: "nama", Before: "Budi", After: "Budi S"}}, `member 3201 updated: nama "Budi" -> "Budi S"`},
	}
	for _, tc := range cases {
		if got := HistoryMessage("3201", tc.outcome, tc.changes); got != tc.want {
			t.Errorf("expected %q got %q", tc.want, got)
		}
	}
}
