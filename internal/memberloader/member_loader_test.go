package memberloader

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rpattn/memberimport/internal/domain"
	"github.com/rpattn/memberimport/internal/repository"

	"github.com/google/uuid"
)

type stubMemberRepo struct {
	mu      sync.Mutex
	calls   [][]string
	members []domain.Member
	err     error
}

var _ repository.MemberRepository = (*stubMemberRepo)(nil)

func (s *stubMemberRepo) Upsert(ctx context.Context, member domain.Member, naturalKey string) (domain.Member, domain.UpsertOutcome, error) {
	return member, domain.UpsertCreated, nil
}

func (s *stubMemberRepo) FindByNaturalKeys(ctx context.Context, organizationID uuid.UUID, naturalKey string, values []string) ([]domain.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, append([]string(nil), values...))
	if s.err != nil {
		return nil, s.err
	}
	var out []domain.Member
	for _, m := range s.members {
		for _, v := range values {
			if m.OrganizationID == organizationID && m.NaturalKey(naturalKey) == v {
				out = append(out, m)
			}
		}
	}
	return out, nil
}

func (s *stubMemberRepo) List(ctx context.Context, organizationID uuid.UUID, filter domain.MemberFilter, sort domain.MemberSort, limit int, offset int) ([]domain.Member, int, error) {
	return nil, 0, nil
}

func (s *stubMemberRepo) Count(ctx context.Context, organizationID uuid.UUID, filter domain.MemberFilter) (int, error) {
	return 0, nil
}

func TestLoadManyBatchesAndAligns(t *testing.T) {
	org := uuid.New()
	repo := &stubMemberRepo{members: []domain.Member{
		{ID: uuid.New(), OrganizationID: org, NIK: "2", FullName: "Budi"},
	}}
	loader := NewMemberLoader(repo)

	got, err := loader.LoadMany(context.Background(), org, "nik", []string{"1", "2", "2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 || got[0] != nil || got[1] == nil || got[2] == nil {
		t.Fatalf("unexpected results %+v", got)
	}
	if got[1].FullName != "Budi" {
		t.Fatalf("expected Budi, got %+v", got[1])
	}
	if len(repo.calls) != 1 || len(repo.calls[0]) != 2 {
		t.Fatalf("expected one batched call with deduplicated keys, got %v", repo.calls)
	}
}

func TestLoadManyPropagatesErrors(t *testing.T) {
	repo := &stubMemberRepo{err: errors.New("boom")}
	loader := NewMemberLoader(repo)

	if _, err := loader.LoadMany(context.Background(), uuid.New(), "email", []string{"a@example.com"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestContextRoundTrip(t *testing.T) {
	if FromContext(context.Background()) != nil {
		t.Fatalf("expected no loader")
	}
	l := NewMemberLoader(&stubMemberRepo{})
	if FromContext(WithLoader(context.Background(), l)) != l {
		t.Fatalf("expected loader from context")
	}
}
