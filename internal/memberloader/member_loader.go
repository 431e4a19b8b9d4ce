// Package memberloader batches existing-member lookups by natural key.
package memberloader

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rpattn/memberimport/internal/domain"
	"github.com/rpattn/memberimport/internal/repository"

	"github.com/google/uuid"
	"github.com/graph-gophers/dataloader"
)

type ctxKey string

const loaderKey ctxKey = "memberLoader"

// MemberLoader resolves members by (organization, natural key field, value).
// Missing members resolve to nil without an error.
type MemberLoader struct {
	Loader *dataloader.Loader
}

// Key encodes one lookup.
func Key(organizationID uuid.UUID, naturalKey, value string) dataloader.StringKey {
	return dataloader.StringKey(organizationID.String() + "|" + naturalKey + "|" + value)
}

type lookup struct {
	organizationID uuid.UUID
	naturalKey     string
	value          string
}

func parseKey(raw string) (lookup, error) {
	parts := strings.SplitN(raw, "|", 3)
	if len(parts) != 3 {
		return lookup{}, fmt.Errorf("malformed member key %q", raw)
	}
	id, err := uuid.Parse(parts[0])
	if err != nil {
		return lookup{}, fmt.Errorf("invalid UUID: %w", err)
	}
	return lookup{organizationID: id, naturalKey: parts[1], value: parts[2]}, nil
}

// NewMemberLoader builds a loader that batches lookups for 5ms.
func NewMemberLoader(repo repository.MemberRepository) *MemberLoader {
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		results := make([]*dataloader.Result, len(keys))
		type group struct {
			organizationID uuid.UUID
			naturalKey     string
			values         []string
			positions      map[string][]int
		}
		groups := map[string]*group{}
		var order []string

		for i, k := range keys {
			l, err := parseKey(k.String())
			if err != nil {
				results[i] = &dataloader.Result{Error: err}
				continue
			}
			gk := l.organizationID.String() + "|" + l.naturalKey
			g, ok := groups[gk]
			if !ok {
				g = &group{organizationID: l.organizationID, naturalKey: l.naturalKey, positions: map[string][]int{}}
				groups[gk] = g
				order = append(order, gk)
			}
			if _, seen := g.positions[l.value]; !seen {
				g.values = append(g.values, l.value)
			}
			g.positions[l.value] = append(g.positions[l.value], i)
		}

		for _, gk := range order {
			g := groups[gk]
			members, err := repo.FindByNaturalKeys(ctx, g.organizationID, g.naturalKey, g.values)
			if err != nil {
				for _, positions := range g.positions {
					for _, i := range positions {
						results[i] = &dataloader.Result{Error: err}
					}
				}
				continue
			}

			byKey := make(map[string]domain.Member, len(members))
			for _, m := range members {
				byKey[m.NaturalKey(g.naturalKey)] = m
			}
			for value, positions := range g.positions {
				for _, i := range positions {
					if m, ok := byKey[value]; ok {
						member := m
						results[i] = &dataloader.Result{Data: &member}
					} else {
						results[i] = &dataloader.Result{Data: (*domain.Member)(nil)}
					}
				}
			}
		}
		return results
	}

	loader := dataloader.NewBatchedLoader(batchFn, dataloader.WithWait(5*time.Millisecond))
	return &MemberLoader{Loader: loader}
}

// LoadMany resolves every value; the result is aligned with values and holds
// nil for members that do not exist yet.
func (l *MemberLoader) LoadMany(ctx context.Context, organizationID uuid.UUID, naturalKey string, values []string) ([]*domain.Member, error) {
	keys := make(dataloader.Keys, len(values))
	for i, v := range values {
		keys[i] = Key(organizationID, naturalKey, v)
	}
	data, errs := l.Loader.LoadMany(ctx, keys)()
	out := make([]*domain.Member, len(values))
	for i := range values {
		if i < len(errs) && errs[i] != nil {
			return nil, errs[i]
		}
		if i < len(data) {
			if m, ok := data[i].(*domain.Member); ok {
				out[i] = m
			}
		}
	}
	return out, nil
}

// WithLoader stores l in ctx.
func WithLoader(ctx context.Context, l *MemberLoader) context.Context {
	return context.WithValue(ctx, loaderKey, l)
}

// FromContext retrieves the loader attached by WithLoader.
func FromContext(ctx context.Context) *MemberLoader {
	if l, ok := ctx.Value(loaderKey).(*MemberLoader); ok {
		return l
	}
	return nil
}
