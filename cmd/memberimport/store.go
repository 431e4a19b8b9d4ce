package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/rpattn/memberimport/internal/db"
	"github.com/rpattn/memberimport/internal/domain"
	"github.com/rpattn/memberimport/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// backend is the set of repositories a command works against.
type backend struct {
	organizations repository.OrganizationRepository
	departments   repository.DepartmentRepository
	members       repository.MemberRepository
	logs          repository.ImportLogRepository
	close         func()
}

func openBackend(ctx context.Context, opts *globalOptions) (*backend, error) {
	if opts.databaseURL != "" {
		if err := db.MigrateURL(opts.databaseURL, opts.log); err != nil {
			return nil, err
		}
		pool, err := pgxpool.New(ctx, opts.databaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to ping postgres: %w", err)
		}
		return &backend{
			organizations: repository.NewOrganizationRepository(pool),
			departments:   repository.NewDepartmentRepository(pool),
			members:       repository.NewMemberRepository(pool),
			logs:          repository.NewImportLogRepository(pool),
			close:         pool.Close,
		}, nil
	}

	store, err := repository.OpenSQLite(ctx, opts.sqlitePath)
	if err != nil {
		return nil, err
	}
	opts.log.WithField("path", opts.sqlitePath).Debug("using sqlite store")
	return &backend{
		organizations: store.Organizations,
		departments:   store.Departments,
		members:       store.Members,
		logs:          store.ImportLogs,
		close:         func() { _ = store.Close() },
	}, nil
}

// ensureOrganization creates the organization when it does not exist yet.
func (b *backend) ensureOrganization(ctx context.Context, id uuid.UUID, name string, log logrus.FieldLogger) error {
	_, err := b.organizations.GetByID(ctx, id)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	if name == "" {
		return fmt.Errorf("organization %s does not exist (pass --create-org NAME to create it)", id)
	}
	if _, err := b.organizations.Create(ctx, domain.NewOrganizationWithID(id, name)); err != nil {
		return err
	}
	log.WithField("name", name).Info("organization created")
	return nil
}
