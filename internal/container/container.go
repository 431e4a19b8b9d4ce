package container

import (
	"context"
	"time"

	"github.com/rpattn/memberimport/internal/config"
	"github.com/rpattn/memberimport/internal/db"
	"github.com/rpattn/memberimport/internal/export"
	"github.com/rpattn/memberimport/internal/ingestion"
	"github.com/rpattn/memberimport/internal/logger"
	"github.com/rpattn/memberimport/internal/metrics"
	"github.com/rpattn/memberimport/internal/repository"
	"github.com/rpattn/memberimport/internal/server"
	"github.com/rpattn/memberimport/internal/session"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
)

// Module provides dependency injection configuration
var Module = fx.Options(
	// Configuration
	fx.Provide(config.LoadConfig),

	// Logging
	fx.Provide(logger.NewLogger),

	// Database
	fx.Provide(newConnection),
	fx.Provide(func(conn *db.Connection) *pgxpool.Pool {
		return conn.Pool
	}),
	fx.Provide(func(conn *db.Connection) server.HealthCheck {
		return conn.Pool.Ping
	}),

	// Repositories
	fx.Provide(repository.NewOrganizationRepository),
	fx.Provide(repository.NewDepartmentRepository),
	fx.Provide(repository.NewMemberRepository),
	fx.Provide(repository.NewImportLogRepository),

	// Sessions
	fx.Provide(newSessionStore),

	// Metrics
	fx.Provide(metrics.NewImportMetrics),

	// Services
	fx.Provide(newImportService),
	fx.Provide(newExportService),

	// Handlers
	fx.Provide(func(cfg *config.Config, service *ingestion.Service, sessions session.Store) *ingestion.Handler {
		return ingestion.NewHTTPHandler(service, sessions, cfg.Import.MaxUploadMB<<20)
	}),
	fx.Provide(export.NewHTTPHandler),

	// Server
	fx.Provide(server.NewServer),

	// Invoke migrations on startup
	fx.Invoke(func(cfg *config.Config, log *logger.Logger) error {
		return db.RunMigrations(cfg.Database, log)
	}),
)

func newConnection(lc fx.Lifecycle, cfg *config.Config, log *logger.Logger) (*db.Connection, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conn, err := db.NewConnection(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			conn.Close()
			return nil
		},
	})
	return conn, nil
}

func newSessionStore(lc fx.Lifecycle, cfg *config.Config, log *logger.Logger) session.Store {
	ttl := time.Duration(cfg.Redis.SessionTTL) * time.Second
	if !cfg.Redis.Enabled() {
		log.Info("Redis not configured, keeping import sessions in memory")
		return session.NewMemoryStore(ttl)
	}

	client := session.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return session.NewRedisStore(client, ttl)
}

func newImportService(
	cfg *config.Config,
	log *logger.Logger,
	m *metrics.ImportMetrics,
	members repository.MemberRepository,
	departments repository.DepartmentRepository,
	organizations repository.OrganizationRepository,
	logs repository.ImportLogRepository,
) *ingestion.Service {
	return ingestion.NewService(members, departments, organizations, logs,
		ingestion.WithMetrics(m),
		ingestion.WithLogger(log.WithField("component", "ingestion")),
		ingestion.WithMatcherOptions(cfg.Import.MatcherOptions()...),
		ingestion.WithPreviewRows(cfg.Import.PreviewRows),
		ingestion.WithMaxErrors(cfg.Import.MaxErrors),
		ingestion.WithMinNIKLength(cfg.Import.MinNIKLength),
	)
}

func newExportService(
	cfg *config.Config,
	log *logger.Logger,
	m *metrics.ImportMetrics,
	members repository.MemberRepository,
) *export.Service {
	return export.NewService(members,
		export.WithPageSize(cfg.Export.PageSize),
		export.WithMaxPageSize(cfg.Export.MaxPageSize),
		export.WithMetrics(m),
		export.WithLogger(log.WithField("component", "export")),
	)
}
