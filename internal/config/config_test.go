package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rpattn/memberimport/internal/db"
	"github.com/rpattn/memberimport/pkg/mapping"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, []string(mapping.DefaultStoplist), cfg.Import.Stoplist)
	assert.Equal(t, mapping.MaxPatternHeaderLength, cfg.Import.MaxPatternHeaderLength)
	assert.Equal(t, 10, cfg.Import.MinNIKLength)
	assert.Equal(t, 50, cfg.Export.PageSize)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoadReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	yaml := `server:
  port: "9090"
redis:
  addr: localhost:6379
import:
  stoplist: [laporan, rekap]
  max_pattern_header_length: 40
  min_nik_length: 16
logging:
  level: debug
  format: text
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, []string{"laporan", "rekap"}, cfg.Import.Stoplist)
	assert.Equal(t, 40, cfg.Import.MaxPatternHeaderLength)
	assert.Equal(t, 16, cfg.Import.MinNIKLength)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Len(t, cfg.Import.MatcherOptions(), 2)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("MEMBERIMPORT_DATABASE_HOST", "db.internal")
	t.Setenv("MEMBERIMPORT_EXPORT_PAGE_SIZE", "25")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 25, cfg.Export.PageSize)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("MEMBERIMPORT_LOGGING_FORMAT", "xml")

	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Format")
}

func validConfig() Config {
	return Config{
		Server:   ServerConfig{Port: "8080"},
		Database: db.DefaultConfig(),
		Redis:    RedisConfig{SessionTTL: 60},
		Logging:  LoggingConfig{Level: "info", Format: "json"},
		Import:   ImportConfig{MaxPatternHeaderLength: 50, PreviewRows: 20, MaxUploadMB: 32},
		Export:   ExportConfig{PageSize: 50, MaxPageSize: 1000},
		Metrics:  MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

func TestValidatePageSizeBounds(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("max page size must not be below the default page size", prop.ForAll(
		func(pageSize, maxPageSize int) bool {
			cfg := validConfig()
			cfg.Export = ExportConfig{PageSize: pageSize, MaxPageSize: maxPageSize}
			err := Validate(&cfg)
			return (err == nil) == (maxPageSize >= pageSize)
		},
		gen.IntRange(1, 500),
		gen.IntRange(1, 500),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestValidateMetricsPath(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, Validate(&cfg))

	cfg.Metrics.Path = ""
	assert.Error(t, Validate(&cfg))

	cfg.Metrics.Enabled = false
	assert.NoError(t, Validate(&cfg))
}
