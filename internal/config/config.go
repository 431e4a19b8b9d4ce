package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rpattn/memberimport/internal/db"
	"github.com/rpattn/memberimport/pkg/mapping"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. MEMBERIMPORT_DATABASE_HOST.
const EnvPrefix = "MEMBERIMPORT"

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig  `mapstructure:"server"`
	Database db.Config     `mapstructure:"database"`
	Redis    RedisConfig   `mapstructure:"redis"`
	Logging  LoggingConfig `mapstructure:"logging"`
	Import   ImportConfig  `mapstructure:"import"`
	Export   ExportConfig  `mapstructure:"export"`
	Metrics  MetricsConfig `mapstructure:"metrics"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           string   `mapstructure:"port" validate:"required,numeric"`
	ReadTimeout    int      `mapstructure:"read_timeout" validate:"min=0"`
	WriteTimeout   int      `mapstructure:"write_timeout" validate:"min=0"`
	IdleTimeout    int      `mapstructure:"idle_timeout" validate:"min=0"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Addr is the listen address for net/http.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// RedisConfig holds Redis configuration. An empty Addr keeps import
// sessions in process memory.
type RedisConfig struct {
	Addr       string `mapstructure:"addr"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db" validate:"min=0"`
	SessionTTL int    `mapstructure:"session_ttl" validate:"min=1"`
}

// Enabled reports whether sessions should go to Redis.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.Addr) != ""
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn warning error fatal panic"`
	Format string `mapstructure:"format" validate:"oneof=json text"`
}

// ImportConfig tunes the auto mapping and validation pipeline.
type ImportConfig struct {
	Stoplist               []string `mapstructure:"stoplist"`
	MaxPatternHeaderLength int      `mapstructure:"max_pattern_header_length" validate:"min=1"`
	MaxErrors              int      `mapstructure:"max_errors" validate:"min=0"`
	PreviewRows            int      `mapstructure:"preview_rows" validate:"min=1,max=500"`
	MaxUploadMB            int64    `mapstructure:"max_upload_mb" validate:"min=1"`
	MinNIKLength           int      `mapstructure:"min_nik_length" validate:"min=0"`
}

// MatcherOptions turns the import config into matcher options.
func (c ImportConfig) MatcherOptions() []mapping.Option {
	var opts []mapping.Option
	if c.Stoplist != nil {
		opts = append(opts, mapping.WithStoplist(c.Stoplist))
	}
	if c.MaxPatternHeaderLength > 0 {
		opts = append(opts, mapping.WithMaxPatternHeaderLength(c.MaxPatternHeaderLength))
	}
	return opts
}

// ExportConfig holds export paging defaults.
type ExportConfig struct {
	PageSize    int `mapstructure:"page_size" validate:"min=1"`
	MaxPageSize int `mapstructure:"max_page_size" validate:"gtefield=PageSize"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" validate:"required_if=Enabled true"`
}

func setDefaults(v *viper.Viper) {
	dbDefaults := db.DefaultConfig()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 120)
	v.SetDefault("server.idle_timeout", 120)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("database.host", dbDefaults.Host)
	v.SetDefault("database.port", dbDefaults.Port)
	v.SetDefault("database.user", dbDefaults.User)
	v.SetDefault("database.password", dbDefaults.Password)
	v.SetDefault("database.dbname", dbDefaults.DBName)
	v.SetDefault("database.sslmode", dbDefaults.SSLMode)
	v.SetDefault("database.max_conns", dbDefaults.MaxConns)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.session_ttl", 3600)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("import.stoplist", []string(mapping.DefaultStoplist))
	v.SetDefault("import.max_pattern_header_length", mapping.MaxPatternHeaderLength)
	v.SetDefault("import.max_errors", 1000)
	v.SetDefault("import.preview_rows", 20)
	v.SetDefault("import.max_upload_mb", 32)
	v.SetDefault("import.min_nik_length", 10)
	v.SetDefault("export.page_size", 50)
	v.SetDefault("export.max_page_size", 1000)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// LoadConfig loads configuration from defaults, an optional config.yaml,
// an optional .env file and MEMBERIMPORT_ prefixed environment variables.
func LoadConfig() (*Config, error) {
	return Load(".", "./config")
}

// Load is LoadConfig with explicit search paths for config.yaml.
func Load(paths ...string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct constraints on a loaded config.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("invalid config: %w", err)
		}
		msgs := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
		}
		return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
	}
	return nil
}
