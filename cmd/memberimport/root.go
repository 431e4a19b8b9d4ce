package main

import (
	"fmt"
	"strings"

	"github.com/rpattn/memberimport/internal/config"
	"github.com/rpattn/memberimport/internal/ingestion"
	"github.com/rpattn/memberimport/internal/logger"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type globalOptions struct {
	catalog     string
	sheet       string
	headerRow   int
	headerRows  int
	org         string
	sqlitePath  string
	databaseURL string
	logLevel    string
	quiet       bool
	jsonOutput  bool
	stoplist    []string

	log    *logger.Logger
	limits config.ImportConfig
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:          "memberimport",
		Short:        "Map, validate and import member spreadsheets",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.quiet {
				opts.log = logger.Discard()
			} else {
				if _, err := logrus.ParseLevel(opts.logLevel); err != nil {
					return fmt.Errorf("invalid --log-level: %w", err)
				}
				opts.log = logger.NewLogger(&config.Config{
					Logging: config.LoggingConfig{Level: opts.logLevel, Format: "text"},
				})
				opts.log.SetOutput(cmd.ErrOrStderr())
			}

			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			opts.limits = cfg.Import
			if cmd.Flags().Changed("stoplist") {
				opts.limits.Stoplist = opts.stoplist
			}
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.catalog, "catalog", "simple", "Field catalog: simple or biodata")
	flags.StringVar(&opts.sheet, "sheet", "", "Sheet name (default: first sheet)")
	flags.IntVar(&opts.headerRow, "header-row", 0, "1-based header row (default: detect)")
	flags.IntVar(&opts.headerRows, "header-rows", 0, "Number of header rows, 1 or 2 (default: detect)")
	flags.StringVar(&opts.org, "org", "", "Organization UUID")
	flags.StringVar(&opts.sqlitePath, "sqlite", "memberimport.db", "SQLite database file used when --database-url is not set")
	flags.StringVar(&opts.databaseURL, "database-url", "", "Postgres connection URL")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "Log level")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "Disable logging")
	flags.BoolVar(&opts.jsonOutput, "json", false, "Print results as JSON")
	flags.StringSliceVar(&opts.stoplist, "stoplist", nil, "Title words that never match a header (default: import.stoplist config)")

	cmd.AddCommand(
		newMapCmd(opts),
		newTestCmd(opts),
		newImportCmd(opts),
		newExportCmd(opts),
	)
	return cmd
}

func (o *globalOptions) organizationID() (uuid.UUID, error) {
	raw := strings.TrimSpace(o.org)
	if raw == "" {
		return uuid.Nil, fmt.Errorf("--org is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid --org: %w", err)
	}
	return id, nil
}

// serviceOptions applies the import config to an ingestion service.
func (o *globalOptions) serviceOptions(log logrus.FieldLogger) []ingestion.Option {
	return []ingestion.Option{
		ingestion.WithLogger(log),
		ingestion.WithMatcherOptions(o.limits.MatcherOptions()...),
		ingestion.WithMaxErrors(o.limits.MaxErrors),
		ingestion.WithMinNIKLength(o.limits.MinNIKLength),
	}
}
