package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rpattn/memberimport/internal/ingestion"
	"github.com/rpattn/memberimport/pkg/mapping"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type mapOverrides []string

// apply sets field=header pairs on m; an empty header unmaps the field.
func (o mapOverrides) apply(catalog *mapping.Catalog, headers []string, m mapping.Mapping) error {
	known := make(map[string]bool, len(headers))
	for _, h := range headers {
		if h != "" {
			known[h] = true
		}
	}
	for _, raw := range o {
		field, header, ok := strings.Cut(raw, "=")
		if !ok {
			return fmt.Errorf("invalid --map %q, expected field=header", raw)
		}
		field = strings.TrimSpace(field)
		if _, ok := catalog.Field(field); !ok {
			return fmt.Errorf("unknown field %q in catalog %s", field, catalog.Name())
		}
		if header == "" {
			m.Unassign(field)
			continue
		}
		if !known[header] {
			return fmt.Errorf("header %q not found in sheet", header)
		}
		m.Assign(field, header)
	}
	return nil
}

func preview(ctx context.Context, opts *globalOptions, service *ingestion.Service, path string, overrides mapOverrides) (ingestion.PreviewResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return ingestion.PreviewResult{}, err
	}
	defer f.Close()

	result, err := service.Preview(ctx, ingestion.PreviewRequest{
		Catalog:        opts.catalog,
		FileName:       filepath.Base(path),
		SheetName:      opts.sheet,
		HeaderRow:      opts.headerRow,
		HeaderRowCount: opts.headerRows,
		Data:           f,
	})
	if err != nil {
		return ingestion.PreviewResult{}, err
	}
	if len(overrides) > 0 {
		catalog, _ := mapping.LookupCatalog(result.Catalog)
		if err := overrides.apply(catalog, result.Sheet.Headers, result.Mapping); err != nil {
			return ingestion.PreviewResult{}, err
		}
		result.Fields = result.Mapping.Describe(catalog)
		result.Missing = result.Missing[:0]
		for _, field := range result.Mapping.Missing(catalog) {
			result.Missing = append(result.Missing, field.Label)
		}
	}
	return result, nil
}

func newMapCmd(opts *globalOptions) *cobra.Command {
	var overrides []string
	cmd := &cobra.Command{
		Use:   "map FILE",
		Short: "Print the automatic column mapping of a spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			service := ingestion.NewService(nil, nil, nil, nil, opts.serviceOptions(opts.log)...)
			result, err := preview(cmd.Context(), opts, service, args[0], overrides)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), result)
			}
			return printMapping(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringArrayVar(&overrides, "map", nil, "Override a mapping as field=header (repeatable, empty header unmaps)")
	return cmd
}

func newTestCmd(opts *globalOptions) *cobra.Command {
	var overrides []string
	cmd := &cobra.Command{
		Use:   "test FILE",
		Short: "Validate a spreadsheet without writing anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			service := ingestion.NewService(nil, nil, nil, nil, opts.serviceOptions(opts.log)...)

			req, err := buildRequest(ctx, opts, service, args[0], overrides)
			if err != nil {
				return err
			}
			if opts.org != "" {
				if req.OrganizationID, err = opts.organizationID(); err != nil {
					return err
				}
				b, err := openBackend(ctx, opts)
				if err != nil {
					return err
				}
				defer b.close()
				service = ingestion.NewService(b.members, b.departments, b.organizations, b.logs, opts.serviceOptions(opts.log)...)
			}

			summary, err := service.Test(ctx, req)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), summary)
			}
			return printTestSummary(cmd.OutOrStdout(), summary)
		},
	}
	cmd.Flags().StringArrayVar(&overrides, "map", nil, "Override a mapping as field=header (repeatable, empty header unmaps)")
	return cmd
}

func newImportCmd(opts *globalOptions) *cobra.Command {
	var (
		overrides    []string
		trackHistory bool
		subfields    bool
		createOrg    string
		group        string
	)
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Validate a spreadsheet and persist the accepted rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			orgID, err := opts.organizationID()
			if err != nil {
				return err
			}
			b, err := openBackend(ctx, opts)
			if err != nil {
				return err
			}
			defer b.close()

			log := opts.log.WithOrganization(orgID.String())
			if err := b.ensureOrganization(ctx, orgID, createOrg, log); err != nil {
				return err
			}

			service := ingestion.NewService(b.members, b.departments, b.organizations, b.logs, opts.serviceOptions(log)...)
			req, err := buildRequest(ctx, opts, service, args[0], overrides)
			if err != nil {
				return err
			}
			req.OrganizationID = orgID
			req.TrackHistory = trackHistory
			req.AllowMatchingWithSubfields = subfields
			if group != "" {
				if req.GroupID, err = uuid.Parse(group); err != nil {
					return fmt.Errorf("invalid --group: %w", err)
				}
			}

			summary, err := service.Import(ctx, req)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), summary)
			}
			return printImportSummary(cmd.OutOrStdout(), summary)
		},
	}
	cmd.Flags().StringArrayVar(&overrides, "map", nil, "Override a mapping as field=header (repeatable, empty header unmaps)")
	cmd.Flags().BoolVar(&trackHistory, "track-history", false, "Record a history entry for every persisted row")
	cmd.Flags().BoolVar(&subfields, "match-subfields", false, "Also match departments on their description")
	cmd.Flags().StringVar(&group, "group", "", "Department UUID assigned to every row instead of the department column")
	cmd.Flags().StringVar(&createOrg, "create-org", "", "Create the organization with this name when it does not exist")
	return cmd
}

func buildRequest(ctx context.Context, opts *globalOptions, service *ingestion.Service, path string, overrides mapOverrides) (ingestion.Request, error) {
	result, err := preview(ctx, opts, service, path, overrides)
	if err != nil {
		return ingestion.Request{}, err
	}
	opts.log.WithImport(result.Sheet.FileName, result.Catalog).
		WithField("rows", len(result.Sheet.Rows)).
		Debug("spreadsheet parsed")
	return ingestion.RequestFromSheet(uuid.Nil, result.Catalog, result.Sheet, result.Mapping), nil
}
