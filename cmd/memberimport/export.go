package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rpattn/memberimport/internal/domain"
	"github.com/rpattn/memberimport/internal/export"

	"github.com/spf13/cobra"
)

func newExportCmd(opts *globalOptions) *cobra.Command {
	var (
		fields     string
		format     string
		out        string
		search     string
		active     string
		noHeader   bool
		sortField  string
		descending bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export members as CSV or XLSX",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			orgID, err := opts.organizationID()
			if err != nil {
				return err
			}
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			b, err := openBackend(ctx, opts)
			if err != nil {
				return err
			}
			defer b.close()

			var w io.Writer = cmd.OutOrStdout()
			if out != "" && out != "-" {
				file, err := os.Create(out)
				if err != nil {
					return err
				}
				defer file.Close()
				w = file
			}

			direction := domain.SortDirectionAsc
			if descending {
				direction = domain.SortDirectionDesc
			}
			service := export.NewService(b.members, export.WithLogger(opts.log))
			result, err := service.Write(ctx, w, export.Request{
				OrganizationID: orgID,
				Filter: domain.MemberFilter{
					Search: search,
					Active: domain.ActiveFilter(active),
				},
				Sort:          domain.MemberSort{Field: domain.MemberSortField(sortField), Direction: direction},
				Fields:        strings.Split(fields, ","),
				IncludeHeader: !noHeader,
				Format:        f,
			})
			if err != nil {
				return err
			}
			if out != "" && out != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d members (%d bytes) to %s\n", result.Rows, result.Bytes, out)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&fields, "fields", "nik,nama,email,department,status", "Comma separated export fields")
	cmd.Flags().StringVar(&format, "format", "csv", "Output format: csv or xlsx")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default stdout)")
	cmd.Flags().StringVar(&search, "search", "", "Filter by name, NIK or email")
	cmd.Flags().StringVar(&active, "active", "all", "Status filter: all, active or inactive")
	cmd.Flags().BoolVar(&noHeader, "no-header", false, "Omit the header row")
	cmd.Flags().StringVar(&sortField, "sort", string(domain.MemberSortFieldFullName), "Sort field")
	cmd.Flags().BoolVar(&descending, "desc", false, "Sort descending")
	return cmd
}
