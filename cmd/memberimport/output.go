package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rpattn/memberimport/internal/ingestion"
	"github.com/rpattn/memberimport/pkg/validator"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printMapping(w io.Writer, result ingestion.PreviewResult) error {
	sheet := result.Sheet
	fmt.Fprintf(w, "%s [%s] catalog=%s header row %d (%d row(s)), %d data rows\n",
		sheet.FileName, sheet.SheetName, result.Catalog, sheet.HeaderRowIndex, sheet.HeaderRowCount, len(sheet.Rows))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FIELD\tLABEL\tREQUIRED\tHEADER")
	for _, f := range result.Fields {
		header := "-"
		if f.Header != nil {
			header = *f.Header
		}
		required := ""
		if f.Required {
			required = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.Key, f.Label, required, header)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, c := range result.Conflicts {
		fmt.Fprintf(w, "conflict: %s also matched %q, kept by %s\n", c.Field, c.Header, c.Owner)
	}
	if len(result.Missing) > 0 {
		fmt.Fprintf(w, "missing required: %v\n", result.Missing)
	}
	return nil
}

func printRowErrors(w io.Writer, title string, errs []validator.RowError) error {
	if len(errs) == 0 {
		return nil
	}
	fmt.Fprintln(w, title)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROW\tSTAGE\tMESSAGE")
	for _, e := range errs {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", e.Row, e.Stage, e.Message)
	}
	return tw.Flush()
}

func printSummary(w io.Writer, s validator.Summary) error {
	if err := printRowErrors(w, "errors:", s.Errors); err != nil {
		return err
	}
	return printRowErrors(w, "warnings:", s.Warnings)
}

func printTestSummary(w io.Writer, s ingestion.TestSummary) error {
	fmt.Fprintf(w, "success=%d failed=%d would_create=%d would_update=%d\n", s.Success, s.Failed, s.WouldCreate, s.WouldUpdate)
	return printSummary(w, s.Summary)
}

func printImportSummary(w io.Writer, s ingestion.ImportSummary) error {
	fmt.Fprintf(w, "success=%d failed=%d created=%d updated=%d\n", s.Success, s.Failed, s.Created, s.Updated)
	return printSummary(w, s.Summary)
}
