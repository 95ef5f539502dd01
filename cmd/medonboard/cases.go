// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/medonboard/internal/browse"
	"github.com/pdiddy/medonboard/internal/casestore"
	"github.com/pdiddy/medonboard/pkg/types"
)

var casesCmd = &cobra.Command{
	Use:   "cases",
	Short: "Inspect, export and import the case table",
}

// --- list subcommand ---

var casesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List case studies",
	Long: `List prints the Case Study records of the case table. Use --all to
include derived Disease, Symptom and Medicine records.`,
	RunE: runCasesList,
}

func runCasesList(cmd *cobra.Command, args []string) error {
	all, _ := cmd.Flags().GetBool("all")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	table, err := loadCases(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if table == nil {
		fmt.Fprintln(out, "No case studies available yet.")
		return nil
	}
	if !all {
		table = browse.CaseStudies(table)
	}

	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(table.Records)
	}
	return formatCases(out, table)
}

func formatCases(w io.Writer, table *types.Table) error {
	if table.Len() == 0 {
		fmt.Fprintln(w, "No case studies available yet.")
		return nil
	}

	fmt.Fprintf(w, "%-4s  %-10s  %-60s  %-10s  %s\n", "#", "Category", "Text", "Author", "Timestamp")
	fmt.Fprintln(w, strings.Repeat("-", 110))
	for i, r := range table.Records {
		text := strings.Join(strings.Fields(r.Text), " ")
		if len([]rune(text)) > 60 {
			text = browse.Excerpt(text, 57) + "..."
		}
		ts := ""
		if !r.Timestamp.IsZero() {
			ts = r.Timestamp.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%-4d  %-10s  %-60s  %-10s  %s\n", i+1, r.Category, text, r.Author, ts)
	}
	fmt.Fprintf(w, "\n%d records\n", table.Len())
	return nil
}

// --- export subcommand ---

var casesExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the case studies as CSV",
	Long: `Export writes the Case Study records, with every column, in the same
format as the case table. The default output file is case_studies.csv;
use --out - for standard output.`,
	RunE: runCasesExport,
}

func runCasesExport(cmd *cobra.Command, args []string) error {
	outPath, _ := cmd.Flags().GetString("out")

	table, err := loadCases(cmd.Context())
	if err != nil {
		return err
	}
	studies := browse.CaseStudies(table)
	if studies.Len() == 0 {
		return fmt.Errorf("no case studies available yet")
	}

	if outPath == "-" {
		return casestore.WriteCSV(cmd.OutOrStdout(), studies)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", outPath, err)
	}
	if err := casestore.WriteCSV(f, studies); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", outPath, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d case studies to %s\n", studies.Len(), outPath)
	return nil
}

// --- import subcommand ---

var casesImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Copy the CSV case table into the SQLite backend",
	Long: `Import appends every row of store.cases_path to the database at
store.sqlite_path in one transaction. Run it once when switching
store.backend from csv to sqlite.`,
	RunE: runCasesImport,
}

func runCasesImport(cmd *cobra.Command, args []string) error {
	src := casestore.NewCSVStore(appConfig.Store, logger)
	defer src.Close()

	dst, err := casestore.NewSQLiteStore(appConfig.Store, logger)
	if err != nil {
		return err
	}
	defer dst.Close()

	n, err := casestore.Import(cmd.Context(), src, dst)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d records from %s into %s\n", n, src.Path(), appConfig.Store.SQLitePath)
	return nil
}

// --- shared helpers ---

// loadCases returns the configured case table, or nil when none exists yet.
func loadCases(ctx context.Context) (*types.Table, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	store, err := openStore()
	if err != nil {
		return nil, err
	}
	defer store.Close()

	table, err := store.LoadTable(ctx)
	if errors.Is(err, types.ErrStoreUnavailable) {
		return nil, nil
	}
	return table, err
}

func init() {
	casesListCmd.Flags().Bool("all", false, "include derived entity records")
	casesListCmd.Flags().Bool("json", false, "output records as JSON")

	casesExportCmd.Flags().String("out", "case_studies.csv", "output file, or - for stdout")

	casesCmd.AddCommand(casesListCmd)
	casesCmd.AddCommand(casesExportCmd)
	casesCmd.AddCommand(casesImportCmd)

	rootCmd.AddCommand(casesCmd)
}
