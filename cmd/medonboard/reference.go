// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pdiddy/medonboard/internal/browse"
)

var diseasesCmd = &cobra.Command{
	Use:   "diseases [name]",
	Short: "Show a disease with its related case studies",
	Long: `Without a name, diseases lists the diseases of the knowledge base.
With a name, it prints the symptoms and treatments and every case study
whose text mentions the disease.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDiseases,
}

func runDiseases(cmd *cobra.Command, args []string) error {
	svc, closeFn, err := browseService()
	if err != nil {
		return err
	}
	defer closeFn()

	out := cmd.OutOrStdout()
	jsonOutput, _ := cmd.Flags().GetBool("json")

	if len(args) == 0 {
		view, err := svc.Disease(cmd.Context(), "")
		if err != nil {
			return err
		}
		if !view.Available {
			fmt.Fprintln(out, "Disease knowledgebase not available.")
			return nil
		}
		return printNames(out, view.Names, jsonOutput)
	}

	view, err := svc.Disease(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(out, view)
	}
	if !view.Available {
		fmt.Fprintln(out, "Disease knowledgebase not available.")
		return nil
	}
	fmt.Fprintf(out, "%s\n\nSymptoms:   %s\nTreatments: %s\n", view.Fact.Name, view.Fact.Symptoms, view.Fact.Treatments)
	printRelated(out, "Related Case Studies", view.CasesAvailable, view.Related)
	return nil
}

var medicinesCmd = &cobra.Command{
	Use:   "medicines [name]",
	Short: "Show a medicine with the case studies using it",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runMedicines,
}

func runMedicines(cmd *cobra.Command, args []string) error {
	svc, closeFn, err := browseService()
	if err != nil {
		return err
	}
	defer closeFn()

	out := cmd.OutOrStdout()
	jsonOutput, _ := cmd.Flags().GetBool("json")

	if len(args) == 0 {
		view, err := svc.Medicine(cmd.Context(), "")
		if err != nil {
			return err
		}
		if !view.Available {
			fmt.Fprintln(out, "Medicine knowledgebase not found.")
			return nil
		}
		return printNames(out, view.Names, jsonOutput)
	}

	view, err := svc.Medicine(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(out, view)
	}
	if !view.Available {
		fmt.Fprintln(out, "Medicine knowledgebase not found.")
		return nil
	}
	fmt.Fprintf(out, "%s\n\nDescription: %s\nIndication:  %s\nDosage:      %s\n",
		view.Fact.Name, view.Fact.Description, view.Fact.Indication, view.Fact.Dosage)
	printRelated(out, "Case Studies Using This Medicine", view.CasesAvailable, view.Related)
	return nil
}

func browseService() (*browse.Service, func(), error) {
	lib, err := openLibrary()
	if err != nil {
		return nil, nil, err
	}
	store, err := openStore()
	if err != nil {
		return nil, nil, err
	}
	return browse.NewService(lib, store, logger), func() { store.Close() }, nil
}

func printNames(w io.Writer, names []string, jsonOutput bool) error {
	if jsonOutput {
		return printJSON(w, names)
	}
	for _, n := range names {
		fmt.Fprintln(w, n)
	}
	return nil
}

func printRelated(w io.Writer, title string, available bool, related []browse.RelatedCase) {
	if !available {
		return
	}
	fmt.Fprintf(w, "\n%s\n", title)
	if len(related) == 0 {
		fmt.Fprintln(w, "No related case studies.")
		return
	}
	for _, r := range related {
		fmt.Fprintf(w, "- %s\n", r.Excerpt)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	diseasesCmd.Flags().Bool("json", false, "output as JSON")
	medicinesCmd.Flags().Bool("json", false, "output as JSON")

	rootCmd.AddCommand(diseasesCmd)
	rootCmd.AddCommand(medicinesCmd)
}
