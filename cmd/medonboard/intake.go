// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/medonboard/internal/intake"
	"github.com/pdiddy/medonboard/pkg/types"
)

var intakeCmd = &cobra.Command{
	Use:   "intake",
	Short: "Classify and tag a case note, then optionally save it",
	Long: `Intake runs one case note through the workflow: the note is classified
and tagged, the suggested category and entities are printed, flag overrides
are applied as the review, and with --save the note is appended to the case
table as one primary record plus one record per entity.

Without --save nothing is written.`,
	RunE: runIntake,
}

func runIntake(cmd *cobra.Command, args []string) error {
	notePath, _ := cmd.Flags().GetString("note-file")
	author, _ := cmd.Flags().GetString("author")
	save, _ := cmd.Flags().GetBool("save")

	if notePath == "" {
		return fmt.Errorf("--note-file is required")
	}
	if author == "" {
		return fmt.Errorf("--author is required")
	}

	var (
		data []byte
		err  error
	)
	if notePath == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(notePath)
	}
	if err != nil {
		return fmt.Errorf("reading note: %w", err)
	}

	lib, err := openLibrary()
	if err != nil {
		return err
	}
	classifier, extractor, err := openInference(lib)
	if err != nil {
		return err
	}
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	wf := intake.New(classifier, extractor, store, author,
		intake.WithLogger(logger.WithField("component", "intake")))
	wf.SetNote(string(data))

	analysis, err := wf.Analyze(cmd.Context())
	if types.IsInference(err) {
		return fmt.Errorf("analyzing note with the %q backend: %w", appConfig.Inference.Backend, err)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Predicted category: %s\n", analysis.Label)
	fmt.Fprintf(out, "DISEASE entities:   %s\n", analysis.Defaults.Diseases)
	fmt.Fprintf(out, "SYMPTOM entities:   %s\n", analysis.Defaults.Symptoms)
	fmt.Fprintf(out, "MEDICINE entities:  %s\n", analysis.Defaults.Medicines)

	review := reviewFromFlags(cmd, analysis.Defaults)
	if _, err := wf.Review(review); err != nil {
		return err
	}

	if !save {
		records := intake.BuildRecords(intake.Submission{Text: string(data), Review: review, Author: author})
		fmt.Fprintf(out, "\nWould save %d records (pass --save to append them).\n", len(records))
		return nil
	}

	res, err := wf.Save(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nSaved %d records:\n", len(res.Records))
	for _, r := range res.Records {
		fmt.Fprintf(out, "  %-10s  %s\n", r.Category, firstLine(r.Text))
	}
	return nil
}

// reviewFromFlags applies the review flags the user set on top of defaults.
func reviewFromFlags(cmd *cobra.Command, defaults intake.Review) intake.Review {
	review := defaults
	if cmd.Flags().Changed("category") {
		v, _ := cmd.Flags().GetString("category")
		review.Category = types.Category(v)
	}
	if cmd.Flags().Changed("diseases") {
		review.Diseases, _ = cmd.Flags().GetString("diseases")
	}
	if cmd.Flags().Changed("symptoms") {
		review.Symptoms, _ = cmd.Flags().GetString("symptoms")
	}
	if cmd.Flags().Changed("medicines") {
		review.Medicines, _ = cmd.Flags().GetString("medicines")
	}
	if cmd.Flags().Changed("feedback") {
		review.Feedback, _ = cmd.Flags().GetString("feedback")
	}
	return review
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i] + " ..."
		}
	}
	return s
}

func init() {
	intakeCmd.Flags().String("note-file", "", "file holding the case note, or - for stdin")
	intakeCmd.Flags().String("author", "", "username recorded on the saved records")
	intakeCmd.Flags().String("category", "", "final category: Case Study, Disease or Medicine")
	intakeCmd.Flags().String("diseases", "", "comma-separated disease entities (replaces the suggestion)")
	intakeCmd.Flags().String("symptoms", "", "comma-separated symptom entities (replaces the suggestion)")
	intakeCmd.Flags().String("medicines", "", "comma-separated medicine entities (replaces the suggestion)")
	intakeCmd.Flags().String("feedback", "", "free-text feedback on the suggestions")
	intakeCmd.Flags().Bool("save", false, "append the records to the case table")

	rootCmd.AddCommand(intakeCmd)
}
