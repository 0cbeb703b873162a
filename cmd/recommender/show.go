package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/littlelifetrip/ai-recommender/internal/observability"
	"github.com/littlelifetrip/ai-recommender/internal/schemas"
)

var (
	showDatabaseURL string
	showValidate    bool
)

var showCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print one audited run and its generated response",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().StringVar(&showDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
	showCmd.Flags().BoolVar(&showValidate, "validate", false, "Re-check the stored response against its output schema")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid run id: %w", err)
	}

	ctx := context.Background()
	database, err := connect(ctx, showDatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()

	run, err := database.GetRun(ctx, id)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run %s not found", id)
	}

	printer := observability.NewPrinter(cmd.OutOrStdout())
	printer.PrintRun(run)
	if err := printer.PrintResponse(run.Response); err != nil {
		return err
	}

	if showValidate {
		return validateResponse(cmd, run.Response)
	}
	return nil
}

// validateResponse reports whether a stored response still satisfies its schema.
func validateResponse(cmd *cobra.Command, raw []byte) error {
	out := cmd.OutOrStdout()
	if len(raw) == 0 {
		fmt.Fprintln(out, "no response stored")
		return nil
	}

	descriptor := schemas.ForResponse(raw)
	if descriptor == nil {
		return fmt.Errorf("response does not match a known output shape")
	}
	if err := descriptor.Validate(raw); err != nil {
		return fmt.Errorf("response fails %s schema: %w", descriptor.Name, err)
	}
	fmt.Fprintf(out, "response is a valid %s\n", descriptor.Name)
	return nil
}
