package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/littlelifetrip/ai-recommender/internal/db"
)

var (
	runsUser        string
	runsTrip        string
	runsLimit       int
	runsJSON        bool
	runsDatabaseURL string
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List audited generation runs for a user or a trip",
	Long: `List generation runs, newest first.

Exactly one of --user or --trip must be given.`,
	RunE: runListRuns,
}

func init() {
	runsCmd.Flags().StringVar(&runsUser, "user", "", "User ID (UUID)")
	runsCmd.Flags().StringVar(&runsTrip, "trip", "", "Trip ID (UUID)")
	runsCmd.Flags().IntVar(&runsLimit, "limit", db.DefaultListLimit, "Maximum number of runs to list")
	runsCmd.Flags().BoolVar(&runsJSON, "json", false, "Print runs as JSON")
	runsCmd.Flags().StringVar(&runsDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
	runsCmd.MarkFlagsMutuallyExclusive("user", "trip")
	runsCmd.MarkFlagsOneRequired("user", "trip")
	rootCmd.AddCommand(runsCmd)
}

func runListRuns(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	database, err := connect(ctx, runsDatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()

	var runs []db.AIRun
	switch {
	case runsUser != "":
		id, err := uuid.Parse(runsUser)
		if err != nil {
			return fmt.Errorf("invalid --user: %w", err)
		}
		runs, err = database.ListRunsByUser(ctx, id, runsLimit)
		if err != nil {
			return err
		}
	default:
		id, err := uuid.Parse(runsTrip)
		if err != nil {
			return fmt.Errorf("invalid --trip: %w", err)
		}
		runs, err = database.ListRunsByTrip(ctx, id, runsLimit)
		if err != nil {
			return err
		}
	}

	if runsJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}
	return printRuns(cmd.OutOrStdout(), runs)
}

func printRuns(out io.Writer, runs []db.AIRun) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tPROVIDER\tSTATUS\tTOKENS\tPROMPT\tERROR")
	for _, r := range runs {
		tokens := "-"
		if r.TokensUsed != nil {
			tokens = fmt.Sprint(*r.TokensUsed)
		}
		errMsg := ""
		if r.ErrorMessage != nil {
			errMsg = truncate(*r.ErrorMessage, 60)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.CreatedAt.Format(time.RFC3339), r.Provider, r.Status, tokens, truncate(r.Prompt, 40), errMsg)
	}
	return tw.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
