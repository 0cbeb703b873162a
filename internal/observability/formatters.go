// Package observability provides formatted output of audited runs for the CLI.
package observability

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/littlelifetrip/ai-recommender/internal/db"
	"github.com/littlelifetrip/ai-recommender/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsPerDay is the number of activities listed per itinerary day
	maxItemsPerDay = 6
)

// Printer handles formatted output for the show command
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %s │\n", pad(title, boxWidth-4))
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %s │\n", pad(clip(line, boxWidth-4), boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintRun outputs the audit record of a generation run.
func (p *Printer) PrintRun(run *db.AIRun) {
	if run == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("ID:       %s\n", run.ID))
	sb.WriteString(fmt.Sprintf("User:     %s\n", run.UserID))
	if run.TripID != nil {
		sb.WriteString(fmt.Sprintf("Trip:     %s\n", *run.TripID))
	}
	sb.WriteString(fmt.Sprintf("Provider: %s\n", run.Provider))
	sb.WriteString(fmt.Sprintf("Status:   %s\n", run.Status))
	if run.TokensUsed != nil {
		sb.WriteString(fmt.Sprintf("Tokens:   %d\n", *run.TokensUsed))
	}
	sb.WriteString(fmt.Sprintf("Created:  %s\n", run.CreatedAt.Format(time.RFC3339)))
	if run.UpdatedAt != nil {
		sb.WriteString(fmt.Sprintf("Updated:  %s\n", run.UpdatedAt.Format(time.RFC3339)))
	}
	sb.WriteString(fmt.Sprintf("\nPrompt: %s", run.Prompt))
	if run.ErrorMessage != nil {
		sb.WriteString(fmt.Sprintf("\n\nError:\n%s", *run.ErrorMessage))
	}

	p.printBox("GENERATION RUN", sb.String())
}

// PrintTripPlan outputs a day-by-day summary of an itinerary.
func (p *Printer) PrintTripPlan(plan *types.TripPlan) {
	if plan == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s\n", plan.Title))
	sb.WriteString(fmt.Sprintf("Destination: %s, %d days\n", plan.Destination, plan.DurationDays))
	sb.WriteString(fmt.Sprintf("Budget:      %.0f %s\n", plan.TotalBudgetEstimate, plan.Currency))

	for _, day := range plan.Days() {
		sb.WriteString(fmt.Sprintf("\nDay %d:\n", day))
		shown, total := 0, 0
		for _, item := range plan.Itinerary {
			if item.DayIndex != day {
				continue
			}
			total++
			if shown == maxItemsPerDay {
				continue
			}
			shown++
			line := "  • "
			if item.StartTime != nil {
				line += *item.StartTime + " "
			}
			sb.WriteString(line + item.Title + "\n")
		}
		if total > shown {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", total-shown))
		}
	}

	if len(plan.Tags) > 0 {
		sb.WriteString(fmt.Sprintf("\nTags: %s\n", strings.Join(plan.Tags, ", ")))
	}

	p.printBox("TRIP PLAN", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintExplanation outputs an explanation result.
func (p *Printer) PrintExplanation(result *types.ExplainResult) {
	if result == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(result.Explanation)
	if len(result.Highlights) > 0 {
		sb.WriteString("\n\nHighlights:")
		for _, h := range result.Highlights {
			sb.WriteString("\n  • " + h)
		}
	}

	p.printBox("EXPLANATION", sb.String())
}

// PrintImprovement outputs the change list of an improvement followed by the revised plan.
func (p *Printer) PrintImprovement(result *types.ImproveResult) {
	if result == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(result.ImprovementSummary)
	if len(result.ChangesMade) > 0 {
		sb.WriteString("\n\nChanges:")
		for _, c := range result.ChangesMade {
			sb.WriteString("\n  • " + c)
		}
	}

	p.printBox("IMPROVEMENT", sb.String())
	p.PrintTripPlan(&result.ImprovedPlan)
}

// PrintResponse outputs a stored run response, choosing the layout from its shape.
// Responses of an unknown shape are printed as indented JSON.
func (p *Printer) PrintResponse(raw json.RawMessage) error {
	if len(raw) == 0 {
		return nil
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	switch {
	case keys["improved_plan"] != nil:
		var result types.ImproveResult
		if err := json.Unmarshal(raw, &result); err != nil {
			return fmt.Errorf("failed to decode improvement: %w", err)
		}
		p.PrintImprovement(&result)
	case keys["explanation"] != nil:
		var result types.ExplainResult
		if err := json.Unmarshal(raw, &result); err != nil {
			return fmt.Errorf("failed to decode explanation: %w", err)
		}
		p.PrintExplanation(&result)
	case keys["itinerary"] != nil:
		var plan types.TripPlan
		if err := json.Unmarshal(raw, &plan); err != nil {
			return fmt.Errorf("failed to decode trip plan: %w", err)
		}
		p.PrintTripPlan(&plan)
	default:
		indented, err := json.MarshalIndent(keys, "", "  ")
		if err != nil {
			return err
		}
		p.printBox("RESPONSE", string(indented))
	}
	return nil
}

// clip cuts s to n runes, marking the cut with "...".
func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-3]) + "..."
}

// pad right-pads s with spaces to n runes.
func pad(s string, n int) string {
	if c := utf8.RuneCountInString(s); c < n {
		return s + strings.Repeat(" ", n-c)
	}
	return s
}
