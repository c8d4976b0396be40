package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"finform/internal/core"
)

type journalReader interface {
	CountByOutcome(ctx context.Context) (map[core.Outcome]int64, error)
	ListRecent(ctx context.Context, limit int) ([]core.AnalysisRecord, error)
}

// writeReport prints the outcome totals and the newest records.
func writeReport(ctx context.Context, w io.Writer, repo journalReader, limit int) error {
	counts, err := repo.CountByOutcome(ctx)
	if err != nil {
		return err
	}
	outcomes := make([]string, 0, len(counts))
	for o := range counts {
		outcomes = append(outcomes, string(o))
	}
	sort.Strings(outcomes)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "OUTCOME\tCOUNT")
	for _, o := range outcomes {
		fmt.Fprintf(tw, "%s\t%d\n", o, counts[core.Outcome(o)])
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	records, err := repo.ListRecent(ctx, limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	fmt.Fprintln(w)
	fmt.Fprintln(tw, "RECORDED\tOUTCOME\tRULE\tEXPENSES\tYEARLY\tGOAL\tLATENCY")
	for _, rec := range records {
		goal := "-"
		if rec.GoalAlignment != nil {
			goal = fmt.Sprint(*rec.GoalAlignment)
		}
		rule := string(rec.Rule)
		if rule == "" {
			rule = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%dms\n",
			rec.RecordedAt.UTC().Format(time.RFC3339), rec.Outcome, rule,
			rec.ExpenseCount, rec.YearlyExpenses.StringFixed(2), goal, rec.LatencyMs)
	}
	return tw.Flush()
}
