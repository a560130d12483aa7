package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/richard-uk1/plannr/internal/ics"
	appLog "github.com/richard-uk1/plannr/internal/log"
)

var (
	occDays     int
	occBackfill int
	occJSON     bool
)

var occurrencesCmd = &cobra.Command{
	Use:     "occurrences",
	Aliases: []string{"agenda"},
	Short:   "List expanded event occurrences around today",
	RunE:    runOccurrences,
}

func init() {
	occurrencesCmd.Flags().IntVar(&occDays, "days", 0, "Days ahead to include (default horizon_days)")
	occurrencesCmd.Flags().IntVar(&occBackfill, "backfill", -1, "Days back to include (default backfill_days)")
	occurrencesCmd.Flags().BoolVar(&occJSON, "json", false, "Print occurrences as JSON")
	rootCmd.AddCommand(occurrencesCmd)
}

func runOccurrences(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	r, err := newRefresher(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	if err := r.Refresh(cmd.Context()); err != nil {
		appLog.Warn("some sources failed; listing the rest", "error", err.Error())
	}

	days, backfill := cfg.HorizonDays, cfg.BackfillDays
	if occDays > 0 {
		days = occDays
	}
	if occBackfill >= 0 {
		backfill = occBackfill
	}
	now := time.Now().In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	res, err := r.Occurrences(ics.ExpandConfig{
		DisplayLocation:        loc,
		RangeStart:             today.AddDate(0, 0, -backfill),
		RangeEnd:               today.AddDate(0, 0, days),
		WeekStart:              cfg.WeekStartDay(),
		MaxOccurrencesPerEvent: cfg.MaxOccurrences,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if occJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res.Occurrences)
	}
	for _, o := range res.Occurrences {
		when := o.Start.Format("Mon 2006-01-02 15:04") + " - " + o.End.Format("15:04")
		if o.AllDay {
			when = o.Start.Format("Mon 2006-01-02") + " all day"
		}
		fmt.Fprintf(out, "%-30s %s [%s]\n", when, o.Summary, o.SourceID)
	}
	for _, uid := range res.TruncatedEvents {
		fmt.Fprintf(out, "(%s truncated at %d occurrences)\n", uid, cfg.MaxOccurrences)
	}
	return nil
}
