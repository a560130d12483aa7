package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/richard-uk1/plannr/internal/config"
	"github.com/richard-uk1/plannr/internal/ics"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch and parse every configured source",
	RunE:  runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}

// newRefresher builds a refresher for the configured sources.
func newRefresher(ctx context.Context, cfg *config.Config) (*ics.Refresher, error) {
	sources, err := ics.SourcesFromConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	opts, err := ics.LoadOptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return ics.NewRefresher(ics.NewFetcher(cfg.CacheDir), sources, opts), nil
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	r, err := newRefresher(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	refreshErr := r.Refresh(cmd.Context())

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tCALENDARS\tEVENTS\tCACHED\tERROR")
	for _, st := range r.Snapshot().Sources {
		calendars, events := 0, 0
		if st.Document != nil {
			calendars, events = len(st.Document.Calendars), len(st.Document.Events)
		}
		errText := ""
		if st.Err != nil {
			errText = st.Err.Error()
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%t\t%s\n", st.Source.ID, calendars, events, st.FromCache, errText)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if refreshErr != nil {
		return fmt.Errorf("one or more sources failed")
	}
	return nil
}
