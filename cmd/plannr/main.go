package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/richard-uk1/plannr/internal/config"
	"github.com/richard-uk1/plannr/internal/icalendar"
	appLog "github.com/richard-uk1/plannr/internal/log"
)

var (
	cfgFile  string
	logLevel string
	lenient  bool
)

var rootCmd = &cobra.Command{
	Use:   "plannr",
	Short: "Parse, expand and serve iCalendar feeds",
	Long: `plannr reads RFC 5545 calendars from files and subscription URLs,
expands recurring events and serves the result over a small HTTP API.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if logLevel == "" {
			return nil
		}
		lvl, err := appLog.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		appLog.SetLevel(lvl)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "./plannr.yaml", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides the config")
	rootCmd.PersistentFlags().BoolVar(&lenient, "lenient", false, "Accept common deviations from RFC 5545")
}

// loadConfig loads, adjusts and validates the config file. The first run
// writes a default config.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", cfgFile, err)
	}
	if lenient {
		cfg.Strict = false
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", cfgFile, err)
	}
	lvl, _ := appLog.ParseLevel(cfg.LogLevel)
	appLog.SetLevel(lvl)
	return cfg, nil
}

// parseOptions are the parser options chosen on the command line.
func parseOptions() icalendar.Options {
	return icalendar.Options{Strict: !lenient}
}

func main() {
	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
