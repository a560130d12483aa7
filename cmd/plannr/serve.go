package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/richard-uk1/plannr/internal/ics"
	appLog "github.com/richard-uk1/plannr/internal/log"
	"github.com/richard-uk1/plannr/internal/web"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API, refreshing sources on a schedule",
	Long: `Serve the HTTP API. Sources are refreshed on the configured cron
schedule, and local sources are also reloaded whenever their file changes.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "HTTP listen address (overrides config if set)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveListen != "" {
		cfg.Listen = serveListen
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	appLog.Info("effective config",
		"listen", cfg.Listen,
		"timezone", cfg.Timezone,
		"refresh", cfg.RefreshCron,
		"horizon_days", cfg.HorizonDays,
		"strict", cfg.Strict,
		"source_count", len(cfg.Sources),
	)

	refresher, err := newRefresher(ctx, cfg)
	if err != nil {
		return err
	}
	if err := refresher.Refresh(ctx); err != nil {
		appLog.Error("initial refresh incomplete", err)
	}

	scheduler := cron.New(cron.WithLocation(loc))
	if _, err := scheduler.AddFunc(cfg.RefreshCron, func() {
		if err := refresher.Refresh(ctx); err != nil {
			appLog.Error("scheduled refresh incomplete", err)
		}
	}); err != nil {
		return err
	}
	scheduler.Start()
	defer func() { <-scheduler.Stop().Done() }()

	watcher, err := ics.NewWatcher(func(path string) {
		if err := refresher.RefreshPath(ctx, path); err != nil {
			appLog.Error("reload after file change failed", err, "path", path)
		}
	})
	if err != nil {
		return err
	}
	defer watcher.Close()
	for _, src := range refresher.Sources() {
		if src.Path == "" {
			continue
		}
		if err := watcher.AddFile(src.Path); err != nil {
			appLog.Warn("cannot watch source file", "id", src.ID, "path", src.Path, "error", err.Error())
		}
	}

	server := &http.Server{
		Addr:              cfg.Listen,
		Handler:           web.NewServer(cfg, refresher).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
		appLog.Info("signal received, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-serveErr; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	appLog.Info("plannr exiting")
	return nil
}
