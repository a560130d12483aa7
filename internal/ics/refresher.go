package ics

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/richard-uk1/plannr/internal/config"
	"github.com/richard-uk1/plannr/internal/icalendar"
	appLog "github.com/richard-uk1/plannr/internal/log"
)

// SourceState is the latest known state of one source. Document keeps the
// last successful load even after a later refresh failed.
type SourceState struct {
	Source    Source
	Document  *Document
	FromCache bool
	LoadedAt  time.Time
	Err       error
}

// Snapshot is a consistent view of all sources after a refresh.
type Snapshot struct {
	UpdatedAt time.Time
	Sources   []SourceState
}

// Events flattens the events of every loaded source.
func (s Snapshot) Events() []ParsedEvent {
	var out []ParsedEvent
	for _, st := range s.Sources {
		if st.Document != nil {
			out = append(out, st.Document.Events...)
		}
	}
	return out
}

// Refresher fetches and loads all sources and holds the latest snapshot.
// Refresh may be called concurrently, e.g. from cron and the file watcher;
// refreshes run one at a time.
type Refresher struct {
	fetcher *Fetcher
	sources []Source
	opts    LoadOptions

	refreshMu sync.Mutex

	mu   sync.RWMutex
	snap Snapshot
}

// NewRefresher returns a Refresher with an empty snapshot.
func NewRefresher(fetcher *Fetcher, sources []Source, opts LoadOptions) *Refresher {
	states := make([]SourceState, len(sources))
	for i, src := range sources {
		states[i] = SourceState{Source: src}
	}
	return &Refresher{
		fetcher: fetcher,
		sources: sources,
		opts:    opts,
		snap:    Snapshot{Sources: states},
	}
}

// Sources returns the configured sources.
func (r *Refresher) Sources() []Source { return r.sources }

// Snapshot returns the current snapshot. The returned value must not be
// modified.
func (r *Refresher) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := r.snap
	out.Sources = append([]SourceState(nil), r.snap.Sources...)
	return out
}

// Refresh fetches and loads every source. Per-source failures are recorded
// in the snapshot and returned joined.
func (r *Refresher) Refresh(ctx context.Context) error {
	return r.refresh(ctx, r.sources)
}

// RefreshPath refreshes the local sources read from path.
func (r *Refresher) RefreshPath(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	var matched []Source
	for _, src := range r.sources {
		if src.Path == "" {
			continue
		}
		if p, err := filepath.Abs(src.Path); err == nil && p == abs {
			matched = append(matched, src)
		}
	}
	if len(matched) == 0 {
		return fmt.Errorf("no source reads %s", path)
	}
	return r.refresh(ctx, matched)
}

func (r *Refresher) refresh(ctx context.Context, sources []Source) error {
	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()

	start := time.Now()
	results, fetchErrs := r.fetcher.FetchAll(ctx, sources)

	// FetchAll keeps source order in both slices, so walk them together.
	updates := make(map[string]SourceState, len(sources))
	var errs []error
	ri, ei := 0, 0
	for _, src := range sources {
		st := SourceState{Source: src, LoadedAt: time.Now()}
		if ri < len(results) && results[ri].Source.ID == src.ID {
			res := results[ri]
			ri++
			doc, err := Load(src, res.Body, r.opts)
			if err != nil {
				st.Err = err
				errs = append(errs, err)
			} else {
				st.Document = &doc
				st.FromCache = res.FromCache
			}
		} else if ei < len(fetchErrs) {
			st.Err = fetchErrs[ei]
			ei++
			errs = append(errs, st.Err)
		}
		updates[src.ID] = st
	}

	r.mu.Lock()
	for i, old := range r.snap.Sources {
		st, ok := updates[old.Source.ID]
		if !ok {
			continue
		}
		if st.Document == nil {
			st.Document = old.Document
		}
		r.snap.Sources[i] = st
	}
	r.snap.UpdatedAt = time.Now()
	r.mu.Unlock()

	appLog.Info("refresh completed",
		"sources", len(sources),
		"failed", len(errs),
		"took", time.Since(start).Round(time.Millisecond).String(),
	)
	return errors.Join(errs...)
}

// Occurrences expands the snapshot's events within cfg's window.
func (r *Refresher) Occurrences(cfg ExpandConfig) (ExpandResult, error) {
	return ExpandOccurrences(r.Snapshot().Events(), cfg)
}

// LoadOptionsFromConfig derives parse and zone settings.
func LoadOptionsFromConfig(cfg *config.Config) (LoadOptions, error) {
	loc, err := cfg.Location()
	if err != nil {
		return LoadOptions{}, err
	}
	return LoadOptions{
		Parse:    icalendar.Options{Strict: cfg.Strict},
		Location: loc,
	}, nil
}

// SourcesFromConfig builds the configured sources, attaching an OAuth2
// client where one is configured. A source that was never authorized is
// kept without a client and logged.
func SourcesFromConfig(ctx context.Context, cfg *config.Config) ([]Source, error) {
	sources := make([]Source, 0, len(cfg.Sources))
	for _, sc := range cfg.Sources {
		src := SourceFromConfig(sc)
		if sc.OAuth != nil {
			client, err := OAuthClient(ctx, *sc.OAuth, FileTokenStore{Path: sc.OAuth.TokenPath})
			switch {
			case errors.Is(err, ErrNoToken):
				appLog.Warn("source needs login", "id", src.ID)
			case err != nil:
				return nil, fmt.Errorf("source %s: %w", src.ID, err)
			default:
				src.Client = client
			}
		}
		sources = append(sources, src)
	}
	return sources, nil
}
