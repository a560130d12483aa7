package web

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/richard-uk1/plannr/internal/config"
	"github.com/richard-uk1/plannr/internal/ics"
	appLog "github.com/richard-uk1/plannr/internal/log"
)

// Server provides the HTTP API over the refresher's latest snapshot.
type Server struct {
	cfg       *config.Config
	refresher *ics.Refresher
	loc       *time.Location
	mux       *http.ServeMux

	// now is replaced in tests.
	now func() time.Time

	// Expanded /api/events responses, valid until the snapshot changes.
	eventsMu    sync.Mutex
	eventsCache map[eventsKey]eventsResponse
	cacheStamp  time.Time
}

type eventsKey struct {
	days, backfill int
	day            string
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, refresher *ics.Refresher) *Server {
	s := &Server{
		cfg:         cfg,
		refresher:   refresher,
		loc:         resolveLocationOrLocal(cfg.Timezone),
		mux:         http.NewServeMux(),
		now:         time.Now,
		eventsCache: make(map[eventsKey]eventsResponse),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty credentials disable auth rather than locking everyone out.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="plannr", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/calendars", s.handleCalendars)
	s.mux.HandleFunc("/api/events", s.handleEvents)
	s.mux.HandleFunc("/api/export", s.handleExport)
	s.mux.HandleFunc("/api/refresh", s.handleRefresh)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

type calendarDTO struct {
	ProdID string `json:"prodid"`
	Method string `json:"method,omitempty"`
	Events int    `json:"events"`
}

type sourceDTO struct {
	ID        string        `json:"id"`
	Name      string        `json:"name,omitempty"`
	Kind      string        `json:"kind"`
	Calendars []calendarDTO `json:"calendars"`
	Events    int           `json:"events"`
	FromCache bool          `json:"from_cache"`
	LoadedAt  *time.Time    `json:"loaded_at,omitempty"`
	Error     string        `json:"error,omitempty"`
}

type calendarsResponse struct {
	UpdatedAt *time.Time  `json:"updated_at,omitempty"`
	Sources   []sourceDTO `json:"sources"`
}

// handleCalendars lists every source with the calendars of its last
// successful load and the error of its latest refresh.
func (s *Server) handleCalendars(w http.ResponseWriter, _ *http.Request) {
	snap := s.refresher.Snapshot()

	resp := calendarsResponse{Sources: make([]sourceDTO, 0, len(snap.Sources))}
	if !snap.UpdatedAt.IsZero() {
		resp.UpdatedAt = &snap.UpdatedAt
	}
	for _, st := range snap.Sources {
		dto := sourceDTO{
			ID:        st.Source.ID,
			Name:      st.Source.Name,
			Kind:      "url",
			Calendars: []calendarDTO{},
			FromCache: st.FromCache,
		}
		if st.Source.Path != "" {
			dto.Kind = "path"
		}
		if !st.LoadedAt.IsZero() {
			loaded := st.LoadedAt
			dto.LoadedAt = &loaded
		}
		if st.Err != nil {
			dto.Error = st.Err.Error()
		}
		if st.Document != nil {
			for _, cal := range st.Document.Calendars {
				dto.Calendars = append(dto.Calendars, calendarDTO{
					ProdID: cal.ProdID,
					Method: cal.Method,
					Events: len(cal.Events),
				})
			}
			dto.Events = len(st.Document.Events)
		}
		resp.Sources = append(resp.Sources, dto)
	}
	writeJSON(w, http.StatusOK, resp)
}

// eventsResponse is the JSON response shape for /api/events.
type eventsResponse struct {
	Occurrences     []occurrenceDTO `json:"occurrences"`
	TruncatedUIDs   []string        `json:"truncated_uids,omitempty"`
	RangeStart      time.Time       `json:"range_start"`
	RangeEnd        time.Time       `json:"range_end"`
	DisplayTimeZone string          `json:"display_timezone"`
	WeekStart       string          `json:"week_start"`
}

// occurrenceDTO is a JSON-friendly view of occurrences.
type occurrenceDTO struct {
	SourceID    string    `json:"source_id"`
	UID         string    `json:"uid"`
	InstanceKey string    `json:"instance_key"`
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	AllDay      bool      `json:"all_day"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
}

const (
	// maxWindowDays bounds both sides of an /api/events window.
	maxWindowDays = 366
	// maxCachedWindows bounds the events cache between refreshes.
	maxCachedWindows = 32
)

// handleEvents returns expanded occurrences within a window around today.
//
// GET /api/events?days=7&backfill=1
//   - days:     future days to include (default horizon_days, at most 366)
//   - backfill: past days to include (default backfill_days, at most 366)
//
// The window is aligned to midnight in the configured timezone, so
// responses for one day are cached until the next refresh.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	days := parseIntDefault(q.Get("days"), s.cfg.HorizonDays)
	if days <= 0 {
		days = s.cfg.HorizonDays
	}
	backfill := parseIntDefault(q.Get("backfill"), s.cfg.BackfillDays)
	if backfill < 0 {
		backfill = 0
	}
	days, backfill = min(days, maxWindowDays), min(backfill, maxWindowDays)

	now := s.now().In(s.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	key := eventsKey{days: days, backfill: backfill, day: today.Format(time.DateOnly)}

	stamp := s.refresher.Snapshot().UpdatedAt
	s.eventsMu.Lock()
	if !s.cacheStamp.Equal(stamp) {
		clear(s.eventsCache)
		s.cacheStamp = stamp
	}
	cached, ok := s.eventsCache[key]
	s.eventsMu.Unlock()
	if ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	rangeStart := today.AddDate(0, 0, -backfill)
	rangeEnd := today.AddDate(0, 0, days)

	appLog.Debug("api events request",
		"days", days,
		"backfill", backfill,
		"range_start", rangeStart.Format(time.RFC3339),
		"range_end", rangeEnd.Format(time.RFC3339),
	)

	result, err := s.refresher.Occurrences(ics.ExpandConfig{
		DisplayLocation:        s.loc,
		RangeStart:             rangeStart,
		RangeEnd:               rangeEnd,
		WeekStart:              s.cfg.WeekStartDay(),
		MaxOccurrencesPerEvent: s.cfg.MaxOccurrences,
	})
	if err != nil {
		appLog.Error("api events: expand failed", err)
		writeError(w, http.StatusInternalServerError, "failed to expand events")
		return
	}

	dtos := make([]occurrenceDTO, 0, len(result.Occurrences))
	for _, occ := range result.Occurrences {
		dtos = append(dtos, occurrenceDTO{
			SourceID:    occ.SourceID,
			UID:         occ.UID,
			InstanceKey: occ.InstanceKey,
			Summary:     occ.Summary,
			Description: occ.Description,
			Location:    occ.Location,
			AllDay:      occ.AllDay,
			Start:       occ.Start,
			End:         occ.End,
		})
	}

	resp := eventsResponse{
		Occurrences:     dtos,
		TruncatedUIDs:   result.TruncatedEvents,
		RangeStart:      rangeStart,
		RangeEnd:        rangeEnd,
		DisplayTimeZone: s.loc.String(),
		WeekStart:       s.cfg.WeekStart,
	}

	s.eventsMu.Lock()
	if s.cacheStamp.Equal(stamp) {
		if len(s.eventsCache) >= maxCachedWindows {
			clear(s.eventsCache)
		}
		s.eventsCache[key] = resp
	}
	s.eventsMu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

// handleExport re-serializes the calendars of one source.
//
// GET /api/export?source=ID
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("source")
	for _, st := range s.refresher.Snapshot().Sources {
		if st.Source.ID != id {
			continue
		}
		if st.Document == nil {
			writeError(w, http.StatusServiceUnavailable, "source not loaded yet")
			return
		}
		w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		_, _ = w.Write([]byte(ics.ExportString(st.Document.Calendars)))
		return
	}
	writeError(w, http.StatusNotFound, "unknown source")
}

type refreshResponse struct {
	Errors []string `json:"errors"`
}

// handleRefresh runs a refresh of every source immediately.
//
// POST /api/refresh
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "use POST")
		return
	}
	resp := refreshResponse{Errors: []string{}}
	if err := s.refresher.Refresh(r.Context()); err != nil {
		appLog.Error("api refresh: one or more sources failed", err)
		resp.Errors = splitJoined(err)
	}
	writeJSON(w, http.StatusOK, resp)
}

// splitJoined undoes errors.Join for reporting.
func splitJoined(err error) []string {
	var out []string
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range j.Unwrap() {
			out = append(out, e.Error())
		}
		return out
	}
	return append(out, err.Error())
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func resolveLocationOrLocal(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", name)
		return time.Local
	}
	return loc
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
