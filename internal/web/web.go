package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"tzcal/internal/calendar"
	"tzcal/internal/clock"
	"tzcal/internal/config"
	"tzcal/internal/ics"
	appLog "tzcal/internal/log"
	"tzcal/internal/model"
	"tzcal/internal/store"
	"tzcal/internal/tzconv"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// Server exposes the event-persistence API and the calendar session state
// (view, zones, layout, live clock) over HTTP.
type Server struct {
	cfg    *config.Config
	mux    *http.ServeMux
	events calendar.EventService
	clock  clock.Clock

	// mu guards session. The live clock takes the same lock through Target.
	mu      sync.Mutex
	session *calendar.Session

	live *clock.LiveClock
}

// NewServer constructs a Server. session must already hold the events of
// svc (see calendar.Session.LoadEvents). A nil clk means the system clock.
func NewServer(cfg *config.Config, svc calendar.EventService, session *calendar.Session, clk clock.Clock) *Server {
	if clk == nil {
		clk = clock.System{}
	}
	s := &Server{
		cfg:     cfg,
		mux:     http.NewServeMux(),
		events:  svc,
		clock:   clk,
		session: session,
	}
	s.registerRoutes()
	return s
}

// Target returns the clock target refreshing this server's session.
func (s *Server) Target() clock.SessionTarget {
	return clock.SessionTarget{Mu: &s.mu, Session: s.session}
}

// AttachClock makes /api/clock serve lc's latest tick.
func (s *Server) AttachClock(lc *clock.LiveClock) {
	s.live = lc
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
	// An empty username or password disables auth.
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
			w.Header().Set("WWW-Authenticate", `Basic realm="tzcal", charset="UTF-8"`)
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

// Serve runs an HTTP server on cfg.Listen until ctx is cancelled, then shuts
// it down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	appLog.Info("shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("GET /api/events", s.handleListEvents)
	s.mux.HandleFunc("POST /api/events", s.handleCreateEvent)
	s.mux.HandleFunc("DELETE /api/events/{id}", s.handleDeleteEvent)
	s.mux.HandleFunc("GET /api/events.ics", s.handleExportICS)

	s.mux.HandleFunc("GET /api/layout", s.handleLayout)
	s.mux.HandleFunc("POST /api/view", s.handleView)
	s.mux.HandleFunc("POST /api/navigate", s.handleNavigate)
	s.mux.HandleFunc("POST /api/today", s.handleToday)

	s.mux.HandleFunc("GET /api/timezones", s.handleListTimezones)
	s.mux.HandleFunc("POST /api/timezones", s.handleAddTimezone)
	s.mux.HandleFunc("DELETE /api/timezones", s.handleRemoveTimezone)

	s.mux.HandleFunc("GET /api/clock", s.handleClock)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.events.List(r.Context())
	if err != nil {
		appLog.Error("api events: list failed", err)
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

type createEventResponse struct {
	Event model.Event `json:"event"`
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var d model.Draft
	if err := decodeBody(r, &d); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	// Validate before touching storage so bad input is a 400, not a 500.
	if _, err := d.Resolve(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	ev, err := s.session.CreateEvent(r.Context(), s.events, d)
	s.mu.Unlock()
	if err != nil {
		appLog.Error("api events: create failed", err)
		writeError(w, http.StatusInternalServerError, "failed to create event")
		return
	}
	writeJSON(w, http.StatusCreated, createEventResponse{Event: ev})
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	s.mu.Lock()
	err := s.session.DeleteEvent(r.Context(), s.events, id)
	s.mu.Unlock()
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "event not found")
	default:
		appLog.Error("api events: delete failed", err, "id", id)
		writeError(w, http.StatusInternalServerError, "failed to delete event")
	}
}

func (s *Server) handleExportICS(w http.ResponseWriter, r *http.Request) {
	events, err := s.events.List(r.Context())
	if err != nil {
		appLog.Error("api events: export failed", err)
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	body := ics.Export("tzcal", events, s.clock.Now())
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="tzcal.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, body)
}

func (s *Server) handleLayout(w http.ResponseWriter, _ *http.Request) {
	s.writeLayout(w)
}

type viewRequest struct {
	Mode string `json:"mode"`
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	var req viewRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	mode, err := calendar.ParseViewMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	err = s.session.SwitchView(mode)
	s.mu.Unlock()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeLayout(w)
}

type navigateRequest struct {
	Direction int `json:"direction"`
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	var req navigateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Direction == 0 {
		writeError(w, http.StatusBadRequest, "direction must be -1 or 1")
		return
	}

	s.mu.Lock()
	s.session.Navigate(req.Direction)
	s.mu.Unlock()
	s.writeLayout(w)
}

func (s *Server) handleToday(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	s.session.GoToToday(s.clock.Now())
	s.mu.Unlock()
	s.writeLayout(w)
}

type timezonesResponse struct {
	Catalog  []string `json:"catalog"`
	Selected []string `json:"selected"`
	Max      int      `json:"max"`
}

func (s *Server) handleListTimezones(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	resp := timezonesResponse{
		Catalog:  s.session.Zones.Catalog(),
		Selected: s.session.Zones.Zones(),
		Max:      s.session.Zones.Max(),
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, resp)
}

type timezoneRequest struct {
	Zone string `json:"zone"`
}

func (s *Server) handleAddTimezone(w http.ResponseWriter, r *http.Request) {
	var req timezoneRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	err := s.session.Zones.Add(req.Zone)
	s.mu.Unlock()
	switch {
	case err == nil:
	case errors.Is(err, calendar.ErrTooManyZones):
		writeError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, calendar.ErrUnknownZone), tzconv.IsInvalidInput(err):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeLayout(w)
}

func (s *Server) handleRemoveTimezone(w http.ResponseWriter, r *http.Request) {
	zone := r.URL.Query().Get("zone")
	if zone == "" {
		writeError(w, http.StatusBadRequest, "zone is required")
		return
	}

	s.mu.Lock()
	removed := s.session.Zones.Remove(zone)
	s.mu.Unlock()
	if !removed {
		writeError(w, http.StatusNotFound, "zone not selected")
		return
	}
	s.writeLayout(w)
}

type clockResponse struct {
	Now             time.Time          `json:"now"`
	IndicatorPx     float64            `json:"indicator_px"`
	IndicatorColumn int                `json:"indicator_column"`
	Readouts        []calendar.Readout `json:"readouts"`
}

func (s *Server) handleClock(w http.ResponseWriter, _ *http.Request) {
	var tick clock.Tick
	if s.live != nil {
		tick = s.live.Last()
	}
	if tick.Now.IsZero() {
		tick = s.Target().Refresh(s.clock.Now())
	}
	readouts := tick.Readouts
	if readouts == nil {
		readouts = []calendar.Readout{}
	}
	writeJSON(w, http.StatusOK, clockResponse{
		Now:             tick.Now,
		IndicatorPx:     tick.Indicator.OffsetPx,
		IndicatorColumn: tick.Indicator.Column,
		Readouts:        readouts,
	})
}

// writeLayout rebuilds the layout under the session lock and writes it.
func (s *Server) writeLayout(w http.ResponseWriter) {
	s.mu.Lock()
	l := s.session.Rebuild(s.clock.Now())
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, l)
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.New("invalid JSON body: " + err.Error())
	}
	return nil
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
