package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"notecal/internal/calendar"
	"notecal/internal/config"
	"notecal/internal/domain"
	appLog "notecal/internal/log"
	"notecal/internal/model"
)

const requestIDHeader = "X-Request-ID"

// Resolver is the part of notesync.Service the API serves.
type Resolver interface {
	ResolveClosest(ctx context.Context, now time.Time) (calendar.EventRecord, bool, error)
	ResolveSelectable(ctx context.Context, now time.Time) ([]calendar.EventRecord, error)
}

// Server exposes the candidate listings over HTTP.
type Server struct {
	cfg      *config.Config
	resolver Resolver
	mux      *http.ServeMux

	// Clock returns the instant used when a request has no ?now= override.
	Clock func() time.Time
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, resolver Resolver) *Server {
	s := &Server{
		cfg:      cfg,
		resolver: resolver,
		mux:      http.NewServeMux(),
		Clock:    time.Now,
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		h = s.basicAuthMiddleware(h)
	}
	return requestIDMiddleware(h)
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty credentials mean disabled.
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
			w.Header().Set("WWW-Authenticate", `Basic realm="notecal", charset="UTF-8"`)
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

// requestIDMiddleware tags every request with an id (the caller's, if it
// sent one) and logs it once served.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		started := time.Now()
		next.ServeHTTP(w, r)
		appLog.Debug("http request", "id", id, "method", r.Method, "path", r.URL.Path, "elapsed", time.Since(started))
	})
}

// StartServer serves the API on cfg.Listen until ctx is cancelled, then
// shuts down gracefully.
func StartServer(ctx context.Context, cfg *config.Config, resolver Resolver) error {
	s := NewServer(cfg, resolver)
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/closest", s.handleClosest)
	s.mux.HandleFunc("GET /api/events", s.handleEvents)
	s.mux.HandleFunc("GET /api/events/names", s.handleEventNames)
	s.mux.Handle("GET /metrics", promhttp.Handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// eventDTO is a JSON-friendly view of an EventRecord.
type eventDTO struct {
	SourceID    string        `json:"source_id"`
	UID         string        `json:"uid"`
	Summary     string        `json:"summary"`
	Title       string        `json:"title"`
	DisplayName string        `json:"display_name"`
	Status      string        `json:"status,omitempty"`
	Start       time.Time     `json:"start"`
	End         time.Time     `json:"end"`
	Duration    string        `json:"duration"`
	Attendees   []attendeeDTO `json:"attendees"`

	// AttendeesKnown is false when the feed exposed no attendee data.
	AttendeesKnown bool `json:"attendees_known"`
}

type attendeeDTO struct {
	Name    string `json:"name,omitempty"`
	Status  string `json:"status"`
	Address string `json:"address,omitempty"`
}

func toDTO(r calendar.EventRecord) eventDTO {
	attendees := make([]attendeeDTO, 0)
	for _, a := range r.Attendees() {
		attendees = append(attendees, attendeeDTO{
			Name:    a.Name,
			Status:  string(a.Status),
			Address: a.Address,
		})
	}
	return eventDTO{
		SourceID:    r.SourceID(),
		UID:         r.UID(),
		Summary:     r.Summary(),
		Title:       r.Title(),
		DisplayName: r.DisplayName(),
		Status:      string(r.Status()),
		Start:       r.Start(),
		End:         r.End(),
		Duration:    calendar.FormatDuration(r.Duration()),
		Attendees:   attendees,

		AttendeesKnown: !unavailable(r),
	}
}

// eventsResponse is the JSON response shape for /api/events.
type eventsResponse struct {
	Now    time.Time  `json:"now"`
	Events []eventDTO `json:"events"`
}

type namesResponse struct {
	Now   time.Time `json:"now"`
	Names []string  `json:"names"`
}

// handleClosest returns the event a note opened now would be synced to.
//
// GET /api/closest?now=2024-06-03T08:00:00Z
//
// 204 when nothing is relevant.
func (s *Server) handleClosest(w http.ResponseWriter, r *http.Request) {
	now, ok := s.requestNow(w, r)
	if !ok {
		return
	}
	rec, found, err := s.resolver.ResolveClosest(r.Context(), now)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if !found {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, toDTO(rec))
}

// handleEvents returns the manual-pick candidates ordered by start.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	now, ok := s.requestNow(w, r)
	if !ok {
		return
	}
	records, err := s.resolver.ResolveSelectable(r.Context(), now)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	dtos := make([]eventDTO, 0, len(records))
	for _, rec := range records {
		dtos = append(dtos, toDTO(rec))
	}
	writeJSON(w, http.StatusOK, eventsResponse{Now: now, Events: dtos})
}

// handleEventNames returns the candidate display names in picker order
// (date, then 12-hour clock time).
func (s *Server) handleEventNames(w http.ResponseWriter, r *http.Request) {
	now, ok := s.requestNow(w, r)
	if !ok {
		return
	}
	records, err := s.resolver.ResolveSelectable(r.Context(), now)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	names := make([]string, 0, len(records))
	for _, rec := range records {
		names = append(names, rec.DisplayName())
	}
	calendar.SortDisplayNames(names)
	writeJSON(w, http.StatusOK, namesResponse{Now: now, Names: names})
}

// requestNow reads the optional ?now= (RFC 3339) override.
func (s *Server) requestNow(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	v := r.URL.Query().Get("now")
	if v == "" {
		return s.Clock(), true
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		writeError(w, http.StatusBadRequest, "now must be an RFC 3339 timestamp")
		return time.Time{}, false
	}
	return t, true
}

func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch domain.GetErrorType(err) {
	case domain.ErrorTypeConfiguration:
		status = http.StatusServiceUnavailable
	case domain.ErrorTypeNotFound, domain.ErrorTypeFetch, domain.ErrorTypeParse:
		status = http.StatusBadGateway
	}
	appLog.Error("api request failed", err, "status", status)
	writeError(w, status, domain.UserMessage(err))
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

// unavailable reports whether r carries only the placeholder attendee.
func unavailable(r calendar.EventRecord) bool {
	a := r.Attendees()
	return len(a) == 1 && a[0].Name == model.UnavailableAttendeeName && a[0].Address == ""
}
