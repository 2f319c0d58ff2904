package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notecal/internal/calendar"
	"notecal/internal/config"
	"notecal/internal/domain"
	"notecal/internal/model"
)

var now = time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC)

type stubResolver struct {
	records []calendar.EventRecord
	err     error
	gotNow  time.Time
}

func (s *stubResolver) ResolveClosest(_ context.Context, n time.Time) (calendar.EventRecord, bool, error) {
	s.gotNow = n
	if s.err != nil {
		return calendar.EventRecord{}, false, s.err
	}
	rec, ok := calendar.FindClosestEvent(s.records, n)
	return rec, ok, nil
}

func (s *stubResolver) ResolveSelectable(_ context.Context, n time.Time) ([]calendar.EventRecord, error) {
	s.gotNow = n
	if s.err != nil {
		return nil, s.err
	}
	out := calendar.SelectableEvents(s.records, n)
	calendar.SortCandidates(out)
	return out, nil
}

func record(summary string, start time.Time, dur time.Duration, attendees ...model.Attendee) calendar.EventRecord {
	s := calendar.DefaultSettings()
	s.Location = time.UTC
	return calendar.NewEventRecord(model.EventDefinition{
		UID:       summary + "@test",
		SourceID:  "work",
		Summary:   summary,
		Start:     start,
		End:       start.Add(dur),
		Attendees: attendees,
	}, s)
}

func newTestServer(t *testing.T, cfg *config.Config, res Resolver) *httptest.Server {
	t.Helper()
	s := NewServer(cfg, res)
	s.Clock = func() time.Time { return now }
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealthAndRequestID(t *testing.T) {
	srv := newTestServer(t, config.DefaultConfig(), &stubResolver{})

	resp := get(t, srv.URL+"/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(requestIDHeader))

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set(requestIDHeader, "abc-123")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, "abc-123", resp2.Header.Get(requestIDHeader))
}

func TestClosest(t *testing.T) {
	res := &stubResolver{records: []calendar.EventRecord{
		record("Standup", now.Add(-15*time.Minute), 30*time.Minute, model.Attendee{Name: "Alice", Status: model.PartStatAccepted}),
		record("Planning", now.Add(2*time.Hour), time.Hour),
	}}
	srv := newTestServer(t, config.DefaultConfig(), res)

	resp := get(t, srv.URL+"/api/closest")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, now, res.gotNow)

	var body eventDTO
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Standup", body.Summary)
	assert.Equal(t, "📅 2024-06-03 Standup", body.Title)
	assert.Equal(t, "30m", body.Duration)
	assert.True(t, body.AttendeesKnown)
	require.Len(t, body.Attendees, 1)
	assert.Equal(t, "Alice", body.Attendees[0].Name)
}

func TestClosestNoContentAndNowOverride(t *testing.T) {
	res := &stubResolver{records: []calendar.EventRecord{
		record("Standup", now.Add(-15*time.Minute), 30*time.Minute),
	}}
	srv := newTestServer(t, config.DefaultConfig(), res)

	resp := get(t, srv.URL+"/api/closest?now=2024-07-01T08:00:00Z")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC), res.gotNow)

	bad := get(t, srv.URL+"/api/closest?now=tomorrow")
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

func TestEventsAndNames(t *testing.T) {
	res := &stubResolver{records: []calendar.EventRecord{
		record("Review", now.Add(26*time.Hour), 90*time.Minute),
		record("Lunch", now.Add(4*time.Hour), time.Hour),
		record("Old", now.AddDate(0, 0, -3), time.Hour),
	}}
	srv := newTestServer(t, config.DefaultConfig(), res)

	resp := get(t, srv.URL+"/api/events")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var events eventsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&events))
	require.Len(t, events.Events, 2)
	assert.Equal(t, "Lunch", events.Events[0].Summary)
	assert.False(t, events.Events[0].AttendeesKnown)
	assert.Equal(t, "Review", events.Events[1].Summary)

	resp = get(t, srv.URL+"/api/events/names")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var names namesResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&names))
	assert.Equal(t, []string{
		"6/3/2024 | 12:00 PM | 1h | Lunch",
		"6/4/2024 | 10:00 AM | 1h 30m | Review",
	}, names.Names)
}

func TestDomainErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"no feed", domain.ErrNoFeedConfigured, http.StatusServiceUnavailable, "no calendar feed URL configured"},
		{"not found", domain.NewNotFoundError("404 Not Found"), http.StatusBadGateway, "calendar feed not found, check your URL"},
		{"parse", domain.NewParseError("bad"), http.StatusBadGateway, "could not parse calendar data"},
		{"internal", domain.NewInternalError("boom"), http.StatusInternalServerError, "boom"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(t, config.DefaultConfig(), &stubResolver{err: tc.err})
			resp := get(t, srv.URL+"/api/events")
			assert.Equal(t, tc.status, resp.StatusCode)

			var body struct {
				Error string `json:"error"`
			}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tc.msg, body.Error)
		})
	}
}

func TestBasicAuth(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "user", Password: "pass"}
	srv := newTestServer(t, cfg, &stubResolver{})

	assert.Equal(t, http.StatusOK, get(t, srv.URL+"/health").StatusCode, "health is always open")
	assert.Equal(t, http.StatusUnauthorized, get(t, srv.URL+"/api/events").StatusCode)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/events", nil)
	require.NoError(t, err)
	req.SetBasicAuth("user", "pass")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, config.DefaultConfig(), &stubResolver{})
	resp := get(t, srv.URL+"/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
