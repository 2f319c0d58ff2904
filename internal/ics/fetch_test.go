package ics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notecal/internal/domain"
)

const feedBody = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nEND:VCALENDAR\r\n"

func TestFetchOneStatuses(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantType domain.ErrorType
		wantErr  bool
	}{
		{name: "ok", status: http.StatusOK},
		{name: "not found", status: http.StatusNotFound, wantErr: true, wantType: domain.ErrorTypeNotFound},
		{name: "server error", status: http.StatusInternalServerError, wantErr: true, wantType: domain.ErrorTypeFetch},
		{name: "not modified without cache", status: http.StatusNotModified, wantErr: true, wantType: domain.ErrorTypeFetch},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
				w.WriteHeader(tc.status)
				if tc.status == http.StatusOK {
					_, _ = w.Write([]byte(feedBody))
				}
			}))
			defer srv.Close()

			res, err := NewFetcher().FetchOne(context.Background(), Source{ID: "t", URL: srv.URL + "/cal.ics"})
			if tc.wantErr {
				require.Error(t, err)
				assert.Equal(t, tc.wantType, domain.GetErrorType(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, feedBody, string(res.Body))
			assert.False(t, res.FromCache)
		})
	}
}

func TestFetchOneEmptyURL(t *testing.T) {
	_, err := NewFetcher().FetchOne(context.Background(), Source{ID: "t"})
	require.Error(t, err)
	assert.Equal(t, domain.ErrorTypeConfiguration, domain.GetErrorType(err))
}

func TestFetchOneHTTPClientTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	f := NewFetcher(WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}))
	_, err := f.FetchOne(context.Background(), Source{ID: "slow", URL: srv.URL + "/cal.ics"})
	require.Error(t, err)
	assert.Equal(t, domain.ErrorTypeFetch, domain.GetErrorType(err))
}

func TestFetchOneConditionalCache(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == `"v1"` && status.Load() == http.StatusOK {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		code := int(status.Load())
		w.Header().Set("ETag", `"v1"`)
		w.WriteHeader(code)
		if code == http.StatusOK {
			_, _ = w.Write([]byte(feedBody))
		}
	}))
	defer srv.Close()

	f := NewFetcher(WithCacheDir(t.TempDir()))
	src := Source{ID: "cached", URL: srv.URL + "/cal.ics"}

	first, err := f.FetchOne(context.Background(), src)
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := f.FetchOne(context.Background(), src)
	require.NoError(t, err)
	assert.True(t, second.FromCache, "304 is served from cache")
	assert.Equal(t, feedBody, string(second.Body))

	status.Store(http.StatusBadGateway)
	third, err := f.FetchOne(context.Background(), src)
	require.NoError(t, err)
	assert.True(t, third.FromCache, "non-404 failures fall back to cache")

	status.Store(http.StatusNotFound)
	_, err = f.FetchOne(context.Background(), src)
	require.Error(t, err, "404 is never masked by the cache")
	assert.Equal(t, domain.ErrorTypeNotFound, domain.GetErrorType(err))
}

func TestRedactURL(t *testing.T) {
	tests := map[string]string{
		"https://example.com/path/to/private.ics?token=abcd": "https://example.com/...(redacted)",
		"webcal://cal.example.org":                           "webcal://cal.example.org/...(redacted)",
		"http://host:8080?x=1":                               "http://host:8080/...(redacted)",
		"not a url":                                          "ics://...(redacted)",
	}
	for in, want := range tests {
		assert.Equal(t, want, RedactURL(in), in)
	}
}
