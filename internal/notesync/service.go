// Package notesync ties feeds, calendar selection and note rewriting
// together. It is the only layer that talks to both the network and disk.
package notesync

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"notecal/internal/calendar"
	"notecal/internal/config"
	"notecal/internal/domain"
	"notecal/internal/ics"
	appLog "notecal/internal/log"
	"notecal/internal/metrics"
	"notecal/internal/note"
)

const defaultConcurrency = 4

// Fetcher is the part of ics.Fetcher the service needs.
type Fetcher interface {
	FetchOne(ctx context.Context, src ics.Source) (ics.FetchResult, error)
}

// Service collects events from every configured feed and applies them to
// notes. It holds no per-run state and is safe for concurrent use.
type Service struct {
	feeds       []config.Feed
	fetcher     Fetcher
	processor   *calendar.FeedProcessor
	concurrency int
}

// New creates a Service over already-resolved feeds.
func New(feeds []config.Feed, fetcher Fetcher, concurrency int) *Service {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Service{
		feeds:       feeds,
		fetcher:     fetcher,
		processor:   calendar.NewFeedProcessor(),
		concurrency: concurrency,
	}
}

// FromConfig builds the settings snapshot and fetcher described by cfg.
func FromConfig(cfg *config.Config) (*Service, error) {
	settings, err := cfg.Settings()
	if err != nil {
		return nil, err
	}
	opts := []ics.FetcherOption{
		ics.WithHTTPClient(&http.Client{Timeout: cfg.FetchTimeout()}),
	}
	if cfg.CacheDir != "" {
		opts = append(opts, ics.WithCacheDir(cfg.CacheDir))
	}
	return New(cfg.ResolveFeeds(settings), ics.NewFetcher(opts...), cfg.Concurrency), nil
}

// Collection is the merged outcome of one multi-feed run.
type Collection struct {
	// Records from every feed that succeeded, sorted by start.
	Records []calendar.EventRecord
	// Failures holds one error per feed that could not be fetched or parsed.
	Failures []error
}

// Collect fetches, parses and processes every feed concurrently. A failing
// feed is logged and reported in Failures without affecting the others.
// Collect only returns an error when no feed is configured or every feed
// failed.
func (s *Service) Collect(ctx context.Context, now time.Time) (Collection, error) {
	if len(s.feeds) == 0 {
		return Collection{}, domain.ErrNoFeedConfigured
	}

	perFeed := make([][]calendar.EventRecord, len(s.feeds))
	errs := make([]error, len(s.feeds))

	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)
	for i, feed := range s.feeds {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				errs[i] = ctx.Err()
				return nil
			default:
			}
			records, err := s.collectFeed(ctx, feed, now)
			if err != nil {
				appLog.Error("feed failed", err, "id", feed.Source.ID, "url", ics.RedactURL(feed.Source.URL))
				errs[i] = fmt.Errorf("feed %s: %w", feed.Source.ID, err)
				return nil
			}
			perFeed[i] = records
			return nil
		})
	}
	_ = g.Wait() // workers never return an error

	var out Collection
	for _, err := range errs {
		if err != nil {
			out.Failures = append(out.Failures, err)
		}
	}
	if len(out.Failures) == len(s.feeds) {
		return out, errors.Join(out.Failures...)
	}
	out.Records = calendar.Merge(perFeed...)

	appLog.Info("feeds collected",
		"feeds", len(s.feeds),
		"failed", len(out.Failures),
		"records", len(out.Records),
	)
	return out, nil
}

func (s *Service) collectFeed(ctx context.Context, feed config.Feed, now time.Time) ([]calendar.EventRecord, error) {
	res, err := s.fetcher.FetchOne(ctx, feed.Source)
	if err != nil {
		return nil, err
	}
	items, err := ics.Parse(feed.Source, res.Body, feed.Settings.Location)
	if err != nil {
		return nil, err
	}
	records := s.processor.Process(items, feed.Settings, now)
	metrics.SetRecords(feed.Source.ID, len(records))
	return records, nil
}

// Resolution is the closest event and the manual-pick candidates computed
// from a single collection.
type Resolution struct {
	Closest    calendar.EventRecord
	HasClosest bool
	// Candidates are ordered by start.
	Candidates []calendar.EventRecord
}

// Resolve collects every feed once and derives both the closest event and
// the candidate list from that snapshot.
func (s *Service) Resolve(ctx context.Context, now time.Time) (Resolution, error) {
	col, err := s.Collect(ctx, now)
	if err != nil {
		return Resolution{}, err
	}
	closest, ok := calendar.FindClosestEvent(col.Records, now)
	return Resolution{
		Closest:    closest,
		HasClosest: ok,
		Candidates: selectable(col.Records, now),
	}, nil
}

// ResolveClosest returns the event most relevant to now, if any.
func (s *Service) ResolveClosest(ctx context.Context, now time.Time) (calendar.EventRecord, bool, error) {
	col, err := s.Collect(ctx, now)
	if err != nil {
		return calendar.EventRecord{}, false, err
	}
	rec, ok := calendar.FindClosestEvent(col.Records, now)
	return rec, ok, nil
}

// ResolveSelectable returns the manual-pick candidates, ordered by start.
func (s *Service) ResolveSelectable(ctx context.Context, now time.Time) ([]calendar.EventRecord, error) {
	col, err := s.Collect(ctx, now)
	if err != nil {
		return nil, err
	}
	return selectable(col.Records, now), nil
}

func selectable(records []calendar.EventRecord, now time.Time) []calendar.EventRecord {
	candidates := calendar.SelectableEvents(records, now)
	calendar.SortCandidates(candidates)
	return candidates
}

// Outcome describes one note sync.
type Outcome struct {
	RunID string
	// Synced is false when there was nothing to sync.
	Synced bool
	Event  calendar.EventRecord
	// Path is the note's path after the rename.
	Path string
}

// SyncNote rewrites the note at path for the closest event. No event is
// not an error: the outcome is returned with Synced false.
func (s *Service) SyncNote(ctx context.Context, path string, now time.Time) (Outcome, error) {
	out := Outcome{RunID: uuid.NewString(), Path: path}

	rec, ok, err := s.ResolveClosest(ctx, now)
	if err != nil {
		metrics.ObserveSync("error")
		return out, err
	}
	if !ok {
		metrics.ObserveSync("no_event")
		appLog.Info("nothing to sync", "run", out.RunID, "now", now.Format(time.RFC3339))
		return out, nil
	}
	return s.apply(out, path, rec)
}

// SyncNoteWith rewrites the note at path for a record the caller picked.
func (s *Service) SyncNoteWith(path string, rec calendar.EventRecord) (Outcome, error) {
	return s.apply(Outcome{RunID: uuid.NewString(), Path: path}, path, rec)
}

func (s *Service) apply(out Outcome, path string, rec calendar.EventRecord) (Outcome, error) {
	newPath, err := note.Apply(path, note.FromRecord(rec))
	if err != nil {
		metrics.ObserveSync("error")
		return out, err
	}
	metrics.ObserveSync("synced")
	appLog.Info("note synced", "run", out.RunID, "event", rec.Summary(), "start", rec.Start().Format(time.RFC3339))

	out.Synced = true
	out.Event = rec
	out.Path = newPath
	return out, nil
}
