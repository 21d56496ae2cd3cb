package detector

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jewel-tree/profile-post-watcher/internal/domain"
	"github.com/jewel-tree/profile-post-watcher/internal/logger"
	"github.com/jewel-tree/profile-post-watcher/pkg/fetchers"
)

// LatestFetcher is the producer side of a check.
type LatestFetcher interface {
	FetchLatest(ctx context.Context) (domain.PostRecord, error)
}

// StateStore holds the baseline: the URL of the last reported post.
type StateStore interface {
	LastSeen() (string, bool, error)
	SaveLastSeen(url string) error
}

// Status describes how a single check ended.
type Status string

const (
	StatusNew         Status = "new"
	StatusUnchanged   Status = "unchanged"
	StatusNoResult    Status = "no_result"
	StatusFetchFailed Status = "fetch_failed"
	StatusReadFailed  Status = "state_read_failed"
	StatusWriteFailed Status = "state_write_failed"
)

// Result is the detailed outcome of Check.
type Result struct {
	Status   Status
	URL      string
	Previous string
	Err      error
}

// IsNew reports whether the check detected and persisted a new post.
func (r Result) IsNew() bool { return r.Status == StatusNew }

// Detector compares the fetched latest post against the stored baseline.
// Calls must not overlap; the scheduler serializes them.
type Detector struct {
	fetcher LatestFetcher
	store   StateStore
	log     logger.Logger
}

// New wires a detector from its fetcher and store.
func New(fetcher LatestFetcher, store StateStore, log logger.Logger) (*Detector, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("detector requires a fetcher")
	}
	if store == nil {
		return nil, fmt.Errorf("detector requires a state store")
	}
	return &Detector{fetcher: fetcher, store: store, log: logger.Ensure(log)}, nil
}

// CheckForUpdate returns the URL of a newly detected post, or ok=false when there
// is nothing to report this cycle. It never returns an error: failures are logged
// and skip the cycle without touching stored state.
func (d *Detector) CheckForUpdate(ctx context.Context) (string, bool) {
	res := d.Check(ctx)
	return res.URL, res.IsNew()
}

// Check runs one detection cycle and reports the detailed outcome.
func (d *Detector) Check(ctx context.Context) Result {
	post, err := d.fetcher.FetchLatest(ctx)
	if err != nil {
		return d.fetchFailed(err)
	}

	url := strings.TrimSpace(post.URL)
	if url == "" {
		d.log.WarnObj("fetcher returned a post without url", "detector", map[string]any{
			"status": StatusFetchFailed,
		})
		return Result{Status: StatusFetchFailed, Err: errors.New("latest post has empty url")}
	}

	previous, ok, err := d.store.LastSeen()
	if err != nil {
		d.log.ErrorObj("state read failed", "detector", map[string]any{
			"url":   url,
			"error": err.Error(),
		})
		return Result{Status: StatusReadFailed, Err: err}
	}

	if ok && previous == url {
		d.log.InfoObj("no new post detected", "detector", map[string]any{"url": url})
		return Result{Status: StatusUnchanged, Previous: previous}
	}

	if err := d.store.SaveLastSeen(url); err != nil {
		// The same post is re-detected next cycle, which retries the write.
		d.log.ErrorObj("state write failed", "detector", map[string]any{
			"url":      url,
			"previous": previous,
			"error":    err.Error(),
		})
		return Result{Status: StatusWriteFailed, Previous: previous, Err: err}
	}

	d.log.InfoObj("new post detected and stored", "detector", map[string]any{
		"url":           url,
		"previous":      previous,
		"first_observe": !ok,
	})
	return Result{Status: StatusNew, URL: url, Previous: previous}
}

func (d *Detector) fetchFailed(err error) Result {
	if errors.Is(err, fetchers.ErrNoResult) {
		d.log.InfoObj("fetch returned no result", "detector", map[string]any{
			"kind":  string(fetchers.KindOf(err)),
			"error": err.Error(),
		})
		return Result{Status: StatusNoResult, Err: err}
	}
	d.log.WarnObj("fetch failed; skipping cycle", "detector", map[string]any{
		"kind":  string(fetchers.KindOf(err)),
		"error": err.Error(),
	})
	return Result{Status: StatusFetchFailed, Err: err}
}
