package fetchers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jewel-tree/profile-post-watcher/pkg/httpclient"
)

// fakeApify serves the three Apify endpoints used by the managed strategy.
type fakeApify struct {
	t            *testing.T
	submitStatus int
	statuses     []string // returned in order, last one repeats
	dataset      string
	polls        atomic.Int32
	datasetCalls atomic.Int32
}

func (f *fakeApify) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if got := r.Header.Get("Authorization"); got != "Bearer tok" {
		f.t.Errorf("Authorization = %q", got)
	}
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/v2/acts/apify~instagram-profile-scraper/runs":
		var input struct {
			Usernames    []string `json:"usernames"`
			ResultsLimit int      `json:"resultsLimit"`
		}
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			f.t.Errorf("decode input: %v", err)
		}
		if len(input.Usernames) != 1 || input.Usernames[0] != "thejeweltreecollection" || input.ResultsLimit != 1 {
			f.t.Errorf("unexpected run input %+v", input)
		}
		if r.URL.Query().Get("memory") != "256" {
			f.t.Errorf("memory = %q", r.URL.Query().Get("memory"))
		}
		if f.submitStatus != 0 {
			w.WriteHeader(f.submitStatus)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"run-1","status":"READY","defaultDatasetId":"ds-1"}}`))
	case r.Method == http.MethodGet && r.URL.Path == "/v2/actor-runs/run-1":
		n := int(f.polls.Add(1))
		status := f.statuses[len(f.statuses)-1]
		if n <= len(f.statuses) {
			status = f.statuses[n-1]
		}
		_, _ = w.Write([]byte(`{"data":{"id":"run-1","status":"` + status + `","defaultDatasetId":"ds-1"}}`))
	case r.Method == http.MethodGet && r.URL.Path == "/v2/datasets/ds-1/items":
		f.datasetCalls.Add(1)
		_, _ = w.Write([]byte(f.dataset))
	default:
		f.t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestApify(t *testing.T, fake *fakeApify, maxPolls int) *apifyFetcher {
	t.Helper()
	fake.t = t
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	f, err := DefaultRegistry().Build(StrategyApify, Options{
		Username: "thejeweltreecollection",
		Apify: ApifyOptions{
			Token:          "tok",
			BaseURL:        srv.URL,
			StatusInterval: time.Millisecond,
			MaxPolls:       maxPolls,
		},
	}, httpclient.NewRestyClient(2*time.Second), nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	af := f.(*apifyFetcher)
	af.sleep = func(context.Context, time.Duration) error { return nil }
	return af
}

func TestApifyFetcherBuildsPostURLFromShortCode(t *testing.T) {
	fake := &fakeApify{
		statuses: []string{"RUNNING", "RUNNING", "SUCCEEDED"},
		dataset:  `[{"username":"thejeweltreecollection","latestPosts":[{"shortCode":"XYZ"},{"shortCode":"OLD"}]}]`,
	}
	f := newTestApify(t, fake, 30)

	post, err := f.FetchLatest(context.Background())
	if err != nil {
		t.Fatalf("FetchLatest: %v", err)
	}
	if post.URL != "https://www.instagram.com/p/XYZ/" {
		t.Fatalf("unexpected url %q", post.URL)
	}
	if got := fake.polls.Load(); got != 3 {
		t.Fatalf("expected 3 status polls, got %d", got)
	}
}

func TestApifyFetcherPollCeiling(t *testing.T) {
	fake := &fakeApify{statuses: []string{"RUNNING"}}
	f := newTestApify(t, fake, 4)

	_, err := f.FetchLatest(context.Background())
	if !errors.Is(err, ErrNoResult) {
		t.Fatalf("expected ErrNoResult, got %v", err)
	}
	if KindOf(err) != KindTimeout {
		t.Fatalf("expected timeout kind, got %q", KindOf(err))
	}
	if got := fake.polls.Load(); got != 4 {
		t.Fatalf("expected exactly 4 polls, got %d", got)
	}
	if fake.datasetCalls.Load() != 0 {
		t.Fatalf("dataset must not be read for unfinished runs")
	}
}

func TestApifyFetcherTerminalFailures(t *testing.T) {
	tests := map[string]ErrorKind{
		"FAILED":    KindUpstreamFailed,
		"ABORTED":   KindUpstreamFailed,
		"TIMED-OUT": KindTimeout,
	}
	for status, want := range tests {
		t.Run(status, func(t *testing.T) {
			fake := &fakeApify{statuses: []string{"RUNNING", status}}
			_, err := newTestApify(t, fake, 30).FetchLatest(context.Background())
			if !errors.Is(err, ErrNoResult) || KindOf(err) != want {
				t.Fatalf("expected ErrNoResult with kind %q, got %v", want, err)
			}
			if fake.polls.Load() != 2 {
				t.Fatalf("expected polling to stop at the terminal status")
			}
		})
	}
}

func TestApifyFetcherSubmitFailureIsNetworkKind(t *testing.T) {
	fake := &fakeApify{submitStatus: http.StatusUnauthorized, statuses: []string{"RUNNING"}}
	_, err := newTestApify(t, fake, 30).FetchLatest(context.Background())
	if !errors.Is(err, ErrNoResult) || KindOf(err) != KindNetwork {
		t.Fatalf("expected degraded network error, got %v", err)
	}
	if fake.polls.Load() != 0 {
		t.Fatalf("must not poll after a failed submission")
	}
}

func TestApifyFetcherMalformedDatasets(t *testing.T) {
	tests := map[string]string{
		"empty array":         `[]`,
		"missing latestPosts": `[{"username":"x"}]`,
		"empty latestPosts":   `[{"latestPosts":[]}]`,
		"blank shortCode":     `[{"latestPosts":[{"shortCode":"  "}]}]`,
		"not json":            `<html>oops</html>`,
		"object not array":    `{"latestPosts":[{"shortCode":"X"}]}`,
	}
	for name, dataset := range tests {
		t.Run(name, func(t *testing.T) {
			fake := &fakeApify{statuses: []string{"SUCCEEDED"}, dataset: dataset}
			post, err := newTestApify(t, fake, 30).FetchLatest(context.Background())
			if !errors.Is(err, ErrNoResult) {
				t.Fatalf("expected ErrNoResult, got %v", err)
			}
			if post.URL != "" {
				t.Fatalf("expected empty record, got %q", post.URL)
			}
		})
	}
}

func TestApifyFetcherHonoursCancellation(t *testing.T) {
	fake := &fakeApify{statuses: []string{"RUNNING"}}
	f := newTestApify(t, fake, 30)
	f.sleep = sleepContext
	f.opts.StatusInterval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := f.FetchLatest(ctx)
	if !errors.Is(err, ErrNoResult) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation wrapped in ErrNoResult, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatalf("cancellation did not interrupt the poll sleep")
	}
}

func TestApifyFetcherRequiresToken(t *testing.T) {
	_, err := DefaultRegistry().Build(StrategyApify, Options{Username: "x"}, mockHTTPClient{t: t}, nil)
	if err == nil || !strings.Contains(err.Error(), "token") {
		t.Fatalf("expected token error, got %v", err)
	}
}
