package fetchers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jewel-tree/profile-post-watcher/internal/domain"
	"github.com/jewel-tree/profile-post-watcher/pkg/httpclient"
)

const (
	defaultApifyBaseURL        = "https://api.apify.com"
	defaultApifyActorID        = "apify~instagram-profile-scraper"
	defaultApifyMemoryMB       = 256
	defaultApifyRunTimeout     = 120 * time.Second
	defaultApifyStatusInterval = 3 * time.Second
	defaultApifyMaxPolls       = 30

	apifyStatusSucceeded = "SUCCEEDED"
	apifyStatusFailed    = "FAILED"
	apifyStatusAborted   = "ABORTED"
	apifyStatusTimedOut  = "TIMED-OUT"
)

// ApifyOptions configures the managed scraper API strategy.
type ApifyOptions struct {
	Token          string
	BaseURL        string
	ActorID        string
	MemoryMB       int
	RunTimeout     time.Duration
	StatusInterval time.Duration
	MaxPolls       int
}

func (o ApifyOptions) withDefaults() ApifyOptions {
	o.BaseURL = strings.TrimRight(strings.TrimSpace(o.BaseURL), "/")
	if o.BaseURL == "" {
		o.BaseURL = defaultApifyBaseURL
	}
	if strings.TrimSpace(o.ActorID) == "" {
		o.ActorID = defaultApifyActorID
	}
	if o.MemoryMB <= 0 {
		o.MemoryMB = defaultApifyMemoryMB
	}
	if o.RunTimeout <= 0 {
		o.RunTimeout = defaultApifyRunTimeout
	}
	if o.StatusInterval <= 0 {
		o.StatusInterval = defaultApifyStatusInterval
	}
	if o.MaxPolls <= 0 {
		o.MaxPolls = defaultApifyMaxPolls
	}
	return o
}

// apifyFetcher runs an Apify actor for the profile and reads the latest post from its dataset.
type apifyFetcher struct {
	client          HTTPClient
	opts            ApifyOptions
	username        string
	postURLTemplate string
	log             Logger
	sleep           func(ctx context.Context, d time.Duration) error
}

func newApifyFetcher(opts Options, client HTTPClient, log Logger) (Fetcher, error) {
	apify := opts.Apify.withDefaults()
	if strings.TrimSpace(apify.Token) == "" {
		return nil, fmt.Errorf("apify token is required")
	}
	if !strings.Contains(opts.PostURLTemplate, "%s") {
		return nil, fmt.Errorf("post url template %q has no %%s placeholder", opts.PostURLTemplate)
	}
	return &apifyFetcher{
		client:          client,
		opts:            apify,
		username:        opts.Username,
		postURLTemplate: opts.PostURLTemplate,
		log:             log,
		sleep:           sleepContext,
	}, nil
}

func (f *apifyFetcher) Strategy() string { return StrategyApify }

// FetchLatest never surfaces a bare FetchError: failures are logged and returned
// wrapped in ErrNoResult so a bad cycle only skips that cycle.
func (f *apifyFetcher) FetchLatest(ctx context.Context) (domain.PostRecord, error) {
	record, err := f.fetch(ctx)
	if err == nil {
		return record, nil
	}

	var fe *FetchError
	if errors.As(err, &fe) {
		f.log.WarnObj("apify fetch degraded to no result", "apify_error", map[string]any{
			"username": f.username,
			"kind":     string(fe.Kind),
			"error":    fe.Err.Error(),
		})
		return domain.PostRecord{}, fmt.Errorf("%w: %w", ErrNoResult, err)
	}
	return domain.PostRecord{}, err
}

func (f *apifyFetcher) fetch(ctx context.Context) (domain.PostRecord, error) {
	run, err := f.startRun(ctx)
	if err != nil {
		return domain.PostRecord{}, err
	}
	f.log.InfoObj("apify run started", "apify_run", map[string]any{
		"run_id":   run.ID,
		"username": f.username,
	})

	run, err = f.waitForRun(ctx, run)
	if err != nil {
		return domain.PostRecord{}, err
	}

	return f.latestFromDataset(ctx, run.DefaultDatasetID)
}

type apifyRun struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	DefaultDatasetID string `json:"defaultDatasetId"`
}

type apifyRunEnvelope struct {
	Data *apifyRun `json:"data"`
}

type apifyDatasetItem struct {
	LatestPosts []struct {
		ShortCode string `json:"shortCode"`
	} `json:"latestPosts"`
}

func (f *apifyFetcher) authHeaders() map[string]string {
	return map[string]string{"Authorization": "Bearer " + f.opts.Token}
}

func (f *apifyFetcher) startRun(ctx context.Context) (apifyRun, error) {
	q := url.Values{}
	q.Set("memory", strconv.Itoa(f.opts.MemoryMB))
	q.Set("timeout", strconv.Itoa(int(f.opts.RunTimeout/time.Second)))
	endpoint := fmt.Sprintf("%s/v2/acts/%s/runs?%s", f.opts.BaseURL, url.PathEscape(f.opts.ActorID), q.Encode())

	input := map[string]any{
		"usernames":    []string{f.username},
		"resultsLimit": 1,
	}
	resp, err := f.client.Post(ctx, endpoint, f.authHeaders(), input)
	if err != nil {
		return apifyRun{}, newFetchError(StrategyApify, KindNetwork, "submit run: %w", err)
	}
	if !httpclient.IsSuccess(resp) {
		return apifyRun{}, newFetchError(StrategyApify, KindNetwork,
			"submit run returned status %d body: %s", resp.StatusCode(), responseSnippet(resp.Body()))
	}
	run, err := decodeRun(resp.Body())
	if err != nil {
		return apifyRun{}, newFetchError(StrategyApify, KindParse, "decode submitted run: %w", err)
	}
	return run, nil
}

// waitForRun polls the run status until it is terminal or MaxPolls attempts are spent.
func (f *apifyFetcher) waitForRun(ctx context.Context, run apifyRun) (apifyRun, error) {
	endpoint := fmt.Sprintf("%s/v2/actor-runs/%s", f.opts.BaseURL, url.PathEscape(run.ID))

	for attempt := 1; attempt <= f.opts.MaxPolls; attempt++ {
		if err := f.sleep(ctx, f.opts.StatusInterval); err != nil {
			return apifyRun{}, newFetchError(StrategyApify, KindTimeout, "wait for run %s: %w", run.ID, err)
		}

		current, err := f.runStatus(ctx, endpoint)
		if err != nil {
			f.log.WarnObj("apify status poll failed", "apify_poll", map[string]any{
				"run_id":  run.ID,
				"attempt": attempt,
				"error":   err.Error(),
			})
			continue
		}

		switch current.Status {
		case apifyStatusSucceeded:
			if current.DefaultDatasetID == "" {
				current.DefaultDatasetID = run.DefaultDatasetID
			}
			if current.DefaultDatasetID == "" {
				return apifyRun{}, newFetchError(StrategyApify, KindSchema, "run %s succeeded without a dataset id", run.ID)
			}
			return current, nil
		case apifyStatusFailed, apifyStatusAborted:
			return apifyRun{}, newFetchError(StrategyApify, KindUpstreamFailed, "run %s ended with status %s", run.ID, current.Status)
		case apifyStatusTimedOut:
			return apifyRun{}, newFetchError(StrategyApify, KindTimeout, "run %s timed out upstream", run.ID)
		}

		f.log.DebugObj("apify run pending", "apify_poll", map[string]any{
			"run_id":  run.ID,
			"attempt": attempt,
			"status":  current.Status,
		})
	}

	return apifyRun{}, newFetchError(StrategyApify, KindTimeout, "run %s not finished after %d polls", run.ID, f.opts.MaxPolls)
}

func (f *apifyFetcher) runStatus(ctx context.Context, endpoint string) (apifyRun, error) {
	resp, err := f.client.Get(ctx, endpoint, f.authHeaders())
	if err != nil {
		return apifyRun{}, err
	}
	if !httpclient.IsSuccess(resp) {
		return apifyRun{}, fmt.Errorf("status %d body: %s", resp.StatusCode(), responseSnippet(resp.Body()))
	}
	return decodeRun(resp.Body())
}

func decodeRun(body []byte) (apifyRun, error) {
	var env apifyRunEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return apifyRun{}, err
	}
	if env.Data == nil || strings.TrimSpace(env.Data.ID) == "" {
		return apifyRun{}, errors.New("response has no run id")
	}
	env.Data.Status = strings.ToUpper(strings.TrimSpace(env.Data.Status))
	return *env.Data, nil
}

func (f *apifyFetcher) latestFromDataset(ctx context.Context, datasetID string) (domain.PostRecord, error) {
	endpoint := fmt.Sprintf("%s/v2/datasets/%s/items?clean=true&format=json", f.opts.BaseURL, url.PathEscape(datasetID))

	resp, err := f.client.Get(ctx, endpoint, f.authHeaders())
	if err != nil {
		return domain.PostRecord{}, newFetchError(StrategyApify, KindNetwork, "get dataset items: %w", err)
	}
	if !httpclient.IsSuccess(resp) {
		return domain.PostRecord{}, newFetchError(StrategyApify, KindNetwork,
			"dataset items returned status %d body: %s", resp.StatusCode(), responseSnippet(resp.Body()))
	}

	var items []apifyDatasetItem
	if err := json.Unmarshal(resp.Body(), &items); err != nil {
		return domain.PostRecord{}, newFetchError(StrategyApify, KindParse, "decode dataset items: %w", err)
	}
	if len(items) == 0 || len(items[0].LatestPosts) == 0 {
		return domain.PostRecord{}, ErrNoResult
	}

	code := strings.TrimSpace(items[0].LatestPosts[0].ShortCode)
	if code == "" {
		return domain.PostRecord{}, ErrNoResult
	}
	return domain.PostRecord{URL: fmt.Sprintf(f.postURLTemplate, url.PathEscape(code))}, nil
}
