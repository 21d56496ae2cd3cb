package fetchers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jewel-tree/profile-post-watcher/internal/domain"
	"github.com/jewel-tree/profile-post-watcher/pkg/httpclient"
)

// directFetcher scrapes the public profile page and reads the embedded ld+json block.
type directFetcher struct {
	client     HTTPClient
	profileURL string
	headers    map[string]string
	log        Logger
}

func newDirectFetcher(opts Options, client HTTPClient, log Logger) (Fetcher, error) {
	if !strings.Contains(opts.ProfileURLTemplate, "%s") {
		return nil, fmt.Errorf("profile url template %q has no %%s placeholder", opts.ProfileURLTemplate)
	}
	return &directFetcher{
		client:     client,
		profileURL: fmt.Sprintf(opts.ProfileURLTemplate, opts.Username),
		headers:    opts.Headers(),
		log:        log,
	}, nil
}

func (f *directFetcher) Strategy() string { return StrategyDirect }

// FetchLatest returns the first entry of the profile's item list.
func (f *directFetcher) FetchLatest(ctx context.Context) (domain.PostRecord, error) {
	resp, err := f.client.Get(ctx, f.profileURL, f.headers)
	if err != nil {
		return domain.PostRecord{}, newFetchError(StrategyDirect, KindNetwork, "get %s: %w", f.profileURL, err)
	}
	body := resp.Body()
	if !httpclient.IsSuccess(resp) {
		return domain.PostRecord{}, newFetchError(StrategyDirect, KindNetwork,
			"profile page returned status %d body: %s", resp.StatusCode(), responseSnippet(body))
	}
	f.log.DebugObj("profile page fetched", "direct_fetch", map[string]any{
		"url":        f.profileURL,
		"body_bytes": len(body),
	})

	raw, err := extractLDJSON(body)
	if err != nil {
		return domain.PostRecord{}, &FetchError{Kind: KindParse, Strategy: StrategyDirect, Err: err}
	}
	return latestFromLDJSON(raw)
}

// extractLDJSON returns the content of the first application/ld+json script block.
func extractLDJSON(body []byte) ([]byte, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	node := doc.Find(`script[type="application/ld+json"]`).First()
	if node.Length() == 0 {
		return nil, errors.New("no application/ld+json block in profile page")
	}

	raw := bytes.TrimSpace([]byte(node.Text()))
	if !json.Valid(raw) {
		return nil, errors.New("ld+json block is not valid JSON")
	}
	return raw, nil
}

type ldProfile struct {
	ItemListElement []struct {
		Item *struct {
			URL string `json:"url"`
		} `json:"item"`
	} `json:"itemListElement"`
}

func latestFromLDJSON(raw []byte) (domain.PostRecord, error) {
	var profile ldProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return domain.PostRecord{}, newFetchError(StrategyDirect, KindSchema, "decode ld+json profile: %w", err)
	}
	if len(profile.ItemListElement) == 0 {
		return domain.PostRecord{}, newFetchError(StrategyDirect, KindSchema, "itemListElement is missing or empty")
	}

	item := profile.ItemListElement[0].Item
	if item == nil {
		return domain.PostRecord{}, newFetchError(StrategyDirect, KindSchema, "itemListElement[0].item is missing")
	}
	url := strings.TrimSpace(item.URL)
	if url == "" {
		return domain.PostRecord{}, newFetchError(StrategyDirect, KindSchema, "itemListElement[0].item.url is missing")
	}
	return domain.PostRecord{URL: url}, nil
}
