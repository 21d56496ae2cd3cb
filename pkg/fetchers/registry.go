package fetchers

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jewel-tree/profile-post-watcher/pkg/httpclient"
)

const (
	StrategyDirect = "direct"
	StrategyApify  = "apify"

	defaultProfileURLTemplate = "https://www.instagram.com/%s/"
	defaultPostURLTemplate    = "https://www.instagram.com/p/%s/"
	defaultRequestTimeout     = 10 * time.Second
)

// Options carries everything a strategy needs to build itself.
type Options struct {
	Username           string
	ProfileURLTemplate string
	PostURLTemplate    string
	RequestTimeout     time.Duration

	UserAgent      string
	Accept         string
	AcceptLanguage string
	CacheControl   string

	Apify ApifyOptions
}

// Headers builds the request headers for direct page retrieval (skips empty values).
func (o Options) Headers() map[string]string {
	headers := make(map[string]string, 4)
	if v := strings.TrimSpace(o.UserAgent); v != "" {
		headers["User-Agent"] = v
	}
	if v := strings.TrimSpace(o.Accept); v != "" {
		headers["Accept"] = v
	}
	if v := strings.TrimSpace(o.AcceptLanguage); v != "" {
		headers["Accept-Language"] = v
	}
	if v := strings.TrimSpace(o.CacheControl); v != "" {
		headers["Cache-Control"] = v
	}
	return headers
}

func (o Options) normalized() (Options, error) {
	o.Username = strings.TrimPrefix(strings.TrimSpace(o.Username), "@")
	if o.Username == "" {
		return o, fmt.Errorf("username is required")
	}
	if strings.TrimSpace(o.ProfileURLTemplate) == "" {
		o.ProfileURLTemplate = defaultProfileURLTemplate
	}
	if strings.TrimSpace(o.PostURLTemplate) == "" {
		o.PostURLTemplate = defaultPostURLTemplate
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = defaultRequestTimeout
	}
	return o, nil
}

// Builder creates a Fetcher for one strategy.
type Builder func(opts Options, client HTTPClient, log Logger) (Fetcher, error)

// Registry maps strategy names to builders.
type Registry struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// NewRegistry returns a registry with optional pre-registered builders.
func NewRegistry(builders map[string]Builder) *Registry {
	r := &Registry{builders: make(map[string]Builder)}
	for name, b := range builders {
		r.Register(name, b)
	}
	return r
}

// Register associates a builder with a strategy name.
func (r *Registry) Register(name string, builder Builder) {
	if name = strings.TrimSpace(strings.ToLower(name)); name == "" || builder == nil {
		return
	}
	r.mu.Lock()
	r.builders[name] = builder
	r.mu.Unlock()
}

// Build selects the strategy once and constructs its Fetcher. A nil client gets
// a resty client using opts.RequestTimeout.
func (r *Registry) Build(strategy string, opts Options, client HTTPClient, log Logger) (Fetcher, error) {
	if r == nil {
		return nil, fmt.Errorf("fetcher registry is nil")
	}
	key := strings.ToLower(strings.TrimSpace(strategy))

	r.mu.RLock()
	builder := r.builders[key]
	r.mu.RUnlock()
	if builder == nil {
		return nil, fmt.Errorf("no fetcher registered for strategy %q", strategy)
	}

	opts, err := opts.normalized()
	if err != nil {
		return nil, fmt.Errorf("%s fetcher options: %w", key, err)
	}
	if client == nil {
		client = httpclient.NewRestyClient(opts.RequestTimeout)
	}
	return builder(opts, client, ensureLogger(log))
}

// DefaultRegistry wires up the known strategies.
func DefaultRegistry() *Registry {
	return NewRegistry(map[string]Builder{
		StrategyDirect: newDirectFetcher,
		StrategyApify:  newApifyFetcher,
	})
}
