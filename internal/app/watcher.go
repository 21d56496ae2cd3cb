package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/jewel-tree/profile-post-watcher/internal/config"
	"github.com/jewel-tree/profile-post-watcher/internal/detector"
	"github.com/jewel-tree/profile-post-watcher/internal/logger"
	"github.com/jewel-tree/profile-post-watcher/internal/storage"
	"github.com/jewel-tree/profile-post-watcher/pkg/fetchers"
	"github.com/jewel-tree/profile-post-watcher/pkg/publishers"
)

// Watcher is the runtime for one watched profile. It owns the check loop and
// hands every newly detected post to the publishers fanout.
type Watcher struct {
	cfg      *config.Config
	fetcher  fetchers.Fetcher
	detector *detector.Detector
	fanout   *publishers.Fanout
	store    storage.Store
	interval time.Duration
	log      logger.Logger
}

// NewWatcher builds a watcher runtime from config.
func NewWatcher(ctx context.Context, cfg *config.Config, log logger.Logger) (*Watcher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	log = logger.Ensure(log)
	if ctx == nil {
		ctx = context.Background()
	}

	fetcher, err := fetchers.DefaultRegistry().Build(cfg.FetchStrategy, FetcherOptions(cfg), nil, log)
	if err != nil {
		return nil, fmt.Errorf("init fetcher: %w", err)
	}
	log.InfoObj("fetcher initialized", "fetcher_config", map[string]any{
		"strategy": fetcher.Strategy(),
		"username": cfg.TargetUsername,
	})

	fanout, err := buildFanout(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	store, err := OpenStore(cfg)
	if err != nil {
		_ = fanout.Close()
		return nil, err
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type": cfg.StorageType,
		"path": cfg.StoragePath,
		"slot": cfg.StorageSlot,
	})

	w, err := newWatcher(cfg, fetcher, store, fanout, log)
	if err != nil {
		_ = store.Close()
		_ = fanout.Close()
		return nil, err
	}
	return w, nil
}

func newWatcher(cfg *config.Config, fetcher fetchers.Fetcher, store storage.Store, fanout *publishers.Fanout, log logger.Logger) (*Watcher, error) {
	det, err := detector.New(fetcher, store, log)
	if err != nil {
		return nil, fmt.Errorf("init detector: %w", err)
	}
	return &Watcher{
		cfg:      cfg,
		fetcher:  fetcher,
		detector: det,
		fanout:   fanout,
		store:    store,
		interval: cfg.PollInterval,
		log:      logger.Ensure(log),
	}, nil
}

// FetcherOptions maps config onto fetcher construction options.
func FetcherOptions(cfg *config.Config) fetchers.Options {
	return fetchers.Options{
		Username:           cfg.TargetUsername,
		ProfileURLTemplate: cfg.ProfileURLTemplate,
		PostURLTemplate:    cfg.PostURLTemplate,
		RequestTimeout:     cfg.RequestTimeout,
		UserAgent:          cfg.UserAgent,
		Apify: fetchers.ApifyOptions{
			Token:          cfg.ApifyToken,
			BaseURL:        cfg.ApifyBaseURL,
			ActorID:        cfg.ApifyActorID,
			MemoryMB:       cfg.ApifyMemoryMB,
			RunTimeout:     cfg.ApifyRunTimeout,
			StatusInterval: cfg.ApifyStatusInterval,
			MaxPolls:       cfg.ApifyMaxPolls,
		},
	}
}

// OpenStore opens the configured state backend.
func OpenStore(cfg *config.Config) (storage.Store, error) {
	store, err := storage.NewStore(cfg.StorageType, cfg.StoragePath, storage.Options{Slot: cfg.StorageSlot})
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	return store, nil
}

// buildFanout loads enabled publishers. A missing publishers file falls back to
// a single log publisher so the notification still shows up somewhere.
func buildFanout(ctx context.Context, cfg *config.Config, log logger.Logger) (*publishers.Fanout, error) {
	var enabled []publishers.PublisherConfig

	reg, err := publishers.LoadRegistry(cfg.PublishersFile)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.WarnObj("publishers file not found; logging notifications only", "publishers_file", cfg.PublishersFile)
		enabled = []publishers.PublisherConfig{{ID: "log", Type: publishers.TypeLog}}
	case err != nil:
		return nil, fmt.Errorf("load publishers registry: %w", err)
	default:
		enabled = reg.Enabled()
	}
	if len(enabled) == 0 {
		return nil, fmt.Errorf("no publishers enabled")
	}

	pubClients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, pubCfg := range enabled {
		summaries = append(summaries, map[string]string{"id": pubCfg.ID, "type": pubCfg.Type})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return publishers.NewFanout(pubClients), nil
}

// Run checks immediately, then on every poll interval until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if w == nil || w.detector == nil {
		return fmt.Errorf("watcher is not initialized")
	}
	defer w.Close()

	w.log.InfoObj("watcher loop starting", "watcher_state", map[string]any{
		"username":         w.cfg.TargetUsername,
		"strategy":         w.fetcher.Strategy(),
		"publishers_count": w.fanout.Size(),
		"poll_interval":    w.interval.String(),
	})

	w.runOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.InfoObj("watcher loop exiting", "reason", ctx.Err().Error())
			return nil
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

// CheckOnce runs a single cycle, publishing a detected post, and reports the outcome.
func (w *Watcher) CheckOnce(ctx context.Context) (detector.Result, error) {
	if w == nil || w.detector == nil {
		return detector.Result{}, fmt.Errorf("watcher is not initialized")
	}
	return w.runOnce(ctx)
}

// runOnce performs one detection cycle. Failures are logged and never stop the loop.
func (w *Watcher) runOnce(ctx context.Context) (detector.Result, error) {
	start := time.Now()
	res := w.detector.Check(ctx)

	if !res.IsNew() {
		if res.Status == detector.StatusUnchanged {
			w.log.InfoObj("No new post detected.", "check_meta", map[string]any{
				"username":   w.cfg.TargetUsername,
				"elapsed_ms": time.Since(start).Milliseconds(),
			})
		}
		return res, nil
	}

	evt := publishers.NewEvent(w.cfg.TargetUsername, w.fetcher.Strategy(), res.URL, w.cfg.NotifyTemplate)
	delivered, err := w.fanout.Publish(ctx, evt)
	if err != nil {
		w.log.ErrorObj("notification delivery failed", "publish_error", map[string]any{
			"post_url":   res.URL,
			"delivered":  delivered,
			"publishers": w.fanout.Size(),
			"error":      err.Error(),
		})
		return res, err
	}
	w.log.InfoObj("new post published", "check_meta", map[string]any{
		"post_url":   res.URL,
		"delivered":  delivered,
		"publishers": w.fanout.Size(),
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	return res, nil
}

// Close releases the store and publisher clients.
func (w *Watcher) Close() {
	if w == nil {
		return
	}
	if w.store != nil {
		if err := w.store.Close(); err != nil {
			w.log.ErrorObj("storage close failed", "error", err.Error())
		}
		w.store = nil
	}
	if err := w.fanout.Close(); err != nil {
		w.log.ErrorObj("publisher close failed", "error", err.Error())
	}
	w.fanout = nil
}
