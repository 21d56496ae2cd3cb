package fetchers

import (
	"context"

	"github.com/jewel-tree/profile-post-watcher/internal/domain"
	"github.com/jewel-tree/profile-post-watcher/pkg/httpclient"
)

// Fetcher retrieves the most recent post of the watched profile.
// Implementations return ErrNoResult (possibly wrapped) when there is nothing to report
// and a *FetchError for unrecoverable conditions.
type Fetcher interface {
	Strategy() string
	FetchLatest(ctx context.Context) (domain.PostRecord, error)
}

// HTTPClient aliases the shared httpclient.Client interface for clarity within fetchers.
type HTTPClient = httpclient.Client

// Logger defines the logging surface fetchers rely on.
type Logger interface {
	InfoObj(msg, key string, obj interface{})
	DebugObj(msg, key string, obj interface{})
	WarnObj(msg, key string, obj interface{})
	ErrorObj(msg, key string, obj interface{})
}

type noopLogger struct{}

func (noopLogger) InfoObj(string, string, interface{})  {}
func (noopLogger) DebugObj(string, string, interface{}) {}
func (noopLogger) WarnObj(string, string, interface{})  {}
func (noopLogger) ErrorObj(string, string, interface{}) {}

func ensureLogger(log Logger) Logger {
	if log == nil {
		return noopLogger{}
	}
	return log
}
