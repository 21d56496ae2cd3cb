// Package storage persists the last-seen post identifier.
package storage

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Store holds a single durable slot with the URL of the last acknowledged post.
type Store interface {
	Close() error
	// LastSeen returns the stored URL; ok is false when nothing has been stored yet.
	LastSeen() (url string, ok bool, err error)
	// SaveLastSeen replaces the stored URL.
	SaveLastSeen(url string) error
}

// Options controls slot naming and open behaviour for concrete store implementations.
type Options struct {
	// Slot names the key or row holding the value (bbolt, sqlite, memory).
	Slot string
	// OpenTimeout bounds waiting for the bbolt file lock.
	OpenTimeout time.Duration
}

const (
	TypeFile   = "file"
	TypeBBolt  = "bbolt"
	TypeSQLite = "sqlite"
	TypeMemory = "memory"

	defaultSlot        = "last_post_url"
	defaultOpenTimeout = time.Second
)

// ErrEmptyURL is returned when asked to persist a blank identifier.
var ErrEmptyURL = errors.New("refusing to store empty post url")

// StoreError reports an unreadable or unwritable storage backend.
type StoreError struct {
	Op      string
	Backend string
	Err     error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s store %s: %v", e.Backend, e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Kind mirrors the fetch error taxonomy; every storage failure is an io failure.
func (e *StoreError) Kind() string { return "io" }

func ioError(backend, op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Backend: backend, Err: err}
}

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case TypeMemory:
		return NewMemoryStore(), nil
	case "", TypeFile:
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("file storage requires a path")
		}
		return openFile(path)
	case TypeBBolt:
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	case TypeSQLite:
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("sqlite storage requires a path")
		}
		return openSQLite(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	opts.Slot = strings.TrimSpace(opts.Slot)
	if opts.Slot == "" {
		opts.Slot = defaultSlot
	}
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = defaultOpenTimeout
	}
	return opts
}

func cleanURL(url string) (string, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return "", ErrEmptyURL
	}
	return url, nil
}
