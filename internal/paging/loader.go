// ABOUTME: Generic page-at-a-time loader for infinite lists.
// ABOUTME: One request in flight, same-page retry on error, and stale-response discard after Reset.
package paging

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/2389-research/sociality/internal/models"
)

var (
	// ErrBusy means a page request is already outstanding.
	ErrBusy = errors.New("page request already in flight")
	// ErrExhausted means the last page came back empty.
	ErrExhausted = errors.New("no more pages")
	// ErrStale means the loader was reset while the request was outstanding.
	ErrStale = errors.New("response discarded after reset")
)

// DefaultLimit is the page size used when none is configured.
const DefaultLimit = 10

// FetchFunc loads one page.
type FetchFunc[T any] func(ctx context.Context, page, limit int) ([]T, error)

// FromPages adapts an API list call into a FetchFunc.
func FromPages[T any](fn func(ctx context.Context, page, limit int) (models.Page[T], error)) FetchFunc[T] {
	return func(ctx context.Context, page, limit int) ([]T, error) {
		p, err := fn(ctx, page, limit)
		if err != nil {
			return nil, err
		}
		return p.Items, nil
	}
}

// Loader accumulates pages from a FetchFunc.
type Loader[T any] struct {
	fetch FetchFunc[T]
	limit int
	log   *zap.Logger

	mu       sync.Mutex
	page     int
	items    []T
	hasMore  bool
	fetching bool
	gen      uint64
}

// New creates a loader positioned at page 1.
func New[T any](fetch FetchFunc[T], limit int, log *zap.Logger) *Loader[T] {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader[T]{fetch: fetch, limit: limit, log: log, page: 1, hasMore: true}
}

// Next fetches the next page and returns its items.
func (l *Loader[T]) Next(ctx context.Context) ([]T, error) {
	l.mu.Lock()
	if l.fetching {
		l.mu.Unlock()
		return nil, ErrBusy
	}
	if !l.hasMore {
		l.mu.Unlock()
		return nil, ErrExhausted
	}
	l.fetching = true
	page, gen := l.page, l.gen
	l.mu.Unlock()

	items, err := l.fetch(ctx, page, l.limit)

	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		l.log.Debug("discarding stale page", zap.Int("page", page))
		return nil, ErrStale
	}
	l.fetching = false
	if err != nil {
		l.log.Warn("page load failed", zap.Int("page", page), zap.Error(err))
		return nil, fmt.Errorf("failed to load page %d: %w", page, err)
	}

	if page == 1 {
		l.items = append([]T(nil), items...)
	} else {
		l.items = append(l.items, items...)
	}
	l.hasMore = len(items) > 0
	if l.hasMore {
		l.page++
	}
	return items, nil
}

// Reset empties the loader and rewinds it to page 1. Responses to requests
// issued before the reset are discarded.
func (l *Loader[T]) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen++
	l.page = 1
	l.items = nil
	l.hasMore = true
	l.fetching = false
}

// Refresh resets the loader and fetches page 1.
func (l *Loader[T]) Refresh(ctx context.Context) ([]T, error) {
	l.Reset()
	return l.Next(ctx)
}

// Update edits the accumulated items in place.
func (l *Loader[T]) Update(fn func(items []T)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(l.items)
}

// Remove drops every item for which drop returns true.
func (l *Loader[T]) Remove(drop func(T) bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.items[:0]
	for _, it := range l.items {
		if !drop(it) {
			kept = append(kept, it)
		}
	}
	l.items = kept
}

// Items returns a copy of the accumulated items.
func (l *Loader[T]) Items() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]T(nil), l.items...)
}

// Len returns the number of accumulated items.
func (l *Loader[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// HasMore reports whether another page may exist.
func (l *Loader[T]) HasMore() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hasMore
}

// Fetching reports whether a request is outstanding.
func (l *Loader[T]) Fetching() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fetching
}

// Page returns the page the next call to Next will request.
func (l *Loader[T]) Page() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.page
}

// NearBottom reports whether a viewport showing rows [offset, offset+visible)
// of total rows is within threshold rows of the end.
func NearBottom(offset, visible, total, threshold int) bool {
	if total <= 0 {
		return true
	}
	return offset+visible >= total-threshold
}
