// ABOUTME: Optimistic toggling of binary relations (like, save, follow) with rollback.
// ABOUTME: At most one request per key is in flight; the latest displayed intent wins.
package engage

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// Kind names a relation type.
type Kind string

const (
	KindLike   Kind = "like"
	KindSave   Kind = "save"
	KindFollow Kind = "follow"
)

// Counted reports whether toggling this kind moves a visible count.
func (k Kind) Counted() bool {
	return k != KindSave
}

// Key identifies one relation between the current user and a target.
type Key struct {
	Kind Kind
	ID   string
}

// State is the displayed or confirmed value of a relation.
type State struct {
	Active bool
	Count  int
}

// visible clamps the count for display. Entries keep the exact count so
// every toggle moves it by one even when the seeded count was stale.
func (s State) visible() State {
	if s.Count < 0 {
		s.Count = 0
	}
	return s
}

// Change is published when a key settles after talking to the server.
// Err is set when the request failed and the state was rolled back.
type Change struct {
	Key   Key
	State State
	Err   error
}

// Remote performs the create (active=true) or delete (active=false) call.
type Remote func(ctx context.Context, key Key, active bool) error

// ErrInvalidKey is returned for keys without a kind or ID.
var ErrInvalidKey = errors.New("invalid engagement key")

type entry struct {
	shown     State
	confirmed State
	inflight  bool
	ctx       context.Context
}

// Toggler tracks relation state per key.
type Toggler struct {
	remote  Remote
	log     *zap.Logger
	onError func(Key, error)

	mu      sync.Mutex
	entries map[Key]*entry
	changes chan Change
	wg      sync.WaitGroup
}

// Option configures a Toggler.
type Option func(*Toggler)

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(t *Toggler) {
		if log != nil {
			t.log = log
		}
	}
}

// WithErrorHandler registers a callback for failed requests. It runs after
// the rollback has been applied.
func WithErrorHandler(fn func(Key, error)) Option {
	return func(t *Toggler) {
		t.onError = fn
	}
}

// New creates a Toggler that syncs through remote.
func New(remote Remote, opts ...Option) *Toggler {
	t := &Toggler{
		remote:  remote,
		log:     zap.NewNop(),
		entries: make(map[Key]*entry),
		changes: make(chan Change, 64),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Track seeds a key from freshly fetched data. Seeding is ignored while a
// request for the key is outstanding, since the fetched value may predate it.
func (t *Toggler) Track(key Key, s State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[key]
	if !ok {
		t.entries[key] = &entry{shown: s, confirmed: s}
		return
	}
	if e.inflight {
		return
	}
	e.shown = s
	e.confirmed = s
}

// State returns the displayed state of key.
func (t *Toggler) State(key Key) State {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[key]; ok {
		return e.shown.visible()
	}
	return State{}
}

func (t *Toggler) lookup(key Key) (State, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[key]
	if !ok {
		return State{}, false
	}
	return e.shown.visible(), true
}

// Pending reports whether a request for key is outstanding.
func (t *Toggler) Pending(key Key) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[key]
	return ok && e.inflight
}

// Toggle flips the displayed state of key and returns it. The server call
// happens in the background; ctx bounds it.
func (t *Toggler) Toggle(ctx context.Context, key Key) (State, error) {
	if key.Kind == "" || key.ID == "" {
		return State{}, ErrInvalidKey
	}

	t.mu.Lock()
	e, ok := t.entries[key]
	if !ok {
		e = &entry{}
		t.entries[key] = e
	}
	e.shown = flip(key.Kind, e.shown)
	e.ctx = ctx
	shown := e.shown.visible()
	start := !e.inflight
	if start {
		e.inflight = true
		t.wg.Add(1)
	}
	t.mu.Unlock()

	if start {
		go t.sync(ctx, key, shown.Active)
	} else {
		t.log.Debug("toggle queued behind in-flight request",
			zap.String("kind", string(key.Kind)), zap.String("id", key.ID), zap.Bool("active", shown.Active))
	}
	return shown, nil
}

// Wait blocks until every outstanding request has settled.
func (t *Toggler) Wait() {
	t.wg.Wait()
}

// Changes delivers settle notifications. Notifications are dropped when the
// buffer is full; readers should treat a Change as a hint and read State.
func (t *Toggler) Changes() <-chan Change {
	return t.changes
}

func (t *Toggler) sync(ctx context.Context, key Key, target bool) {
	defer t.wg.Done()
	for {
		err := t.remote(ctx, key, target)

		t.mu.Lock()
		e := t.entries[key]
		if err != nil {
			e.shown = e.confirmed
			e.inflight = false
			state := e.shown.visible()
			t.mu.Unlock()

			t.log.Warn("engagement request failed, rolled back",
				zap.String("kind", string(key.Kind)), zap.String("id", key.ID), zap.Error(err))
			t.publish(Change{Key: key, State: state, Err: err})
			if t.onError != nil {
				t.onError(key, err)
			}
			return
		}

		if e.confirmed.Active != target {
			e.confirmed = flip(key.Kind, e.confirmed)
		}
		if e.shown.Active != target {
			target = e.shown.Active
			ctx = e.ctx
			t.mu.Unlock()
			continue
		}
		e.shown = e.confirmed
		e.inflight = false
		state := e.shown.visible()
		t.mu.Unlock()

		t.publish(Change{Key: key, State: state})
		return
	}
}

func (t *Toggler) publish(c Change) {
	select {
	case t.changes <- c:
	default:
		t.log.Debug("dropping engagement change, buffer full", zap.String("id", c.Key.ID))
	}
}

func flip(kind Kind, s State) State {
	s.Active = !s.Active
	if !kind.Counted() {
		return s
	}
	if s.Active {
		s.Count++
	} else {
		s.Count--
	}
	return s
}
