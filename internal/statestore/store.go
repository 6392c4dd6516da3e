// Package statestore holds a flat property bag that is persisted to a single
// slot of a key-value backing store and announces every change to registered
// listeners.
//
// A Store is not safe for concurrent use. Every mutation runs to completion,
// including listener calls, before it returns.
package statestore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"statebag/internal/metrics"
	"statebag/internal/state"

	"go.uber.org/zap"
)

// Listener is a change callback. Registrations are matched by pointer
// identity, so keep the *Listener returned by NewListener to unsubscribe.
type Listener struct {
	fn func()
}

func NewListener(fn func()) *Listener {
	return &Listener{fn: fn}
}

func (l *Listener) notify() {
	if l != nil && l.fn != nil {
		l.fn()
	}
}

type Option func(*Store)

func WithLogger(log *zap.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) {
		if m != nil {
			s.metrics = m
		}
	}
}

func WithCodec(c Codec) Option {
	return func(s *Store) {
		if c != nil {
			s.codec = c
		}
	}
}

// WithStrictLoad makes Open fail with *CorruptStateError when the persisted
// payload cannot be decoded, instead of starting from an empty bag.
func WithStrictLoad() Option {
	return func(s *Store) {
		s.strict = true
	}
}

type Store struct {
	key     string
	backend state.Store
	codec   Codec
	log     *zap.Logger
	metrics *metrics.Metrics
	strict  bool

	state     map[string]any
	listeners []*Listener
}

// Open loads the bag persisted under key with a single backend read. A missing
// or empty slot yields an empty bag. Any string is a valid key, including "".
func Open(ctx context.Context, key string, backend state.Store, opts ...Option) (*Store, error) {
	if backend == nil {
		return nil, errors.New("backing store is required")
	}
	s := &Store{
		key:     key,
		backend: backend,
		codec:   JSONCodec{},
		log:     zap.NewNop(),
		metrics: metrics.NewNoop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	loaded, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	s.state = loaded
	return s, nil
}

func (s *Store) load(ctx context.Context) (map[string]any, error) {
	raw, ok, err := s.backend.Get(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("load state %q: %w", s.key, err)
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return make(map[string]any), nil
	}
	decoded, err := s.codec.Decode(raw)
	if err != nil {
		s.metrics.LoadCorrupt.Inc()
		corrupt := &CorruptStateError{Key: s.key, Codec: s.codec.Name(), Err: err}
		if s.strict {
			return nil, corrupt
		}
		s.log.Warn("discarding undecodable state",
			zap.String("key", s.key),
			zap.String("codec", s.codec.Name()),
			zap.Int("payload_bytes", len(raw)),
			zap.Error(err),
		)
		return make(map[string]any), nil
	}
	return decoded, nil
}

func (s *Store) Key() string {
	return s.key
}

// AddProperty inserts name only if it is not already present. It reports
// whether the bag changed; an existing key is left untouched without error.
func (s *Store) AddProperty(ctx context.Context, name string, value any) (bool, error) {
	if _, exists := s.state[name]; exists {
		s.skip("add", name)
		return false, nil
	}
	s.state[name] = value
	return true, s.commit(ctx, "add", name)
}

// UpdateProperty overwrites name only if it is already present. It never
// creates keys.
func (s *Store) UpdateProperty(ctx context.Context, name string, value any) (bool, error) {
	if _, exists := s.state[name]; !exists {
		s.skip("update", name)
		return false, nil
	}
	s.state[name] = value
	return true, s.commit(ctx, "update", name)
}

func (s *Store) RemoveProperty(ctx context.Context, name string) (bool, error) {
	if _, exists := s.state[name]; !exists {
		s.skip("remove", name)
		return false, nil
	}
	delete(s.state, name)
	return true, s.commit(ctx, "remove", name)
}

// Property returns a single value from the bag.
func (s *Store) Property(name string) (any, bool) {
	v, ok := s.state[name]
	return v, ok
}

// Subscribe appends l to the listener list. The same listener may be
// registered more than once and is then called once per registration.
func (s *Store) Subscribe(l *Listener) {
	s.listeners = append(s.listeners, l)
}

// Unsubscribe drops every registration of l.
func (s *Store) Unsubscribe(l *Listener) {
	kept := make([]*Listener, 0, len(s.listeners))
	for _, existing := range s.listeners {
		if existing != l {
			kept = append(kept, existing)
		}
	}
	s.listeners = kept
}

// State returns the live bag. Writing to it directly skips persistence and
// notification.
func (s *Store) State() map[string]any {
	return s.state
}

// Listeners returns the live listener slice.
func (s *Store) Listeners() []*Listener {
	return s.listeners
}

// commit writes the whole bag and then notifies listeners. A failed write
// leaves the in-memory change in place and skips notification.
func (s *Store) commit(ctx context.Context, op, name string) error {
	payload, err := s.codec.Encode(s.state)
	if err != nil {
		s.metrics.PersistFailed.Inc()
		return fmt.Errorf("%s %q: encode state: %w", op, name, err)
	}
	if err := s.backend.Set(ctx, s.key, payload); err != nil {
		s.metrics.PersistFailed.Inc()
		s.log.Warn("state write failed",
			zap.String("key", s.key),
			zap.String("op", op),
			zap.String("property", name),
			zap.Error(err),
		)
		return fmt.Errorf("%s %q: write state: %w", op, name, err)
	}
	s.metrics.MutationsApplied.Inc()
	s.log.Debug("state changed",
		zap.String("key", s.key),
		zap.String("op", op),
		zap.String("property", name),
		zap.Int("properties", len(s.state)),
	)
	s.notify()
	return nil
}

// notify ranges over the slice as it stood when the round began: Unsubscribe
// swaps in a new slice and Subscribe appends past this round's length.
func (s *Store) notify() {
	for _, l := range s.listeners {
		s.metrics.Notifications.Inc()
		l.notify()
	}
}

func (s *Store) skip(op, name string) {
	s.metrics.MutationsSkipped.Inc()
	s.log.Debug("state mutation skipped",
		zap.String("key", s.key),
		zap.String("op", op),
		zap.String("property", name),
	)
}
