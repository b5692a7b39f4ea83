// Package session keeps the per-customer checkout context: cart, extras wizard
// and the submission guard. Sessions are keyed by an opaque id the client sends
// back in the X-Session-ID header.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yeremiapane/storefront-orders/cart"
	"github.com/yeremiapane/storefront-orders/extras"
)

var ErrSubmitInProgress = errors.New("an order submission is already in progress")

// Session is locked by its handler for the duration of one request.
type Session struct {
	ID       string
	TenantID uint

	mu         sync.Mutex
	Cart       *cart.Cart
	Wizard     *extras.Wizard
	submitting bool
	lastSeen   time.Time
}

func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

// ResetCheckout forgets any extras flow in progress. Called whenever the cart
// changes so a stale plan is never confirmed against a different cart.
func (s *Session) ResetCheckout() {
	if s.Wizard != nil {
		s.Wizard.Cancel()
		s.Wizard = nil
	}
}

// BeginSubmit marks the session as submitting. Callers must hold the lock.
func (s *Session) BeginSubmit() error {
	if s.submitting {
		return ErrSubmitInProgress
	}
	s.submitting = true
	return nil
}

// Submitting reports whether an order is being written from this session.
// Callers must hold the lock.
func (s *Session) Submitting() bool {
	return s.submitting
}

// EndSubmit clears the submission mark. Callers must hold the lock.
func (s *Session) EndSubmit() {
	s.submitting = false
}

type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

func NewStore(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Get returns the tenant's session with the given id. A session belonging to a
// different tenant is reported as missing.
func (st *Store) Get(tenantID uint, id string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.sessions[id]
	if !ok || s.TenantID != tenantID {
		return nil, false
	}
	s.lastSeen = st.now()
	return s, true
}

// GetOrCreate returns the existing session or starts a new one with a fresh id.
func (st *Store) GetOrCreate(tenantID uint, id string) (*Session, bool) {
	if id != "" {
		if s, ok := st.Get(tenantID, id); ok {
			return s, false
		}
	}

	s := &Session{
		ID:       uuid.NewString(),
		TenantID: tenantID,
		Cart:     cart.New(),
	}

	st.mu.Lock()
	s.lastSeen = st.now()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	return s, true
}

// Sweep drops sessions idle for longer than the TTL and returns how many went.
func (st *Store) Sweep() int {
	st.mu.Lock()
	defer st.mu.Unlock()

	cutoff := st.now().Add(-st.ttl)
	removed := 0
	for id, s := range st.sessions {
		if s.lastSeen.Before(cutoff) {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}

func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}
