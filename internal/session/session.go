// Package session provides per-client storage for uploaded ECG and EEG
// datasets. Each client is identified by an X-Session-ID header; records
// expire after a TTL so abandoned uploads do not accumulate.
package session

import (
	"time"

	"github.com/google/uuid"
	cache "github.com/patrickmn/go-cache"

	"github.com/siglab/siglab-go/internal/errors"
)

// HeaderName is the HTTP header carrying the session identifier.
const HeaderName = "X-Session-ID"

// Store holds session-scoped records with automatic expiry.
type Store struct {
	cache *cache.Cache
}

// NewStore creates a Store whose records expire after ttl and are swept
// every cleanupInterval.
func NewStore(ttl, cleanupInterval time.Duration) *Store {
	return &Store{
		cache: cache.New(ttl, cleanupInterval),
	}
}

// NewID returns a fresh session identifier.
func NewID() string {
	return uuid.NewString()
}

// Normalize returns the given session ID, or a fresh one when empty.
func Normalize(id string) string {
	if id == "" {
		return NewID()
	}
	return id
}

// Put stores value under the session ID, refreshing its expiry.
func (s *Store) Put(id string, value any) {
	s.cache.Set(id, value, cache.DefaultExpiration)
}

// Get retrieves the value stored for the session ID.
func (s *Store) Get(id string) (any, bool) {
	return s.cache.Get(id)
}

// Delete removes the record for the session ID.
func (s *Store) Delete(id string) {
	s.cache.Delete(id)
}

// Count returns the number of live sessions.
func (s *Store) Count() int {
	return s.cache.ItemCount()
}

// ErrNotFound reports a missing session record in a form handlers can
// map to a 404.
func ErrNotFound(id string) error {
	return errors.Newf("no data uploaded for session").
		Component("session").
		Category(errors.CategoryNotFound).
		Context("session_id", id).
		Build()
}
