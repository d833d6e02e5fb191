package cache

import (
	"time"
)

// Entry is a cached merged result.
type Entry struct {
	// Data is the encoded provider map.
	Data []byte `json:"data"`

	// CachedAt is when the result was stored.
	CachedAt time.Time `json:"cached_at"`

	// Expires is the first instant at which the entry is no longer served.
	Expires time.Time `json:"expires"`
}

// NewEntry creates an entry valid for ttl starting now.
func NewEntry(data []byte, ttl time.Duration) *Entry {
	return NewEntryAt(data, time.Now(), ttl)
}

// NewEntryAt creates an entry stored at now and valid for ttl.
func NewEntryAt(data []byte, now time.Time, ttl time.Duration) *Entry {
	return &Entry{
		Data:     data,
		CachedAt: now,
		Expires:  now.Add(ttl),
	}
}

// IsExpired returns true if the entry has expired.
func (e *Entry) IsExpired() bool {
	return e.ExpiredAt(time.Now())
}

// ExpiredAt reports whether the entry is expired at now.
func (e *Entry) ExpiredAt(now time.Time) bool {
	return !now.Before(e.Expires)
}

// TTL returns the time until expiration.
// Returns 0 if already expired.
func (e *Entry) TTL() time.Duration {
	return e.TTLAt(time.Now())
}

// TTLAt returns the time left at now, never negative.
func (e *Entry) TTLAt(now time.Time) time.Duration {
	ttl := e.Expires.Sub(now)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// Age returns how long ago the entry was stored.
func (e *Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.CachedAt)
}
