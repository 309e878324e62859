// Package state persists augmentation results between runs. Entries are
// opaque byte values addressed by fingerprint, with an optional expiry.
package state

import (
	"errors"
	"time"

	"github.com/leapstack-labs/apalint/internal/augment"
)

// ErrNotOpen is returned when a store is used before Open or after Close.
var ErrNotOpen = errors.New("state store not open")

var (
	_ augment.Store = (*SQLiteStore)(nil)
	_ augment.Store = (*RedisStore)(nil)
)

// expiry converts a ttl into an absolute unix-nano deadline. Zero means
// the entry never expires.
func expiry(now time.Time, ttl time.Duration) int64 {
	if ttl <= 0 {
		return 0
	}
	return now.Add(ttl).UnixNano()
}
