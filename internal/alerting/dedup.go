package alerting

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bluele/gcache"
	"github.com/google/uuid"

	"github.com/commutewatch-data/internal/common/logger"
	"github.com/commutewatch-data/pkg/transit/models"
)

// DedupKey identifies one dedup slot: a route, for a user, within one
// monitoring schedule.
type DedupKey struct {
	RouteID    uuid.UUID
	UserID     uuid.UUID
	ScheduleID uuid.UUID
}

func (k DedupKey) String() string {
	return fmt.Sprintf("dedup:%s:%s:%s", k.RouteID, k.UserID, k.ScheduleID)
}

// ContentHash digests the currently matched disruption set. Triples are
// sorted by line so the hash is stable across feed ordering; any change in
// line, status or reason text changes the hash.
func ContentHash(disruptions []models.Disruption) string {
	triples := make([]string, 0, len(disruptions))
	for _, d := range disruptions {
		triples = append(triples, d.LineID+"|"+d.Status+"|"+d.Reason)
	}
	sort.Strings(triples)

	sum := sha256.Sum256([]byte(strings.Join(triples, "\n")))
	return hex.EncodeToString(sum[:])
}

// Deduper suppresses repeat notifications within a monitoring window. State
// lives only in an expiring cache bounded to the window's end, so there is
// no durable alert history: losing state degrades to re-sending, never to
// silence.
type Deduper struct {
	cache  gcache.Cache
	logger logger.Logger
}

func NewDeduper(cacheSize int, log logger.Logger) *Deduper {
	return &Deduper{
		cache:  gcache.New(cacheSize).LRU().Build(),
		logger: log,
	}
}

// ShouldNotify reports whether the current disruption content differs from
// what was last notified for this slot. No stored state, or state that is
// not a hash string, means send.
func (d *Deduper) ShouldNotify(key DedupKey, contentHash string) bool {
	value, err := d.cache.Get(key.String())
	if err != nil {
		// Miss or expired: nothing was notified this window.
		return true
	}

	stored, ok := value.(string)
	if !ok {
		d.logger.Warn("Unparsable dedup state, failing open", "key", key.String())
		return true
	}

	return stored != contentHash
}

// MarkNotified records the notified content hash with a TTL that expires at
// the schedule window's end. A window already past stores nothing, so the
// remainder of that slot always re-alerts; a non-positive TTL is never
// written.
func (d *Deduper) MarkNotified(key DedupKey, contentHash string, windowEnd, now time.Time) {
	ttl := windowEnd.Sub(now)
	if ttl <= 0 {
		return
	}

	if err := d.cache.SetWithExpire(key.String(), contentHash, ttl); err != nil {
		// Best effort: a cache write failure means a possible duplicate
		// alert next cycle, not a lost one.
		d.logger.Warn("Failed to store dedup state", "key", key.String(), "error", err)
	}
}
