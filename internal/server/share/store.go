package share

import (
	"strings"
	"sync"
	"time"
)

// maxPutAttempts bounds the collision-retry loop before Put reports the
// active set as saturated.
const maxPutAttempts = 10

// Store is the authoritative mapping from code to item. It is the only
// component allowed to mutate an item's state or download count, and every
// map mutation happens under its lock. Callers never hold the lock across
// blob I/O: Remove hands the item out and the caller cleans up the blob
// outside the critical section.
type Store struct {
	mu    sync.RWMutex
	items map[string]*Item
	gen   *CodeGenerator
}

// NewStore creates an empty store using gen for code minting.
func NewStore(gen *CodeGenerator) *Store {
	return &Store{
		items: make(map[string]*Item),
		gen:   gen,
	}
}

// normalizeCode folds a user-supplied code to the canonical (uppercase) form.
func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Put inserts item under a freshly generated unique code and returns the
// code. Collisions are retried internally up to maxPutAttempts; callers
// only ever see ErrCapacityExhausted, never ErrConflict.
func (s *Store) Put(item *Item) (string, error) {
	if !item.ExpiresAt.After(item.CreatedAt) {
		return "", ErrInvalidExpiry
	}
	for attempt := 0; attempt < maxPutAttempts; attempt++ {
		code, err := s.gen.Generate()
		if err != nil {
			return "", err
		}
		switch err := s.insert(code, item); err {
		case nil:
			return code, nil
		case ErrConflict:
			continue
		default:
			return "", err
		}
	}
	return "", ErrCapacityExhausted
}

func (s *Store) insert(code string, item *Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[code]; exists {
		return ErrConflict
	}
	item.Code = code
	item.State = StateActive
	s.items[code] = item
	return nil
}

// Get returns a snapshot of the item for code, or ErrNotFound. The copy
// keeps callers from observing (or causing) torn writes on the live item.
func (s *Store) Get(code string) (*Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[normalizeCode(code)]
	if !ok {
		return nil, ErrNotFound
	}
	snapshot := *item
	return &snapshot, nil
}

// RecordDownload atomically increments the download count for code and
// returns the new count. Consecutive successful calls return a gap-free
// 1..N sequence even under concurrent callers.
func (s *Store) RecordDownload(code string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[normalizeCode(code)]
	if !ok {
		return 0, ErrNotFound
	}
	item.DownloadCount++
	return item.DownloadCount, nil
}

// Remove deletes the entry for code and returns the item exactly once: of
// any number of concurrent callers, one receives the item and the rest get
// ErrNotFound. Only the winner may delete the backing blob. The returned
// item is marked StateExpired; the caller advances it to StateDeleted once
// the blob is gone.
func (s *Store) Remove(code string) (*Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := normalizeCode(code)
	item, ok := s.items[key]
	if !ok {
		return nil, ErrNotFound
	}
	delete(s.items, key)
	item.State = StateExpired
	return item, nil
}

// ExpiredCodes returns the codes of all items past their TTL at the given
// instant. Used by the reclaimer's sweep; deletion itself goes through
// Remove.
func (s *Store) ExpiredCodes(now time.Time) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var codes []string
	for code, item := range s.items {
		if item.ExpiredAt(now) {
			codes = append(codes, code)
		}
	}
	return codes
}

// Len returns the number of active items.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Stats aggregates counters over all active items.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{ActiveShares: len(s.items)}
	for _, item := range s.items {
		st.TotalDownloads += int64(item.DownloadCount)
		st.BytesStored += item.SizeBytes
	}
	return st
}
