package share

import "time"

// State tracks where an item is in its lifecycle. Active items are visible
// to lookups; Expired marks an item claimed for deletion but whose blob is
// still on disk; Deleted means the blob is gone too.
type State int

const (
	StateActive State = iota
	StateExpired
	StateDeleted
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateExpired:
		return "expired"
	case StateDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Item is one stored share, keyed by its public code.
type Item struct {
	Code          string
	BlobRef       string // opaque storage key, owned exclusively by this item
	OriginalName  string
	SizeBytes     int64
	PasswordHash  *string // nil when no password set
	DownloadCount int
	CreatedAt     time.Time
	ExpiresAt     time.Time
	State         State
	PurgeToken    string
}

// PasswordProtected reports whether a download requires a password.
func (i *Item) PasswordProtected() bool {
	return i.PasswordHash != nil
}

// ExpiredAt reports whether the item is past its TTL at the given instant.
// Expiry is judged by wall-clock comparison, not by whether the reclaimer
// has physically removed the item yet.
func (i *Item) ExpiredAt(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// Stats holds aggregate numbers over all active shares.
type Stats struct {
	ActiveShares   int
	TotalDownloads int64
	BytesStored    int64
}
