package share

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// BlobDeleter removes a stored blob. Delete must be idempotent: deleting a
// blob that is already gone returns nil.
type BlobDeleter interface {
	Delete(blobRef string) error
}

// Reclaimer guarantees every item is deleted at or shortly after its
// expiry, exactly once. Each insert arms a per-item timer; a periodic sweep
// guards against timer loss and retries failed blob deletions. Both paths
// funnel through Store.Remove, whose single-delivery claim keeps them from
// double-deleting a blob.
type Reclaimer struct {
	store    *Store
	blobs    BlobDeleter
	interval time.Duration
	done     chan struct{}

	mu      sync.Mutex
	timers  map[string]*time.Timer
	pending []string // blob refs whose deletion failed, retried each sweep
}

// NewReclaimer creates a reclaimer sweeping at the given interval.
func NewReclaimer(store *Store, blobs BlobDeleter, interval time.Duration) *Reclaimer {
	return &Reclaimer{
		store:    store,
		blobs:    blobs,
		interval: interval,
		done:     make(chan struct{}),
		timers:   make(map[string]*time.Timer),
	}
}

// Schedule arms a deletion timer that fires at expiresAt. Codes already
// past expiry are reclaimed immediately.
func (r *Reclaimer) Schedule(code string, expiresAt time.Time) {
	d := time.Until(expiresAt)
	if d < 0 {
		d = 0
	}
	t := time.AfterFunc(d, func() {
		// ErrNotFound here means the sweep or an explicit purge won the claim.
		_ = r.Reclaim(code)
	})

	r.mu.Lock()
	r.timers[code] = t
	r.mu.Unlock()
}

// Reclaim removes the item for code and deletes its blob. Safe to call
// concurrently with timers and sweeps: only the caller that wins the claim
// touches the blob. Returns ErrNotFound when the item is already gone.
func (r *Reclaimer) Reclaim(code string) error {
	item, err := r.store.Remove(code)
	if err != nil {
		return err
	}
	r.dropTimer(code)
	r.deleteBlob(item)
	return nil
}

func (r *Reclaimer) dropTimer(code string) {
	r.mu.Lock()
	if t, ok := r.timers[code]; ok {
		t.Stop()
		delete(r.timers, code)
	}
	r.mu.Unlock()
}

// deleteBlob removes the backing blob for a claimed item. Failures are
// non-fatal: the ref is queued and retried on the next sweep pass.
func (r *Reclaimer) deleteBlob(item *Item) {
	if err := r.blobs.Delete(item.BlobRef); err != nil {
		slog.Error("blob delete failed, queued for retry",
			"code", item.Code,
			"blob", item.BlobRef,
			"error", err,
		)
		r.mu.Lock()
		r.pending = append(r.pending, item.BlobRef)
		r.mu.Unlock()
		return
	}
	item.State = StateDeleted
	slog.Info("share reclaimed",
		"code", item.Code,
		"filename", item.OriginalName,
		"expired_at", item.ExpiresAt,
	)
}

// Start begins the sweep loop in a background goroutine. The loop stops
// when ctx is cancelled.
func (r *Reclaimer) Start(ctx context.Context) {
	slog.Info("reclaimer started", "sweep_interval", r.interval)

	go func() {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				r.sweep()
			case <-ctx.Done():
				slog.Info("reclaimer stopping")
				close(r.done)
				return
			}
		}
	}()
}

// Wait blocks until the sweep loop has fully stopped.
func (r *Reclaimer) Wait() {
	<-r.done
}

// sweep retries pending blob deletions, then reclaims every item past its
// TTL. Running concurrently with per-item timers is safe; whoever loses the
// claim simply skips the entry.
func (r *Reclaimer) sweep() {
	r.retryPending()

	expired := r.store.ExpiredCodes(time.Now())
	if len(expired) == 0 {
		return
	}

	var reclaimed int
	for _, code := range expired {
		if err := r.Reclaim(code); err == nil {
			reclaimed++
		}
	}

	slog.Info("sweep complete",
		"expired", len(expired),
		"reclaimed", reclaimed,
	)
}

func (r *Reclaimer) retryPending() {
	r.mu.Lock()
	refs := r.pending
	r.pending = nil
	r.mu.Unlock()

	for _, ref := range refs {
		if err := r.blobs.Delete(ref); err != nil {
			slog.Error("blob delete retry failed", "blob", ref, "error", err)
			r.mu.Lock()
			r.pending = append(r.pending, ref)
			r.mu.Unlock()
		}
	}
}
