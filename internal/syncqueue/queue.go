// Package syncqueue is the durable replay queue for remote mutations.
// Writes always land in the local store first; when the server cannot be
// reached the mutation is recorded here and replayed later in FIFO order.
// An item leaves the queue only on confirmed success, a non-retryable
// rejection, or after exhausting its attempts, in which case the user is
// told exactly what was lost. Silent data loss is never acceptable.
package syncqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/claude/gymtrack/internal/localstore"
	"github.com/claude/gymtrack/internal/models"
	"github.com/claude/gymtrack/internal/remote"
)

// DrainInterval is how often the queue retries a drain while the process
// is running.
const DrainInterval = 5 * time.Minute

// ErrOffline is returned by ForceSync when the server is unreachable;
// nothing is queued by a force sync.
var ErrOffline = errors.New("offline: server not reachable")

// Processor replays one queued mutation against the server. A nil return
// confirms remote success. Errors are classified with the remote package's
// taxonomy to decide between requeue, stop, and eviction.
type Processor interface {
	Process(ctx context.Context, item models.QueueItem) error
}

// Notifier surfaces queue events the user must see, such as data being
// discarded after exhausted retries.
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(string)

func (f NotifierFunc) Notify(message string) { f(message) }

// Result summarizes one drain pass.
type Result struct {
	Processed int
	Requeued  int
	Evicted   int
	// Stopped is set when the drain ended early: "offline" or "auth".
	Stopped string
}

// Queue is the durable mutation queue. Persisted through the local store
// so pending items survive a restart. All mutation is mutex-serialized;
// drains never run concurrently.
type Queue struct {
	store  *localstore.Store
	proc   Processor
	notify Notifier
	log    *slog.Logger

	// online probes connectivity for ForceSync and the periodic drain.
	online func(ctx context.Context) bool

	mu       sync.Mutex
	draining bool
}

// New creates a queue. online may be nil, in which case ForceSync assumes
// connectivity and lets the first request decide.
func New(store *localstore.Store, proc Processor, notify Notifier, online func(ctx context.Context) bool, log *slog.Logger) *Queue {
	if notify == nil {
		notify = NotifierFunc(func(msg string) { log.Warn("notification dropped", "message", msg) })
	}
	return &Queue{store: store, proc: proc, notify: notify, online: online, log: log}
}

// Items returns the pending items in order.
func (q *Queue) Items() ([]models.QueueItem, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.loadLocked()
}

// Len returns the number of pending items.
func (q *Queue) Len() int {
	items, err := q.Items()
	if err != nil {
		return 0
	}
	return len(items)
}

// Enqueue persists a mutation at the tail and immediately attempts a drain
// if one is not already running. The enqueue itself never fails on network
// conditions; only a local persistence error is returned.
func (q *Queue) Enqueue(ctx context.Context, typ models.MutationType, payload any) (models.QueueItem, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return models.QueueItem{}, fmt.Errorf("encoding payload: %w", err)
	}

	now := time.Now()
	item := models.QueueItem{
		ID:         models.NewQueueItemID(now),
		Type:       typ,
		Payload:    data,
		EnqueuedAt: now,
	}

	q.mu.Lock()
	items, err := q.loadLocked()
	if err != nil {
		q.mu.Unlock()
		return models.QueueItem{}, err
	}
	items = append(items, item)
	if err := q.saveLocked(items); err != nil {
		q.mu.Unlock()
		return models.QueueItem{}, err
	}
	q.mu.Unlock()

	// Best effort: push now if we can. Failures leave the item queued.
	q.Drain(ctx)

	return item, nil
}

// ForceSync drains immediately, failing fast when offline. Nothing is
// queued by the check itself.
func (q *Queue) ForceSync(ctx context.Context) (Result, error) {
	if q.online != nil && !q.online(ctx) {
		return Result{}, ErrOffline
	}
	return q.Drain(ctx), nil
}

// Run drains on a fixed interval until the context is cancelled. This is
// the reconnect path: a drain stopped by connectivity loss resumes from
// the head on the next tick.
func (q *Queue) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DrainInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if q.online != nil && !q.online(ctx) {
				continue
			}
			q.Drain(ctx)
		}
	}
}

// Drain processes pending items strictly in order, one at a time. A drain
// already in progress makes this call a no-op. The drain stops early when
// connectivity is lost or auth expires, leaving the current item at the
// head for the next pass.
func (q *Queue) Drain(ctx context.Context) Result {
	q.mu.Lock()
	if q.draining {
		q.mu.Unlock()
		return Result{}
	}
	q.draining = true
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.draining = false
		q.mu.Unlock()
	}()

	var res Result
	for {
		q.mu.Lock()
		items, err := q.loadLocked()
		if err != nil || len(items) == 0 {
			q.mu.Unlock()
			return res
		}
		head := items[0]
		q.mu.Unlock()

		err = q.proc.Process(ctx, head)

		switch {
		case err == nil:
			q.removeItem(head.ID)
			res.Processed++

		case errors.Is(err, remote.ErrAuthRequired) || errors.Is(err, remote.ErrAuthExpired):
			// Keep the item at the head so the operation resumes once the
			// user logs back in.
			q.log.Warn("sync paused: re-authentication required", "item", head.ID, "type", head.Type)
			q.notify.Notify("Sign in again to finish syncing your changes.")
			res.Stopped = "auth"
			return res

		case isConnectivityLoss(err):
			q.log.Info("sync stopped: connection lost", "item", head.ID, "pending", len(items))
			res.Stopped = "offline"
			return res

		case remote.IsRetryable(err):
			head.RetryCount++
			if head.RetryCount >= models.MaxQueueAttempts {
				q.removeItem(head.ID)
				res.Evicted++
				q.log.Error("discarding mutation after repeated failures",
					"item", head.ID, "type", head.Type, "attempts", head.RetryCount, "error", err)
				q.notify.Notify(evictionMessage(head))
			} else {
				q.requeueAtTail(head)
				res.Requeued++
				q.log.Warn("mutation failed, requeued",
					"item", head.ID, "type", head.Type, "attempt", head.RetryCount, "error", err)
			}

		default:
			// Non-retryable rejection: the server will never accept this
			// mutation, so keeping it queued only hides the loss.
			q.removeItem(head.ID)
			res.Evicted++
			q.log.Error("mutation rejected", "item", head.ID, "type", head.Type, "error", err)
			q.notify.Notify(evictionMessage(head))
		}
	}
}

// isConnectivityLoss distinguishes "the network is gone" from "the server
// answered badly". Transport errors and timeouts stop the drain without
// consuming one of the item's attempts.
func isConnectivityLoss(err error) bool {
	var ne *remote.NetworkError
	return errors.As(err, &ne)
}

func evictionMessage(item models.QueueItem) string {
	verb := map[models.MutationType]string{
		models.MutationSaveSettings:  "Your settings changes",
		models.MutationSaveWorkout:   "A logged workout",
		models.MutationUpdateWorkout: "A workout edit",
		models.MutationDeleteWorkout: "A workout deletion",
	}[item.Type]
	if verb == "" {
		verb = "A pending change"
	}
	return fmt.Sprintf("%s could not be synced and was discarded (queued %s).",
		verb, item.EnqueuedAt.Format("2006-01-02 15:04"))
}

// removeItem deletes an item by id wherever it currently sits.
func (q *Queue) removeItem(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	items, err := q.loadLocked()
	if err != nil {
		return
	}
	kept := items[:0]
	for _, it := range items {
		if it.ID != id {
			kept = append(kept, it)
		}
	}
	if err := q.saveLocked(kept); err != nil {
		q.log.Error("failed to persist queue after removal", "error", err)
	}
}

// requeueAtTail moves a failed item behind everything queued since. The
// item loses its original position: FIFO is preserved only among items
// that have never been retried.
func (q *Queue) requeueAtTail(item models.QueueItem) {
	q.mu.Lock()
	defer q.mu.Unlock()

	items, err := q.loadLocked()
	if err != nil {
		return
	}
	kept := items[:0]
	for _, it := range items {
		if it.ID != item.ID {
			kept = append(kept, it)
		}
	}
	kept = append(kept, item)
	if err := q.saveLocked(kept); err != nil {
		q.log.Error("failed to persist queue after requeue", "error", err)
	}
}

func (q *Queue) loadLocked() ([]models.QueueItem, error) {
	var items []models.QueueItem
	if _, err := q.store.GetJSON(localstore.KeySyncQueue, &items); err != nil {
		return nil, fmt.Errorf("loading sync queue: %w", err)
	}
	return items, nil
}

func (q *Queue) saveLocked(items []models.QueueItem) error {
	if items == nil {
		items = []models.QueueItem{}
	}
	return q.store.SetJSON(localstore.KeySyncQueue, items)
}
