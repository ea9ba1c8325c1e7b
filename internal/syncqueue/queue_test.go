package syncqueue

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/claude/gymtrack/internal/localstore"
	"github.com/claude/gymtrack/internal/models"
	"github.com/claude/gymtrack/internal/remote"
)

// scriptedProcessor returns err for item ids present in fail, in order of
// calls; everything else succeeds. It records the processing order.
type scriptedProcessor struct {
	fail  map[string][]error // consumed front to back per item
	order []string
	block chan struct{} // when set, Process waits until closed
}

func (p *scriptedProcessor) Process(ctx context.Context, item models.QueueItem) error {
	if p.block != nil {
		<-p.block
	}
	p.order = append(p.order, item.ID)
	if errs := p.fail[item.ID]; len(errs) > 0 {
		err := errs[0]
		p.fail[item.ID] = errs[1:]
		return err
	}
	return nil
}

type captureNotifier struct {
	messages []string
}

func (n *captureNotifier) Notify(msg string) { n.messages = append(n.messages, msg) }

func testQueue(t *testing.T, proc Processor, online func(context.Context) bool) (*Queue, *captureNotifier, *localstore.Store) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	store, err := localstore.Open(t.TempDir(), log)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	n := &captureNotifier{}
	return New(store, proc, n, online, log), n, store
}

func enqueueN(t *testing.T, q *Queue, n int) []models.QueueItem {
	t.Helper()
	// Use a processor-independent path: write items directly so Enqueue's
	// immediate drain does not interfere with drain-order assertions.
	items := make([]models.QueueItem, n)
	now := time.Now()
	for i := range items {
		items[i] = models.QueueItem{
			ID:         models.NewQueueItemID(now.Add(time.Duration(i) * time.Millisecond)),
			Type:       models.MutationSaveWorkout,
			Payload:    []byte(`{}`),
			EnqueuedAt: now,
		}
	}
	if err := q.store.SetJSON(localstore.KeySyncQueue, items); err != nil {
		t.Fatal(err)
	}
	return items
}

var serverDown = &remote.ServerError{Status: 503, Message: "unavailable"}

// TestDrainFIFO verifies items process in enqueue order and are removed on
// success.
func TestDrainFIFO(t *testing.T) {
	proc := &scriptedProcessor{}
	q, _, _ := testQueue(t, proc, nil)
	items := enqueueN(t, q, 3)

	res := q.Drain(context.Background())

	if res.Processed != 3 {
		t.Errorf("processed = %d, want 3", res.Processed)
	}
	for i, it := range items {
		if proc.order[i] != it.ID {
			t.Errorf("order[%d] = %s, want %s", i, proc.order[i], it.ID)
		}
	}
	if q.Len() != 0 {
		t.Errorf("queue length = %d after drain, want 0", q.Len())
	}
}

// TestEvictionAfterMaxAttempts verifies an item failing with retryable
// errors is retried exactly up to the cap, then removed with a user
// notification, and never attempted a 4th time.
func TestEvictionAfterMaxAttempts(t *testing.T) {
	proc := &scriptedProcessor{fail: map[string][]error{}}
	q, n, _ := testQueue(t, proc, nil)
	items := enqueueN(t, q, 1)
	id := items[0].ID
	proc.fail[id] = []error{serverDown, serverDown, serverDown, serverDown}

	res := q.Drain(context.Background())

	if res.Evicted != 1 {
		t.Errorf("evicted = %d, want 1", res.Evicted)
	}
	attempts := 0
	for _, pid := range proc.order {
		if pid == id {
			attempts++
		}
	}
	if attempts != models.MaxQueueAttempts {
		t.Errorf("attempts = %d, want exactly %d", attempts, models.MaxQueueAttempts)
	}
	if q.Len() != 0 {
		t.Error("evicted item still queued")
	}
	if len(n.messages) != 1 {
		t.Fatalf("notifications = %v, want exactly one data-loss notice", n.messages)
	}

	// A later drain must not resurrect it.
	proc.order = nil
	q.Drain(context.Background())
	if len(proc.order) != 0 {
		t.Error("evicted item was retried after removal")
	}
}

// TestRetryMovesToTail verifies a failed item loses its position: items
// enqueued behind it are processed before its second attempt.
func TestRetryMovesToTail(t *testing.T) {
	proc := &scriptedProcessor{fail: map[string][]error{}}
	q, _, _ := testQueue(t, proc, nil)
	items := enqueueN(t, q, 2)
	first, second := items[0].ID, items[1].ID
	proc.fail[first] = []error{serverDown}

	res := q.Drain(context.Background())

	if res.Processed != 2 || res.Requeued != 1 {
		t.Errorf("result = %+v, want 2 processed, 1 requeued", res)
	}
	want := []string{first, second, first}
	if len(proc.order) != 3 {
		t.Fatalf("order = %v, want %v", proc.order, want)
	}
	for i := range want {
		if proc.order[i] != want[i] {
			t.Errorf("order = %v, want %v", proc.order, want)
			break
		}
	}
}

// TestConnectivityLossStopsDrain verifies a network error stops the drain
// with the current item still at the head and no attempt consumed.
func TestConnectivityLossStopsDrain(t *testing.T) {
	proc := &scriptedProcessor{fail: map[string][]error{}}
	q, n, _ := testQueue(t, proc, nil)
	items := enqueueN(t, q, 2)
	proc.fail[items[0].ID] = []error{&remote.NetworkError{Err: &net.OpError{Op: "dial", Err: errors.New("refused")}}}

	res := q.Drain(context.Background())

	if res.Stopped != "offline" {
		t.Errorf("stopped = %q, want offline", res.Stopped)
	}
	pending, err := q.Items()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 2 {
		t.Fatalf("pending = %d, want 2 (nothing removed)", len(pending))
	}
	if pending[0].ID != items[0].ID {
		t.Error("head item changed after connectivity loss")
	}
	if pending[0].RetryCount != 0 {
		t.Errorf("retryCount = %d, want 0 (no attempt consumed)", pending[0].RetryCount)
	}
	if len(n.messages) != 0 {
		t.Errorf("notifications = %v, want none for a connectivity stop", n.messages)
	}

	// Reconnect: the next drain resumes from the same head.
	res = q.Drain(context.Background())
	if res.Processed != 2 {
		t.Errorf("processed after reconnect = %d, want 2", res.Processed)
	}
}

// TestAuthExpiryPausesQueue verifies an auth failure keeps the item queued
// so the operation can resume after re-login.
func TestAuthExpiryPausesQueue(t *testing.T) {
	proc := &scriptedProcessor{fail: map[string][]error{}}
	q, n, _ := testQueue(t, proc, nil)
	items := enqueueN(t, q, 1)
	proc.fail[items[0].ID] = []error{remote.ErrAuthExpired}

	res := q.Drain(context.Background())

	if res.Stopped != "auth" {
		t.Errorf("stopped = %q, want auth", res.Stopped)
	}
	if q.Len() != 1 {
		t.Error("item dropped on auth expiry; it must survive until re-login")
	}
	if len(n.messages) != 1 {
		t.Errorf("notifications = %v, want a re-login prompt", n.messages)
	}
}

// TestNonRetryableRejectionNotifies verifies a permanent rejection removes
// the item and tells the user.
func TestNonRetryableRejectionNotifies(t *testing.T) {
	proc := &scriptedProcessor{fail: map[string][]error{}}
	q, n, _ := testQueue(t, proc, nil)
	items := enqueueN(t, q, 1)
	proc.fail[items[0].ID] = []error{&remote.ServerError{Status: 422, Message: "invalid document"}}

	q.Drain(context.Background())

	if q.Len() != 0 {
		t.Error("rejected item still queued")
	}
	if len(n.messages) != 1 {
		t.Errorf("notifications = %v, want exactly one", n.messages)
	}
}

// TestConcurrentDrainIsNoOp verifies a second drain while one is running
// returns immediately without processing anything.
func TestConcurrentDrainIsNoOp(t *testing.T) {
	proc := &scriptedProcessor{block: make(chan struct{})}
	q, _, _ := testQueue(t, proc, nil)
	enqueueN(t, q, 1)

	done := make(chan Result)
	go func() { done <- q.Drain(context.Background()) }()

	// Wait for the first drain to be inside Process.
	deadline := time.After(2 * time.Second)
	for {
		q.mu.Lock()
		draining := q.draining
		q.mu.Unlock()
		if draining {
			break
		}
		select {
		case <-deadline:
			t.Fatal("first drain never started")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	if res := q.Drain(context.Background()); res.Processed != 0 {
		t.Errorf("concurrent drain processed %d items, want 0", res.Processed)
	}

	close(proc.block)
	res := <-done
	if res.Processed != 1 {
		t.Errorf("original drain processed %d, want 1", res.Processed)
	}
}

// TestRunDrainsOnTimer verifies the periodic loop skips ticks while
// offline and drains pending items on the first tick after reconnecting.
func TestRunDrainsOnTimer(t *testing.T) {
	proc := &scriptedProcessor{}
	var online atomic.Bool
	q, _, _ := testQueue(t, proc, func(context.Context) bool { return online.Load() })
	enqueueN(t, q, 2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Run(ctx, 5*time.Millisecond)

	// Offline: ticks pass without touching the queue.
	time.Sleep(25 * time.Millisecond)
	if q.Len() != 2 {
		t.Fatalf("queue drained while offline, %d items left", q.Len())
	}

	// Reconnect: a later tick drains everything without any manual sync.
	online.Store(true)
	deadline := time.After(2 * time.Second)
	for q.Len() != 0 {
		select {
		case <-deadline:
			t.Fatalf("queue not drained after reconnect, %d items left", q.Len())
		default:
			time.Sleep(time.Millisecond)
		}
	}
}

// TestForceSyncOffline verifies ForceSync fails immediately when the
// connectivity probe reports offline.
func TestForceSyncOffline(t *testing.T) {
	proc := &scriptedProcessor{}
	q, _, _ := testQueue(t, proc, func(context.Context) bool { return false })
	enqueueN(t, q, 1)

	_, err := q.ForceSync(context.Background())
	if !errors.Is(err, ErrOffline) {
		t.Fatalf("err = %v, want ErrOffline", err)
	}
	if len(proc.order) != 0 {
		t.Error("force sync attempted processing while offline")
	}
}

// TestQueueSurvivesRestart verifies pending items persist across queue
// instances sharing a store.
func TestQueueSurvivesRestart(t *testing.T) {
	proc := &scriptedProcessor{block: make(chan struct{})}
	q, _, store := testQueue(t, proc, nil)
	items := enqueueN(t, q, 2)

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	proc2 := &scriptedProcessor{}
	q2 := New(store, proc2, &captureNotifier{}, nil, log)

	pending, err := q2.Items()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 2 || pending[0].ID != items[0].ID {
		t.Errorf("restarted queue sees %d items, want the 2 enqueued", len(pending))
	}
}
