package batch

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// Default orchestrator configuration.
const (
	DefaultConcurrency = 5
	DefaultMaxRetries  = 3
	DefaultBaseDelay   = time.Second
)

// Common orchestrator errors, returned before any item is dispatched.
var (
	ErrInvalidConcurrency = errors.New("concurrency must be positive")
	ErrNilUnitOfWork      = errors.New("unit of work cannot be nil")
	ErrNoItems            = errors.New("items slice cannot be empty")
)

// UnitOfWork performs one remote call for a single payload. A nil error
// means the item completed and the returned map is its result. Errors
// recognized by IsTransient are retried with backoff; anything else fails
// the item immediately.
type UnitOfWork func(ctx context.Context, payload Payload) (map[string]any, error)

// Options configures a batch run.
type Options struct {
	// Concurrency is the maximum number of in-flight unit-of-work calls.
	Concurrency int

	// MaxRetries is the number of retries allowed per item on transient
	// failures before the item is marked Failed.
	MaxRetries int

	// BaseDelay is the backoff delay before the first retry. Each further
	// retry doubles it.
	BaseDelay time.Duration

	// MaxDelay caps the backoff delay. Zero means uncapped.
	MaxDelay time.Duration

	// Jitter randomizes each backoff delay within [delay/2, delay] to
	// spread retries from concurrent workers.
	Jitter bool

	// OnProgress, when set, is invoked after each item reaches a terminal
	// state. Invocations are serialized, so the callback never runs
	// concurrently with itself and needs no locking of its own. It must
	// return quickly; a slow callback stalls worker completion.
	OnProgress func(Snapshot)
}

// DefaultOptions returns Options with the default concurrency and retry policy.
func DefaultOptions() Options {
	return Options{
		Concurrency: DefaultConcurrency,
		MaxRetries:  DefaultMaxRetries,
		BaseDelay:   DefaultBaseDelay,
	}
}

// Run processes every payload through work, keeping at most
// opts.Concurrency calls in flight. It always returns one WorkItem per
// input, in input order. When ctx is cancelled mid-run, in-flight calls
// are drained, undispatched items remain Pending, and the context error
// is returned alongside the full item set.
func Run(ctx context.Context, items []Payload, work UnitOfWork, opts Options) ([]WorkItem, error) {
	if opts.Concurrency <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidConcurrency, opts.Concurrency)
	}
	if work == nil {
		return nil, ErrNilUnitOfWork
	}
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = DefaultBaseDelay
	}

	r := &runner{
		work:     work,
		opts:     opts,
		progress: NewProgress(len(items)),
	}

	// Arena of work items addressed by stable index. Each entry is written
	// only by the worker that owns it, so no lock is needed beyond the
	// WaitGroup synchronization.
	results := make([]WorkItem, len(items))
	for i, payload := range items {
		results[i] = WorkItem{Index: i, Payload: payload, State: StatePending}
	}

	sem := semaphore.NewWeighted(int64(opts.Concurrency))
	var wg sync.WaitGroup

	var runErr error
	for i := range results {
		// Acquiring before spawning keeps initial dispatch in input order
		// and bounds the number of live goroutines at Concurrency.
		if err := sem.Acquire(ctx, 1); err != nil {
			runErr = err
			break
		}
		wg.Add(1)
		go func(item *WorkItem) {
			defer wg.Done()
			defer sem.Release(1)
			r.process(ctx, item)
		}(&results[i])
	}
	wg.Wait()

	// Cancellation can also arrive after every item was dispatched, in
	// which case no Acquire ever failed; the caller still needs to know
	// the run was cut short.
	if runErr == nil {
		runErr = ctx.Err()
	}
	return results, runErr
}

// runner holds the per-run state shared by workers.
type runner struct {
	work     UnitOfWork
	opts     Options
	progress *Progress

	// emitMu serializes OnProgress invocations across workers.
	emitMu sync.Mutex
}

// process drives one item to a terminal state, retrying transient failures.
// The retry loop carries RetryCount explicitly; the worker keeps its
// concurrency slot while sleeping between attempts.
func (r *runner) process(ctx context.Context, item *WorkItem) {
	item.State = StateRunning
	r.progress.markRunning()

	for {
		result, err := r.work(ctx, item.Payload)
		if err == nil {
			item.State = StateCompleted
			item.Result = result
			r.progress.markCompleted()
			r.emit()
			return
		}

		// A worker interrupted by run cancellation has neither completed
		// nor failed on its own merits; surface the item as Pending rather
		// than inventing a failure.
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			item.State = StatePending
			r.progress.markPending()
			return
		}

		if !IsTransient(err) {
			r.fail(item, err.Error())
			return
		}

		if item.RetryCount >= r.opts.MaxRetries {
			r.fail(item, fmt.Sprintf("rate limited after %d retries", r.opts.MaxRetries))
			return
		}

		item.RetryCount++
		if !r.sleep(ctx, r.backoff(item.RetryCount)) {
			item.State = StatePending
			r.progress.markPending()
			return
		}
	}
}

// fail moves the item to Failed with a human-readable cause.
func (r *runner) fail(item *WorkItem, cause string) {
	item.State = StateFailed
	item.Err = cause
	r.progress.markFailed()
	r.emit()
}

// emit reports a progress snapshot after a terminal transition. Workers
// reach terminal states concurrently, so the callback is invoked under a
// lock to honor the Options.OnProgress serialization contract.
func (r *runner) emit() {
	if r.opts.OnProgress == nil {
		return
	}
	r.emitMu.Lock()
	defer r.emitMu.Unlock()
	r.opts.OnProgress(r.progress.Snapshot())
}

// backoff computes the delay before the given retry attempt (1-based):
// BaseDelay * 2^(attempt-1), optionally capped and jittered. Doubling
// stops once the cap (or the int64 ceiling) is reached rather than
// overflowing into a negative delay.
func (r *runner) backoff(attempt int) time.Duration {
	delay := r.opts.BaseDelay
	for i := 1; i < attempt; i++ {
		if r.opts.MaxDelay > 0 && delay >= r.opts.MaxDelay {
			break
		}
		if delay > math.MaxInt64/2 {
			delay = math.MaxInt64
			break
		}
		delay <<= 1
	}
	if r.opts.MaxDelay > 0 && delay > r.opts.MaxDelay {
		delay = r.opts.MaxDelay
	}
	if r.opts.Jitter && delay > 0 {
		half := delay / 2
		delay = half + time.Duration(rand.Int63n(int64(half)+1))
	}
	return delay
}

// sleep waits for d or until ctx is cancelled. Returns false on cancellation.
func (r *runner) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
