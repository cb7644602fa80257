package storage

import (
	"context"
	"sync"
	"time"

	"github.com/johnkennedy-cmyk/local-agent-memory-layer/internal/metrics"
	"github.com/johnkennedy-cmyk/local-agent-memory-layer/pkg/types"
)

// retryInitial, retryFactor, retryCap, and retryMaxAttempts define the
// bounded exponential backoff the gateway applies to transient
// serialization conflicts from the underlying store (spec §4.1).
const (
	retryInitial      = 50 * time.Millisecond
	retryFactor       = 2
	retryCap          = 1 * time.Second
	retryMaxAttempts  = 5
)

// Gateway is the Store Gateway (C1): it wraps a backend MemoryStore with
// the process-wide write lock, the per-session sequence-number mutex, the
// retry-with-backoff policy on transient conflicts, and best-effort
// metrics recording. The core depends on Gateway, never on a backend
// directly.
type Gateway struct {
	store   MemoryStore
	metrics *metrics.RingBuffer

	writeMu sync.Mutex // single process-wide writer lock (spec §5)

	sessionMu   sync.Mutex
	sessionLock map[string]*sync.Mutex // per-session sequence-number mutex
}

// New constructs a Gateway over the given backend. ring may be nil, in
// which case calls are not recorded (tests commonly pass nil).
func New(store MemoryStore, ring *metrics.RingBuffer) *Gateway {
	return &Gateway{
		store:       store,
		metrics:     ring,
		sessionLock: make(map[string]*sync.Mutex),
	}
}

// Store exposes the wrapped backend for read-only operations that need no
// write-lock participation (e.g. VectorSearch during recall).
func (g *Gateway) Store() MemoryStore {
	return g.store
}

// WriteTx runs fn while holding the single process-wide write lock,
// retrying on ErrConflict with bounded exponential backoff. Two concurrent
// writers therefore serialize at this call, not inside the backend — this
// is what makes it safe for the Long-Term Memory Manager to run its
// dedup vector-search and its insert inside one WriteTx call and be sure
// no other writer can slip a near-duplicate in between (spec §5).
func (g *Gateway) WriteTx(ctx context.Context, fn func(ctx context.Context) error) error {
	g.writeMu.Lock()
	defer g.writeMu.Unlock()

	delay := retryInitial
	for attempt := 1; attempt <= retryMaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return types.NewError(types.ErrTimeout, "deadline elapsed before write could complete")
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		if err != ErrConflict {
			return err
		}
		if attempt == retryMaxAttempts {
			return types.NewErrorf(types.ErrTransientStore,
				"store write conflict after %d attempts", attempt)
		}

		select {
		case <-ctx.Done():
			return types.NewError(types.ErrTimeout, "deadline elapsed during write retry")
		case <-time.After(delay):
		}
		delay *= retryFactor
		if delay > retryCap {
			delay = retryCap
		}
	}
	return types.NewError(types.ErrTransientStore, "store write retry budget exhausted")
}

// SessionLock returns the mutex assigned to sessionID, creating one on
// first use. Holding this mutex while assigning a working-memory item's
// sequence number is what makes sequence numbers within a session totally
// ordered across concurrent callers (spec §5).
func (g *Gateway) SessionLock(sessionID string) *sync.Mutex {
	g.sessionMu.Lock()
	defer g.sessionMu.Unlock()
	m, ok := g.sessionLock[sessionID]
	if !ok {
		m = &sync.Mutex{}
		g.sessionLock[sessionID] = m
	}
	return m
}

// Record times a call and appends it to the shared metrics ring buffer.
// The longterm and workingmemory managers call this themselves around each
// of their public operations, since only they know the operation name and
// the final success/failure outcome once a WriteTx (if any) has returned.
func (g *Gateway) Record(operation string, start time.Time, success bool) {
	if g.metrics == nil {
		return
	}
	g.metrics.Record(metrics.Call{
		Component: "store",
		Operation: operation,
		Latency:   time.Since(start),
		Success:   success,
		At:        time.Now(),
	})
}

// Close releases the backend's resources.
func (g *Gateway) Close() error {
	return g.store.Close()
}
