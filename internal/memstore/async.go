package memstore

import (
	"context"
	"log/slog"
)

// AsyncQueueDepth is the default bound for AsyncStore's write queue.
const AsyncQueueDepth = 256

// AsyncStore wraps a Store so that AddMemory is queued to a bounded worker
// rather than applied synchronously. A full queue logs a warning and
// returns success without enqueuing — callers must treat AddMemory as
// best-effort (spec §4.3). All other operations pass through synchronously.
//
// Grounded on the teacher's internal/process/command_queue.go lane/queue
// shape and the "channel full, dropping" warn-and-drop idiom used
// throughout internal/mcp/transport_stdio.go.
type AsyncStore struct {
	Store
	logger *slog.Logger
	writes chan writeJob
	done   chan struct{}
}

type writeJob struct {
	key, value string
	tags       []string
	opts       AddOptions
}

// NewAsyncStore wraps inner with a bounded async write queue of the given
// depth (AsyncQueueDepth if <= 0) and starts its worker goroutine.
func NewAsyncStore(inner Store, depth int, logger *slog.Logger) *AsyncStore {
	if depth <= 0 {
		depth = AsyncQueueDepth
	}
	if logger == nil {
		logger = slog.Default()
	}
	a := &AsyncStore{
		Store:  inner,
		logger: logger.With("component", "memstore.async"),
		writes: make(chan writeJob, depth),
		done:   make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *AsyncStore) run() {
	for job := range a.writes {
		if err := a.Store.AddMemory(context.Background(), job.key, job.value, job.tags, job.opts); err != nil {
			a.logger.Warn("async memory write failed", "key", job.key, "error", err)
		}
	}
	close(a.done)
}

// AddMemory enqueues the write; on a full queue it logs a warning and
// returns nil, per spec's best-effort contract.
func (a *AsyncStore) AddMemory(ctx context.Context, key, value string, tags []string, opts AddOptions) error {
	job := writeJob{key: key, value: value, tags: tags, opts: opts}
	select {
	case a.writes <- job:
		return nil
	default:
		a.logger.Warn("memory write queue full, dropping", "key", key)
		return nil
	}
}

// Close stops accepting writes and waits for the queue to drain.
func (a *AsyncStore) Close() {
	close(a.writes)
	<-a.done
}
