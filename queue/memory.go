package queue

import (
	"context"
	"sync"

	"github.com/cosmos/wasm-indexer/db"
)

// MemoryQueue is an in-process implementation of both enqueue boundaries,
// used in tests and single-process deployments without workers.
type MemoryQueue struct {
	mu sync.Mutex

	webhooks    []db.WasmStateEvent
	trackerJobs map[uint64]CodeTrackerJob
}

// NewMemoryQueue returns an empty queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{
		trackerJobs: make(map[uint64]CodeTrackerJob),
	}
}

// EnqueueWebhooks implements WebhookEnqueuer.
func (q *MemoryQueue) EnqueueWebhooks(ctx context.Context, events []db.WasmStateEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.webhooks = append(q.webhooks, events...)
	return nil
}

// EnqueueCodeTrackerJob implements CodeTrackerEnqueuer. A job for an
// already-seen block height replaces the previous one, making the enqueue
// idempotent on the height key.
func (q *MemoryQueue) EnqueueCodeTrackerJob(ctx context.Context, job CodeTrackerJob) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.trackerJobs[job.BlockHeight] = job
	return nil
}

// Webhooks returns the enqueued webhook events.
func (q *MemoryQueue) Webhooks() []db.WasmStateEvent {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]db.WasmStateEvent(nil), q.webhooks...)
}

// TrackerJobs returns the enqueued code-tracker jobs.
func (q *MemoryQueue) TrackerJobs() map[uint64]CodeTrackerJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make(map[uint64]CodeTrackerJob, len(q.trackerJobs))
	for k, v := range q.trackerJobs {
		out[k] = v
	}
	return out
}
