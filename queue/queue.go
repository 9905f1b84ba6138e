// Package queue defines the enqueue boundary between the export pipeline
// and the external job/webhook workers. The queue backend itself lives out
// of process; only the enqueue semantics are part of the indexer.
package queue

import (
	"context"

	"github.com/cosmos/wasm-indexer/db"
	"github.com/cosmos/wasm-indexer/types"
)

// CodeTrackerJob carries a batch's contract lifecycle events and parsed
// state events to the external wasm-code tracker, which learns new
// code-ID-to-code-key mappings from them. Jobs are keyed by the batch's
// first contract event's block height.
type CodeTrackerJob struct {
	BlockHeight       uint64                          `json:"block_height"`
	ContractEvents    []types.ParsedWasmContractEvent `json:"contract_events"`
	StateEventUpdates []types.ParsedWasmStateEvent    `json:"state_event_updates"`
}

// WebhookEnqueuer hands newly persisted state events to the webhook
// delivery subsystem. Delivery happens out of process; a crash between
// enqueue and the watermark update can re-enqueue the same events, so
// delivery must be idempotent.
type WebhookEnqueuer interface {
	EnqueueWebhooks(ctx context.Context, events []db.WasmStateEvent) error
}

// CodeTrackerEnqueuer submits code-tracker jobs. Enqueue is idempotent on
// the job's block-height key.
type CodeTrackerEnqueuer interface {
	EnqueueCodeTrackerJob(ctx context.Context, job CodeTrackerJob) error
}
