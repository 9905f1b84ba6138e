package queue_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cosmos/wasm-indexer/db"
	"github.com/cosmos/wasm-indexer/queue"
	"github.com/cosmos/wasm-indexer/types"
)

func TestMemoryQueueWebhooksAppend(t *testing.T) {
	q := queue.NewMemoryQueue()
	ctx := context.Background()

	require.NoError(t, q.EnqueueWebhooks(ctx, []db.WasmStateEvent{{ContractAddress: "juno1a", BlockHeight: 1}}))
	require.NoError(t, q.EnqueueWebhooks(ctx, []db.WasmStateEvent{{ContractAddress: "juno1a", BlockHeight: 2}}))
	require.Len(t, q.Webhooks(), 2)
}

func TestMemoryQueueTrackerJobReplacesByHeight(t *testing.T) {
	q := queue.NewMemoryQueue()
	ctx := context.Background()

	first := queue.CodeTrackerJob{
		BlockHeight:    5,
		ContractEvents: []types.ParsedWasmContractEvent{{Address: "juno1a", CodeID: 1}},
	}
	replacement := first
	replacement.ContractEvents = []types.ParsedWasmContractEvent{{Address: "juno1a", CodeID: 2}}

	require.NoError(t, q.EnqueueCodeTrackerJob(ctx, first))
	require.NoError(t, q.EnqueueCodeTrackerJob(ctx, replacement))

	jobs := q.TrackerJobs()
	require.Len(t, jobs, 1)
	require.Equal(t, uint64(2), jobs[5].ContractEvents[0].CodeID)
}

func TestMemoryQueueRespectsContext(t *testing.T) {
	q := queue.NewMemoryQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.Error(t, q.EnqueueWebhooks(ctx, nil))
	require.Error(t, q.EnqueueCodeTrackerJob(ctx, queue.CodeTrackerJob{}))
}
