package db_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"cosmossdk.io/log"

	"github.com/cosmos/wasm-indexer/db"
	"github.com/cosmos/wasm-indexer/types"
)

func openTestStore(t *testing.T) *db.Store {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	store := db.NewStore(gdb, log.NewNopLogger())
	require.NoError(t, store.Migrate())
	return store
}

func TestEnsureBlocksKeepsFirstTime(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.EnsureBlocks(ctx, []db.Block{{Height: 10, TimeUnixMs: 1000}}))
	require.NoError(t, store.EnsureBlocks(ctx, []db.Block{
		{Height: 10, TimeUnixMs: 9999},
		{Height: 11, TimeUnixMs: 1100},
	}))

	// re-observation of height 10 must not rewrite its time
	require.NoError(t, store.EnsureBlocks(ctx, nil))
}

func TestUpsertContractsUpdatesMetadataOnly(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first := types.ParsedWasmContractEvent{
		Address: "juno1a", CodeID: 5, Admin: "juno1admin", Creator: "juno1creator",
		Label: "v1", BlockHeight: 10, BlockTimeUnixMs: 10_000,
	}
	require.NoError(t, store.UpsertContracts(ctx, []types.ParsedWasmContractEvent{first}))

	// a migration at a later height updates metadata but keeps the
	// instantiation columns from the first insert
	migrated := first
	migrated.CodeID = 6
	migrated.Label = "v2"
	migrated.BlockHeight = 20
	migrated.BlockTimeUnixMs = 20_000
	require.NoError(t, store.UpsertContracts(ctx, []types.ParsedWasmContractEvent{migrated}))

	contract, err := store.GetContract(ctx, "juno1a")
	require.NoError(t, err)
	require.NotNil(t, contract)
	require.Equal(t, uint64(6), contract.CodeID)
	require.Equal(t, "v2", contract.Label)
	require.Equal(t, uint64(10), contract.InstantiatedAtBlockHeight)
	require.Equal(t, uint64(10_000), contract.InstantiatedAtBlockTimeUnixMs)
}

func TestEnsureContractsDoesNotOverwrite(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertContracts(ctx, []types.ParsedWasmContractEvent{
		{Address: "juno1a", CodeID: 5, Label: "real", BlockHeight: 10},
	}))

	// a placeholder row from a state event must not reset the code id
	require.NoError(t, store.EnsureContracts(ctx, []db.Contract{
		{Address: "juno1a", CodeID: 0, InstantiatedAtBlockHeight: 20},
		{Address: "juno1b", CodeID: 0, InstantiatedAtBlockHeight: 20},
	}))

	contracts, err := store.GetContracts(ctx, []string{"juno1a", "juno1b"})
	require.NoError(t, err)
	require.Len(t, contracts, 2)

	byAddr := map[string]db.Contract{}
	for _, c := range contracts {
		byAddr[c.Address] = c
	}
	require.Equal(t, uint64(5), byAddr["juno1a"].CodeID)
	require.Equal(t, "real", byAddr["juno1a"].Label)
	require.Zero(t, byAddr["juno1b"].CodeID)
}

func TestUpdateContractCodeIDs(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.EnsureContracts(ctx, []db.Contract{
		{Address: "juno1a", Label: "keep-me"},
		{Address: "juno1b"},
	}))
	require.NoError(t, store.UpdateContractCodeIDs(ctx, map[string]uint64{"juno1a": 7}))

	contract, err := store.GetContract(ctx, "juno1a")
	require.NoError(t, err)
	require.Equal(t, uint64(7), contract.CodeID)
	require.Equal(t, "keep-me", contract.Label)

	other, err := store.GetContract(ctx, "juno1b")
	require.NoError(t, err)
	require.Zero(t, other.CodeID)
}

func TestGetContractMissing(t *testing.T) {
	store := openTestStore(t)

	contract, err := store.GetContract(context.Background(), "juno1nope")
	require.NoError(t, err)
	require.Nil(t, contract)
}

func TestUpsertStateEventsConflictOverwrites(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.EnsureContracts(ctx, []db.Contract{{Address: "juno1a", CodeID: 5}}))
	contracts := map[string]db.Contract{"juno1a": {Address: "juno1a", CodeID: 5}}

	first := db.WasmStateEvent{
		BlockHeight: 10, ContractAddress: "juno1a", Key: "1,2",
		Value: `{"n":1}`, ValueJSON: json.RawMessage(`{"n":1}`), CodeID: 5, BlockTimeUnixMs: 10_000,
	}
	kept, err := store.UpsertStateEvents(ctx, []db.WasmStateEvent{first}, contracts)
	require.NoError(t, err)
	require.Len(t, kept, 1)
	require.NotNil(t, kept[0].Contract)
	require.Equal(t, uint64(5), kept[0].Contract.CodeID)

	// re-export of the same (height, contract, key) collapses to the delete
	second := first
	second.Value = ""
	second.ValueJSON = nil
	second.Delete = true
	kept, err = store.UpsertStateEvents(ctx, []db.WasmStateEvent{second}, contracts)
	require.NoError(t, err)
	require.Len(t, kept, 1)
	require.True(t, kept[0].Delete)

	events, err := store.GetStateEvents(ctx, "juno1a")
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.True(t, events[0].Delete)
	require.Empty(t, events[0].Value)
}

func TestUpsertStateEventsJoinsContractOnMiss(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.EnsureContracts(ctx, []db.Contract{{Address: "juno1late", CodeID: 3}}))

	// contract absent from the in-memory set: the store falls back to a lookup
	kept, err := store.UpsertStateEvents(ctx, []db.WasmStateEvent{
		{BlockHeight: 1, ContractAddress: "juno1late", Key: "9", Value: "v", CodeID: 3},
	}, map[string]db.Contract{})
	require.NoError(t, err)
	require.Len(t, kept, 1)
	require.NotNil(t, kept[0].Contract)
	require.Equal(t, uint64(3), kept[0].Contract.CodeID)
}

func TestUpsertTransformationsConflictOverwrites(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.EnsureContracts(ctx, []db.Contract{{Address: "juno1a"}}))

	rows, err := store.UpsertTransformations(ctx, []types.Transformation{
		{ContractAddress: "juno1a", Name: "balance", BlockHeight: 10, Value: json.RawMessage(`"1"`)},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].Contract)

	rows, err = store.UpsertTransformations(ctx, []types.Transformation{
		{ContractAddress: "juno1a", Name: "balance", BlockHeight: 10, Value: json.RawMessage(`"2"`)},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.JSONEq(t, `"2"`, string(rows[0].Value))
}

func TestIndexerStateLifecycle(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.GetIndexerState(ctx)
	require.ErrorIs(t, err, types.ErrStateNotInitialized)

	_, err = store.AdvanceWatermark(ctx, 10, 10_000)
	require.ErrorIs(t, err, types.ErrStateNotInitialized)

	state, err := store.EnsureIndexerState(ctx, "juno-1")
	require.NoError(t, err)
	require.Equal(t, "juno-1", state.ChainID)
	require.Zero(t, state.LastWasmBlockHeightExported)

	// EnsureIndexerState is idempotent
	again, err := store.EnsureIndexerState(ctx, "juno-1")
	require.NoError(t, err)
	require.Equal(t, state.ID, again.ID)

	state, err = store.AdvanceWatermark(ctx, 10, 10_000)
	require.NoError(t, err)
	require.Equal(t, uint64(10), state.LastWasmBlockHeightExported)
	require.Equal(t, uint64(10), state.LatestBlockHeight)
	require.Equal(t, uint64(10_000), state.LatestBlockTimeUnixMs)

	// re-processing an older range never moves the watermark backwards
	state, err = store.AdvanceWatermark(ctx, 4, 4_000)
	require.NoError(t, err)
	require.Equal(t, uint64(10), state.LastWasmBlockHeightExported)
	require.Equal(t, uint64(10_000), state.LatestBlockTimeUnixMs)

	state, err = store.AdvanceWatermark(ctx, 11, 11_000)
	require.NoError(t, err)
	require.Equal(t, uint64(11), state.LastWasmBlockHeightExported)
}

func TestCodeKeyRegistry(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertCodeKeyIDs(ctx, []db.WasmCodeKeyID{
		{CodeKey: "cw20", CodeID: 5},
		{CodeKey: "cw20", CodeID: 6},
		{CodeKey: "staking", CodeID: 6},
	}))
	// duplicates are ignored
	require.NoError(t, store.UpsertCodeKeyIDs(ctx, []db.WasmCodeKeyID{
		{CodeKey: "cw20", CodeID: 5},
	}))

	ids, err := store.CodeIDsForKeys(ctx, "cw20", "staking")
	require.NoError(t, err)
	require.Equal(t, []uint64{5, 6}, ids)

	ids, err = store.CodeIDsForKeys(ctx, "unknown")
	require.NoError(t, err)
	require.Empty(t, ids)

	ids, err = store.CodeIDsForKeys(ctx)
	require.NoError(t, err)
	require.Nil(t, ids)
}
