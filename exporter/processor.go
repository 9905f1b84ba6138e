package exporter

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/log"

	"github.com/cosmos/wasm-indexer/config"
	"github.com/cosmos/wasm-indexer/db"
	"github.com/cosmos/wasm-indexer/encoding/wasmkey"
	"github.com/cosmos/wasm-indexer/metrics"
	"github.com/cosmos/wasm-indexer/queue"
	"github.com/cosmos/wasm-indexer/types"
	"github.com/cosmos/wasm-indexer/utils"
	"github.com/cosmos/wasm-indexer/wasm"
)

const (
	// exportAttempts / exportBackoffInterval is the retry discipline of the
	// combined contract+event flush, matching the resolver's.
	exportAttempts        = 3
	exportBackoffInterval = 100 * time.Millisecond

	// resolveConcurrency bounds parallel code-ID RPC lookups per batch.
	resolveConcurrency = 10

	// webhookEnqueueTimeout bounds the synchronous wait on webhook enqueue.
	webhookEnqueueTimeout = 30 * time.Second
)

// StatusClient exposes chain-id discovery from the node RPC.
type StatusClient interface {
	ChainID(ctx context.Context) (string, error)
}

// ResolveChainID determines the chain id from config, the node RPC, or the
// stored indexer state, in that order. All three missing is fatal.
func ResolveChainID(ctx context.Context, cfg *config.Config, status StatusClient, store *db.Store) (string, error) {
	if cfg.ChainID != "" {
		return cfg.ChainID, nil
	}

	if status != nil {
		chainID, err := status.ChainID(ctx)
		if err == nil && chainID != "" {
			return chainID, nil
		}
	}

	state, err := store.GetIndexerState(ctx)
	if err == nil && state.ChainID != "" {
		return state.ChainID, nil
	}

	return "", types.ErrMissingChainID
}

// ProcessorParams wires a Processor's collaborators.
type ProcessorParams struct {
	Config       *config.Config
	ChainID      string
	Store        *db.Store
	Querier      wasm.ContractInfoQuerier
	Registry     wasm.CodeRegistry // defaults to the store's code-key rows
	Transformers []wasm.Transformer
	Webhooks     queue.WebhookEnqueuer
	Tracker      queue.CodeTrackerEnqueuer
	Logger       log.Logger
}

// Processor runs the export pipeline for one batch of trace records:
// matching, contract resolution, allowlist filtering, persistence,
// transformations, queue boundaries and the watermark update. A single
// instance must own the database; a deployment-level lock is assumed.
type Processor struct {
	cfg       *config.Config
	chainID   string
	store     *db.Store
	matcher   *wasm.Matcher
	resolver  *wasm.CodeIDResolver
	allowlist *wasm.Allowlist
	engine    *wasm.TransformerEngine
	webhooks  queue.WebhookEnqueuer
	tracker   queue.CodeTrackerEnqueuer
	logger    log.Logger
}

// transformationWriter adapts the store to wasm.TransformationWriter.
type transformationWriter struct {
	store *db.Store
}

func (w transformationWriter) UpsertTransformations(ctx context.Context, rows []types.Transformation) error {
	_, err := w.store.UpsertTransformations(ctx, rows)
	return err
}

// NewProcessor builds the pipeline for one chain.
func NewProcessor(p ProcessorParams) (*Processor, error) {
	if p.ChainID == "" {
		return nil, types.ErrMissingChainID
	}

	logger := p.Logger.With("module", "exporter", "chain_id", p.ChainID)

	registry := p.Registry
	if registry == nil {
		registry = p.Store
	}

	resolver, err := wasm.NewCodeIDResolver(p.Querier, p.Config.ResolverTimeout, logger)
	if err != nil {
		return nil, err
	}

	codec := wasmkey.CodecForChain(p.Config.Bech32Prefix, p.ChainID)

	return &Processor{
		cfg:       p.Config,
		chainID:   p.ChainID,
		store:     p.Store,
		matcher:   wasm.NewMatcher(codec, logger),
		resolver:  resolver,
		allowlist: wasm.NewAllowlist(p.Config.AllowlistForChain(p.ChainID), registry, logger),
		engine:    wasm.NewTransformerEngine(p.Transformers, registry, transformationWriter{p.Store}, logger),
		webhooks:  p.Webhooks,
		tracker:   p.Tracker,
		logger:    logger,
	}, nil
}

// Init ensures the schema and the indexer state singleton exist.
func (p *Processor) Init(ctx context.Context) error {
	if err := p.store.Migrate(); err != nil {
		return errorsmod.Wrap(err, "migrate schema")
	}
	_, err := p.store.EnsureIndexerState(ctx, p.chainID)
	return err
}

// ExportTraces processes one batch of trace records end to end. Batches are
// redo-safe: every write is an upsert and the watermark only advances after
// persistence succeeds, so re-running a batch after a crash converges to
// the same database state.
func (p *Processor) ExportTraces(ctx context.Context, records []types.TraceRecord) error {
	metrics.IncrCounter(metrics.KeyTracesSeen, float32(len(records)))

	events := make([]types.ParsedWasmEvent, 0, len(records))
	for _, rec := range records {
		if event := p.matcher.Match(rec); event != nil {
			events = append(events, event)
		}
	}
	events = wasm.DedupEvents(events)
	metrics.IncrCounter(metrics.KeyTracesMatched, float32(len(events)))
	if len(events) == 0 {
		return nil
	}

	var contractEvents []types.ParsedWasmContractEvent
	var stateEvents []types.ParsedWasmStateEvent
	for _, event := range events {
		switch e := event.(type) {
		case types.ParsedWasmContractEvent:
			contractEvents = append(contractEvents, e)
		case types.ParsedWasmStateEvent:
			stateEvents = append(stateEvents, e)
		}
	}

	// a lifecycle event supersedes whatever the resolver cached
	for _, event := range contractEvents {
		p.resolver.Forget(event.Address)
	}

	// the pre-batch watermark drives the webhook redelivery filter
	preState, err := p.store.GetIndexerState(ctx)
	if err != nil {
		metrics.IncrCounter(metrics.KeyBatchesFailed, 1)
		return err
	}

	var exported []db.WasmStateEvent
	var transformable []types.ParsedWasmStateEvent

	flush := func() error {
		exported, transformable = nil, nil

		if err := p.store.EnsureBlocks(ctx, blocksFromEvents(events)); err != nil {
			return errorsmod.Wrap(err, "ensure blocks")
		}
		if err := p.store.UpsertContracts(ctx, contractEvents); err != nil {
			return errorsmod.Wrap(err, "upsert contracts")
		}

		contracts, err := p.ensureContractsForStateEvents(ctx, stateEvents)
		if err != nil {
			return err
		}

		filtered := make([]types.ParsedWasmStateEvent, len(stateEvents))
		copy(filtered, stateEvents)
		for i := range filtered {
			if contract, ok := contracts[filtered[i].Address]; ok {
				filtered[i].CodeID = contract.CodeID
			}
		}

		filtered, err = p.allowlist.Filter(ctx, filtered)
		if err != nil {
			return errorsmod.Wrap(err, "allowlist filter")
		}

		rows := make([]db.WasmStateEvent, 0, len(filtered))
		for _, event := range filtered {
			rows = append(rows, db.WasmStateEvent{
				BlockHeight:     event.BlockHeight,
				ContractAddress: event.Address,
				Key:             event.Key,
				Value:           event.Value,
				ValueJSON:       event.ValueJSON,
				Delete:          event.Delete,
				CodeID:          event.CodeID,
				BlockTimeUnixMs: event.BlockTimeUnixMs,
			})
		}

		exported, err = p.store.UpsertStateEvents(ctx, rows, contracts)
		if err != nil {
			return errorsmod.Wrap(err, "upsert state events")
		}

		// mirror the persisted set into the parsed list used downstream:
		// transformers only see events with a known code id
		persisted := make(map[string]struct{}, len(exported))
		for _, row := range exported {
			persisted[stateEventID(row)] = struct{}{}
		}
		for _, event := range filtered {
			if _, ok := persisted[event.EventID()]; !ok {
				continue
			}
			if event.CodeID == 0 {
				continue
			}
			transformable = append(transformable, event)
		}
		return nil
	}

	if err := p.retry(ctx, flush); err != nil {
		metrics.IncrCounter(metrics.KeyBatchesFailed, 1)
		return err
	}
	metrics.IncrCounter(metrics.KeyEventsExported, float32(len(exported)))
	metrics.IncrCounter(metrics.KeyEventsDropped, float32(len(stateEvents)-len(exported)))

	if _, err := p.engine.Apply(ctx, transformable); err != nil {
		metrics.IncrCounter(metrics.KeyBatchesFailed, 1)
		return errorsmod.Wrap(err, "apply transformers")
	}

	if err := p.enqueueCodeTrackerJob(ctx, contractEvents, transformable); err != nil {
		metrics.IncrCounter(metrics.KeyBatchesFailed, 1)
		return err
	}

	if err := p.enqueueWebhooks(ctx, exported, preState.LastWasmBlockHeightExported); err != nil {
		metrics.IncrCounter(metrics.KeyBatchesFailed, 1)
		return err
	}

	maxHeight, maxTime := latestEvent(events)
	if _, err := p.store.AdvanceWatermark(ctx, maxHeight, maxTime); err != nil {
		metrics.IncrCounter(metrics.KeyBatchesFailed, 1)
		return errorsmod.Wrap(err, "advance watermark")
	}

	metrics.IncrCounter(metrics.KeyBatchesExported, 1)
	p.logger.Info("exported wasm batch",
		"events", len(exported),
		"contracts", len(contractEvents),
		"height", maxHeight,
	)
	return nil
}

// ensureContractsForStateEvents guarantees a contract row exists for every
// state event's address, back-fills unknown code IDs through the resolver
// with bounded concurrency, and returns the fresh rows keyed by address.
func (p *Processor) ensureContractsForStateEvents(ctx context.Context, stateEvents []types.ParsedWasmStateEvent) (map[string]db.Contract, error) {
	earliest := make(map[string]types.ParsedWasmStateEvent)
	for _, event := range stateEvents {
		first, ok := earliest[event.Address]
		if !ok || event.BlockHeight < first.BlockHeight {
			earliest[event.Address] = event
		}
	}

	placeholders := make([]db.Contract, 0, len(earliest))
	addresses := make([]string, 0, len(earliest))
	for address, event := range earliest {
		addresses = append(addresses, address)
		placeholders = append(placeholders, db.Contract{
			Address:                       address,
			CodeID:                        0,
			InstantiatedAtBlockHeight:     event.BlockHeight,
			InstantiatedAtBlockTimeUnixMs: event.BlockTimeUnixMs,
			InstantiatedAtBlockTimestamp:  utils.TimeFromUnixMs(event.BlockTimeUnixMs),
		})
	}

	if err := p.store.EnsureContracts(ctx, placeholders); err != nil {
		return nil, errorsmod.Wrap(err, "ensure contracts")
	}

	contracts, err := p.store.GetContracts(ctx, addresses)
	if err != nil {
		return nil, errorsmod.Wrap(err, "load contracts")
	}

	resolved, err := p.backfillCodeIDs(ctx, contracts)
	if err != nil {
		return nil, err
	}
	if resolved {
		if contracts, err = p.store.GetContracts(ctx, addresses); err != nil {
			return nil, errorsmod.Wrap(err, "reload contracts")
		}
	}

	byAddress := make(map[string]db.Contract, len(contracts))
	for _, contract := range contracts {
		byAddress[contract.Address] = contract
	}
	return byAddress, nil
}

// backfillCodeIDs resolves code IDs for contracts still carrying the
// unknown sentinel. Reports whether any row was updated.
func (p *Processor) backfillCodeIDs(ctx context.Context, contracts []db.Contract) (bool, error) {
	var mu sync.Mutex
	resolved := make(map[string]uint64)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resolveConcurrency)

	for _, contract := range contracts {
		if contract.CodeID > 0 {
			continue
		}
		address := contract.Address
		g.Go(func() error {
			if codeID := p.resolver.Resolve(gctx, address); codeID > 0 {
				mu.Lock()
				resolved[address] = codeID
				mu.Unlock()
			}
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return false, errorsmod.Wrap(err, "resolve code ids")
	}
	if len(resolved) == 0 {
		return false, nil
	}

	if err := p.store.UpdateContractCodeIDs(ctx, resolved); err != nil {
		return false, errorsmod.Wrap(err, "backfill code ids")
	}
	return true, nil
}

func (p *Processor) enqueueCodeTrackerJob(ctx context.Context, contractEvents []types.ParsedWasmContractEvent, stateEvents []types.ParsedWasmStateEvent) error {
	if p.tracker == nil || len(contractEvents) == 0 {
		return nil
	}

	job := queue.CodeTrackerJob{
		BlockHeight:       contractEvents[0].BlockHeight,
		ContractEvents:    contractEvents,
		StateEventUpdates: stateEvents,
	}
	if err := p.tracker.EnqueueCodeTrackerJob(ctx, job); err != nil {
		return errorsmod.Wrap(err, "enqueue code tracker job")
	}
	return nil
}

// enqueueWebhooks hands events at or above the pre-batch watermark to the
// webhook subsystem. The inclusive bound catches same-block re-splits;
// duplicates on crash-redo are accepted and deduplicated downstream.
func (p *Processor) enqueueWebhooks(ctx context.Context, exported []db.WasmStateEvent, preWatermark uint64) error {
	if p.webhooks == nil || !p.cfg.SendWebhooks || len(exported) == 0 {
		return nil
	}

	deliverable := make([]db.WasmStateEvent, 0, len(exported))
	for _, event := range exported {
		if event.BlockHeight >= preWatermark {
			deliverable = append(deliverable, event)
		}
	}
	if len(deliverable) == 0 {
		return nil
	}

	enqueueCtx, cancel := context.WithTimeout(ctx, webhookEnqueueTimeout)
	defer cancel()

	if err := p.webhooks.EnqueueWebhooks(enqueueCtx, deliverable); err != nil {
		return errorsmod.Wrap(err, "enqueue webhooks")
	}
	metrics.IncrCounter(metrics.KeyWebhooksEnqueued, float32(len(deliverable)))
	return nil
}

func (p *Processor) retry(ctx context.Context, op func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = exportBackoffInterval
	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(policy, exportAttempts-1), ctx))
}

// blocksFromEvents collects one row per distinct height, taking the first
// time found for that height.
func blocksFromEvents(events []types.ParsedWasmEvent) []db.Block {
	byHeight := make(map[uint64]db.Block)
	order := make([]uint64, 0)
	for _, event := range events {
		height := event.GetBlockHeight()
		if _, ok := byHeight[height]; ok {
			continue
		}
		byHeight[height] = db.Block{Height: height, TimeUnixMs: event.GetBlockTimeUnixMs()}
		order = append(order, height)
	}

	out := make([]db.Block, 0, len(order))
	for _, height := range order {
		out = append(out, byHeight[height])
	}
	return out
}

// latestEvent returns the height and time of the batch's highest event.
func latestEvent(events []types.ParsedWasmEvent) (uint64, uint64) {
	var height, timeMs uint64
	for _, event := range events {
		if event.GetBlockHeight() >= height {
			height = event.GetBlockHeight()
			timeMs = event.GetBlockTimeUnixMs()
		}
	}
	return height, timeMs
}

func stateEventID(row db.WasmStateEvent) string {
	return types.ParsedWasmStateEvent{
		Address:     row.ContractAddress,
		Key:         row.Key,
		BlockHeight: row.BlockHeight,
	}.EventID()
}
