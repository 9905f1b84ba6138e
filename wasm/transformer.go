package wasm

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/tidwall/gjson"

	"cosmossdk.io/log"

	"github.com/cosmos/wasm-indexer/metrics"
	"github.com/cosmos/wasm-indexer/types"
)

// Transformer derives a named JSON row from matching state events. Rules
// are plain records registered with the engine, not a type hierarchy.
type Transformer struct {
	// Name is the derived row's name.
	Name string
	// CodeIDsKeys are the symbolic code-key groups this rule applies to.
	CodeIDsKeys []string
	// Matches reports whether the rule fires for a state event's canonical
	// key and parsed value (gjson zero value when the value is not JSON).
	Matches func(key string, value gjson.Result) bool
	// Extract builds the derived value from the event.
	Extract func(event types.ParsedWasmStateEvent) (json.RawMessage, error)
}

// TransformationWriter persists derived rows with upsert semantics on
// (contract address, name, block height).
type TransformationWriter interface {
	UpsertTransformations(ctx context.Context, rows []types.Transformation) error
}

// transformer engine retry discipline, mirroring the resolver's.
const (
	transformerAttempts        = 3
	transformerBackoffInterval = 100 * time.Millisecond
)

// TransformerEngine runs the registered rules against a batch of state
// events and persists the derived rows.
type TransformerEngine struct {
	transformers []Transformer
	registry     CodeRegistry
	writer       TransformationWriter
	logger       log.Logger
}

// NewTransformerEngine returns an engine over the given rule registry.
func NewTransformerEngine(transformers []Transformer, registry CodeRegistry, writer TransformationWriter, logger log.Logger) *TransformerEngine {
	return &TransformerEngine{
		transformers: transformers,
		registry:     registry,
		writer:       writer,
		logger:       logger.With("module", "transformer"),
	}
}

// Apply evaluates every rule against the batch and persists the derived
// rows, retrying transient persistence failures. events must already carry
// resolved code IDs; events with the unknown sentinel are never selected.
func (e *TransformerEngine) Apply(ctx context.Context, events []types.ParsedWasmStateEvent) ([]types.Transformation, error) {
	if len(e.transformers) == 0 || len(events) == 0 {
		return nil, nil
	}

	rows := make([]types.Transformation, 0)
	for _, t := range e.transformers {
		selected, err := e.derive(ctx, t, events)
		if err != nil {
			return nil, err
		}
		rows = append(rows, selected...)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	if err := e.persist(ctx, rows); err != nil {
		return nil, err
	}

	metrics.IncrCounter(metrics.KeyTransformations, float32(len(rows)))
	return rows, nil
}

func (e *TransformerEngine) derive(ctx context.Context, t Transformer, events []types.ParsedWasmStateEvent) ([]types.Transformation, error) {
	codeIDs, err := e.registry.CodeIDsForKeys(ctx, t.CodeIDsKeys...)
	if err != nil {
		return nil, err
	}
	if len(codeIDs) == 0 {
		return nil, nil
	}

	group := make(map[uint64]struct{}, len(codeIDs))
	for _, id := range codeIDs {
		group[id] = struct{}{}
	}

	var rows []types.Transformation
	for _, event := range events {
		if event.CodeID == 0 {
			continue
		}
		if _, ok := group[event.CodeID]; !ok {
			continue
		}
		if !t.Matches(event.Key, gjson.ParseBytes(event.ValueJSON)) {
			continue
		}

		value, err := t.Extract(event)
		if err != nil {
			e.logger.Error("transformer extract failed, skipping event", "name", t.Name, "address", event.Address, "height", event.BlockHeight, "error", err)
			continue
		}

		rows = append(rows, types.Transformation{
			ContractAddress: event.Address,
			BlockHeight:     event.BlockHeight,
			Name:            t.Name,
			Value:           value,
		})
	}
	return rows, nil
}

func (e *TransformerEngine) persist(ctx context.Context, rows []types.Transformation) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = transformerBackoffInterval

	op := func() error {
		return e.writer.UpsertTransformations(ctx, rows)
	}

	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(policy, transformerAttempts-1), ctx))
}
