package wasm

import (
	"encoding/json"

	"github.com/cosmos/gogoproto/proto"
	"github.com/tidwall/gjson"

	"cosmossdk.io/log"

	"github.com/cosmos/wasm-indexer/encoding/wasmkey"
	"github.com/cosmos/wasm-indexer/types"
)

// Matcher classifies raw trace records into contract lifecycle events and
// contract state events. Records outside the wasm key families, malformed
// keys and undecodable contract-info values are dropped.
type Matcher struct {
	codec  wasmkey.Codec
	logger log.Logger
}

// NewMatcher returns a matcher for the given key codec.
func NewMatcher(codec wasmkey.Codec, logger log.Logger) *Matcher {
	return &Matcher{
		codec:  codec,
		logger: logger.With("module", "matcher"),
	}
}

// Match classifies one trace record. Returns nil when the record does not
// produce an event.
func (m *Matcher) Match(rec types.TraceRecord) types.ParsedWasmEvent {
	if rec.Operation != types.TraceOperationWrite && rec.Operation != types.TraceOperationDelete {
		return nil
	}

	family, addrBytes, userKey, err := m.codec.Decode(rec.Key)
	if err != nil {
		m.logger.Debug("dropping trace record with malformed wasm key", "height", rec.BlockHeight(), "error", err)
		return nil
	}
	if family == wasmkey.FamilyNone {
		return nil
	}

	address, err := m.codec.HumanAddress(addrBytes)
	if err != nil {
		m.logger.Debug("dropping trace record with unencodable address", "height", rec.BlockHeight(), "error", err)
		return nil
	}

	switch family {
	case wasmkey.FamilyContractInfo:
		return m.matchContractInfo(rec, address)
	case wasmkey.FamilyContractState:
		return m.matchContractState(rec, address, userKey)
	default:
		return nil
	}
}

func (m *Matcher) matchContractInfo(rec types.TraceRecord, address string) types.ParsedWasmEvent {
	// contract-info deletes carry no metadata to index
	if rec.Operation != types.TraceOperationWrite {
		return nil
	}

	var info types.ContractInfo
	if err := proto.Unmarshal(rec.Value, &info); err != nil {
		m.logger.Debug("dropping contract-info write with undecodable value", "address", address, "height", rec.BlockHeight(), "error", err)
		return nil
	}
	if info.CodeID == 0 {
		m.logger.Debug("dropping contract-info write without code id", "address", address, "height", rec.BlockHeight())
		return nil
	}

	return types.ParsedWasmContractEvent{
		Address:         address,
		CodeID:          info.CodeID,
		Admin:           info.Admin,
		Creator:         info.Creator,
		Label:           info.Label,
		BlockHeight:     rec.BlockHeight(),
		BlockTimeUnixMs: uint64(rec.BlockTimeUnixMs),
	}
}

func (m *Matcher) matchContractState(rec types.TraceRecord, address string, userKey []byte) types.ParsedWasmEvent {
	event := types.ParsedWasmStateEvent{
		Address:         address,
		Key:             wasmkey.CanonicalKey(userKey),
		Value:           string(rec.Value),
		Delete:          rec.Operation == types.TraceOperationDelete,
		BlockHeight:     rec.BlockHeight(),
		BlockTimeUnixMs: uint64(rec.BlockTimeUnixMs),
	}

	if !event.Delete && len(rec.Value) > 0 && gjson.ValidBytes(rec.Value) {
		event.ValueJSON = json.RawMessage(append([]byte(nil), rec.Value...))
	}

	return event
}

// DedupEvents collapses events with equal event IDs, keeping the latest
// occurrence's payload at the first occurrence's position. Trace splitting
// can emit the same logical event several times within a batch.
func DedupEvents(events []types.ParsedWasmEvent) []types.ParsedWasmEvent {
	out := make([]types.ParsedWasmEvent, 0, len(events))
	index := make(map[string]int, len(events))

	for _, event := range events {
		id := event.EventID()
		if at, ok := index[id]; ok {
			out[at] = event
			continue
		}
		index[id] = len(out)
		out = append(out, event)
	}
	return out
}
