package types

import (
	"encoding/json"
	"fmt"
)

// ParsedWasmEvent is an event recognized by the matcher, either a contract
// lifecycle event or a contract state event. The event ID is used for
// in-batch deduplication before persistence: later records with the same ID
// overwrite earlier ones.
type ParsedWasmEvent interface {
	GetAddress() string
	GetBlockHeight() uint64
	GetBlockTimeUnixMs() uint64
	EventID() string
}

// ParsedWasmContractEvent is a contract lifecycle event decoded from a
// contract-info store write.
type ParsedWasmContractEvent struct {
	Address         string
	CodeID          uint64
	Admin           string
	Creator         string
	Label           string
	BlockHeight     uint64
	BlockTimeUnixMs uint64
}

func (e ParsedWasmContractEvent) GetAddress() string         { return e.Address }
func (e ParsedWasmContractEvent) GetBlockHeight() uint64     { return e.BlockHeight }
func (e ParsedWasmContractEvent) GetBlockTimeUnixMs() uint64 { return e.BlockTimeUnixMs }

func (e ParsedWasmContractEvent) EventID() string {
	return fmt.Sprintf("contract:%d:%s", e.BlockHeight, e.Address)
}

// ParsedWasmStateEvent is a contract state write or delete. Key is in
// canonical form (comma-joined decimal bytes). Value holds the raw value
// bytes verbatim; ValueJSON holds the value when it parses as JSON, nil
// otherwise. CodeID is 0 until resolved against the contract row.
type ParsedWasmStateEvent struct {
	Address         string
	Key             string
	Value           string
	ValueJSON       json.RawMessage
	Delete          bool
	CodeID          uint64
	BlockHeight     uint64
	BlockTimeUnixMs uint64
}

func (e ParsedWasmStateEvent) GetAddress() string         { return e.Address }
func (e ParsedWasmStateEvent) GetBlockHeight() uint64     { return e.BlockHeight }
func (e ParsedWasmStateEvent) GetBlockTimeUnixMs() uint64 { return e.BlockTimeUnixMs }

func (e ParsedWasmStateEvent) EventID() string {
	return fmt.Sprintf("state:%d:%s:%s", e.BlockHeight, e.Address, e.Key)
}

// Transformation is a derived row produced by a transformer rule from a
// state event. Uniqueness is (contract address, name, block height).
type Transformation struct {
	ContractAddress string
	BlockHeight     uint64
	Name            string
	Value           json.RawMessage
}
