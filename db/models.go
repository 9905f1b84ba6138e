package db

import (
	"encoding/json"
	"time"
)

// Block is one observed block height. Rows are created on first observation
// and never rewritten.
type Block struct {
	Height     uint64 `gorm:"primaryKey;autoIncrement:false;column:height"`
	TimeUnixMs uint64 `gorm:"not null;column:time_unix_ms"`
}

// Contract is a smart contract's metadata. CodeID 0 means unknown; it is
// back-filled by the resolver. Instantiation fields are written on first
// insert only.
type Contract struct {
	Address                       string    `gorm:"primaryKey;column:address"`
	CodeID                        uint64    `gorm:"not null;default:0;index;column:code_id"`
	Admin                         string    `gorm:"column:admin"`
	Creator                       string    `gorm:"column:creator"`
	Label                         string    `gorm:"column:label"`
	InstantiatedAtBlockHeight     uint64    `gorm:"column:instantiated_at_block_height"`
	InstantiatedAtBlockTimeUnixMs uint64    `gorm:"column:instantiated_at_block_time_unix_ms"`
	InstantiatedAtBlockTimestamp  time.Time `gorm:"column:instantiated_at_block_timestamp"`
}

// WasmStateEvent is one contract storage write or delete. The composite
// unique key collapses re-exports of the same (height, contract, key) to
// the latest insert. CodeID is denormalized from the contract row at insert
// time for query performance.
type WasmStateEvent struct {
	ID              uint64          `gorm:"primaryKey"`
	BlockHeight     uint64          `gorm:"not null;uniqueIndex:idx_state_events_height_addr_key;column:block_height"`
	ContractAddress string          `gorm:"not null;uniqueIndex:idx_state_events_height_addr_key;index;column:contract_address"`
	Key             string          `gorm:"not null;uniqueIndex:idx_state_events_height_addr_key;column:key"`
	Value           string          `gorm:"not null;column:value"`
	ValueJSON       json.RawMessage `gorm:"type:jsonb;column:value_json"`
	Delete          bool            `gorm:"not null;column:delete"`
	CodeID          uint64          `gorm:"not null;default:0;index;column:code_id"`
	BlockTimeUnixMs uint64          `gorm:"not null;column:block_time_unix_ms"`

	// Contract is a lookup view attached after persistence, not an owned
	// association.
	Contract *Contract `gorm:"-"`
}

// WasmStateEventTransformation is a derived row produced by a transformer
// rule, unique per (contract, name, height).
type WasmStateEventTransformation struct {
	ID              uint64          `gorm:"primaryKey"`
	ContractAddress string          `gorm:"not null;uniqueIndex:idx_transformations_addr_name_height;column:contract_address"`
	Name            string          `gorm:"not null;uniqueIndex:idx_transformations_addr_name_height;column:name"`
	BlockHeight     uint64          `gorm:"not null;uniqueIndex:idx_transformations_addr_name_height;column:block_height"`
	Value           json.RawMessage `gorm:"type:jsonb;column:value"`

	Contract *Contract `gorm:"-"`
}

// IndexerState is the singleton watermark row, updated with monotonic MAX
// semantics only.
type IndexerState struct {
	ID                          uint64 `gorm:"primaryKey"`
	ChainID                     string `gorm:"column:chain_id"`
	LastWasmBlockHeightExported uint64 `gorm:"not null;default:0;column:last_wasm_block_height_exported"`
	LatestBlockHeight           uint64 `gorm:"not null;default:0;column:latest_block_height"`
	LatestBlockTimeUnixMs       uint64 `gorm:"not null;default:0;column:latest_block_time_unix_ms"`
}

// indexerStateID is the fixed primary key of the singleton row.
const indexerStateID = 1

// WasmCodeKeyID maps a symbolic code-key name to one code ID known under
// it. The wasm-code tracker is the primary writer.
type WasmCodeKeyID struct {
	ID      uint64 `gorm:"primaryKey"`
	CodeKey string `gorm:"not null;uniqueIndex:idx_code_key_ids_key_id;column:code_key"`
	CodeID  uint64 `gorm:"not null;uniqueIndex:idx_code_key_ids_key_id;column:code_id"`
}
