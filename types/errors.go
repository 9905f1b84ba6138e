package types

import (
	errorsmod "cosmossdk.io/errors"
)

// RootCodespace is the codespace for errors registered by the indexer.
const RootCodespace = "wasmindexer"

var (
	// ErrContractNotFound is returned by the contract-info querier when the
	// node reports that no contract exists at the requested address.
	ErrContractNotFound = errorsmod.Register(RootCodespace, 2, "contract not found")

	// ErrStateNotInitialized signals a missing indexer state singleton during
	// export. Per the error policy this is batch-fatal.
	ErrStateNotInitialized = errorsmod.Register(RootCodespace, 3, "indexer state not initialized")

	// ErrMissingChainID signals that the chain id could not be determined from
	// config, RPC, or the stored indexer state. Fatal at startup.
	ErrMissingChainID = errorsmod.Register(RootCodespace, 4, "chain id unavailable")

	// ErrInvalidTraceRecord signals a trace record that cannot be decoded.
	ErrInvalidTraceRecord = errorsmod.Register(RootCodespace, 5, "invalid trace record")
)
