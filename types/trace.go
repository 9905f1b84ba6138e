package types

import (
	"bytes"
	"encoding/json"
	"strconv"

	errorsmod "cosmossdk.io/errors"
)

// Store operations emitted by the node's trace pipe. Reads and range
// iterations also appear on the pipe but carry no state mutation.
const (
	TraceOperationWrite  = "write"
	TraceOperationDelete = "delete"
	TraceOperationRead   = "read"
)

// FlexUint is an unsigned integer that unmarshals from either a JSON number
// or an integer-valued JSON string, as both appear on the trace pipe.
type FlexUint uint64

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexUint) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return errorsmod.Wrap(ErrInvalidTraceRecord, "empty integer value")
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return errorsmod.Wrapf(ErrInvalidTraceRecord, "integer-valued string: %v", err)
		}
		*f = FlexUint(v)
		return nil
	}

	v, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return errorsmod.Wrapf(ErrInvalidTraceRecord, "integer value: %v", err)
	}
	*f = FlexUint(v)
	return nil
}

// TraceMetadata carries the block context of a trace record.
type TraceMetadata struct {
	BlockHeight FlexUint `json:"blockHeight"`
	TxHash      string   `json:"txHash,omitempty"`
}

// TraceRecord is one key/value store mutation read from the trace pipe.
// Key and Value are base64 on the wire; encoding/json decodes them to raw
// bytes. Value may be empty for deletes.
type TraceRecord struct {
	Operation       string        `json:"operation"`
	Key             []byte        `json:"key"`
	Value           []byte        `json:"value"`
	Metadata        TraceMetadata `json:"metadata"`
	BlockTimeUnixMs FlexUint      `json:"blockTimeUnixMs"`
}

// BlockHeight returns the record's block height.
func (r TraceRecord) BlockHeight() uint64 {
	return uint64(r.Metadata.BlockHeight)
}
