package wasm

import (
	"context"
)

// CodeRegistry resolves symbolic code-key names to the code IDs known under
// them. The wasm-code tracker (an external worker) learns new mappings from
// contract lifecycle events; the indexer only reads.
type CodeRegistry interface {
	CodeIDsForKeys(ctx context.Context, keys ...string) ([]uint64, error)
}

// StaticCodeRegistry is a fixed in-memory code-key mapping, used in tests
// and for chains configured without a registry store.
type StaticCodeRegistry struct {
	codeIDs map[string][]uint64
}

// NewStaticCodeRegistry builds a registry from a code-key → code-IDs map.
func NewStaticCodeRegistry(codeIDs map[string][]uint64) *StaticCodeRegistry {
	return &StaticCodeRegistry{codeIDs: codeIDs}
}

// CodeIDsForKeys implements CodeRegistry.
func (r *StaticCodeRegistry) CodeIDsForKeys(_ context.Context, keys ...string) ([]uint64, error) {
	var out []uint64
	seen := make(map[uint64]struct{})
	for _, key := range keys {
		for _, id := range r.codeIDs[key] {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out, nil
}
