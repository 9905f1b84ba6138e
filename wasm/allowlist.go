package wasm

import (
	"context"

	"cosmossdk.io/log"

	"github.com/cosmos/wasm-indexer/config"
	"github.com/cosmos/wasm-indexer/types"
)

// Allowlist restricts which state events are persisted for contracts whose
// code ID falls under a configured rule. Contracts outside every rule's
// code-ID set are unaffected, and events whose code ID is still the unknown
// sentinel pass through so they can be decided on a later batch.
//
// When several rules cover the same code ID the rules tighten: an event
// survives only if every covering rule names its key.
type Allowlist struct {
	rules    []config.AllowlistRule
	registry CodeRegistry
	logger   log.Logger
}

// NewAllowlist builds the filter from the rules configured for one chain.
// rules may be empty, in which case all events pass.
func NewAllowlist(rules []config.AllowlistRule, registry CodeRegistry, logger log.Logger) *Allowlist {
	return &Allowlist{
		rules:    rules,
		registry: registry,
		logger:   logger.With("module", "allowlist"),
	}
}

type resolvedRule struct {
	codeIDs   map[uint64]struct{}
	stateKeys map[string]struct{}
}

// Filter returns the events that pass the allowlist, using each event's
// post-resolution code ID.
func (a *Allowlist) Filter(ctx context.Context, events []types.ParsedWasmStateEvent) ([]types.ParsedWasmStateEvent, error) {
	if len(a.rules) == 0 || len(events) == 0 {
		return events, nil
	}

	resolved, err := a.resolveRules(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]types.ParsedWasmStateEvent, 0, len(events))
	for _, event := range events {
		if a.keep(resolved, event) {
			out = append(out, event)
		} else {
			a.logger.Debug("state event filtered by allowlist", "address", event.Address, "key", event.Key, "code_id", event.CodeID)
		}
	}
	return out, nil
}

func (a *Allowlist) keep(rules []resolvedRule, event types.ParsedWasmStateEvent) bool {
	// unknown code id: decide on a later batch
	if event.CodeID == 0 {
		return true
	}

	for _, rule := range rules {
		if _, ok := rule.codeIDs[event.CodeID]; !ok {
			continue
		}
		if _, ok := rule.stateKeys[event.Key]; !ok {
			return false
		}
	}
	return true
}

func (a *Allowlist) resolveRules(ctx context.Context) ([]resolvedRule, error) {
	out := make([]resolvedRule, 0, len(a.rules))
	for _, rule := range a.rules {
		codeIDs, err := a.registry.CodeIDsForKeys(ctx, rule.CodeIDsKeys...)
		if err != nil {
			return nil, err
		}

		resolved := resolvedRule{
			codeIDs:   make(map[uint64]struct{}, len(codeIDs)),
			stateKeys: make(map[string]struct{}, len(rule.StateKeys)),
		}
		for _, id := range codeIDs {
			resolved.codeIDs[id] = struct{}{}
		}
		for _, key := range rule.StateKeys {
			resolved.stateKeys[key] = struct{}{}
		}
		out = append(out, resolved)
	}
	return out, nil
}
