package wasm

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	lru "github.com/hashicorp/golang-lru/v2"

	"cosmossdk.io/log"

	"github.com/cosmos/wasm-indexer/metrics"
	"github.com/cosmos/wasm-indexer/types"
)

const (
	// codeIDCacheSize bounds the process-wide address → code-ID cache.
	codeIDCacheSize = 1000

	// resolver retry discipline: 3 attempts, exponential backoff from 100ms.
	resolverAttempts        = 3
	resolverBackoffInterval = 100 * time.Millisecond
)

// ContractInfoQuerier fetches contract metadata from the node. It must
// return types.ErrContractNotFound when no contract exists at the address.
type ContractInfoQuerier interface {
	ContractInfo(ctx context.Context, address string) (*types.ContractInfo, error)
}

// CodeIDResolver maps contract addresses to code IDs through a bounded LRU
// backed by the node RPC. Resolution never fails the caller: lookups that
// exhaust their retries cache and return the 0 sentinel, which downstream
// code treats as "unknown, retry on a later batch".
type CodeIDResolver struct {
	querier ContractInfoQuerier
	cache   *lru.Cache[string, uint64]
	timeout time.Duration
	logger  log.Logger
}

// NewCodeIDResolver returns a resolver over querier. timeout bounds a single
// RPC attempt.
func NewCodeIDResolver(querier ContractInfoQuerier, timeout time.Duration, logger log.Logger) (*CodeIDResolver, error) {
	cache, err := lru.New[string, uint64](codeIDCacheSize)
	if err != nil {
		return nil, err
	}

	return &CodeIDResolver{
		querier: querier,
		cache:   cache,
		timeout: timeout,
		logger:  logger.With("module", "resolver"),
	}, nil
}

// Resolve returns the code ID for address, or 0 when it is unknown. The 0
// sentinel is cached so repeated lookups within the cache's lifetime stay
// cheap, and is re-resolved once the backing contract row is seen again.
func (r *CodeIDResolver) Resolve(ctx context.Context, address string) uint64 {
	if codeID, ok := r.cache.Get(address); ok {
		metrics.IncrCounter(metrics.KeyResolverHits, 1)
		return codeID
	}
	metrics.IncrCounter(metrics.KeyResolverMisses, 1)

	codeID, err := r.fetch(ctx, address)
	switch {
	case err == nil:
	case errors.Is(err, types.ErrContractNotFound):
		r.logger.Debug("contract not found, caching unknown code id", "address", address)
		codeID = 0
	default:
		metrics.IncrCounter(metrics.KeyResolverFailures, 1)
		r.logger.Error("failed to resolve code id, caching unknown", "address", address, "error", err)
		codeID = 0
	}

	r.cache.Add(address, codeID)
	return codeID
}

// Forget drops a cached entry, forcing the next Resolve to hit the RPC.
// Used when a lifecycle event supersedes a cached sentinel.
func (r *CodeIDResolver) Forget(address string) {
	r.cache.Remove(address)
}

func (r *CodeIDResolver) fetch(ctx context.Context, address string) (uint64, error) {
	var codeID uint64

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = resolverBackoffInterval

	op := func() error {
		callCtx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()

		info, err := r.querier.ContractInfo(callCtx, address)
		if err != nil {
			if errors.Is(err, types.ErrContractNotFound) {
				return backoff.Permanent(err)
			}
			return err
		}
		codeID = info.CodeID
		return nil
	}

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(policy, resolverAttempts-1), ctx))
	return codeID, err
}
