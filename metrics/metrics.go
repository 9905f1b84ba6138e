package metrics

import (
	"time"

	"github.com/hashicorp/go-metrics"
)

// Counter keys emitted by the export pipeline.
var (
	KeyTracesSeen       = []string{"wasm", "traces", "seen"}
	KeyTracesMatched    = []string{"wasm", "traces", "matched"}
	KeyEventsExported   = []string{"wasm", "events", "exported"}
	KeyEventsDropped    = []string{"wasm", "events", "dropped"}
	KeyTransformations  = []string{"wasm", "transformations", "stored"}
	KeyResolverHits     = []string{"wasm", "resolver", "cache_hits"}
	KeyResolverMisses   = []string{"wasm", "resolver", "cache_misses"}
	KeyResolverFailures = []string{"wasm", "resolver", "failures"}
	KeyBatchesExported  = []string{"wasm", "batches", "exported"}
	KeyBatchesFailed    = []string{"wasm", "batches", "failed"}
	KeyWebhooksEnqueued = []string{"wasm", "webhooks", "enqueued"}
)

// Setup installs a process-wide in-memory sink so counters emitted through
// the go-metrics globals are collected. Returns the sink for scraping.
func Setup(serviceName string) (*metrics.InmemSink, error) {
	sink := metrics.NewInmemSink(10*time.Second, time.Minute)
	cfg := metrics.DefaultConfig(serviceName)
	cfg.EnableHostname = false
	cfg.EnableRuntimeMetrics = false

	if _, err := metrics.NewGlobal(cfg, sink); err != nil {
		return nil, err
	}
	return sink, nil
}

// IncrCounter adds val to the counter at key.
func IncrCounter(key []string, val float32) {
	metrics.IncrCounter(key, val)
}
