package cache

import (
	"context"
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
)

var (
	cacheMetricsOnce   sync.Once
	cachePuts          otelmetric.Int64Counter
	cacheLatestHits    otelmetric.Int64Counter
	cacheLatestMisses  otelmetric.Int64Counter
	indexUpserts       otelmetric.Int64Counter
	indexScanFallbacks otelmetric.Int64Counter
)

func initCacheMetrics() {
	meter := otel.Meter("piss/cache")
	var err error
	cachePuts, err = meter.Int64Counter(
		"evidence_cache_puts_total",
		otelmetric.WithDescription("Documents written into the evidence cache"),
	)
	if err != nil {
		log.Printf("cache metrics init: evidence_cache_puts_total: %v", err)
	}
	cacheLatestHits, err = meter.Int64Counter(
		"evidence_cache_latest_hits_total",
		otelmetric.WithDescription("GetLatest calls served from cache"),
	)
	if err != nil {
		log.Printf("cache metrics init: evidence_cache_latest_hits_total: %v", err)
	}
	cacheLatestMisses, err = meter.Int64Counter(
		"evidence_cache_latest_misses_total",
		otelmetric.WithDescription("GetLatest calls with a manifest but no readable slot"),
	)
	if err != nil {
		log.Printf("cache metrics init: evidence_cache_latest_misses_total: %v", err)
	}
	indexUpserts, err = meter.Int64Counter(
		"evidence_index_upserts_total",
		otelmetric.WithDescription("Entries upserted into the evidence index"),
	)
	if err != nil {
		log.Printf("cache metrics init: evidence_index_upserts_total: %v", err)
	}
	indexScanFallbacks, err = meter.Int64Counter(
		"evidence_index_scan_fallbacks_total",
		otelmetric.WithDescription("Slow cache-tree scans taken on index misses"),
	)
	if err != nil {
		log.Printf("cache metrics init: evidence_index_scan_fallbacks_total: %v", err)
	}
}

func recordPut(sourceKind string) {
	cacheMetricsOnce.Do(initCacheMetrics)
	if cachePuts != nil {
		cachePuts.Add(context.Background(), 1, otelmetric.WithAttributes(attribute.String("source_kind", sourceKind)))
	}
}

func recordLatestHit(sourceKind string) {
	cacheMetricsOnce.Do(initCacheMetrics)
	if cacheLatestHits != nil {
		cacheLatestHits.Add(context.Background(), 1, otelmetric.WithAttributes(attribute.String("source_kind", sourceKind)))
	}
}

func recordLatestMiss(sourceKind string) {
	cacheMetricsOnce.Do(initCacheMetrics)
	if cacheLatestMisses != nil {
		cacheLatestMisses.Add(context.Background(), 1, otelmetric.WithAttributes(attribute.String("source_kind", sourceKind)))
	}
}

func recordIndexUpsert() {
	cacheMetricsOnce.Do(initCacheMetrics)
	if indexUpserts != nil {
		indexUpserts.Add(context.Background(), 1)
	}
}

func recordIndexScanFallback() {
	cacheMetricsOnce.Do(initCacheMetrics)
	if indexScanFallbacks != nil {
		indexScanFallbacks.Add(context.Background(), 1)
	}
}
