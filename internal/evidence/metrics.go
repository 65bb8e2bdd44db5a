package evidence

import (
	"context"
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	otelmetric "go.opentelemetry.io/otel/metric"
)

var (
	resolveMetricsOnce sync.Once
	resolveHits        otelmetric.Int64Counter
	resolveMisses      otelmetric.Int64Counter
	resolveErrors      otelmetric.Int64Counter
)

func initResolveMetrics() {
	meter := otel.Meter("piss/evidence")
	var err error
	resolveHits, err = meter.Int64Counter(
		"evidence_resolve_hits_total",
		otelmetric.WithDescription("Evidence queries resolved to a citation"),
	)
	if err != nil {
		log.Printf("evidence metrics init: evidence_resolve_hits_total: %v", err)
	}
	resolveMisses, err = meter.Int64Counter(
		"evidence_resolve_misses_total",
		otelmetric.WithDescription("Evidence queries omitted because the id is unknown"),
	)
	if err != nil {
		log.Printf("evidence metrics init: evidence_resolve_misses_total: %v", err)
	}
	resolveErrors, err = meter.Int64Counter(
		"evidence_resolve_errors_total",
		otelmetric.WithDescription("Evidence queries omitted because resolution failed"),
	)
	if err != nil {
		log.Printf("evidence metrics init: evidence_resolve_errors_total: %v", err)
	}
}

func recordResolveHit() {
	resolveMetricsOnce.Do(initResolveMetrics)
	if resolveHits != nil {
		resolveHits.Add(context.Background(), 1)
	}
}

func recordResolveMiss() {
	resolveMetricsOnce.Do(initResolveMetrics)
	if resolveMisses != nil {
		resolveMisses.Add(context.Background(), 1)
	}
}

func recordResolveError() {
	resolveMetricsOnce.Do(initResolveMetrics)
	if resolveErrors != nil {
		resolveErrors.Add(context.Background(), 1)
	}
}
