package reconcile

import (
	"context"
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
)

var (
	reconcileMetricsOnce sync.Once
	assertionsEmitted    otelmetric.Int64Counter
	canonicalProduced    otelmetric.Int64Counter
)

func initReconcileMetrics() {
	meter := otel.Meter("piss/reconcile")
	var err error
	assertionsEmitted, err = meter.Int64Counter(
		"reconcile_assertions_total",
		otelmetric.WithDescription("Link assertions emitted, by status and method"),
	)
	if err != nil {
		log.Printf("reconcile metrics init: reconcile_assertions_total: %v", err)
	}
	canonicalProduced, err = meter.Int64Counter(
		"reconcile_canonical_persons_total",
		otelmetric.WithDescription("Canonical persons produced by accepted links"),
	)
	if err != nil {
		log.Printf("reconcile metrics init: reconcile_canonical_persons_total: %v", err)
	}
}

func recordAssertion(status, method string) {
	reconcileMetricsOnce.Do(initReconcileMetrics)
	if assertionsEmitted != nil {
		assertionsEmitted.Add(context.Background(), 1, otelmetric.WithAttributes(
			attribute.String("status", status),
			attribute.String("method", method),
		))
	}
}

func recordCanonicalPersons(n int) {
	reconcileMetricsOnce.Do(initReconcileMetrics)
	if canonicalProduced != nil && n > 0 {
		canonicalProduced.Add(context.Background(), int64(n))
	}
}
