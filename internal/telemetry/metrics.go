package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Package-level meter, mirroring services/trace/graph/metrics.go's
// tracer/meter pair.
var meter = otel.Meter("mycelium.pipeline")

var (
	callEdgesTierA      metric.Int64Counter
	callEdgesTierB      metric.Int64Counter
	callEdgesTierC      metric.Int64Counter
	callEdgesUnresolved metric.Int64Counter
	communitiesDetected metric.Int64Counter
	processesTraced     metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the instruments. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		callEdgesTierA, err = meter.Int64Counter(
			"mycelium_call_edges_resolved_tier_a_total",
			metric.WithDescription("Call edges resolved at Tier A: import-resolved, DI-resolved, or impl-resolved"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		callEdgesTierB, err = meter.Int64Counter(
			"mycelium_call_edges_resolved_tier_b_total",
			metric.WithDescription("Call edges resolved at Tier B: same-file fallback"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		callEdgesTierC, err = meter.Int64Counter(
			"mycelium_call_edges_resolved_tier_c_total",
			metric.WithDescription("Call edges resolved at Tier C: global fuzzy fallback"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		callEdgesUnresolved, err = meter.Int64Counter(
			"mycelium_call_edges_unresolved_total",
			metric.WithDescription("Call sites that produced no edge at any tier"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		communitiesDetected, err = meter.Int64Counter(
			"mycelium_communities_detected_total",
			metric.WithDescription("Communities emitted by a detection run"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		processesTraced, err = meter.Int64Counter(
			"mycelium_processes_traced_total",
			metric.WithDescription("Processes emitted by a trace run"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// RecordCallResolution records the tier a single call site resolved at,
// or the unresolved bucket when tier is empty.
func RecordCallResolution(ctx context.Context, tier string) {
	if initMetrics() != nil {
		return
	}
	switch tier {
	case "A":
		callEdgesTierA.Add(ctx, 1)
	case "B":
		callEdgesTierB.Add(ctx, 1)
	case "C":
		callEdgesTierC.Add(ctx, 1)
	default:
		callEdgesUnresolved.Add(ctx, 1)
	}
}

// RecordCommunitiesDetected records the community count from one Phase 5 run.
func RecordCommunitiesDetected(ctx context.Context, n int) {
	if initMetrics() != nil {
		return
	}
	communitiesDetected.Add(ctx, int64(n))
}

// RecordProcessesTraced records the process count from one Phase 6 run.
func RecordProcessesTraced(ctx context.Context, n int) {
	if initMetrics() != nil {
		return
	}
	processesTraced.Add(ctx, int64(n))
}
