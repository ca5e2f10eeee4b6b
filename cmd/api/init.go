package main

import (
	"context"
	"fmt"

	"go-chi-calculator/internal/calculator"
	"go-chi-calculator/internal/observability"
)

// initMetrics starts the OTLP metric pipeline and then creates the
// calculator's instruments on it. Session gauges are Prometheus collectors
// registered by the session package and need no setup here.
func initMetrics(ctx context.Context) (func(context.Context) error, error) {
	shutdown, err := observability.InitMetrics(ctx)
	if err != nil {
		return nil, fmt.Errorf("metric provider: %w", err)
	}

	if err := calculator.InitMetrics(); err != nil {
		_ = shutdown(ctx)
		return nil, fmt.Errorf("calculator instruments: %w", err)
	}

	return shutdown, nil
}
