package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus/push"
)

// Push sends the global registry to a Prometheus Pushgateway.
// Batch runs exit before a scrape could happen, so they push instead.
func Push(ctx context.Context, gatewayURL, job string) error {
	if gatewayURL == "" {
		return fmt.Errorf("pushgateway url is required")
	}
	if job == "" {
		job = "equity_backtest"
	}
	err := push.New(gatewayURL, job).
		Gatherer(GetRegistry()).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to push metrics: %w", err)
	}
	return nil
}
