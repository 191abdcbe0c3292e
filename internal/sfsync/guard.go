package sfsync

import (
	"context"

	"github.com/sells-group/crm-cli/internal/resilience"
	"github.com/sells-group/crm-cli/pkg/salesforce"
)

// guardedClient retries reads and updates on transient errors and routes
// every call through one circuit breaker. Inserts are never retried: a
// timed-out insert may still have landed.
type guardedClient struct {
	sf      salesforce.Client
	retry   resilience.RetryConfig
	breaker *resilience.Breaker
}

// Guard wraps sf with retries and a circuit breaker.
func Guard(sf salesforce.Client, retry resilience.RetryConfig, breaker resilience.BreakerConfig) salesforce.Client {
	return &guardedClient{sf: sf, retry: retry, breaker: resilience.NewBreaker(breaker)}
}

func (g *guardedClient) withRetry(op string) resilience.RetryConfig {
	cfg := g.retry
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger("salesforce", op)
	}
	return cfg
}

func (g *guardedClient) Query(ctx context.Context, soql string, out any) error {
	return resilience.Do(ctx, g.withRetry("query"), func(ctx context.Context) error {
		return g.breaker.Execute(ctx, func(ctx context.Context) error {
			return g.sf.Query(ctx, soql, out)
		})
	})
}

func (g *guardedClient) InsertOne(ctx context.Context, sObjectName string, record map[string]any) (string, error) {
	return resilience.ExecuteVal(ctx, g.breaker, func(ctx context.Context) (string, error) {
		return g.sf.InsertOne(ctx, sObjectName, record)
	})
}

func (g *guardedClient) UpdateOne(ctx context.Context, sObjectName, id string, fields map[string]any) error {
	return resilience.Do(ctx, g.withRetry("update "+sObjectName), func(ctx context.Context) error {
		return g.breaker.Execute(ctx, func(ctx context.Context) error {
			return g.sf.UpdateOne(ctx, sObjectName, id, fields)
		})
	})
}
