package aggregator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kurihiro0119/rum-count/internal/domain"
)

// Run collects every organization visible to the token, or the configured
// subset, and returns the per-organization results in listing order.
// Only a failure to list organizations or a cancelled context aborts the run.
func (a *Aggregator) Run(ctx context.Context) (*domain.RunResult, error) {
	result := &domain.RunResult{
		ID:        uuid.New().String(),
		Source:    domain.RunSourceAPI,
		StartedAt: time.Now(),
	}
	logger := a.logger.With(zap.String("run_id", result.ID))

	orgs := a.opts.Organizations
	if len(orgs) == 0 {
		var err error
		orgs, err = a.collector.ListOrganizations(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get organizations: %w", err)
		}
	}
	logger.Info("starting collection", zap.Int("organizations", len(orgs)))

	result.Organizations = fanOut(ctx, orgs, a.opts.OrgConcurrency, a.ResolveOrganization)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result.FinishedAt = time.Now()
	runDuration.Observe(result.FinishedAt.Sub(result.StartedAt).Seconds())

	total := result.GrandTotal()
	logger.Info("collection finished",
		zap.Int("workspaces", result.WorkspaceCount()),
		zap.Uint64("rum", total.RUM),
		zap.Uint64("total", total.Total),
		zap.Duration("elapsed", result.FinishedAt.Sub(result.StartedAt)))
	return result, nil
}
