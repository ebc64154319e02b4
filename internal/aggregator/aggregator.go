// Package aggregator resolves workspaces into resource counts and folds them
// per organization and per run.
package aggregator

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kurihiro0119/rum-count/internal/collector"
	"github.com/kurihiro0119/rum-count/internal/domain"
	apperrors "github.com/kurihiro0119/rum-count/internal/errors"
)

const defaultConcurrencyLimit = 100

// Options controls how much work runs concurrently
type Options struct {
	// ConcurrencyLimit bounds in-flight workspace resolutions per organization
	ConcurrencyLimit int
	// OrgConcurrency bounds organizations resolved at once; 1 is sequential
	OrgConcurrency int
	// Organizations restricts the run to these IDs, in this order
	Organizations []string
}

// Aggregator drives collection for one or many organizations
type Aggregator struct {
	collector collector.Collector
	opts      Options
	logger    *zap.Logger
}

// NewAggregator creates a new aggregator
func NewAggregator(c collector.Collector, opts Options, logger *zap.Logger) *Aggregator {
	if opts.ConcurrencyLimit < 1 {
		opts.ConcurrencyLimit = defaultConcurrencyLimit
	}
	if opts.OrgConcurrency < 1 {
		opts.OrgConcurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		collector: c,
		opts:      opts,
		logger:    logger,
	}
}

// ResolveOrganization lists the workspaces of org and resolves each of them
// concurrently. A listing failure yields an unavailable summary rather than
// an error so sibling organizations still complete.
func (a *Aggregator) ResolveOrganization(ctx context.Context, org string) domain.OrganizationSummary {
	logger := a.logger.With(zap.String("organization", org))
	logger.Info("processing organization")

	refs, err := a.collector.ListWorkspaces(ctx, org)
	if err != nil {
		if apperrors.IsUnauthorized(err) {
			logger.Warn("not authorized to list workspaces", zap.Error(err))
		} else {
			logger.Error("failed to list workspaces", zap.Error(err))
		}
		organizationsUnavailableTotal.Inc()
		return domain.UnavailableOrganization(org, err)
	}

	workspaces := fanOut(ctx, refs, a.opts.ConcurrencyLimit, a.ResolveWorkspace)

	logger.Info("organization resolved", zap.Int("workspaces", len(workspaces)))
	return domain.OrganizationSummary{ID: org, Workspaces: workspaces}
}

type indexed[T any] struct {
	index int
	value T
}

// fanOut runs fn for every input with at most limit calls in flight and
// returns the results in input order. fn must not fail; failures travel as
// values inside T.
func fanOut[In, Out any](ctx context.Context, inputs []In, limit int, fn func(context.Context, In) Out) []Out {
	results := make([]Out, len(inputs))
	if len(inputs) == 0 {
		return results
	}

	ch := make(chan indexed[Out], len(inputs))
	var g errgroup.Group
	g.SetLimit(limit)

	go func() {
		for i, in := range inputs {
			i, in := i, in
			g.Go(func() error {
				ch <- indexed[Out]{index: i, value: fn(ctx, in)}
				return nil
			})
		}
		_ = g.Wait()
		close(ch)
	}()

	for r := range ch {
		results[r.index] = r.value
	}
	return results
}
