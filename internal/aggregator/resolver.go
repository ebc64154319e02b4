package aggregator

import (
	"context"

	"go.uber.org/zap"

	"github.com/kurihiro0119/rum-count/internal/classifier"
	"github.com/kurihiro0119/rum-count/internal/domain"
	apperrors "github.com/kurihiro0119/rum-count/internal/errors"
)

// ResolveWorkspace classifies the resources of one workspace. Workspaces
// reporting no resources are not fetched at all; when the live resource
// listing is empty the current state version is used instead. Errors are
// folded into the summary status and never returned.
func (a *Aggregator) ResolveWorkspace(ctx context.Context, ref domain.WorkspaceRef) domain.WorkspaceSummary {
	ws := a.resolveWorkspace(ctx, ref)
	workspacesTotal.WithLabelValues(string(ws.Status)).Inc()
	return ws
}

func (a *Aggregator) resolveWorkspace(ctx context.Context, ref domain.WorkspaceRef) domain.WorkspaceSummary {
	if ref.ResourceCount == 0 {
		return domain.NewWorkspaceSummary(ref, domain.ResourceCounts{}, domain.WorkspaceEmpty, domain.SourceNone, nil)
	}

	logger := a.logger.With(
		zap.String("organization", ref.Organization),
		zap.String("workspace", ref.ID))
	logger.Debug("processing workspace")

	units, err := a.collector.ListResources(ctx, ref.ID)
	if err != nil {
		return a.failWorkspace(logger, ref, err)
	}
	source := domain.SourceResources

	if len(units) == 0 {
		logger.Debug("no indexed resources, reading current state version")
		units, err = a.collector.ListStateVersionResources(ctx, ref.ID)
		if err != nil {
			return a.failWorkspace(logger, ref, err)
		}
		source = domain.SourceStateVersion
	}

	if len(units) == 0 {
		return domain.NewWorkspaceSummary(ref, domain.ResourceCounts{}, domain.WorkspaceEmpty, domain.SourceNone, nil)
	}
	return domain.NewWorkspaceSummary(ref, classifier.Count(units), domain.WorkspaceResolved, source, nil)
}

func (a *Aggregator) failWorkspace(logger *zap.Logger, ref domain.WorkspaceRef, err error) domain.WorkspaceSummary {
	if apperrors.IsUnauthorized(err) {
		logger.Warn("not authorized to read workspace, skipping", zap.Error(err))
		return domain.NewWorkspaceSummary(ref, domain.ResourceCounts{}, domain.WorkspaceUnauthorized, domain.SourceNone, err)
	}
	logger.Error("failed to resolve workspace", zap.Error(err))
	return domain.NewWorkspaceSummary(ref, domain.ResourceCounts{}, domain.WorkspaceFailed, domain.SourceNone, err)
}
