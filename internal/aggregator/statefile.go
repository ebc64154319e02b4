package aggregator

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kurihiro0119/rum-count/internal/classifier"
	"github.com/kurihiro0119/rum-count/internal/collector"
	"github.com/kurihiro0119/rum-count/internal/domain"
)

// RunStateFiles counts the resources recorded in local *.tfstate files under
// root. Every file becomes one workspace of a single organization named
// after the directory. Files that cannot be parsed become failed workspaces.
func (a *Aggregator) RunStateFiles(ctx context.Context, root string) (*domain.RunResult, error) {
	result := &domain.RunResult{
		ID:        uuid.New().String(),
		Source:    domain.RunSourceStateFile,
		StartedAt: time.Now(),
	}

	paths, err := collector.FindStateFiles(root)
	if err != nil {
		return nil, err
	}

	base := root
	if info, err := os.Stat(root); err == nil && !info.IsDir() {
		base = filepath.Dir(root)
	}
	orgName := filepath.Base(base)
	if abs, err := filepath.Abs(base); err == nil {
		orgName = filepath.Base(abs)
	}

	a.logger.Info("reading state files",
		zap.String("path", root),
		zap.Int("files", len(paths)))

	workspaces := fanOut(ctx, paths, a.opts.ConcurrencyLimit, func(ctx context.Context, path string) domain.WorkspaceSummary {
		return a.resolveStateFile(ctx, base, orgName, path)
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result.Organizations = []domain.OrganizationSummary{{ID: orgName, Workspaces: workspaces}}
	result.FinishedAt = time.Now()
	return result, nil
}

func (a *Aggregator) resolveStateFile(ctx context.Context, base, org, path string) domain.WorkspaceSummary {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		rel = path
	}
	ref := domain.WorkspaceRef{
		ID:           filepath.ToSlash(rel),
		Name:         strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Organization: org,
	}

	if err := ctx.Err(); err != nil {
		return domain.NewWorkspaceSummary(ref, domain.ResourceCounts{}, domain.WorkspaceFailed, domain.SourceNone, err)
	}

	sf, err := collector.ReadStateFile(path)
	if err != nil {
		a.logger.Error("failed to read state file", zap.String("path", path), zap.Error(err))
		ws := domain.NewWorkspaceSummary(ref, domain.ResourceCounts{}, domain.WorkspaceFailed, domain.SourceNone, err)
		workspacesTotal.WithLabelValues(string(ws.Status)).Inc()
		return ws
	}

	ref.TerraformVersion = sf.TerraformVersion
	ref.LastUpdated = sf.ModTime
	ref.ResourceCount = uint64(len(sf.Units))

	status, source := domain.WorkspaceResolved, domain.SourceStateFile
	if len(sf.Units) == 0 {
		status, source = domain.WorkspaceEmpty, domain.SourceNone
	}
	ws := domain.NewWorkspaceSummary(ref, classifier.Count(sf.Units), status, source, nil)
	workspacesTotal.WithLabelValues(string(ws.Status)).Inc()
	return ws
}
