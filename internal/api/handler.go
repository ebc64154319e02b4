package api

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kurihiro0119/rum-count/internal/domain"
	apperrors "github.com/kurihiro0119/rum-count/internal/errors"
	"github.com/kurihiro0119/rum-count/internal/report"
)

// Runner performs one collection run
type Runner interface {
	Run(ctx context.Context) (*domain.RunResult, error)
}

// organization names are limited to letters, digits, "-" and "_"
var orgNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Handler handles API requests. Concurrent report requests share a single
// collection run.
type Handler struct {
	runner Runner
	logger *zap.Logger
	runs   singleflight.Group
}

// NewHandler creates a new API handler
func NewHandler(runner Runner, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		runner: runner,
		logger: logger,
	}
}

// GetReport runs a collection and returns the full report
// GET /api/v1/report?org=
func (h *Handler) GetReport(c *gin.Context) {
	result, ok := h.run(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": report.NewDocument(result),
	})
}

// GetSummary runs a collection and returns only the totals
// GET /api/v1/report/summary?org=
func (h *Handler) GetSummary(c *gin.Context) {
	result, ok := h.run(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": report.NewSummary(result),
	})
}

// HealthCheck returns the health status of the API
// GET /health
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

func (h *Handler) run(c *gin.Context) (*domain.RunResult, bool) {
	org := c.Query("org")
	if org != "" && !orgNamePattern.MatchString(org) {
		respondError(c, apperrors.NewBadRequestError("invalid organization name "+strconv.Quote(org)))
		return nil, false
	}

	result, err := h.collect(c.Request.Context())
	if err != nil {
		h.logger.Error("collection run failed", zap.Error(err))
		respondError(c, err)
		return nil, false
	}

	if org != "" {
		filtered, found := report.Filter(result, org)
		if !found {
			respondError(c, apperrors.NewNotFoundError("organization "+org+" is not part of the report"))
			return nil, false
		}
		result = filtered
	}
	return result, true
}

// collect joins the run already in flight, if any. The run is detached from
// the request so one client going away does not fail the others.
func (h *Handler) collect(ctx context.Context) (*domain.RunResult, error) {
	ch := h.runs.DoChan("run", func() (any, error) {
		return h.runner.Run(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			h.logger.Debug("joined collection run in flight")
		}
		return res.Val.(*domain.RunResult), nil
	}
}

// respondError sends an error response
func respondError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		status := http.StatusBadGateway
		switch appErr.Code {
		case apperrors.ErrCodeNotFound:
			// upstream 404s carry the request URL
			if appErr.URL == "" {
				status = http.StatusNotFound
			}
		case apperrors.ErrCodeBadRequest:
			status = http.StatusBadRequest
		case apperrors.ErrCodeInternal:
			status = http.StatusInternalServerError
		}
		c.JSON(status, gin.H{
			"error": gin.H{
				"code":    appErr.Code,
				"message": appErr.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{
		"error": gin.H{
			"code":    apperrors.ErrCodeInternal,
			"message": err.Error(),
		},
	})
}
