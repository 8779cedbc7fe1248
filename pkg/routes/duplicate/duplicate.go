// Package duplicate exposes the duplicate candidate endpoints: listing
// pending candidates, dismissing them, merging the pair, and triggering
// a workspace scan.
package duplicate

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/aster/internal/repositories/duplicatecandidate"
	"github.com/Ramsey-B/aster/pkg/dedup"
	"github.com/Ramsey-B/aster/pkg/merging"
	"github.com/Ramsey-B/aster/pkg/models"
	"github.com/Ramsey-B/aster/pkg/routes"
)

// Handler handles duplicate candidate HTTP requests
type Handler struct {
	candidates   *duplicatecandidate.Repository
	scanner      *dedup.Scanner
	merger       *merging.Engine
	logger       ectologger.Logger
	defaultLimit int
}

// NewHandler creates a new duplicate candidate handler
func NewHandler(
	candidates *duplicatecandidate.Repository,
	scanner *dedup.Scanner,
	merger *merging.Engine,
	logger ectologger.Logger,
	defaultLimit int,
) *Handler {
	if defaultLimit <= 0 {
		defaultLimit = 50
	}
	return &Handler{
		candidates:   candidates,
		scanner:      scanner,
		merger:       merger,
		logger:       logger,
		defaultLimit: defaultLimit,
	}
}

// RegisterRoutes registers the duplicate candidate endpoints on the given group
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.List)
	g.POST("/scan", h.Scan)
	g.POST("/merge", h.Merge)
	g.POST("/:id/dismiss", h.Dismiss)
}

// List returns the pending duplicate candidates for the workspace,
// highest confidence first.
func (h *Handler) List(c echo.Context) error {
	workspaceID, err := routes.GetWorkspaceID(c)
	if err != nil {
		return err
	}

	limit := h.defaultLimit
	if raw := c.QueryParam("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	candidates, err := h.candidates.ListPending(c.Request().Context(), workspaceID, limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"items": candidates,
		"count": len(candidates),
	})
}

// Scan runs a full duplicate scan over the workspace and replaces the
// pending candidate set with the results.
func (h *Handler) Scan(c echo.Context) error {
	ctx := c.Request().Context()

	workspaceID, err := routes.GetWorkspaceID(c)
	if err != nil {
		return err
	}

	result, err := h.scanner.Scan(ctx, workspaceID)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("duplicate scan failed")
		return err
	}

	return c.JSON(http.StatusOK, result)
}

// Merge merges one person into another and retires any candidates that
// reference the pair.
func (h *Handler) Merge(c echo.Context) error {
	workspaceID, err := routes.GetWorkspaceID(c)
	if err != nil {
		return err
	}

	req := &models.MergeRequest{}
	if err := routes.BindAndValidate(c, req); err != nil {
		return err
	}

	result, err := h.merger.Merge(c.Request().Context(), workspaceID, req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

// Dismiss marks a pending candidate as dismissed so it is not surfaced
// again until a later scan recreates it.
func (h *Handler) Dismiss(c echo.Context) error {
	workspaceID, err := routes.GetWorkspaceID(c)
	if err != nil {
		return err
	}

	id, err := routes.ParseUUID(c, "id")
	if err != nil {
		return err
	}

	if err := h.candidates.Dismiss(c.Request().Context(), workspaceID, id); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}
