// Package person exposes the CRUD endpoints for people in a workspace.
package person

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/aster/internal/repositories/person"
	"github.com/Ramsey-B/aster/pkg/models"
	"github.com/Ramsey-B/aster/pkg/routes"
)

// EventEmitter publishes person lifecycle events. It may be nil when
// event publishing is disabled.
type EventEmitter interface {
	EmitPersonDeleted(ctx context.Context, workspaceID string, personID string) error
}

// CandidateCleaner removes pending duplicate candidates that reference
// a person being deleted.
type CandidateCleaner interface {
	DeletePendingReferencing(ctx context.Context, workspaceID string, personID string) error
}

// Handler handles person HTTP requests
type Handler struct {
	repo       *person.Repository
	candidates CandidateCleaner
	events     EventEmitter
	logger     ectologger.Logger
}

// NewHandler creates a new person handler
func NewHandler(repo *person.Repository, candidates CandidateCleaner, events EventEmitter, logger ectologger.Logger) *Handler {
	return &Handler{
		repo:       repo,
		candidates: candidates,
		events:     events,
		logger:     logger,
	}
}

// RegisterRoutes registers the person endpoints on the given group
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/search", h.Search)
	g.GET("/:id", h.Get)
	g.PATCH("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}

// Create adds a new person to the workspace
func (h *Handler) Create(c echo.Context) error {
	workspaceID, err := routes.GetWorkspaceID(c)
	if err != nil {
		return err
	}

	req := &models.CreatePersonRequest{}
	if err := routes.BindAndValidate(c, req); err != nil {
		return err
	}

	created, err := h.repo.Create(c.Request().Context(), workspaceID, req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, created)
}

// List returns a page of people in the workspace
func (h *Handler) List(c echo.Context) error {
	workspaceID, err := routes.GetWorkspaceID(c)
	if err != nil {
		return err
	}

	page := parseIntQuery(c, "page", 1)
	pageSize := parseIntQuery(c, "page_size", 25)

	resp, err := h.repo.List(c.Request().Context(), workspaceID, page, pageSize)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, resp)
}

// Search looks a person up by email within the workspace
func (h *Handler) Search(c echo.Context) error {
	workspaceID, err := routes.GetWorkspaceID(c)
	if err != nil {
		return err
	}

	email := c.QueryParam("email")
	if email == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "email query parameter is required")
	}

	p, err := h.repo.GetByEmail(c.Request().Context(), workspaceID, email)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, p)
}

// Get returns a single person by id
func (h *Handler) Get(c echo.Context) error {
	workspaceID, err := routes.GetWorkspaceID(c)
	if err != nil {
		return err
	}

	id, err := routes.ParseUUID(c, "id")
	if err != nil {
		return err
	}

	p, err := h.repo.GetByID(c.Request().Context(), workspaceID, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, p)
}

// Update applies a partial update to a person
func (h *Handler) Update(c echo.Context) error {
	workspaceID, err := routes.GetWorkspaceID(c)
	if err != nil {
		return err
	}

	id, err := routes.ParseUUID(c, "id")
	if err != nil {
		return err
	}

	req := &models.UpdatePersonRequest{}
	if err := routes.BindAndValidate(c, req); err != nil {
		return err
	}

	updated, err := h.repo.Update(c.Request().Context(), workspaceID, id, req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, updated)
}

// Delete removes a person from the workspace
func (h *Handler) Delete(c echo.Context) error {
	ctx := c.Request().Context()

	workspaceID, err := routes.GetWorkspaceID(c)
	if err != nil {
		return err
	}

	id, err := routes.ParseUUID(c, "id")
	if err != nil {
		return err
	}

	if err := h.repo.Delete(ctx, workspaceID, id); err != nil {
		return err
	}

	// Pending candidates naming this person are meaningless now.
	if err := h.candidates.DeletePendingReferencing(ctx, workspaceID, id); err != nil {
		h.logger.WithContext(ctx).WithError(err).Warn("failed to clear candidates for deleted person")
	}

	if h.events != nil {
		if err := h.events.EmitPersonDeleted(context.WithoutCancel(ctx), workspaceID, id); err != nil {
			h.logger.WithContext(ctx).WithError(err).Warn("failed to emit person deleted event")
		}
	}

	return c.NoContent(http.StatusNoContent)
}

func parseIntQuery(c echo.Context, name string, fallback int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return fallback
	}
	return value
}
