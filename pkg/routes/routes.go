// Package routes holds the helpers shared by every route group.
package routes

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	appctx "github.com/Ramsey-B/aster/pkg/context"
)

var validate = validator.New()

// ParseUUID parses a UUID from a path parameter
func ParseUUID(c echo.Context, param string) (string, error) {
	idStr := c.Param(param)
	if idStr == "" {
		return "", httperror.NewHTTPError(http.StatusBadRequest, "missing "+param)
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return "", httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid %s: must be a valid UUID", param)
	}

	return id.String(), nil
}

// GetWorkspaceID extracts the workspace id from the request context.
// Requests without one are rejected before any data access.
func GetWorkspaceID(c echo.Context) (string, error) {
	ctx := c.Request().Context()
	workspaceIDStr := appctx.GetWorkspaceID(ctx)
	if workspaceIDStr == "" {
		return "", httperror.NewHTTPError(http.StatusUnauthorized, "workspace required")
	}

	workspaceID, err := uuid.Parse(workspaceIDStr)
	if err != nil {
		return "", httperror.NewHTTPError(http.StatusUnauthorized, "invalid workspace id")
	}

	return workspaceID.String(), nil
}

// BindAndValidate binds the request body and validates the struct tags.
func BindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}
