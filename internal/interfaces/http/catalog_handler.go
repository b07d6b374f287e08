package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pot-code/progress-engine/internal/domain"
	"github.com/pot-code/progress-engine/internal/infrastructure/auth"
)

// CourseInvalidator evicts cached course metadata
type CourseInvalidator interface {
	InvalidateCourse(ctx context.Context, id string) error
}

type CatalogHandler struct {
	invalidator CourseInvalidator
	users       domain.UserRepository
	jwtUtil     *auth.JWTUtil
}

func NewCatalogHandler(Invalidator CourseInvalidator, Users domain.UserRepository, JWTUtil *auth.JWTUtil) *CatalogHandler {
	return &CatalogHandler{Invalidator, Users, JWTUtil}
}

// HandleInvalidateCourse called by the catalog or payment service after a change, admin only
func (ch *CatalogHandler) HandleInvalidateCourse(c echo.Context) error {
	uid, err := userID(ch.jwtUtil, c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	user, err := ch.users.GetUser(ctx, uid)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if user == nil || user.Role != domain.RoleAdmin {
		return domain.ErrAccessDenied
	}
	if err := ch.invalidator.InvalidateCourse(ctx, c.Param("course_id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
