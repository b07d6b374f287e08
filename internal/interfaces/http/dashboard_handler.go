package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pot-code/progress-engine/internal/dashboard"
	"github.com/pot-code/progress-engine/internal/domain"
	"github.com/pot-code/progress-engine/internal/infrastructure/auth"
)

type DashboardHandler struct {
	ranker  dashboard.ContinueLearningUseCase
	jwtUtil *auth.JWTUtil
}

func NewDashboardHandler(Ranker dashboard.ContinueLearningUseCase, JWTUtil *auth.JWTUtil) *DashboardHandler {
	return &DashboardHandler{Ranker, JWTUtil}
}

// HandleContinueLearning optional query limit caps the number of entries
func (dh *DashboardHandler) HandleContinueLearning(c echo.Context) error {
	uid, err := userID(dh.jwtUtil, c)
	if err != nil {
		return err
	}

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return domain.NewInputError("limit", "must be a non-negative integer")
		}
	}

	entries, err := dh.ranker.ContinueLearning(c.Request().Context(), uid).Collect(limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entries)
}
