package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pot-code/progress-engine/internal/domain"
	"github.com/pot-code/progress-engine/internal/infrastructure/auth"
	"github.com/pot-code/progress-engine/internal/infrastructure/validate"
)

type ProgressHandler struct {
	lessonUseCase domain.LessonUseCase
	courseUseCase domain.CourseUseCase
	jwtUtil       *auth.JWTUtil
	validator     validate.Validator
}

func NewProgressHandler(
	LessonUseCase domain.LessonUseCase,
	CourseUseCase domain.CourseUseCase,
	JWTUtil *auth.JWTUtil,
	Validator validate.Validator,
) *ProgressHandler {
	return &ProgressHandler{LessonUseCase, CourseUseCase, JWTUtil, Validator}
}

type heartbeatPost struct {
	PositionSeconds *float64  `json:"position_seconds" validate:"required,min=0"`
	ReportedAt      time.Time `json:"reported_at" validate:"required"`
}

// userID id of the authenticated caller, VerifyToken guarantees the claims
func userID(ju *auth.JWTUtil, c echo.Context) (string, error) {
	claims := ju.GetContextToken(c)
	if claims == nil {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing token")
	}
	return claims.UID, nil
}

func (ph *ProgressHandler) progressKey(c echo.Context) (domain.ProgressKey, error) {
	uid, err := userID(ph.jwtUtil, c)
	if err != nil {
		return domain.ProgressKey{}, err
	}
	return domain.ProgressKey{UserID: uid, CourseID: c.Param("course_id"), LessonID: c.Param("lesson_id")}, nil
}

func (ph *ProgressHandler) HandleHeartbeat(c echo.Context) error {
	key, err := ph.progressKey(c)
	if err != nil {
		return err
	}

	post := new(heartbeatPost)
	if err := c.Bind(post); err != nil {
		return domain.NewInputError("body", "malformed request body")
	}
	if errs := ph.validator.Struct(post); errs != nil {
		return &domain.InputError{Fields: errs}
	}

	ap, err := ph.lessonUseCase.ReportHeartbeat(c.Request().Context(), key.UserID, &domain.HeartbeatModel{
		CourseID:        key.CourseID,
		LessonID:        key.LessonID,
		PositionSeconds: *post.PositionSeconds,
		ReportedAt:      post.ReportedAt,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ap)
}

func (ph *ProgressHandler) HandleMarkCompleted(c echo.Context) error {
	key, err := ph.progressKey(c)
	if err != nil {
		return err
	}
	rec, err := ph.lessonUseCase.MarkCompleted(c.Request().Context(), key)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

func (ph *ProgressHandler) HandleGetLessonProgress(c echo.Context) error {
	key, err := ph.progressKey(c)
	if err != nil {
		return err
	}
	rec, err := ph.lessonUseCase.GetLessonProgress(c.Request().Context(), key)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

func (ph *ProgressHandler) HandleGetCourseSummary(c echo.Context) error {
	uid, err := userID(ph.jwtUtil, c)
	if err != nil {
		return err
	}
	summary, err := ph.courseUseCase.GetCourseSummary(c.Request().Context(), uid, c.Param("course_id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}
