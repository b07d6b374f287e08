package lesson

import (
	"context"
	"time"

	"github.com/pot-code/progress-engine/internal/access"
	"github.com/pot-code/progress-engine/internal/catalog"
	"github.com/pot-code/progress-engine/internal/domain"
	"github.com/pot-code/progress-engine/internal/infrastructure/logging"
	"github.com/pot-code/progress-engine/internal/infrastructure/uuid"
	"go.elastic.co/apm"
	"go.uber.org/zap"
)

// storage precision of both supported databases
const timePrecision = time.Microsecond

// LessonUseCaseImpl ...
type LessonUseCaseImpl struct {
	LessonRepository domain.LessonProgressRepository
	Catalog          domain.CatalogGateway
	UUIDGenerator    uuid.Generator
	Policy           Policy
	Now              func() time.Time
}

var _ domain.LessonUseCase = &LessonUseCaseImpl{}

// NewLessonUseCase ...
func NewLessonUseCase(
	LessonRepository domain.LessonProgressRepository,
	Catalog domain.CatalogGateway,
	UUIDGenerator uuid.Generator,
	Policy Policy,
) *LessonUseCaseImpl {
	return &LessonUseCaseImpl{LessonRepository, Catalog, UUIDGenerator, Policy, time.Now}
}

func (lu *LessonUseCaseImpl) now() time.Time {
	return lu.Now().UTC().Truncate(timePrecision)
}

// assignID give a record about to be created its id
func (lu *LessonUseCaseImpl) assignID(rec *domain.LessonProgressModel) error {
	if rec == nil || rec.ID != "" {
		return nil
	}
	id, err := lu.UUIDGenerator.Generate()
	if err != nil {
		return err
	}
	rec.ID = id
	return nil
}

// ReportHeartbeat fold a playback position report into the lesson record
func (lu *LessonUseCaseImpl) ReportHeartbeat(ctx context.Context, userID string, hb *domain.HeartbeatModel) (*domain.AcceptedPosition, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "LessonUseCaseImpl.ReportHeartbeat", "service")
	defer apmSpan.End()

	switch {
	case hb.CourseID == "":
		return nil, domain.NewInputError("course_id", "is required")
	case hb.LessonID == "":
		return nil, domain.NewInputError("lesson_id", "is required")
	case hb.ReportedAt.IsZero():
		return nil, domain.NewInputError("reported_at", "is required")
	}
	gw := catalog.ScopeFromContext(ctx, lu.Catalog)
	_, lesson, err := access.AuthorizeLesson(ctx, gw, userID, hb.CourseID, hb.LessonID)
	if err != nil {
		return nil, err
	}
	position, err := lu.Policy.ClampPosition(lesson, hb.PositionSeconds)
	if err != nil {
		return nil, err
	}

	key := domain.ProgressKey{UserID: userID, CourseID: hb.CourseID, LessonID: hb.LessonID}
	reportedAt := hb.ReportedAt.UTC().Truncate(timePrecision)
	now := lu.now()

	var result *domain.AcceptedPosition
	_, err = lu.LessonRepository.UpdateLessonProgress(ctx, key, func(current *domain.LessonProgressModel) (*domain.LessonProgressModel, error) {
		next, ap := Reconcile(lu.Policy, key, lesson, current, position, reportedAt, now)
		if err := lu.assignID(next); err != nil {
			return nil, err
		}
		result = ap
		return next, nil
	})
	if err != nil {
		return nil, err
	}

	if result.Outcome == domain.OutcomeStale {
		logging.ExtractLoggerFromContext(ctx).Debug("stale heartbeat ignored",
			zap.String("progress.key", key.String()),
			zap.String("heartbeat.reason", result.Reason),
			zap.Float64("heartbeat.position", position),
			zap.Time("heartbeat.reported_at", reportedAt),
		)
	}
	return result, nil
}

// MarkCompleted explicit completion, idempotent
func (lu *LessonUseCaseImpl) MarkCompleted(ctx context.Context, key domain.ProgressKey) (*domain.LessonProgressModel, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "LessonUseCaseImpl.MarkCompleted", "service")
	defer apmSpan.End()

	gw := catalog.ScopeFromContext(ctx, lu.Catalog)
	if _, _, err := access.AuthorizeLesson(ctx, gw, key.UserID, key.CourseID, key.LessonID); err != nil {
		return nil, err
	}

	now := lu.now()
	return lu.LessonRepository.UpdateLessonProgress(ctx, key, func(current *domain.LessonProgressModel) (*domain.LessonProgressModel, error) {
		next := Complete(key, current, now)
		if err := lu.assignID(next); err != nil {
			return nil, err
		}
		return next, nil
	})
}

// GetLessonProgress returns an unsaved zero record if the user never touched the lesson
func (lu *LessonUseCaseImpl) GetLessonProgress(ctx context.Context, key domain.ProgressKey) (*domain.LessonProgressModel, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "LessonUseCaseImpl.GetLessonProgress", "service")
	defer apmSpan.End()

	gw := catalog.ScopeFromContext(ctx, lu.Catalog)
	if _, _, err := access.AuthorizeLesson(ctx, gw, key.UserID, key.CourseID, key.LessonID); err != nil {
		return nil, err
	}

	rec, err := lu.LessonRepository.GetLessonProgress(ctx, key)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		rec = &domain.LessonProgressModel{
			UserID:   key.UserID,
			CourseID: key.CourseID,
			LessonID: key.LessonID,
		}
	}
	return rec, nil
}
