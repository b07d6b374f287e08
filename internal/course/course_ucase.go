package course

import (
	"context"

	"github.com/pot-code/progress-engine/internal/access"
	"github.com/pot-code/progress-engine/internal/catalog"
	"github.com/pot-code/progress-engine/internal/domain"
	"go.elastic.co/apm"
)

// CourseUseCaseImpl ...
type CourseUseCaseImpl struct {
	LessonRepository domain.LessonProgressRepository
	Catalog          domain.CatalogGateway
}

var _ domain.CourseUseCase = &CourseUseCaseImpl{}

// NewCourseUseCase ...
func NewCourseUseCase(
	LessonRepository domain.LessonProgressRepository,
	Catalog domain.CatalogGateway,
) *CourseUseCaseImpl {
	return &CourseUseCaseImpl{LessonRepository, Catalog}
}

// GetCourseSummary completion percentage and resume point of one course
func (cu *CourseUseCaseImpl) GetCourseSummary(ctx context.Context, userID, courseID string) (*domain.CourseProgressSummary, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "CourseUseCaseImpl.GetCourseSummary", "service")
	defer apmSpan.End()

	gw := catalog.ScopeFromContext(ctx, cu.Catalog)
	course, err := access.Authorize(ctx, gw, userID, courseID)
	if err != nil {
		return nil, err
	}
	return cu.Summarize(ctx, userID, course)
}

// Summarize summary of an already authorized course
func (cu *CourseUseCaseImpl) Summarize(ctx context.Context, userID string, course *domain.CourseModel) (*domain.CourseProgressSummary, error) {
	records, err := cu.LessonRepository.ListCourseProgress(ctx, userID, course.ID)
	if err != nil {
		return nil, err
	}
	return Summarize(course, records), nil
}
