package access

import (
	"context"
	"errors"

	"github.com/pot-code/progress-engine/internal/domain"
)

// Authorize load the course and gate it for userID.
//
// A missing course is ErrNotFound, an unknown user is treated as anonymous.
func Authorize(ctx context.Context, gw domain.CatalogGateway, userID, courseID string) (*domain.CourseModel, error) {
	course, err := gw.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	var user *domain.UserModel
	if userID != "" {
		user, err = gw.GetUser(ctx, userID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}
	if !CanAccess(user, course) {
		return nil, domain.ErrAccessDenied
	}
	return course, nil
}

// AuthorizeLesson Authorize and resolve the lesson inside the course
func AuthorizeLesson(ctx context.Context, gw domain.CatalogGateway, userID, courseID, lessonID string) (*domain.CourseModel, *domain.LessonModel, error) {
	course, err := Authorize(ctx, gw, userID, courseID)
	if err != nil {
		return nil, nil, err
	}
	lesson := course.Lesson(lessonID)
	if lesson == nil {
		return nil, nil, &domain.NotFoundError{Kind: "lesson", ID: lessonID}
	}
	return course, lesson, nil
}
