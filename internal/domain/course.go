package domain

import (
	"context"
	"time"
)

// LessonModel smallest trackable unit of a course
type LessonModel struct {
	ID              string  `json:"id"`
	Index           int     `json:"index"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// CourseModel read-only course metadata owned by the catalog
type CourseModel struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Thumbnail string         `json:"thumbnail"`
	IsFree    bool           `json:"is_free"`
	Lessons   []*LessonModel `json:"lessons"`
}

// Lesson find lesson by id, returns nil if the course doesn't contain it
func (c *CourseModel) Lesson(id string) *LessonModel {
	for _, l := range c.Lessons {
		if l.ID == id {
			return l
		}
	}
	return nil
}

// EnrollmentModel relation created by the payment/grant collaborator
type EnrollmentModel struct {
	UserID     string    `json:"user_id"`
	CourseID   string    `json:"course_id"`
	EnrolledAt time.Time `json:"enrolled_at"`
}

// CourseRepository read-only access to the catalog collaborator
type CourseRepository interface {
	// GetCourse returns ErrNotFound if no such course
	GetCourse(ctx context.Context, id string) (*CourseModel, error)
	GetEnrollments(ctx context.Context, userID string) ([]*EnrollmentModel, error)
}

// CatalogGateway every upstream lookup the engine consumes
type CatalogGateway interface {
	UserRepository
	CourseRepository
}
