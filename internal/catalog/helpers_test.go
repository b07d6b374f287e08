package catalog

import (
	"context"
	"sync"

	"github.com/pot-code/progress-engine/internal/domain"
)

// countingGateway counts upstream calls
type countingGateway struct {
	domain.CatalogGateway

	mu      sync.Mutex
	users   int
	courses int
	enrolls int
	failing error
}

func (g *countingGateway) GetUser(ctx context.Context, id string) (*domain.UserModel, error) {
	g.mu.Lock()
	g.users++
	g.mu.Unlock()
	if g.failing != nil {
		return nil, g.failing
	}
	return g.CatalogGateway.GetUser(ctx, id)
}

func (g *countingGateway) GetCourse(ctx context.Context, id string) (*domain.CourseModel, error) {
	g.mu.Lock()
	g.courses++
	g.mu.Unlock()
	if g.failing != nil {
		return nil, g.failing
	}
	return g.CatalogGateway.GetCourse(ctx, id)
}

func (g *countingGateway) GetEnrollments(ctx context.Context, userID string) ([]*domain.EnrollmentModel, error) {
	g.mu.Lock()
	g.enrolls++
	g.mu.Unlock()
	return g.CatalogGateway.GetEnrollments(ctx, userID)
}

func newFixture() *CatalogMemory {
	cm := NewCatalogMemory()
	cm.PutUser(&domain.UserModel{ID: "u1", Role: domain.RoleLearner, PurchasedCourseIDs: map[string]struct{}{"c1": {}}})
	cm.PutCourse(&domain.CourseModel{
		ID:    "c1",
		Title: "Go",
		Lessons: []*domain.LessonModel{
			{ID: "l1", Index: 0, DurationSeconds: 100},
			{ID: "l2", Index: 1, DurationSeconds: 200},
		},
	})
	return cm
}
