package catalog

import (
	"context"
	"sync"

	"github.com/pot-code/progress-engine/internal/domain"
)

// CatalogMemory in process catalog, backs the memory driver and tests
type CatalogMemory struct {
	mu          sync.RWMutex
	users       map[string]*domain.UserModel
	courses     map[string]*domain.CourseModel
	enrollments map[string][]*domain.EnrollmentModel
}

var _ domain.CatalogGateway = &CatalogMemory{}

func NewCatalogMemory() *CatalogMemory {
	return &CatalogMemory{
		users:       make(map[string]*domain.UserModel),
		courses:     make(map[string]*domain.CourseModel),
		enrollments: make(map[string][]*domain.EnrollmentModel),
	}
}

// PutUser add or replace a user
func (cm *CatalogMemory) PutUser(user *domain.UserModel) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.users[user.ID] = user
}

// PutCourse add or replace a course
func (cm *CatalogMemory) PutCourse(course *domain.CourseModel) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.courses[course.ID] = course
}

// RemoveCourse drop a course, enrollments referencing it are kept
func (cm *CatalogMemory) RemoveCourse(id string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	delete(cm.courses, id)
}

// Enroll add an enrollment
func (cm *CatalogMemory) Enroll(e *domain.EnrollmentModel) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.enrollments[e.UserID] = append(cm.enrollments[e.UserID], e)
}

func (cm *CatalogMemory) GetUser(ctx context.Context, id string) (*domain.UserModel, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	u, ok := cm.users[id]
	if !ok {
		return nil, &domain.NotFoundError{Kind: "user", ID: id}
	}
	c := *u
	c.PurchasedCourseIDs = make(map[string]struct{}, len(u.PurchasedCourseIDs))
	for k := range u.PurchasedCourseIDs {
		c.PurchasedCourseIDs[k] = struct{}{}
	}
	return &c, nil
}

func (cm *CatalogMemory) GetCourse(ctx context.Context, id string) (*domain.CourseModel, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	course, ok := cm.courses[id]
	if !ok {
		return nil, &domain.NotFoundError{Kind: "course", ID: id}
	}
	c := *course
	c.Lessons = make([]*domain.LessonModel, len(course.Lessons))
	for i, l := range course.Lessons {
		lc := *l
		c.Lessons[i] = &lc
	}
	return &c, nil
}

func (cm *CatalogMemory) GetEnrollments(ctx context.Context, userID string) ([]*domain.EnrollmentModel, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	src := cm.enrollments[userID]
	result := make([]*domain.EnrollmentModel, len(src))
	for i, e := range src {
		c := *e
		result[i] = &c
	}
	return result, nil
}
