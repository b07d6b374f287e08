package catalog

import (
	"context"
	"errors"
	"sync"

	"github.com/pot-code/progress-engine/internal/domain"
)

type scopeKey struct{}

type userResult struct {
	user *domain.UserModel
	err  error
}

type courseResult struct {
	course *domain.CourseModel
	err    error
}

// Scope memoizes catalog lookups for the lifetime of one request.
// Only successes and not-found answers are remembered.
type Scope struct {
	upstream domain.CatalogGateway

	mu          sync.Mutex
	users       map[string]userResult
	courses     map[string]courseResult
	enrollments map[string][]*domain.EnrollmentModel
}

var _ domain.CatalogGateway = &Scope{}

// NewScope create an empty Scope over upstream
func NewScope(upstream domain.CatalogGateway) *Scope {
	return &Scope{
		upstream:    upstream,
		users:       make(map[string]userResult),
		courses:     make(map[string]courseResult),
		enrollments: make(map[string][]*domain.EnrollmentModel),
	}
}

// WithScope attach a fresh Scope to ctx
func WithScope(ctx context.Context, upstream domain.CatalogGateway) context.Context {
	return context.WithValue(ctx, scopeKey{}, NewScope(upstream))
}

// ScopeFromContext returns the Scope attached to ctx, or a new one over upstream
func ScopeFromContext(ctx context.Context, upstream domain.CatalogGateway) *Scope {
	if s, ok := ctx.Value(scopeKey{}).(*Scope); ok && s != nil {
		return s
	}
	return NewScope(upstream)
}

func memoizable(err error) bool {
	return err == nil || errors.Is(err, domain.ErrNotFound)
}

func (s *Scope) GetUser(ctx context.Context, id string) (*domain.UserModel, error) {
	s.mu.Lock()
	r, ok := s.users[id]
	s.mu.Unlock()
	if ok {
		return r.user, r.err
	}

	user, err := s.upstream.GetUser(ctx, id)
	if memoizable(err) {
		s.mu.Lock()
		s.users[id] = userResult{user, err}
		s.mu.Unlock()
	}
	return user, err
}

func (s *Scope) GetCourse(ctx context.Context, id string) (*domain.CourseModel, error) {
	s.mu.Lock()
	r, ok := s.courses[id]
	s.mu.Unlock()
	if ok {
		return r.course, r.err
	}

	course, err := s.upstream.GetCourse(ctx, id)
	if memoizable(err) {
		s.mu.Lock()
		s.courses[id] = courseResult{course, err}
		s.mu.Unlock()
	}
	return course, err
}

func (s *Scope) GetEnrollments(ctx context.Context, userID string) ([]*domain.EnrollmentModel, error) {
	s.mu.Lock()
	r, ok := s.enrollments[userID]
	s.mu.Unlock()
	if ok {
		return r, nil
	}

	result, err := s.upstream.GetEnrollments(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.enrollments[userID] = result
	s.mu.Unlock()
	return result, nil
}
