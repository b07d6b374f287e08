package domain

import "context"

// Role user role granted by the identity provider
type Role string

// known roles
const (
	RoleLearner    Role = "learner"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

// UserModel identity data relevant to content gating, fetched per request
type UserModel struct {
	ID                 string              `json:"id"`
	Role               Role                `json:"role"`
	PurchasedCourseIDs map[string]struct{} `json:"-"`
}

// HasPurchased check if the course was paid for or granted to the user
func (u *UserModel) HasPurchased(courseID string) bool {
	if u == nil || u.PurchasedCourseIDs == nil {
		return false
	}
	_, ok := u.PurchasedCourseIDs[courseID]
	return ok
}

// Elevated instructors and admins bypass purchase checks
func (u *UserModel) Elevated() bool {
	return u != nil && (u.Role == RoleAdmin || u.Role == RoleInstructor)
}

// UserRepository read-only access to the identity collaborator
type UserRepository interface {
	// GetUser returns ErrNotFound if no such user
	GetUser(ctx context.Context, id string) (*UserModel, error)
}
