// Package access decides who may view a course's lessons.
package access

import "github.com/pot-code/progress-engine/internal/domain"

// CanAccess reports whether user may read or write progress on course.
//
// A nil user means the caller is not authenticated. Free courses are open to everyone,
// paid courses need an elevated role or a purchase.
func CanAccess(user *domain.UserModel, course *domain.CourseModel) bool {
	if course == nil {
		return false
	}
	if course.IsFree {
		return true
	}
	if user == nil {
		return false
	}
	if user.Elevated() {
		return true
	}
	return user.HasPurchased(course.ID)
}
