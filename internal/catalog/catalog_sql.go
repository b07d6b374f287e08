package catalog

import (
	"context"
	"fmt"

	"github.com/pot-code/progress-engine/internal/domain"
	"github.com/pot-code/progress-engine/internal/infrastructure/driver"
	"go.elastic.co/apm"
)

// CatalogSQL reads identity, catalog and enrollment tables owned by other services
type CatalogSQL struct {
	Conn driver.ITransactionalDB
}

var _ domain.CatalogGateway = &CatalogSQL{}

func NewCatalogSQL(Conn driver.ITransactionalDB) *CatalogSQL {
	return &CatalogSQL{Conn}
}

func (repo *CatalogSQL) GetUser(ctx context.Context, id string) (*domain.UserModel, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "CatalogSQL.GetUser", "db")
	defer apmSpan.End()

	conn := repo.Conn
	row, err := conn.QueryContext(ctx, `SELECT role FROM "user" WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	user := &domain.UserModel{ID: id, PurchasedCourseIDs: make(map[string]struct{})}
	found := row.Next()
	if found {
		var role string
		err = row.Scan(&role)
		user.Role = domain.Role(role)
	} else {
		err = row.Err()
	}
	row.Close()
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	if !found {
		return nil, &domain.NotFoundError{Kind: "user", ID: id}
	}

	rows, err := conn.QueryContext(ctx, `SELECT course_id FROM user_purchase WHERE user_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("query purchases: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var courseID string
		if err := rows.Scan(&courseID); err != nil {
			return nil, fmt.Errorf("scan purchase: %w", err)
		}
		user.PurchasedCourseIDs[courseID] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query purchases: %w", err)
	}
	return user, nil
}

func (repo *CatalogSQL) GetCourse(ctx context.Context, id string) (*domain.CourseModel, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "CatalogSQL.GetCourse", "db")
	defer apmSpan.End()

	conn := repo.Conn
	row, err := conn.QueryContext(ctx, `SELECT title, thumbnail, is_free FROM course WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("query course: %w", err)
	}
	course := &domain.CourseModel{ID: id}
	found := row.Next()
	if found {
		err = row.Scan(&course.Title, &course.Thumbnail, &course.IsFree)
	} else {
		err = row.Err()
	}
	row.Close()
	if err != nil {
		return nil, fmt.Errorf("scan course: %w", err)
	}
	if !found {
		return nil, &domain.NotFoundError{Kind: "course", ID: id}
	}

	rows, err := conn.QueryContext(ctx, `
SELECT
    id, "index", duration_seconds
FROM
    lesson
WHERE
    course_id = $1
ORDER BY "index"
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query lessons: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		item := new(domain.LessonModel)
		if err := rows.Scan(&item.ID, &item.Index, &item.DurationSeconds); err != nil {
			return nil, fmt.Errorf("scan lesson: %w", err)
		}
		course.Lessons = append(course.Lessons, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query lessons: %w", err)
	}
	return course, nil
}

func (repo *CatalogSQL) GetEnrollments(ctx context.Context, userID string) ([]*domain.EnrollmentModel, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "CatalogSQL.GetEnrollments", "db")
	defer apmSpan.End()

	rows, err := repo.Conn.QueryContext(ctx, `
SELECT course_id, enrolled_at FROM enrollment WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query enrollments: %w", err)
	}
	defer rows.Close()

	var result []*domain.EnrollmentModel
	for rows.Next() {
		item := &domain.EnrollmentModel{UserID: userID}
		if err := rows.Scan(&item.CourseID, &item.EnrolledAt); err != nil {
			return nil, fmt.Errorf("scan enrollment: %w", err)
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query enrollments: %w", err)
	}
	return result, nil
}
