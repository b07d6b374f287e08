package lesson

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pot-code/progress-engine/internal/domain"
	"github.com/pot-code/progress-engine/internal/infrastructure/driver"
	"github.com/pot-code/progress-engine/internal/infrastructure/logging"
	"go.elastic.co/apm"
	"go.uber.org/zap"
)

// maxInsertAttempts bounds retries after losing a first-insert race
const maxInsertAttempts = 3

const progressColumns = `id, user_id, course_id, lesson_id, completed,
	last_position_seconds, last_heartbeat_at, updated_at, created_at`

// LessonSQL LessonProgressRepository over postgres or mysql
type LessonSQL struct {
	Conn driver.ITransactionalDB
}

var _ domain.LessonProgressRepository = &LessonSQL{}

func NewLessonSQL(Conn driver.ITransactionalDB) *LessonSQL {
	return &LessonSQL{Conn}
}

func scanProgress(rows driver.ISQLRows) (*domain.LessonProgressModel, error) {
	item := new(domain.LessonProgressModel)
	err := rows.Scan(&item.ID, &item.UserID, &item.CourseID, &item.LessonID, &item.Completed,
		&item.LastPositionSeconds, &item.LastHeartbeatAt, &item.UpdatedAt, &item.CreatedAt)
	if err != nil {
		return nil, err
	}
	return item, nil
}

func queryOne(ctx context.Context, conn driver.ITransactionalDB, query string, key domain.ProgressKey) (*domain.LessonProgressModel, error) {
	rows, err := conn.QueryContext(ctx, query, key.UserID, key.CourseID, key.LessonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if rows.Next() {
		return scanProgress(rows)
	}
	return nil, rows.Err()
}

func (repo *LessonSQL) GetLessonProgress(ctx context.Context, key domain.ProgressKey) (*domain.LessonProgressModel, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "LessonSQL.GetLessonProgress", "db")
	defer apmSpan.End()

	rec, err := queryOne(ctx, repo.Conn, `SELECT `+progressColumns+`
FROM lesson_progress
WHERE user_id = $1 AND course_id = $2 AND lesson_id = $3`, key)
	if err != nil {
		return nil, fmt.Errorf("query lesson progress: %w", err)
	}
	return rec, nil
}

func (repo *LessonSQL) ListCourseProgress(ctx context.Context, userID, courseID string) ([]*domain.LessonProgressModel, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "LessonSQL.ListCourseProgress", "db")
	defer apmSpan.End()

	rows, err := repo.Conn.QueryContext(ctx, `SELECT `+progressColumns+`
FROM lesson_progress
WHERE user_id = $1 AND course_id = $2`, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("query course progress: %w", err)
	}
	defer rows.Close()

	var result []*domain.LessonProgressModel
	for rows.Next() {
		item, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lesson progress: %w", err)
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query course progress: %w", err)
	}
	return result, nil
}

// UpdateLessonProgress lock the row with SELECT ... FOR UPDATE and apply fn inside one transaction.
// Two writers creating the same record race on the unique key, the loser retries and sees the winner's row.
func (repo *LessonSQL) UpdateLessonProgress(ctx context.Context, key domain.ProgressKey, fn domain.ProgressMutator) (*domain.LessonProgressModel, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "LessonSQL.UpdateLessonProgress", "db")
	defer apmSpan.End()

	var (
		rec *domain.LessonProgressModel
		err error
	)
	for attempt := 1; attempt <= maxInsertAttempts; attempt++ {
		rec, err = repo.update(ctx, key, fn)
		if err == nil || !driver.IsDuplicateKey(err) {
			break
		}
		logging.ExtractLoggerFromContext(ctx).Debug("lesson progress insert lost race, retrying",
			zap.String("progress.key", key.String()), zap.Int("attempt", attempt))
	}
	if err != nil {
		return nil, fmt.Errorf("update lesson progress: %w", err)
	}
	return rec, nil
}

func (repo *LessonSQL) update(ctx context.Context, key domain.ProgressKey, fn domain.ProgressMutator) (*domain.LessonProgressModel, error) {
	var result *domain.LessonProgressModel
	err := driver.WithTx(ctx, repo.Conn, &driver.TxOptions{Isolation: sql.LevelReadCommitted}, func(tx driver.ITransactionalDB) error {
		current, err := queryOne(ctx, tx, `SELECT `+progressColumns+`
FROM lesson_progress
WHERE user_id = $1 AND course_id = $2 AND lesson_id = $3
FOR UPDATE`, key)
		if err != nil {
			return err
		}

		next, err := fn(current.Clone())
		if err != nil {
			return err
		}
		if next == nil {
			result = current
			return nil
		}

		if current == nil {
			_, err = tx.ExecContext(ctx, `INSERT INTO lesson_progress(`+progressColumns+`)
VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
				next.ID, key.UserID, key.CourseID, key.LessonID, next.Completed,
				next.LastPositionSeconds, next.LastHeartbeatAt, next.UpdatedAt, next.CreatedAt)
		} else {
			_, err = tx.ExecContext(ctx, `UPDATE lesson_progress
SET completed = $1, last_position_seconds = $2, last_heartbeat_at = $3, updated_at = $4
WHERE id = $5`,
				next.Completed, next.LastPositionSeconds, next.LastHeartbeatAt, next.UpdatedAt, current.ID)
			next.ID = current.ID
		}
		if err != nil {
			return err
		}
		result = next
		return nil
	})
	return result, err
}
