// Package course aggregates lesson records into per-course progress.
package course

import (
	"math"

	"github.com/pot-code/progress-engine/internal/domain"
)

// Summarize derive the course summary from the user's lesson records.
//
// Records of lessons no longer in the catalog are ignored. The last watched lesson is the
// record updated most recently, ties go to the later lesson.
func Summarize(course *domain.CourseModel, records []*domain.LessonProgressModel) *domain.CourseProgressSummary {
	summary := &domain.CourseProgressSummary{
		CourseID:         course.ID,
		TotalLessonCount: len(course.Lessons),
	}

	index := make(map[string]int, len(course.Lessons))
	for _, l := range course.Lessons {
		index[l.ID] = l.Index
	}

	var last *domain.LessonProgressModel
	for _, rec := range records {
		idx, ok := index[rec.LessonID]
		if !ok {
			continue
		}
		if rec.Completed {
			summary.CompletedLessonCount++
		}
		if last == nil || rec.UpdatedAt.After(last.UpdatedAt) ||
			(rec.UpdatedAt.Equal(last.UpdatedAt) && idx > index[last.LessonID]) {
			last = rec
		}
	}

	if summary.TotalLessonCount > 0 {
		summary.Percentage = int(math.Round(100 * float64(summary.CompletedLessonCount) / float64(summary.TotalLessonCount)))
	}
	if last != nil {
		activity := last.UpdatedAt
		summary.LastWatchedLessonID = last.LessonID
		summary.LastPositionSeconds = last.LastPositionSeconds
		summary.LastActivityAt = &activity
	}
	return summary
}
