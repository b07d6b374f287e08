package course

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pot-code/progress-engine/internal/catalog"
	"github.com/pot-code/progress-engine/internal/domain"
	"github.com/pot-code/progress-engine/internal/infrastructure/uuid"
	"github.com/pot-code/progress-engine/internal/lesson"
)

func TestGetCourseSummary_TwoLessonCourse(t *testing.T) {
	ctx := context.Background()
	gw := catalog.NewCatalogMemory()
	gw.PutUser(&domain.UserModel{ID: "u1", Role: domain.RoleLearner, PurchasedCourseIDs: map[string]struct{}{"c1": {}}})
	gw.PutCourse(&domain.CourseModel{
		ID: "c1",
		Lessons: []*domain.LessonModel{
			{ID: "L1", Index: 0, DurationSeconds: 60},
			{ID: "L2", Index: 1, DurationSeconds: 120},
		},
	})
	store := lesson.NewLessonMemory()
	lessons := lesson.NewLessonUseCase(store, gw, uuid.NewNanoIDGenerator(12), lesson.DefaultPolicy())
	now := base
	lessons.Now = func() time.Time { return now }
	courses := NewCourseUseCase(store, gw)

	report := func(lessonID string, pos float64) {
		now = now.Add(10 * time.Second)
		hb := &domain.HeartbeatModel{CourseID: "c1", LessonID: lessonID, PositionSeconds: pos, ReportedAt: now}
		if _, err := lessons.ReportHeartbeat(ctx, "u1", hb); err != nil {
			t.Fatal(err)
		}
	}

	report("L1", 58)
	report("L1", 60)
	s, err := courses.GetCourseSummary(ctx, "u1", "c1")
	if err != nil {
		t.Fatal(err)
	}
	if s.Percentage != 50 || s.LastWatchedLessonID != "L1" || s.CompletedLessonCount != 1 || s.TotalLessonCount != 2 {
		t.Fatalf("unexpected summary %+v", s)
	}

	report("L2", 10)
	s, _ = courses.GetCourseSummary(ctx, "u1", "c1")
	if s.Percentage != 50 || s.LastWatchedLessonID != "L2" || s.LastPositionSeconds != 10 {
		t.Fatalf("unexpected summary %+v", s)
	}
}

func TestGetCourseSummary_Gating(t *testing.T) {
	ctx := context.Background()
	gw := catalog.NewCatalogMemory()
	gw.PutUser(&domain.UserModel{ID: "u1", Role: domain.RoleLearner})
	gw.PutUser(&domain.UserModel{ID: "admin", Role: domain.RoleAdmin})
	gw.PutCourse(&domain.CourseModel{ID: "paid"})
	courses := NewCourseUseCase(lesson.NewLessonMemory(), gw)

	if _, err := courses.GetCourseSummary(ctx, "u1", "paid"); !errors.Is(err, domain.ErrAccessDenied) {
		t.Fatalf("err = %v", err)
	}
	if _, err := courses.GetCourseSummary(ctx, "u1", "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
	if s, err := courses.GetCourseSummary(ctx, "admin", "paid"); err != nil || s.Percentage != 0 {
		t.Fatalf("admin summary = %+v, %v", s, err)
	}
}
