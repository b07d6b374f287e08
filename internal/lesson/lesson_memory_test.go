package lesson

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pot-code/progress-engine/internal/domain"
)

func increment(current *domain.LessonProgressModel) (*domain.LessonProgressModel, error) {
	if current == nil {
		return &domain.LessonProgressModel{ID: "p", UserID: key.UserID, CourseID: key.CourseID, LessonID: key.LessonID, LastPositionSeconds: 1}, nil
	}
	current.LastPositionSeconds++
	return current, nil
}

func TestLessonMemory_SerializesPerKey(t *testing.T) {
	ctx := context.Background()
	store := NewLessonMemory()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.UpdateLessonProgress(ctx, key, increment); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	rec, _ := store.GetLessonProgress(ctx, key)
	if rec.LastPositionSeconds != 100 {
		t.Fatalf("lost updates: position = %v, want 100", rec.LastPositionSeconds)
	}
}

func TestLessonMemory_SkipWriteAndErrors(t *testing.T) {
	ctx := context.Background()
	store := NewLessonMemory()

	rec, err := store.UpdateLessonProgress(ctx, key, func(*domain.LessonProgressModel) (*domain.LessonProgressModel, error) {
		return nil, nil
	})
	if rec != nil || err != nil {
		t.Fatalf("skip on empty store = %v, %v", rec, err)
	}

	boom := errors.New("boom")
	if _, err := store.UpdateLessonProgress(ctx, key, func(*domain.LessonProgressModel) (*domain.LessonProgressModel, error) {
		return nil, boom
	}); !errors.Is(err, boom) {
		t.Fatalf("mutator error = %v", err)
	}
	if rec, _ := store.GetLessonProgress(ctx, key); rec != nil {
		t.Fatal("failed mutation must not write")
	}
}

func TestLessonMemory_HandsOutCopies(t *testing.T) {
	ctx := context.Background()
	store := NewLessonMemory()
	rec, _ := store.UpdateLessonProgress(ctx, key, increment)
	rec.LastPositionSeconds = 99

	stored, _ := store.GetLessonProgress(ctx, key)
	if stored.LastPositionSeconds != 1 {
		t.Fatalf("store leaked its record, position = %v", stored.LastPositionSeconds)
	}
}

func TestLessonMemory_ListCourseProgress(t *testing.T) {
	ctx := context.Background()
	store := NewLessonMemory()
	for i := 0; i < 3; i++ {
		k := domain.ProgressKey{UserID: "u1", CourseID: "c1", LessonID: fmt.Sprintf("l%d", i)}
		_, _ = store.UpdateLessonProgress(ctx, k, func(*domain.LessonProgressModel) (*domain.LessonProgressModel, error) {
			return &domain.LessonProgressModel{UserID: k.UserID, CourseID: k.CourseID, LessonID: k.LessonID}, nil
		})
	}
	other := domain.ProgressKey{UserID: "u2", CourseID: "c1", LessonID: "l0"}
	_, _ = store.UpdateLessonProgress(ctx, other, increment)

	list, err := store.ListCourseProgress(ctx, "u1", "c1")
	if err != nil || len(list) != 3 {
		t.Fatalf("ListCourseProgress() = %d records, %v", len(list), err)
	}
	if list, _ := store.ListCourseProgress(ctx, "u1", "c2"); len(list) != 0 {
		t.Fatalf("expected empty list, got %d", len(list))
	}
}

func TestLessonMemory_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewLessonMemory().UpdateLessonProgress(ctx, key, increment); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}

func TestLessonMemory_KeysDoNotContend(t *testing.T) {
	ctx := context.Background()
	store := NewLessonMemory()
	held := domain.ProgressKey{UserID: "u1", CourseID: "c1", LessonID: "l0"}

	entered, release := make(chan struct{}), make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := store.UpdateLessonProgress(ctx, held, func(current *domain.LessonProgressModel) (*domain.LessonProgressModel, error) {
			close(entered)
			<-release
			return increment(current)
		})
		done <- err
	}()
	<-entered

	for i := 0; i < 64; i++ {
		other := domain.ProgressKey{UserID: fmt.Sprintf("u%d", i+2), CourseID: "c9", LessonID: fmt.Sprintf("x%d", i)}
		finished := make(chan error, 1)
		go func() {
			_, err := store.UpdateLessonProgress(ctx, other, increment)
			finished <- err
		}()
		select {
		case err := <-finished:
			if err != nil {
				t.Fatal(err)
			}
		case <-time.After(time.Second):
			close(release)
			t.Fatalf("update of %s waited on the in-flight update of %s", other, held)
		}
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	store.locksMu.Lock()
	defer store.locksMu.Unlock()
	if len(store.locks) != 0 {
		t.Fatalf("expected released key locks to be dropped, %d left", len(store.locks))
	}
}
