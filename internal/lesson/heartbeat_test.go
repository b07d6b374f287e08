package lesson

import (
	"errors"
	"testing"
	"time"

	"github.com/pot-code/progress-engine/internal/domain"
)

var (
	base      = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	key       = domain.ProgressKey{UserID: "u1", CourseID: "c1", LessonID: "l1"}
	oneMinute = &domain.LessonModel{ID: "l1", DurationSeconds: 60}
)

func at(sec int) time.Time {
	return base.Add(time.Duration(sec) * time.Second)
}

func record(pos float64, heartbeat time.Time) *domain.LessonProgressModel {
	return &domain.LessonProgressModel{
		ID:                  "p1",
		UserID:              key.UserID,
		CourseID:            key.CourseID,
		LessonID:            key.LessonID,
		LastPositionSeconds: pos,
		LastHeartbeatAt:     &heartbeat,
		UpdatedAt:           heartbeat,
		CreatedAt:           base,
	}
}

func TestReconcile_FirstHeartbeatCreatesRecord(t *testing.T) {
	next, ap := Reconcile(DefaultPolicy(), key, oneMinute, nil, 12, at(0), at(1))
	if next == nil || next.LastPositionSeconds != 12 || !next.CreatedAt.Equal(at(1)) || !next.LastHeartbeatAt.Equal(at(0)) {
		t.Fatalf("unexpected record %+v", next)
	}
	if !ap.Applied || ap.Outcome != domain.OutcomeAccepted || ap.Completed {
		t.Fatalf("unexpected outcome %+v", ap)
	}
}

func TestReconcile_Rules(t *testing.T) {
	p := DefaultPolicy()
	cases := map[string]struct {
		current    *domain.LessonProgressModel
		position   float64
		reportedAt time.Time
		outcome    domain.HeartbeatOutcome
		reason     string
		wantPos    float64
		wantLast   time.Time
	}{
		"forward progress": {record(20, at(100)), 30, at(110), domain.OutcomeAccepted, "", 30, at(110)},
		"exact replay":     {record(20, at(100)), 20, at(100), domain.OutcomeDuplicate, "", 20, at(100)},
		"older timestamp within skew keeps max": {
			record(20, at(100)), 25, at(97), domain.OutcomeAccepted, "", 25, at(100)},
		"older timestamp beyond skew": {
			record(20, at(100)), 40, at(94), domain.OutcomeStale, domain.StaleOutOfOrder, 20, at(100)},
		"small rewind keeps max position": {
			record(30, at(100)), 25, at(101), domain.OutcomeAccepted, "", 30, at(101)},
		"large rewind without newer timestamp": {
			record(50, at(100)), 10, at(104), domain.OutcomeStale, domain.StalePositionRegressed, 50, at(100)},
		"large rewind with newer timestamp": {
			record(50, at(100)), 10, at(200), domain.OutcomeAccepted, "", 50, at(200)},
	}
	for name, c := range cases {
		next, ap := Reconcile(p, key, oneMinute, c.current.Clone(), c.position, c.reportedAt, at(500))
		if ap.Outcome != c.outcome || ap.Reason != c.reason {
			t.Fatalf("%s: outcome = %s/%s, want %s/%s", name, ap.Outcome, ap.Reason, c.outcome, c.reason)
		}
		if ap.Applied != (c.outcome == domain.OutcomeAccepted) {
			t.Fatalf("%s: applied = %v", name, ap.Applied)
		}
		if (next != nil) != (c.outcome == domain.OutcomeAccepted) {
			t.Fatalf("%s: write = %v for outcome %s", name, next != nil, c.outcome)
		}
		if ap.LastPositionSeconds != c.wantPos || !ap.LastHeartbeatAt.Equal(c.wantLast) {
			t.Fatalf("%s: position = %v at %v, want %v at %v", name, ap.LastPositionSeconds, ap.LastHeartbeatAt, c.wantPos, c.wantLast)
		}
		if next != nil && !next.UpdatedAt.Equal(at(500)) {
			t.Fatalf("%s: updatedAt not bumped", name)
		}
	}
}

func TestReconcile_Completion(t *testing.T) {
	p := DefaultPolicy()
	next, ap := Reconcile(p, key, oneMinute, record(50, at(0)), 57, at(10), at(10))
	if !next.Completed || !ap.Completed {
		t.Fatal("crossing 95% of 60s must complete the lesson")
	}

	next, _ = Reconcile(p, key, oneMinute, record(50, at(0)), 56.9, at(10), at(10))
	if next.Completed {
		t.Fatal("56.9s of 60s must not complete the lesson")
	}

	unknown := &domain.LessonModel{ID: "l1"}
	next, _ = Reconcile(p, key, unknown, nil, 1000, at(0), at(0))
	if next.Completed {
		t.Fatal("lessons without duration are never completed by position")
	}

	done := record(58, at(0))
	done.Completed = true
	next, ap = Reconcile(p, key, oneMinute, done, 12, at(100), at(100))
	if !ap.Completed || next == nil || !next.Completed {
		t.Fatal("completion must never be revoked")
	}
}

func TestReconcile_ReplayIsIdempotent(t *testing.T) {
	p := DefaultPolicy()
	rec, _ := Reconcile(p, key, oneMinute, nil, 12, at(0), at(0))
	for i := 0; i < 3; i++ {
		next, ap := Reconcile(p, key, oneMinute, rec.Clone(), 12, at(0), at(i+1))
		if next != nil || ap.Outcome != domain.OutcomeDuplicate {
			t.Fatalf("replay %d: outcome %s, write %v", i, ap.Outcome, next != nil)
		}
	}
}

func TestReconcile_PositionNeverDecreases(t *testing.T) {
	p := DefaultPolicy()
	var rec *domain.LessonProgressModel
	positions := []float64{5, 20, 18, 3, 40, 35, 41}
	prev := 0.0
	for i, pos := range positions {
		next, _ := Reconcile(p, key, oneMinute, rec.Clone(), pos, at(i*100), at(i*100))
		if next != nil {
			rec = next
		}
		if rec.LastPositionSeconds < prev {
			t.Fatalf("step %d: position decreased from %v to %v", i, prev, rec.LastPositionSeconds)
		}
		prev = rec.LastPositionSeconds
	}
	if prev != 41 {
		t.Fatalf("final position = %v, want 41", prev)
	}
}

func TestReconcile_RecordWithoutHeartbeat(t *testing.T) {
	completed := Complete(key, nil, at(0))
	next, ap := Reconcile(DefaultPolicy(), key, oneMinute, completed, 0, at(5), at(5))
	if !ap.Applied || next.LastHeartbeatAt == nil || !next.LastHeartbeatAt.Equal(at(5)) {
		t.Fatalf("first heartbeat on a completed record must be accepted, got %+v", ap)
	}
}

func TestClampPosition(t *testing.T) {
	p := DefaultPolicy()
	cases := map[string]struct {
		lesson  *domain.LessonModel
		pos     float64
		want    float64
		invalid bool
	}{
		"inside":            {oneMinute, 30, 30, false},
		"end":               {oneMinute, 60, 60, false},
		"within tolerance":  {oneMinute, 61.5, 60, false},
		"beyond tolerance":  {oneMinute, 62.5, 0, true},
		"negative":          {oneMinute, -1, 0, true},
		"unknown duration":  {&domain.LessonModel{}, 500, 500, false},
	}
	for name, c := range cases {
		got, err := p.ClampPosition(c.lesson, c.pos)
		if c.invalid {
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("%s: err = %v, want invalid input", name, err)
			}
			continue
		}
		if err != nil || got != c.want {
			t.Fatalf("%s: ClampPosition() = %v, %v, want %v", name, got, err, c.want)
		}
	}
}

func TestComplete(t *testing.T) {
	created := Complete(key, nil, at(0))
	if !created.Completed || created.LastPositionSeconds != 0 || created.LastHeartbeatAt != nil {
		t.Fatalf("unexpected created record %+v", created)
	}
	if Complete(key, created, at(10)) != nil {
		t.Fatal("completing a completed record must be a no-op")
	}
	next := Complete(key, record(42, at(0)), at(10))
	if !next.Completed || next.LastPositionSeconds != 42 || !next.UpdatedAt.Equal(at(10)) {
		t.Fatalf("unexpected completed record %+v", next)
	}
}
