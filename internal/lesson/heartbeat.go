package lesson

import (
	"time"

	"github.com/pot-code/progress-engine/internal/domain"
)

// Reconcile fold one heartbeat into the current record.
//
// position must already be clamped. current is nil when no record exists. The returned
// record is nil when nothing must be written, either because the heartbeat is stale or
// because it changes nothing.
func Reconcile(p Policy, key domain.ProgressKey, lesson *domain.LessonModel, current *domain.LessonProgressModel,
	position float64, reportedAt, now time.Time) (*domain.LessonProgressModel, *domain.AcceptedPosition) {
	if current == nil {
		heartbeatAt := reportedAt
		next := &domain.LessonProgressModel{
			UserID:              key.UserID,
			CourseID:            key.CourseID,
			LessonID:            key.LessonID,
			Completed:           p.Completes(lesson, position),
			LastPositionSeconds: position,
			LastHeartbeatAt:     &heartbeatAt,
			UpdatedAt:           now,
			CreatedAt:           now,
		}
		return next, positionOf(next, domain.OutcomeAccepted, "")
	}

	last := current.LastHeartbeatAt
	if last != nil && reportedAt.Before(last.Add(-p.SkewTolerance)) {
		return nil, positionOf(current, domain.OutcomeStale, domain.StaleOutOfOrder)
	}
	if position < current.LastPositionSeconds-p.RewindTolerance.Seconds() {
		if last != nil && !reportedAt.After(last.Add(p.SkewTolerance)) {
			return nil, positionOf(current, domain.OutcomeStale, domain.StalePositionRegressed)
		}
	}

	next := current.Clone()
	if position > next.LastPositionSeconds {
		next.LastPositionSeconds = position
	}
	// LastHeartbeatAt holds the newest accepted reportedAt, an older in-skew report never moves it back
	if last == nil || reportedAt.After(*last) {
		heartbeatAt := reportedAt
		next.LastHeartbeatAt = &heartbeatAt
	}
	if !next.Completed && p.Completes(lesson, next.LastPositionSeconds) {
		next.Completed = true
	}

	if sameState(current, next) {
		return nil, positionOf(current, domain.OutcomeDuplicate, "")
	}
	next.UpdatedAt = now
	return next, positionOf(next, domain.OutcomeAccepted, "")
}

func sameState(a, b *domain.LessonProgressModel) bool {
	if a.Completed != b.Completed || a.LastPositionSeconds != b.LastPositionSeconds {
		return false
	}
	if a.LastHeartbeatAt == nil || b.LastHeartbeatAt == nil {
		return a.LastHeartbeatAt == b.LastHeartbeatAt
	}
	return a.LastHeartbeatAt.Equal(*b.LastHeartbeatAt)
}

func positionOf(rec *domain.LessonProgressModel, outcome domain.HeartbeatOutcome, reason string) *domain.AcceptedPosition {
	ap := &domain.AcceptedPosition{
		Applied:             outcome == domain.OutcomeAccepted,
		Outcome:             outcome,
		Reason:              reason,
		LessonID:            rec.LessonID,
		LastPositionSeconds: rec.LastPositionSeconds,
		Completed:           rec.Completed,
	}
	if rec.LastHeartbeatAt != nil {
		t := *rec.LastHeartbeatAt
		ap.LastHeartbeatAt = &t
	}
	return ap
}

// Complete mark the record completed, creating it if needed.
// Returns nil when the record is already completed.
func Complete(key domain.ProgressKey, current *domain.LessonProgressModel, now time.Time) *domain.LessonProgressModel {
	if current == nil {
		return &domain.LessonProgressModel{
			UserID:    key.UserID,
			CourseID:  key.CourseID,
			LessonID:  key.LessonID,
			Completed: true,
			UpdatedAt: now,
			CreatedAt: now,
		}
	}
	if current.Completed {
		return nil
	}
	next := current.Clone()
	next.Completed = true
	next.UpdatedAt = now
	return next
}
