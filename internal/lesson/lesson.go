package lesson

import (
	"fmt"
	"time"

	"github.com/pot-code/progress-engine/internal/domain"
)

// Policy heartbeat reconciliation constants
type Policy struct {
	CompletionThreshold float64       // fraction of duration that completes a lesson
	RewindTolerance     time.Duration // regression accepted without a newer timestamp
	SkewTolerance       time.Duration // client clock skew allowed when ordering reports
	DurationTolerance   time.Duration // overshoot past duration clamped instead of rejected
}

// DefaultPolicy .
func DefaultPolicy() Policy {
	return Policy{
		CompletionThreshold: 0.95,
		RewindTolerance:     10 * time.Second,
		SkewTolerance:       5 * time.Second,
		DurationTolerance:   2 * time.Second,
	}
}

// Completes reports whether position crosses the completion threshold of lesson.
// Lessons without a known duration are never completed by position.
func (p Policy) Completes(lesson *domain.LessonModel, position float64) bool {
	return lesson.DurationSeconds > 0 && position >= p.CompletionThreshold*lesson.DurationSeconds
}

// ClampPosition validate a reported position against the lesson duration
func (p Policy) ClampPosition(lesson *domain.LessonModel, position float64) (float64, error) {
	if position < 0 {
		return 0, domain.NewInputError("position_seconds", "must not be negative")
	}
	duration := lesson.DurationSeconds
	if duration <= 0 || position <= duration {
		return position, nil
	}
	if position <= duration+p.DurationTolerance.Seconds() {
		return duration, nil
	}
	return 0, domain.NewInputError("position_seconds",
		fmt.Sprintf("exceeds lesson duration of %g seconds", duration))
}
