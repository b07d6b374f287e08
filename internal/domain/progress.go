package domain

import (
	"context"
	"time"
)

// ProgressKey identifies one LessonProgressModel
type ProgressKey struct {
	UserID   string
	CourseID string
	LessonID string
}

func (k ProgressKey) String() string {
	return k.UserID + "/" + k.CourseID + "/" + k.LessonID
}

// LessonProgressModel how far a user got in one lesson
type LessonProgressModel struct {
	ID                  string     `json:"id,omitempty"`
	UserID              string     `json:"-"`
	CourseID            string     `json:"course_id"`
	LessonID            string     `json:"lesson_id"`
	Completed           bool       `json:"completed"`
	LastPositionSeconds float64    `json:"last_position_seconds"`
	LastHeartbeatAt     *time.Time `json:"last_heartbeat_at,omitempty"`
	UpdatedAt           time.Time  `json:"updated_at"`
	CreatedAt           time.Time  `json:"-"`
}

// Key record key
func (lp *LessonProgressModel) Key() ProgressKey {
	return ProgressKey{lp.UserID, lp.CourseID, lp.LessonID}
}

// Clone returns a deep copy, stores never hand out their own pointers
func (lp *LessonProgressModel) Clone() *LessonProgressModel {
	if lp == nil {
		return nil
	}
	c := *lp
	if lp.LastHeartbeatAt != nil {
		t := *lp.LastHeartbeatAt
		c.LastHeartbeatAt = &t
	}
	return &c
}

// HeartbeatOutcome result of folding a heartbeat into a record
type HeartbeatOutcome string

// heartbeat outcomes
const (
	OutcomeAccepted  HeartbeatOutcome = "accepted"
	OutcomeDuplicate HeartbeatOutcome = "duplicate"
	OutcomeStale     HeartbeatOutcome = "stale"
)

// stale reasons
const (
	StaleOutOfOrder        = "out_of_order"
	StalePositionRegressed = "position_regressed"
)

// HeartbeatModel a playback position report
type HeartbeatModel struct {
	CourseID        string    `json:"course_id" validate:"required"`
	LessonID        string    `json:"lesson_id" validate:"required"`
	PositionSeconds float64   `json:"position_seconds" validate:"min=0"`
	ReportedAt      time.Time `json:"reported_at" validate:"required"`
}

// AcceptedPosition what the reconciler did with a heartbeat
type AcceptedPosition struct {
	Applied             bool             `json:"applied"`
	Outcome             HeartbeatOutcome `json:"outcome"`
	Reason              string           `json:"reason,omitempty"`
	LessonID            string           `json:"lesson_id"`
	LastPositionSeconds float64          `json:"last_position_seconds"`
	Completed           bool             `json:"completed"`
	LastHeartbeatAt     *time.Time       `json:"last_heartbeat_at,omitempty"`
}

// CourseProgressSummary derived from the lesson records of one (user, course)
type CourseProgressSummary struct {
	CourseID             string     `json:"course_id"`
	CompletedLessonCount int        `json:"completed_lesson_count"`
	TotalLessonCount     int        `json:"total_lesson_count"`
	Percentage           int        `json:"percentage"`
	LastWatchedLessonID  string     `json:"last_watched_lesson_id,omitempty"`
	LastPositionSeconds  float64    `json:"last_position_seconds"`
	LastActivityAt       *time.Time `json:"last_activity_at,omitempty"`
}

// ContinueLearningEntry dashboard item
type ContinueLearningEntry struct {
	CourseID            string    `json:"course_id"`
	Title               string    `json:"title"`
	Thumbnail           string    `json:"thumbnail"`
	ProgressPercentage  int       `json:"progress_percentage"`
	LastWatchedLessonID string    `json:"last_watched_lesson_id"`
	LastPositionSeconds float64   `json:"last_position_seconds"`
	LastActivityAt      time.Time `json:"last_activity_at"`
	EnrolledAt          time.Time `json:"-"`
}

// ProgressMutator receives the current record (nil if absent) and returns the record
// to persist, or nil to leave storage untouched
type ProgressMutator func(current *LessonProgressModel) (*LessonProgressModel, error)

// LessonProgressRepository per-record progress storage
type LessonProgressRepository interface {
	// GetLessonProgress returns nil, nil if there is no record
	GetLessonProgress(ctx context.Context, key ProgressKey) (*LessonProgressModel, error)
	ListCourseProgress(ctx context.Context, userID, courseID string) ([]*LessonProgressModel, error)
	// UpdateLessonProgress atomic read-modify-write, serialized per key
	UpdateLessonProgress(ctx context.Context, key ProgressKey, fn ProgressMutator) (*LessonProgressModel, error)
}

// LessonUseCase lesson level operations
type LessonUseCase interface {
	ReportHeartbeat(ctx context.Context, userID string, hb *HeartbeatModel) (*AcceptedPosition, error)
	MarkCompleted(ctx context.Context, key ProgressKey) (*LessonProgressModel, error)
	GetLessonProgress(ctx context.Context, key ProgressKey) (*LessonProgressModel, error)
}

// CourseUseCase course level operations
type CourseUseCase interface {
	GetCourseSummary(ctx context.Context, userID, courseID string) (*CourseProgressSummary, error)
}
