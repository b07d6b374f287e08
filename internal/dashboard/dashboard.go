// Package dashboard ranks the courses a learner should resume.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/pot-code/progress-engine/internal/access"
	"github.com/pot-code/progress-engine/internal/catalog"
	"github.com/pot-code/progress-engine/internal/course"
	"github.com/pot-code/progress-engine/internal/domain"
	"github.com/pot-code/progress-engine/internal/infrastructure/logging"
	"go.elastic.co/apm"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultMaxParallel course summaries computed at once
const DefaultMaxParallel = 8

// ContinueLearningUseCase .
type ContinueLearningUseCase interface {
	ContinueLearning(ctx context.Context, userID string) *EntrySeq
}

// Ranker ContinueLearningUseCase implementation
type Ranker struct {
	LessonRepository domain.LessonProgressRepository
	Catalog          domain.CatalogGateway
	MaxParallel      int
}

var _ ContinueLearningUseCase = &Ranker{}

// NewRanker ...
func NewRanker(
	LessonRepository domain.LessonProgressRepository,
	Catalog domain.CatalogGateway,
	MaxParallel int,
) *Ranker {
	if MaxParallel < 1 {
		MaxParallel = DefaultMaxParallel
	}
	return &Ranker{LessonRepository, Catalog, MaxParallel}
}

// ContinueLearning in-progress courses of userID, most recent activity first
func (r *Ranker) ContinueLearning(ctx context.Context, userID string) *EntrySeq {
	return newEntrySeq(ctx, func(ctx context.Context) ([]*domain.ContinueLearningEntry, error) {
		return r.rank(ctx, userID)
	})
}

func (r *Ranker) rank(ctx context.Context, userID string) ([]*domain.ContinueLearningEntry, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "Ranker.ContinueLearning", "service")
	defer apmSpan.End()

	gw := catalog.ScopeFromContext(ctx, r.Catalog)
	user, err := gw.GetUser(ctx, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		user = nil
	}
	enrollments, err := gw.GetEnrollments(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get enrollments: %w", err)
	}
	enrollments = latestPerCourse(enrollments)

	logger := logging.ExtractLoggerFromContext(ctx)
	results := make([]*domain.ContinueLearningEntry, len(enrollments))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.MaxParallel)
	for i, e := range enrollments {
		i, e := i, e
		g.Go(func() error {
			entry, err := r.entry(gctx, gw, userID, user, e)
			if errors.Is(err, domain.ErrNotFound) {
				logger.Warn("enrolled course missing from catalog",
					zap.String("user.id", userID), zap.String("course.id", e.CourseID))
				return nil
			}
			if err != nil {
				return err
			}
			results[i] = entry
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	entries := make([]*domain.ContinueLearningEntry, 0, len(results))
	for _, e := range results {
		if e != nil {
			entries = append(entries, e)
		}
	}
	Sort(entries)
	return entries, nil
}

// latestPerCourse keep the most recent enrollment of each course
func latestPerCourse(enrollments []*domain.EnrollmentModel) []*domain.EnrollmentModel {
	seen := make(map[string]int, len(enrollments))
	result := make([]*domain.EnrollmentModel, 0, len(enrollments))
	for _, e := range enrollments {
		if i, ok := seen[e.CourseID]; ok {
			if e.EnrolledAt.After(result[i].EnrolledAt) {
				result[i] = e
			}
			continue
		}
		seen[e.CourseID] = len(result)
		result = append(result, e)
	}
	return result
}

// entry returns nil for courses that must not be surfaced
func (r *Ranker) entry(ctx context.Context, gw domain.CatalogGateway, userID string, user *domain.UserModel,
	e *domain.EnrollmentModel) (*domain.ContinueLearningEntry, error) {
	c, err := gw.GetCourse(ctx, e.CourseID)
	if err != nil {
		return nil, err
	}
	if !access.CanAccess(user, c) {
		return nil, nil
	}
	records, err := r.LessonRepository.ListCourseProgress(ctx, userID, c.ID)
	if err != nil {
		return nil, err
	}
	summary := course.Summarize(c, records)
	if summary.Percentage == 100 {
		return nil, nil
	}
	entry := &domain.ContinueLearningEntry{
		CourseID:            c.ID,
		Title:               c.Title,
		Thumbnail:           c.Thumbnail,
		ProgressPercentage:  summary.Percentage,
		LastWatchedLessonID: summary.LastWatchedLessonID,
		LastPositionSeconds: summary.LastPositionSeconds,
		EnrolledAt:          e.EnrolledAt,
	}
	// courses not started yet keep a zero LastActivityAt and rank after started ones
	if summary.LastActivityAt != nil {
		entry.LastActivityAt = *summary.LastActivityAt
	}
	return entry, nil
}

// Sort order entries by last activity, then enrollment recency, then course id.
// Entries without activity have a zero LastActivityAt and sort last.
func Sort(entries []*domain.ContinueLearningEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.LastActivityAt.Equal(b.LastActivityAt) {
			return a.LastActivityAt.After(b.LastActivityAt)
		}
		if !a.EnrolledAt.Equal(b.EnrolledAt) {
			return a.EnrolledAt.After(b.EnrolledAt)
		}
		return a.CourseID < b.CourseID
	})
}
