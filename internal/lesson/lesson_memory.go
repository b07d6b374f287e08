package lesson

import (
	"context"
	"sync"

	"github.com/pot-code/progress-engine/internal/domain"
)

type courseKey struct {
	userID   string
	courseID string
}

// LessonMemory in process LessonProgressRepository.
//
// Writers are serialized per key, readers only take the map lock.
type LessonMemory struct {
	locksMu sync.Mutex
	locks   map[domain.ProgressKey]*keyLock

	mu      sync.RWMutex
	records map[courseKey]map[string]*domain.LessonProgressModel
}

var _ domain.LessonProgressRepository = &LessonMemory{}

func NewLessonMemory() *LessonMemory {
	return &LessonMemory{
		locks:   make(map[domain.ProgressKey]*keyLock),
		records: make(map[courseKey]map[string]*domain.LessonProgressModel),
	}
}

// keyLock mutex of one record, dropped once no writer holds or waits for it
type keyLock struct {
	sync.Mutex
	refs int
}

// lock serialize writers of key, returns the release func
func (lm *LessonMemory) lock(key domain.ProgressKey) func() {
	lm.locksMu.Lock()
	kl, ok := lm.locks[key]
	if !ok {
		kl = new(keyLock)
		lm.locks[key] = kl
	}
	kl.refs++
	lm.locksMu.Unlock()

	kl.Lock()
	return func() {
		kl.Unlock()
		lm.locksMu.Lock()
		if kl.refs--; kl.refs == 0 {
			delete(lm.locks, key)
		}
		lm.locksMu.Unlock()
	}
}

func (lm *LessonMemory) load(key domain.ProgressKey) *domain.LessonProgressModel {
	lm.mu.RLock()
	defer lm.mu.RUnlock()
	return lm.records[courseKey{key.UserID, key.CourseID}][key.LessonID].Clone()
}

func (lm *LessonMemory) GetLessonProgress(ctx context.Context, key domain.ProgressKey) (*domain.LessonProgressModel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return lm.load(key), nil
}

func (lm *LessonMemory) ListCourseProgress(ctx context.Context, userID, courseID string) ([]*domain.LessonProgressModel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lm.mu.RLock()
	defer lm.mu.RUnlock()

	lessons := lm.records[courseKey{userID, courseID}]
	result := make([]*domain.LessonProgressModel, 0, len(lessons))
	for _, rec := range lessons {
		result = append(result, rec.Clone())
	}
	return result, nil
}

func (lm *LessonMemory) UpdateLessonProgress(ctx context.Context, key domain.ProgressKey, fn domain.ProgressMutator) (*domain.LessonProgressModel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer lm.lock(key)()

	current := lm.load(key)
	next, err := fn(current.Clone())
	if err != nil {
		return nil, err
	}
	if next == nil {
		return current, nil
	}

	stored := next.Clone()
	ck := courseKey{key.UserID, key.CourseID}
	lm.mu.Lock()
	lessons, ok := lm.records[ck]
	if !ok {
		lessons = make(map[string]*domain.LessonProgressModel)
		lm.records[ck] = lessons
	}
	lessons[key.LessonID] = stored
	lm.mu.Unlock()
	return stored.Clone(), nil
}
