package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/pot-code/progress-engine/internal/domain"
	"github.com/pot-code/progress-engine/internal/infrastructure/driver"
	"github.com/pot-code/progress-engine/internal/infrastructure/logging"
	"go.elastic.co/apm"
	"go.uber.org/zap"
)

const courseKeyPrefix = "catalog:course:"

// CatalogCache caches course metadata in a KeyValueDB.
//
// Users and enrollments always go upstream, role and purchase changes must be seen by the next request.
type CatalogCache struct {
	Upstream domain.CatalogGateway
	KV       driver.KeyValueDB
	TTL      time.Duration
}

var _ domain.CatalogGateway = &CatalogCache{}

func NewCatalogCache(Upstream domain.CatalogGateway, KV driver.KeyValueDB, TTL time.Duration) *CatalogCache {
	return &CatalogCache{Upstream, KV, TTL}
}

func courseKey(id string) string {
	return courseKeyPrefix + id
}

func (cc *CatalogCache) GetUser(ctx context.Context, id string) (*domain.UserModel, error) {
	return cc.Upstream.GetUser(ctx, id)
}

func (cc *CatalogCache) GetEnrollments(ctx context.Context, userID string) ([]*domain.EnrollmentModel, error) {
	return cc.Upstream.GetEnrollments(ctx, userID)
}

// GetCourse read through cache, kv failures fall back to upstream
func (cc *CatalogCache) GetCourse(ctx context.Context, id string) (*domain.CourseModel, error) {
	if cc.TTL <= 0 {
		return cc.Upstream.GetCourse(ctx, id)
	}

	apmSpan, ctx := apm.StartSpan(ctx, "CatalogCache.GetCourse", "cache")
	defer apmSpan.End()

	logger := logging.ExtractLoggerFromContext(ctx)
	key := courseKey(id)
	if raw, err := cc.KV.Get(ctx, key); err == nil {
		course := new(domain.CourseModel)
		if err := json.Unmarshal([]byte(raw), course); err == nil {
			return course, nil
		}
		logger.Warn("drop corrupted course cache entry", zap.String("cache.key", key))
	} else if !errors.Is(err, driver.ErrKeyNotFound) {
		logger.Warn("course cache read failed", zap.String("cache.key", key), zap.Error(err))
	}

	course, err := cc.Upstream.GetCourse(ctx, id)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(course); err == nil {
		if err := cc.KV.SetEX(ctx, key, string(raw), cc.TTL); err != nil {
			logger.Warn("course cache write failed", zap.String("cache.key", key), zap.Error(err))
		}
	}
	return course, nil
}

// InvalidateCourse evict cached metadata of a course, called when the catalog or a grant changes
func (cc *CatalogCache) InvalidateCourse(ctx context.Context, id string) error {
	return cc.KV.Del(ctx, courseKey(id))
}
