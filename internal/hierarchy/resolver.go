package hierarchy

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/org-directory/internal/repository"
)

// Resolver computes the visible closure of a facility: the facility itself
// plus all transitive descendants. The closure is fetched with a single
// recursive query and cached in Redis, which is sound because the facility
// tree is immutable once seeded. Cache failures degrade to the database.
type Resolver struct {
	facilities repository.FacilityRepository
	cache      *redis.Client
	cacheTTL   time.Duration
	logger     *zap.Logger
}

// NewResolver builds a resolver. cache may be nil to disable caching.
func NewResolver(facilities repository.FacilityRepository, cache *redis.Client, cacheTTL time.Duration, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{facilities: facilities, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

const closureKeyPrefix = "facility:closure:"

// Descendants returns the visible closure of facilityID. The result always
// contains facilityID itself, even when no such facility exists; callers
// that need existence must verify it separately.
func (r *Resolver) Descendants(ctx context.Context, facilityID string) ([]string, error) {
	if ids, ok := r.fromCache(ctx, facilityID); ok {
		return ids, nil
	}

	ids, err := r.facilities.DescendantIDs(ctx, facilityID)
	if err != nil {
		return nil, err
	}

	r.store(ctx, facilityID, ids)
	return ids, nil
}

func (r *Resolver) fromCache(ctx context.Context, facilityID string) ([]string, bool) {
	if r.cache == nil {
		return nil, false
	}

	ids, err := r.cache.SMembers(ctx, closureKeyPrefix+facilityID).Result()
	if err != nil {
		if err != redis.Nil {
			r.logger.Warn("closure cache read failed", zap.String("facility_id", facilityID), zap.Error(err))
		}
		return nil, false
	}
	if len(ids) == 0 {
		return nil, false
	}
	return ids, true
}

func (r *Resolver) store(ctx context.Context, facilityID string, ids []string) {
	if r.cache == nil || len(ids) == 0 {
		return
	}

	key := closureKeyPrefix + facilityID
	members := make([]any, len(ids))
	for i, id := range ids {
		members[i] = id
	}

	pipe := r.cache.TxPipeline()
	pipe.SAdd(ctx, key, members...)
	if r.cacheTTL > 0 {
		pipe.Expire(ctx, key, r.cacheTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Warn("closure cache write failed", zap.String("facility_id", facilityID), zap.Error(err))
	}
}
