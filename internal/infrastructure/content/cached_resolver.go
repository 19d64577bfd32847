package content

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/ignatzorin/report-moderation/internal/domain/repository"
	"github.com/ignatzorin/report-moderation/internal/domain/valueobject"
	"github.com/ignatzorin/report-moderation/internal/metrics"
)

type targetKey struct {
	reportType valueobject.ReportType
	id         uuid.UUID
}

type targetEntry struct {
	Updated time.Time
	Info    repository.TargetInfo
	Deleted bool
}

// CachedResolver кеширует ответы внутреннего резолвера. Удалённые объекты
// тоже кешируются, но не дольше DeletedTTL; прочие ошибки не кешируются.
type CachedResolver struct {
	Inner      repository.ContentResolver
	DeletedTTL time.Duration
	targets    *expirable.LRU[targetKey, targetEntry]
}

var _ repository.ContentResolver = (*CachedResolver)(nil)

// NewCachedResolver: нулевой capacity означает неограниченный размер, нулевой ttl — бессрочное хранение.
func NewCachedResolver(inner repository.ContentResolver, capacity int, ttl, deletedTTL time.Duration) *CachedResolver {
	return &CachedResolver{
		Inner:      inner,
		DeletedTTL: deletedTTL,
		targets:    expirable.NewLRU[targetKey, targetEntry](capacity, nil, ttl),
	}
}

func (c *CachedResolver) isStale(e *targetEntry) bool {
	return e.Deleted && c.DeletedTTL > 0 && time.Since(e.Updated) > c.DeletedTTL
}

func (c *CachedResolver) Resolve(ctx context.Context, reportType valueobject.ReportType, targetID uuid.UUID) (repository.TargetInfo, error) {
	key := targetKey{reportType: reportType, id: targetID}
	if entry, ok := c.targets.Get(key); ok && !c.isStale(&entry) {
		metrics.ContentCacheHits.Inc()
		if entry.Deleted {
			return repository.TargetInfo{}, repository.ErrTargetDeleted
		}
		return entry.Info, nil
	}
	metrics.ContentCacheMisses.Inc()

	info, err := c.Inner.Resolve(ctx, reportType, targetID)
	switch {
	case err == nil:
		c.targets.Add(key, targetEntry{Updated: time.Now(), Info: info})
	case errors.Is(err, repository.ErrTargetDeleted):
		c.targets.Add(key, targetEntry{Updated: time.Now(), Deleted: true})
	}
	return info, err
}

// ResolveUser разделяет кеш с Resolve для объектов типа user.
func (c *CachedResolver) ResolveUser(ctx context.Context, userID uuid.UUID) (repository.UserInfo, error) {
	info, err := c.Resolve(ctx, valueobject.ReportTypeUser, userID)
	if err != nil {
		return repository.UserInfo{}, err
	}
	return repository.UserInfo{ID: userID, DisplayName: info.DisplayName}, nil
}

// Purge убирает объект из кеша.
func (c *CachedResolver) Purge(reportType valueobject.ReportType, targetID uuid.UUID) {
	c.targets.Remove(targetKey{reportType: reportType, id: targetID})
}
