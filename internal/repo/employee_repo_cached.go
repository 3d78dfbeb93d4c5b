package repo

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"gin-gorm-employees/internal/core/cache"
	"gin-gorm-employees/internal/domain"
)

const generationKey = "employees:gen"

// CachedEmployeeRepo 读穿透缓存。写操作成功后递增代号，旧代的键
// 不再被读取，并发回源写入的旧值也就不会被看到。
// 递增失败时置 stale：之后的读绕过缓存，直到某次递增成功。
type CachedEmployeeRepo struct {
	next  domain.EmployeeRepository
	cache *cache.Cache
	ttl   time.Duration
	log   *zap.Logger
	stale atomic.Bool
}

func NewCachedEmployeeRepo(next domain.EmployeeRepository, c *cache.Cache, ttl time.Duration, l *zap.Logger) *CachedEmployeeRepo {
	return &CachedEmployeeRepo{next: next, cache: c, ttl: ttl, log: l}
}

func listKey(gen int64) string { return fmt.Sprintf("employees:v%d:all", gen) }
func idKey(gen, id int64) string { return fmt.Sprintf("employees:v%d:id:%d", gen, id) }

func (r *CachedEmployeeRepo) ListAll(ctx context.Context) ([]domain.Employee, error) {
	gen, ok := r.generation(ctx)
	if !ok {
		return r.next.ListAll(ctx)
	}
	return cache.GetOrLoadJSON(ctx, r.cache, listKey(gen), r.ttl, r.next.ListAll)
}

func (r *CachedEmployeeRepo) GetByID(ctx context.Context, id int64) (*domain.Employee, error) {
	gen, ok := r.generation(ctx)
	if !ok {
		return r.next.GetByID(ctx, id)
	}
	return cache.GetOrLoadJSON(ctx, r.cache, idKey(gen, id), r.ttl,
		func(ctx context.Context) (*domain.Employee, error) { return r.next.GetByID(ctx, id) })
}

// generation 返回当前代号；ok 为 false 时调用方直接回源
func (r *CachedEmployeeRepo) generation(ctx context.Context) (int64, bool) {
	if r.stale.Load() {
		if err := r.cache.Bump(ctx, generationKey); err != nil {
			return 0, false
		}
		r.stale.Store(false)
		r.log.Info("cache generation recovered")
	}
	gen, err := r.cache.Generation(ctx, generationKey)
	if err != nil {
		r.log.Warn("cache generation read failed", zap.Error(err))
		return 0, false
	}
	return gen, true
}

func (r *CachedEmployeeRepo) Insert(ctx context.Context, e *domain.Employee) (int64, error) {
	id, err := r.next.Insert(ctx, e)
	if err != nil {
		return 0, err
	}
	r.invalidate(ctx, id)
	return id, nil
}

func (r *CachedEmployeeRepo) Update(ctx context.Context, e *domain.Employee) error {
	if err := r.next.Update(ctx, e); err != nil {
		return err
	}
	r.invalidate(ctx, e.ID)
	return nil
}

func (r *CachedEmployeeRepo) Delete(ctx context.Context, id int64) error {
	if err := r.next.Delete(ctx, id); err != nil {
		return err
	}
	r.invalidate(ctx, id)
	return nil
}

func (r *CachedEmployeeRepo) invalidate(ctx context.Context, id int64) {
	err := r.cache.Bump(ctx, generationKey)
	if err == nil {
		return
	}
	r.stale.Store(true)
	r.log.Error("cache invalidation failed, bypassing cache", zap.Error(err), zap.Int64("id", id))
	// 其他实例仍可能读当前代，尽量删掉受影响的键
	if gen, gerr := r.cache.Generation(ctx, generationKey); gerr == nil {
		if derr := r.cache.Del(ctx, listKey(gen), idKey(gen, id)); derr != nil {
			r.log.Warn("cache key delete failed", zap.Error(derr), zap.Int64("gen", gen))
		}
	}
}

var _ domain.EmployeeRepository = (*CachedEmployeeRepo)(nil)
