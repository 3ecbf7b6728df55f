package cache

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/conference-api/internal/model"
	"github.com/jwalitptl/conference-api/internal/repository"
)

// PaperRepository caches paper lookups used to enrich invitation listings.
// Misses are not cached so a paper created later becomes visible immediately.
type PaperRepository struct {
	next  repository.PaperRepository
	cache *cache.Cache
}

func NewPaperRepository(next repository.PaperRepository, ttl, cleanupInterval time.Duration) *PaperRepository {
	return &PaperRepository{
		next:  next,
		cache: cache.New(ttl, cleanupInterval),
	}
}

func (r *PaperRepository) GetByID(ctx context.Context, id string) (*model.Paper, error) {
	if cached, found := r.cache.Get(id); found {
		cp := cached.(model.Paper)
		return &cp, nil
	}

	paper, err := r.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	r.cache.Set(id, *paper, cache.DefaultExpiration)
	return paper, nil
}

// Invalidate drops a cached paper.
func (r *PaperRepository) Invalidate(id string) {
	r.cache.Delete(id)
}
