// Package memory 是进程内的世界仓库，用于单机试玩与测试。
package memory

import (
	"context"
	"sync"

	"GeoConquest/internal/conquest/domain"
	"GeoConquest/internal/world/entity"
)

type WorldRepository struct {
	mu    sync.RWMutex
	world *domain.MemWorld
	saves int
}

func NewWorldRepository() *WorldRepository {
	return &WorldRepository{world: domain.NewMemWorld()}
}

func (r *WorldRepository) LoadWorld(ctx context.Context) (*entity.World, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return entity.NewWorld(r.world.Territories(), r.world.Players()), nil
}

func (r *WorldRepository) Save(ctx context.Context, s *entity.WorldPersistSnapshot) error {
	if s == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.world.Apply(s.Changes)
	r.world.ResetChanges()
	r.saves++
	return nil
}

// Saves 返回成功写入的快照数。
func (r *WorldRepository) Saves() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.saves
}
