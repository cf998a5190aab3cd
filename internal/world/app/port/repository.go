package port

import (
	"context"

	"GeoConquest/internal/world/entity"
)

// WorldRepository 是世界实体的持久化端口。Save 收到的是增量，必须在一个事务里写完。
type WorldRepository interface {
	LoadWorld(ctx context.Context) (*entity.World, error)
	Save(ctx context.Context, s *entity.WorldPersistSnapshot) error
}
