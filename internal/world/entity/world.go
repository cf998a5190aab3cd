package entity

import (
	"GeoConquest/internal/conquest/domain"
)

// World 是 world actor 独占的世界实体：内存里的全部格子与玩家，外加自上次落盘以来的脏行。
type World struct {
	*domain.MemWorld
}

func NewWorld(territories []domain.Territory, players []domain.Player) *World {
	w := domain.NewMemWorld()
	w.Load(territories, players)
	return &World{MemWorld: w}
}

func (w *World) Dirty() bool {
	return w != nil && w.HasChanges()
}

func (w *World) ClearDirty() {
	if w == nil {
		return
	}
	w.ResetChanges()
}

// BuildPersistSnapshot 取出脏行生成落盘快照，并清空脏标记。
func (w *World) BuildPersistSnapshot(version uint64) (*WorldPersistSnapshot, bool) {
	if w == nil || !w.Dirty() {
		return nil, false
	}
	s := &WorldPersistSnapshot{
		Version: version,
		Changes: w.Changes(),
	}
	w.ClearDirty()
	return s, true
}
