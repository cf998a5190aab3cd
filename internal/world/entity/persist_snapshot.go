package entity

import "GeoConquest/internal/conquest/domain"

// WorldPersistSnapshot 是一次落盘的增量。快照之间可以合并，合并后 Version 取较大者。
type WorldPersistSnapshot struct {
	Version uint64
	Changes domain.ChangeSet
}

// Merge 返回先应用 s 再应用 next 的合并快照。
func (s *WorldPersistSnapshot) Merge(next *WorldPersistSnapshot) *WorldPersistSnapshot {
	switch {
	case s == nil:
		return next
	case next == nil:
		return s
	}
	version := next.Version
	if s.Version > version {
		version = s.Version
	}
	return &WorldPersistSnapshot{Version: version, Changes: s.Changes.Merge(next.Changes)}
}
