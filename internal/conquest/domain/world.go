package domain

import "sort"

// World 是规则引擎操作的可变世界视图。
// 服务端由单写者 actor 持有，离线模式由本地存储持有，客户端乐观预测则在只读快照上叠一层 Tx。
type World interface {
	Territory(id CellID) (Territory, bool)
	PutTerritory(t Territory)
	Player(id PlayerID) (Player, bool)
	PutPlayer(p Player)
	DeletePlayer(id PlayerID)
	// OwnedBy 返回该玩家拥有的全部格子，按 id 排序。
	OwnedBy(id PlayerID) []Territory
}

// MemWorld 是基于 map 的 World 实现，带 owner 反向索引与变更记录。
type MemWorld struct {
	territories map[CellID]Territory
	players     map[PlayerID]Player
	owned       map[PlayerID]map[CellID]struct{}

	changes *changeTracker
}

func NewMemWorld() *MemWorld {
	return &MemWorld{
		territories: make(map[CellID]Territory),
		players:     make(map[PlayerID]Player),
		owned:       make(map[PlayerID]map[CellID]struct{}),
		changes:     newChangeTracker(),
	}
}

// Load 批量装载，不记录变更。
func (w *MemWorld) Load(territories []Territory, players []Player) {
	for _, t := range territories {
		w.putTerritory(t)
	}
	for _, p := range players {
		w.players[p.ID] = p.Clone()
	}
}

func (w *MemWorld) Territory(id CellID) (Territory, bool) {
	t, ok := w.territories[id]
	return t, ok
}

func (w *MemWorld) PutTerritory(t Territory) {
	w.putTerritory(t)
	w.changes.territory(t)
}

func (w *MemWorld) putTerritory(t Territory) {
	if old, ok := w.territories[t.ID]; ok && old.OwnerID != "" && old.OwnerID != t.OwnerID {
		if set := w.owned[old.OwnerID]; set != nil {
			delete(set, t.ID)
			if len(set) == 0 {
				delete(w.owned, old.OwnerID)
			}
		}
	}
	w.territories[t.ID] = t
	if t.OwnerID != "" {
		set := w.owned[t.OwnerID]
		if set == nil {
			set = make(map[CellID]struct{})
			w.owned[t.OwnerID] = set
		}
		set[t.ID] = struct{}{}
	}
}

func (w *MemWorld) Player(id PlayerID) (Player, bool) {
	p, ok := w.players[id]
	if !ok {
		return Player{}, false
	}
	return p.Clone(), true
}

func (w *MemWorld) PutPlayer(p Player) {
	p = p.Clone()
	w.players[p.ID] = p
	w.changes.player(p)
}

func (w *MemWorld) DeletePlayer(id PlayerID) {
	if _, ok := w.players[id]; !ok {
		return
	}
	delete(w.players, id)
	w.changes.removePlayer(id)
}

func (w *MemWorld) OwnedBy(id PlayerID) []Territory {
	set := w.owned[id]
	out := make([]Territory, 0, len(set))
	for cid := range set {
		out = append(out, w.territories[cid])
	}
	sortTerritories(out)
	return out
}

func (w *MemWorld) TerritoryCount() int {
	return len(w.territories)
}

// Territories 返回全部格子，按 id 排序。
func (w *MemWorld) Territories() []Territory {
	out := make([]Territory, 0, len(w.territories))
	for _, t := range w.territories {
		out = append(out, t)
	}
	sortTerritories(out)
	return out
}

// Players 返回全部玩家，按 id 排序。
func (w *MemWorld) Players() []Player {
	out := make([]Player, 0, len(w.players))
	for _, p := range w.players {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Apply 把一组变更写入世界（记录变更）。
func (w *MemWorld) Apply(cs ChangeSet) {
	for _, t := range cs.Territories {
		w.PutTerritory(t)
	}
	for _, id := range cs.RemovedPlayers {
		w.DeletePlayer(id)
	}
	for _, p := range cs.Players {
		w.PutPlayer(p)
	}
}

// Clone 深拷贝，变更记录清空。
func (w *MemWorld) Clone() *MemWorld {
	next := NewMemWorld()
	for _, t := range w.territories {
		next.putTerritory(t)
	}
	for id, p := range w.players {
		next.players[id] = p.Clone()
	}
	return next
}

// Changes 返回自上次 ResetChanges 以来的变更。
func (w *MemWorld) Changes() ChangeSet {
	return w.changes.snapshot()
}

func (w *MemWorld) HasChanges() bool {
	return !w.changes.empty()
}

func (w *MemWorld) ResetChanges() {
	w.changes = newChangeTracker()
}

func sortTerritories(ts []Territory) {
	sort.Slice(ts, func(i, j int) bool { return ts[i].ID < ts[j].ID })
}
