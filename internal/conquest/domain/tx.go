package domain

// Tx 在底层 World 之上缓冲写入：Commit 前底层不受影响，丢弃即回滚。
// 规则引擎的每个操作都跑在 Tx 里，保证失败的操作没有部分效果。
type Tx struct {
	base    World
	changes *changeTracker
}

func Begin(base World) *Tx {
	return &Tx{base: base, changes: newChangeTracker()}
}

func (tx *Tx) Territory(id CellID) (Territory, bool) {
	if t, ok := tx.changes.territories[id]; ok {
		return t, true
	}
	return tx.base.Territory(id)
}

func (tx *Tx) PutTerritory(t Territory) {
	tx.changes.territory(t)
}

func (tx *Tx) Player(id PlayerID) (Player, bool) {
	if _, gone := tx.changes.removed[id]; gone {
		return Player{}, false
	}
	if p, ok := tx.changes.players[id]; ok {
		return p.Clone(), true
	}
	return tx.base.Player(id)
}

func (tx *Tx) PutPlayer(p Player) {
	tx.changes.player(p)
}

func (tx *Tx) DeletePlayer(id PlayerID) {
	if _, ok := tx.Player(id); !ok {
		return
	}
	tx.changes.removePlayer(id)
}

func (tx *Tx) OwnedBy(id PlayerID) []Territory {
	base := tx.base.OwnedBy(id)
	out := make([]Territory, 0, len(base))
	for _, t := range base {
		if _, touched := tx.changes.territories[t.ID]; !touched {
			out = append(out, t)
		}
	}
	for _, t := range tx.changes.territories {
		if t.OwnedBy(id) {
			out = append(out, t)
		}
	}
	sortTerritories(out)
	return out
}

// Changes 返回缓冲中的变更。
func (tx *Tx) Changes() ChangeSet {
	return tx.changes.snapshot()
}

// Commit 把缓冲写入底层并返回写入的变更。
func (tx *Tx) Commit() ChangeSet {
	cs := tx.changes.snapshot()
	for _, t := range cs.Territories {
		tx.base.PutTerritory(t)
	}
	for _, id := range cs.RemovedPlayers {
		tx.base.DeletePlayer(id)
	}
	for _, p := range cs.Players {
		tx.base.PutPlayer(p)
	}
	tx.changes = newChangeTracker()
	return cs
}
