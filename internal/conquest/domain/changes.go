package domain

import "sort"

// ChangeSet 是一次或多次操作写出的行级变更（后写覆盖先写）。
// 同一玩家不会同时出现在 Players 和 RemovedPlayers 中。
type ChangeSet struct {
	Territories    []Territory `json:"territories,omitempty"`
	Players        []Player    `json:"players,omitempty"`
	RemovedPlayers []PlayerID  `json:"removedPlayers,omitempty"`
}

func (cs ChangeSet) Empty() bool {
	return len(cs.Territories) == 0 && len(cs.Players) == 0 && len(cs.RemovedPlayers) == 0
}

// Merge 返回 cs 之后再应用 next 的合并结果。
func (cs ChangeSet) Merge(next ChangeSet) ChangeSet {
	t := newChangeTracker()
	t.apply(cs)
	t.apply(next)
	return t.snapshot()
}

type changeTracker struct {
	territories map[CellID]Territory
	players     map[PlayerID]Player
	removed     map[PlayerID]struct{}
}

func newChangeTracker() *changeTracker {
	return &changeTracker{
		territories: make(map[CellID]Territory),
		players:     make(map[PlayerID]Player),
		removed:     make(map[PlayerID]struct{}),
	}
}

func (c *changeTracker) territory(t Territory) {
	c.territories[t.ID] = t
}

func (c *changeTracker) player(p Player) {
	delete(c.removed, p.ID)
	c.players[p.ID] = p.Clone()
}

func (c *changeTracker) removePlayer(id PlayerID) {
	delete(c.players, id)
	c.removed[id] = struct{}{}
}

func (c *changeTracker) apply(cs ChangeSet) {
	for _, t := range cs.Territories {
		c.territory(t)
	}
	for _, id := range cs.RemovedPlayers {
		c.removePlayer(id)
	}
	for _, p := range cs.Players {
		c.player(p)
	}
}

func (c *changeTracker) empty() bool {
	return len(c.territories) == 0 && len(c.players) == 0 && len(c.removed) == 0
}

func (c *changeTracker) snapshot() ChangeSet {
	var cs ChangeSet
	for _, t := range c.territories {
		cs.Territories = append(cs.Territories, t)
	}
	sortTerritories(cs.Territories)
	for _, p := range c.players {
		cs.Players = append(cs.Players, p.Clone())
	}
	sort.Slice(cs.Players, func(i, j int) bool { return cs.Players[i].ID < cs.Players[j].ID })
	for id := range c.removed {
		cs.RemovedPlayers = append(cs.RemovedPlayers, id)
	}
	sort.Slice(cs.RemovedPlayers, func(i, j int) bool { return cs.RemovedPlayers[i] < cs.RemovedPlayers[j] })
	return cs
}
