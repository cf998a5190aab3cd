// Package state 是客户端的世界投影：已确认层（服务器给的值）加上一串待确认的乐观覆盖层。
//
// 读取总是看到 confirmed + pending；存储确认后用服务器的变更替换对应的 pending，
// 拒绝时直接丢弃该 pending，于是回滚就是回到最后一次确认的值。
package state

import (
	"sync"

	"GeoConquest/internal/conquest/domain"
	"GeoConquest/internal/conquest/store"
)

// Token 标识一次乐观变更。
type Token uint64

type pending struct {
	token   Token
	changes domain.ChangeSet
}

// Snapshot 是交给表现层的只读快照。
type Snapshot struct {
	Version     uint64             `json:"version"`
	Territories []domain.Territory `json:"territories"`
	Players     []domain.Player    `json:"players"`
	Pending     int                `json:"pending"`
}

type WorldState struct {
	mu        sync.RWMutex
	confirmed *domain.MemWorld
	pending   []pending
	next      Token
	version   uint64
}

func New() *WorldState {
	return &WorldState{confirmed: domain.NewMemWorld()}
}

// Stage 在当前视图上执行 op；op 成功时把它的变更记为一个 pending 覆盖层。
// op 失败时视图不变。
func (s *WorldState) Stage(op func(w domain.World) (domain.ChangeSet, error)) (Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	view := s.viewLocked()
	cs, err := op(view)
	if err != nil {
		return 0, err
	}
	s.next++
	s.pending = append(s.pending, pending{token: s.next, changes: cs})
	s.version++
	return s.next, nil
}

// Confirm 用存储返回的变更替换 token 对应的乐观变更。
func (s *WorldState) Confirm(tok Token, server domain.ChangeSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropLocked(tok)
	s.applyLocked(server)
}

// Rollback 丢弃 token 对应的乐观变更。
func (s *WorldState) Rollback(tok Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dropLocked(tok) {
		s.version++
	}
}

// MergeTerritories 按 id 整体替换（服务器读取为准）。
func (s *WorldState) MergeTerritories(ts []domain.Territory) {
	if len(ts) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyLocked(domain.ChangeSet{Territories: ts})
}

// MergePlayers 按 id 替换，不移除其他玩家。
func (s *WorldState) MergePlayers(ps []domain.Player) {
	if len(ps) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyLocked(domain.ChangeSet{Players: ps})
}

// ReplacePlayers 用完整的玩家列表替换已确认层，不在列表里的玩家视为已被移除。
func (s *WorldState) ReplacePlayers(ps []domain.Player) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keep := make(map[domain.PlayerID]struct{}, len(ps))
	for _, p := range ps {
		keep[p.ID] = struct{}{}
	}
	cs := domain.ChangeSet{Players: ps}
	for _, p := range s.confirmed.Players() {
		if _, ok := keep[p.ID]; !ok {
			cs.RemovedPlayers = append(cs.RemovedPlayers, p.ID)
		}
	}
	s.applyLocked(cs)
}

// Reset 丢弃整个已确认层（离线期间的本地结果随之作废），pending 保留给各自的调用方收尾。
func (s *WorldState) Reset(ts []domain.Territory, ps []domain.Player) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := domain.NewMemWorld()
	w.Load(ts, ps)
	s.confirmed = w
	s.version++
}

// ApplyChange 应用一条推送消息，返回是否改变了已确认层。
func (s *WorldState) ApplyChange(ev store.ChangeEvent) bool {
	var cs domain.ChangeSet
	switch ev.Kind {
	case store.KindTerritory:
		if ev.Territory == nil {
			return false
		}
		cs.Territories = []domain.Territory{*ev.Territory}
	case store.KindPlayer:
		if ev.Player == nil {
			return false
		}
		cs.Players = []domain.Player{*ev.Player}
	case store.KindPlayerRemoved:
		cs.RemovedPlayers = []domain.PlayerID{ev.PlayerID}
	default:
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyLocked(cs)
	return true
}

// Confirmed 返回已确认层的深拷贝，用于给离线存储播种。
func (s *WorldState) Confirmed() ([]domain.Territory, []domain.Player) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.confirmed.Territories(), s.confirmed.Players()
}

// ConfirmedPlayer 只看服务器确认过的值，淘汰判定用它而不是乐观视图。
func (s *WorldState) ConfirmedPlayer(id domain.PlayerID) (domain.Player, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.confirmed.Player(id)
}

func (s *WorldState) Territory(id domain.CellID) (domain.Territory, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.pending) - 1; i >= 0; i-- {
		for _, t := range s.pending[i].changes.Territories {
			if t.ID == id {
				return t, true
			}
		}
	}
	return s.confirmed.Territory(id)
}

func (s *WorldState) Player(id domain.PlayerID) (domain.Player, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.pending) - 1; i >= 0; i-- {
		cs := s.pending[i].changes
		for _, p := range cs.Players {
			if p.ID == id {
				return p.Clone(), true
			}
		}
		for _, rid := range cs.RemovedPlayers {
			if rid == id {
				return domain.Player{}, false
			}
		}
	}
	return s.confirmed.Player(id)
}

func (s *WorldState) PendingCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pending)
}

func (s *WorldState) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

func (s *WorldState) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	view := s.viewLocked()
	ts := view.Territories()
	return Snapshot{
		Version:     s.version,
		Territories: ts,
		Players:     view.Players(),
		Pending:     len(s.pending),
	}
}

func (s *WorldState) viewLocked() *domain.MemWorld {
	view := s.confirmed.Clone()
	for _, p := range s.pending {
		view.Apply(p.changes)
	}
	return view
}

func (s *WorldState) applyLocked(cs domain.ChangeSet) {
	s.confirmed.Apply(cs)
	s.confirmed.ResetChanges()
	s.version++
}

func (s *WorldState) dropLocked(tok Token) bool {
	for i, p := range s.pending {
		if p.token == tok {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return true
		}
	}
	return false
}
