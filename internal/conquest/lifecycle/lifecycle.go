// Package lifecycle 处理玩家的永久淘汰：Active → Eliminated，没有回头路。
package lifecycle

import (
	"sync"

	"GeoConquest/internal/conquest/domain"
)

type State uint8

const (
	StateActive State = iota
	StateEliminated
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateEliminated:
		return "eliminated"
	default:
		return "unknown"
	}
}

// Elimination 记录一次淘汰。
type Elimination struct {
	Player      domain.Player
	By          domain.PlayerID
	Neutralized []domain.CellID
}

// CheckElimination 在一次战斗结算之后调用：玩家已无格子则删除，并把仍指向它的格子置为中立。
// 调用方负责把它和战斗放进同一个事务。
func CheckElimination(w domain.World, id, by domain.PlayerID) (Elimination, bool) {
	if id == "" {
		return Elimination{}, false
	}
	p, ok := w.Player(id)
	if !ok {
		return Elimination{}, false
	}
	if len(w.OwnedBy(id)) > 0 {
		return Elimination{}, false
	}
	return Purge(w, p, by), true
}

// Purge 无条件删除玩家并中立化残留格子。
func Purge(w domain.World, p domain.Player, by domain.PlayerID) Elimination {
	w.DeletePlayer(p.ID)
	out := Elimination{Player: p, By: by}
	for _, t := range w.OwnedBy(p.ID) {
		t.OwnerID = ""
		if t.Strength < 1 {
			t.Strength = 1
		}
		w.PutTerritory(t)
		out.Neutralized = append(out.Neutralized, t.ID)
	}
	return out
}

// StateOf 从世界视图推导玩家状态：存在即存活。
func StateOf(w domain.World, id domain.PlayerID) State {
	if _, ok := w.Player(id); ok {
		return StateActive
	}
	return StateEliminated
}

// Tracker 是客户端会话侧的状态机。一旦进入 Eliminated 就不再离开。
type Tracker struct {
	mu       sync.Mutex
	state    State
	watchers []func(State)
}

func NewTracker() *Tracker {
	return &Tracker{state: StateActive}
}

func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Tracker) OnChange(fn func(State)) {
	t.mu.Lock()
	t.watchers = append(t.watchers, fn)
	t.mu.Unlock()
}

// Observe 用最新权威快照里玩家是否存在来推进状态机，返回本次是否发生了淘汰。
func (t *Tracker) Observe(present bool) bool {
	t.mu.Lock()
	if present || t.state == StateEliminated {
		t.mu.Unlock()
		return false
	}
	t.state = StateEliminated
	watchers := append([]func(State){}, t.watchers...)
	t.mu.Unlock()

	for _, fn := range watchers {
		fn(StateEliminated)
	}
	return true
}
