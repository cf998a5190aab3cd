package state

import (
	"errors"
	"testing"
	"time"

	"GeoConquest/internal/conquest/domain"
	"GeoConquest/internal/conquest/engine"
	"GeoConquest/internal/conquest/store"
)

var now = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func seeded(t *testing.T) (*WorldState, *engine.Engine, domain.Player) {
	t.Helper()
	eng := engine.New(domain.DefaultRules(), nil)
	p, err := eng.NewPlayer("alice", now)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	s := New()
	s.Reset([]domain.Territory{{ID: "0.0000_0.0000", OwnerID: p.ID, Strength: 10}}, []domain.Player{p})
	return s, eng, p
}

func purchase(eng *engine.Engine, id domain.PlayerID) func(domain.World) (domain.ChangeSet, error) {
	return func(w domain.World) (domain.ChangeSet, error) {
		rep, err := eng.Purchase(w, id, "recruit", 50, now)
		return rep.Changes, err
	}
}

func TestStage_回滚回到确认值(t *testing.T) {
	s, eng, p := seeded(t)

	tok, err := s.Stage(purchase(eng, p.ID))
	if err != nil {
		t.Fatalf("stage err=%v", err)
	}
	if got, _ := s.Player(p.ID); got.Money != 50 || got.ItemCount("recruit") != 1 {
		t.Fatalf("期望乐观视图已扣款, got=%+v", got)
	}
	s.Rollback(tok)
	if got, _ := s.Player(p.ID); got.Money != 100 || got.ItemCount("recruit") != 0 {
		t.Fatalf("期望回滚到确认值, got=%+v", got)
	}
	if s.PendingCount() != 0 {
		t.Fatalf("期望没有 pending")
	}
}

func TestStage_确认后用服务器值替换(t *testing.T) {
	s, eng, p := seeded(t)
	tok, _ := s.Stage(purchase(eng, p.ID))

	server := p.Clone()
	server.Money = 40 // 服务器在此期间还结算了别的扣款
	server.Inventory = map[string]int{"recruit": 1}
	s.Confirm(tok, domain.ChangeSet{Players: []domain.Player{server}})

	got, _ := s.Player(p.ID)
	if got.Money != 40 {
		t.Fatalf("期望以服务器值为准, got=%d", got.Money)
	}
	if c, _ := s.ConfirmedPlayer(p.ID); c.Money != 40 {
		t.Fatalf("期望已确认层更新, got=%d", c.Money)
	}
}

func TestStage_失败不改变视图(t *testing.T) {
	s, eng, p := seeded(t)
	before := s.Version()
	_, err := s.Stage(func(w domain.World) (domain.ChangeSet, error) {
		rep, err := eng.Purchase(w, p.ID, "sabotage", 200, now)
		return rep.Changes, err
	})
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("got=%v", err)
	}
	if s.Version() != before || s.PendingCount() != 0 {
		t.Fatalf("期望视图不变")
	}
}

func TestMergeTerritories_不覆盖pending覆盖层(t *testing.T) {
	s, eng, p := seeded(t)
	tok, err := s.Stage(func(w domain.World) (domain.ChangeSet, error) {
		rep, err := eng.Purchase(w, p.ID, "recruit", 50, now)
		if err != nil {
			return domain.ChangeSet{}, err
		}
		use, err := eng.UseItem(w, p.ID, "recruit", "0.0000_0.0000", now)
		return rep.Changes.Merge(use.Changes), err
	})
	if err != nil {
		t.Fatalf("stage err=%v", err)
	}
	s.MergeTerritories([]domain.Territory{{ID: "0.0000_0.0000", OwnerID: p.ID, Strength: 11}})

	if got, _ := s.Territory("0.0000_0.0000"); got.Strength != 20 {
		t.Fatalf("期望 pending 仍然在上层, got=%d", got.Strength)
	}
	s.Rollback(tok)
	if got, _ := s.Territory("0.0000_0.0000"); got.Strength != 11 {
		t.Fatalf("期望回滚后看到最新确认值, got=%d", got.Strength)
	}
}

func TestReplacePlayers_缺席玩家被移除(t *testing.T) {
	s, _, p := seeded(t)
	s.ReplacePlayers(nil)
	if _, ok := s.Player(p.ID); ok {
		t.Fatalf("期望玩家被移除")
	}
	snap := s.Snapshot()
	if len(snap.Players) != 0 || len(snap.Territories) != 1 {
		t.Fatalf("got=%+v", snap)
	}
}

func TestApplyChange_推送移除玩家(t *testing.T) {
	s, _, p := seeded(t)
	if !s.ApplyChange(store.ChangeEvent{Kind: store.KindPlayerRemoved, PlayerID: p.ID}) {
		t.Fatalf("期望应用成功")
	}
	if _, ok := s.ConfirmedPlayer(p.ID); ok {
		t.Fatalf("期望已确认层移除玩家")
	}
	if s.ApplyChange(store.ChangeEvent{Kind: store.KindEvent}) {
		t.Fatalf("事件消息不改变世界")
	}
}
