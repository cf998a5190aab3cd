package engine

import (
	"errors"
	"testing"
	"time"

	"GeoConquest/internal/conquest/domain"
	"GeoConquest/modules/kit/errx"
)

var now = time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

func login(t *testing.T, e *Engine, w domain.World, name string) domain.Player {
	t.Helper()
	p, _, err := e.UpsertPlayer(w, domain.Player{Username: name}, now)
	if err != nil {
		t.Fatalf("login %s err=%v", name, err)
	}
	return p
}

func TestUpsertPlayer_首次创建_再次登录保留资产(t *testing.T) {
	e := New(domain.DefaultRules(), nil)
	w := domain.NewMemWorld()

	p, applied, err := e.UpsertPlayer(w, domain.Player{Username: " Alice  Smith "}, now)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if p.ID != "user_alice_smith" || p.Money != 100 || p.Energy != 100 || p.Color == "" {
		t.Fatalf("got=%+v", p)
	}
	if len(applied.Events) != 1 || applied.Events[0].Kind != domain.EventJoined {
		t.Fatalf("期望首次登录产生 joined 事件, got=%+v", applied.Events)
	}

	p.Money = 7
	w.PutPlayer(p)
	later := now.Add(time.Hour)
	again, applied, err := e.UpsertPlayer(w, domain.Player{Username: "alice smith"}, later)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if again.Money != 7 || !again.LastSeen.Equal(later) || len(applied.Events) != 0 {
		t.Fatalf("期望保留资产并刷新 lastSeen, got=%+v", again)
	}
}

func TestUpsertPlayer_用户名非法(t *testing.T) {
	e := New(domain.DefaultRules(), nil)
	if _, _, err := e.UpsertPlayer(domain.NewMemWorld(), domain.Player{Username: "  "}, now); !errors.Is(err, domain.ErrInvalidUsername) {
		t.Fatalf("got=%v", err)
	}
}

func TestEnsureTerritories_去重且规范化(t *testing.T) {
	e := New(domain.DefaultRules(), nil)
	w := domain.NewMemWorld()
	ts, applied, err := e.EnsureTerritories(w, []domain.CellID{"0.0030_0.0000", "0.003_0", "0.0000_0.0000"})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(ts) != 2 || len(applied.Changes.Territories) != 2 {
		t.Fatalf("期望 2 个格子, got=%+v", ts)
	}
	_, applied, _ = e.EnsureTerritories(w, []domain.CellID{"0.0000_0.0000"})
	if !applied.Changes.Empty() {
		t.Fatalf("期望重复 ensure 无变更, got=%+v", applied.Changes)
	}
}

func TestClaim_设兵力并扩张(t *testing.T) {
	e := New(domain.DefaultRules(), nil)
	w := domain.NewMemWorld()
	a := login(t, e, w, "a")

	rep, err := e.Claim(w, "0.0000_0.0000", a.ID, now)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if rep.Territory.OwnerID != a.ID || rep.Territory.Strength != 10 {
		t.Fatalf("got=%+v", rep.Territory)
	}
	if w.TerritoryCount() != 5 {
		t.Fatalf("期望落地自身与四邻, got=%d", w.TerritoryCount())
	}
}

func TestClaim_抢占失败为冲突错误(t *testing.T) {
	e := New(domain.DefaultRules(), nil)
	w := domain.NewMemWorld()
	a := login(t, e, w, "a")
	b := login(t, e, w, "b")

	if _, err := e.Claim(w, "0.0000_0.0000", a.ID, now); err != nil {
		t.Fatalf("err=%v", err)
	}
	_, err := e.Claim(w, "0.0000_0.0000", b.ID, now)
	if !errors.Is(err, domain.ErrClaimRaceLost) || !errx.IsConflict(err) {
		t.Fatalf("期望冲突错误, got=%v", err)
	}
}

func TestClaim_已有领地不允许再占(t *testing.T) {
	e := New(domain.DefaultRules(), nil)
	w := domain.NewMemWorld()
	a := login(t, e, w, "a")
	if _, err := e.Claim(w, "0.0000_0.0000", a.ID, now); err != nil {
		t.Fatalf("err=%v", err)
	}
	if _, err := e.Claim(w, "0.0300_0.0300", a.ID, now); !errors.Is(err, domain.ErrClaimNotAllowed) {
		t.Fatalf("got=%v", err)
	}
	if _, err := e.Claim(w, "0.0000_0.0000", a.ID, now); !errors.Is(err, domain.ErrAlreadyOwned) {
		t.Fatalf("got=%v", err)
	}
}

func TestAttack_规则过期(t *testing.T) {
	e := New(domain.DefaultRules(), nil)
	_, err := e.Attack(domain.NewMemWorld(), "user_a", "0.0000_0.0000", "0.0000_0.0030", 3, now)
	if !errors.Is(err, domain.ErrStaleRules) {
		t.Fatalf("got=%v", err)
	}
}

func TestAttack_失败时世界不变(t *testing.T) {
	e := New(domain.DefaultRules(), nil)
	w := domain.NewMemWorld()
	a := login(t, e, w, "a")
	if _, err := e.Claim(w, "0.0000_0.0000", a.ID, now); err != nil {
		t.Fatalf("err=%v", err)
	}
	w.ResetChanges()

	_, err := e.Attack(w, a.ID, "0.0000_0.0000", "0.0060_0.0000", e.Rules().AttackEnergyCost, now)
	if err == nil {
		t.Fatalf("期望目标不存在或不相邻被拒")
	}
	if w.HasChanges() {
		t.Fatalf("期望无部分效果, got=%+v", w.Changes())
	}
}

func TestAttack_全流程(t *testing.T) {
	e := New(domain.DefaultRules(), nil)
	w := domain.NewMemWorld()
	a := login(t, e, w, "a")
	if _, err := e.Claim(w, "0.0000_0.0000", a.ID, now); err != nil {
		t.Fatalf("err=%v", err)
	}
	rep, err := e.Attack(w, a.ID, "0.0000_0.0000", "0.0000_0.0030", e.Rules().AttackEnergyCost, now)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(rep.Changes.Players) != 1 || len(rep.Changes.Territories) < 2 {
		t.Fatalf("期望报告携带提交的变更, got=%+v", rep.Changes)
	}
}

func TestPurchase_价格过期(t *testing.T) {
	e := New(domain.DefaultRules(), nil)
	w := domain.NewMemWorld()
	a := login(t, e, w, "a")
	if _, err := e.Purchase(w, a.ID, "recruit", 10, now); !errors.Is(err, domain.ErrStaleRules) {
		t.Fatalf("got=%v", err)
	}
	rep, err := e.Purchase(w, a.ID, "recruit", 50, now)
	if err != nil || rep.Money != 50 {
		t.Fatalf("rep=%+v err=%v", rep, err)
	}
}

func TestClaim_日界线与极点附近(t *testing.T) {
	e := New(domain.DefaultRules(), nil)
	w := domain.NewMemWorld()

	around := e.Generator().Around(-16.8, 179.999, 3)
	if _, _, err := e.EnsureTerritories(w, around); err != nil {
		t.Fatalf("日界线附近初始化网格 err=%v", err)
	}

	a := login(t, e, w, "a")
	rep, err := e.Claim(w, "-16.8000_180.0000", a.ID, now)
	if err != nil {
		t.Fatalf("日界线占领 err=%v", err)
	}
	if rep.Territory.ID != "-16.8000_-180.0000" {
		t.Fatalf("期望编号归一到 -180, got=%s", rep.Territory.ID)
	}
	if _, ok := w.Territory("-16.8000_179.9970"); !ok {
		t.Fatalf("期望跨日界线的邻格已落地")
	}

	b := login(t, e, w, "b")
	before := w.TerritoryCount()
	if _, err := e.Claim(w, "90.0000_9.9990", b.ID, now); err != nil {
		t.Fatalf("极点占领 err=%v", err)
	}
	if got := w.TerritoryCount() - before; got != 4 {
		t.Fatalf("期望极点格与三个邻格落地, got=%d", got)
	}
}
