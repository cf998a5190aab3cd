package inventory

import (
	"errors"
	"testing"
	"time"

	"GeoConquest/internal/conquest/domain"
	"GeoConquest/internal/conquest/grid"
	"GeoConquest/internal/conquest/worldgen"
)

var now = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

const (
	mine   domain.CellID = "0.0000_0.0000"
	theirs domain.CellID = "0.0000_0.0030"
	empty  domain.CellID = "0.0030_0.0000"
)

func setup(money int64, inv map[string]int) (*Engine, *domain.MemWorld) {
	rules := domain.DefaultRules()
	e := New(rules, domain.DefaultCatalog(), worldgen.New(grid.New(rules.CellSize), rules))
	w := domain.NewMemWorld()
	w.Load([]domain.Territory{
		{ID: mine, OwnerID: "user_a", Strength: 10},
		{ID: theirs, OwnerID: "user_b", Strength: 10},
		{ID: empty, Strength: 8},
	}, []domain.Player{
		{ID: "user_a", Username: "a", Money: money, Energy: 80, MaxEnergy: 100, Inventory: inv},
		{ID: "user_b", Username: "b"},
	})
	return e, w
}

func TestPurchase_恰好够钱(t *testing.T) {
	e, w := setup(50, nil)
	rep, err := e.Purchase(w, "user_a", "recruit", now)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if rep.Money != 0 || rep.Count != 1 {
		t.Fatalf("got=%+v", rep)
	}
	p, _ := w.Player("user_a")
	if p.Money != 0 || p.Inventory["recruit"] != 1 {
		t.Fatalf("got=%+v", p)
	}
}

func TestPurchase_钱不够不改状态(t *testing.T) {
	e, w := setup(49, nil)
	_, err := e.Purchase(w, "user_a", "recruit", now)
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("got=%v", err)
	}
	if w.HasChanges() {
		t.Fatalf("期望无变更")
	}
}

func TestPurchase_未知道具(t *testing.T) {
	e, w := setup(1000, nil)
	if _, err := e.Purchase(w, "user_a", "nuke", now); !errors.Is(err, domain.ErrUnknownItem) {
		t.Fatalf("got=%v", err)
	}
}

func TestUse_己方道具用在非己方格被拒且不消耗(t *testing.T) {
	for _, target := range []domain.CellID{theirs, empty} {
		e, w := setup(0, map[string]int{"recruit": 1})
		_, err := e.Use(w, "user_a", "recruit", target, now)
		if !errors.Is(err, domain.ErrTargetNotEligible) {
			t.Fatalf("target=%s got=%v", target, err)
		}
		p, _ := w.Player("user_a")
		if p.Inventory["recruit"] != 1 || w.HasChanges() {
			t.Fatalf("期望库存不变, got=%+v", p.Inventory)
		}
	}
}

func TestUse_增兵(t *testing.T) {
	e, w := setup(0, map[string]int{"recruit": 2})
	rep, err := e.Use(w, "user_a", "recruit", mine, now)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	c, _ := w.Territory(mine)
	p, _ := w.Player("user_a")
	if rep.Effect != 10 || c.Strength != 20 || p.Inventory["recruit"] != 1 {
		t.Fatalf("rep=%+v cell=%+v inv=%v", rep, c, p.Inventory)
	}
}

func TestUse_破坏兵力不低于1(t *testing.T) {
	e, w := setup(0, map[string]int{"sabotage": 1})
	rep, err := e.Use(w, "user_a", "sabotage", theirs, now)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	c, _ := w.Territory(theirs)
	if c.Strength != 1 || rep.Effect != -9 || c.OwnerID != "user_b" {
		t.Fatalf("期望敌格保留 1 兵且不易主, got=%+v", c)
	}
	p, _ := w.Player("user_a")
	if _, left := p.Inventory["sabotage"]; left {
		t.Fatalf("期望用完后条目删除, got=%v", p.Inventory)
	}
}

func TestUse_敌方格效果正负号都按削弱处理(t *testing.T) {
	rules := domain.DefaultRules()
	for _, effect := range []int{-15, 15} {
		cat := domain.NewCatalog(domain.ShopItem{ID: "sabotage", Name: "Sabotage", Cost: 200, Target: domain.TargetEnemyTerritory, Effect: effect})
		e := New(rules, cat, worldgen.New(grid.New(rules.CellSize), rules))
		w := domain.NewMemWorld()
		w.Load([]domain.Territory{
			{ID: mine, OwnerID: "user_a", Strength: 10},
			{ID: theirs, OwnerID: "user_b", Strength: 40},
		}, []domain.Player{
			{ID: "user_a", Username: "a", Inventory: map[string]int{"sabotage": 1}},
			{ID: "user_b", Username: "b"},
		})
		rep, err := e.Use(w, "user_a", "sabotage", theirs, now)
		if err != nil {
			t.Fatalf("effect=%d err=%v", effect, err)
		}
		c, _ := w.Territory(theirs)
		if c.Strength != 25 || rep.Effect != -15 {
			t.Fatalf("effect=%d 期望敌格 40→25, got=%d rep=%+v", effect, c.Strength, rep)
		}
	}
}

func TestUse_破坏不能用在自己格(t *testing.T) {
	e, w := setup(0, map[string]int{"sabotage": 1})
	if _, err := e.Use(w, "user_a", "sabotage", mine, now); !errors.Is(err, domain.ErrTargetNotEligible) {
		t.Fatalf("got=%v", err)
	}
}

func TestUse_能量封顶但道具仍消耗(t *testing.T) {
	e, w := setup(0, map[string]int{"energy_cell": 1})
	rep, err := e.Use(w, "user_a", "energy_cell", "", now)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	p, _ := w.Player("user_a")
	if p.Energy != 100 || rep.Effect != 20 || p.Inventory["energy_cell"] != 0 {
		t.Fatalf("rep=%+v player=%+v", rep, p)
	}
}

func TestUse_没有道具(t *testing.T) {
	e, w := setup(0, nil)
	if _, err := e.Use(w, "user_a", "recruit", mine, now); !errors.Is(err, domain.ErrItemNotOwned) {
		t.Fatalf("got=%v", err)
	}
}

func TestUse_缺少目标(t *testing.T) {
	e, w := setup(0, map[string]int{"recruit": 1})
	if _, err := e.Use(w, "user_a", "recruit", "", now); !errors.Is(err, domain.ErrTargetNotEligible) {
		t.Fatalf("got=%v", err)
	}
}
