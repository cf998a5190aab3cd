package worldgen

import (
	"testing"

	"GeoConquest/internal/conquest/domain"
	"GeoConquest/internal/conquest/grid"
)

func newGen() *Generator {
	return New(grid.New(grid.DefaultCellSize), domain.DefaultRules())
}

func TestNeutralStrength_确定且在区间内(t *testing.T) {
	g := newGen()
	rules := domain.DefaultRules()
	for _, id := range g.Around(-23.5505, -46.6333, 5) {
		s := g.NeutralStrength(id)
		if s < rules.NeutralStrengthMin || s > rules.NeutralStrengthMax {
			t.Fatalf("期望兵力在 [%d,%d], got=%d", rules.NeutralStrengthMin, rules.NeutralStrengthMax, s)
		}
		if s != g.NeutralStrength(id) {
			t.Fatalf("期望同一格兵力确定")
		}
	}
}

func TestEnsure_幂等且不覆盖已有格子(t *testing.T) {
	g := newGen()
	w := domain.NewMemWorld()
	id := g.Around(1, 1, 0)[0]

	first, created, err := g.Ensure(w, id)
	if err != nil || !created {
		t.Fatalf("期望首次创建, created=%v err=%v", created, err)
	}
	if !first.Neutral() || first.Name != SectorName(id) {
		t.Fatalf("期望中立格, got=%+v", first)
	}

	first.OwnerID = "user_a"
	first.Strength = 99
	w.PutTerritory(first)

	again, created, err := g.Ensure(w, id)
	if err != nil || created {
		t.Fatalf("期望第二次不创建, created=%v err=%v", created, err)
	}
	if again.OwnerID != "user_a" || again.Strength != 99 {
		t.Fatalf("期望保持已有状态, got=%+v", again)
	}
}

func TestEnsure_非法编号(t *testing.T) {
	g := newGen()
	if _, _, err := g.Ensure(domain.NewMemWorld(), "nope"); err == nil {
		t.Fatalf("期望非法编号报错")
	}
}

func TestEnsureNeighbors_补齐四邻(t *testing.T) {
	g := newGen()
	w := domain.NewMemWorld()
	id := g.Around(0.3, 0.3, 0)[0]
	created, err := g.EnsureNeighbors(w, id)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(created) != 4 || w.TerritoryCount() != 4 {
		t.Fatalf("期望新建 4 个邻格, got=%d", len(created))
	}
	created, _ = g.EnsureNeighbors(w, id)
	if len(created) != 0 {
		t.Fatalf("期望重复调用不新建, got=%d", len(created))
	}
}
