package economy

import (
	"errors"
	"testing"
	"time"

	"GeoConquest/internal/conquest/domain"
)

var t0 = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func world(energy int, cells ...domain.Territory) *domain.MemWorld {
	w := domain.NewMemWorld()
	w.Load(cells, []domain.Player{{ID: "user_a", Energy: energy, MaxEnergy: 100, LastTick: t0}})
	return w
}

func TestTick_收入与增长(t *testing.T) {
	e := New(domain.DefaultRules())
	w := world(50,
		domain.Territory{ID: "a", OwnerID: "user_a", Strength: 19},
		domain.Territory{ID: "b", OwnerID: "user_a", Strength: 39},
		domain.Territory{ID: "c", OwnerID: "user_b", Strength: 7},
	)

	rep, err := e.Tick(w, "user_a", t0.Add(10*time.Second))
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	// 增长后 20+40=60，收入 2*5 + floor(60*0.05)=13
	if rep.Ticks != 1 || rep.Income != 13 || rep.Energy != 10 {
		t.Fatalf("got=%+v", rep)
	}
	a, _ := w.Territory("a")
	c, _ := w.Territory("c")
	if a.Strength != 20 || c.Strength != 7 {
		t.Fatalf("期望只增长自己的格子 a=%d c=%d", a.Strength, c.Strength)
	}
	p, _ := w.Player("user_a")
	if p.Money != 13 || p.Energy != 60 {
		t.Fatalf("got=%+v", p)
	}
}

func TestTick_幂等(t *testing.T) {
	e := New(domain.DefaultRules())
	w := world(0, domain.Territory{ID: "a", OwnerID: "user_a", Strength: 10})
	at := t0.Add(25 * time.Second)

	first, _ := e.Tick(w, "user_a", at)
	second, _ := e.Tick(w, "user_a", at)
	if first.Ticks != 2 || second.Ticks != 0 {
		t.Fatalf("期望同一时刻重复调用不重复结算 first=%+v second=%+v", first, second)
	}
	p, _ := w.Player("user_a")
	if !p.LastTick.Equal(t0.Add(20 * time.Second)) {
		t.Fatalf("期望 LastTick 只前进整数周期, got=%v", p.LastTick)
	}
	third, _ := e.Tick(w, "user_a", t0.Add(30*time.Second))
	if third.Ticks != 1 {
		t.Fatalf("期望余下 5s 与后续 5s 凑满一个周期, got=%+v", third)
	}
}

func TestTick_上限裁剪(t *testing.T) {
	e := New(domain.DefaultRules())
	w := world(98, domain.Territory{ID: "a", OwnerID: "user_a", Strength: 5000})
	if _, err := e.Tick(w, "user_a", t0.Add(10*time.Second)); err != nil {
		t.Fatalf("err=%v", err)
	}
	a, _ := w.Territory("a")
	p, _ := w.Player("user_a")
	if a.Strength != 5000 || p.Energy != 100 {
		t.Fatalf("期望兵力与能量封顶 strength=%d energy=%d", a.Strength, p.Energy)
	}
}

func TestTick_无领地按生存速率回能(t *testing.T) {
	e := New(domain.DefaultRules())
	w := world(0)
	rep, _ := e.Tick(w, "user_a", t0.Add(10*time.Second))
	if rep.Income != 0 || rep.Energy != 2 {
		t.Fatalf("got=%+v", rep)
	}
}

func TestTick_首次只记录时间点(t *testing.T) {
	e := New(domain.DefaultRules())
	w := domain.NewMemWorld()
	w.Load(nil, []domain.Player{{ID: "user_a"}})
	rep, err := e.Tick(w, "user_a", t0)
	if err != nil || rep.Ticks != 0 {
		t.Fatalf("rep=%+v err=%v", rep, err)
	}
	p, _ := w.Player("user_a")
	if !p.LastTick.Equal(t0) {
		t.Fatalf("got=%v", p.LastTick)
	}
}

func TestTick_玩家不存在(t *testing.T) {
	e := New(domain.DefaultRules())
	_, err := e.Tick(domain.NewMemWorld(), "user_x", t0)
	if !errors.Is(err, domain.ErrPlayerNotFound) {
		t.Fatalf("got=%v", err)
	}
}
