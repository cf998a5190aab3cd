package local

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"GeoConquest/internal/conquest/domain"
	"GeoConquest/internal/conquest/engine"
	"GeoConquest/internal/conquest/store"
)

var fixed = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func newStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return fixed })}, opts...)
	return New(engine.New(domain.DefaultRules(), nil), opts...)
}

func TestStore_离线操作走同一套规则(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	p, err := s.UpsertPlayer(ctx, domain.Player{Username: "offline"})
	if err != nil {
		t.Fatalf("upsert err=%v", err)
	}
	if _, err := s.ClaimTerritory(ctx, "0.0000_0.0000", p.ID); err != nil {
		t.Fatalf("claim err=%v", err)
	}
	if _, err := s.PurchaseItem(ctx, p.ID, "sabotage", 200); !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("期望余额不足, got=%v", err)
	}
	rep, err := s.PurchaseItem(ctx, p.ID, "recruit", 50)
	if err != nil || rep.Money != 50 {
		t.Fatalf("purchase rep=%+v err=%v", rep, err)
	}
	ts, _ := s.ReadTerritories(ctx, store.Filter{OwnerID: p.ID})
	if len(ts) != 1 {
		t.Fatalf("期望 1 格, got=%d", len(ts))
	}
	all, _ := s.ReadTerritories(ctx, store.Filter{})
	if len(all) != 5 {
		t.Fatalf("期望占领格加四个邻居, got=%d", len(all))
	}
}

func TestStore_Watch按序推送(t *testing.T) {
	s := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	ch, _ := s.Watch(ctx)

	if _, err := s.UpsertPlayer(context.Background(), domain.Player{Username: "w"}); err != nil {
		t.Fatalf("err=%v", err)
	}
	first := <-ch
	second := <-ch
	if first.Kind != store.KindPlayer || second.Kind != store.KindEvent || second.Seq != first.Seq+1 {
		t.Fatalf("got first=%+v second=%+v", first, second)
	}
	cancel()
	for range ch {
	}
}

func TestCache_重开后恢复离线世界(t *testing.T) {
	path := filepath.Join(t.TempDir(), "offline.db")
	cache, err := OpenCache(path)
	if err != nil {
		t.Fatalf("open err=%v", err)
	}
	s := newStore(t, WithCache(cache))
	ctx := context.Background()

	seedPlayer := domain.Player{ID: "user_seed", Username: "seed", Color: "#ff0000", Money: 70, Energy: 40, MaxEnergy: 100,
		Inventory: map[string]int{"fortify": 2}, LastSeen: fixed, LastTick: fixed}
	seedCell := domain.Territory{ID: "0.0000_0.0000", Name: "Sector 0.0000:0.0000", OwnerID: "user_seed", Strength: 12}
	if err := s.Seed(ctx, []domain.Territory{seedCell}, []domain.Player{seedPlayer}); err != nil {
		t.Fatalf("seed err=%v", err)
	}
	if _, err := s.UseItem(ctx, "user_seed", "fortify", "0.0000_0.0000"); err != nil {
		t.Fatalf("use err=%v", err)
	}
	if err := cache.Close(); err != nil {
		t.Fatalf("close err=%v", err)
	}

	reopened, err := OpenCache(path)
	if err != nil {
		t.Fatalf("reopen err=%v", err)
	}
	defer reopened.Close()
	s2 := newStore(t, WithCache(reopened))
	if err := s2.Restore(ctx); err != nil {
		t.Fatalf("restore err=%v", err)
	}
	ts, _ := s2.ReadTerritories(ctx, store.Filter{IDs: []domain.CellID{"0.0000_0.0000"}})
	if len(ts) != 1 || ts[0].Strength != 37 {
		t.Fatalf("期望强化后的兵力 37, got=%+v", ts)
	}
	ps, _ := s2.ReadPlayers(ctx)
	if len(ps) != 1 || ps[0].ItemCount("fortify") != 1 || !ps[0].LastTick.Equal(fixed) {
		t.Fatalf("got=%+v", ps)
	}
}
