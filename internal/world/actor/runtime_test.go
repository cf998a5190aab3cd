package actor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"GeoConquest/internal/conquest/domain"
	"GeoConquest/internal/conquest/engine"
	"GeoConquest/internal/conquest/store"
	"GeoConquest/internal/world/infra/persistence/memory"
	"GeoConquest/modules/kit/errx"
)

func newRuntime(t *testing.T) (*Runtime, *memory.WorldRepository) {
	t.Helper()
	repo := memory.NewWorldRepository()
	r, err := NewRuntime(repo, engine.New(domain.DefaultRules(), nil), Options{AskTimeout: 2 * time.Second, FlushEvery: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewRuntime err=%v", err)
	}
	t.Cleanup(r.Shutdown)
	return r, repo
}

func mustLogin(t *testing.T, r *Runtime, name string) domain.Player {
	t.Helper()
	p, err := r.UpsertPlayer(context.Background(), domain.Player{Username: name})
	if err != nil {
		t.Fatalf("login %s err=%v", name, err)
	}
	return p
}

func TestClaimTerritory_并发抢占只有一个成功(t *testing.T) {
	r, _ := newRuntime(t)
	ctx := context.Background()

	const n = 8
	players := make([]domain.Player, n)
	for i := range players {
		players[i] = mustLogin(t, r, string(rune('a'+i)))
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	for _, p := range players {
		wg.Add(1)
		go func(id domain.PlayerID) {
			defer wg.Done()
			_, err := r.ClaimTerritory(ctx, "0.0000_0.0000", id)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errx.IsConflict(err):
				conflicts++
			default:
				t.Errorf("unexpected err=%v", err)
			}
		}(p.ID)
	}
	wg.Wait()

	if wins != 1 || conflicts != n-1 {
		t.Fatalf("期望恰好一个成功, wins=%d conflicts=%d", wins, conflicts)
	}
}

func TestResolveAttack_夺走最后一格后读不到玩家(t *testing.T) {
	r, _ := newRuntime(t)
	ctx := context.Background()
	a := mustLogin(t, r, "attacker")
	b := mustLogin(t, r, "victim")

	if _, err := r.ClaimTerritory(ctx, "0.0000_0.0000", a.ID); err != nil {
		t.Fatalf("claim a err=%v", err)
	}
	if _, err := r.ClaimTerritory(ctx, "0.0000_0.0030", b.ID); err != nil {
		t.Fatalf("claim b err=%v", err)
	}
	// 给攻方加兵，保证一击必胜
	if _, err := r.PurchaseItem(ctx, a.ID, "recruit", 50); err != nil {
		t.Fatalf("purchase err=%v", err)
	}
	if _, err := r.UseItem(ctx, a.ID, "recruit", "0.0000_0.0000"); err != nil {
		t.Fatalf("use err=%v", err)
	}
	// 10+10=20 兵 → 攻 19，守 floor(10*1.2)=12
	rep, err := r.ResolveAttack(ctx, a.ID, "0.0000_0.0000", "0.0000_0.0030", domain.DefaultRules().AttackEnergyCost)
	if err != nil {
		t.Fatalf("attack err=%v", err)
	}
	if !rep.Won || len(rep.Eliminated) != 1 {
		t.Fatalf("期望胜利并淘汰对手, got=%+v", rep)
	}

	players, err := r.ReadPlayers(ctx)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	for _, p := range players {
		if p.ID == b.ID {
			t.Fatalf("期望被淘汰玩家已删除")
		}
	}
	ts, _ := r.ReadTerritories(ctx, store.Filter{OwnerID: b.ID})
	if len(ts) != 0 {
		t.Fatalf("期望没有格子指向被淘汰玩家, got=%+v", ts)
	}
}

func TestValidationError_原样透传(t *testing.T) {
	r, _ := newRuntime(t)
	a := mustLogin(t, r, "broke")
	_, err := r.PurchaseItem(context.Background(), a.ID, "sabotage", 200)
	if !errors.Is(err, domain.ErrInsufficientFunds) || !errx.IsValidation(err) {
		t.Fatalf("got=%v", err)
	}
}

func TestWatch_推送变更与事件(t *testing.T) {
	r, _ := newRuntime(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := r.Watch(ctx)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	a := mustLogin(t, r, "watcher")
	if _, err := r.ClaimTerritory(context.Background(), "0.0300_0.0300", a.ID); err != nil {
		t.Fatalf("claim err=%v", err)
	}

	deadline := time.After(2 * time.Second)
	var sawClaim bool
	var lastSeq uint64
	for !sawClaim {
		select {
		case ev := <-ch:
			if ev.Seq <= lastSeq {
				t.Fatalf("期望 seq 递增, last=%d got=%d", lastSeq, ev.Seq)
			}
			lastSeq = ev.Seq
			if ev.Kind == store.KindEvent && ev.Event.Kind == domain.EventClaimed {
				if ev.Event.ID == "" {
					t.Fatalf("期望事件带 id")
				}
				sawClaim = true
			}
		case <-deadline:
			t.Fatalf("超时未收到占领事件")
		}
	}

	cancel()
	for range ch {
	}
}

func TestFlush_定时写回仓库(t *testing.T) {
	r, repo := newRuntime(t)
	mustLogin(t, r, "saver")
	deadline := time.Now().Add(2 * time.Second)
	for repo.Saves() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("期望定时写回")
		}
		time.Sleep(20 * time.Millisecond)
	}
}
