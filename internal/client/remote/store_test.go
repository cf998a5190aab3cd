package remote

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"GeoConquest/internal/conquest/domain"
	"GeoConquest/internal/conquest/engine"
	"GeoConquest/internal/conquest/store"
	transportgrpc "GeoConquest/internal/shared/transport/grpc"
	worldactor "GeoConquest/internal/world/actor"
	"GeoConquest/internal/world/infra/persistence/memory"
	"GeoConquest/internal/world/interfaces/rpc"
	"GeoConquest/modules/kit/errx"

	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"
)

func startWorld(t *testing.T) *Store {
	t.Helper()
	rt, err := worldactor.NewRuntime(memory.NewWorldRepository(), engine.New(domain.DefaultRules(), nil), worldactor.Options{})
	if err != nil {
		t.Fatalf("runtime err=%v", err)
	}
	lis := bufconn.Listen(1 << 20)
	srv := transportgrpc.NewWorldStoreServer(rpc.NewServer(rt, nil))
	go func() { _ = srv.Serve(lis) }()

	s, err := Dial("passthrough:///bufnet", nil, gogrpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	if err != nil {
		t.Fatalf("dial err=%v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
		srv.Stop()
		rt.Shutdown()
	})
	return s
}

func TestRemote_登录占领并读取(t *testing.T) {
	s := startWorld(t)
	ctx := context.Background()

	p, err := s.UpsertPlayer(ctx, domain.Player{Username: "Ana Silva"})
	if err != nil {
		t.Fatalf("upsert err=%v", err)
	}
	if p.ID != "user_ana_silva" || p.Money != domain.DefaultRules().InitialMoney {
		t.Fatalf("got=%+v", p)
	}

	rep, err := s.ClaimTerritory(ctx, "0.0000_0.0000", p.ID)
	if err != nil {
		t.Fatalf("claim err=%v", err)
	}
	if rep.Territory.OwnerID != p.ID || rep.Territory.Strength != domain.DefaultRules().ClaimStrength {
		t.Fatalf("got=%+v", rep.Territory)
	}

	ts, err := s.ReadTerritories(ctx, store.Filter{OwnerID: p.ID})
	if err != nil || len(ts) != 1 {
		t.Fatalf("期望 1 格, got=%v err=%v", ts, err)
	}
}

func TestRemote_错误分类跨进程保留(t *testing.T) {
	s := startWorld(t)
	ctx := context.Background()
	a, _ := s.UpsertPlayer(ctx, domain.Player{Username: "first"})
	b, _ := s.UpsertPlayer(ctx, domain.Player{Username: "second"})

	if _, err := s.ClaimTerritory(ctx, "0.0000_0.0000", a.ID); err != nil {
		t.Fatalf("claim err=%v", err)
	}
	_, err := s.ClaimTerritory(ctx, "0.0000_0.0000", b.ID)
	if !errors.Is(err, domain.ErrClaimRaceLost) || !errx.IsConflict(err) {
		t.Fatalf("期望抢占冲突, got=%v", err)
	}

	_, err = s.ResolveAttack(ctx, b.ID, "0.0000_0.0000", "0.0000_0.0030", domain.DefaultRules().AttackEnergyCost)
	if !errors.Is(err, domain.ErrNotOwner) || !errx.IsValidation(err) {
		t.Fatalf("期望非所有者校验错误, got=%v", err)
	}
}

func TestRemote_Watch推送(t *testing.T) {
	s := startWorld(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := s.Watch(ctx)
	if err != nil {
		t.Fatalf("watch err=%v", err)
	}
	// 等流真正建立后再写，避免订阅前的事件丢失
	deadline := time.After(3 * time.Second)
	for {
		if _, err := s.UpsertPlayer(context.Background(), domain.Player{Username: "watcher"}); err != nil {
			t.Fatalf("upsert err=%v", err)
		}
		select {
		case ev := <-ch:
			if ev.Seq == 0 {
				t.Fatalf("期望 seq>0, got=%+v", ev)
			}
			return
		case <-time.After(100 * time.Millisecond):
		case <-deadline:
			t.Fatalf("超时未收到推送")
		}
	}
}
