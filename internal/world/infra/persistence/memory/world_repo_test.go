package memory

import (
	"context"
	"testing"

	"GeoConquest/internal/conquest/domain"
	"GeoConquest/internal/world/entity"
)

func TestSave_删除玩家后重新装载(t *testing.T) {
	r := NewWorldRepository()
	ctx := context.Background()
	_ = r.Save(ctx, &entity.WorldPersistSnapshot{Version: 1, Changes: domain.ChangeSet{
		Territories: []domain.Territory{{ID: "a", OwnerID: "user_a", Strength: 3}},
		Players:     []domain.Player{{ID: "user_a"}, {ID: "user_b"}},
	}})
	_ = r.Save(ctx, &entity.WorldPersistSnapshot{Version: 2, Changes: domain.ChangeSet{
		RemovedPlayers: []domain.PlayerID{"user_b"},
	}})

	w, err := r.LoadWorld(ctx)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(w.Players()) != 1 || w.TerritoryCount() != 1 || w.Dirty() {
		t.Fatalf("players=%d territories=%d dirty=%v", len(w.Players()), w.TerritoryCount(), w.Dirty())
	}
	if r.Saves() != 2 {
		t.Fatalf("got=%d", r.Saves())
	}
}
