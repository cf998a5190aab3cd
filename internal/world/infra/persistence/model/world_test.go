package model

import (
	"testing"
	"time"

	"GeoConquest/internal/conquest/domain"
)

func TestPlayerDoc_背包为零的条目不落盘(t *testing.T) {
	p := domain.Player{ID: "user_a", Inventory: map[string]int{"recruit": 2, "fortify": 0}, LastSeen: time.Unix(10, 0)}
	d := PlayerToDoc(p)
	if _, ok := d.Inventory["fortify"]; ok {
		t.Fatalf("期望零数量条目被剔除, got=%v", d.Inventory)
	}
	back := DocToPlayer(d)
	if back.Inventory["recruit"] != 2 || !back.LastSeen.Equal(p.LastSeen) {
		t.Fatalf("got=%+v", back)
	}
}

func TestTerritoryDoc_中立格owner为空(t *testing.T) {
	d := TerritoryToDoc(domain.Territory{ID: "x", Strength: 5})
	if d.OwnerID != "" || DocToTerritory(d).OwnerID != "" {
		t.Fatalf("got=%+v", d)
	}
}
