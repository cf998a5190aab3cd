package store

import (
	"testing"
	"time"

	"GeoConquest/internal/conquest/domain"
)

func TestFilter_Match(t *testing.T) {
	cell := domain.Territory{ID: "0.0030_0.0030", OwnerID: "user_a", Lat: 0.003, Lng: 0.003}
	if !(Filter{}).Match(cell) {
		t.Fatalf("期望空过滤器匹配全部")
	}
	if (Filter{OwnerID: "user_b"}).Match(cell) {
		t.Fatalf("期望按 owner 过滤")
	}
	if !(Filter{Bounds: BoundsAround(0, 0, 0.003, 1)}).Match(cell) {
		t.Fatalf("期望半径 1 的矩形包含相邻对角格")
	}
	if (Filter{Bounds: BoundsAround(0, 0, 0.003, 0)}).Match(cell) {
		t.Fatalf("期望半径 0 只包含中心格")
	}
	if (Filter{IDs: []domain.CellID{"x"}}).Match(cell) {
		t.Fatalf("期望按 id 过滤")
	}
}

func TestExplode_展开变更与事件(t *testing.T) {
	applied := domain.Applied{
		Changes: domain.ChangeSet{
			Territories:    []domain.Territory{{ID: "a"}, {ID: "b"}},
			Players:        []domain.Player{{ID: "user_a"}},
			RemovedPlayers: []domain.PlayerID{"user_b"},
		},
		Events: []domain.Event{{Kind: domain.EventConquered, PlayerID: "user_a"}},
	}
	got := Explode(applied, time.Unix(0, 0))
	if len(got) != 5 {
		t.Fatalf("期望 5 条, got=%d", len(got))
	}
	if got[0].Territory.ID != "a" || got[1].Territory.ID != "b" {
		t.Fatalf("期望每条消息持有独立的格子副本, got=%+v %+v", got[0].Territory, got[1].Territory)
	}
	if got[2].Kind != KindPlayerRemoved || got[4].Kind != KindEvent {
		t.Fatalf("got=%+v", got)
	}
}
