// Package store 定义权威存储的端口。
//
// 服务端的 actor runtime、gRPC 客户端和离线本地存储都实现 Store，SyncProtocol 只依赖这个接口。
package store

import (
	"context"
	"time"

	"GeoConquest/internal/conquest/domain"
)

// Filter 为空时读取全部格子。
type Filter struct {
	IDs     []domain.CellID `json:"ids,omitempty"`
	OwnerID domain.PlayerID `json:"ownerId,omitempty"`
	Bounds  *Bounds         `json:"bounds,omitempty"`
}

// Bounds 是一个经纬度闭区间矩形。
type Bounds struct {
	MinLat float64 `json:"minLat"`
	MinLng float64 `json:"minLng"`
	MaxLat float64 `json:"maxLat"`
	MaxLng float64 `json:"maxLng"`
}

func (f Filter) Match(t domain.Territory) bool {
	if f.OwnerID != "" && t.OwnerID != f.OwnerID {
		return false
	}
	if b := f.Bounds; b != nil {
		if t.Lat < b.MinLat || t.Lat > b.MaxLat || t.Lng < b.MinLng || t.Lng > b.MaxLng {
			return false
		}
	}
	if len(f.IDs) > 0 {
		for _, id := range f.IDs {
			if id == t.ID {
				return true
			}
		}
		return false
	}
	return true
}

// BoundsAround 返回以 (lat,lng) 为中心、半边长 radius 个格子的矩形。
func BoundsAround(lat, lng, cellSize float64, radius int) *Bounds {
	d := cellSize * (float64(radius) + 0.5)
	return &Bounds{MinLat: lat - d, MinLng: lng - d, MaxLat: lat + d, MaxLng: lng + d}
}

type Store interface {
	ReadTerritories(ctx context.Context, filter Filter) ([]domain.Territory, error)
	ReadPlayers(ctx context.Context) ([]domain.Player, error)
	UpsertPlayer(ctx context.Context, p domain.Player) (domain.Player, error)
	EnsureTerritories(ctx context.Context, ids []domain.CellID) ([]domain.Territory, error)
	// ClaimTerritory 仅当格子当前无主时写入 owner，否则返回冲突错误。
	ClaimTerritory(ctx context.Context, cell domain.CellID, player domain.PlayerID) (domain.ClaimReport, error)
	ResolveAttack(ctx context.Context, attacker domain.PlayerID, source, target domain.CellID, energyCost int) (domain.AttackReport, error)
	PurchaseItem(ctx context.Context, player domain.PlayerID, itemID string, cost int64) (domain.PurchaseReport, error)
	UseItem(ctx context.Context, player domain.PlayerID, itemID string, target domain.CellID) (domain.UseReport, error)
	TransferStrength(ctx context.Context, player domain.PlayerID, source, target domain.CellID, amount int) (domain.TransferReport, error)
	TickEconomy(ctx context.Context, player domain.PlayerID) (domain.TickReport, error)
	// Watch 推送行级变更与游戏事件，ctx 结束时关闭通道。
	Watch(ctx context.Context) (<-chan ChangeEvent, error)
}

type ChangeKind string

const (
	KindTerritory     ChangeKind = "territory"
	KindPlayer        ChangeKind = "player"
	KindPlayerRemoved ChangeKind = "player_removed"
	KindEvent         ChangeKind = "event"
)

// ChangeEvent 是推送通道里的一条消息，Seq 在单个存储实例内单调递增。
type ChangeEvent struct {
	Seq       uint64            `json:"seq"`
	Kind      ChangeKind        `json:"kind"`
	Territory *domain.Territory `json:"territory,omitempty"`
	Player    *domain.Player    `json:"player,omitempty"`
	PlayerID  domain.PlayerID   `json:"playerId,omitempty"`
	Event     *domain.Event     `json:"event,omitempty"`
	At        time.Time         `json:"at"`
}

// Explode 把一次操作的变更与事件展开成推送消息（Seq 由调用方填写）。
func Explode(applied domain.Applied, at time.Time) []ChangeEvent {
	cs := applied.Changes
	out := make([]ChangeEvent, 0, len(cs.Territories)+len(cs.Players)+len(cs.RemovedPlayers)+len(applied.Events))
	for i := range cs.Territories {
		t := cs.Territories[i]
		out = append(out, ChangeEvent{Kind: KindTerritory, Territory: &t, At: at})
	}
	for _, id := range cs.RemovedPlayers {
		out = append(out, ChangeEvent{Kind: KindPlayerRemoved, PlayerID: id, At: at})
	}
	for i := range cs.Players {
		p := cs.Players[i]
		out = append(out, ChangeEvent{Kind: KindPlayer, Player: &p, PlayerID: p.ID, At: at})
	}
	for i := range applied.Events {
		ev := applied.Events[i]
		out = append(out, ChangeEvent{Kind: KindEvent, Event: &ev, PlayerID: ev.PlayerID, At: at})
	}
	return out
}
