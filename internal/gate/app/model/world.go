package model

import (
	"GeoConquest/internal/client/state"
	"GeoConquest/internal/conquest/domain"
)

// WorldView 是推给客户端的只读快照。
type WorldView struct {
	Version     uint64             `json:"version"`
	Mode        string             `json:"mode"`
	Lifecycle   string             `json:"lifecycle"`
	Me          *domain.Player     `json:"me,omitempty"`
	Territories []domain.Territory `json:"territories"`
	Players     []domain.Player    `json:"players"`
	Pending     int                `json:"pending"`
}

func NewWorldView(snap state.Snapshot, mode, lifecycle string, me *domain.Player) WorldView {
	return WorldView{
		Version:     snap.Version,
		Mode:        mode,
		Lifecycle:   lifecycle,
		Me:          me,
		Territories: snap.Territories,
		Players:     snap.Players,
		Pending:     snap.Pending,
	}
}

// Push 是服务端主动推送的消息体。
type Push struct {
	Kind  string        `json:"kind"`
	World *WorldView    `json:"world,omitempty"`
	Event *domain.Event `json:"event,omitempty"`
	Mode  string        `json:"mode,omitempty"`
}
