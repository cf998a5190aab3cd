package messages

import (
	"GeoConquest/internal/conquest/domain"
	"GeoConquest/internal/conquest/store"
)

// WorldMessage 是发给 world actor 的请求。每个请求都会收到一个 *Reply。
type WorldMessage interface {
	PlayerID() domain.PlayerID
}

type WorldBaseMessage struct {
	Player domain.PlayerID
}

func (w WorldBaseMessage) PlayerID() domain.PlayerID {
	return w.Player
}

type ReadTerritories struct {
	WorldBaseMessage
	Filter store.Filter
}

type ReadPlayers struct {
	WorldBaseMessage
}

type UpsertPlayer struct {
	WorldBaseMessage
	Profile domain.Player
}

type EnsureTerritories struct {
	WorldBaseMessage
	IDs []domain.CellID
}

type ClaimTerritory struct {
	WorldBaseMessage
	Cell domain.CellID
}

type ResolveAttack struct {
	WorldBaseMessage
	Source     domain.CellID
	Target     domain.CellID
	EnergyCost int
}

type PurchaseItem struct {
	WorldBaseMessage
	ItemID string
	Cost   int64
}

type UseItem struct {
	WorldBaseMessage
	ItemID string
	Target domain.CellID
}

type TransferStrength struct {
	WorldBaseMessage
	Source domain.CellID
	Target domain.CellID
	Amount int
}

type TickEconomy struct {
	WorldBaseMessage
}

// Reply 是 world actor 的统一应答。Err 为 nil 时 Value 是对应操作的结果。
type Reply struct {
	Value any
	Err   error
}
