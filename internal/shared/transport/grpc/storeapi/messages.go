package storeapi

import (
	"GeoConquest/internal/conquest/domain"
	"GeoConquest/internal/conquest/store"
)

type ReadTerritoriesRequest struct {
	Filter store.Filter `json:"filter"`
}

type ReadTerritoriesResponse struct {
	Territories []domain.Territory `json:"territories"`
}

type ReadPlayersRequest struct{}

type ReadPlayersResponse struct {
	Players []domain.Player `json:"players"`
}

type UpsertPlayerRequest struct {
	Player domain.Player `json:"player"`
}

type UpsertPlayerResponse struct {
	Player domain.Player `json:"player"`
}

type EnsureTerritoriesRequest struct {
	IDs []domain.CellID `json:"ids"`
}

type EnsureTerritoriesResponse struct {
	Territories []domain.Territory `json:"territories"`
}

type ClaimRequest struct {
	Cell   domain.CellID   `json:"cell"`
	Player domain.PlayerID `json:"player"`
}

type ClaimResponse struct {
	Report domain.ClaimReport `json:"report"`
}

type AttackRequest struct {
	Attacker   domain.PlayerID `json:"attacker"`
	Source     domain.CellID   `json:"source"`
	Target     domain.CellID   `json:"target"`
	EnergyCost int             `json:"energyCost"`
}

type AttackResponse struct {
	Report domain.AttackReport `json:"report"`
}

type PurchaseRequest struct {
	Player domain.PlayerID `json:"player"`
	ItemID string          `json:"itemId"`
	Cost   int64           `json:"cost"`
}

type PurchaseResponse struct {
	Report domain.PurchaseReport `json:"report"`
}

type UseItemRequest struct {
	Player domain.PlayerID `json:"player"`
	ItemID string          `json:"itemId"`
	Target domain.CellID   `json:"target,omitempty"`
}

type UseItemResponse struct {
	Report domain.UseReport `json:"report"`
}

type TransferRequest struct {
	Player domain.PlayerID `json:"player"`
	Source domain.CellID   `json:"source"`
	Target domain.CellID   `json:"target"`
	Amount int             `json:"amount"`
}

type TransferResponse struct {
	Report domain.TransferReport `json:"report"`
}

type TickRequest struct {
	Player domain.PlayerID `json:"player"`
}

type TickResponse struct {
	Report domain.TickReport `json:"report"`
}

type WatchRequest struct{}
