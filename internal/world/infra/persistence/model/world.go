package model

import (
	"time"

	"GeoConquest/internal/conquest/domain"
)

// TerritoryDoc 是 territories 集合/表的一行。
type TerritoryDoc struct {
	ID       string  `bson:"_id" gorm:"column:id;primaryKey;size:64"`
	Name     string  `bson:"name" gorm:"column:name;size:64"`
	OwnerID  string  `bson:"owner_id,omitempty" gorm:"column:owner_id;size:64;index"`
	Strength int     `bson:"strength" gorm:"column:strength"`
	Lat      float64 `bson:"lat" gorm:"column:lat"`
	Lng      float64 `bson:"lng" gorm:"column:lng"`
}

func (TerritoryDoc) TableName() string { return "territories" }

// PlayerDoc 是 players 集合/表的一行，背包以嵌套 map（MySQL 为 JSON 列）保存。
type PlayerDoc struct {
	ID        string         `bson:"_id" gorm:"column:id;primaryKey;size:64"`
	Username  string         `bson:"username" gorm:"column:username;size:64"`
	Color     string         `bson:"color" gorm:"column:color;size:16"`
	Money     int64          `bson:"money" gorm:"column:money"`
	Energy    int            `bson:"energy" gorm:"column:energy"`
	MaxEnergy int            `bson:"max_energy" gorm:"column:max_energy"`
	Inventory map[string]int `bson:"inventory,omitempty" gorm:"column:inventory;type:text;serializer:json"`
	LastSeen  time.Time      `bson:"last_seen" gorm:"column:last_seen"`
	LastTick  time.Time      `bson:"last_tick" gorm:"column:last_tick"`
}

func (PlayerDoc) TableName() string { return "players" }

func TerritoryToDoc(t domain.Territory) TerritoryDoc {
	return TerritoryDoc{
		ID:       string(t.ID),
		Name:     t.Name,
		OwnerID:  string(t.OwnerID),
		Strength: t.Strength,
		Lat:      t.Lat,
		Lng:      t.Lng,
	}
}

func DocToTerritory(d TerritoryDoc) domain.Territory {
	return domain.Territory{
		ID:       domain.CellID(d.ID),
		Name:     d.Name,
		OwnerID:  domain.PlayerID(d.OwnerID),
		Strength: d.Strength,
		Lat:      d.Lat,
		Lng:      d.Lng,
	}
}

func PlayerToDoc(p domain.Player) PlayerDoc {
	p = p.Clone()
	return PlayerDoc{
		ID:        string(p.ID),
		Username:  p.Username,
		Color:     p.Color,
		Money:     p.Money,
		Energy:    p.Energy,
		MaxEnergy: p.MaxEnergy,
		Inventory: p.Inventory,
		LastSeen:  p.LastSeen.UTC(),
		LastTick:  p.LastTick.UTC(),
	}
}

func DocToPlayer(d PlayerDoc) domain.Player {
	return domain.Player{
		ID:        domain.PlayerID(d.ID),
		Username:  d.Username,
		Color:     d.Color,
		Money:     d.Money,
		Energy:    d.Energy,
		MaxEnergy: d.MaxEnergy,
		Inventory: d.Inventory,
		LastSeen:  d.LastSeen,
		LastTick:  d.LastTick,
	}.Clone()
}
