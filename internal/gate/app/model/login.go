package model

import (
	"GeoConquest/internal/conquest/domain"
	"GeoConquest/internal/conquest/grid"
)

// LoginReq 的坐标可选：不带坐标时会话使用默认锚点。
type LoginReq struct {
	Username string   `json:"username"`
	Lat      *float64 `json:"lat,omitempty"`
	Lng      *float64 `json:"lng,omitempty"`
}

type LoginResp struct {
	Player  domain.Player     `json:"player"`
	Token   string            `json:"token"`
	Mode    string            `json:"mode"`
	Anchor  grid.Coord        `json:"anchor"`
	Located bool              `json:"located"`
	Rules   domain.Rules      `json:"rules"`
	Catalog []domain.ShopItem `json:"catalog"`
}
