// Package domain 定义征服游戏的核心数据模型与可变世界视图。
package domain

import (
	"strings"
	"time"
	"unicode"
)

// PlayerID 形如 "user_alice"，由用户名确定性生成。
type PlayerID string

// CellID 是格子编号，见 grid.Grid.CellID。
type CellID string

// Territory 是一个格子的持久化状态。OwnerID 为空表示中立。
type Territory struct {
	ID       CellID   `json:"id"`
	Name     string   `json:"name"`
	OwnerID  PlayerID `json:"ownerId,omitempty"`
	Strength int      `json:"strength"`
	Lat      float64  `json:"lat"`
	Lng      float64  `json:"lng"`
}

func (t Territory) Neutral() bool {
	return t.OwnerID == ""
}

func (t Territory) OwnedBy(id PlayerID) bool {
	return id != "" && t.OwnerID == id
}

// Player 是玩家账户状态。只要存在就是存活的，淘汰即删除。
type Player struct {
	ID        PlayerID       `json:"id"`
	Username  string         `json:"username"`
	Color     string         `json:"color"`
	Money     int64          `json:"money"`
	Energy    int            `json:"energy"`
	MaxEnergy int            `json:"maxEnergy"`
	Inventory map[string]int `json:"inventory,omitempty"`
	LastSeen  time.Time      `json:"lastSeen"`
	// LastTick 是最近一次结算经济的时间点，用来让 tick 幂等。
	LastTick time.Time `json:"lastTick"`
}

// Clone 深拷贝（inventory 是 map）。
func (p Player) Clone() Player {
	if p.Inventory != nil {
		inv := make(map[string]int, len(p.Inventory))
		for k, v := range p.Inventory {
			if v > 0 {
				inv[k] = v
			}
		}
		p.Inventory = inv
	}
	return p
}

func (p Player) ItemCount(itemID string) int {
	return p.Inventory[itemID]
}

// PlayerIDFor 把用户名规整为玩家 id：空白折叠成下划线并转小写。
func PlayerIDFor(username string) PlayerID {
	return PlayerID("user_" + strings.ToLower(strings.Join(strings.Fields(username), "_")))
}

// NormalizeUsername 去掉首尾空白；只接受字母、数字、'_'、'-' 与中间的空白，
// 玩家 id 会被用作文件名和存储 key，路径分隔符与 "." 一律拒绝。
func NormalizeUsername(username string) (string, bool) {
	u := strings.TrimSpace(username)
	if u == "" || len(u) > 32 {
		return "", false
	}
	for _, r := range u {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_', r == '-', unicode.IsSpace(r):
		default:
			return "", false
		}
	}
	return u, true
}
