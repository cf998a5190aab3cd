package domain

import (
	"fmt"
	"time"
)

type EventKind string

const (
	EventJoined     EventKind = "joined"
	EventClaimed    EventKind = "claimed"
	EventConquered  EventKind = "conquered"
	EventRepelled   EventKind = "repelled"
	EventEliminated EventKind = "eliminated"
	EventPurchased  EventKind = "purchased"
	EventItemUsed   EventKind = "item_used"
	EventReinforced EventKind = "reinforced"
)

// Event 是对外广播的游戏事件（聊天栏里的系统消息）。
type Event struct {
	ID        string    `json:"id,omitempty"`
	Kind      EventKind `json:"kind"`
	PlayerID  PlayerID  `json:"playerId,omitempty"`
	TargetID  PlayerID  `json:"targetId,omitempty"`
	CellID    CellID    `json:"cellId,omitempty"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

func ConqueredEvent(attacker Player, cell Territory, previous PlayerID) Event {
	return Event{
		Kind:     EventConquered,
		PlayerID: attacker.ID,
		TargetID: previous,
		CellID:   cell.ID,
		Text:     fmt.Sprintf("%s conquered %s", attacker.Username, cell.Name),
	}
}

func RepelledEvent(attacker Player, cell Territory) Event {
	return Event{
		Kind:     EventRepelled,
		PlayerID: attacker.ID,
		TargetID: cell.OwnerID,
		CellID:   cell.ID,
		Text:     fmt.Sprintf("%s failed to take %s", attacker.Username, cell.Name),
	}
}

func EliminatedEvent(p Player, by PlayerID) Event {
	return Event{
		Kind:     EventEliminated,
		PlayerID: p.ID,
		TargetID: by,
		Text:     fmt.Sprintf("%s has been eliminated", p.Username),
	}
}

// Applied 是一次成功操作写出的变更与事件。
type Applied struct {
	Changes ChangeSet `json:"changes"`
	Events  []Event   `json:"events,omitempty"`
}

type ClaimReport struct {
	Applied
	Territory Territory `json:"territory"`
}

// AttackReport 描述一次已执行的攻击；Won=false 也是成功执行（守方守住）。
type AttackReport struct {
	Applied
	Won          bool       `json:"won"`
	Message      string     `json:"message"`
	AttackPower  int        `json:"attackPower"`
	DefensePower int        `json:"defensePower"`
	Source       Territory  `json:"source"`
	Target       Territory  `json:"target"`
	Eliminated   []PlayerID `json:"eliminated,omitempty"`
}

type PurchaseReport struct {
	Applied
	Item  ShopItem `json:"item"`
	Money int64    `json:"money"`
	Count int      `json:"count"`
}

type UseReport struct {
	Applied
	Item    ShopItem `json:"item"`
	Effect  int      `json:"appliedEffect"`
	Message string   `json:"message"`
}

type TransferReport struct {
	Applied
	Moved  int       `json:"moved"`
	Source Territory `json:"source"`
	Target Territory `json:"target"`
}

type TickReport struct {
	Applied
	Ticks  int   `json:"ticks"`
	Income int64 `json:"income"`
	Energy int   `json:"energy"`
}
