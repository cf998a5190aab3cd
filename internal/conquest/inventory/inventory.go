// Package inventory 处理道具购买与使用。
package inventory

import (
	"fmt"
	"time"

	"GeoConquest/internal/conquest/domain"
	"GeoConquest/internal/conquest/worldgen"
)

type Engine struct {
	rules   domain.Rules
	catalog *domain.Catalog
	gen     *worldgen.Generator
}

func New(rules domain.Rules, catalog *domain.Catalog, gen *worldgen.Generator) *Engine {
	return &Engine{rules: rules, catalog: catalog, gen: gen}
}

func (e *Engine) Catalog() *domain.Catalog {
	return e.catalog
}

// Purchase 扣钱并把道具数量加一；钱不够时什么都不改。
func (e *Engine) Purchase(w domain.World, id domain.PlayerID, itemID string, now time.Time) (domain.PurchaseReport, error) {
	item, ok := e.catalog.Get(itemID)
	if !ok {
		return domain.PurchaseReport{}, domain.ErrUnknownItem.WithData("item", itemID)
	}
	p, ok := w.Player(id)
	if !ok {
		return domain.PurchaseReport{}, domain.ErrPlayerNotFound.WithData("player", string(id))
	}
	if p.Money < item.Cost {
		return domain.PurchaseReport{}, domain.ErrInsufficientFunds.WithData("money", p.Money).WithData("cost", item.Cost)
	}
	p.Money -= item.Cost
	if p.Inventory == nil {
		p.Inventory = make(map[string]int, 1)
	}
	p.Inventory[item.ID]++
	p.LastSeen = now
	w.PutPlayer(p)

	return domain.PurchaseReport{
		Applied: domain.Applied{Events: []domain.Event{{
			Kind:      domain.EventPurchased,
			PlayerID:  p.ID,
			Text:      fmt.Sprintf("%s bought %s", p.Username, item.Name),
			CreatedAt: now,
		}}},
		Item:  item,
		Money: p.Money,
		Count: p.Inventory[item.ID],
	}, nil
}

// Use 消耗一个道具并作用到目标上。
//
// 目标不合规时整个操作被拒绝、道具不消耗；目标合规后道具一定被消耗，即便效果被上下限裁剪成 0。
func (e *Engine) Use(w domain.World, id domain.PlayerID, itemID string, target domain.CellID, now time.Time) (domain.UseReport, error) {
	item, ok := e.catalog.Get(itemID)
	if !ok {
		return domain.UseReport{}, domain.ErrUnknownItem.WithData("item", itemID)
	}
	p, ok := w.Player(id)
	if !ok {
		return domain.UseReport{}, domain.ErrPlayerNotFound.WithData("player", string(id))
	}
	if p.ItemCount(item.ID) <= 0 {
		return domain.UseReport{}, domain.ErrItemNotOwned.WithData("item", item.ID)
	}

	var cell domain.Territory
	if item.Target.NeedsTerritory() {
		if target == "" {
			return domain.UseReport{}, domain.ErrTargetNotEligible.WithMsg("this item needs a target sector")
		}
		cid, err := e.gen.Canonical(target)
		if err != nil {
			return domain.UseReport{}, err
		}
		if cell, ok = w.Territory(cid); !ok {
			return domain.UseReport{}, domain.ErrTerritoryNotFound.WithData("cell", string(cid))
		}
		switch item.Target {
		case domain.TargetOwnedTerritory:
			if !cell.OwnedBy(p.ID) {
				return domain.UseReport{}, domain.ErrTargetNotEligible.WithData("cell", string(cid)).WithMsg("you can only use this on your own sector")
			}
		case domain.TargetEnemyTerritory:
			if cell.OwnedBy(p.ID) {
				return domain.UseReport{}, domain.ErrTargetNotEligible.WithData("cell", string(cid)).WithMsg("you cannot use this on your own sector")
			}
		}
	}

	p.Inventory[item.ID]--
	if p.Inventory[item.ID] <= 0 {
		delete(p.Inventory, item.ID)
	}
	p.LastSeen = now

	rep := domain.UseReport{Item: item}
	switch item.Target {
	case domain.TargetSelf:
		before := p.Energy
		p.Energy = clamp(p.Energy+item.Effect, 0, p.MaxEnergy)
		rep.Effect = p.Energy - before
		rep.Message = fmt.Sprintf("%s: energy %+d", item.Name, rep.Effect)
	case domain.TargetOwnedTerritory:
		before := cell.Strength
		cell.Strength = clamp(cell.Strength+item.Effect, 1, e.rules.MaxStrength)
		rep.Effect = cell.Strength - before
		rep.Message = fmt.Sprintf("%s: %s strength %+d", item.Name, cell.Name, rep.Effect)
		w.PutTerritory(cell)
	case domain.TargetEnemyTerritory:
		before := cell.Strength
		cell.Strength = clamp(cell.Strength-magnitude(item.Effect), 1, e.rules.MaxStrength)
		rep.Effect = cell.Strength - before
		rep.Message = fmt.Sprintf("%s: %s strength %+d", item.Name, cell.Name, rep.Effect)
		w.PutTerritory(cell)
	}
	w.PutPlayer(p)

	ev := domain.Event{
		Kind:      domain.EventItemUsed,
		PlayerID:  p.ID,
		CellID:    cell.ID,
		TargetID:  cell.OwnerID,
		Text:      fmt.Sprintf("%s used %s", p.Username, item.Name),
		CreatedAt: now,
	}
	if cell.ID != "" {
		ev.Text += " on " + cell.Name
	}
	rep.Events = append(rep.Events, ev)
	return rep, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// magnitude 对敌方格只看幅度，目录里写 -15 还是 15 都是削弱。
func magnitude(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
