// Package engine 是所有写操作的唯一入口。
//
// 服务端的 world actor、离线模式的本地存储、客户端的乐观预测都调用同一套方法，
// 每个方法都在 domain.Tx 里执行：校验失败时直接丢弃缓冲，世界保持原样；成功后一次性提交。
package engine

import (
	"math/rand/v2"
	"time"

	"GeoConquest/internal/conquest/combat"
	"GeoConquest/internal/conquest/domain"
	"GeoConquest/internal/conquest/economy"
	"GeoConquest/internal/conquest/grid"
	"GeoConquest/internal/conquest/inventory"
	"GeoConquest/internal/conquest/worldgen"
)

// Palette 是新玩家随机分配的显示颜色。
var Palette = []string{"#0aff00", "#00f3ff", "#ff003c", "#eab308", "#ec4899", "#8b5cf6", "#ffffff", "#f97316"}

type Engine struct {
	rules     domain.Rules
	grid      grid.Grid
	gen       *worldgen.Generator
	combat    *combat.Resolver
	economy   *economy.Engine
	inventory *inventory.Engine
}

func New(rules domain.Rules, catalog *domain.Catalog) *Engine {
	g := grid.New(rules.CellSize)
	gen := worldgen.New(g, rules)
	if catalog == nil {
		catalog = domain.DefaultCatalog()
	}
	return &Engine{
		rules:     rules,
		grid:      g,
		gen:       gen,
		combat:    combat.NewResolver(rules, gen),
		economy:   economy.New(rules),
		inventory: inventory.New(rules, catalog, gen),
	}
}

func (e *Engine) Rules() domain.Rules {
	return e.rules
}

func (e *Engine) Grid() grid.Grid {
	return e.grid
}

func (e *Engine) Generator() *worldgen.Generator {
	return e.gen
}

func (e *Engine) Catalog() *domain.Catalog {
	return e.inventory.Catalog()
}

// NewPlayer 构造一个首次登录的玩家（尚未写入世界）。
func (e *Engine) NewPlayer(username string, now time.Time) (domain.Player, error) {
	name, ok := domain.NormalizeUsername(username)
	if !ok {
		return domain.Player{}, domain.ErrInvalidUsername
	}
	return domain.Player{
		ID:        domain.PlayerIDFor(name),
		Username:  name,
		Color:     Palette[rand.IntN(len(Palette))],
		Money:     e.rules.InitialMoney,
		Energy:    e.rules.InitialEnergy,
		MaxEnergy: e.rules.MaxEnergy,
		LastSeen:  now,
		LastTick:  now,
	}, nil
}

// UpsertPlayer 登录时调用：已存在则只刷新 LastSeen（以及客户端传来的颜色），否则按初始值创建。
func (e *Engine) UpsertPlayer(w domain.World, in domain.Player, now time.Time) (domain.Player, domain.Applied, error) {
	tx := domain.Begin(w)
	p, created, err := e.upsertPlayer(tx, in, now)
	if err != nil {
		return domain.Player{}, domain.Applied{}, err
	}
	var applied domain.Applied
	if created {
		applied.Events = []domain.Event{{Kind: domain.EventJoined, PlayerID: p.ID, Text: p.Username + " joined the war", CreatedAt: now}}
	}
	applied.Changes = tx.Commit()
	return p, applied, nil
}

func (e *Engine) upsertPlayer(w domain.World, in domain.Player, now time.Time) (domain.Player, bool, error) {
	name, ok := domain.NormalizeUsername(in.Username)
	if !ok {
		return domain.Player{}, false, domain.ErrInvalidUsername
	}
	id := domain.PlayerIDFor(name)
	if in.ID != "" && in.ID != id {
		return domain.Player{}, false, domain.ErrInvalidUsername.WithMsg("player id does not match username")
	}
	if existing, ok := w.Player(id); ok {
		existing.LastSeen = now
		if in.Color != "" {
			existing.Color = in.Color
		}
		w.PutPlayer(existing)
		return existing, false, nil
	}
	p, err := e.NewPlayer(name, now)
	if err != nil {
		return domain.Player{}, false, err
	}
	if in.Color != "" {
		p.Color = in.Color
	}
	w.PutPlayer(p)
	return p, true, nil
}

// EnsureTerritories 幂等地落地一批格子，返回它们的当前状态（顺序与入参一致，重复 id 只返回一次）。
func (e *Engine) EnsureTerritories(w domain.World, ids []domain.CellID) ([]domain.Territory, domain.Applied, error) {
	tx := domain.Begin(w)
	out := make([]domain.Territory, 0, len(ids))
	seen := make(map[domain.CellID]struct{}, len(ids))
	for _, id := range ids {
		t, _, err := e.gen.Ensure(tx, id)
		if err != nil {
			return nil, domain.Applied{}, err
		}
		if _, dup := seen[t.ID]; dup {
			continue
		}
		seen[t.ID] = struct{}{}
		out = append(out, t)
	}
	return out, domain.Applied{Changes: tx.Commit()}, nil
}

// Claim 首次占领：只有名下没有任何格子的玩家可以占领，且仅当格子当前无主。
func (e *Engine) Claim(w domain.World, cell domain.CellID, id domain.PlayerID, now time.Time) (domain.ClaimReport, error) {
	tx := domain.Begin(w)
	p, ok := tx.Player(id)
	if !ok {
		return domain.ClaimReport{}, domain.ErrPlayerNotFound.WithData("player", string(id))
	}
	t, _, err := e.gen.Ensure(tx, cell)
	if err != nil {
		return domain.ClaimReport{}, err
	}
	switch {
	case t.OwnedBy(id):
		return domain.ClaimReport{}, domain.ErrAlreadyOwned.WithData("cell", string(t.ID))
	case !t.Neutral():
		return domain.ClaimReport{}, domain.ErrClaimRaceLost.WithData("cell", string(t.ID)).WithData("owner", string(t.OwnerID))
	case len(tx.OwnedBy(id)) > 0:
		return domain.ClaimReport{}, domain.ErrClaimNotAllowed
	}

	t.OwnerID = id
	t.Strength = e.rules.ClaimStrength
	tx.PutTerritory(t)
	if _, err := e.gen.EnsureNeighbors(tx, t.ID); err != nil {
		return domain.ClaimReport{}, err
	}
	p.LastSeen = now
	tx.PutPlayer(p)

	rep := domain.ClaimReport{Territory: t}
	rep.Events = []domain.Event{{
		Kind: domain.EventClaimed, PlayerID: id, CellID: t.ID,
		Text: p.Username + " established a base at " + t.Name, CreatedAt: now,
	}}
	rep.Changes = tx.Commit()
	return rep, nil
}

// Attack 执行一次攻击。energyCost 是调用方认为的能量消耗，与规则不一致说明客户端规则过期。
func (e *Engine) Attack(w domain.World, attacker domain.PlayerID, source, target domain.CellID, energyCost int, now time.Time) (domain.AttackReport, error) {
	if energyCost != e.rules.AttackEnergyCost {
		return domain.AttackReport{}, domain.ErrStaleRules.WithData("energyCost", energyCost)
	}
	tx := domain.Begin(w)
	rep, err := e.combat.Resolve(tx, combat.Attack{AttackerID: attacker, SourceID: source, TargetID: target}, now)
	if err != nil {
		return domain.AttackReport{}, err
	}
	rep.Changes = tx.Commit()
	return rep, nil
}

// Purchase 购买一件道具。cost 是调用方看到的价格，与目录不一致说明客户端目录过期。
func (e *Engine) Purchase(w domain.World, id domain.PlayerID, itemID string, cost int64, now time.Time) (domain.PurchaseReport, error) {
	if item, ok := e.Catalog().Get(itemID); ok && item.Cost != cost {
		return domain.PurchaseReport{}, domain.ErrStaleRules.WithData("item", itemID).WithData("cost", cost)
	}
	tx := domain.Begin(w)
	rep, err := e.inventory.Purchase(tx, id, itemID, now)
	if err != nil {
		return domain.PurchaseReport{}, err
	}
	rep.Changes = tx.Commit()
	return rep, nil
}

func (e *Engine) UseItem(w domain.World, id domain.PlayerID, itemID string, target domain.CellID, now time.Time) (domain.UseReport, error) {
	tx := domain.Begin(w)
	rep, err := e.inventory.Use(tx, id, itemID, target, now)
	if err != nil {
		return domain.UseReport{}, err
	}
	rep.Changes = tx.Commit()
	return rep, nil
}

func (e *Engine) Transfer(w domain.World, id domain.PlayerID, source, target domain.CellID, amount int, now time.Time) (domain.TransferReport, error) {
	tx := domain.Begin(w)
	rep, err := e.combat.Transfer(tx, combat.Transfer{PlayerID: id, SourceID: source, TargetID: target, Amount: amount}, now)
	if err != nil {
		return domain.TransferReport{}, err
	}
	rep.Changes = tx.Commit()
	return rep, nil
}

func (e *Engine) TickEconomy(w domain.World, id domain.PlayerID, now time.Time) (domain.TickReport, error) {
	tx := domain.Begin(w)
	rep, err := e.economy.Tick(tx, id, now)
	if err != nil {
		return domain.TickReport{}, err
	}
	rep.Changes = tx.Commit()
	return rep, nil
}
