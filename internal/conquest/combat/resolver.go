package combat

import (
	"time"

	"GeoConquest/internal/conquest/domain"
	"GeoConquest/internal/conquest/grid"
	"GeoConquest/internal/conquest/lifecycle"
	"GeoConquest/internal/conquest/worldgen"
)

type Attack struct {
	AttackerID domain.PlayerID
	SourceID   domain.CellID
	TargetID   domain.CellID
}

type Resolver struct {
	rules domain.Rules
	gen   *worldgen.Generator
}

func NewResolver(rules domain.Rules, gen *worldgen.Generator) *Resolver {
	return &Resolver{rules: rules, gen: gen}
}

func (r *Resolver) grid() grid.Grid {
	return r.gen.Grid()
}

// Validate 检查攻击的全部前置条件，不修改世界。
func (r *Resolver) Validate(w domain.World, a Attack) (domain.Player, domain.Territory, domain.Territory, error) {
	var (
		attacker       domain.Player
		source, target domain.Territory
	)
	srcID, err := r.gen.Canonical(a.SourceID)
	if err != nil {
		return attacker, source, target, err
	}
	tgtID, err := r.gen.Canonical(a.TargetID)
	if err != nil {
		return attacker, source, target, err
	}
	var ok bool
	if source, ok = w.Territory(srcID); !ok {
		return attacker, source, target, domain.ErrTerritoryNotFound.WithData("cell", string(srcID))
	}
	if target, ok = w.Territory(tgtID); !ok {
		return attacker, source, target, domain.ErrTerritoryNotFound.WithData("cell", string(tgtID))
	}
	if attacker, ok = w.Player(a.AttackerID); !ok {
		return attacker, source, target, domain.ErrPlayerNotFound.WithData("player", string(a.AttackerID))
	}
	if !source.OwnedBy(attacker.ID) {
		return attacker, source, target, domain.ErrNotOwner.WithData("cell", string(srcID))
	}
	if target.OwnedBy(attacker.ID) {
		return attacker, source, target, domain.ErrAlreadyOwned.WithData("cell", string(tgtID))
	}
	if !r.grid().Adjacent(string(srcID), string(tgtID)) {
		return attacker, source, target, domain.ErrNotAdjacent.WithData("source", string(srcID)).WithData("target", string(tgtID))
	}
	if source.Strength <= 1 {
		return attacker, source, target, domain.ErrInsufficientStrength.WithData("strength", source.Strength)
	}
	if attacker.Energy < r.rules.AttackEnergyCost {
		return attacker, source, target, domain.ErrInsufficientEnergy.WithData("energy", attacker.Energy)
	}
	return attacker, source, target, nil
}

// Resolve 校验并结算一次攻击，直接写入 w。w 应该是一个 Tx，出错时整体丢弃。
func (r *Resolver) Resolve(w domain.World, a Attack, now time.Time) (domain.AttackReport, error) {
	attacker, source, target, err := r.Validate(w, a)
	if err != nil {
		return domain.AttackReport{}, err
	}

	res := Compute(source.Strength, target.Strength, r.rules.DefenseBonus, r.rules.Retaliation)
	previous := target.OwnerID

	attacker.Energy -= r.rules.AttackEnergyCost
	attacker.LastSeen = now
	w.PutPlayer(attacker)

	source.Strength = res.SourceAfter
	target.Strength = res.TargetAfter
	if res.Won {
		target.OwnerID = attacker.ID
	}
	w.PutTerritory(source)
	w.PutTerritory(target)

	report := domain.AttackReport{
		Won:          res.Won,
		AttackPower:  res.AttackPower,
		DefensePower: res.DefensePower,
		Source:       source,
		Target:       target,
	}

	if !res.Won {
		report.Message = "Defenders held " + target.Name
		report.Events = append(report.Events, stamp(domain.RepelledEvent(attacker, target), now))
		return report, nil
	}

	report.Message = "Conquered " + target.Name
	if _, err := r.gen.EnsureNeighbors(w, target.ID); err != nil {
		return domain.AttackReport{}, err
	}
	report.Events = append(report.Events, stamp(domain.ConqueredEvent(attacker, target, previous), now))

	if e, eliminated := lifecycle.CheckElimination(w, previous, attacker.ID); eliminated {
		report.Eliminated = append(report.Eliminated, e.Player.ID)
		report.Events = append(report.Events, stamp(domain.EliminatedEvent(e.Player, attacker.ID), now))
	}
	return report, nil
}

func stamp(ev domain.Event, now time.Time) domain.Event {
	ev.CreatedAt = now
	return ev
}
