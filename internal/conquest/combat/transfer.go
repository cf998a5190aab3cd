package combat

import (
	"time"

	"GeoConquest/internal/conquest/domain"
)

type Transfer struct {
	PlayerID domain.PlayerID
	SourceID domain.CellID
	TargetID domain.CellID
	Amount   int
}

// Transfer 在两个相邻的己方格子之间调动兵力。源格至少保留 1，目标格超出上限的部分不会移动。
func (r *Resolver) Transfer(w domain.World, t Transfer, now time.Time) (domain.TransferReport, error) {
	srcID, err := r.gen.Canonical(t.SourceID)
	if err != nil {
		return domain.TransferReport{}, err
	}
	tgtID, err := r.gen.Canonical(t.TargetID)
	if err != nil {
		return domain.TransferReport{}, err
	}
	p, ok := w.Player(t.PlayerID)
	if !ok {
		return domain.TransferReport{}, domain.ErrPlayerNotFound.WithData("player", string(t.PlayerID))
	}
	source, ok := w.Territory(srcID)
	if !ok {
		return domain.TransferReport{}, domain.ErrTerritoryNotFound.WithData("cell", string(srcID))
	}
	target, ok := w.Territory(tgtID)
	if !ok {
		return domain.TransferReport{}, domain.ErrTerritoryNotFound.WithData("cell", string(tgtID))
	}
	if !source.OwnedBy(p.ID) {
		return domain.TransferReport{}, domain.ErrNotOwner.WithData("cell", string(srcID))
	}
	if !target.OwnedBy(p.ID) {
		return domain.TransferReport{}, domain.ErrNotOwner.WithData("cell", string(tgtID))
	}
	if !r.grid().Adjacent(string(srcID), string(tgtID)) {
		return domain.TransferReport{}, domain.ErrNotAdjacent.WithData("source", string(srcID)).WithData("target", string(tgtID))
	}
	if t.Amount < 1 || t.Amount > source.Strength-1 {
		return domain.TransferReport{}, domain.ErrInvalidAmount.WithData("amount", t.Amount).WithData("available", source.Strength-1)
	}
	moved := t.Amount
	if headroom := r.rules.MaxStrength - target.Strength; moved > headroom {
		moved = headroom
	}
	if moved <= 0 {
		return domain.TransferReport{}, domain.ErrInvalidAmount.WithMsg("target sector is at maximum strength")
	}

	source.Strength -= moved
	target.Strength += moved
	w.PutTerritory(source)
	w.PutTerritory(target)
	p.LastSeen = now
	w.PutPlayer(p)

	return domain.TransferReport{
		Applied: domain.Applied{Events: []domain.Event{{
			Kind:      domain.EventReinforced,
			PlayerID:  p.ID,
			CellID:    target.ID,
			Text:      p.Username + " reinforced " + target.Name,
			CreatedAt: now,
		}}},
		Moved:  moved,
		Source: source,
		Target: target,
	}, nil
}
