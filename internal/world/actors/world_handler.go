package actors

import (
	"GeoConquest/internal/conquest/domain"
	"GeoConquest/internal/shared/actor/messages"

	"github.com/asynkron/protoactor-go/actor"
)

type WorldHandler struct{}

var WH = &WorldHandler{}

func (h *WorldHandler) HandleReadTerritories(ctx actor.Context, w *WorldActor, req messages.ReadTerritories) {
	var out []domain.Territory
	if len(req.Filter.IDs) > 0 {
		for _, id := range req.Filter.IDs {
			if t, ok := w.world.Territory(id); ok && req.Filter.Match(t) {
				out = append(out, t)
			}
		}
	} else {
		for _, t := range w.world.Territories() {
			if req.Filter.Match(t) {
				out = append(out, t)
			}
		}
	}
	ctx.Respond(ok(out))
}

func (h *WorldHandler) HandleReadPlayers(ctx actor.Context, w *WorldActor, req messages.ReadPlayers) {
	ctx.Respond(ok(w.world.Players()))
}

func (h *WorldHandler) HandleUpsertPlayer(ctx actor.Context, w *WorldActor, req messages.UpsertPlayer) {
	p, applied, err := w.deps.Engine.UpsertPlayer(w.world, req.Profile, w.now())
	if err != nil {
		ctx.Respond(fail(err))
		return
	}
	w.publish(ctx, applied)
	ctx.Respond(ok(p))
}

func (h *WorldHandler) HandleEnsureTerritories(ctx actor.Context, w *WorldActor, req messages.EnsureTerritories) {
	ts, applied, err := w.deps.Engine.EnsureTerritories(w.world, req.IDs)
	if err != nil {
		ctx.Respond(fail(err))
		return
	}
	w.publish(ctx, applied)
	ctx.Respond(ok(ts))
}

func (h *WorldHandler) HandleClaimTerritory(ctx actor.Context, w *WorldActor, req messages.ClaimTerritory) {
	rep, err := w.deps.Engine.Claim(w.world, req.Cell, req.Player, w.now())
	if err != nil {
		ctx.Respond(fail(err))
		return
	}
	w.publish(ctx, rep.Applied)
	ctx.Respond(ok(rep))
}

func (h *WorldHandler) HandleResolveAttack(ctx actor.Context, w *WorldActor, req messages.ResolveAttack) {
	rep, err := w.deps.Engine.Attack(w.world, req.Player, req.Source, req.Target, req.EnergyCost, w.now())
	if err != nil {
		ctx.Respond(fail(err))
		return
	}
	w.publish(ctx, rep.Applied)
	ctx.Respond(ok(rep))
}

func (h *WorldHandler) HandlePurchaseItem(ctx actor.Context, w *WorldActor, req messages.PurchaseItem) {
	rep, err := w.deps.Engine.Purchase(w.world, req.Player, req.ItemID, req.Cost, w.now())
	if err != nil {
		ctx.Respond(fail(err))
		return
	}
	w.publish(ctx, rep.Applied)
	ctx.Respond(ok(rep))
}

func (h *WorldHandler) HandleUseItem(ctx actor.Context, w *WorldActor, req messages.UseItem) {
	rep, err := w.deps.Engine.UseItem(w.world, req.Player, req.ItemID, req.Target, w.now())
	if err != nil {
		ctx.Respond(fail(err))
		return
	}
	w.publish(ctx, rep.Applied)
	ctx.Respond(ok(rep))
}

func (h *WorldHandler) HandleTransferStrength(ctx actor.Context, w *WorldActor, req messages.TransferStrength) {
	rep, err := w.deps.Engine.Transfer(w.world, req.Player, req.Source, req.Target, req.Amount, w.now())
	if err != nil {
		ctx.Respond(fail(err))
		return
	}
	w.publish(ctx, rep.Applied)
	ctx.Respond(ok(rep))
}

func (h *WorldHandler) HandleTickEconomy(ctx actor.Context, w *WorldActor, req messages.TickEconomy) {
	rep, err := w.deps.Engine.TickEconomy(w.world, req.Player, w.now())
	if err != nil {
		ctx.Respond(fail(err))
		return
	}
	w.publish(ctx, rep.Applied)
	ctx.Respond(ok(rep))
}

func ok(v any) *messages.Reply {
	return &messages.Reply{Value: v}
}

func fail(err error) *messages.Reply {
	return &messages.Reply{Err: err}
}
