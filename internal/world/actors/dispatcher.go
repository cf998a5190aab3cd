package actors

import (
	"reflect"

	"GeoConquest/internal/shared/actor/messages"
	"GeoConquest/modules/kit/errx"

	"github.com/asynkron/protoactor-go/actor"
)

type Dispatcher struct {
	handlers map[reflect.Type]Handler
}

type Handler struct {
	fn      reflect.Value
	reqType reflect.Type
}

func NewDispatcher() *Dispatcher {
	d := &Dispatcher{
		handlers: make(map[reflect.Type]Handler),
	}
	d.registerAll()
	return d
}

func (d *Dispatcher) registerAll() {
	register(d, WH.HandleReadTerritories)
	register(d, WH.HandleReadPlayers)
	register(d, WH.HandleUpsertPlayer)
	register(d, WH.HandleEnsureTerritories)
	register(d, WH.HandleClaimTerritory)
	register(d, WH.HandleResolveAttack)
	register(d, WH.HandlePurchaseItem)
	register(d, WH.HandleUseItem)
	register(d, WH.HandleTransferStrength)
	register(d, WH.HandleTickEconomy)
}

func register[Req any](
	d *Dispatcher,
	fn func(ctx actor.Context, w *WorldActor, req Req),
) {
	reqType := reflect.TypeOf((*Req)(nil)).Elem()
	if reqType == nil {
		panic("dispatcher req type cannot be nil")
	}

	d.handlers[reqType] = Handler{
		fn:      reflect.ValueOf(fn),
		reqType: reqType,
	}
}

func (d *Dispatcher) Dispatch(ctx actor.Context, w *WorldActor, req messages.WorldMessage) {
	if req == nil {
		ctx.Respond(fail(errx.ErrReqParamERR.WithMsg("nil request")))
		return
	}

	bodyType := reflect.TypeOf(req)
	handler, ok := d.handlers[bodyType]
	if !ok {
		ctx.Respond(fail(errx.ErrInternal.WithMsg("no handler for request").WithData("type", bodyType.String())))
		return
	}

	handler.fn.Call([]reflect.Value{
		reflect.ValueOf(ctx),
		reflect.ValueOf(w),
		reflect.ValueOf(req),
	})
}
