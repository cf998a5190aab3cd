package actors

import (
	"context"
	"time"

	"GeoConquest/internal/conquest/domain"
	"GeoConquest/internal/conquest/engine"
	"GeoConquest/internal/conquest/store"
	"GeoConquest/internal/shared/actor/messages"
	"GeoConquest/internal/shared/utils"
	"GeoConquest/internal/world/app/port"
	"GeoConquest/internal/world/dc"
	"GeoConquest/internal/world/entity"
	"GeoConquest/modules/kit/errx"
	"GeoConquest/modules/kit/logx"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

type State int

const (
	None State = iota
	Init
	Online
	Offline
	Stopping
)

// Deps 是 world actor 的依赖，由 runtime 组装。
type Deps struct {
	Repo       port.WorldRepository
	Engine     *engine.Engine
	IDs        *utils.Snowflake
	Log        logx.Logger
	FlushEvery time.Duration
	Clock      func() time.Time
}

// WorldActor 是世界状态的唯一写者：所有写操作在它的邮箱里串行执行，
// 因此一次攻击涉及的两个格子、一个玩家与可能的淘汰在外部看来是原子的。
type WorldActor struct {
	state      State
	deps       Deps
	dc         *dc.WorldDC
	world      *entity.World
	dispatcher *Dispatcher
	flushStop  chan struct{}
	seq        uint64
}

type flushTick struct{}

func (flushTick) NotInfluenceReceiveTimeout() {}

func NewWorldActor(deps Deps) *WorldActor {
	if deps.Log == nil {
		deps.Log = logx.Nop()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &WorldActor{
		state:      None,
		deps:       deps,
		dc:         dc.NewWorldDC(deps.Repo, dc.WithFlushEvery(deps.FlushEvery), dc.WithLogger(deps.Log)),
		dispatcher: NewDispatcher(),
	}
}

func (w *WorldActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		w.state = Init
		w.init(ctx)
		return
	case *actor.Stopping:
		w.stopFlushLoop()
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if w.world != nil {
			if err := w.dc.FlushSync(closeCtx); err != nil {
				w.deps.Log.Error("world final flush failed", zap.Error(err))
			}
		}
		if err := w.dc.Close(closeCtx); err != nil {
			w.deps.Log.Error("world dc close failed", zap.Error(err))
		}
		w.state = Stopping
		return
	case *actor.Stopped:
		w.stopFlushLoop()
		w.state = Offline
		return
	case *actor.Restarting:
		w.stopFlushLoop()
		w.state = Init
		return
	case flushTick:
		if w.state != Online {
			return
		}
		if err := w.dc.Flush(context.Background()); err != nil {
			w.deps.Log.Error("world periodic flush failed", zap.Error(err))
		}
		return
	case messages.WorldMessage:
		if msg == nil {
			ctx.Respond(fail(errx.ErrReqParamERR.WithMsg("nil request")))
			return
		}
		if w.state != Online {
			ctx.Respond(fail(errx.ErrUnavailable.WithMsg("world not online")))
			return
		}
		w.dispatcher.Dispatch(ctx, w, msg)
	default:
		return
	}
}

func (w *WorldActor) init(ctx actor.Context) {
	loadCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	e, err := w.dc.Load(loadCtx)
	if err != nil {
		w.deps.Log.Error("world load failed", zap.Error(err))
		w.state = Stopping
		ctx.Stop(ctx.Self())
		return
	}
	w.world = e
	w.state = Online
	w.deps.Log.Info("world online",
		zap.Int("territories", e.TerritoryCount()),
		zap.Int("players", len(e.Players())),
	)
	w.startFlushLoop(ctx)
}

func (w *WorldActor) Entity() *entity.World {
	return w.world
}

func (w *WorldActor) now() time.Time {
	return w.deps.Clock()
}

// publish 给事件编号后把变更广播到 EventStream，推送通道与事件日志都从这里订阅。
func (w *WorldActor) publish(ctx actor.Context, applied domain.Applied) {
	if applied.Changes.Empty() && len(applied.Events) == 0 {
		return
	}
	for i := range applied.Events {
		if applied.Events[i].ID == "" && w.deps.IDs != nil {
			applied.Events[i].ID = w.deps.IDs.NextString()
		}
	}
	stream := ctx.ActorSystem().EventStream
	for _, ev := range store.Explode(applied, w.now()) {
		w.seq++
		ev.Seq = w.seq
		stream.Publish(ev)
	}
}

func (w *WorldActor) startFlushLoop(ctx actor.Context) {
	if w.flushStop != nil {
		return
	}
	interval := w.dc.FlushEvery()
	if interval <= 0 {
		return
	}
	w.flushStop = make(chan struct{})
	self := ctx.Self()
	root := ctx.ActorSystem().Root

	go func(stop <-chan struct{}, every time.Duration) {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				root.Send(self, flushTick{})
			case <-stop:
				return
			}
		}
	}(w.flushStop, interval)
}

func (w *WorldActor) stopFlushLoop() {
	if w.flushStop == nil {
		return
	}
	close(w.flushStop)
	w.flushStop = nil
}
