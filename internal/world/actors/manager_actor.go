package actors

import (
	"GeoConquest/internal/shared/actor/messages"
	"GeoConquest/modules/kit/errx"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

// ManagerActor 是 world actor 的父节点：按需拉起 world actor，world actor 因装载失败退出后，
// 下一次请求会重新拉起它（相当于重试装载）。
type ManagerActor struct {
	deps  Deps
	world *actor.PID
}

func NewManagerActor(deps Deps) *ManagerActor {
	return &ManagerActor{deps: deps}
}

func (m *ManagerActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Terminated:
		if m.world != nil && msg.Who != nil && msg.Who.Id == m.world.Id {
			m.deps.Log.Warn("world actor terminated")
			m.world = nil
		}
		return
	case messages.WorldMessage:
		if msg == nil {
			ctx.Respond(fail(errx.ErrReqParamERR.WithMsg("nil request")))
			return
		}
		ctx.Forward(m.getOrSpawn(ctx))
	}
}

func (m *ManagerActor) getOrSpawn(ctx actor.Context) *actor.PID {
	if m.world != nil {
		return m.world
	}
	props := actor.PropsFromProducer(func() actor.Actor {
		return NewWorldActor(m.deps)
	})
	pid, err := ctx.SpawnNamed(props, "world")
	if err != nil {
		m.deps.Log.Error("spawn world actor failed", zap.Error(err))
		pid = ctx.Spawn(props)
	}
	ctx.Watch(pid)
	m.world = pid
	return pid
}
