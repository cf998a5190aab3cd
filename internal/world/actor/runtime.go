// Package actor 把 world actor 包装成 store.Store：每个操作是一次带超时的 RequestFuture。
package actor

import (
	"context"
	"errors"
	"sync"
	"time"

	"GeoConquest/internal/conquest/domain"
	"GeoConquest/internal/conquest/engine"
	"GeoConquest/internal/conquest/store"
	"GeoConquest/internal/shared/actor/messages"
	"GeoConquest/internal/shared/utils"
	"GeoConquest/internal/world/actors"
	"GeoConquest/internal/world/app/port"
	"GeoConquest/modules/kit/errx"
	"GeoConquest/modules/kit/logx"

	protoactor "github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

const (
	defaultAskTimeout  = 3 * time.Second
	defaultWatchBuffer = 256
)

type Options struct {
	AskTimeout  time.Duration
	FlushEvery  time.Duration
	WatchBuffer int
	NodeID      int64
	Log         logx.Logger
	Clock       func() time.Time
}

type Runtime struct {
	system  *protoactor.ActorSystem
	root    *protoactor.RootContext
	manager *protoactor.PID
	timeout time.Duration
	buffer  int
	log     logx.Logger
}

var _ store.Store = (*Runtime)(nil)

func NewRuntime(repo port.WorldRepository, eng *engine.Engine, opts Options) (*Runtime, error) {
	if opts.AskTimeout <= 0 {
		opts.AskTimeout = defaultAskTimeout
	}
	if opts.WatchBuffer <= 0 {
		opts.WatchBuffer = defaultWatchBuffer
	}
	if opts.Log == nil {
		opts.Log = logx.Nop()
	}
	ids, err := utils.NewSnowflake(opts.NodeID)
	if err != nil {
		return nil, err
	}

	deps := actors.Deps{
		Repo:       repo,
		Engine:     eng,
		IDs:        ids,
		Log:        opts.Log,
		FlushEvery: opts.FlushEvery,
		Clock:      opts.Clock,
	}
	system := protoactor.NewActorSystem()
	root := system.Root
	managerProps := protoactor.PropsFromProducer(func() protoactor.Actor {
		return actors.NewManagerActor(deps)
	})
	manager := root.Spawn(managerProps)

	return &Runtime{
		system:  system,
		root:    root,
		manager: manager,
		timeout: opts.AskTimeout,
		buffer:  opts.WatchBuffer,
		log:     opts.Log,
	}, nil
}

// Shutdown 停掉 manager（连带 world actor 最终落盘）后关闭 actor system。
func (r *Runtime) Shutdown() {
	if r == nil {
		return
	}
	if r.root != nil && r.manager != nil {
		if err := r.root.StopFuture(r.manager).Wait(); err != nil {
			r.log.Warn("world manager stop timed out", zap.Error(err))
		}
	}
	if r.system != nil {
		r.system.Shutdown()
	}
}

func (r *Runtime) request(ctx context.Context, msg messages.WorldMessage) (any, error) {
	if r == nil || r.root == nil {
		return nil, errx.ErrInternal.WithMsg("actor runtime not initialised")
	}
	if err := ctx.Err(); err != nil {
		return nil, errx.ErrTimeout.WithCause(err)
	}

	future := r.root.RequestFuture(r.manager, msg, r.timeoutFromContext(ctx))
	res, err := future.Result()
	if err != nil {
		if errors.Is(err, protoactor.ErrTimeout) {
			return nil, errx.ErrTimeout.WithCause(err)
		}
		return nil, errx.ErrUnavailable.WithCause(err)
	}
	reply, ok := res.(*messages.Reply)
	if !ok || reply == nil {
		return nil, errx.ErrInternal.WithMsg("unexpected actor reply")
	}
	if reply.Err != nil {
		return nil, reply.Err
	}
	return reply.Value, nil
}

func call[T any](ctx context.Context, r *Runtime, msg messages.WorldMessage) (T, error) {
	var zero T
	v, err := r.request(ctx, msg)
	if err != nil {
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		return zero, errx.ErrInternal.WithMsg("unexpected actor reply type")
	}
	return out, nil
}

func (r *Runtime) timeoutFromContext(ctx context.Context) time.Duration {
	if r == nil || r.timeout <= 0 {
		return defaultAskTimeout
	}
	if ctx == nil {
		return r.timeout
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		return r.timeout
	}
	remain := time.Until(deadline)
	if remain <= 0 {
		return time.Millisecond
	}
	if remain < r.timeout {
		return remain
	}
	return r.timeout
}

func base(p domain.PlayerID) messages.WorldBaseMessage {
	return messages.WorldBaseMessage{Player: p}
}

func (r *Runtime) ReadTerritories(ctx context.Context, filter store.Filter) ([]domain.Territory, error) {
	return call[[]domain.Territory](ctx, r, messages.ReadTerritories{Filter: filter})
}

func (r *Runtime) ReadPlayers(ctx context.Context) ([]domain.Player, error) {
	return call[[]domain.Player](ctx, r, messages.ReadPlayers{})
}

func (r *Runtime) UpsertPlayer(ctx context.Context, p domain.Player) (domain.Player, error) {
	return call[domain.Player](ctx, r, messages.UpsertPlayer{WorldBaseMessage: base(p.ID), Profile: p})
}

func (r *Runtime) EnsureTerritories(ctx context.Context, ids []domain.CellID) ([]domain.Territory, error) {
	return call[[]domain.Territory](ctx, r, messages.EnsureTerritories{IDs: ids})
}

func (r *Runtime) ClaimTerritory(ctx context.Context, cell domain.CellID, player domain.PlayerID) (domain.ClaimReport, error) {
	return call[domain.ClaimReport](ctx, r, messages.ClaimTerritory{WorldBaseMessage: base(player), Cell: cell})
}

func (r *Runtime) ResolveAttack(ctx context.Context, attacker domain.PlayerID, source, target domain.CellID, energyCost int) (domain.AttackReport, error) {
	return call[domain.AttackReport](ctx, r, messages.ResolveAttack{
		WorldBaseMessage: base(attacker), Source: source, Target: target, EnergyCost: energyCost,
	})
}

func (r *Runtime) PurchaseItem(ctx context.Context, player domain.PlayerID, itemID string, cost int64) (domain.PurchaseReport, error) {
	return call[domain.PurchaseReport](ctx, r, messages.PurchaseItem{WorldBaseMessage: base(player), ItemID: itemID, Cost: cost})
}

func (r *Runtime) UseItem(ctx context.Context, player domain.PlayerID, itemID string, target domain.CellID) (domain.UseReport, error) {
	return call[domain.UseReport](ctx, r, messages.UseItem{WorldBaseMessage: base(player), ItemID: itemID, Target: target})
}

func (r *Runtime) TransferStrength(ctx context.Context, player domain.PlayerID, source, target domain.CellID, amount int) (domain.TransferReport, error) {
	return call[domain.TransferReport](ctx, r, messages.TransferStrength{
		WorldBaseMessage: base(player), Source: source, Target: target, Amount: amount,
	})
}

func (r *Runtime) TickEconomy(ctx context.Context, player domain.PlayerID) (domain.TickReport, error) {
	return call[domain.TickReport](ctx, r, messages.TickEconomy{WorldBaseMessage: base(player)})
}

// Watch 订阅 actor system 的 EventStream。消费者跟不上时丢弃消息并记日志，客户端靠轮询兜底。
func (r *Runtime) Watch(ctx context.Context) (<-chan store.ChangeEvent, error) {
	if r == nil || r.system == nil {
		return nil, errx.ErrInternal.WithMsg("actor runtime not initialised")
	}
	out := make(chan store.ChangeEvent, r.buffer)
	var (
		mu     sync.Mutex
		closed bool
	)
	sub := r.system.EventStream.Subscribe(func(evt any) {
		ev, ok := evt.(store.ChangeEvent)
		if !ok {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case out <- ev:
		default:
			r.log.Warn("watch subscriber is slow, dropping change", zap.Uint64("seq", ev.Seq))
		}
	})

	go func() {
		<-ctx.Done()
		r.system.EventStream.Unsubscribe(sub)
		mu.Lock()
		closed = true
		close(out)
		mu.Unlock()
	}()
	return out, nil
}
