// Package local 是离线模式下的存储：同一套规则引擎跑在本地内存世界上，可选落盘到 sqlite。
//
// 离线结果只对本机可见，不保证跨玩家一致；重新上线后由服务器状态整体覆盖。
package local

import (
	"context"
	"sync"
	"time"

	"GeoConquest/internal/conquest/domain"
	"GeoConquest/internal/conquest/engine"
	"GeoConquest/internal/conquest/store"
	"GeoConquest/modules/kit/logx"

	"go.uber.org/zap"
)

const watchBuffer = 64

type Option func(*Store)

func WithClock(fn func() time.Time) Option {
	return func(s *Store) {
		if fn != nil {
			s.clock = fn
		}
	}
}

func WithLogger(l logx.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithCache 让每次变更同步写入 sqlite 缓存。
func WithCache(c *Cache) Option {
	return func(s *Store) {
		s.cache = c
	}
}

type Store struct {
	mu    sync.Mutex
	eng   *engine.Engine
	world *domain.MemWorld
	cache *Cache
	clock func() time.Time
	log   logx.Logger

	subMu sync.Mutex
	subs  map[int]chan store.ChangeEvent
	subID int
	seq   uint64
}

var _ store.Store = (*Store)(nil)

func New(eng *engine.Engine, opts ...Option) *Store {
	s := &Store{
		eng:   eng,
		world: domain.NewMemWorld(),
		clock: time.Now,
		log:   logx.Nop(),
		subs:  make(map[int]chan store.ChangeEvent),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Restore 从 sqlite 缓存装载上次离线时的世界。
func (s *Store) Restore(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	ts, ps, err := s.cache.Load(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	w := domain.NewMemWorld()
	w.Load(ts, ps)
	s.world = w
	return nil
}

// Seed 用最后确认的服务器状态替换本地世界，进入离线模式时调用。
func (s *Store) Seed(ctx context.Context, ts []domain.Territory, ps []domain.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := domain.NewMemWorld()
	w.Load(ts, ps)
	s.world = w
	if s.cache != nil {
		return s.cache.Replace(ctx, ts, ps)
	}
	return nil
}

func (s *Store) ReadTerritories(_ context.Context, filter store.Filter) ([]domain.Territory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Territory
	for _, t := range s.world.Territories() {
		if filter.Match(t) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Store) ReadPlayers(context.Context) ([]domain.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.world.Players(), nil
}

func (s *Store) UpsertPlayer(ctx context.Context, in domain.Player) (domain.Player, error) {
	var p domain.Player
	err := s.mutate(ctx, func(w domain.World, now time.Time) (domain.Applied, error) {
		var (
			applied domain.Applied
			err     error
		)
		p, applied, err = s.eng.UpsertPlayer(w, in, now)
		return applied, err
	})
	return p, err
}

func (s *Store) EnsureTerritories(ctx context.Context, ids []domain.CellID) ([]domain.Territory, error) {
	var ts []domain.Territory
	err := s.mutate(ctx, func(w domain.World, _ time.Time) (domain.Applied, error) {
		var (
			applied domain.Applied
			err     error
		)
		ts, applied, err = s.eng.EnsureTerritories(w, ids)
		return applied, err
	})
	return ts, err
}

func (s *Store) ClaimTerritory(ctx context.Context, cell domain.CellID, player domain.PlayerID) (domain.ClaimReport, error) {
	var rep domain.ClaimReport
	err := s.mutate(ctx, func(w domain.World, now time.Time) (domain.Applied, error) {
		var err error
		rep, err = s.eng.Claim(w, cell, player, now)
		return rep.Applied, err
	})
	return rep, err
}

func (s *Store) ResolveAttack(ctx context.Context, attacker domain.PlayerID, source, target domain.CellID, energyCost int) (domain.AttackReport, error) {
	var rep domain.AttackReport
	err := s.mutate(ctx, func(w domain.World, now time.Time) (domain.Applied, error) {
		var err error
		rep, err = s.eng.Attack(w, attacker, source, target, energyCost, now)
		return rep.Applied, err
	})
	return rep, err
}

func (s *Store) PurchaseItem(ctx context.Context, player domain.PlayerID, itemID string, cost int64) (domain.PurchaseReport, error) {
	var rep domain.PurchaseReport
	err := s.mutate(ctx, func(w domain.World, now time.Time) (domain.Applied, error) {
		var err error
		rep, err = s.eng.Purchase(w, player, itemID, cost, now)
		return rep.Applied, err
	})
	return rep, err
}

func (s *Store) UseItem(ctx context.Context, player domain.PlayerID, itemID string, target domain.CellID) (domain.UseReport, error) {
	var rep domain.UseReport
	err := s.mutate(ctx, func(w domain.World, now time.Time) (domain.Applied, error) {
		var err error
		rep, err = s.eng.UseItem(w, player, itemID, target, now)
		return rep.Applied, err
	})
	return rep, err
}

func (s *Store) TransferStrength(ctx context.Context, player domain.PlayerID, source, target domain.CellID, amount int) (domain.TransferReport, error) {
	var rep domain.TransferReport
	err := s.mutate(ctx, func(w domain.World, now time.Time) (domain.Applied, error) {
		var err error
		rep, err = s.eng.Transfer(w, player, source, target, amount, now)
		return rep.Applied, err
	})
	return rep, err
}

func (s *Store) TickEconomy(ctx context.Context, player domain.PlayerID) (domain.TickReport, error) {
	var rep domain.TickReport
	err := s.mutate(ctx, func(w domain.World, now time.Time) (domain.Applied, error) {
		var err error
		rep, err = s.eng.TickEconomy(w, player, now)
		return rep.Applied, err
	})
	return rep, err
}

func (s *Store) Watch(ctx context.Context) (<-chan store.ChangeEvent, error) {
	ch := make(chan store.ChangeEvent, watchBuffer)
	s.subMu.Lock()
	s.subID++
	id := s.subID
	s.subs[id] = ch
	s.subMu.Unlock()

	go func() {
		<-ctx.Done()
		s.subMu.Lock()
		delete(s.subs, id)
		close(ch)
		s.subMu.Unlock()
	}()
	return ch, nil
}

// mutate 串行执行一次引擎操作，成功后写缓存并广播。缓存失败只记日志，内存结果仍然有效。
func (s *Store) mutate(ctx context.Context, op func(w domain.World, now time.Time) (domain.Applied, error)) error {
	s.mu.Lock()
	now := s.clock()
	applied, err := op(s.world, now)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.world.ResetChanges()
	if s.cache != nil && !applied.Changes.Empty() {
		if cerr := s.cache.Save(ctx, applied.Changes); cerr != nil {
			s.log.Warn("offline cache save failed", zap.Error(cerr))
		}
	}
	s.mu.Unlock()

	s.publish(applied, now)
	return nil
}

func (s *Store) publish(applied domain.Applied, at time.Time) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ev := range store.Explode(applied, at) {
		s.seq++
		ev.Seq = s.seq
		for _, ch := range s.subs {
			select {
			case ch <- ev:
			default:
			}
		}
	}
}
