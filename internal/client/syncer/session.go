package syncer

import (
	"context"
	"sync"
	"time"

	"GeoConquest/internal/client/connectivity"
	"GeoConquest/internal/client/local"
	"GeoConquest/internal/client/location"
	"GeoConquest/internal/client/state"
	"GeoConquest/internal/conquest/domain"
	"GeoConquest/internal/conquest/engine"
	"GeoConquest/internal/conquest/grid"
	"GeoConquest/internal/conquest/lifecycle"
	"GeoConquest/internal/conquest/store"
	"GeoConquest/modules/kit/errx"
	"GeoConquest/modules/kit/logx"

	"go.uber.org/zap"
)

type UpdateKind string

const (
	UpdateSnapshot   UpdateKind = "snapshot"
	UpdateEvent      UpdateKind = "event"
	UpdateMode       UpdateKind = "mode"
	UpdateEliminated UpdateKind = "eliminated"
)

// Update 推给展示层。Snapshot 类更新只是一个信号，展示层自己调 Session.Snapshot。
type Update struct {
	Kind  UpdateKind    `json:"kind"`
	Event *domain.Event `json:"event,omitempty"`
	Mode  string        `json:"mode,omitempty"`
}

// Session 是一个玩家的客户端会话：登录、定位、初始网格、同步循环和全部意图入口。
type Session struct {
	eng   *engine.Engine
	proto *Protocol
	state *state.WorldState
	conn  *connectivity.Tracker
	life  *lifecycle.Tracker
	loc   location.Provider
	cfg   Config
	log   logx.Logger
	clock func() time.Time

	mu       sync.Mutex
	player   domain.PlayerID
	username string
	anchor   grid.Coord
	located  bool
	started  bool
	// registered 表示玩家已在权威存储上存在（在线登录或离线后补注册）
	registered bool
	closed     bool
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	updates    chan Update
}

// NewSession 组装会话。offline 为 nil 时不支持离线模式，断网期间所有意图都被拒绝。
func NewSession(eng *engine.Engine, remote store.Store, offline *local.Store, loc location.Provider, cfg Config, opts ...Option) *Session {
	st := state.New()
	conn := connectivity.NewTracker()
	proto := NewProtocol(remote, offline, st, conn, cfg, opts...)
	if loc == nil {
		loc = location.None{}
	}
	s := &Session{
		eng:     eng,
		proto:   proto,
		state:   st,
		conn:    conn,
		life:    lifecycle.NewTracker(),
		loc:     loc,
		cfg:     proto.cfg,
		log:     proto.log,
		clock:   proto.clock,
		updates: make(chan Update, 64),
	}
	proto.OnChange(func() { s.emit(Update{Kind: UpdateSnapshot}) })
	proto.OnEvent(func(ev domain.Event) { s.emit(Update{Kind: UpdateEvent, Event: &ev}) })
	proto.OnSynced(s.checkPresence)
	conn.Observe(func(_, to connectivity.Mode) { s.emit(Update{Kind: UpdateMode, Mode: to.String()}) })
	s.life.OnChange(func(lifecycle.State) { s.onEliminated() })
	return s
}

// Start 登录并进入世界：
// 存储不可达时退化为离线登录；定位失败时使用默认锚点。
func (s *Session) Start(ctx context.Context, username string) (domain.Player, error) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return domain.Player{}, errx.ErrReqParamERR.WithMsg("session already started")
	}
	s.mu.Unlock()

	p, err := s.login(ctx, username)
	if err != nil {
		return domain.Player{}, err
	}
	s.state.MergePlayers([]domain.Player{p})

	anchor, located := location.Resolve(ctx, s.loc, s.cfg.LocateTimeout)
	if !located {
		s.log.Info("location unavailable, using default anchor",
			zap.Float64("lat", anchor.Lat), zap.Float64("lng", anchor.Lng))
	}
	g := s.eng.Grid()
	center := g.Center(g.CellOf(anchor.Lat, anchor.Lng))
	radius := s.eng.Rules().InitialGridRadius
	s.proto.SetScope(Scope{
		Bounds: store.BoundsAround(center.Lat, center.Lng, g.CellSize(), radius),
		Owner:  p.ID,
	})
	if err := s.ensureGrid(ctx, g.Around(center.Lat, center.Lng, radius)); err != nil {
		return domain.Player{}, err
	}

	s.mu.Lock()
	s.player = p.ID
	s.username = p.Username
	s.anchor = center
	s.located = located
	s.started = true
	s.mu.Unlock()

	if err := s.proto.Sync(ctx); err != nil && !errx.IsConnectivity(err) {
		s.log.Warn("initial sync failed", zap.Error(err))
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	s.goLoop(func() { s.proto.RunPoll(loopCtx) })
	s.goLoop(func() { s.proto.RunWatch(loopCtx) })
	s.goLoop(func() { s.runEconomy(loopCtx) })
	return p, nil
}

func (s *Session) login(ctx context.Context, username string) (domain.Player, error) {
	rctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	p, err := s.proto.remote.UpsertPlayer(rctx, domain.Player{Username: username})
	cancel()
	if err == nil {
		s.mu.Lock()
		s.registered = true
		s.mu.Unlock()
		return p, nil
	}
	err = asConnectivity(rctx, err)
	if !errx.IsConnectivity(err) || s.proto.offline == nil {
		return domain.Player{}, err
	}
	s.proto.degrade(ctx, err)
	p, err = s.proto.offline.UpsertPlayer(ctx, domain.Player{Username: username})
	if err != nil {
		return domain.Player{}, err
	}
	ts, _ := s.proto.offline.ReadTerritories(ctx, store.Filter{})
	ps, _ := s.proto.offline.ReadPlayers(ctx)
	s.state.Reset(ts, ps)
	return p, nil
}

func (s *Session) ensureGrid(ctx context.Context, ids []string) error {
	cells := make([]domain.CellID, len(ids))
	for i, id := range ids {
		cells[i] = domain.CellID(id)
	}
	rctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()
	ts, err := s.proto.Active().EnsureTerritories(rctx, cells)
	if err != nil {
		err = asConnectivity(rctx, err)
		if !errx.IsConnectivity(err) || s.proto.offline == nil {
			return err
		}
		s.proto.degrade(ctx, err)
		if ts, err = s.proto.offline.EnsureTerritories(ctx, cells); err != nil {
			return err
		}
	}
	s.state.MergeTerritories(ts)
	return nil
}

func (s *Session) goLoop(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

func (s *Session) runEconomy(ctx context.Context) {
	ticker := time.NewTicker(s.eng.Rules().TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if _, err := s.TickEconomy(ctx); err != nil && ctx.Err() == nil {
			logx.ReportError(ctx, s.log, "economy.tick", err)
		}
	}
}

// checkPresence 只看在线全量同步的结果：玩家从权威列表消失即被淘汰。
// 离线登录的玩家在服务器上还不存在，第一次连上时先补注册。
func (s *Session) checkPresence() {
	id, ok := s.current()
	if !ok {
		return
	}
	_, present := s.state.ConfirmedPlayer(id)
	s.mu.Lock()
	registered := s.registered
	s.mu.Unlock()
	if registered || present {
		s.mu.Lock()
		s.registered = true
		s.mu.Unlock()
		s.life.Observe(present)
		return
	}

	s.mu.Lock()
	username := s.username
	s.mu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RequestTimeout)
	defer cancel()
	back, err := s.proto.remote.UpsertPlayer(ctx, domain.Player{Username: username})
	if err != nil {
		s.log.Warn("re-register after offline login failed", zap.Error(err))
		return
	}
	s.mu.Lock()
	s.registered = true
	s.mu.Unlock()
	s.state.MergePlayers([]domain.Player{back})
}

func (s *Session) onEliminated() {
	s.log.Info("player eliminated")
	s.emit(Update{Kind: UpdateEliminated})
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (s *Session) emit(u Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.updates <- u:
	default:
		// 展示层跟不上时丢弃，快照随时可以重新读取
	}
}

func (s *Session) current() (domain.PlayerID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.player, s.started
}

// guard 在每个意图之前检查会话状态。
func (s *Session) guard() (domain.PlayerID, error) {
	id, ok := s.current()
	if !ok {
		return "", domain.ErrSessionNotStarted
	}
	if s.life.State() == lifecycle.StateEliminated {
		return "", domain.ErrEliminated
	}
	return id, nil
}

func (s *Session) Claim(ctx context.Context, cell domain.CellID) (domain.ClaimReport, error) {
	id, err := s.guard()
	if err != nil {
		return domain.ClaimReport{}, err
	}
	var rep domain.ClaimReport
	_, err = s.proto.Submit(ctx, Intent{
		Name:   "claim",
		Combat: true,
		Stage: func(w domain.World, now time.Time) (domain.ChangeSet, error) {
			r, err := s.eng.Claim(w, cell, id, now)
			return r.Changes, err
		},
		Send: func(ctx context.Context, st store.Store) (domain.Applied, error) {
			r, err := st.ClaimTerritory(ctx, cell, id)
			rep = r
			return r.Applied, err
		},
	})
	return rep, err
}

func (s *Session) Attack(ctx context.Context, source, target domain.CellID) (domain.AttackReport, error) {
	id, err := s.guard()
	if err != nil {
		return domain.AttackReport{}, err
	}
	cost := s.eng.Rules().AttackEnergyCost
	var rep domain.AttackReport
	_, err = s.proto.Submit(ctx, Intent{
		Name:   "attack",
		Combat: true,
		Stage: func(w domain.World, now time.Time) (domain.ChangeSet, error) {
			r, err := s.eng.Attack(w, id, source, target, cost, now)
			return r.Changes, err
		},
		Send: func(ctx context.Context, st store.Store) (domain.Applied, error) {
			r, err := st.ResolveAttack(ctx, id, source, target, cost)
			rep = r
			return r.Applied, err
		},
	})
	if err != nil {
		return domain.AttackReport{}, err
	}
	// 攻击方自身可能在反击中丢掉最后一格
	for _, gone := range rep.Eliminated {
		if gone == id {
			s.life.Observe(false)
		}
	}
	return rep, nil
}

func (s *Session) Purchase(ctx context.Context, itemID string) (domain.PurchaseReport, error) {
	id, err := s.guard()
	if err != nil {
		return domain.PurchaseReport{}, err
	}
	item, ok := s.eng.Catalog().Get(itemID)
	if !ok {
		return domain.PurchaseReport{}, domain.ErrUnknownItem.WithData("item", itemID)
	}
	var rep domain.PurchaseReport
	_, err = s.proto.Submit(ctx, Intent{
		Name: "purchase",
		Stage: func(w domain.World, now time.Time) (domain.ChangeSet, error) {
			r, err := s.eng.Purchase(w, id, itemID, item.Cost, now)
			return r.Changes, err
		},
		Send: func(ctx context.Context, st store.Store) (domain.Applied, error) {
			r, err := st.PurchaseItem(ctx, id, itemID, item.Cost)
			rep = r
			return r.Applied, err
		},
	})
	return rep, err
}

func (s *Session) UseItem(ctx context.Context, itemID string, target domain.CellID) (domain.UseReport, error) {
	id, err := s.guard()
	if err != nil {
		return domain.UseReport{}, err
	}
	var rep domain.UseReport
	_, err = s.proto.Submit(ctx, Intent{
		Name: "use_item",
		Stage: func(w domain.World, now time.Time) (domain.ChangeSet, error) {
			r, err := s.eng.UseItem(w, id, itemID, target, now)
			return r.Changes, err
		},
		Send: func(ctx context.Context, st store.Store) (domain.Applied, error) {
			r, err := st.UseItem(ctx, id, itemID, target)
			rep = r
			return r.Applied, err
		},
	})
	return rep, err
}

func (s *Session) Transfer(ctx context.Context, source, target domain.CellID, amount int) (domain.TransferReport, error) {
	id, err := s.guard()
	if err != nil {
		return domain.TransferReport{}, err
	}
	var rep domain.TransferReport
	_, err = s.proto.Submit(ctx, Intent{
		Name: "transfer",
		Stage: func(w domain.World, now time.Time) (domain.ChangeSet, error) {
			r, err := s.eng.Transfer(w, id, source, target, amount, now)
			return r.Changes, err
		},
		Send: func(ctx context.Context, st store.Store) (domain.Applied, error) {
			r, err := st.TransferStrength(ctx, id, source, target, amount)
			rep = r
			return r.Applied, err
		},
	})
	return rep, err
}

func (s *Session) TickEconomy(ctx context.Context) (domain.TickReport, error) {
	id, err := s.guard()
	if err != nil {
		return domain.TickReport{}, err
	}
	var rep domain.TickReport
	_, err = s.proto.Submit(ctx, Intent{
		Name: "economy_tick",
		Stage: func(w domain.World, now time.Time) (domain.ChangeSet, error) {
			r, err := s.eng.TickEconomy(w, id, now)
			return r.Changes, err
		},
		Send: func(ctx context.Context, st store.Store) (domain.Applied, error) {
			r, err := st.TickEconomy(ctx, id)
			rep = r
			return r.Applied, err
		},
	})
	return rep, err
}

// Sync 立即做一次全量同步。
func (s *Session) Sync(ctx context.Context) error {
	if _, ok := s.current(); !ok {
		return domain.ErrSessionNotStarted
	}
	return s.proto.Sync(ctx)
}

func (s *Session) Snapshot() state.Snapshot {
	return s.state.Snapshot()
}

// Player 返回当前视图里的自己（含未确认的乐观变更）。
func (s *Session) Player() (domain.Player, bool) {
	id, ok := s.current()
	if !ok {
		return domain.Player{}, false
	}
	return s.state.Player(id)
}

func (s *Session) PlayerID() domain.PlayerID {
	id, _ := s.current()
	return id
}

// Anchor 返回会话锚点以及它是否来自真实定位。
func (s *Session) Anchor() (grid.Coord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.anchor, s.located
}

func (s *Session) Mode() connectivity.Mode {
	return s.conn.Mode()
}

func (s *Session) Lifecycle() lifecycle.State {
	return s.life.State()
}

func (s *Session) Catalog() []domain.ShopItem {
	return s.eng.Catalog().Items()
}

func (s *Session) Updates() <-chan Update {
	return s.updates
}

// Close 停止后台循环并关闭 Updates 通道，可重复调用。
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()

	s.mu.Lock()
	s.closed = true
	close(s.updates)
	s.mu.Unlock()
}
