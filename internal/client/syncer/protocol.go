// Package syncer 实现客户端与权威存储之间的同步协议：
// 定时拉取、乐观提交与回滚、离线降级，以及在此之上的玩家会话。
package syncer

import (
	"context"
	"errors"
	"sync"
	"time"

	"GeoConquest/internal/client/connectivity"
	"GeoConquest/internal/client/local"
	"GeoConquest/internal/client/state"
	"GeoConquest/internal/conquest/domain"
	"GeoConquest/internal/conquest/store"
	"GeoConquest/modules/kit/errx"
	"GeoConquest/modules/kit/logx"

	"go.uber.org/zap"
)

// OfflinePolicy 决定离线时战斗类意图（占领、攻击）怎么处理。
type OfflinePolicy string

const (
	// OfflineReject 离线时直接拒绝战斗类意图，别的玩家看不到的世界里不能“赢”。
	OfflineReject OfflinePolicy = "reject"
	// OfflineLocal 离线时战斗类意图也只在本地结算，重新上线后被服务器状态覆盖。
	OfflineLocal OfflinePolicy = "local"
)

type Config struct {
	PollInterval   time.Duration
	RequestTimeout time.Duration
	WatchRetry     time.Duration
	LocateTimeout  time.Duration
	OfflineCombat  OfflinePolicy
}

func DefaultConfig() Config {
	return Config{
		PollInterval:   2 * time.Second,
		RequestTimeout: 5 * time.Second,
		WatchRetry:     3 * time.Second,
		LocateTimeout:  3 * time.Second,
		OfflineCombat:  OfflineReject,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = d.RequestTimeout
	}
	if c.WatchRetry <= 0 {
		c.WatchRetry = d.WatchRetry
	}
	if c.LocateTimeout <= 0 {
		c.LocateTimeout = d.LocateTimeout
	}
	if c.OfflineCombat == "" {
		c.OfflineCombat = d.OfflineCombat
	}
	return c
}

// Intent 是一次用户意图。Stage 在本地视图上做乐观预测，Send 把同一意图提交给存储
// （在线时是权威存储，离线时是本地存储）。
type Intent struct {
	Name   string
	Combat bool
	Stage  func(w domain.World, now time.Time) (domain.ChangeSet, error)
	Send   func(ctx context.Context, s store.Store) (domain.Applied, error)
}

// Scope 是定时拉取的范围：锚点附近的矩形，加上自己名下的全部格子。
type Scope struct {
	Bounds *store.Bounds
	Owner  domain.PlayerID
}

type Option func(*Protocol)

func WithLogger(l logx.Logger) Option {
	return func(p *Protocol) {
		if l != nil {
			p.log = l
		}
	}
}

func WithClock(fn func() time.Time) Option {
	return func(p *Protocol) {
		if fn != nil {
			p.clock = fn
		}
	}
}

type Protocol struct {
	remote  store.Store
	offline *local.Store
	state   *state.WorldState
	conn    *connectivity.Tracker
	cfg     Config
	log     logx.Logger
	clock   func() time.Time

	mu       sync.Mutex
	scope    Scope
	onChange func()
	onEvent  func(domain.Event)
	onSynced func()

	resync chan struct{}
}

func NewProtocol(remote store.Store, offline *local.Store, st *state.WorldState, conn *connectivity.Tracker, cfg Config, opts ...Option) *Protocol {
	p := &Protocol{
		remote:  remote,
		offline: offline,
		state:   st,
		conn:    conn,
		cfg:     cfg.withDefaults(),
		log:     logx.Nop(),
		clock:   time.Now,
		resync:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Protocol) SetScope(sc Scope) {
	p.mu.Lock()
	p.scope = sc
	p.mu.Unlock()
}

func (p *Protocol) Scope() Scope {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.scope
}

// OnChange 在世界视图变化后回调；OnEvent 在收到战报时回调；OnSynced 在一次在线全量同步成功后回调。
func (p *Protocol) OnChange(fn func()) {
	p.mu.Lock()
	p.onChange = fn
	p.mu.Unlock()
}

func (p *Protocol) OnEvent(fn func(domain.Event)) {
	p.mu.Lock()
	p.onEvent = fn
	p.mu.Unlock()
}

func (p *Protocol) OnSynced(fn func()) {
	p.mu.Lock()
	p.onSynced = fn
	p.mu.Unlock()
}

// Active 返回当前模式下应当使用的存储。
func (p *Protocol) Active() store.Store {
	if p.conn.Online() || p.offline == nil {
		return p.remote
	}
	return p.offline
}

// Sync 从权威存储拉取一次。离线时同样尝试，成功即恢复在线，并以服务器状态整体覆盖离线期间的本地结果。
func (p *Protocol) Sync(ctx context.Context) error {
	ts, ps, err := p.pull(ctx)
	if err != nil {
		if errx.IsConnectivity(err) {
			p.degrade(ctx, err)
		}
		return err
	}
	if p.conn.MarkOnline() {
		p.log.Info("store reachable again, discarding offline state", zap.Int("territories", len(ts)))
		p.state.Reset(ts, ps)
	} else {
		p.state.MergeTerritories(ts)
		p.state.ReplacePlayers(ps)
	}
	p.fire(func(pp *Protocol) func() { return pp.onSynced })
	p.changed()
	return nil
}

func (p *Protocol) pull(ctx context.Context) ([]domain.Territory, []domain.Player, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout)
	defer cancel()

	sc := p.Scope()
	var ts []domain.Territory
	if sc.Bounds != nil {
		region, err := p.remote.ReadTerritories(ctx, store.Filter{Bounds: sc.Bounds})
		if err != nil {
			return nil, nil, asConnectivity(ctx, err)
		}
		ts = append(ts, region...)
	}
	if sc.Owner != "" {
		owned, err := p.remote.ReadTerritories(ctx, store.Filter{OwnerID: sc.Owner})
		if err != nil {
			return nil, nil, asConnectivity(ctx, err)
		}
		ts = append(ts, owned...)
	}
	ps, err := p.remote.ReadPlayers(ctx)
	if err != nil {
		return nil, nil, asConnectivity(ctx, err)
	}
	return ts, ps, nil
}

// Submit 乐观地执行一次意图：
//   - 本地校验失败：原样返回，视图不变；
//   - 存储确认：用存储返回的变更替换乐观变更；
//   - 存储拒绝：回滚乐观变更并触发重新同步；
//   - 存储不可达：降级为离线，按离线策略在本地结算或拒绝。
func (p *Protocol) Submit(ctx context.Context, in Intent) (domain.Applied, error) {
	now := p.clock()
	tok, err := p.state.Stage(func(w domain.World) (domain.ChangeSet, error) {
		return in.Stage(w, now)
	})
	if err != nil {
		return domain.Applied{}, err
	}
	p.changed()

	if p.conn.Online() {
		applied, err := p.send(ctx, p.remote, in)
		switch {
		case err == nil:
			p.state.Confirm(tok, applied.Changes)
			p.changed()
			return applied, nil
		case errx.IsConnectivity(err):
			p.degrade(ctx, err)
		default:
			p.state.Rollback(tok)
			p.changed()
			p.RequestResync()
			if errx.IsValidation(err) {
				// 本地认为合法、存储却拒绝：本地视图已过期
				err = domain.ErrStaleOwnership.WithCause(err)
			}
			return domain.Applied{}, err
		}
	}
	return p.submitOffline(ctx, tok, in)
}

func (p *Protocol) submitOffline(ctx context.Context, tok state.Token, in Intent) (domain.Applied, error) {
	if p.offline == nil || (in.Combat && p.cfg.OfflineCombat != OfflineLocal) {
		p.state.Rollback(tok)
		p.changed()
		return domain.Applied{}, domain.ErrOfflineRejected.WithData("intent", in.Name)
	}
	applied, err := p.send(ctx, p.offline, in)
	if err != nil {
		p.state.Rollback(tok)
		p.changed()
		return domain.Applied{}, err
	}
	p.state.Confirm(tok, applied.Changes)
	p.changed()
	return applied, nil
}

func (p *Protocol) send(ctx context.Context, s store.Store, in Intent) (domain.Applied, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout)
	defer cancel()
	applied, err := in.Send(ctx, s)
	if err != nil {
		return domain.Applied{}, asConnectivity(ctx, err)
	}
	return applied, nil
}

// degrade 切到离线并用最后确认的状态给本地存储播种。
func (p *Protocol) degrade(ctx context.Context, cause error) {
	if !p.conn.MarkOffline(cause) {
		return
	}
	p.log.Warn("store unreachable, switching to offline mode", zap.Error(cause))
	if p.offline == nil {
		return
	}
	ts, ps := p.state.Confirmed()
	if len(ts) == 0 && len(ps) == 0 {
		// 从未同步过：保留本地缓存里上次离线的世界
		return
	}
	if err := p.offline.Seed(context.WithoutCancel(ctx), ts, ps); err != nil {
		p.log.Error("seed offline store failed", zap.Error(err))
	}
}

// RequestResync 请求尽快做一次全量同步，重复请求会合并。
func (p *Protocol) RequestResync() {
	select {
	case p.resync <- struct{}{}:
	default:
	}
}

// RunPoll 按固定间隔同步，直到 ctx 结束。
func (p *Protocol) RunPoll(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-p.resync:
		}
		if err := p.Sync(ctx); err != nil && ctx.Err() == nil && !errx.IsConnectivity(err) {
			p.log.Warn("sync failed", zap.Error(err))
		}
	}
}

// RunWatch 在线时订阅推送通道作为轮询的补充；通道断开后等待 WatchRetry 再重连。
func (p *Protocol) RunWatch(ctx context.Context) {
	for ctx.Err() == nil {
		if p.conn.Online() {
			ch, err := p.remote.Watch(ctx)
			if err == nil {
				for ev := range ch {
					p.applyPush(ev)
				}
			} else if ctx.Err() == nil {
				p.log.Debug("watch open failed", zap.Error(err))
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(p.cfg.WatchRetry):
		}
	}
}

func (p *Protocol) applyPush(ev store.ChangeEvent) {
	if ev.Kind == store.KindEvent {
		if ev.Event != nil {
			p.mu.Lock()
			fn := p.onEvent
			p.mu.Unlock()
			if fn != nil {
				fn(*ev.Event)
			}
		}
		return
	}
	if ev.Kind == store.KindTerritory && ev.Territory != nil && !p.relevant(*ev.Territory) {
		return
	}
	if p.state.ApplyChange(ev) {
		p.changed()
	}
}

// relevant 只收范围内、自己的或已经在视图里的格子，避免把全世界都装进客户端。
func (p *Protocol) relevant(t domain.Territory) bool {
	sc := p.Scope()
	if sc.Owner != "" && t.OwnerID == sc.Owner {
		return true
	}
	if sc.Bounds != nil && (store.Filter{Bounds: sc.Bounds}).Match(t) {
		return true
	}
	_, known := p.state.Territory(t.ID)
	return known
}

func (p *Protocol) changed() {
	p.fire(func(pp *Protocol) func() { return pp.onChange })
}

func (p *Protocol) fire(get func(*Protocol) func()) {
	p.mu.Lock()
	fn := get(p)
	p.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// asConnectivity 把未分类的超时统一成 errx.ErrTimeout，其余错误保持原样。
func asConnectivity(ctx context.Context, err error) error {
	var e *errx.Error
	if errors.As(err, &e) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errx.ErrTimeout.WithCause(err)
	}
	return err
}
