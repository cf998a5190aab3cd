package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"GeoConquest/internal/client/local"
	"GeoConquest/internal/client/location"
	"GeoConquest/internal/client/syncer"
	"GeoConquest/internal/conquest/domain"
	"GeoConquest/internal/conquest/engine"
	"GeoConquest/internal/conquest/grid"
	"GeoConquest/internal/conquest/store"
	"GeoConquest/internal/gate/app/model"
	"GeoConquest/internal/shared/security"
	"GeoConquest/modules/kit/errx"
	"GeoConquest/modules/kit/logx"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type Options struct {
	Sync      syncer.Config
	RateLimit rate.Limit
	RateBurst int
	// CacheDir 非空时每个玩家的离线世界落到 <CacheDir>/<playerID>.db
	CacheDir string
}

// GateService 为每个在线玩家维护一个同步会话：网关就是这些玩家的客户端。
type GateService struct {
	eng    *engine.Engine
	remote store.Store
	opts   Options
	log    logx.Logger

	mu       sync.Mutex
	sessions map[domain.PlayerID]*playerSession
}

type playerSession struct {
	sess    *syncer.Session
	limiter *rate.Limiter
	cache   *local.Cache
}

func (p *playerSession) close() {
	p.sess.Close()
	if p.cache != nil {
		_ = p.cache.Close()
	}
}

func NewGateService(eng *engine.Engine, remote store.Store, opts Options, log logx.Logger) *GateService {
	if log == nil {
		log = logx.Nop()
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = rate.Inf
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 1
	}
	return &GateService{
		eng:      eng,
		remote:   remote,
		opts:     opts,
		log:      log,
		sessions: make(map[domain.PlayerID]*playerSession),
	}
}

// Login 为玩家开一个新会话；同一玩家已有会话时旧会话被关闭。
// 返回的 Session 供调用方订阅推送。
func (g *GateService) Login(ctx context.Context, req model.LoginReq) (*model.LoginResp, *syncer.Session, error) {
	name, ok := domain.NormalizeUsername(req.Username)
	if !ok {
		return nil, nil, domain.ErrInvalidUsername
	}
	if (req.Lat == nil) != (req.Lng == nil) {
		return nil, nil, ErrBadCoordinate
	}
	id := domain.PlayerIDFor(name)

	ps, err := g.newSession(ctx, id, req)
	if err != nil {
		return nil, nil, err
	}
	p, err := ps.sess.Start(ctx, name)
	if err != nil {
		ps.close()
		return nil, nil, err
	}
	token, err := security.Award(string(p.ID), p.Username)
	if err != nil {
		ps.close()
		return nil, nil, ErrInternalServer.WithReason(ReasonTokenUnavailable).WithCause(err)
	}

	g.mu.Lock()
	old := g.sessions[p.ID]
	g.sessions[p.ID] = ps
	g.mu.Unlock()
	if old != nil {
		old.close()
	}

	anchor, located := ps.sess.Anchor()
	g.log.Info("player session started",
		zap.String("player", string(p.ID)),
		zap.String("mode", ps.sess.Mode().String()),
		zap.Bool("located", located))
	return &model.LoginResp{
		Player:  p,
		Token:   token,
		Mode:    ps.sess.Mode().String(),
		Anchor:  anchor,
		Located: located,
		Rules:   g.eng.Rules(),
		Catalog: g.eng.Catalog().Items(),
	}, ps.sess, nil
}

func (g *GateService) newSession(ctx context.Context, id domain.PlayerID, req model.LoginReq) (*playerSession, error) {
	ps := &playerSession{limiter: rate.NewLimiter(g.opts.RateLimit, g.opts.RateBurst)}
	opts := []local.Option{local.WithLogger(g.log)}
	if g.opts.CacheDir != "" {
		path, err := cachePath(g.opts.CacheDir, id)
		if err != nil {
			return nil, ErrInternalServer.WithReason(ReasonOfflineCache).WithCause(err)
		}
		cache, err := local.OpenCache(path)
		if err != nil {
			return nil, ErrInternalServer.WithReason(ReasonOfflineCache).WithCause(err)
		}
		ps.cache = cache
		opts = append(opts, local.WithCache(cache))
	}
	offline := local.New(g.eng, opts...)
	if err := offline.Restore(ctx); err != nil {
		g.log.Warn("restore offline cache failed", zap.String("player", string(id)), zap.Error(err))
	}

	var loc location.Provider = location.None{}
	if req.Lat != nil && req.Lng != nil {
		loc = location.Fixed(grid.Coord{Lat: *req.Lat, Lng: *req.Lng})
	}
	ps.sess = syncer.NewSession(g.eng, g.remote, offline, loc, g.opts.Sync,
		syncer.WithLogger(g.log.With(zap.String("player", string(id)))))
	return ps, nil
}

// cachePath 返回玩家离线库的位置，结果必须落在 dir 之内。
func cachePath(dir string, id domain.PlayerID) (string, error) {
	path := filepath.Join(dir, string(id)+".db")
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return "", err
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || strings.ContainsRune(rel, filepath.Separator) {
		return "", fmt.Errorf("cache path escapes %s: %q", dir, id)
	}
	return path, nil
}

// Release 结束玩家会话（连接断开或登出）。sess 非 nil 时只在它仍是当前会话时释放。
func (g *GateService) Release(id domain.PlayerID, sess *syncer.Session) {
	g.mu.Lock()
	ps := g.sessions[id]
	if ps == nil || (sess != nil && ps.sess != sess) {
		g.mu.Unlock()
		return
	}
	delete(g.sessions, id)
	g.mu.Unlock()
	ps.close()
	g.log.Info("player session released", zap.String("player", string(id)))
}

// Session 取玩家当前会话并消耗一次限流额度。
func (g *GateService) Session(id domain.PlayerID) (*syncer.Session, error) {
	g.mu.Lock()
	ps := g.sessions[id]
	g.mu.Unlock()
	if ps == nil {
		return nil, ErrNotLoggedIn
	}
	if !ps.limiter.Allow() {
		return nil, ErrRateLimited
	}
	return ps.sess, nil
}

func (g *GateService) Claim(ctx context.Context, id domain.PlayerID, cell string) (domain.ClaimReport, error) {
	s, err := g.Session(id)
	if err != nil {
		return domain.ClaimReport{}, err
	}
	c, err := g.canonical(cell)
	if err != nil {
		return domain.ClaimReport{}, err
	}
	return s.Claim(ctx, c)
}

func (g *GateService) Attack(ctx context.Context, id domain.PlayerID, source, target string) (domain.AttackReport, error) {
	s, err := g.Session(id)
	if err != nil {
		return domain.AttackReport{}, err
	}
	src, err := g.canonical(source)
	if err != nil {
		return domain.AttackReport{}, err
	}
	tgt, err := g.canonical(target)
	if err != nil {
		return domain.AttackReport{}, err
	}
	return s.Attack(ctx, src, tgt)
}

func (g *GateService) Purchase(ctx context.Context, id domain.PlayerID, item string) (domain.PurchaseReport, error) {
	s, err := g.Session(id)
	if err != nil {
		return domain.PurchaseReport{}, err
	}
	return s.Purchase(ctx, item)
}

// UseItem 的 target 对作用于自身的道具可以为空。
func (g *GateService) UseItem(ctx context.Context, id domain.PlayerID, item, target string) (domain.UseReport, error) {
	s, err := g.Session(id)
	if err != nil {
		return domain.UseReport{}, err
	}
	var tgt domain.CellID
	if target != "" {
		if tgt, err = g.canonical(target); err != nil {
			return domain.UseReport{}, err
		}
	}
	return s.UseItem(ctx, item, tgt)
}

func (g *GateService) Transfer(ctx context.Context, id domain.PlayerID, source, target string, amount int) (domain.TransferReport, error) {
	s, err := g.Session(id)
	if err != nil {
		return domain.TransferReport{}, err
	}
	src, err := g.canonical(source)
	if err != nil {
		return domain.TransferReport{}, err
	}
	tgt, err := g.canonical(target)
	if err != nil {
		return domain.TransferReport{}, err
	}
	return s.Transfer(ctx, src, tgt, amount)
}

// Sync 立即同步一次；世界服不可达不算错误，会话已经降级为离线。
func (g *GateService) Sync(ctx context.Context, id domain.PlayerID) (model.WorldView, error) {
	s, err := g.Session(id)
	if err != nil {
		return model.WorldView{}, err
	}
	if err := s.Sync(ctx); err != nil && !errors.Is(err, ErrUnavailable) && !errors.Is(err, errx.ErrTimeout) {
		return model.WorldView{}, err
	}
	return View(s), nil
}

// World 读当前快照，不消耗限流额度。
func (g *GateService) World(id domain.PlayerID) (model.WorldView, error) {
	g.mu.Lock()
	ps := g.sessions[id]
	g.mu.Unlock()
	if ps == nil {
		return model.WorldView{}, ErrNotLoggedIn
	}
	return View(ps.sess), nil
}

func (g *GateService) Catalog() []domain.ShopItem {
	return g.eng.Catalog().Items()
}

func (g *GateService) Rules() domain.Rules {
	return g.eng.Rules()
}

// Online 返回当前持有会话的玩家数。
func (g *GateService) Online() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sessions)
}

func (g *GateService) Close() {
	g.mu.Lock()
	all := g.sessions
	g.sessions = make(map[domain.PlayerID]*playerSession)
	g.mu.Unlock()
	for _, ps := range all {
		ps.close()
	}
}

func (g *GateService) canonical(cell string) (domain.CellID, error) {
	id, err := g.eng.Grid().Canonical(cell)
	if err != nil {
		return "", domain.ErrBadCell.WithData("cell", cell).WithCause(err)
	}
	return domain.CellID(id), nil
}

// View 把会话状态转成对外快照。
func View(s *syncer.Session) model.WorldView {
	var me *domain.Player
	if p, ok := s.Player(); ok {
		me = &p
	}
	return model.NewWorldView(s.Snapshot(), s.Mode().String(), s.Lifecycle().String(), me)
}
