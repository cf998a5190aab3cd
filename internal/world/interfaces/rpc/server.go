// Package rpc 把 store.Store 暴露为 WorldStore grpc 服务。
package rpc

import (
	"context"

	"GeoConquest/internal/conquest/store"
	"GeoConquest/internal/shared/transport/grpc/storeapi"
	"GeoConquest/modules/kit/logx"
	"GeoConquest/modules/kit/tracex"

	"go.uber.org/zap"
)

type Server struct {
	store store.Store
	log   logx.Logger
}

var _ storeapi.WorldStoreServer = (*Server)(nil)

func NewServer(s store.Store, log logx.Logger) *Server {
	if log == nil {
		log = logx.Nop()
	}
	return &Server{store: s, log: log}
}

func (s *Server) enter(ctx context.Context) context.Context {
	return tracex.WithSpanID(ctx, "world")
}

func (s *Server) report(ctx context.Context, action string, err error, fields ...zap.Field) {
	logx.ReportError(ctx, s.log, action, err, fields...)
}

func (s *Server) ReadTerritories(ctx context.Context, req *storeapi.ReadTerritoriesRequest) (*storeapi.ReadTerritoriesResponse, error) {
	ctx = s.enter(ctx)
	ts, err := s.store.ReadTerritories(ctx, req.Filter)
	if err != nil {
		s.report(ctx, "world read territories", err)
		return nil, err
	}
	return &storeapi.ReadTerritoriesResponse{Territories: ts}, nil
}

func (s *Server) ReadPlayers(ctx context.Context, _ *storeapi.ReadPlayersRequest) (*storeapi.ReadPlayersResponse, error) {
	ctx = s.enter(ctx)
	ps, err := s.store.ReadPlayers(ctx)
	if err != nil {
		s.report(ctx, "world read players", err)
		return nil, err
	}
	return &storeapi.ReadPlayersResponse{Players: ps}, nil
}

func (s *Server) UpsertPlayer(ctx context.Context, req *storeapi.UpsertPlayerRequest) (*storeapi.UpsertPlayerResponse, error) {
	ctx = s.enter(ctx)
	p, err := s.store.UpsertPlayer(ctx, req.Player)
	if err != nil {
		s.report(ctx, "world upsert player", err, zap.String("username", req.Player.Username))
		return nil, err
	}
	return &storeapi.UpsertPlayerResponse{Player: p}, nil
}

func (s *Server) EnsureTerritories(ctx context.Context, req *storeapi.EnsureTerritoriesRequest) (*storeapi.EnsureTerritoriesResponse, error) {
	ctx = s.enter(ctx)
	ts, err := s.store.EnsureTerritories(ctx, req.IDs)
	if err != nil {
		s.report(ctx, "world ensure territories", err, zap.Int("count", len(req.IDs)))
		return nil, err
	}
	return &storeapi.EnsureTerritoriesResponse{Territories: ts}, nil
}

func (s *Server) Claim(ctx context.Context, req *storeapi.ClaimRequest) (*storeapi.ClaimResponse, error) {
	ctx = s.enter(ctx)
	rep, err := s.store.ClaimTerritory(ctx, req.Cell, req.Player)
	if err != nil {
		s.report(ctx, "world claim", err, zap.String("player", string(req.Player)), zap.String("cell", string(req.Cell)))
		return nil, err
	}
	return &storeapi.ClaimResponse{Report: rep}, nil
}

func (s *Server) Attack(ctx context.Context, req *storeapi.AttackRequest) (*storeapi.AttackResponse, error) {
	ctx = s.enter(ctx)
	rep, err := s.store.ResolveAttack(ctx, req.Attacker, req.Source, req.Target, req.EnergyCost)
	if err != nil {
		s.report(ctx, "world attack", err,
			zap.String("player", string(req.Attacker)),
			zap.String("source", string(req.Source)),
			zap.String("target", string(req.Target)),
		)
		return nil, err
	}
	return &storeapi.AttackResponse{Report: rep}, nil
}

func (s *Server) Purchase(ctx context.Context, req *storeapi.PurchaseRequest) (*storeapi.PurchaseResponse, error) {
	ctx = s.enter(ctx)
	rep, err := s.store.PurchaseItem(ctx, req.Player, req.ItemID, req.Cost)
	if err != nil {
		s.report(ctx, "world purchase", err, zap.String("player", string(req.Player)), zap.String("item", req.ItemID))
		return nil, err
	}
	return &storeapi.PurchaseResponse{Report: rep}, nil
}

func (s *Server) UseItem(ctx context.Context, req *storeapi.UseItemRequest) (*storeapi.UseItemResponse, error) {
	ctx = s.enter(ctx)
	rep, err := s.store.UseItem(ctx, req.Player, req.ItemID, req.Target)
	if err != nil {
		s.report(ctx, "world use item", err, zap.String("player", string(req.Player)), zap.String("item", req.ItemID))
		return nil, err
	}
	return &storeapi.UseItemResponse{Report: rep}, nil
}

func (s *Server) Transfer(ctx context.Context, req *storeapi.TransferRequest) (*storeapi.TransferResponse, error) {
	ctx = s.enter(ctx)
	rep, err := s.store.TransferStrength(ctx, req.Player, req.Source, req.Target, req.Amount)
	if err != nil {
		s.report(ctx, "world transfer", err, zap.String("player", string(req.Player)))
		return nil, err
	}
	return &storeapi.TransferResponse{Report: rep}, nil
}

func (s *Server) Tick(ctx context.Context, req *storeapi.TickRequest) (*storeapi.TickResponse, error) {
	ctx = s.enter(ctx)
	rep, err := s.store.TickEconomy(ctx, req.Player)
	if err != nil {
		s.report(ctx, "world tick", err, zap.String("player", string(req.Player)))
		return nil, err
	}
	return &storeapi.TickResponse{Report: rep}, nil
}

// Watch 把存储的推送通道转发给流，客户端断开或存储关闭通道时结束。
func (s *Server) Watch(_ *storeapi.WatchRequest, stream storeapi.WatchServer) error {
	ctx := s.enter(stream.Context())
	ch, err := s.store.Watch(ctx)
	if err != nil {
		s.report(ctx, "world watch", err)
		return err
	}
	s.log.WithContext(ctx).Debug("watch stream opened")
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			if err := stream.Send(&ev); err != nil {
				return err
			}
		}
	}
}
