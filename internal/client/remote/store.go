// Package remote 是权威存储的 grpc 客户端实现。
package remote

import (
	"context"
	"errors"
	"io"

	"GeoConquest/internal/conquest/domain"
	"GeoConquest/internal/conquest/store"
	transportgrpc "GeoConquest/internal/shared/transport/grpc"
	"GeoConquest/internal/shared/transport/grpc/storeapi"
	"GeoConquest/modules/kit/logx"

	"go.uber.org/zap"
	gogrpc "google.golang.org/grpc"
)

const watchBuffer = 256

type Store struct {
	conn   *gogrpc.ClientConn
	client *storeapi.Client
	log    logx.Logger
}

var _ store.Store = (*Store)(nil)

// Dial 连接 world 服务。grpc.NewClient 是惰性的，不可达会在第一次调用时以连接类错误暴露。
func Dial(addr string, log logx.Logger, extra ...gogrpc.DialOption) (*Store, error) {
	conn, client, err := transportgrpc.DialWorldStore(addr, extra...)
	if err != nil {
		return nil, err
	}
	return New(conn, client, log), nil
}

func New(conn *gogrpc.ClientConn, client *storeapi.Client, log logx.Logger) *Store {
	if log == nil {
		log = logx.Nop()
	}
	return &Store{conn: conn, client: client, log: log}
}

func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *Store) ReadTerritories(ctx context.Context, filter store.Filter) ([]domain.Territory, error) {
	resp, err := s.client.ReadTerritories(ctx, &storeapi.ReadTerritoriesRequest{Filter: filter})
	if err != nil {
		return nil, err
	}
	return resp.Territories, nil
}

func (s *Store) ReadPlayers(ctx context.Context) ([]domain.Player, error) {
	resp, err := s.client.ReadPlayers(ctx, &storeapi.ReadPlayersRequest{})
	if err != nil {
		return nil, err
	}
	return resp.Players, nil
}

func (s *Store) UpsertPlayer(ctx context.Context, p domain.Player) (domain.Player, error) {
	resp, err := s.client.UpsertPlayer(ctx, &storeapi.UpsertPlayerRequest{Player: p})
	if err != nil {
		return domain.Player{}, err
	}
	return resp.Player, nil
}

func (s *Store) EnsureTerritories(ctx context.Context, ids []domain.CellID) ([]domain.Territory, error) {
	resp, err := s.client.EnsureTerritories(ctx, &storeapi.EnsureTerritoriesRequest{IDs: ids})
	if err != nil {
		return nil, err
	}
	return resp.Territories, nil
}

func (s *Store) ClaimTerritory(ctx context.Context, cell domain.CellID, player domain.PlayerID) (domain.ClaimReport, error) {
	resp, err := s.client.Claim(ctx, &storeapi.ClaimRequest{Cell: cell, Player: player})
	if err != nil {
		return domain.ClaimReport{}, err
	}
	return resp.Report, nil
}

func (s *Store) ResolveAttack(ctx context.Context, attacker domain.PlayerID, source, target domain.CellID, energyCost int) (domain.AttackReport, error) {
	resp, err := s.client.Attack(ctx, &storeapi.AttackRequest{Attacker: attacker, Source: source, Target: target, EnergyCost: energyCost})
	if err != nil {
		return domain.AttackReport{}, err
	}
	return resp.Report, nil
}

func (s *Store) PurchaseItem(ctx context.Context, player domain.PlayerID, itemID string, cost int64) (domain.PurchaseReport, error) {
	resp, err := s.client.Purchase(ctx, &storeapi.PurchaseRequest{Player: player, ItemID: itemID, Cost: cost})
	if err != nil {
		return domain.PurchaseReport{}, err
	}
	return resp.Report, nil
}

func (s *Store) UseItem(ctx context.Context, player domain.PlayerID, itemID string, target domain.CellID) (domain.UseReport, error) {
	resp, err := s.client.UseItem(ctx, &storeapi.UseItemRequest{Player: player, ItemID: itemID, Target: target})
	if err != nil {
		return domain.UseReport{}, err
	}
	return resp.Report, nil
}

func (s *Store) TransferStrength(ctx context.Context, player domain.PlayerID, source, target domain.CellID, amount int) (domain.TransferReport, error) {
	resp, err := s.client.Transfer(ctx, &storeapi.TransferRequest{Player: player, Source: source, Target: target, Amount: amount})
	if err != nil {
		return domain.TransferReport{}, err
	}
	return resp.Report, nil
}

func (s *Store) TickEconomy(ctx context.Context, player domain.PlayerID) (domain.TickReport, error) {
	resp, err := s.client.Tick(ctx, &storeapi.TickRequest{Player: player})
	if err != nil {
		return domain.TickReport{}, err
	}
	return resp.Report, nil
}

// Watch 打开推送流。流中断时关闭通道，由调用方决定何时重连。
func (s *Store) Watch(ctx context.Context) (<-chan store.ChangeEvent, error) {
	stream, err := s.client.Watch(ctx, &storeapi.WatchRequest{})
	if err != nil {
		return nil, transportgrpc.FromStatus(err, nil)
	}
	out := make(chan store.ChangeEvent, watchBuffer)
	go func() {
		defer close(out)
		for {
			ev, err := stream.Recv()
			if err != nil {
				if !errors.Is(err, io.EOF) && ctx.Err() == nil {
					err = transportgrpc.FromStatus(err, stream.Trailer())
					s.log.Warn("watch stream closed", zap.Error(err))
				}
				return
			}
			select {
			case out <- *ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
