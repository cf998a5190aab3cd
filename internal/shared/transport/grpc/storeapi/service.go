package storeapi

import (
	"context"

	"GeoConquest/internal/conquest/store"

	"google.golang.org/grpc"
)

const ServiceName = "geoconquest.world.WorldStore"

const (
	MethodReadTerritories   = "/" + ServiceName + "/ReadTerritories"
	MethodReadPlayers       = "/" + ServiceName + "/ReadPlayers"
	MethodUpsertPlayer      = "/" + ServiceName + "/UpsertPlayer"
	MethodEnsureTerritories = "/" + ServiceName + "/EnsureTerritories"
	MethodClaim             = "/" + ServiceName + "/Claim"
	MethodAttack            = "/" + ServiceName + "/Attack"
	MethodPurchase          = "/" + ServiceName + "/Purchase"
	MethodUseItem           = "/" + ServiceName + "/UseItem"
	MethodTransfer          = "/" + ServiceName + "/Transfer"
	MethodTick              = "/" + ServiceName + "/Tick"
	MethodWatch             = "/" + ServiceName + "/Watch"
)

// WorldStoreServer 是 world 进程对外暴露的存储服务。
type WorldStoreServer interface {
	ReadTerritories(context.Context, *ReadTerritoriesRequest) (*ReadTerritoriesResponse, error)
	ReadPlayers(context.Context, *ReadPlayersRequest) (*ReadPlayersResponse, error)
	UpsertPlayer(context.Context, *UpsertPlayerRequest) (*UpsertPlayerResponse, error)
	EnsureTerritories(context.Context, *EnsureTerritoriesRequest) (*EnsureTerritoriesResponse, error)
	Claim(context.Context, *ClaimRequest) (*ClaimResponse, error)
	Attack(context.Context, *AttackRequest) (*AttackResponse, error)
	Purchase(context.Context, *PurchaseRequest) (*PurchaseResponse, error)
	UseItem(context.Context, *UseItemRequest) (*UseItemResponse, error)
	Transfer(context.Context, *TransferRequest) (*TransferResponse, error)
	Tick(context.Context, *TickRequest) (*TickResponse, error)
	Watch(*WatchRequest, WatchServer) error
}

// WatchServer 是服务端推送流。
type WatchServer interface {
	Send(*store.ChangeEvent) error
	grpc.ServerStream
}

type watchServer struct {
	grpc.ServerStream
}

func (s *watchServer) Send(ev *store.ChangeEvent) error {
	return s.ServerStream.SendMsg(ev)
}

func unary[Req any, Resp any](name string, call func(WorldStoreServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	full := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(WorldStoreServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: full}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(WorldStoreServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func watchHandler(srv any, stream grpc.ServerStream) error {
	in := new(WatchRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(WorldStoreServer).Watch(in, &watchServer{ServerStream: stream})
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*WorldStoreServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("ReadTerritories", WorldStoreServer.ReadTerritories),
		unary("ReadPlayers", WorldStoreServer.ReadPlayers),
		unary("UpsertPlayer", WorldStoreServer.UpsertPlayer),
		unary("EnsureTerritories", WorldStoreServer.EnsureTerritories),
		unary("Claim", WorldStoreServer.Claim),
		unary("Attack", WorldStoreServer.Attack),
		unary("Purchase", WorldStoreServer.Purchase),
		unary("UseItem", WorldStoreServer.UseItem),
		unary("Transfer", WorldStoreServer.Transfer),
		unary("Tick", WorldStoreServer.Tick),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Watch",
			Handler:       watchHandler,
			ServerStreams: true,
		},
	},
	Metadata: "storeapi",
}

func RegisterWorldStoreServer(s grpc.ServiceRegistrar, srv WorldStoreServer) {
	s.RegisterService(&ServiceDesc, srv)
}
