package storeapi

import (
	"context"

	"GeoConquest/internal/conquest/store"

	"google.golang.org/grpc"
)

// Client 是 WorldStore 的 typed client。
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts ...grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ReadTerritories(ctx context.Context, in *ReadTerritoriesRequest, opts ...grpc.CallOption) (*ReadTerritoriesResponse, error) {
	return invoke[ReadTerritoriesResponse](ctx, c.cc, MethodReadTerritories, in, opts...)
}

func (c *Client) ReadPlayers(ctx context.Context, in *ReadPlayersRequest, opts ...grpc.CallOption) (*ReadPlayersResponse, error) {
	return invoke[ReadPlayersResponse](ctx, c.cc, MethodReadPlayers, in, opts...)
}

func (c *Client) UpsertPlayer(ctx context.Context, in *UpsertPlayerRequest, opts ...grpc.CallOption) (*UpsertPlayerResponse, error) {
	return invoke[UpsertPlayerResponse](ctx, c.cc, MethodUpsertPlayer, in, opts...)
}

func (c *Client) EnsureTerritories(ctx context.Context, in *EnsureTerritoriesRequest, opts ...grpc.CallOption) (*EnsureTerritoriesResponse, error) {
	return invoke[EnsureTerritoriesResponse](ctx, c.cc, MethodEnsureTerritories, in, opts...)
}

func (c *Client) Claim(ctx context.Context, in *ClaimRequest, opts ...grpc.CallOption) (*ClaimResponse, error) {
	return invoke[ClaimResponse](ctx, c.cc, MethodClaim, in, opts...)
}

func (c *Client) Attack(ctx context.Context, in *AttackRequest, opts ...grpc.CallOption) (*AttackResponse, error) {
	return invoke[AttackResponse](ctx, c.cc, MethodAttack, in, opts...)
}

func (c *Client) Purchase(ctx context.Context, in *PurchaseRequest, opts ...grpc.CallOption) (*PurchaseResponse, error) {
	return invoke[PurchaseResponse](ctx, c.cc, MethodPurchase, in, opts...)
}

func (c *Client) UseItem(ctx context.Context, in *UseItemRequest, opts ...grpc.CallOption) (*UseItemResponse, error) {
	return invoke[UseItemResponse](ctx, c.cc, MethodUseItem, in, opts...)
}

func (c *Client) Transfer(ctx context.Context, in *TransferRequest, opts ...grpc.CallOption) (*TransferResponse, error) {
	return invoke[TransferResponse](ctx, c.cc, MethodTransfer, in, opts...)
}

func (c *Client) Tick(ctx context.Context, in *TickRequest, opts ...grpc.CallOption) (*TickResponse, error) {
	return invoke[TickResponse](ctx, c.cc, MethodTick, in, opts...)
}

// WatchClient 是客户端一侧的推送流。
type WatchClient interface {
	Recv() (*store.ChangeEvent, error)
	grpc.ClientStream
}

type watchClient struct {
	grpc.ClientStream
}

func (w *watchClient) Recv() (*store.ChangeEvent, error) {
	ev := new(store.ChangeEvent)
	if err := w.ClientStream.RecvMsg(ev); err != nil {
		return nil, err
	}
	return ev, nil
}

func (c *Client) Watch(ctx context.Context, in *WatchRequest, opts ...grpc.CallOption) (WatchClient, error) {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], MethodWatch, opts...)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &watchClient{ClientStream: stream}, nil
}
