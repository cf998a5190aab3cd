package grpc

import (
	"fmt"

	"GeoConquest/internal/shared/transport/grpc/storeapi"

	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// DialWorldStore 建立 world 存储服务的 grpc 连接并返回 typed client。
func DialWorldStore(addr string, extra ...gogrpc.DialOption) (*gogrpc.ClientConn, *storeapi.Client, error) {
	// grpc Dial 拨号配置：trace 在外层注入，错误还原在内层读取 trailer
	opts := []gogrpc.DialOption{
		gogrpc.WithTransportCredentials(insecure.NewCredentials()),
		gogrpc.WithDefaultCallOptions(gogrpc.CallContentSubtype(storeapi.CodecName)),
		gogrpc.WithChainUnaryInterceptor(UnaryClientTraceInterceptor(), UnaryClientErrorInterceptor()),
		gogrpc.WithChainStreamInterceptor(StreamClientTraceInterceptor()),
	}
	opts = append(opts, extra...)
	// grpc.NewClient 不会立即建连，首个 RPC 才触发 resolver 与 balancer
	conn, err := gogrpc.NewClient(addr, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("dial world store failed: %w", err)
	}
	return conn, storeapi.NewClient(conn), nil
}

// NewWorldStoreServer 创建带 trace 提取与错误映射的 grpc server。
func NewWorldStoreServer(srv storeapi.WorldStoreServer, extra ...gogrpc.ServerOption) *gogrpc.Server {
	opts := append([]gogrpc.ServerOption{
		gogrpc.ChainUnaryInterceptor(UnaryServerTraceInterceptor(), UnaryServerErrorInterceptor()),
		gogrpc.ChainStreamInterceptor(StreamServerTraceInterceptor(), StreamServerErrorInterceptor()),
	}, extra...)
	server := gogrpc.NewServer(opts...)
	storeapi.RegisterWorldStoreServer(server, srv)
	return server
}
