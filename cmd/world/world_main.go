package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os/signal"
	"syscall"
	"time"

	"GeoConquest/internal/conquest/engine"
	"GeoConquest/internal/shared/config"
	"GeoConquest/internal/shared/infrastructure/db"
	sharedmongo "GeoConquest/internal/shared/infrastructure/mongo"
	"GeoConquest/internal/shared/logs"
	transportgrpc "GeoConquest/internal/shared/transport/grpc"
	worldactor "GeoConquest/internal/world/actor"
	"GeoConquest/internal/world/app/port"
	"GeoConquest/internal/world/infra/journal"
	"GeoConquest/internal/world/infra/persistence/memory"
	worldmongo "GeoConquest/internal/world/infra/persistence/mongodb"
	worldmysql "GeoConquest/internal/world/infra/persistence/mysql"
	"GeoConquest/internal/world/interfaces/rpc"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	cfgPath := flag.String("config", "", "配置文件路径，默认向上查找 configs/conf.yml")
	flag.Parse()

	// .env 只是本地开发的便利，不存在时忽略
	_ = godotenv.Load()

	conf, err := config.Load(*cfgPath)
	if err != nil {
		panic(err)
	}
	if err := logs.Init("world", conf.Log); err != nil {
		panic(err)
	}
	defer logs.Sync()
	config.OnChange(func(next config.Config) {
		logs.SetLevel(next.Log.Level)
		logs.Info("config reloaded", zap.String("level", next.Log.Level))
	})
	logs.Info("conf", zap.Any("conf", conf))

	repo, closeRepo, err := openRepository(conf)
	if err != nil {
		logs.Fatal("open world repository failed", zap.String("driver", conf.Store.Driver), zap.Error(err))
	}
	defer closeRepo()

	baseLogger := logs.Kit()
	eng := engine.New(conf.Rules, conf.ShopCatalog())
	runtime, err := worldactor.NewRuntime(repo, eng, worldactor.Options{
		AskTimeout:  conf.World.AskTimeout,
		FlushEvery:  conf.World.FlushEvery,
		WatchBuffer: conf.World.WatchBuffer,
		NodeID:      conf.World.NodeID,
		Log:         baseLogger,
	})
	if err != nil {
		logs.Fatal("start world runtime failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	journalDone := make(chan struct{})
	if conf.World.JournalDir != "" {
		events, err := runtime.Watch(ctx)
		if err != nil {
			logs.Fatal("subscribe world events failed", zap.Error(err))
		}
		w := journal.NewWriter(conf.World.JournalDir)
		go func() {
			defer close(journalDone)
			w.Run(ctx, events, conf.World.FlushEvery, baseLogger)
		}()
	} else {
		close(journalDone)
	}

	host := conf.World.Host
	if host == "" {
		host = "0.0.0.0"
	}
	addr := fmt.Sprintf("%s:%d", host, conf.World.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		logs.Fatal("listen world addr failed", zap.String("addr", addr), zap.Error(err))
	}
	server := transportgrpc.NewWorldStoreServer(rpc.NewServer(runtime, baseLogger))

	errCh := make(chan error, 1)
	go func() {
		logs.Info("world store started", zap.String("addr", addr), zap.String("driver", conf.Store.Driver))
		errCh <- server.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		logs.Info("收到退出信号，准备优雅退出")
	case err := <-errCh:
		if err != nil {
			logs.Error("服务异常退出", zap.Error(err))
		}
	}
	stop()

	stopped := make(chan struct{})
	go func() {
		server.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(10 * time.Second):
		server.Stop()
	}
	runtime.Shutdown()
	<-journalDone
}

// openRepository 按 store.driver 选择持久化后端，返回的 close 负责释放连接。
func openRepository(conf config.Config) (port.WorldRepository, func(), error) {
	switch conf.Store.Driver {
	case config.StoreMemory:
		return memory.NewWorldRepository(), func() {}, nil
	case config.StoreMongoDB:
		client, err := sharedmongo.Open(conf.MongoDB, logs.Logger())
		if err != nil {
			return nil, nil, err
		}
		repo := worldmongo.NewWorldRepository(client.Database(conf.MongoDB.Database))
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, err
		}
		return repo, func() { _ = client.Disconnect(context.Background()) }, nil
	case config.StoreMySQL:
		gdb, err := db.Open(conf.MySQL)
		if err != nil {
			return nil, nil, err
		}
		repo := worldmysql.NewWorldRepository(gdb)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := repo.Migrate(ctx); err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if sqlDB, err := gdb.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		return repo, closeFn, nil
	default:
		return nil, nil, errors.New("unknown store driver: " + conf.Store.Driver)
	}
}
