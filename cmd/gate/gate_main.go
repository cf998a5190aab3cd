package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"GeoConquest/internal/client/remote"
	"GeoConquest/internal/client/syncer"
	"GeoConquest/internal/conquest/engine"
	"GeoConquest/internal/gate/app"
	"GeoConquest/internal/gate/interfaces"
	"GeoConquest/internal/shared/config"
	"GeoConquest/internal/shared/logs"
	"GeoConquest/internal/shared/session"
	transporthttp "GeoConquest/internal/shared/transport/http"
	"GeoConquest/internal/shared/transport/ws"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	cfgPath := flag.String("config", "", "配置文件路径，默认向上查找 configs/conf.yml")
	flag.Parse()

	_ = godotenv.Load()

	conf, err := config.Load(*cfgPath)
	if err != nil {
		panic(err)
	}
	if err := logs.Init("gate", conf.Log); err != nil {
		panic(err)
	}
	defer logs.Sync()
	config.OnChange(func(next config.Config) {
		logs.SetLevel(next.Log.Level)
	})
	logs.Info("conf", zap.Any("conf", conf))

	// 环境变量优先，配置文件里的 jwt_secret 只做兜底
	if os.Getenv("JWT_SECRET") == "" && conf.JWTSecret != "" {
		_ = os.Setenv("JWT_SECRET", conf.JWTSecret)
	}

	gateConf := conf.Gate
	gateHost := gateConf.Host
	if gateHost == "" {
		gateHost = "0.0.0.0"
	}
	gateServerAddr := fmt.Sprintf("%s:%d", gateHost, gateConf.Port)

	baseLogger := logs.Kit()
	worldStore, err := remote.Dial(gateConf.WorldAddr, baseLogger)
	if err != nil {
		logs.Fatal("dial world store failed", zap.String("addr", gateConf.WorldAddr), zap.Error(err))
	}
	defer func() {
		_ = worldStore.Close()
	}()

	eng := engine.New(conf.Rules, conf.ShopCatalog())
	svc := app.NewGateService(eng, worldStore, app.Options{
		Sync: syncer.Config{
			PollInterval:   conf.Sync.PollInterval,
			RequestTimeout: conf.Sync.RequestTimeout,
			WatchRetry:     conf.Sync.WatchRetry,
			OfflineCombat:  syncer.OfflinePolicy(conf.Sync.OfflineCombat),
		},
		RateLimit: rate.Limit(gateConf.RateLimit),
		RateBurst: gateConf.RateBurst,
		CacheDir:  conf.SQLite.Dir,
	}, baseLogger)
	defer svc.Close()

	sessMgr := session.NewSessMgr()
	wsRouter := ws.NewRouter(baseLogger)
	gateModule := interfaces.New(svc, sessMgr, baseLogger)
	for _, m := range []ws.Registrar{gateModule} {
		m.WsRegister(wsRouter)
	}

	httpServer := transporthttp.NewHttpServer(gateServerAddr, nil, baseLogger)
	for _, m := range []transporthttp.Registrar{gateModule} {
		m.HttpRegister(httpServer.Group())
	}

	wsPath := gateConf.WSPath
	if wsPath == "" {
		wsPath = "/ws"
	}
	wsServer := ws.NewServer(wsRouter, baseLogger, gateConf.Compress)
	httpServer.Engine().Any(wsPath, gin.WrapH(wsServer))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logs.Info("gate started", zap.String("addr", gateServerAddr), zap.String("ws", wsPath), zap.String("world", gateConf.WorldAddr))
		if err := httpServer.Start(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			errCh <- fmt.Errorf("gate server start failed: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		logs.Info("收到退出信号，准备优雅退出")
	case err := <-errCh:
		if err != nil {
			logs.Error("服务异常退出", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
}
