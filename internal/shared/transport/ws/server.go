package ws

import (
	"net/http"

	"GeoConquest/modules/kit/logx"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type Server struct {
	router   *Router
	log      logx.Logger
	compress bool
	upgrader websocket.Upgrader
}

func NewServer(r *Router, l logx.Logger, compress bool) *Server {
	if l == nil {
		l = logx.Nop()
	}
	return &Server{
		router:   r,
		log:      l,
		compress: compress,
		upgrader: websocket.Upgrader{
			// 允许所有CORS跨域请求
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (s *Server) ServeHTTP(resp http.ResponseWriter, req *http.Request) {
	wsConn, err := s.upgrader.Upgrade(resp, req, nil)
	if err != nil {
		s.log.Error("websocket upgrade error", zap.Error(err))
		return
	}

	wsServer := NewWsServer(wsConn, s.log, s.compress)
	wsServer.Router(s.router)
	s.log.Info("websocket upgrade success", zap.String("conn", wsServer.ID()), zap.String("addr", wsServer.Addr()))

	wsServer.handshake()
	wsServer.Run()
}
