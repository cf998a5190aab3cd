package ws

import (
	"fmt"
	"sync"
	"time"

	"GeoConquest/modules/kit/logx"

	"github.com/go-viper/mapstructure/v2"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait   = 10 * time.Second
	outChanSize = 1000
)

type WsServer struct {
	conn     *websocket.Conn
	id       string
	router   *Router
	outChan  chan *WsMsgResp
	compress bool
	property map[string]any
	sync.RWMutex
	done      chan struct{}
	closeOnce sync.Once
	log       logx.Logger
}

func NewWsServer(wsConn *websocket.Conn, l logx.Logger, compress bool) *WsServer {
	id := uuid.NewString()
	return &WsServer{
		conn:     wsConn,
		id:       id,
		outChan:  make(chan *WsMsgResp, outChanSize),
		compress: compress,
		property: make(map[string]any),
		done:     make(chan struct{}),
		log:      l.With(zap.String("conn", id)),
	}
}

func (s *WsServer) Router(router *Router) {
	s.router = router
}

func (s *WsServer) SetProperty(key string, value any) {
	s.Lock()
	defer s.Unlock()
	s.property[key] = value
}

func (s *WsServer) GetProperty(key string) any {
	s.RLock()
	defer s.RUnlock()
	return s.property[key]
}

func (s *WsServer) RemoveProperty(key string) {
	s.Lock()
	defer s.Unlock()
	delete(s.property, key)
}

func (s *WsServer) Addr() string {
	return s.conn.RemoteAddr().String()
}

func (s *WsServer) ID() string {
	return s.id
}

// Push 主动推送；连接关闭后丢弃。
func (s *WsServer) Push(name string, data any) {
	s.enqueue(&WsMsgResp{Body: &RespBody{Name: name, Msg: data}})
}

func (s *WsServer) enqueue(rsp *WsMsgResp) {
	select {
	case s.outChan <- rsp:
	case <-s.done:
	}
}

func (s *WsServer) Run() {
	go s.readMsgLoop()
	go s.writeMsgLoop()
}

func (s *WsServer) readMsgLoop() {
	defer func() {
		if err := recover(); err != nil {
			s.log.Error("ws readMsgLoop error", zap.String("err", fmt.Sprintf("%v", err)))
		}
		s.Close()
	}()
	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Warn("ws_server read msg", zap.Error(err))
			}
			return
		}

		reqBody, err := decodeFrame(msgType, data)
		if err != nil {
			s.log.Error("ws_server readMsgLoop decode error", zap.Error(err))
			continue
		}

		req := WsMsgReq{Body: reqBody, Conn: s}
		// req 和 resp 的 Seq 必须一致
		resp := WsMsgResp{Body: &RespBody{Seq: reqBody.Seq, Name: reqBody.Name, Msg: reqBody.Msg}}
		if reqBody.Name == HeartbeatMsg {
			h := &Heartbeat{}
			if err := mapstructure.Decode(reqBody.Msg, h); err != nil {
				s.log.Debug("ws_server heartbeat decode", zap.Error(err))
			}
			h.STime = time.Now().UnixMilli()
			resp.Body.Msg = h
		} else {
			s.log.Debug("ws_server read msg", zap.String("name", reqBody.Name), zap.Int64("seq", reqBody.Seq))
			s.router.Dispatch(&req, &resp)
		}

		s.enqueue(&resp)
	}
}

func (s *WsServer) writeMsgLoop() {
	for {
		select {
		case msg := <-s.outChan:
			s.write(msg)
		case <-s.done:
			return
		}
	}
}

func (s *WsServer) Close() {
	s.closeOnce.Do(func() {
		_ = s.conn.Close()
		close(s.done)
	})
}

func (s *WsServer) Done() <-chan struct{} {
	return s.done
}

func (s *WsServer) write(msg *WsMsgResp) {
	msgType, frame, err := encodeFrame(msg.Body, s.compress)
	if err != nil {
		s.log.Error("ws_server write encode error", zap.String("name", msg.Body.Name), zap.Error(err))
		return
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteMessage(msgType, frame); err != nil {
		s.log.Warn("ws_server write error", zap.Error(err))
		s.Close()
	}
}

// handshake 排进写队列，保证连接上只有写协程一个写者。
func (s *WsServer) handshake() {
	s.enqueue(&WsMsgResp{Body: &RespBody{
		Name: HandshakeMsg,
		Msg:  &Handshake{ConnID: s.id, Compress: s.compress},
	}})
}
