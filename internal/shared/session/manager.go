// Package session 维护玩家与 ws 连接的绑定：同一玩家只保留最新的一条连接。
package session

import (
	"sync"

	"GeoConquest/internal/shared/transport/ws"
)

// KickMsg 推给被顶下线的旧连接。
const KickMsg = "robLogin"

type Manager interface {
	Bind(playerID, token string, conn ws.WSConn)
	UnbindConn(conn ws.WSConn)
	UnbindPlayer(playerID string)
	GetConn(playerID string) (ws.WSConn, bool)
	GetPlayer(conn ws.WSConn) (string, bool)
	Token(playerID string) (string, bool)
	// OnUnbind 在连接解绑（关闭或被顶掉）后回调，用于释放玩家会话。
	OnUnbind(fn func(playerID string, conn ws.WSConn))
}

type SessMgr struct {
	sync.RWMutex
	player2token map[string]string
	player2conn  map[string]ws.WSConn
	conn2player  map[ws.WSConn]string
	watched      map[ws.WSConn]struct{}
	unbindHooks  []func(playerID string, conn ws.WSConn)
}

func NewSessMgr() Manager {
	return &SessMgr{
		player2token: make(map[string]string),
		player2conn:  make(map[string]ws.WSConn),
		conn2player:  make(map[ws.WSConn]string),
		watched:      make(map[ws.WSConn]struct{}),
	}
}

func (s *SessMgr) OnUnbind(fn func(playerID string, conn ws.WSConn)) {
	s.Lock()
	defer s.Unlock()
	s.unbindHooks = append(s.unbindHooks, fn)
}

func (s *SessMgr) Bind(playerID, token string, conn ws.WSConn) {
	if conn == nil || playerID == "" {
		return
	}
	s.Lock()

	// 为每条连接只启动一次 watcher：连接关闭后自动解绑，避免 conn2player 逐步膨胀
	if _, ok := s.watched[conn]; !ok {
		s.watched[conn] = struct{}{}
		go s.watchConnDone(conn)
	}

	// 同一连接换了身份：旧身份的绑定作废
	if prev, ok := s.conn2player[conn]; ok && prev != playerID && s.player2conn[prev] == conn {
		delete(s.player2conn, prev)
		delete(s.player2token, prev)
	}

	oldConn := s.player2conn[playerID]
	s.player2conn[playerID] = conn
	s.conn2player[conn] = playerID
	s.player2token[playerID] = token
	s.Unlock()

	// 踢掉原来的那个
	if oldConn != nil && oldConn != conn {
		oldConn.Push(KickMsg, nil)
		oldConn.Close()
	}
}

func (s *SessMgr) watchConnDone(conn ws.WSConn) {
	<-conn.Done()
	s.UnbindConn(conn)
}

func (s *SessMgr) UnbindConn(conn ws.WSConn) {
	s.Lock()
	playerID, bound := s.conn2player[conn]
	delete(s.watched, conn)
	delete(s.conn2player, conn)
	owned := bound && s.player2conn[playerID] == conn
	if owned {
		delete(s.player2conn, playerID)
		delete(s.player2token, playerID)
	}
	hooks := append([]func(string, ws.WSConn){}, s.unbindHooks...)
	s.Unlock()

	if owned {
		for _, fn := range hooks {
			fn(playerID, conn)
		}
	}
}

func (s *SessMgr) UnbindPlayer(playerID string) {
	s.Lock()
	defer s.Unlock()
	conn, ok := s.player2conn[playerID]
	if ok {
		delete(s.conn2player, conn)
	}
	delete(s.player2conn, playerID)
	delete(s.player2token, playerID)
}

func (s *SessMgr) GetConn(playerID string) (ws.WSConn, bool) {
	s.RLock()
	defer s.RUnlock()
	conn, ok := s.player2conn[playerID]
	return conn, ok
}

func (s *SessMgr) GetPlayer(conn ws.WSConn) (string, bool) {
	s.RLock()
	defer s.RUnlock()
	playerID, ok := s.conn2player[conn]
	return playerID, ok
}

func (s *SessMgr) Token(playerID string) (string, bool) {
	s.RLock()
	defer s.RUnlock()
	tok, ok := s.player2token[playerID]
	return tok, ok
}
