package session

import (
	"sync"
	"testing"
	"time"

	"GeoConquest/internal/shared/transport/ws"
)

type fakeConn struct {
	id     string
	mu     sync.Mutex
	pushed []string
	done   chan struct{}
	once   sync.Once
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id, done: make(chan struct{})}
}

func (c *fakeConn) SetProperty(string, any) {}
func (c *fakeConn) GetProperty(string) any  { return nil }
func (c *fakeConn) RemoveProperty(string)   {}
func (c *fakeConn) Addr() string            { return "127.0.0.1:0" }
func (c *fakeConn) ID() string              { return c.id }
func (c *fakeConn) Push(name string, _ any) {
	c.mu.Lock()
	c.pushed = append(c.pushed, name)
	c.mu.Unlock()
}
func (c *fakeConn) Close()                { c.once.Do(func() { close(c.done) }) }
func (c *fakeConn) Done() <-chan struct{} { return c.done }

func (c *fakeConn) pushes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.pushed...)
}

func TestSessMgr_重复登录踢掉旧连接(t *testing.T) {
	m := NewSessMgr()
	oldConn, newConn := newFakeConn("a"), newFakeConn("b")

	m.Bind("user_ana", "t1", oldConn)
	m.Bind("user_ana", "t2", newConn)

	if got := oldConn.pushes(); len(got) != 1 || got[0] != KickMsg {
		t.Fatalf("旧连接应收到踢下线通知, got=%v", got)
	}
	select {
	case <-oldConn.Done():
	default:
		t.Fatalf("旧连接应被关闭")
	}
	if c, ok := m.GetConn("user_ana"); !ok || c != newConn {
		t.Fatalf("应绑定新连接")
	}
	if tok, _ := m.Token("user_ana"); tok != "t2" {
		t.Fatalf("token=%s", tok)
	}
}

func TestSessMgr_连接关闭后自动解绑并回调(t *testing.T) {
	m := NewSessMgr()
	released := make(chan string, 1)
	m.OnUnbind(func(playerID string, _ ws.WSConn) { released <- playerID })

	conn := newFakeConn("c")
	m.Bind("user_bob", "t", conn)
	conn.Close()

	select {
	case id := <-released:
		if id != "user_bob" {
			t.Fatalf("id=%s", id)
		}
	case <-time.After(time.Second):
		t.Fatalf("没有收到解绑回调")
	}
	if _, ok := m.GetPlayer(conn); ok {
		t.Fatalf("关闭的连接不应仍绑定")
	}
}
