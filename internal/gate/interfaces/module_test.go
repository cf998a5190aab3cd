package interfaces

import (
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"GeoConquest/internal/client/local"
	"GeoConquest/internal/client/syncer"
	"GeoConquest/internal/conquest/domain"
	"GeoConquest/internal/conquest/engine"
	"GeoConquest/internal/gate/app"
	"GeoConquest/internal/shared/session"
	"GeoConquest/internal/shared/transport"
	transporthttp "GeoConquest/internal/shared/transport/http"
	"GeoConquest/internal/shared/transport/ws"
	"GeoConquest/modules/kit/logx"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type gateFixture struct {
	srv  *httptest.Server
	svc  *app.GateService
	cell string
}

func newGate(t *testing.T) *gateFixture {
	t.Helper()
	t.Setenv("JWT_SECRET", "gate-e2e")
	gin.SetMode(gin.TestMode)

	eng := engine.New(domain.DefaultRules(), nil)
	svc := app.NewGateService(eng, local.New(eng), app.Options{
		Sync: syncer.Config{PollInterval: time.Hour, WatchRetry: time.Hour, RequestTimeout: time.Second},
	}, nil)
	t.Cleanup(svc.Close)

	m := New(svc, session.NewSessMgr(), logx.Nop())
	router := ws.NewRouter(logx.Nop())
	m.WsRegister(router)
	hs := transporthttp.NewHttpServer(":0", nil, logx.Nop())
	m.HttpRegister(hs.Group())
	hs.Engine().GET("/ws", gin.WrapH(ws.NewServer(router, logx.Nop(), false)))

	srv := httptest.NewServer(hs.Handler())
	t.Cleanup(srv.Close)
	return &gateFixture{srv: srv, svc: svc, cell: eng.Grid().CellID(0.0001, 0.0001)}
}

func (f *gateFixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial err=%v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, seq int64, name string, msg any) {
	t.Helper()
	if err := conn.WriteJSON(ws.ReqBody{Seq: seq, Name: name, Msg: msg}); err != nil {
		t.Fatalf("write err=%v", err)
	}
}

// readUntil 读到满足 pred 的消息为止，中途的推送会交给 seen。
func readUntil(t *testing.T, conn *websocket.Conn, pred func(ws.RespBody) bool, seen func(ws.RespBody)) ws.RespBody {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		_ = conn.SetReadDeadline(deadline)
		var body ws.RespBody
		if err := conn.ReadJSON(&body); err != nil {
			t.Fatalf("read err=%v", err)
		}
		if pred(body) {
			return body
		}
		if seen != nil {
			seen(body)
		}
	}
}

func bySeq(seq int64) func(ws.RespBody) bool {
	return func(b ws.RespBody) bool { return b.Seq == seq && b.Name != ws.HandshakeMsg }
}

func TestGate_登录占领与推送(t *testing.T) {
	f := newGate(t)
	conn := f.dial(t)

	send(t, conn, 1, "account.login", map[string]any{"username": "Ana Silva", "lat": 0.0001, "lng": 0.0001})
	login := readUntil(t, conn, bySeq(1), nil)
	if login.Code != transport.OK {
		t.Fatalf("login resp=%+v", login)
	}
	data, _ := login.Msg.(map[string]any)
	token, _ := data["token"].(string)
	if token == "" {
		t.Fatalf("期望返回 token, msg=%v", login.Msg)
	}

	pushes := 0
	send(t, conn, 2, "conquest.claim", map[string]any{"cell": f.cell})
	claim := readUntil(t, conn, bySeq(2), func(b ws.RespBody) {
		if b.Name == "conquest.push" {
			pushes++
		}
	})
	if claim.Code != transport.OK {
		t.Fatalf("claim resp=%+v", claim)
	}
	if pushes == 0 {
		readUntil(t, conn, func(b ws.RespBody) bool { return b.Name == "conquest.push" }, nil)
	}

	send(t, conn, 3, "conquest.claim", map[string]any{"cell": f.cell})
	again := readUntil(t, conn, bySeq(3), nil)
	if again.Code != transport.ActionRejected {
		t.Fatalf("重复占领应被本地拒绝, resp=%+v", again)
	}

	req, err := nethttp.NewRequest(nethttp.MethodGet, f.srv.URL+"/api/world", nil)
	if err != nil {
		t.Fatalf("req err=%v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	res, err := nethttp.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("http err=%v", err)
	}
	defer res.Body.Close()
	var body struct {
		Code int `json:"code"`
		Data struct {
			Me struct {
				ID string `json:"id"`
			} `json:"me"`
		} `json:"data"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode err=%v", err)
	}
	if body.Code != transport.OK || body.Data.Me.ID != "user_ana_silva" {
		t.Fatalf("world body=%+v", body)
	}
}

func TestGate_未登录的请求(t *testing.T) {
	f := newGate(t)
	conn := f.dial(t)

	send(t, conn, 1, "conquest.claim", map[string]any{"cell": f.cell})
	if resp := readUntil(t, conn, bySeq(1), nil); resp.Code != transport.NotLoggedIn {
		t.Fatalf("resp=%+v", resp)
	}

	res, err := nethttp.Get(f.srv.URL + "/api/world")
	if err != nil {
		t.Fatalf("http err=%v", err)
	}
	defer res.Body.Close()
	var body struct {
		Code int `json:"code"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode err=%v", err)
	}
	if body.Code != transport.NotLoggedIn {
		t.Fatalf("code=%d", body.Code)
	}

	cat, err := nethttp.Get(f.srv.URL + "/api/catalog")
	if err != nil {
		t.Fatalf("http err=%v", err)
	}
	defer cat.Body.Close()
	if cat.StatusCode != nethttp.StatusOK {
		t.Fatalf("catalog status=%d", cat.StatusCode)
	}
}
