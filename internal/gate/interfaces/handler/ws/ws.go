package ws

import (
	"context"

	"GeoConquest/internal/client/syncer"
	"GeoConquest/internal/conquest/domain"
	"GeoConquest/internal/gate/app"
	"GeoConquest/internal/gate/app/model"
	"GeoConquest/internal/gate/interfaces/handler"
	"GeoConquest/internal/gate/interfaces/handler/ws/dto"
	"GeoConquest/internal/shared/session"
	"GeoConquest/internal/shared/transport"
	"GeoConquest/internal/shared/transport/ws"
	"GeoConquest/modules/kit/logx"
)

// PushMsg 是服务端推送的路由名。
const PushMsg = "conquest.push"

type WsHandler struct {
	svc     *app.GateService
	session session.Manager
	log     logx.Logger
}

func NewWsHandler(svc *app.GateService, s session.Manager, log logx.Logger) *WsHandler {
	if log == nil {
		log = logx.Nop()
	}
	h := &WsHandler{svc: svc, session: s, log: log}
	s.OnUnbind(func(playerID string, _ ws.WSConn) {
		svc.Release(domain.PlayerID(playerID), nil)
	})
	return h
}

func (h *WsHandler) RegisterRoutes(r *ws.Router) {
	accountGroup := r.Group("account")
	accountGroup.Handle("login", h.Login)

	conquestGroup := r.Group("conquest")
	conquestGroup.Handle("claim", h.claim)
	conquestGroup.Handle("attack", h.attack)
	conquestGroup.Handle("purchase", h.purchase)
	conquestGroup.Handle("use", h.use)
	conquestGroup.Handle("transfer", h.transfer)
	conquestGroup.Handle("snapshot", h.snapshot)
	conquestGroup.Handle("sync", h.sync)
	conquestGroup.Handle("catalog", h.catalog)
}

func (h *WsHandler) Login(ctx context.Context, wsReq *ws.WsMsgReq, wsResp *ws.WsMsgResp) {
	if wsReq == nil || wsReq.Body == nil || wsReq.Conn == nil || wsResp == nil || wsResp.Body == nil {
		h.fail(wsResp, transport.InvalidParam, "参数有误")
		return
	}

	var req model.LoginReq
	if err := ws.BindJSON(wsReq, &req); err != nil {
		h.fail(wsResp, transport.InvalidParam, "参数有误")
		return
	}

	resp, sess, err := h.svc.Login(ctx, req)
	if err != nil {
		h.error(ctx, wsResp, "account.login", err)
		return
	}

	wsReq.Conn.SetProperty(ws.ConnKeyPlayer, string(resp.Player.ID))
	h.session.Bind(string(resp.Player.ID), resp.Token, wsReq.Conn)
	go h.forward(wsReq.Conn, sess)
	h.ok(wsResp, resp)
}

// forward 把会话更新推给连接，会话关闭（Updates 关闭）或连接断开时退出。
func (h *WsHandler) forward(conn ws.WSConn, sess *syncer.Session) {
	for {
		select {
		case <-conn.Done():
			return
		case u, ok := <-sess.Updates():
			if !ok {
				return
			}
			push := model.Push{Kind: string(u.Kind), Event: u.Event, Mode: u.Mode}
			if u.Kind == syncer.UpdateSnapshot || u.Kind == syncer.UpdateEliminated {
				v := app.View(sess)
				push.World = &v
			}
			conn.Push(PushMsg, push)
		}
	}
}

func (h *WsHandler) claim(ctx context.Context, wsReq *ws.WsMsgReq, wsResp *ws.WsMsgResp) {
	var req dto.ClaimReq
	id, ok := h.bind(wsReq, wsResp, &req)
	if !ok {
		return
	}
	rep, err := h.svc.Claim(ctx, id, req.Cell)
	h.reply(ctx, wsResp, "conquest.claim", rep, err)
}

func (h *WsHandler) attack(ctx context.Context, wsReq *ws.WsMsgReq, wsResp *ws.WsMsgResp) {
	var req dto.AttackReq
	id, ok := h.bind(wsReq, wsResp, &req)
	if !ok {
		return
	}
	rep, err := h.svc.Attack(ctx, id, req.Source, req.Target)
	h.reply(ctx, wsResp, "conquest.attack", rep, err)
}

func (h *WsHandler) purchase(ctx context.Context, wsReq *ws.WsMsgReq, wsResp *ws.WsMsgResp) {
	var req dto.PurchaseReq
	id, ok := h.bind(wsReq, wsResp, &req)
	if !ok {
		return
	}
	rep, err := h.svc.Purchase(ctx, id, req.Item)
	h.reply(ctx, wsResp, "conquest.purchase", rep, err)
}

func (h *WsHandler) use(ctx context.Context, wsReq *ws.WsMsgReq, wsResp *ws.WsMsgResp) {
	var req dto.UseReq
	id, ok := h.bind(wsReq, wsResp, &req)
	if !ok {
		return
	}
	rep, err := h.svc.UseItem(ctx, id, req.Item, req.Target)
	h.reply(ctx, wsResp, "conquest.use", rep, err)
}

func (h *WsHandler) transfer(ctx context.Context, wsReq *ws.WsMsgReq, wsResp *ws.WsMsgResp) {
	var req dto.TransferReq
	id, ok := h.bind(wsReq, wsResp, &req)
	if !ok {
		return
	}
	rep, err := h.svc.Transfer(ctx, id, req.Source, req.Target, req.Amount)
	h.reply(ctx, wsResp, "conquest.transfer", rep, err)
}

func (h *WsHandler) snapshot(ctx context.Context, wsReq *ws.WsMsgReq, wsResp *ws.WsMsgResp) {
	id, ok := h.bind(wsReq, wsResp, nil)
	if !ok {
		return
	}
	view, err := h.svc.World(id)
	h.reply(ctx, wsResp, "conquest.snapshot", view, err)
}

func (h *WsHandler) sync(ctx context.Context, wsReq *ws.WsMsgReq, wsResp *ws.WsMsgResp) {
	id, ok := h.bind(wsReq, wsResp, nil)
	if !ok {
		return
	}
	view, err := h.svc.Sync(ctx, id)
	h.reply(ctx, wsResp, "conquest.sync", view, err)
}

func (h *WsHandler) catalog(_ context.Context, _ *ws.WsMsgReq, wsResp *ws.WsMsgResp) {
	h.ok(wsResp, h.svc.Catalog())
}

// bind 解析请求体并取出连接绑定的玩家；dst 为 nil 时不解析请求体。
func (h *WsHandler) bind(wsReq *ws.WsMsgReq, wsResp *ws.WsMsgResp, dst any) (domain.PlayerID, bool) {
	if wsReq == nil || wsReq.Body == nil || wsReq.Conn == nil || wsResp == nil || wsResp.Body == nil {
		h.fail(wsResp, transport.InvalidParam, "参数有误")
		return "", false
	}
	if dst != nil {
		if err := ws.BindJSON(wsReq, dst); err != nil {
			h.fail(wsResp, transport.InvalidParam, "参数有误")
			return "", false
		}
	}
	playerID, ok := h.session.GetPlayer(wsReq.Conn)
	if !ok {
		h.fail(wsResp, transport.NotLoggedIn, app.ReasonNotLoggedIn.Message)
		return "", false
	}
	return domain.PlayerID(playerID), true
}

func (h *WsHandler) reply(ctx context.Context, resp *ws.WsMsgResp, action string, data any, err error) {
	if err != nil {
		h.error(ctx, resp, action, err)
		return
	}
	h.ok(resp, data)
}

func (h *WsHandler) ok(resp *ws.WsMsgResp, data any) {
	if resp == nil || resp.Body == nil {
		return
	}
	resp.Body.Code = transport.OK
	resp.Body.Msg = data
}

func (h *WsHandler) fail(resp *ws.WsMsgResp, code int, msg string) {
	if resp == nil || resp.Body == nil {
		return
	}
	resp.Body.Code = code
	if msg != "" {
		resp.Body.Msg = msg
	}
}

func (h *WsHandler) error(ctx context.Context, resp *ws.WsMsgResp, action string, err error) {
	code, msg := handler.HandleError(ctx, h.log, action, err)
	h.fail(resp, code, msg)
}
