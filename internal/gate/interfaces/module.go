package interfaces

import (
	"GeoConquest/internal/gate/app"
	"GeoConquest/internal/gate/interfaces/handler/http"
	ws2 "GeoConquest/internal/gate/interfaces/handler/ws"
	"GeoConquest/internal/shared/session"
	transporthttp "GeoConquest/internal/shared/transport/http"
	"GeoConquest/internal/shared/transport/ws"
	"GeoConquest/modules/kit/logx"

	"github.com/gin-gonic/gin"
)

type Module struct {
	wsHandler   *ws2.WsHandler
	httpHandler *http.HttpHandler
}

func New(svc *app.GateService, s session.Manager, log logx.Logger) *Module {
	return &Module{
		wsHandler:   ws2.NewWsHandler(svc, s, log),
		httpHandler: http.NewHttpHandler(svc, log),
	}
}

func (m *Module) WsRegister(r *ws.Router) {
	m.wsHandler.RegisterRoutes(r)
}

func (m *Module) HttpRegister(g *gin.RouterGroup) {
	m.httpHandler.RegisterRoutes(g)
}

var _ ws.Registrar = (*Module)(nil)
var _ transporthttp.Registrar = (*Module)(nil)
