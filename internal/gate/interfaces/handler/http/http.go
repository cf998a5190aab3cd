package http

import (
	"context"
	nethttp "net/http"
	"strings"

	"GeoConquest/internal/conquest/domain"
	"GeoConquest/internal/gate/app"
	"GeoConquest/internal/gate/interfaces/handler"
	"GeoConquest/internal/gate/interfaces/handler/http/dto"
	"GeoConquest/internal/shared/security"
	"GeoConquest/internal/shared/transport"
	"GeoConquest/modules/kit/logx"

	"github.com/gin-gonic/gin"
)

const ctxKeyPlayer = "player"

type HttpHandler struct {
	svc *app.GateService
	log logx.Logger
}

func NewHttpHandler(svc *app.GateService, log logx.Logger) *HttpHandler {
	if log == nil {
		log = logx.Nop()
	}
	return &HttpHandler{svc: svc, log: log}
}

func (h *HttpHandler) RegisterRoutes(group *gin.RouterGroup) {
	api := group.Group("/api")
	api.GET("/catalog", h.Catalog)
	api.GET("/rules", h.Rules)

	authed := api.Group("", h.auth)
	authed.GET("/world", h.World)
	authed.POST("/world/sync", h.Sync)
}

// auth 校验 Authorization: Bearer <token>，把玩家 id 放进 gin.Context。
func (h *HttpHandler) auth(c *gin.Context) {
	raw := c.GetHeader("Authorization")
	token, found := strings.CutPrefix(raw, "Bearer ")
	if !found || token == "" {
		h.error(c.Request.Context(), c, "http.auth", app.ErrBadToken)
		c.Abort()
		return
	}
	_, claims, err := security.ParseToken(token)
	if err != nil {
		h.error(c.Request.Context(), c, "http.auth", app.ErrBadToken.WithCause(err))
		c.Abort()
		return
	}
	c.Set(ctxKeyPlayer, domain.PlayerID(claims.PlayerID))
	c.Next()
}

func (h *HttpHandler) Catalog(c *gin.Context) {
	h.ok(c, h.svc.Catalog())
}

func (h *HttpHandler) Rules(c *gin.Context) {
	h.ok(c, h.svc.Rules())
}

func (h *HttpHandler) World(c *gin.Context) {
	view, err := h.svc.World(playerOf(c))
	if err != nil {
		h.error(c.Request.Context(), c, "http.world", err)
		return
	}
	h.ok(c, view)
}

func (h *HttpHandler) Sync(c *gin.Context) {
	ctx := c.Request.Context()
	view, err := h.svc.Sync(ctx, playerOf(c))
	if err != nil {
		h.error(ctx, c, "http.sync", err)
		return
	}
	h.ok(c, view)
}

func playerOf(c *gin.Context) domain.PlayerID {
	v, _ := c.Get(ctxKeyPlayer)
	id, _ := v.(domain.PlayerID)
	return id
}

func (h *HttpHandler) ok(c *gin.Context, data any) {
	c.JSON(nethttp.StatusOK, dto.Success(transport.OK, data))
}

func (h *HttpHandler) fail(c *gin.Context, code int, msg string) {
	c.JSON(nethttp.StatusOK, dto.Error(code, msg))
}

func (h *HttpHandler) error(ctx context.Context, c *gin.Context, action string, err error) {
	code, msg := handler.HandleError(ctx, h.log, action, err)
	h.fail(c, code, msg)
}
