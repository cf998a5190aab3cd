package handler

import (
	"context"
	"errors"

	"GeoConquest/internal/conquest/domain"
	"GeoConquest/internal/gate/app"
	"GeoConquest/internal/shared/transport"
	"GeoConquest/modules/kit/errx"
	"GeoConquest/modules/kit/logx"
)

const busyMsg = "系统繁忙，请稍后重试"

func mapErrToClientCode(err error) int {
	switch {
	case err == nil:
		return transport.OK
	case errors.Is(err, domain.ErrEliminated):
		return transport.PlayerEliminated
	case errors.Is(err, domain.ErrOfflineRejected):
		return transport.OfflineRejected
	case errors.Is(err, app.ErrNotLoggedIn), errors.Is(err, domain.ErrSessionNotStarted), errors.Is(err, app.ErrBadToken):
		return transport.NotLoggedIn
	case errors.Is(err, errx.ErrRateLimited):
		return transport.RateLimited
	case errors.Is(err, errx.ErrReqParamERR):
		return transport.InvalidParam
	case errx.IsValidation(err):
		return transport.ActionRejected
	case errx.IsConflict(err):
		return transport.ActionConflict
	case errors.Is(err, errx.ErrTimeout):
		return transport.UpstreamTimeout
	case errors.Is(err, errx.ErrUnavailable):
		return transport.UpstreamUnavailable
	default:
		return transport.SystemError
	}
}

// HandleError 把错误映射成客户端业务码和提示，并记录到 access 日志和业务/系统日志。
func HandleError(ctx context.Context, log logx.Logger, action string, err error) (int, string) {
	var e *errx.Error
	if !errors.As(err, &e) {
		logx.ReportError(ctx, log, action, err)
		return transport.SystemError, busyMsg
	}
	reason := e.Reason()
	if reason == "" {
		reason = string(e.Code())
	}
	transport.SetErrorReason(ctx, reason)

	code := mapErrToClientCode(err)
	switch code {
	case transport.SystemError, transport.UpstreamInternal:
		logx.ReportError(ctx, log, action, err)
		return code, busyMsg
	case transport.OfflineRejected, transport.RateLimited:
		// 系统类错误码，但属于预期内的拒绝
		logx.ReportBiz(ctx, log, logx.NewBizLog(action, reason, e.Msg()))
	default:
		logx.ReportError(ctx, log, action, err)
	}
	return code, e.Msg()
}
