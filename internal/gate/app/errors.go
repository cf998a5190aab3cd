package app

import (
	"GeoConquest/modules/kit/errx"
)

const (
	CodeNotLoggedIn errx.Code = "GATE_NOT_LOGGED_IN"
	CodeBadToken    errx.Code = "GATE_BAD_TOKEN"
)

var (
	// ErrUnavailable 表示世界服不可用。
	ErrUnavailable = errx.ErrUnavailable
	// ErrInternalServer 表示网关内部技术错误。
	ErrInternalServer = errx.ErrInternal
	ErrRateLimited    = errx.ErrRateLimited.WithReason(ReasonRateLimited)
	ErrNotLoggedIn    = errx.NewBiz(CodeNotLoggedIn, ReasonNotLoggedIn.Message).WithReason(ReasonNotLoggedIn)
	ErrBadToken       = errx.NewBiz(CodeBadToken, ReasonBadToken.Message).WithReason(ReasonBadToken)
	ErrBadCoordinate  = errx.ErrReqParamERR.WithMsg(ReasonBadCoordinate.Message).WithReason(ReasonBadCoordinate)
)
