package app

type Reason struct {
	Code    string
	Message string
}

func (r Reason) ReasonCode() string {
	return r.Code
}

func NewReason(c, m string) Reason {
	return Reason{
		Code:    c,
		Message: m,
	}
}

var (
	// 世界服技术错误 reason（全局约定）。
	ReasonUpstreamUnavailable = NewReason("UPSTREAM_UNAVAILABLE", "世界服不可用")
	ReasonUpstreamTimeout     = NewReason("UPSTREAM_TIMEOUT", "世界服超时")
	ReasonTokenUnavailable    = NewReason("TOKEN_UNAVAILABLE", "无法签发登录凭证")
	ReasonOfflineCache        = NewReason("OFFLINE_CACHE", "离线缓存不可用")
)

var (
	ReasonNotLoggedIn   = NewReason("NOT_LOGGED_IN", "请先登录")
	ReasonRateLimited   = NewReason("RATE_LIMITED", "操作太频繁")
	ReasonBadToken      = NewReason("BAD_TOKEN", "登录凭证无效")
	ReasonBadCoordinate = NewReason("BAD_COORDINATE", "坐标必须成对出现")
)
