package transport

// BizCode 表示业务码的强类型封装，用于在日志上下文中减少误传风险。
type BizCode int

// 客户端可见的业务码。
const (
	OK             = 0
	InvalidParam   = 1
	SystemError    = 2
	SessionInvalid = 3
	RateLimited    = 4

	// 征服玩法
	ActionRejected   = 100 // 本地校验失败，附带原因
	ActionConflict   = 101 // 与权威状态冲突，已回滚并重新同步
	OfflineRejected  = 102 // 离线时不允许的操作
	PlayerEliminated = 103 // 玩家已被淘汰，需要用新身份重新进入
	NotLoggedIn      = 104

	// 网关到世界服
	UpstreamUnavailable = 200
	UpstreamTimeout     = 201
	UpstreamInternal    = 202
)
