package errx

// 跨模块统一的系统类错误码。
// 业务域错误码（例如 CONQUEST_NOT_OWNER）由各业务包自行定义，不在 kit 里集中。
const (
	// CodeInternal 表示内部不可预期错误（兜底）。
	CodeInternal Code = "INTERNAL_ERROR"
	// CodeUnavailable 表示依赖不可用（存储不可达、网络异常等）。
	CodeUnavailable Code = "SERVICE_UNAVAILABLE"
	// CodeTimeout 表示请求/依赖调用超时。
	CodeTimeout Code = "TIMEOUT"
	// CodeRateLimited 表示被限流。
	CodeRateLimited Code = "RATE_LIMITED"
	// CodeReqParamError 请求参数错误
	CodeReqParamError Code = "CODE_REQ_PARAM_ERROR"
)

// 统一系统类哨兵错误（通过 WithData/WithCause 派生新对象，禁止直接修改）。
var (
	ErrInternal    = NewSys(CodeInternal, "internal error")
	ErrUnavailable = NewSys(CodeUnavailable, "store unavailable")
	ErrTimeout     = NewSys(CodeTimeout, "request timed out")
	ErrRateLimited = NewSys(CodeRateLimited, "too many requests")
	ErrReqParamERR = NewBiz(CodeReqParamError, "invalid request parameter")
)
