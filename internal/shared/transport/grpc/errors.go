package grpc

import (
	"context"
	"errors"

	"GeoConquest/modules/kit/errx"

	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const (
	errKindHeader   = "x-err-kind"
	errCodeHeader   = "x-err-code"
	errReasonHeader = "x-err-reason"
)

// ToStatus 把 errx 错误映射成 grpc status：校验类 → InvalidArgument，冲突类 → Aborted，
// 连接类按超时/不可达区分，其余为 Internal。
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok && !isErrx(err) {
		return err
	}
	msg := "internal error"
	var e *errx.Error
	if errors.As(err, &e) {
		msg = e.Msg()
	}
	switch {
	case errors.Is(err, errx.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, msg)
	case errors.Is(err, errx.ErrUnavailable):
		return status.Error(codes.Unavailable, msg)
	case errors.Is(err, errx.ErrRateLimited):
		return status.Error(codes.ResourceExhausted, msg)
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, msg)
	}
	switch errx.KindOf(err) {
	case errx.KindValidation:
		return status.Error(codes.InvalidArgument, msg)
	case errx.KindConflict:
		return status.Error(codes.Aborted, msg)
	default:
		return status.Error(codes.Internal, msg)
	}
}

// ErrorTrailer 携带 errx 的 kind/code/reason，客户端据此原样还原错误。
func ErrorTrailer(err error) metadata.MD {
	var e *errx.Error
	if !errors.As(err, &e) || e == nil {
		return nil
	}
	md := metadata.Pairs(
		errKindHeader, e.Kind().String(),
		errCodeHeader, string(e.Code()),
	)
	if r := e.Reason(); r != "" {
		md.Set(errReasonHeader, r)
	}
	return md
}

// FromStatus 是 ToStatus/ErrorTrailer 的逆过程。没有 trailer 时按 status code 兜底。
func FromStatus(err error, trailer metadata.MD) error {
	if err == nil {
		return nil
	}
	if isErrx(err) {
		return err
	}
	st, ok := status.FromError(err)
	if !ok {
		if errors.Is(err, context.DeadlineExceeded) {
			return errx.ErrTimeout.WithCause(err)
		}
		return errx.ErrUnavailable.WithCause(err)
	}
	if code := first(trailer, errCodeHeader); code != "" {
		kind, ok := parseKind(first(trailer, errKindHeader))
		if ok {
			return errx.Restore(kind, errx.Code(code), st.Message(), first(trailer, errReasonHeader))
		}
	}
	switch st.Code() {
	case codes.DeadlineExceeded, codes.Canceled:
		return errx.ErrTimeout.WithCause(err)
	case codes.Unavailable:
		return errx.ErrUnavailable.WithCause(err)
	case codes.ResourceExhausted:
		return errx.ErrRateLimited.WithCause(err)
	case codes.InvalidArgument:
		return errx.ErrReqParamERR.WithMsg(st.Message())
	default:
		return errx.ErrInternal.WithCause(err)
	}
}

// UnaryServerErrorInterceptor 在服务端出口统一做错误映射。
func UnaryServerErrorInterceptor() gogrpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *gogrpc.UnaryServerInfo, handler gogrpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		if err == nil {
			return resp, nil
		}
		if md := ErrorTrailer(err); md != nil {
			_ = gogrpc.SetTrailer(ctx, md)
		}
		return nil, ToStatus(err)
	}
}

func StreamServerErrorInterceptor() gogrpc.StreamServerInterceptor {
	return func(srv any, ss gogrpc.ServerStream, info *gogrpc.StreamServerInfo, handler gogrpc.StreamHandler) error {
		err := handler(srv, ss)
		if err == nil {
			return nil
		}
		if md := ErrorTrailer(err); md != nil {
			ss.SetTrailer(md)
		}
		return ToStatus(err)
	}
}

// UnaryClientErrorInterceptor 读取 trailer 并把 status 还原成 errx 错误。
func UnaryClientErrorInterceptor() gogrpc.UnaryClientInterceptor {
	return func(
		ctx context.Context,
		method string,
		req, reply any,
		cc *gogrpc.ClientConn,
		invoker gogrpc.UnaryInvoker,
		opts ...gogrpc.CallOption,
	) error {
		var trailer metadata.MD
		opts = append(opts, gogrpc.Trailer(&trailer))
		return FromStatus(invoker(ctx, method, req, reply, cc, opts...), trailer)
	}
}

func isErrx(err error) bool {
	var e *errx.Error
	return errors.As(err, &e)
}

func parseKind(s string) (errx.Kind, bool) {
	switch s {
	case errx.KindValidation.String():
		return errx.KindValidation, true
	case errx.KindConflict.String():
		return errx.KindConflict, true
	case errx.KindSystem.String():
		return errx.KindSystem, true
	default:
		return errx.KindSystem, false
	}
}

func first(md metadata.MD, key string) string {
	if vals := md.Get(key); len(vals) > 0 {
		return vals[0]
	}
	return ""
}
