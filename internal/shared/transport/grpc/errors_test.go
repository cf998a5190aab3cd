package grpc

import (
	"errors"
	"testing"

	"GeoConquest/modules/kit/errx"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	errNotOwner  = errx.NewBiz("CONQUEST_NOT_OWNER", "not your territory")
	errRaceLost  = errx.NewConflict("CONQUEST_CLAIM_RACE_LOST", "someone claimed it first")
	errAnonymous = errors.New("boom")
)

func TestToStatus_按分类映射状态码(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"校验", errNotOwner, codes.InvalidArgument},
		{"冲突", errRaceLost, codes.Aborted},
		{"超时", errx.ErrTimeout.WithCause(errAnonymous), codes.DeadlineExceeded},
		{"不可达", errx.ErrUnavailable, codes.Unavailable},
		{"限流", errx.ErrRateLimited, codes.ResourceExhausted},
		{"未知", errAnonymous, codes.Internal},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			st, _ := status.FromError(ToStatus(c.err))
			if st.Code() != c.want {
				t.Fatalf("want=%v got=%v", c.want, st.Code())
			}
		})
	}
}

func TestFromStatus_借助trailer还原错误(t *testing.T) {
	for _, src := range []error{errNotOwner, errRaceLost, errx.ErrUnavailable} {
		got := FromStatus(ToStatus(src), ErrorTrailer(src))
		if !errors.Is(got, src) {
			t.Fatalf("期望还原为 %v, got=%v", src, got)
		}
		if errx.KindOf(got) != errx.KindOf(src) {
			t.Fatalf("kind 不一致 want=%v got=%v", errx.KindOf(src), errx.KindOf(got))
		}
	}
}

func TestFromStatus_无trailer按状态码兜底(t *testing.T) {
	if got := FromStatus(status.Error(codes.Unavailable, "down"), nil); !errx.IsConnectivity(got) {
		t.Fatalf("期望连接类错误, got=%v", got)
	}
	if got := FromStatus(status.Error(codes.DeadlineExceeded, "slow"), nil); !errors.Is(got, errx.ErrTimeout) {
		t.Fatalf("期望超时, got=%v", got)
	}
	if got := FromStatus(status.Error(codes.Internal, "x"), nil); errx.KindOf(got) != errx.KindSystem {
		t.Fatalf("期望系统错误, got=%v", got)
	}
	if FromStatus(nil, nil) != nil {
		t.Fatalf("nil 应原样返回")
	}
}
