// Package location 是定位来源的端口。定位失败时会话退回固定锚点，不做真实位置扩张。
package location

import (
	"context"
	"errors"
	"time"

	"GeoConquest/internal/conquest/grid"
)

// DefaultAnchor 是定位不可用时的固定锚点。
var DefaultAnchor = grid.Coord{Lat: -23.5505, Lng: -46.6333}

var ErrUnavailable = errors.New("location unavailable")

type Provider interface {
	Locate(ctx context.Context) (grid.Coord, error)
}

// Func 让普通函数满足 Provider。
type Func func(ctx context.Context) (grid.Coord, error)

func (f Func) Locate(ctx context.Context) (grid.Coord, error) {
	return f(ctx)
}

// Fixed 总是返回同一个坐标，客户端在登录时上报位置即用它。
type Fixed grid.Coord

func (f Fixed) Locate(context.Context) (grid.Coord, error) {
	return grid.Coord(f), nil
}

// None 表示客户端没有提供位置。
type None struct{}

func (None) Locate(context.Context) (grid.Coord, error) {
	return grid.Coord{}, ErrUnavailable
}

// Resolve 带超时地定位，失败或坐标越界时返回 DefaultAnchor，第二个返回值表示是否拿到了真实位置。
func Resolve(ctx context.Context, p Provider, timeout time.Duration) (grid.Coord, bool) {
	if p == nil {
		return DefaultAnchor, false
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	c, err := p.Locate(ctx)
	if err != nil || !valid(c) {
		return DefaultAnchor, false
	}
	return c, true
}

func valid(c grid.Coord) bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}
