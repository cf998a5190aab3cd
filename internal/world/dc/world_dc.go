// Package dc 是世界实体的写回缓存：actor 只在内存里改，定时把脏行攒成快照交给后台协程落盘。
package dc

import (
	"context"
	"errors"
	"sync"
	"time"

	"GeoConquest/internal/world/app/port"
	"GeoConquest/internal/world/entity"
	"GeoConquest/modules/kit/logx"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

const (
	defaultFlushEvery  = 3 * time.Second
	defaultSaveTimeout = 5 * time.Second
)

type Option func(*WorldDC)

func WithFlushEvery(d time.Duration) Option {
	return func(dc *WorldDC) {
		if d > 0 {
			dc.flushEvery = d
		}
	}
}

func WithLogger(l logx.Logger) Option {
	return func(dc *WorldDC) {
		if l != nil {
			dc.log = l
		}
	}
}

type WorldDC struct {
	repo        port.WorldRepository
	entity      *entity.World
	flushEvery  time.Duration
	saveTimeout time.Duration
	log         logx.Logger

	// saveMu 串行化所有写库：取快照、Save、失败回填是一个整体，
	// 否则旧快照失败回填后可能晚于新快照落盘。
	saveMu sync.Mutex

	mu      sync.Mutex
	pending *entity.WorldPersistSnapshot
	version uint64
	closed  bool

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

func NewWorldDC(repo port.WorldRepository, opts ...Option) *WorldDC {
	d := &WorldDC{
		repo:        repo,
		flushEvery:  defaultFlushEvery,
		saveTimeout: defaultSaveTimeout,
		log:         logx.Nop(),
		wake:        make(chan struct{}, 1),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	go d.writerLoop()
	return d
}

func (d *WorldDC) Load(ctx context.Context) (*entity.World, error) {
	if d.repo == nil {
		return nil, errors.New("world repository is nil")
	}
	world, err := d.repo.LoadWorld(ctx)
	if err != nil {
		return nil, err
	}
	d.entity = world
	return world, nil
}

// Flush 把当前脏行交给后台写库，不等待结果。
func (d *WorldDC) Flush(ctx context.Context) error {
	if !d.IsDirty() {
		return nil
	}
	if d.repo == nil {
		return errors.New("world repository is nil")
	}
	s, ok := d.buildNextSnapshot()
	if !ok {
		return nil
	}
	d.enqueue(s)
	return nil
}

// FlushSync 同步写库：先合并排队中的快照，失败则放回队列。
func (d *WorldDC) FlushSync(ctx context.Context) error {
	if d.repo == nil {
		return errors.New("world repository is nil")
	}
	next, _ := d.buildNextSnapshot()

	d.saveMu.Lock()
	defer d.saveMu.Unlock()
	s := d.popPending().Merge(next)
	if s == nil {
		return nil
	}
	if err := d.repo.Save(ctx, s); err != nil {
		d.requeueOnError(s)
		return err
	}
	return nil
}

func (d *WorldDC) IsDirty() bool {
	if d.entity == nil {
		return false
	}
	return d.entity.Dirty()
}

func (d *WorldDC) Entity() *entity.World {
	return d.entity
}

func (d *WorldDC) FlushEvery() time.Duration {
	return d.flushEvery
}

// Pending 返回尚未落盘的快照版本，0 表示没有。
func (d *WorldDC) Pending() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending == nil {
		return 0
	}
	return d.pending.Version
}

func (d *WorldDC) Close(ctx context.Context) error {
	_ = d.Flush(ctx)

	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.stop)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *WorldDC) buildNextSnapshot() (*entity.WorldPersistSnapshot, bool) {
	if d.entity == nil {
		return nil, false
	}
	d.mu.Lock()
	d.version++
	version := d.version
	d.mu.Unlock()

	return d.entity.BuildPersistSnapshot(version)
}

// enqueue 与排队中的快照合并：快照是增量，不能像全量那样直接覆盖。
func (d *WorldDC) enqueue(s *entity.WorldPersistSnapshot) {
	if s == nil {
		return
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.pending = d.pending.Merge(s)
	d.mu.Unlock()
	d.signal()
}

func (d *WorldDC) popPending() *entity.WorldPersistSnapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := d.pending
	d.pending = nil
	return s
}

// requeueOnError 把失败的快照垫在更新的快照下面，保证后写的行覆盖先写的行。
func (d *WorldDC) requeueOnError(s *entity.WorldPersistSnapshot) {
	d.mu.Lock()
	d.pending = s.Merge(d.pending)
	d.mu.Unlock()
	d.signal()
}

func (d *WorldDC) signal() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *WorldDC) writerLoop() {
	defer close(d.done)

	for {
		select {
		case <-d.wake:
			d.consumePending()
		case <-d.stop:
			d.consumePending()
			return
		}
	}
}

func (d *WorldDC) consumePending() {
	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = 200 * time.Millisecond
	retry.MaxInterval = 5 * time.Second

	for {
		d.saveMu.Lock()
		s := d.popPending()
		if s == nil {
			d.saveMu.Unlock()
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), d.saveTimeout)
		err := d.repo.Save(ctx, s)
		cancel()
		if err == nil {
			d.saveMu.Unlock()
			retry.Reset()
			continue
		}

		d.log.Error("world snapshot save failed",
			zap.Uint64("version", s.Version),
			zap.Int("territories", len(s.Changes.Territories)),
			zap.Int("players", len(s.Changes.Players)),
			zap.Error(err),
		)
		d.requeueOnError(s)
		d.saveMu.Unlock()

		d.mu.Lock()
		closed := d.closed
		d.mu.Unlock()
		if closed {
			// 关停时不再无限重试，剩下的交给 Close 的调用方处理。
			return
		}
		select {
		case <-time.After(retry.NextBackOff()):
		case <-d.stop:
		}
	}
}
