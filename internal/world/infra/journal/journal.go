// Package journal 把战报事件按小时落成 zstd 压缩的 JSONL，供离线回放与排查。
package journal

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"GeoConquest/internal/conquest/domain"
	"GeoConquest/internal/conquest/store"
	"GeoConquest/modules/kit/logx"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"
)

const filePrefix = "events"

type Writer struct {
	dir   string
	clock func() time.Time

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewWriter(dir string) *Writer {
	return &Writer{dir: dir, clock: time.Now}
}

func (w *Writer) Write(ev domain.Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := w.clock().UTC().Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	return w.w.WriteByte('\n')
}

// Flush 把缓冲写进 zstd 块；帧在 Close 或换小时时才结束。
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.w == nil {
		return nil
	}
	if err := w.w.Flush(); err != nil {
		return err
	}
	return w.enc.Flush()
}

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

// Run 消费推送通道里的事件直到通道关闭或 ctx 结束，每 flushEvery 刷一次盘。
func (w *Writer) Run(ctx context.Context, ch <-chan store.ChangeEvent, flushEvery time.Duration, log logx.Logger) {
	if log == nil {
		log = logx.Nop()
	}
	if flushEvery <= 0 {
		flushEvery = time.Second
	}
	ticker := time.NewTicker(flushEvery)
	defer ticker.Stop()
	defer func() {
		if err := w.Close(); err != nil {
			log.Error("journal close failed", zap.Error(err))
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.Flush(); err != nil {
				log.Error("journal flush failed", zap.Error(err))
			}
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if ev.Kind != store.KindEvent || ev.Event == nil {
				continue
			}
			if err := w.Write(*ev.Event); err != nil {
				log.Error("journal write failed", zap.Error(err), zap.String("event", ev.Event.ID))
			}
		}
	}
}

func (w *Writer) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.pathForHour(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 64*1024)
	w.curHour = hour
	return nil
}

func (w *Writer) closeLocked() error {
	var err error
	if w.w != nil {
		err = w.w.Flush()
	}
	if w.enc != nil {
		if cerr := w.enc.Close(); err == nil {
			err = cerr
		}
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	w.curHour = ""
	return err
}

func (w *Writer) pathForHour(hour string) string {
	return filepath.Join(w.dir, fmt.Sprintf("%s-%s.jsonl.zst", filePrefix, hour))
}

// Files 返回目录下按时间排序的日志文件。
func Files(dir string) ([]string, error) {
	out, err := filepath.Glob(filepath.Join(dir, filePrefix+"-*.jsonl.zst"))
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

// ReadFile 逐条回调一个日志文件里的事件，fn 返回错误时提前停止。
func ReadFile(path string, fn func(domain.Event) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev domain.Event
		if err := json.Unmarshal(line, &ev); err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return err
	}
	return nil
}
