package utils

import (
	"fmt"
	"strconv"
	"sync"
	"time"
)

const (
	// 2026-01-01 00:00:00 UTC，单位毫秒
	snowflakeEpochMilli int64 = 1767225600000

	nodeBits uint8 = 10
	seqBits  uint8 = 12

	maxNodeID int64 = -1 ^ (-1 << nodeBits)
	maxSeq    int64 = -1 ^ (-1 << seqBits)

	nodeShift uint8 = seqBits
	timeShift uint8 = nodeBits + seqBits
)

// Snowflake 生成单调递增的 63 位 id：毫秒时间戳 | 节点号 | 毫秒内序号。
// world 服务用它给游戏事件编号，多个 world 节点用不同的 node id 互不冲突。
type Snowflake struct {
	mu     sync.Mutex
	nodeID int64
	lastTS int64
	seq    int64
	now    func() time.Time
}

func NewSnowflake(nodeID int64) (*Snowflake, error) {
	if nodeID < 0 || nodeID > maxNodeID {
		return nil, fmt.Errorf("snowflake node id out of range: %d", nodeID)
	}
	return &Snowflake{nodeID: nodeID, now: time.Now}, nil
}

func (s *Snowflake) NextID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now().UnixMilli()
	if ts < s.lastTS {
		// 时钟回拨时不回退，保持单调递增。
		ts = s.lastTS
	}

	if ts == s.lastTS {
		s.seq = (s.seq + 1) & maxSeq
		if s.seq == 0 {
			ts = s.waitNextMillisecond(s.lastTS)
		}
	} else {
		s.seq = 0
	}

	s.lastTS = ts
	return ((ts - snowflakeEpochMilli) << timeShift) | (s.nodeID << nodeShift) | s.seq
}

// NextString 以 36 进制返回，事件 id 用这个形式对外。
func (s *Snowflake) NextString() string {
	return strconv.FormatInt(s.NextID(), 36)
}

func (s *Snowflake) waitNextMillisecond(lastTS int64) int64 {
	ts := s.now().UnixMilli()
	for ts <= lastTS {
		time.Sleep(100 * time.Microsecond)
		ts = s.now().UnixMilli()
	}
	return ts
}
