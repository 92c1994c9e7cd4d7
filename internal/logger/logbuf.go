package logger

import (
	"strings"
	"sync"
)

// DefaultTailLines LOG 状态变量默认保留的行数
const DefaultTailLines = 200

// TailBuffer 并发安全的日志尾部缓冲：只保留最近 N 行，
// 每次加载开始前 Reset，结束后整体读出作为 LOG 状态变量的值
type TailBuffer struct {
	mu    sync.Mutex
	max   int
	lines []string
}

// NewTailBuffer 创建保留 max 行的缓冲；max<=0 时用 DefaultTailLines
func NewTailBuffer(max int) *TailBuffer {
	if max <= 0 {
		max = DefaultTailLines
	}
	return &TailBuffer{max: max}
}

// Write 实现 io.Writer，按行切分追加，超出容量时丢弃最旧的行
func (b *TailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		if line == "" {
			continue
		}
		b.lines = append(b.lines, line)
	}
	if over := len(b.lines) - b.max; over > 0 {
		b.lines = append(b.lines[:0], b.lines[over:]...)
	}
	return len(p), nil
}

// Text 当前缓冲内容，按行拼接
func (b *TailBuffer) Text() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.lines) == 0 {
		return ""
	}
	return strings.Join(b.lines, "\n") + "\n"
}

// Reset 清空缓冲
func (b *TailBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = b.lines[:0]
}
