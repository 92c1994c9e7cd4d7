package schema

import (
	"fmt"
	"strings"
)

// SchemaError 表头不符合固定 16 列模式（或文件结构损坏）。
// 表头校验失败时整个文件拒绝，不处理任何数据行。
type SchemaError struct {
	File      string
	Missing   []string // 缺失的固定列
	Duplicate []string // 重复出现的列名
	Reason    string   // 其它结构问题（空文件、行长度不一致等）
}

func (e *SchemaError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing columns %v", e.Missing))
	}
	if len(e.Duplicate) > 0 {
		parts = append(parts, fmt.Sprintf("duplicate columns %v", e.Duplicate))
	}
	if e.Reason != "" {
		parts = append(parts, e.Reason)
	}
	if len(parts) == 0 {
		parts = append(parts, "invalid header")
	}
	return fmt.Sprintf("%s: schema error: %s", e.File, strings.Join(parts, "; "))
}

// ValueError 单元格的值无法按声明类型解析或超出允许范围。
// 携带文件/行/列/原值，便于操作员定位坏单元格。
type ValueError struct {
	File   string
	Row    int // 1 起算的数据行号（不含表头）
	Column string
	Value  string
	Reason string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("%s: row %d, column %s: value %q: %s",
		e.File, e.Row, e.Column, e.Value, e.Reason)
}
