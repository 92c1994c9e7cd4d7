package compiler

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/osprey-dcs/quartz-config-loader/internal/domain"
	"github.com/osprey-dcs/quartz-config-loader/internal/schema"
)

// Compiler 通道记录编译器：把校验过的配置表展开为命名变量记录
type Compiler struct {
	prefix string
	logger *zap.Logger
}

// New 创建编译器；prefix 为空时使用默认记录前缀
func New(prefix string, logger *zap.Logger) *Compiler {
	if prefix == "" {
		prefix = domain.DefaultPrefix
	}
	return &Compiler{prefix: prefix, logger: logger}
}

// Prefix 编译器使用的信号名前缀
func (c *Compiler) Prefix() string { return c.prefix }

// Compile 对每个 USE=yes 的行、按表头顺序对每个域列派生一条通道记录。
// USE=no 的行跳过（不报错、不产出）。输出顺序确定：行序在外、域序在内，
// 两次编译同一输入产出完全相同。
//
// 两个 USE=yes 的行共用同一物理标识（机箱/连接器/通道/信号）会派生同名
// 变量，直接拒绝整个文件而不是后者覆盖前者；USE=no 的行不参与重名检测，
// 允许保留已停用的旧行。
func (c *Compiler) Compile(t *schema.Table) ([]*domain.ChannelRecord, error) {
	seen := make(map[string]int, len(t.Rows)) // 物理标识 → 首次出现的行号
	recs := make([]*domain.ChannelRecord, 0, len(t.Rows)*len(t.Domains))

	for i := range t.Rows {
		row := &t.Rows[i]
		if !row.Use {
			c.logger.Debug("Skipping unused channel",
				zap.Int("row", row.Line),
				zap.String("identity", row.IdentityKey()),
			)
			continue
		}

		key := row.IdentityKey()
		if first, ok := seen[key]; ok {
			return nil, &schema.ValueError{
				File:   t.File,
				Row:    row.Line,
				Column: "CHASSIS/CONNECTOR/CHANNEL/SIGNAL",
				Value:  key,
				Reason: fmt.Sprintf("duplicate channel identity, already used at row %d", first),
			}
		}
		seen[key] = row.Line

		for _, d := range t.Domains {
			recs = append(recs, row.Record(c.prefix, d))
		}
	}

	c.logger.Info("Compiled channel records",
		zap.String("file", t.File),
		zap.Int("rows", len(t.Rows)),
		zap.Int("domains", len(t.Domains)),
		zap.Int("records", len(recs)),
	)
	return recs, nil
}
