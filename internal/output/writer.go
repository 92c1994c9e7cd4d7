// Package output 生成规范化回显 CSV：解析成功后把配置表按统一格式写回
// 输出目录，供操作员核对编译器实际采用的取值。
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/osprey-dcs/quartz-config-loader/internal/domain"
	"github.com/osprey-dcs/quartz-config-loader/internal/schema"
)

// FileName 回显文件名固定不变
const FileName = "output.csv"

// Write 把整张表（含 USE=no 的行）按输入列顺序写出。
// 数值列回显解析后的值：空浮点格写空串，NONE 归一化为 0
func Write(w io.Writer, t *schema.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i := range t.Rows {
		record := make([]string, 0, len(t.Columns))
		for _, col := range t.Columns {
			record = append(record, cell(&t.Rows[i], col))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row %d: %w", t.Rows[i].Line, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

// WriteFile 在输出目录下写 output.csv，返回完整路径
func WriteFile(outDir string, t *schema.Table) (string, error) {
	path := filepath.Join(outDir, FileName)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := Write(f, t); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", path, err)
	}
	return path, nil
}

func cell(row *domain.ChannelRow, col string) string {
	switch col {
	case domain.ColChassis:
		return strconv.Itoa(row.Chassis)
	case domain.ColConnector:
		return strconv.Itoa(row.Connector)
	case domain.ColChannel:
		return strconv.Itoa(row.Channel)
	case domain.ColSignal:
		return strconv.Itoa(row.Signal)
	case domain.ColUse:
		if row.Use {
			return "yes"
		}
		return "no"
	case domain.ColCustnam:
		return row.Custnam
	case domain.ColDesc:
		return row.Desc
	case domain.ColIDLine5:
		return row.IDLine5
	case domain.ColRespNode:
		return row.RespNode
	case domain.ColEGU:
		return row.EGU
	case domain.ColESLO:
		return floatCell(row.ESLO)
	case domain.ColEOFF:
		return floatCell(row.EOFF)
	case domain.ColLoLoLim:
		return floatCell(row.LoLoLim)
	case domain.ColLoLim:
		return floatCell(row.LoLim)
	case domain.ColHiLim:
		return floatCell(row.HiLim)
	case domain.ColHiHiLim:
		return floatCell(row.HiHiLim)
	default:
		return row.DomainValues[col]
	}
}

func floatCell(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}
