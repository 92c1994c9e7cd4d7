package schema

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/osprey-dcs/quartz-config-loader/internal/domain"
)

// Table 校验通过的通道配置表
type Table struct {
	File    string
	Columns []string // 输入顺序的全部表头
	Domains []string // 16 固定列之外的域列（保持表头顺序，区分大小写）
	Rows    []domain.ChannelRow
}

// Parse 解析并校验 CSV 文本。表头或任一单元格非法时整个文件拒绝，
// 返回 *SchemaError 或 *ValueError，不产生部分结果。
func Parse(file string, r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	// 行长度在 parseHeader/parseRow 里单独校验，报错信息更准确
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, &SchemaError{File: file, Reason: fmt.Sprintf("csv parse: %v", err)}
	}
	return ParseRows(file, records)
}

// ParseRows 校验已拆分的表格内容（Excel 工作簿读取后同样走这里）
func ParseRows(file string, records [][]string) (*Table, error) {
	if len(records) == 0 {
		return nil, &SchemaError{File: file, Reason: "empty file"}
	}

	header := records[0]
	index, domains, err := parseHeader(file, header)
	if err != nil {
		return nil, err
	}

	t := &Table{
		File:    file,
		Columns: append([]string(nil), header...),
		Domains: domains,
		Rows:    make([]domain.ChannelRow, 0, len(records)-1),
	}

	for i, rec := range records[1:] {
		rowNum := i + 1
		if len(rec) != len(header) {
			return nil, &SchemaError{
				File:   file,
				Reason: fmt.Sprintf("row %d has %d cells, expected %d", rowNum, len(rec), len(header)),
			}
		}
		row, err := parseRow(file, rowNum, rec, index, domains)
		if err != nil {
			return nil, err
		}
		t.Rows = append(t.Rows, *row)
	}

	return t, nil
}

// parseHeader 校验表头：16 个固定列必须全部出现（区分大小写，顺序不限），
// 任何列名重复都拒绝；多出的列按出现顺序作为域列。
func parseHeader(file string, header []string) (map[string]int, []string, error) {
	fixed := make(map[string]bool, len(domain.FixedColumns))
	for _, c := range domain.FixedColumns {
		fixed[c] = true
	}

	index := make(map[string]int, len(header))
	var domains []string
	var duplicate []string
	for i, name := range header {
		if name == "" {
			return nil, nil, &SchemaError{File: file, Reason: fmt.Sprintf("blank column name at position %d", i+1)}
		}
		if _, ok := index[name]; ok {
			duplicate = append(duplicate, name)
			continue
		}
		index[name] = i
		if !fixed[name] {
			domains = append(domains, name)
		}
	}

	var missing []string
	for _, c := range domain.FixedColumns {
		if _, ok := index[c]; !ok {
			missing = append(missing, c)
		}
	}

	if len(missing) > 0 || len(duplicate) > 0 {
		return nil, nil, &SchemaError{File: file, Missing: missing, Duplicate: duplicate}
	}
	return index, domains, nil
}

func parseRow(file string, rowNum int, rec []string, index map[string]int, domains []string) (*domain.ChannelRow, error) {
	cell := func(col string) string { return rec[index[col]] }

	row := &domain.ChannelRow{Line: rowNum}
	var err error

	if row.Chassis, err = parseIntCell(file, rowNum, domain.ColChassis, cell(domain.ColChassis)); err != nil {
		return nil, err
	}
	if row.Connector, err = parseIntCell(file, rowNum, domain.ColConnector, cell(domain.ColConnector)); err != nil {
		return nil, err
	}
	if row.Channel, err = parseIntCell(file, rowNum, domain.ColChannel, cell(domain.ColChannel)); err != nil {
		return nil, err
	}
	if row.Channel < 1 || row.Channel > 32 {
		return nil, &ValueError{
			File: file, Row: rowNum, Column: domain.ColChannel,
			Value: cell(domain.ColChannel), Reason: "channel out of range [1,32]",
		}
	}
	if row.Signal, err = parseIntCell(file, rowNum, domain.ColSignal, cell(domain.ColSignal)); err != nil {
		return nil, err
	}
	if row.Use, err = parseUseCell(file, rowNum, cell(domain.ColUse)); err != nil {
		return nil, err
	}

	row.Custnam = strings.TrimSpace(cell(domain.ColCustnam))
	row.Desc = strings.TrimSpace(cell(domain.ColDesc))
	row.IDLine5 = strings.TrimSpace(cell(domain.ColIDLine5))
	row.RespNode = strings.TrimSpace(cell(domain.ColRespNode))
	row.EGU = strings.TrimSpace(cell(domain.ColEGU))

	floatCols := []struct {
		col string
		dst **float64
	}{
		{domain.ColESLO, &row.ESLO},
		{domain.ColEOFF, &row.EOFF},
		{domain.ColLoLoLim, &row.LoLoLim},
		{domain.ColLoLim, &row.LoLim},
		{domain.ColHiLim, &row.HiLim},
		{domain.ColHiHiLim, &row.HiHiLim},
	}
	for _, fc := range floatCols {
		v, err := parseFloatCell(file, rowNum, fc.col, cell(fc.col))
		if err != nil {
			return nil, err
		}
		*fc.dst = v
	}

	if len(domains) > 0 {
		row.DomainValues = make(map[string]string, len(domains))
		for _, d := range domains {
			row.DomainValues[d] = cell(d)
		}
	}

	return row, nil
}

// parseIntCell 整数单元格：空白拒绝；历史表格用 NONE（任意大小写）表示
// 未使用的整数位，按 0 处理
func parseIntCell(file string, row int, col, raw string) (int, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return 0, &ValueError{File: file, Row: row, Column: col, Value: raw, Reason: "blank integer cell"}
	}
	if strings.EqualFold(v, "NONE") {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &ValueError{File: file, Row: row, Column: col, Value: raw, Reason: "not an integer"}
	}
	return n, nil
}

// parseFloatCell 浮点单元格：空白返回 nil（发布时按 0.0 处理）
func parseFloatCell(file string, row int, col, raw string) (*float64, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, &ValueError{File: file, Row: row, Column: col, Value: raw, Reason: "not a number"}
	}
	return &f, nil
}

// parseUseCell USE 列只接受严格的 "yes" / "no"（区分大小写）
func parseUseCell(file string, row int, raw string) (bool, error) {
	switch strings.TrimSpace(raw) {
	case "yes":
		return true, nil
	case "no":
		return false, nil
	}
	return false, &ValueError{
		File: file, Row: row, Column: domain.ColUse, Value: raw,
		Reason: `must be exactly "yes" or "no"`,
	}
}
