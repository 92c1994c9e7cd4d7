package domain

import "fmt"

// DefaultPrefix 信号名的默认记录前缀
const DefaultPrefix = "FDAS:"

// 固定的 16 个通道配置表列（区分大小写，顺序不限）
const (
	ColChassis   = "CHASSIS"
	ColConnector = "CONNECTOR"
	ColChannel   = "CHANNEL"
	ColSignal    = "SIGNAL"
	ColUse       = "USE"
	ColCustnam   = "CUSTNAM"
	ColDesc      = "DESC"
	ColIDLine5   = "IDLINE5"
	ColRespNode  = "RESPNODE"
	ColEGU       = "EGU"
	ColESLO      = "ESLO"
	ColEOFF      = "EOFF"
	ColLoLoLim   = "LOLOlim"
	ColLoLim     = "LOlim"
	ColHiLim     = "HIlim"
	ColHiHiLim   = "HIHIlim"
)

// FixedColumns 固定列的规范顺序（用于模板生成与缺列报告）
var FixedColumns = []string{
	ColChassis, ColConnector, ColChannel, ColSignal, ColUse,
	ColCustnam, ColDesc, ColIDLine5, ColRespNode, ColEGU,
	ColESLO, ColEOFF, ColLoLoLim, ColLoLim, ColHiLim, ColHiHiLim,
}

// ChannelRow 通道配置表的一行（16 个固定列 + 表头中额外的域列原始值）
// 数值列为空时用指针表示（nil = 空单元格，发布时按 0.0 处理）
type ChannelRow struct {
	Line int // 1 起算的数据行号（不含表头），用于错误定位

	Chassis   int
	Connector int
	Channel   int // 1–32
	Signal    int
	Use       bool // USE 列，严格 "yes"/"no"

	Custnam  string
	Desc     string
	IDLine5  string
	RespNode string
	EGU      string

	ESLO    *float64
	EOFF    *float64
	LoLoLim *float64
	LoLim   *float64
	HiLim   *float64
	HiHiLim *float64

	// DomainValues 域列的原始单元格内容（仅用于回写输出文件，不参与记录编译）
	DomainValues map[string]string
}

// SignalName 按固定命名模式派生全限定信号名：
// <prefix><CHASSIS %02d>:SA:DB<CONNECTOR>:Ch<CHANNEL %02d>:Sig<SIGNAL %02d>:<DOMAIN>
// 例如 chassis=1 connector=2 channel=5 signal=3 domain=FOO →
// "FDAS:01:SA:DB2:Ch05:Sig03:FOO"
func (r *ChannelRow) SignalName(prefix, domain string) string {
	return fmt.Sprintf("%s%02d:SA:DB%d:Ch%02d:Sig%02d:%s",
		prefix, r.Chassis, r.Connector, r.Channel, r.Signal, domain)
}

// IdentityKey 行的物理标识（机箱/连接器/通道/信号），用于重名检测
func (r *ChannelRow) IdentityKey() string {
	return fmt.Sprintf("%d/%d/%d/%d", r.Chassis, r.Connector, r.Channel, r.Signal)
}

// ChannelRecord 编译产物：一个命名变量及其字段值。构建后不可变，
// 交给 Publisher 发布后即丢弃（核心不做持久化）。
type ChannelRecord struct {
	Name   string        `json:"name"`
	Domain string        `json:"domain"`
	Fields ChannelFields `json:"fields"`
}

// ChannelFields 记录携带的工程量字段与描述字段（JSON 键与表列名一致）
type ChannelFields struct {
	Custnam  string  `json:"CUSTNAM"`
	Desc     string  `json:"DESC"`
	IDLine5  string  `json:"IDLINE5"`
	RespNode string  `json:"RESPNODE"`
	EGU      string  `json:"EGU"`
	ESLO     float64 `json:"ESLO"`
	EOFF     float64 `json:"EOFF"`
	LoLoLim  float64 `json:"LOLOlim"`
	LoLim    float64 `json:"LOlim"`
	HiLim    float64 `json:"HIlim"`
	HiHiLim  float64 `json:"HIHIlim"`
}

// Record 为指定域派生通道记录；空数值单元格按 0.0 取值
func (r *ChannelRow) Record(prefix, domain string) *ChannelRecord {
	return &ChannelRecord{
		Name:   r.SignalName(prefix, domain),
		Domain: domain,
		Fields: ChannelFields{
			Custnam:  r.Custnam,
			Desc:     r.Desc,
			IDLine5:  r.IDLine5,
			RespNode: r.RespNode,
			EGU:      r.EGU,
			ESLO:     floatOrZero(r.ESLO),
			EOFF:     floatOrZero(r.EOFF),
			LoLoLim:  floatOrZero(r.LoLoLim),
			LoLim:    floatOrZero(r.LoLim),
			HiLim:    floatOrZero(r.HiLim),
			HiHiLim:  floatOrZero(r.HiHiLim),
		},
	}
}

func floatOrZero(v *float64) float64 {
	if v == nil {
		return 0.0
	}
	return *v
}
