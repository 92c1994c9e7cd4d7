package domain

import "time"

// 加载状态，同时作为 STS 状态变量的取值
const (
	LoadStatusSuccess = "Success"
	LoadStatusError   = "Error"
)

// LoadRecord 一次配置装载的历史记录
type LoadRecord struct {
	LoadID      string     `json:"load_id"`
	Filename    string     `json:"filename"`
	SHA256      string     `json:"sha256"`
	UploadedBy  string     `json:"uploaded_by"`
	RowCount    int        `json:"row_count"`
	RecordCount int        `json:"record_count"`
	Status      string     `json:"status"` // Success / Error
	Message     string     `json:"message"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}
