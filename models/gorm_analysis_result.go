package models

// AnalysisResult holds the computed post-mortem interval for a case, one row
// per case. It corresponds to the 'analysis_results' table. Written by the
// PMI recalculation worker, read by the analytics aggregator.
type AnalysisResult struct {
	ID                  uint     `gorm:"primaryKey;autoIncrement" json:"id"`
	CaseID              uint     `gorm:"not null;uniqueIndex" json:"case_id"`
	PMIHours            *float64 `gorm:"" json:"pmi_hours,omitempty"`             // Nullable
	OldestStageDetected *string  `gorm:"" json:"oldest_stage_detected,omitempty"` // Nullable
	CalculatedAt        int64    `gorm:"not null" json:"calculated_at"`           // Unix timestamp
}

// TableName explicitly sets the table name for GORM.
func (AnalysisResult) TableName() string {
	return "analysis_results"
}
