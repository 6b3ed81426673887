package models

import "gorm.io/gorm"

// Case represents a forensic case owned by a single investigator.
// It corresponds to the 'cases' table.
type Case struct {
	ID                  uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID              uint           `gorm:"not null;index" json:"user_id"`
	Name                string         `gorm:"not null" json:"name"`
	Status              string         `gorm:"not null;default:draft" json:"status"`
	OccurredAt          *int64         `gorm:"index" json:"occurred_at,omitempty"`    // Nullable, Unix timestamp of body discovery
	AmbientTempC        *float64       `gorm:"" json:"ambient_temp_c,omitempty"`      // Nullable, scene temperature in Celsius
	RecalculationNeeded bool           `gorm:"not null;default:false" json:"recalculation_needed"`
	CreatedAt           int64          `gorm:"not null" json:"created_at"`        // Stored as INTEGER in SQLite, Unix timestamp
	UpdatedAt           int64          `gorm:"not null" json:"updated_at"`        // Stored as INTEGER in SQLite, Unix timestamp
	DeletedAt           gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"` // For soft deletes

	// Relationships
	Uploads        []Upload        `gorm:"foreignKey:CaseID" json:"uploads,omitempty"`
	AnalysisResult *AnalysisResult `gorm:"foreignKey:CaseID" json:"analysis_result,omitempty"`
}

// TableName explicitly sets the table name for GORM.
func (Case) TableName() string {
	return "cases"
}
