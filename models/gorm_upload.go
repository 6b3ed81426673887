package models

import "gorm.io/gorm"

// Upload represents an evidence image registered under a case.
// It corresponds to the 'uploads' table. Only image metadata is tracked here;
// the file bytes live outside this system.
type Upload struct {
	ID         uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	CaseID     uint           `gorm:"not null;index" json:"case_id"`
	FileName   string         `gorm:"not null" json:"file_name"`
	StorageKey string         `gorm:"not null;uniqueIndex" json:"storage_key"`
	Width      *int           `gorm:"" json:"width,omitempty"`  // Nullable
	Height     *int           `gorm:"" json:"height,omitempty"` // Nullable
	CreatedAt  int64          `gorm:"not null" json:"created_at"`        // Stored as INTEGER in SQLite, Unix timestamp
	UpdatedAt  int64          `gorm:"not null" json:"updated_at"`        // Stored as INTEGER in SQLite, Unix timestamp
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"` // For soft deletes

	// Relationships
	Detections []Detection `gorm:"foreignKey:UploadID" json:"detections,omitempty"`
}

// TableName explicitly sets the table name for GORM.
func (Upload) TableName() string {
	return "uploads"
}
