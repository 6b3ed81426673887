package models

import "gorm.io/gorm"

// Detection statuses. A detection starts as model_generated (detector output)
// or user_created (drawn by hand) and moves through the user_* states as an
// investigator reviews it.
const (
	DetectionStatusModelGenerated      = "model_generated"
	DetectionStatusUserCreated         = "user_created"
	DetectionStatusUserConfirmed       = "user_confirmed"
	DetectionStatusUserEdited          = "user_edited"
	DetectionStatusUserEditedConfirmed = "user_edited_confirmed"
)

// Detection represents an insect bounding box on an upload.
// It corresponds to the 'detections' table. OriginalLabel and
// OriginalConfidence keep the detector's raw output as the diff baseline;
// Label and Confidence carry the current (possibly corrected) values.
type Detection struct {
	ID                 uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	UploadID           uint           `gorm:"not null;index" json:"upload_id"`
	Label              string         `gorm:"not null" json:"label"`
	OriginalLabel      string         `gorm:"not null" json:"original_label"`
	Confidence         *float64       `gorm:"" json:"confidence,omitempty"`          // Nullable
	OriginalConfidence *float64       `gorm:"" json:"original_confidence,omitempty"` // Nullable
	XMin               float64        `gorm:"not null" json:"x_min"`
	YMin               float64        `gorm:"not null" json:"y_min"`
	XMax               float64        `gorm:"not null" json:"x_max"`
	YMax               float64        `gorm:"not null" json:"y_max"`
	Status             string         `gorm:"not null;default:model_generated" json:"status"`
	CreatedAt          int64          `gorm:"not null" json:"created_at"`        // Stored as INTEGER in SQLite, Unix timestamp
	UpdatedAt          int64          `gorm:"not null" json:"updated_at"`        // Stored as INTEGER in SQLite, Unix timestamp
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"` // For soft deletes
}

// TableName explicitly sets the table name for GORM.
func (Detection) TableName() string {
	return "detections"
}

// IsVerified reports whether the detection has been reviewed and accepted by
// a user (confirmed as-is or confirmed after moving the box).
func (d *Detection) IsVerified() bool {
	return d.Status == DetectionStatusUserConfirmed || d.Status == DetectionStatusUserEditedConfirmed
}
