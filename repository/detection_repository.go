package repository

import (
	"fmt"
	"time"

	"github.com/avery-dunn/entomosysbackend/models"
	"gorm.io/gorm"
)

// DetectionRepository handles database operations for Detection entities
type DetectionRepository struct {
	DB *gorm.DB
}

// NewDetectionRepository creates a new instance of DetectionRepository
func NewDetectionRepository(db *gorm.DB) *DetectionRepository {
	return &DetectionRepository{DB: db}
}

// Create creates a new detection record in the database
func (r *DetectionRepository) Create(detection *models.Detection) error {
	now := time.Now().Unix()
	if detection.CreatedAt == 0 {
		detection.CreatedAt = now
	}
	detection.UpdatedAt = now

	err := r.DB.Create(detection).Error
	if err != nil {
		return fmt.Errorf("failed to create detection for upload %d: %w", detection.UploadID, err)
	}
	return nil
}

// GetByIDForUpload retrieves a detection by its ID, scoped to the given upload
func (r *DetectionRepository) GetByIDForUpload(id, uploadID uint) (*models.Detection, error) {
	var detection models.Detection
	err := r.DB.Where("id = ? AND upload_id = ?", id, uploadID).First(&detection).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get detection %d for upload %d: %w", id, uploadID, err)
	}
	return &detection, nil
}

// ListByUpload retrieves all non-deleted detections for a given upload
func (r *DetectionRepository) ListByUpload(uploadID uint) ([]models.Detection, error) {
	var detections []models.Detection
	err := r.DB.Where("upload_id = ?", uploadID).Order("id ASC").Find(&detections).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list detections for upload %d: %w", uploadID, err)
	}
	return detections, nil
}

// ListByUploadIncludingDeleted retrieves all detections for a given upload,
// soft-deleted rows included
func (r *DetectionRepository) ListByUploadIncludingDeleted(uploadID uint) ([]models.Detection, error) {
	var detections []models.Detection
	err := r.DB.Unscoped().Where("upload_id = ?", uploadID).Order("id ASC").Find(&detections).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list detections (including deleted) for upload %d: %w", uploadID, err)
	}
	return detections, nil
}

// ListByCase retrieves all non-deleted detections across every non-deleted
// upload of a case
func (r *DetectionRepository) ListByCase(caseID uint) ([]models.Detection, error) {
	var detections []models.Detection
	err := r.DB.
		Joins("JOIN uploads ON uploads.id = detections.upload_id AND uploads.deleted_at IS NULL").
		Where("uploads.case_id = ?", caseID).
		Order("detections.id ASC").
		Find(&detections).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list detections for case %d: %w", caseID, err)
	}
	return detections, nil
}

// Update persists the mutable fields of an existing detection
func (r *DetectionRepository) Update(detection *models.Detection) error {
	updates := map[string]interface{}{
		"label":      detection.Label,
		"confidence": detection.Confidence,
		"x_min":      detection.XMin,
		"y_min":      detection.YMin,
		"x_max":      detection.XMax,
		"y_max":      detection.YMax,
		"status":     detection.Status,
		"updated_at": time.Now().Unix(),
	}
	result := r.DB.Model(&models.Detection{}).Where("id = ?", detection.ID).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update detection ID %d: %w", detection.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SoftDeleteForUpload soft-deletes a detection scoped to the given upload.
// Returns the number of rows affected; deleting an unknown ID affects zero
// rows and is not an error.
func (r *DetectionRepository) SoftDeleteForUpload(id, uploadID uint) (int64, error) {
	result := r.DB.Where("id = ? AND upload_id = ?", id, uploadID).Delete(&models.Detection{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete detection %d for upload %d: %w", id, uploadID, result.Error)
	}
	return result.RowsAffected, nil
}
