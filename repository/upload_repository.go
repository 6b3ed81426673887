package repository

import (
	"fmt"
	"time"

	"github.com/avery-dunn/entomosysbackend/models"
	"gorm.io/gorm"
)

// UploadRepository handles database operations for Upload entities
type UploadRepository struct {
	DB *gorm.DB
}

// NewUploadRepository creates a new instance of UploadRepository
func NewUploadRepository(db *gorm.DB) *UploadRepository {
	return &UploadRepository{DB: db}
}

// Create creates a new upload record in the database
func (r *UploadRepository) Create(upload *models.Upload) error {
	now := time.Now().Unix()
	if upload.CreatedAt == 0 {
		upload.CreatedAt = now
	}
	upload.UpdatedAt = now

	err := r.DB.Create(upload).Error
	if err != nil {
		return fmt.Errorf("failed to create upload %s for case %d: %w", upload.FileName, upload.CaseID, err)
	}
	return nil
}

// GetByID retrieves an upload by its ID
func (r *UploadRepository) GetByID(id uint) (*models.Upload, error) {
	var upload models.Upload
	err := r.DB.First(&upload, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get upload by ID %d: %w", id, err)
	}
	return &upload, nil
}

// GetByIDForCase retrieves an upload by its ID, scoped to the given case
func (r *UploadRepository) GetByIDForCase(id, caseID uint) (*models.Upload, error) {
	var upload models.Upload
	err := r.DB.Where("id = ? AND case_id = ?", id, caseID).First(&upload).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get upload %d for case %d: %w", id, caseID, err)
	}
	return &upload, nil
}

// ListByCase retrieves all uploads for a given case
func (r *UploadRepository) ListByCase(caseID uint) ([]models.Upload, error) {
	var uploads []models.Upload
	err := r.DB.Where("case_id = ?", caseID).Order("id ASC").Find(&uploads).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list uploads for case %d: %w", caseID, err)
	}
	return uploads, nil
}

// Delete removes an upload by its ID
// this will perform a soft delete because models.Upload has gorm.DeletedAt
func (r *UploadRepository) Delete(id uint) error {
	result := r.DB.Delete(&models.Upload{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete upload ID %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
