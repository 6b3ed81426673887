package repository

import (
	"fmt"
	"time"

	"github.com/avery-dunn/entomosysbackend/database"
	"github.com/avery-dunn/entomosysbackend/models"
	"gorm.io/gorm"
)

// CaseRepository handles database operations for Case entities
type CaseRepository struct {
	DB *gorm.DB
}

// NewCaseRepository creates a new instance of CaseRepository
func NewCaseRepository(db *gorm.DB) *CaseRepository {
	return &CaseRepository{DB: db}
}

// Create creates a new case record in the database
func (r *CaseRepository) Create(c *models.Case) error {
	now := time.Now().Unix()
	if c.CreatedAt == 0 {
		c.CreatedAt = now
	}
	if c.UpdatedAt == 0 {
		c.UpdatedAt = now
	}
	if c.Status == "" {
		c.Status = database.CaseStatusDraft
	}

	err := r.DB.Create(c).Error
	if err != nil {
		return fmt.Errorf("failed to create case %s: %w", c.Name, err)
	}
	return nil
}

// GetByID retrieves a case by its ID without owner scoping. Internal use
// only (recalculation worker); request paths go through GetByIDForUser.
func (r *CaseRepository) GetByID(id uint) (*models.Case, error) {
	var c models.Case
	err := r.DB.First(&c, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get case by ID %d: %w", id, err)
	}
	return &c, nil
}

// GetByIDForUser retrieves a case by its ID, scoped to the owning user.
// A case owned by someone else is indistinguishable from a missing one:
// both return gorm.ErrRecordNotFound.
func (r *CaseRepository) GetByIDForUser(id, userID uint) (*models.Case, error) {
	var c models.Case
	err := r.DB.Where("id = ? AND user_id = ?", id, userID).First(&c).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get case by ID %d: %w", id, err)
	}
	return &c, nil
}

// ListByUser retrieves all cases owned by a user, newest first
func (r *CaseRepository) ListByUser(userID uint) ([]models.Case, error) {
	var cases []models.Case
	err := r.DB.Where("user_id = ?", userID).Order("created_at DESC").Find(&cases).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list cases for user %d: %w", userID, err)
	}
	return cases, nil
}

// Update updates an existing case's name, occurrence date and ambient temperature.
// Status and the recalculation flag are updated by specific methods.
func (r *CaseRepository) Update(caseID uint, name string, occurredAt *int64, ambientTempC *float64) error {
	now := time.Now().Unix()
	updates := map[string]interface{}{
		"updated_at": now,
	}
	if name != "" {
		updates["name"] = name
	}
	if occurredAt != nil {
		updates["occurred_at"] = *occurredAt
	}
	if ambientTempC != nil {
		updates["ambient_temp_c"] = *ambientTempC
	}

	// if only updated_at is present, no actual fields were changed
	if len(updates) == 1 {
		return nil
	}

	result := r.DB.Model(&models.Case{}).Where("id = ?", caseID).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update case ID %d: %w", caseID, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetStatus updates the lifecycle status of a case
func (r *CaseRepository) SetStatus(caseID uint, status string) error {
	result := r.DB.Model(&models.Case{}).Where("id = ?", caseID).Updates(map[string]interface{}{
		"status":     status,
		"updated_at": time.Now().Unix(),
	})
	if result.Error != nil {
		return fmt.Errorf("failed to set status for case ID %d: %w", caseID, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetRecalculationNeeded sets or clears the PMI recalculation flag on a case
func (r *CaseRepository) SetRecalculationNeeded(caseID uint, needed bool) error {
	result := r.DB.Model(&models.Case{}).Where("id = ?", caseID).Updates(map[string]interface{}{
		"recalculation_needed": needed,
		"updated_at":           time.Now().Unix(),
	})
	if result.Error != nil {
		return fmt.Errorf("failed to set recalculation flag for case ID %d: %w", caseID, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListRecalculationNeeded retrieves all cases flagged for PMI recalculation.
// Used by the worker to sweep up flags left over from a previous run.
func (r *CaseRepository) ListRecalculationNeeded() ([]models.Case, error) {
	var cases []models.Case
	err := r.DB.Where("recalculation_needed = ?", true).Find(&cases).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list cases needing recalculation: %w", err)
	}
	return cases, nil
}

// Delete removes a case by its ID
// this will perform a soft delete because models.Case has gorm.DeletedAt
func (r *CaseRepository) Delete(id uint) error {
	result := r.DB.Delete(&models.Case{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete case ID %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
