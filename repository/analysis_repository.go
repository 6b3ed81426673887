package repository

import (
	"fmt"
	"time"

	"github.com/avery-dunn/entomosysbackend/models"
	"gorm.io/gorm"
)

// AnalysisResultRepository handles database operations for AnalysisResult entities
type AnalysisResultRepository struct {
	DB *gorm.DB
}

// NewAnalysisResultRepository creates a new instance of AnalysisResultRepository
func NewAnalysisResultRepository(db *gorm.DB) *AnalysisResultRepository {
	return &AnalysisResultRepository{DB: db}
}

// GetByCaseID retrieves the analysis result for a case, if one exists
func (r *AnalysisResultRepository) GetByCaseID(caseID uint) (*models.AnalysisResult, error) {
	var result models.AnalysisResult
	err := r.DB.Where("case_id = ?", caseID).First(&result).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get analysis result for case %d: %w", caseID, err)
	}
	return &result, nil
}

// Upsert writes the analysis result for a case, replacing any previous row.
// Each case has at most one analysis result.
func (r *AnalysisResultRepository) Upsert(result *models.AnalysisResult) error {
	if result.CalculatedAt == 0 {
		result.CalculatedAt = time.Now().Unix()
	}

	var existing models.AnalysisResult
	err := r.DB.Where("case_id = ?", result.CaseID).First(&existing).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			return fmt.Errorf("failed to look up analysis result for case %d: %w", result.CaseID, err)
		}
		if err := r.DB.Create(result).Error; err != nil {
			return fmt.Errorf("failed to create analysis result for case %d: %w", result.CaseID, err)
		}
		return nil
	}

	updates := map[string]interface{}{
		"pmi_hours":             result.PMIHours,
		"oldest_stage_detected": result.OldestStageDetected,
		"calculated_at":         result.CalculatedAt,
	}
	if err := r.DB.Model(&models.AnalysisResult{}).Where("id = ?", existing.ID).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update analysis result for case %d: %w", result.CaseID, err)
	}
	result.ID = existing.ID
	return nil
}
