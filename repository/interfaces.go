package repository

import (
	"github.com/avery-dunn/entomosysbackend/models"
)

// UserRepositoryInterface defines the methods for user data operations
type UserRepositoryInterface interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByUsername(username string) (*models.User, error)
}

// CaseRepositoryInterface defines the methods for case data operations
type CaseRepositoryInterface interface {
	Create(c *models.Case) error
	GetByID(id uint) (*models.Case, error)
	GetByIDForUser(id, userID uint) (*models.Case, error)
	ListByUser(userID uint) ([]models.Case, error)
	Update(caseID uint, name string, occurredAt *int64, ambientTempC *float64) error
	SetStatus(caseID uint, status string) error
	SetRecalculationNeeded(caseID uint, needed bool) error
	ListRecalculationNeeded() ([]models.Case, error)
	Delete(id uint) error
}

// UploadRepositoryInterface defines the methods for upload data operations
type UploadRepositoryInterface interface {
	Create(upload *models.Upload) error
	GetByID(id uint) (*models.Upload, error)
	GetByIDForCase(id, caseID uint) (*models.Upload, error)
	ListByCase(caseID uint) ([]models.Upload, error)
	Delete(id uint) error
}

// DetectionRepositoryInterface defines the methods for detection data operations
type DetectionRepositoryInterface interface {
	Create(detection *models.Detection) error
	GetByIDForUpload(id, uploadID uint) (*models.Detection, error)
	ListByUpload(uploadID uint) ([]models.Detection, error)
	ListByUploadIncludingDeleted(uploadID uint) ([]models.Detection, error)
	ListByCase(caseID uint) ([]models.Detection, error)
	Update(detection *models.Detection) error
	SoftDeleteForUpload(id, uploadID uint) (int64, error)
}

// AnalysisResultRepositoryInterface defines the methods for analysis result data operations
type AnalysisResultRepositoryInterface interface {
	GetByCaseID(caseID uint) (*models.AnalysisResult, error)
	Upsert(result *models.AnalysisResult) error
}
