package services

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/avery-dunn/entomosysbackend/database"
	"github.com/avery-dunn/entomosysbackend/models"
)

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.User{},
		&models.Case{},
		&models.Upload{},
		&models.Detection{},
		&models.AnalysisResult{},
	)
	require.NoError(t, err)

	return db
}

func seedUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{Username: username, PasswordHash: "x", CreatedAt: 1, UpdatedAt: 1}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedCase(t *testing.T, db *gorm.DB, userID uint, status string, occurredAt *int64, ambientTempC *float64) *models.Case {
	t.Helper()
	c := &models.Case{
		UserID:       userID,
		Name:         "test case",
		Status:       status,
		OccurredAt:   occurredAt,
		AmbientTempC: ambientTempC,
		CreatedAt:    1,
		UpdatedAt:    1,
	}
	require.NoError(t, db.Create(c).Error)
	return c
}

func seedActiveCase(t *testing.T, db *gorm.DB, userID uint) *models.Case {
	t.Helper()
	return seedCase(t, db, userID, database.CaseStatusActive, nil, nil)
}

func seedUpload(t *testing.T, db *gorm.DB, caseID uint, fileName string) *models.Upload {
	t.Helper()
	upload := &models.Upload{
		CaseID:     caseID,
		FileName:   fileName,
		StorageKey: fileName + "-key",
		CreatedAt:  1,
		UpdatedAt:  1,
	}
	require.NoError(t, db.Create(upload).Error)
	return upload
}

func seedDetection(t *testing.T, db *gorm.DB, uploadID uint, label, status string, confidence *float64) *models.Detection {
	t.Helper()
	detection := &models.Detection{
		UploadID:           uploadID,
		Label:              label,
		OriginalLabel:      label,
		Confidence:         confidence,
		OriginalConfidence: confidence,
		XMin:               10,
		YMin:               10,
		XMax:               50,
		YMax:               50,
		Status:             status,
		CreatedAt:          1,
		UpdatedAt:          1,
	}
	require.NoError(t, db.Create(detection).Error)
	return detection
}

func floatPtr(v float64) *float64 { return &v }

func int64Ptr(v int64) *int64 { return &v }
