package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/avery-dunn/entomosysbackend/database"
	"github.com/avery-dunn/entomosysbackend/models"
	"github.com/avery-dunn/entomosysbackend/repository"
)

func newTestAnalytics(db *gorm.DB) *AnalyticsService {
	return NewAnalyticsService(repository.NewAnalyticsRepository(db))
}

func TestAnalyticsAuthentication(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	svc := newTestAnalytics(db)

	_, err := svc.ConfidenceDistribution(0, DateRange{})
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = svc.StageDistribution(0, DateRange{})
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = svc.DashboardMetrics(0, DateRange{})
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

type failingRowSource struct{}

func (failingRowSource) ListDetectionRows(userID uint, startDate, endDate *int64) ([]repository.DetectionRow, error) {
	return nil, errors.New("database is on fire")
}

func TestAnalyticsPersistenceFailure(t *testing.T) {
	t.Parallel()
	svc := NewAnalyticsService(failingRowSource{})

	// callers see the stable sentinel, never the raw persistence error
	_, err := svc.ConfidenceDistribution(1, DateRange{})
	assert.ErrorIs(t, err, ErrAnalyticsFailed)
	_, err = svc.StageDistribution(1, DateRange{})
	assert.ErrorIs(t, err, ErrAnalyticsFailed)
	_, err = svc.DashboardMetrics(1, DateRange{})
	assert.ErrorIs(t, err, ErrAnalyticsFailed)
}

func TestConfidenceDistribution(t *testing.T) {
	t.Parallel()

	t.Run("all ten buckets are present with zero matches", func(t *testing.T) {
		t.Parallel()
		db := setupTestDB(t)
		user := seedUser(t, db, "owner")

		buckets, err := newTestAnalytics(db).ConfidenceDistribution(user.ID, DateRange{})
		require.NoError(t, err)
		require.Len(t, buckets, 10)
		assert.Equal(t, "0-10%", buckets[0].Label)
		assert.Equal(t, "90-100%", buckets[9].Label)
		for _, b := range buckets {
			assert.Zero(t, b.Count)
		}
	})

	t.Run("both legacy confidence scales land in the same bucket", func(t *testing.T) {
		t.Parallel()
		db := setupTestDB(t)
		user := seedUser(t, db, "owner")
		c := seedActiveCase(t, db, user.ID)
		upload := seedUpload(t, db, c.ID, "img001.jpg")
		seedDetection(t, db, upload.ID, StagePupa, models.DetectionStatusModelGenerated, floatPtr(55))   // 0-100 scale
		seedDetection(t, db, upload.ID, StagePupa, models.DetectionStatusModelGenerated, floatPtr(0.55)) // 0-1 scale

		buckets, err := newTestAnalytics(db).ConfidenceDistribution(user.ID, DateRange{})
		require.NoError(t, err)
		assert.Equal(t, "50-60%", buckets[5].Label)
		assert.Equal(t, 2, buckets[5].Count)
	})

	t.Run("full confidence lands in the last bucket, not an eleventh", func(t *testing.T) {
		t.Parallel()
		db := setupTestDB(t)
		user := seedUser(t, db, "owner")
		c := seedActiveCase(t, db, user.ID)
		upload := seedUpload(t, db, c.ID, "img001.jpg")
		seedDetection(t, db, upload.ID, StagePupa, models.DetectionStatusModelGenerated, floatPtr(100))
		seedDetection(t, db, upload.ID, StagePupa, models.DetectionStatusModelGenerated, floatPtr(1.0))

		buckets, err := newTestAnalytics(db).ConfidenceDistribution(user.ID, DateRange{})
		require.NoError(t, err)
		assert.Equal(t, 2, buckets[9].Count)
	})

	t.Run("invalid values are excluded without failing the call", func(t *testing.T) {
		t.Parallel()
		db := setupTestDB(t)
		user := seedUser(t, db, "owner")
		c := seedActiveCase(t, db, user.ID)
		upload := seedUpload(t, db, c.ID, "img001.jpg")
		seedDetection(t, db, upload.ID, StagePupa, models.DetectionStatusModelGenerated, floatPtr(-0.1))
		seedDetection(t, db, upload.ID, StagePupa, models.DetectionStatusModelGenerated, nil)
		seedDetection(t, db, upload.ID, StagePupa, models.DetectionStatusModelGenerated, floatPtr(0.3))

		buckets, err := newTestAnalytics(db).ConfidenceDistribution(user.ID, DateRange{})
		require.NoError(t, err)

		total := 0
		for _, b := range buckets {
			total += b.Count
		}
		assert.Equal(t, 1, total)
		assert.Equal(t, 1, buckets[3].Count)
	})

	t.Run("soft-deleted detections are excluded", func(t *testing.T) {
		t.Parallel()
		db := setupTestDB(t)
		user := seedUser(t, db, "owner")
		c := seedActiveCase(t, db, user.ID)
		upload := seedUpload(t, db, c.ID, "img001.jpg")
		doomed := seedDetection(t, db, upload.ID, StagePupa, models.DetectionStatusModelGenerated, floatPtr(0.9))
		require.NoError(t, db.Delete(&models.Detection{}, doomed.ID).Error)

		buckets, err := newTestAnalytics(db).ConfidenceDistribution(user.ID, DateRange{})
		require.NoError(t, err)
		for _, b := range buckets {
			assert.Zero(t, b.Count)
		}
	})
}

func TestStageDistribution(t *testing.T) {
	t.Parallel()

	t.Run("canonical order with counts", func(t *testing.T) {
		t.Parallel()
		db := setupTestDB(t)
		user := seedUser(t, db, "owner")
		c := seedActiveCase(t, db, user.ID)
		upload := seedUpload(t, db, c.ID, "img001.jpg")
		seedDetection(t, db, upload.ID, StageAdult, models.DetectionStatusModelGenerated, floatPtr(0.9))
		seedDetection(t, db, upload.ID, StageInstar3, models.DetectionStatusModelGenerated, floatPtr(0.9))
		seedDetection(t, db, upload.ID, StagePupa, models.DetectionStatusModelGenerated, floatPtr(0.9))

		distribution, err := newTestAnalytics(db).StageDistribution(user.ID, DateRange{})
		require.NoError(t, err)

		expected := []StageCount{
			{Label: StageInstar1, Quantity: 0},
			{Label: StageInstar2, Quantity: 0},
			{Label: StageInstar3, Quantity: 1},
			{Label: StagePupa, Quantity: 1},
			{Label: StageAdult, Quantity: 1},
		}
		assert.Equal(t, expected, distribution)
	})

	t.Run("unrecognized labels are not counted in any bucket", func(t *testing.T) {
		t.Parallel()
		db := setupTestDB(t)
		user := seedUser(t, db, "owner")
		c := seedActiveCase(t, db, user.ID)
		upload := seedUpload(t, db, c.ID, "img001.jpg")
		seedDetection(t, db, upload.ID, "egg", models.DetectionStatusModelGenerated, floatPtr(0.9))

		distribution, err := newTestAnalytics(db).StageDistribution(user.ID, DateRange{})
		require.NoError(t, err)
		for _, entry := range distribution {
			assert.Zero(t, entry.Quantity)
		}
	})
}

func TestDashboardMetrics(t *testing.T) {
	t.Parallel()

	t.Run("average confidence over current values", func(t *testing.T) {
		t.Parallel()
		db := setupTestDB(t)
		user := seedUser(t, db, "owner")
		c := seedActiveCase(t, db, user.ID)
		upload := seedUpload(t, db, c.ID, "img001.jpg")
		seedDetection(t, db, upload.ID, StagePupa, models.DetectionStatusUserConfirmed, floatPtr(0.8))
		seedDetection(t, db, upload.ID, StageAdult, models.DetectionStatusUserConfirmed, floatPtr(0.9))

		metrics, err := newTestAnalytics(db).DashboardMetrics(user.ID, DateRange{})
		require.NoError(t, err)
		assert.InDelta(t, 0.85, metrics.AverageConfidence, 0.0001)
		assert.Equal(t, 1, metrics.TotalCases)
		assert.Equal(t, 1, metrics.Verified)
		assert.Equal(t, 2, metrics.TotalDetectionsCount)
		assert.Equal(t, 2, metrics.VerifiedDetectionsCount)
	})

	t.Run("empty population yields zeroes, never NaN", func(t *testing.T) {
		t.Parallel()
		db := setupTestDB(t)
		user := seedUser(t, db, "owner")

		metrics, err := newTestAnalytics(db).DashboardMetrics(user.ID, DateRange{})
		require.NoError(t, err)
		assert.Zero(t, metrics.TotalCases)
		assert.Zero(t, metrics.AveragePMI)
		assert.Zero(t, metrics.AverageConfidence)
		assert.Zero(t, metrics.CorrectionRate)
	})

	t.Run("cases without detections are excluded entirely", func(t *testing.T) {
		t.Parallel()
		db := setupTestDB(t)
		user := seedUser(t, db, "owner")
		withDetections := seedActiveCase(t, db, user.ID)
		upload := seedUpload(t, db, withDetections.ID, "img001.jpg")
		seedDetection(t, db, upload.ID, StagePupa, models.DetectionStatusModelGenerated, floatPtr(0.9))

		// a case with an upload but no detections contributes nothing
		empty := seedActiveCase(t, db, user.ID)
		seedUpload(t, db, empty.ID, "img002.jpg")

		metrics, err := newTestAnalytics(db).DashboardMetrics(user.ID, DateRange{})
		require.NoError(t, err)
		assert.Equal(t, 1, metrics.TotalCases)
		assert.Equal(t, 1, metrics.TotalImages)
	})

	t.Run("a single unreviewed detection blocks case and image verification", func(t *testing.T) {
		t.Parallel()
		db := setupTestDB(t)
		user := seedUser(t, db, "owner")
		c := seedActiveCase(t, db, user.ID)
		uploadA := seedUpload(t, db, c.ID, "img001.jpg")
		uploadB := seedUpload(t, db, c.ID, "img002.jpg")
		seedDetection(t, db, uploadA.ID, StagePupa, models.DetectionStatusUserConfirmed, floatPtr(0.9))
		seedDetection(t, db, uploadA.ID, StageAdult, models.DetectionStatusUserEditedConfirmed, floatPtr(0.9))
		seedDetection(t, db, uploadB.ID, StagePupa, models.DetectionStatusModelGenerated, floatPtr(0.9))

		metrics, err := newTestAnalytics(db).DashboardMetrics(user.ID, DateRange{})
		require.NoError(t, err)
		assert.Equal(t, 1, metrics.TotalCases)
		assert.Zero(t, metrics.Verified, "model_generated detection blocks verification")
		assert.Equal(t, 2, metrics.TotalImages)
		assert.Equal(t, 1, metrics.VerifiedImages)
		assert.Equal(t, 3, metrics.TotalDetectionsCount)
		assert.Equal(t, 2, metrics.VerifiedDetectionsCount)
	})

	t.Run("average PMI over cases with results", func(t *testing.T) {
		t.Parallel()
		db := setupTestDB(t)
		user := seedUser(t, db, "owner")

		caseA := seedActiveCase(t, db, user.ID)
		uploadA := seedUpload(t, db, caseA.ID, "img001.jpg")
		seedDetection(t, db, uploadA.ID, StagePupa, models.DetectionStatusModelGenerated, floatPtr(0.9))
		require.NoError(t, db.Create(&models.AnalysisResult{CaseID: caseA.ID, PMIHours: floatPtr(100), CalculatedAt: 1}).Error)

		caseB := seedActiveCase(t, db, user.ID)
		uploadB := seedUpload(t, db, caseB.ID, "img002.jpg")
		seedDetection(t, db, uploadB.ID, StagePupa, models.DetectionStatusModelGenerated, floatPtr(0.9))
		require.NoError(t, db.Create(&models.AnalysisResult{CaseID: caseB.ID, PMIHours: floatPtr(200), CalculatedAt: 1}).Error)

		// a case whose analysis has no PMI value does not drag the mean down
		caseC := seedActiveCase(t, db, user.ID)
		uploadC := seedUpload(t, db, caseC.ID, "img003.jpg")
		seedDetection(t, db, uploadC.ID, StagePupa, models.DetectionStatusModelGenerated, floatPtr(0.9))

		metrics, err := newTestAnalytics(db).DashboardMetrics(user.ID, DateRange{})
		require.NoError(t, err)
		assert.InDelta(t, 150, metrics.AveragePMI, 0.0001)
	})

	t.Run("correction rate counts human-altered detections", func(t *testing.T) {
		t.Parallel()
		db := setupTestDB(t)
		user := seedUser(t, db, "owner")
		c := seedActiveCase(t, db, user.ID)
		upload := seedUpload(t, db, c.ID, "img001.jpg")

		// untouched model output
		seedDetection(t, db, upload.ID, StagePupa, models.DetectionStatusModelGenerated, floatPtr(0.9))
		// confirmed as-is: not a correction
		seedDetection(t, db, upload.ID, StagePupa, models.DetectionStatusUserConfirmed, floatPtr(0.9))
		// hand-drawn detection
		seedDetection(t, db, upload.ID, StageAdult, models.DetectionStatusUserCreated, floatPtr(0.9))
		// relabeled detection
		relabeled := seedDetection(t, db, upload.ID, StageInstar1, models.DetectionStatusUserConfirmed, floatPtr(0.9))
		require.NoError(t, db.Model(&models.Detection{}).Where("id = ?", relabeled.ID).Update("label", StageInstar2).Error)

		metrics, err := newTestAnalytics(db).DashboardMetrics(user.ID, DateRange{})
		require.NoError(t, err)
		assert.InDelta(t, 50, metrics.CorrectionRate, 0.0001)
	})
}

func TestAnalyticsScoping(t *testing.T) {
	t.Parallel()

	t.Run("other users' data is invisible", func(t *testing.T) {
		t.Parallel()
		db := setupTestDB(t)
		owner := seedUser(t, db, "owner")
		other := seedUser(t, db, "other")

		c := seedActiveCase(t, db, other.ID)
		upload := seedUpload(t, db, c.ID, "img001.jpg")
		seedDetection(t, db, upload.ID, StagePupa, models.DetectionStatusModelGenerated, floatPtr(0.9))

		metrics, err := newTestAnalytics(db).DashboardMetrics(owner.ID, DateRange{})
		require.NoError(t, err)
		assert.Zero(t, metrics.TotalCases)
		assert.Zero(t, metrics.TotalDetectionsCount)
	})

	t.Run("date range filters on case occurrence date", func(t *testing.T) {
		t.Parallel()
		db := setupTestDB(t)
		user := seedUser(t, db, "owner")

		inRange := seedCase(t, db, user.ID, database.CaseStatusActive, int64Ptr(1_000_000), nil)
		uploadIn := seedUpload(t, db, inRange.ID, "img001.jpg")
		seedDetection(t, db, uploadIn.ID, StagePupa, models.DetectionStatusModelGenerated, floatPtr(0.9))

		outOfRange := seedCase(t, db, user.ID, database.CaseStatusActive, int64Ptr(5_000_000), nil)
		uploadOut := seedUpload(t, db, outOfRange.ID, "img002.jpg")
		seedDetection(t, db, uploadOut.ID, StageAdult, models.DetectionStatusModelGenerated, floatPtr(0.9))

		// occurrence date missing: excluded once a bound is supplied
		undated := seedActiveCase(t, db, user.ID)
		uploadUndated := seedUpload(t, db, undated.ID, "img003.jpg")
		seedDetection(t, db, uploadUndated.ID, StageInstar1, models.DetectionStatusModelGenerated, floatPtr(0.9))

		metrics, err := newTestAnalytics(db).DashboardMetrics(user.ID, DateRange{
			Start: int64Ptr(500_000),
			End:   int64Ptr(2_000_000),
		})
		require.NoError(t, err)
		assert.Equal(t, 1, metrics.TotalCases)
		assert.Equal(t, 1, metrics.TotalDetectionsCount)

		// either bound may be omitted
		metrics, err = newTestAnalytics(db).DashboardMetrics(user.ID, DateRange{Start: int64Ptr(2_000_000)})
		require.NoError(t, err)
		assert.Equal(t, 1, metrics.TotalCases)
	})
}
