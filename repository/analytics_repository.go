package repository

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"gorm.io/gorm"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// DetectionRow is a flattened detection joined with its upload and case,
// as consumed by the analytics aggregations.
type DetectionRow struct {
	CaseID             uint
	UploadID           uint
	DetectionID        uint
	Label              string
	OriginalLabel      string
	Confidence         *float64
	OriginalConfidence *float64
	Status             string
	PMIHours           *float64
}

// AnalyticsRepository runs the read-only joined queries behind the analytics
// aggregations. Queries are built with squirrel and executed over the raw
// connection; the aggregation logic itself lives in the service layer.
type AnalyticsRepository struct {
	DB *gorm.DB
}

// NewAnalyticsRepository creates a new instance of AnalyticsRepository
func NewAnalyticsRepository(db *gorm.DB) *AnalyticsRepository {
	return &AnalyticsRepository{DB: db}
}

// ListDetectionRows retrieves every non-deleted detection in the user's
// non-deleted cases/uploads, optionally restricted to cases whose occurrence
// date falls within the inclusive [startDate, endDate] range (Unix seconds,
// either bound may be nil). Each row carries the case's PMI when an analysis
// result exists.
func (r *AnalyticsRepository) ListDetectionRows(userID uint, startDate, endDate *int64) ([]DetectionRow, error) {
	queryBuilder := psql.
		Select(
			"cases.id",
			"uploads.id",
			"detections.id",
			"detections.label",
			"detections.original_label",
			"detections.confidence",
			"detections.original_confidence",
			"detections.status",
			"analysis_results.pmi_hours",
		).
		From("detections").
		Join("uploads ON uploads.id = detections.upload_id").
		Join("cases ON cases.id = uploads.case_id").
		LeftJoin("analysis_results ON analysis_results.case_id = cases.id").
		Where(sq.Eq{"cases.user_id": userID}).
		Where("detections.deleted_at IS NULL").
		Where("uploads.deleted_at IS NULL").
		Where("cases.deleted_at IS NULL").
		OrderBy("detections.id ASC")

	if startDate != nil {
		queryBuilder = queryBuilder.Where(sq.GtOrEq{"cases.occurred_at": *startDate})
	}
	if endDate != nil {
		queryBuilder = queryBuilder.Where(sq.LtOrEq{"cases.occurred_at": *endDate})
	}

	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build SQL query for ListDetectionRows: %w", err)
	}

	rows, err := r.DB.Raw(sqlStr, args...).Rows()
	if err != nil {
		return nil, fmt.Errorf("failed to query detection rows for user %d: %w", userID, err)
	}
	defer rows.Close()

	var results []DetectionRow
	for rows.Next() {
		var row DetectionRow
		if err := rows.Scan(
			&row.CaseID,
			&row.UploadID,
			&row.DetectionID,
			&row.Label,
			&row.OriginalLabel,
			&row.Confidence,
			&row.OriginalConfidence,
			&row.Status,
			&row.PMIHours,
		); err != nil {
			return nil, fmt.Errorf("failed to scan detection row: %w", err)
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate detection rows: %w", err)
	}

	return results, nil
}
