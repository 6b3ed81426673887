package services

import (
	"fmt"
	"log"
	"math"

	"github.com/avery-dunn/entomosysbackend/models"
	"github.com/avery-dunn/entomosysbackend/repository"
)

// DateRange optionally restricts analytics to cases whose occurrence date
// falls within [Start, End], inclusive. Bounds are Unix seconds; either may
// be nil.
type DateRange struct {
	Start *int64
	End   *int64
}

// ConfidenceBucket is one fixed decile of the confidence histogram.
type ConfidenceBucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// StageCount is the number of in-scope detections carrying one canonical
// life stage label.
type StageCount struct {
	Label    string `json:"label"`
	Quantity int    `json:"quantity"`
}

// DashboardMetrics summarizes a user's detection corpus. Only cases with at
// least one non-deleted detection contribute to any of the counts.
type DashboardMetrics struct {
	TotalCases              int     `json:"total_cases"`
	Verified                int     `json:"verified"`
	TotalImages             int     `json:"total_images"`
	VerifiedImages          int     `json:"verified_images"`
	TotalDetectionsCount    int     `json:"total_detections_count"`
	VerifiedDetectionsCount int     `json:"verified_detections_count"`
	AveragePMI              float64 `json:"average_pmi"`
	AverageConfidence       float64 `json:"average_confidence"`
	CorrectionRate          float64 `json:"correction_rate"`
}

// AnalyticsRowSource yields the joined detection rows the aggregations run over.
type AnalyticsRowSource interface {
	ListDetectionRows(userID uint, startDate, endDate *int64) ([]repository.DetectionRow, error)
}

// AnalyticsService computes the read-only aggregations over a user's
// detection corpus. All three operations share the same scoping: caller's
// cases only, soft-deleted rows excluded, optional occurrence date range.
type AnalyticsService struct {
	rows AnalyticsRowSource
}

// NewAnalyticsService creates a new analytics service
func NewAnalyticsService(rows AnalyticsRowSource) *AnalyticsService {
	return &AnalyticsService{rows: rows}
}

func (s *AnalyticsService) fetch(callerID uint, dateRange DateRange) ([]repository.DetectionRow, error) {
	if callerID == 0 {
		return nil, ErrUnauthenticated
	}
	rows, err := s.rows.ListDetectionRows(callerID, dateRange.Start, dateRange.End)
	if err != nil {
		// callers get the stable sentinel; the underlying persistence error
		// is logged server-side only, same as the reconciler's ErrSaveFailed
		log.Printf("analytics: failed to load detection rows for user %d: %v", callerID, err)
		return nil, ErrAnalyticsFailed
	}
	return rows, nil
}

// ConfidenceDistribution buckets the original model confidence of every
// in-scope detection into ten fixed deciles. The corpus carries two legacy
// confidence scales (0-1 and 0-100); values above 1 are divided by 100.
// TODO: migrate stored confidences to a single 0-1 scale and drop the
// dual-scale normalization here and in normalizeConfidence.
func (s *AnalyticsService) ConfidenceDistribution(callerID uint, dateRange DateRange) ([]ConfidenceBucket, error) {
	rows, err := s.fetch(callerID, dateRange)
	if err != nil {
		return nil, err
	}

	buckets := make([]ConfidenceBucket, 10)
	for i := range buckets {
		buckets[i].Label = fmt.Sprintf("%d-%d%%", i*10, (i+1)*10)
	}

	for i := range rows {
		idx, ok := confidenceBucketIndex(rows[i].OriginalConfidence)
		if !ok {
			continue
		}
		buckets[idx].Count++
	}
	return buckets, nil
}

// normalizeConfidence maps a stored confidence onto the 0-1 scale. Values
// above 1 are treated as percentages and divided by 100.
func normalizeConfidence(value float64) float64 {
	if value > 1 {
		return value / 100
	}
	return value
}

// confidenceBucketIndex resolves a stored confidence to its decile index.
// Nil, negative and out-of-range values are excluded (ok == false) rather
// than failing the whole aggregation; exactly 1.0 lands in the last bucket.
func confidenceBucketIndex(value *float64) (int, bool) {
	if value == nil {
		return 0, false
	}
	normalized := normalizeConfidence(*value)
	if normalized < 0 {
		return 0, false
	}
	idx := int(math.Floor(normalized * 10))
	if normalized == 1.0 {
		idx = 9
	}
	if idx < 0 || idx > 9 {
		return 0, false
	}
	return idx, true
}

// StageDistribution counts in-scope detections per canonical life stage, in
// canonical developmental order. Labels outside the canonical set are not
// counted in any bucket.
func (s *AnalyticsService) StageDistribution(callerID uint, dateRange DateRange) ([]StageCount, error) {
	rows, err := s.fetch(callerID, dateRange)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(StageOrder))
	for i := range rows {
		if _, ok := stageRanks[rows[i].Label]; ok {
			counts[rows[i].Label]++
		}
	}

	distribution := make([]StageCount, 0, len(StageOrder))
	for _, label := range StageOrder {
		distribution = append(distribution, StageCount{Label: label, Quantity: counts[label]})
	}
	return distribution, nil
}

// DashboardMetrics computes the case-level dashboard counters. Cases and
// uploads enter the counts only through their non-deleted detections, so a
// case with uploads but no detections contributes nothing.
func (s *AnalyticsService) DashboardMetrics(callerID uint, dateRange DateRange) (*DashboardMetrics, error) {
	rows, err := s.fetch(callerID, dateRange)
	if err != nil {
		return nil, err
	}

	metrics := &DashboardMetrics{}

	caseVerified := make(map[uint]bool)
	uploadVerified := make(map[uint]bool)
	casePMI := make(map[uint]*float64)

	confidenceSum := 0.0
	confidenceCount := 0
	corrections := 0

	for i := range rows {
		row := &rows[i]
		verified := row.Status == models.DetectionStatusUserConfirmed ||
			row.Status == models.DetectionStatusUserEditedConfirmed

		if _, seen := caseVerified[row.CaseID]; !seen {
			caseVerified[row.CaseID] = true
			casePMI[row.CaseID] = row.PMIHours
		}
		if _, seen := uploadVerified[row.UploadID]; !seen {
			uploadVerified[row.UploadID] = true
		}
		if !verified {
			caseVerified[row.CaseID] = false
			uploadVerified[row.UploadID] = false
		}

		metrics.TotalDetectionsCount++
		if verified {
			metrics.VerifiedDetectionsCount++
		}

		if row.Confidence != nil {
			confidenceSum += *row.Confidence
			confidenceCount++
		}

		if isCorrected(row) {
			corrections++
		}
	}

	metrics.TotalCases = len(caseVerified)
	metrics.TotalImages = len(uploadVerified)
	for _, ok := range caseVerified {
		if ok {
			metrics.Verified++
		}
	}
	for _, ok := range uploadVerified {
		if ok {
			metrics.VerifiedImages++
		}
	}

	pmiSum := 0.0
	pmiCount := 0
	for _, pmi := range casePMI {
		if pmi != nil {
			pmiSum += *pmi
			pmiCount++
		}
	}

	// simple arithmetic means; empty populations yield 0, never NaN
	if pmiCount > 0 {
		metrics.AveragePMI = pmiSum / float64(pmiCount)
	}
	if confidenceCount > 0 {
		metrics.AverageConfidence = confidenceSum / float64(confidenceCount)
	}
	if metrics.TotalDetectionsCount > 0 {
		metrics.CorrectionRate = float64(corrections) / float64(metrics.TotalDetectionsCount) * 100
	}

	return metrics, nil
}

// isCorrected reports whether a human altered the detection away from the
// model's original output: a relabel, a hand-drawn box, or an edit.
func isCorrected(row *repository.DetectionRow) bool {
	if row.Label != row.OriginalLabel {
		return true
	}
	switch row.Status {
	case models.DetectionStatusUserCreated, models.DetectionStatusUserEdited, models.DetectionStatusUserEditedConfirmed:
		return true
	}
	return false
}
