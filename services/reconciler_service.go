package services

import (
	"errors"
	"fmt"
	"log"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/avery-dunn/entomosysbackend/database"
	"github.com/avery-dunn/entomosysbackend/models"
	"github.com/avery-dunn/entomosysbackend/realtime"
	"github.com/avery-dunn/entomosysbackend/repository"
)

// NewDetection is a client-submitted detection to create.
type NewDetection struct {
	Label      string   `json:"label" validate:"required"`
	Confidence *float64 `json:"confidence"`
	XMin       float64  `json:"x_min"`
	YMin       float64  `json:"y_min"`
	XMax       float64  `json:"x_max" validate:"gtfield=XMin"`
	YMax       float64  `json:"y_max" validate:"gtfield=YMin"`
	Status     string   `json:"status" validate:"omitempty,oneof=model_generated user_created user_confirmed user_edited user_edited_confirmed"`
}

// DetectionEdit is a client-submitted modification of an existing detection.
type DetectionEdit struct {
	ID         uint     `json:"id" validate:"required"`
	Label      string   `json:"label" validate:"required"`
	Confidence *float64 `json:"confidence"`
	XMin       float64  `json:"x_min"`
	YMin       float64  `json:"y_min"`
	XMax       float64  `json:"x_max" validate:"gtfield=XMin"`
	YMax       float64  `json:"y_max" validate:"gtfield=YMin"`
	Status     string   `json:"status" validate:"required,oneof=model_generated user_created user_confirmed user_edited user_edited_confirmed"`
}

// ChangeSet bundles the additions, modifications and deletions a client wants
// applied to an upload's detections in a single reconcile call.
type ChangeSet struct {
	Added    []NewDetection  `json:"added" validate:"dive"`
	Modified []DetectionEdit `json:"modified" validate:"dive"`
	Deleted  []uint          `json:"deleted"`
}

// IsEmpty reports whether the change-set contains no work at all.
func (cs *ChangeSet) IsEmpty() bool {
	return len(cs.Added) == 0 && len(cs.Modified) == 0 && len(cs.Deleted) == 0
}

// RecalcNotifier is told when a case needs its PMI recomputed. Implemented by
// the recalculation worker; fire-and-forget from the reconciler's view.
type RecalcNotifier interface {
	Enqueue(caseID uint)
}

// ReconcilerService applies detection change-sets atomically and decides
// whether the owning case must be flagged for PMI recalculation.
type ReconcilerService struct {
	db            *gorm.DB
	caseRepo      repository.CaseRepositoryInterface
	uploadRepo    repository.UploadRepositoryInterface
	detectionRepo repository.DetectionRepositoryInterface
	hub           *realtime.Hub
	recalc        RecalcNotifier
	validate      *validator.Validate
}

// NewReconcilerService creates a new reconciler service. hub and recalc may
// be nil (no events / no recalculation trigger), which the tests rely on.
// The db handle is still needed alongside the repositories: the change-set
// apply runs in a transaction with tx-scoped repositories.
func NewReconcilerService(
	db *gorm.DB,
	caseRepo repository.CaseRepositoryInterface,
	uploadRepo repository.UploadRepositoryInterface,
	detectionRepo repository.DetectionRepositoryInterface,
	hub *realtime.Hub,
	recalc RecalcNotifier,
) *ReconcilerService {
	return &ReconcilerService{
		db:            db,
		caseRepo:      caseRepo,
		uploadRepo:    uploadRepo,
		detectionRepo: detectionRepo,
		hub:           hub,
		recalc:        recalc,
		validate:      validator.New(),
	}
}

// Reconcile validates ownership and case state, applies the change-set in a
// single transaction, derives each modified detection's persisted status,
// flags the case for PMI recalculation when the detection set changed in a
// way that could alter it, and returns the upload's current non-deleted
// detections.
func (s *ReconcilerService) Reconcile(uploadID, caseID, callerID uint, changeSet ChangeSet) ([]models.Detection, error) {
	if callerID == 0 {
		return nil, ErrUnauthorized
	}

	if err := s.validate.Struct(&changeSet); err != nil {
		return nil, fmt.Errorf("%w %v", ErrInvalidChangeSet, err)
	}

	// a draft (or closed) case is indistinguishable from a missing one
	c, err := s.caseRepo.GetByIDForUser(caseID, callerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCaseNotFound
		}
		log.Printf("reconcile: failed to load case %d: %v", caseID, err)
		return nil, ErrSaveFailed
	}
	if c.Status != database.CaseStatusActive {
		return nil, ErrCaseNotFound
	}

	if _, err := s.uploadRepo.GetByIDForCase(uploadID, caseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrImageNotFound
		}
		log.Printf("reconcile: failed to load upload %d: %v", uploadID, err)
		return nil, ErrSaveFailed
	}

	// an empty change-set touches nothing and never flags recalculation
	if changeSet.IsEmpty() {
		return s.detectionRepo.ListByUpload(uploadID)
	}

	flagged := false
	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		txDetections := repository.NewDetectionRepository(tx)
		txCases := repository.NewCaseRepository(tx)
		txResults := repository.NewAnalysisResultRepository(tx)

		structuralChange := false

		for _, id := range changeSet.Deleted {
			rows, err := txDetections.SoftDeleteForUpload(id, uploadID)
			if err != nil {
				return err
			}
			if rows > 0 {
				structuralChange = true
			}
		}

		for _, add := range changeSet.Added {
			status := add.Status
			if status == "" {
				status = models.DetectionStatusUserCreated
			}
			detection := models.Detection{
				UploadID:           uploadID,
				Label:              add.Label,
				OriginalLabel:      add.Label,
				Confidence:         add.Confidence,
				OriginalConfidence: add.Confidence,
				XMin:               add.XMin,
				YMin:               add.YMin,
				XMax:               add.XMax,
				YMax:               add.YMax,
				Status:             status,
			}
			if err := txDetections.Create(&detection); err != nil {
				return err
			}
			structuralChange = true
		}

		for _, edit := range changeSet.Modified {
			existing, err := txDetections.GetByIDForUpload(edit.ID, uploadID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrDetectionNotFound
				}
				return err
			}

			coordinatesChanged := existing.XMin != edit.XMin ||
				existing.YMin != edit.YMin ||
				existing.XMax != edit.XMax ||
				existing.YMax != edit.YMax
			if existing.Label != edit.Label {
				structuralChange = true
			}

			existing.Status = TransitionStatus(existing.Status, edit.Status, coordinatesChanged)
			existing.Label = edit.Label
			existing.Confidence = edit.Confidence
			existing.XMin = edit.XMin
			existing.YMin = edit.YMin
			existing.XMax = edit.XMax
			existing.YMax = edit.YMax

			if err := txDetections.Update(existing); err != nil {
				return err
			}
		}

		// flag recalculation on any structural change, or when the computed
		// oldest stage no longer matches the recorded analysis result. The
		// flag is deliberately coarse: downstream PMI depends on counts and
		// confidences, not only on the oldest stage.
		oldestChanged, err := s.oldestStageChanged(txDetections, txResults, caseID)
		if err != nil {
			return err
		}
		if structuralChange || oldestChanged {
			if err := txCases.SetRecalculationNeeded(caseID, true); err != nil {
				return err
			}
			flagged = true
		}

		return nil
	})
	if txErr != nil {
		if errors.Is(txErr, ErrDetectionNotFound) {
			return nil, ErrDetectionNotFound
		}
		log.Printf("reconcile: transaction failed for upload %d (case %d): %v", uploadID, caseID, txErr)
		return nil, ErrSaveFailed
	}

	if flagged {
		if s.recalc != nil {
			s.recalc.Enqueue(caseID)
		}
		if s.hub != nil {
			s.hub.Broadcast(realtime.Event{
				Type:     realtime.EventDetectionsReconciled,
				CaseID:   caseID,
				UploadID: uploadID,
			})
		}
	}

	detections, err := s.detectionRepo.ListByUpload(uploadID)
	if err != nil {
		log.Printf("reconcile: failed to list detections for upload %d: %v", uploadID, err)
		return nil, ErrSaveFailed
	}
	return detections, nil
}

// oldestStageChanged compares the oldest stage over the case's current
// non-deleted detections against the one recorded by the last analysis run.
func (s *ReconcilerService) oldestStageChanged(detections repository.DetectionRepositoryInterface, results repository.AnalysisResultRepositoryInterface, caseID uint) (bool, error) {
	current, err := detections.ListByCase(caseID)
	if err != nil {
		return false, err
	}
	labels := make([]string, 0, len(current))
	for i := range current {
		labels = append(labels, current[i].Label)
	}
	oldest, hasDetections := OldestStage(labels)

	result, err := results.GetByCaseID(caseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// no prior analysis: any present detection set differs from it
			return hasDetections, nil
		}
		return false, err
	}
	if result.OldestStageDetected == nil {
		return hasDetections, nil
	}
	if !hasDetections {
		return true, nil
	}
	return StageRank(oldest) != StageRank(*result.OldestStageDetected), nil
}
