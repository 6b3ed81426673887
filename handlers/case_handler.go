package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/facette/natsort"
	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/avery-dunn/entomosysbackend/database"
	"github.com/avery-dunn/entomosysbackend/models"
	"github.com/avery-dunn/entomosysbackend/repository"
	"github.com/avery-dunn/entomosysbackend/services"
)

type CaseHandler struct {
	CaseRepo   repository.CaseRepositoryInterface
	UploadRepo repository.UploadRepositoryInterface
	ResultRepo repository.AnalysisResultRepositoryInterface
}

// caseIDFromURL parses the case_id chi URL parameter
func caseIDFromURL(r *http.Request) (uint, bool) {
	raw := chi.URLParam(r, "case_id")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

type casePayload struct {
	Name         string   `json:"name"`
	OccurredAt   *int64   `json:"occurred_at"`
	AmbientTempC *float64 `json:"ambient_temp_c"`
}

func (h *CaseHandler) CreateCase(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r)
	if !ok {
		WriteAPIError(w, http.StatusUnauthorized, "unauthenticated", services.ErrUnauthenticated.Error())
		return
	}

	var payload casePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_payload", "Invalid request body: "+err.Error())
		return
	}
	if payload.Name == "" {
		WriteAPIError(w, http.StatusBadRequest, "invalid_payload", "Case name is required")
		return
	}

	c := models.Case{
		UserID:       user.ID,
		Name:         payload.Name,
		Status:       database.CaseStatusDraft,
		OccurredAt:   payload.OccurredAt,
		AmbientTempC: payload.AmbientTempC,
	}
	if err := h.CaseRepo.Create(&c); err != nil {
		log.Printf("Error creating case for user %d: %v", user.ID, err)
		WriteAPIError(w, http.StatusInternalServerError, "create_error", "Failed to create case")
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *CaseHandler) ListCases(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r)
	if !ok {
		WriteAPIError(w, http.StatusUnauthorized, "unauthenticated", services.ErrUnauthenticated.Error())
		return
	}

	cases, err := h.CaseRepo.ListByUser(user.ID)
	if err != nil {
		log.Printf("Error listing cases for user %d: %v", user.ID, err)
		WriteAPIError(w, http.StatusInternalServerError, "list_error", "Failed to list cases")
		return
	}
	writeJSON(w, http.StatusOK, cases)
}

// caseDetailResponse augments a case with its uploads (natural-sorted by
// filename) and the oldest-stage summary derived from the analysis result.
type caseDetailResponse struct {
	models.Case
	OldestStageSummary string `json:"oldest_stage_summary"`
}

func (h *CaseHandler) GetCase(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r)
	if !ok {
		WriteAPIError(w, http.StatusUnauthorized, "unauthenticated", services.ErrUnauthenticated.Error())
		return
	}
	caseID, ok := caseIDFromURL(r)
	if !ok {
		WriteAPIError(w, http.StatusBadRequest, "invalid_id", "Invalid case ID")
		return
	}

	c, err := h.CaseRepo.GetByIDForUser(caseID, user.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			WriteAPIError(w, http.StatusNotFound, "not_found", services.ErrCaseNotFound.Error())
		} else {
			log.Printf("Error getting case %d: %v", caseID, err)
			WriteAPIError(w, http.StatusInternalServerError, "get_error", "Failed to get case")
		}
		return
	}

	uploads, err := h.UploadRepo.ListByCase(caseID)
	if err != nil {
		log.Printf("Error listing uploads for case %d: %v", caseID, err)
		WriteAPIError(w, http.StatusInternalServerError, "get_error", "Failed to get case contents")
		return
	}
	sort.SliceStable(uploads, func(i, j int) bool {
		return natsort.Compare(uploads[i].FileName, uploads[j].FileName)
	})
	c.Uploads = uploads

	summary := services.SummaryNotAnalyzed
	result, err := h.ResultRepo.GetByCaseID(caseID)
	if err == nil {
		c.AnalysisResult = result
		if result.OldestStageDetected != nil {
			summary = *result.OldestStageDetected
		} else {
			summary = services.SummaryNoDetections
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("Error getting analysis result for case %d: %v", caseID, err)
		WriteAPIError(w, http.StatusInternalServerError, "get_error", "Failed to get case analysis")
		return
	}

	writeJSON(w, http.StatusOK, caseDetailResponse{Case: *c, OldestStageSummary: summary})
}

func (h *CaseHandler) UpdateCase(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r)
	if !ok {
		WriteAPIError(w, http.StatusUnauthorized, "unauthenticated", services.ErrUnauthenticated.Error())
		return
	}
	caseID, ok := caseIDFromURL(r)
	if !ok {
		WriteAPIError(w, http.StatusBadRequest, "invalid_id", "Invalid case ID")
		return
	}

	if _, err := h.CaseRepo.GetByIDForUser(caseID, user.ID); err != nil {
		WriteAPIError(w, http.StatusNotFound, "not_found", services.ErrCaseNotFound.Error())
		return
	}

	var payload casePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_payload", "Invalid request body: "+err.Error())
		return
	}

	if err := h.CaseRepo.Update(caseID, payload.Name, payload.OccurredAt, payload.AmbientTempC); err != nil {
		log.Printf("Error updating case %d: %v", caseID, err)
		WriteAPIError(w, http.StatusInternalServerError, "update_error", "Failed to update case")
		return
	}

	updated, err := h.CaseRepo.GetByIDForUser(caseID, user.ID)
	if err != nil {
		WriteAPIError(w, http.StatusInternalServerError, "get_error", "Failed to fetch updated case")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// setStatus moves a case through its lifecycle; only draft -> active and
// active -> closed are legal.
func (h *CaseHandler) setStatus(w http.ResponseWriter, r *http.Request, from, to string) {
	user, ok := userFromContext(r)
	if !ok {
		WriteAPIError(w, http.StatusUnauthorized, "unauthenticated", services.ErrUnauthenticated.Error())
		return
	}
	caseID, ok := caseIDFromURL(r)
	if !ok {
		WriteAPIError(w, http.StatusBadRequest, "invalid_id", "Invalid case ID")
		return
	}

	c, err := h.CaseRepo.GetByIDForUser(caseID, user.ID)
	if err != nil {
		WriteAPIError(w, http.StatusNotFound, "not_found", services.ErrCaseNotFound.Error())
		return
	}
	if c.Status != from {
		WriteAPIError(w, http.StatusConflict, "invalid_transition", services.ErrInvalidTransition.Error())
		return
	}

	if err := h.CaseRepo.SetStatus(caseID, to); err != nil {
		log.Printf("Error setting status of case %d to %s: %v", caseID, to, err)
		WriteAPIError(w, http.StatusInternalServerError, "update_error", "Failed to update case status")
		return
	}
	c.Status = to
	c.UpdatedAt = time.Now().Unix()
	writeJSON(w, http.StatusOK, c)
}

func (h *CaseHandler) ActivateCase(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, database.CaseStatusDraft, database.CaseStatusActive)
}

func (h *CaseHandler) CloseCase(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, database.CaseStatusActive, database.CaseStatusClosed)
}

func (h *CaseHandler) DeleteCase(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r)
	if !ok {
		WriteAPIError(w, http.StatusUnauthorized, "unauthenticated", services.ErrUnauthenticated.Error())
		return
	}
	caseID, ok := caseIDFromURL(r)
	if !ok {
		WriteAPIError(w, http.StatusBadRequest, "invalid_id", "Invalid case ID")
		return
	}

	if _, err := h.CaseRepo.GetByIDForUser(caseID, user.ID); err != nil {
		WriteAPIError(w, http.StatusNotFound, "not_found", services.ErrCaseNotFound.Error())
		return
	}

	if err := h.CaseRepo.Delete(caseID); err != nil {
		log.Printf("Error deleting case %d: %v", caseID, err)
		WriteAPIError(w, http.StatusInternalServerError, "delete_error", "Failed to delete case")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
