package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sort"
	"strconv"

	"github.com/facette/natsort"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avery-dunn/entomosysbackend/models"
	"github.com/avery-dunn/entomosysbackend/repository"
	"github.com/avery-dunn/entomosysbackend/services"
)

type UploadHandler struct {
	CaseRepo      repository.CaseRepositoryInterface
	UploadRepo    repository.UploadRepositoryInterface
	DetectionRepo repository.DetectionRepositoryInterface
}

// uploadIDFromURL parses the upload_id chi URL parameter
func uploadIDFromURL(r *http.Request) (uint, bool) {
	raw := chi.URLParam(r, "upload_id")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

type uploadPayload struct {
	FileName string `json:"file_name"`
	Width    *int   `json:"width"`
	Height   *int   `json:"height"`
}

// CreateUpload registers an evidence image under a case. Only metadata is
// recorded here; the image bytes are transported and stored elsewhere under
// the generated storage key.
func (h *UploadHandler) CreateUpload(w http.ResponseWriter, r *http.Request) {
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

	var payload uploadPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_payload", "Invalid request body: "+err.Error())
		return
	}
	if payload.FileName == "" {
		WriteAPIError(w, http.StatusBadRequest, "invalid_payload", "file_name is required")
		return
	}

	upload := models.Upload{
		CaseID:     caseID,
		FileName:   payload.FileName,
		StorageKey: uuid.NewString(),
		Width:      payload.Width,
		Height:     payload.Height,
	}
	if err := h.UploadRepo.Create(&upload); err != nil {
		log.Printf("Error creating upload for case %d: %v", caseID, err)
		WriteAPIError(w, http.StatusInternalServerError, "create_error", "Failed to register upload")
		return
	}
	writeJSON(w, http.StatusCreated, upload)
}

func (h *UploadHandler) ListUploads(w http.ResponseWriter, r *http.Request) {
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

	uploads, err := h.UploadRepo.ListByCase(caseID)
	if err != nil {
		log.Printf("Error listing uploads for case %d: %v", caseID, err)
		WriteAPIError(w, http.StatusInternalServerError, "list_error", "Failed to list uploads")
		return
	}
	sort.SliceStable(uploads, func(i, j int) bool {
		return natsort.Compare(uploads[i].FileName, uploads[j].FileName)
	})
	writeJSON(w, http.StatusOK, uploads)
}

// GetUpload returns an upload with its non-deleted detections. The upload's
// case must belong to the caller; anything else is a 404.
func (h *UploadHandler) GetUpload(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r)
	if !ok {
		WriteAPIError(w, http.StatusUnauthorized, "unauthenticated", services.ErrUnauthenticated.Error())
		return
	}
	uploadID, ok := uploadIDFromURL(r)
	if !ok {
		WriteAPIError(w, http.StatusBadRequest, "invalid_id", "Invalid upload ID")
		return
	}

	upload, err := h.UploadRepo.GetByID(uploadID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			WriteAPIError(w, http.StatusNotFound, "not_found", services.ErrImageNotFound.Error())
		} else {
			log.Printf("Error getting upload %d: %v", uploadID, err)
			WriteAPIError(w, http.StatusInternalServerError, "get_error", "Failed to get upload")
		}
		return
	}

	if _, err := h.CaseRepo.GetByIDForUser(upload.CaseID, user.ID); err != nil {
		WriteAPIError(w, http.StatusNotFound, "not_found", services.ErrImageNotFound.Error())
		return
	}

	detections, err := h.DetectionRepo.ListByUpload(uploadID)
	if err != nil {
		log.Printf("Error listing detections for upload %d: %v", uploadID, err)
		WriteAPIError(w, http.StatusInternalServerError, "get_error", "Failed to get detections")
		return
	}
	upload.Detections = detections
	writeJSON(w, http.StatusOK, upload)
}
