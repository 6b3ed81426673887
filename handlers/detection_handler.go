package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/avery-dunn/entomosysbackend/models"
	"github.com/avery-dunn/entomosysbackend/services"
)

type DetectionHandler struct {
	Reconciler *services.ReconcilerService
}

type reconcilePayload struct {
	CaseID    uint               `json:"case_id"`
	ChangeSet services.ChangeSet `json:"change_set"`
}

// reconcileResponse is the wire shape of a reconcile call: either the full
// current detection list for the upload, or a stable error message.
type reconcileResponse struct {
	Success    bool               `json:"success"`
	Detections []models.Detection `json:"detections,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// ReconcileDetections applies a client-submitted change-set to an upload's
// detections. The heavy lifting (ownership, state validation, atomic apply,
// recalculation flagging) lives in the reconciler service.
func (h *DetectionHandler) ReconcileDetections(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, reconcileResponse{Success: false, Error: services.ErrUnauthorized.Error()})
		return
	}
	uploadID, ok := uploadIDFromURL(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, reconcileResponse{Success: false, Error: "Invalid upload ID"})
		return
	}

	var payload reconcilePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, reconcileResponse{Success: false, Error: "Invalid request body"})
		return
	}

	detections, err := h.Reconciler.Reconcile(uploadID, payload.CaseID, user.ID, payload.ChangeSet)
	if err != nil {
		writeJSON(w, reconcileStatus(err), reconcileResponse{Success: false, Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, reconcileResponse{Success: true, Detections: detections})
}

// reconcileStatus maps reconciler sentinel errors onto HTTP statuses
func reconcileStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrCaseNotFound),
		errors.Is(err, services.ErrImageNotFound),
		errors.Is(err, services.ErrDetectionNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInvalidChangeSet):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
