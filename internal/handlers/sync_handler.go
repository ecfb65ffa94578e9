package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/localperks/backend/internal/services"
)

type SyncHandler struct {
	service *services.SyncService
}

func NewSyncHandler(service *services.SyncService) *SyncHandler {
	return &SyncHandler{service: service}
}

// DeleteEvent removes a mirrored event on a peer's report
// @Summary Delete mirrored event
// @Description Delete the local copy of a federated event and its mapping row when the peer reports deletion
// @Tags sync
// @Produce json
// @Security ApiKeyAuth
// @Param remoteId path string true "Peer's event ID"
// @Success 200 {object} map[string]bool
// @Failure 401 {string} string "Invalid API key"
// @Failure 404 {object} services.ErrorResponse
// @Router /sync/events/{remoteId} [delete]
func (h *SyncHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	remoteID := chi.URLParam(r, "remoteId")

	if err := h.service.DeleteMirroredEvent(r.Context(), remoteID); err != nil {
		log.Printf("[SYNC] Delete failed for remote event %s: %v", remoteID, err)
		services.SendLedgerError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"deleted": true})
}
