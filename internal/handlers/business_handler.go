package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/localperks/backend/internal/services"
)

type BusinessHandler struct {
	policy *services.AccessWindowPolicy
}

func NewBusinessHandler(policy *services.AccessWindowPolicy) *BusinessHandler {
	return &BusinessHandler{policy: policy}
}

// GetPrice previews the redemption cost
// @Summary Preview redemption price
// @Description Resolve the coin cost for a business at a given instant (defaults to now)
// @Tags businesses
// @Produce json
// @Param businessId path string true "Business ID"
// @Param at query string false "RFC3339 timestamp"
// @Success 200 {object} object{priced=bool,cost=int64}
// @Failure 400 {object} services.ErrorResponse
// @Router /businesses/{businessId}/price [get]
func (h *BusinessHandler) GetPrice(w http.ResponseWriter, r *http.Request) {
	businessID := chi.URLParam(r, "businessId")

	at := time.Now()
	if atStr := r.URL.Query().Get("at"); atStr != "" {
		parsed, err := time.Parse(time.RFC3339, atStr)
		if err != nil {
			services.SendErrorResponse(w, "Invalid 'at' timestamp, expected RFC3339", http.StatusBadRequest, nil)
			return
		}
		at = parsed
	}

	cost, priced, err := h.policy.PriceFor(r.Context(), businessID, at)
	if err != nil {
		services.SendErrorResponse(w, "Failed to resolve price", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"priced": priced,
		"cost":   cost,
	})
}

// ListWindows lists a business's pricing windows
// @Summary List access windows
// @Description List a business's weekly pricing windows, read-only
// @Tags businesses
// @Produce json
// @Param businessId path string true "Business ID"
// @Success 200 {object} object{windows=[]models.AccessWindow}
// @Failure 500 {object} services.ErrorResponse
// @Router /businesses/{businessId}/windows [get]
func (h *BusinessHandler) ListWindows(w http.ResponseWriter, r *http.Request) {
	businessID := chi.URLParam(r, "businessId")

	windows, err := h.policy.WindowsFor(r.Context(), businessID)
	if err != nil {
		services.SendErrorResponse(w, "Failed to fetch windows", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"windows": windows})
}
