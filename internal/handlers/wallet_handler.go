package handlers

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/localperks/backend/internal/services"
)

type WalletHandler struct {
	ledger    *services.LedgerService
	pins      *services.PinService
	validator *services.ValidationHelper
}

func NewWalletHandler(ledger *services.LedgerService, pins *services.PinService) *WalletHandler {
	return &WalletHandler{
		ledger:    ledger,
		pins:      pins,
		validator: services.NewValidationHelper(),
	}
}

// SetPin sets the wallet PIN
// @Summary Set wallet PIN
// @Description Set the 4-digit wallet PIN, creating the wallet if needed
// @Tags wallet
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{pin=string} true "PIN request"
// @Success 200 {object} map[string]bool
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Router /wallet/pin [post]
func (h *WalletHandler) SetPin(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok || userID == "" {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req struct {
		Pin string `json:"pin" validate:"required,len=4,numeric"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	if err := h.pins.SetPin(r.Context(), userID, req.Pin); err != nil {
		services.SendLedgerError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

// VerifyPin verifies the wallet PIN
// @Summary Verify wallet PIN
// @Description Verify the 4-digit wallet PIN (rate limited)
// @Tags wallet
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{pin=string} true "PIN request"
// @Success 200 {object} map[string]bool
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Router /wallet/pin/verify [post]
func (h *WalletHandler) VerifyPin(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok || userID == "" {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req struct {
		Pin string `json:"pin" validate:"required,len=4,numeric"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	if err := h.pins.VerifyPin(r.Context(), userID, req.Pin); err != nil {
		services.SendLedgerError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"valid": true})
}

// GetWallet returns balances
// @Summary Get wallet
// @Description Get balance, lifetime counters and available balance
// @Tags wallet
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{balance=int64,lifetimeEarned=int64,lifetimeSpent=int64,available=int64}
// @Failure 401 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /wallet [get]
func (h *WalletHandler) GetWallet(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok || userID == "" {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	account, err := h.ledger.Accounts().Get(r.Context(), userID)
	if err != nil {
		services.SendLedgerError(w, err)
		return
	}

	available, err := h.ledger.Reservations().Available(r.Context(), userID)
	if err != nil {
		services.SendLedgerError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"balance":        account.Balance,
		"lifetimeEarned": account.LifetimeEarned,
		"lifetimeSpent":  account.LifetimeSpent,
		"available":      available,
	})
}

// GetHistory returns ledger entries
// @Summary Get wallet history
// @Description Get ledger entries newest first with limit/offset pagination
// @Tags wallet
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Entries per page (default 20, max 100)"
// @Param offset query int false "Offset into the history"
// @Success 200 {object} object{entries=[]models.LedgerEntry,count=int}
// @Failure 401 {object} services.ErrorResponse
// @Router /wallet/history [get]
func (h *WalletHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok || userID == "" {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}
	if max := h.ledger.HistoryMaxLimit(); limit > max {
		limit = max
	}

	offset := 0
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	entries, err := h.ledger.Log().History(r.Context(), userID, limit, offset)
	if err != nil {
		log.Printf("[WALLET] Failed to fetch history for user %s: %v", userID, err)
		services.SendErrorResponse(w, "Failed to fetch history", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}

// Earn credits coins
// @Summary Earn coins
// @Description Credit coins to the wallet for a platform activity
// @Tags wallet
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{amount=int64,reference=string} true "Earn request"
// @Success 200 {object} map[string]bool
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Router /wallet/earn [post]
func (h *WalletHandler) Earn(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok || userID == "" {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req struct {
		Amount    int64  `json:"amount" validate:"required,gt=0"`
		Reference string `json:"reference" validate:"required,max=100"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	if err := h.ledger.Earn(r.Context(), userID, req.Amount, req.Reference); err != nil {
		services.SendLedgerError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}
