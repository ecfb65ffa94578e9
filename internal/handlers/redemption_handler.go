package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/localperks/backend/internal/services"
)

type RedemptionHandler struct {
	ledger    *services.LedgerService
	qr        *services.RedemptionQRService
	validator *services.ValidationHelper
}

func NewRedemptionHandler(ledger *services.LedgerService, qr *services.RedemptionQRService) *RedemptionHandler {
	return &RedemptionHandler{
		ledger:    ledger,
		qr:        qr,
		validator: services.NewValidationHelper(),
	}
}

// CreateRedemption prices and reserves access
// @Summary Redeem access to a business
// @Description Price the business's current access window and place a hold; confirm=true consumes it immediately
// @Tags redemptions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{businessId=string,confirm=bool} true "Redemption request"
// @Success 200 {object} services.RedemptionResult
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /redemptions [post]
func (h *RedemptionHandler) CreateRedemption(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok || userID == "" {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req struct {
		BusinessID string `json:"businessId" validate:"required,max=64"`
		Confirm    bool   `json:"confirm"`
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

	result, err := h.ledger.RedeemAccess(r.Context(), userID, req.BusinessID, time.Now(), req.Confirm)
	if err != nil {
		services.SendLedgerError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// ConsumeRedemption resolves a deferred redemption
// @Summary Consume a held redemption
// @Description Transition a held reservation to consumed and debit the wallet
// @Tags redemptions
// @Produce json
// @Security BearerAuth
// @Param reservationId path string true "Reservation ID"
// @Success 200 {object} models.Reservation
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /redemptions/{reservationId}/consume [post]
func (h *RedemptionHandler) ConsumeRedemption(w http.ResponseWriter, r *http.Request) {
	reservationID := chi.URLParam(r, "reservationId")

	res, err := h.ledger.ConsumeReservation(r.Context(), reservationID)
	if err != nil {
		services.SendLedgerError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}

// ReleaseRedemption abandons a deferred redemption
// @Summary Release a held redemption
// @Description Transition a held reservation to released with no wallet effect
// @Tags redemptions
// @Produce json
// @Security BearerAuth
// @Param reservationId path string true "Reservation ID"
// @Success 200 {object} models.Reservation
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /redemptions/{reservationId}/release [post]
func (h *RedemptionHandler) ReleaseRedemption(w http.ResponseWriter, r *http.Request) {
	reservationID := chi.URLParam(r, "reservationId")

	res, err := h.ledger.ReleaseReservation(r.Context(), reservationID)
	if err != nil {
		services.SendLedgerError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}

// GetRedemptionQR renders a held redemption as a QR code
// @Summary Get redemption QR
// @Description Get a scannable QR token for an open reservation
// @Tags redemptions
// @Produce json
// @Security BearerAuth
// @Param reservationId path string true "Reservation ID"
// @Success 200 {object} object{token=string,qrImage=string}
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /redemptions/{reservationId}/qr [get]
func (h *RedemptionHandler) GetRedemptionQR(w http.ResponseWriter, r *http.Request) {
	reservationID := chi.URLParam(r, "reservationId")

	token, qrImage, err := h.qr.GenerateHoldQR(r.Context(), reservationID)
	if err != nil {
		services.SendLedgerError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"token":   token,
		"qrImage": qrImage,
	})
}

// ScanRedemption consumes a redemption by scanned token
// @Summary Scan a redemption code
// @Description Resolve a scanned QR token and consume the underlying reservation
// @Tags redemptions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{token=string} true "Scanned token"
// @Success 200 {object} models.Reservation
// @Failure 400 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /redemptions/scan [post]
func (h *RedemptionHandler) ScanRedemption(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token" validate:"required"`
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

	reservationID, err := h.qr.ResolveHoldToken(r.Context(), req.Token)
	if err != nil {
		if errors.Is(err, services.ErrRedemptionCodesUnavailable) {
			services.SendLedgerError(w, err)
			return
		}
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}

	res, err := h.ledger.ConsumeReservation(r.Context(), reservationID)
	if err != nil {
		services.SendLedgerError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}
