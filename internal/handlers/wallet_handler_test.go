package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/localperks/backend/internal/services"
)

func newTestWalletHandler(t *testing.T) (*WalletHandler, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	handler := NewWalletHandler(services.NewLedgerService(db, nil), services.NewPinService(db, nil))
	return handler, mock, func() { db.Close() }
}

func authedRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	return req.WithContext(context.WithValue(req.Context(), "userID", "user1"))
}

func TestWalletHandler_Unauthorized(t *testing.T) {
	handler, _, cleanup := newTestWalletHandler(t)
	defer cleanup()

	endpoints := map[string]http.HandlerFunc{
		"SetPin":     handler.SetPin,
		"VerifyPin":  handler.VerifyPin,
		"GetWallet":  handler.GetWallet,
		"GetHistory": handler.GetHistory,
		"Earn":       handler.Earn,
	}

	for name, fn := range endpoints {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			fn(w, httptest.NewRequest("POST", "/", nil))
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestWalletHandler_SetPin_BadRequests(t *testing.T) {
	handler, _, cleanup := newTestWalletHandler(t)
	defer cleanup()

	cases := map[string]string{
		"malformed json":  `{"pin": `,
		"unknown field":   `{"pin": "4821", "extra": true}`,
		"trailing object": `{"pin": "4821"}{"pin": "4821"}`,
		"pin too short":   `{"pin": "48"}`,
		"pin not numeric": `{"pin": "48a1"}`,
		"missing pin":     `{}`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.SetPin(w, authedRequest("POST", "/wallet/pin", body))
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestWalletHandler_GetWallet(t *testing.T) {
	handler, mock, cleanup := newTestWalletHandler(t)
	defer cleanup()

	mock.ExpectQuery("SELECT user_id, balance, lifetime_earned, lifetime_spent, pin_hash, version, updated_at FROM accounts WHERE user_id = \\$1").
		WithArgs("user1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "balance", "lifetime_earned", "lifetime_spent", "pin_hash", "version", "updated_at"}).
			AddRow("user1", int64(50), int64(80), int64(30), nil, 3, time.Now()))
	mock.ExpectQuery("SELECT a.balance, COALESCE").
		WithArgs("user1").
		WillReturnRows(sqlmock.NewRows([]string{"balance", "held"}).AddRow(int64(50), int64(10)))

	w := httptest.NewRecorder()
	handler.GetWallet(w, authedRequest("GET", "/wallet", ""))

	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]int64
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, int64(50), body["balance"])
	assert.Equal(t, int64(40), body["available"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletHandler_GetWallet_NotFound(t *testing.T) {
	handler, mock, cleanup := newTestWalletHandler(t)
	defer cleanup()

	mock.ExpectQuery("SELECT user_id, balance, lifetime_earned, lifetime_spent, pin_hash, version, updated_at FROM accounts WHERE user_id = \\$1").
		WithArgs("user1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "balance", "lifetime_earned", "lifetime_spent", "pin_hash", "version", "updated_at"}))

	w := httptest.NewRecorder()
	handler.GetWallet(w, authedRequest("GET", "/wallet", ""))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletHandler_Earn_InvalidAmount(t *testing.T) {
	handler, _, cleanup := newTestWalletHandler(t)
	defer cleanup()

	w := httptest.NewRecorder()
	handler.Earn(w, authedRequest("POST", "/wallet/earn", `{"amount": -5, "reference": "checkin:1"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
