package audit

import (
	"encoding/json"
	"log"
	"time"
)

type Event struct {
	Timestamp     time.Time `json:"timestamp"`
	EventType     string    `json:"event_type"`
	UserID        string    `json:"user_id"`
	ReservationID string    `json:"reservation_id,omitempty"`
	Amount        int64     `json:"amount"`
	Status        string    `json:"status"`
	Details       any       `json:"details,omitempty"`
}

// Logger emits structured ledger audit events. One line of JSON per
// event so downstream analytics can ingest the process log directly.
type Logger struct{}

func NewLogger() *Logger {
	return &Logger{}
}

func (a *Logger) LogEarn(userID, reference string, amount int64) {
	a.log(Event{
		Timestamp: time.Now(),
		EventType: "EARN",
		UserID:    userID,
		Amount:    amount,
		Status:    "SUCCESS",
		Details:   map[string]string{"reference": reference},
	})
}

func (a *Logger) LogReservation(eventType, userID, reservationID, businessID string, amount int64) {
	a.log(Event{
		Timestamp:     time.Now(),
		EventType:     eventType,
		UserID:        userID,
		ReservationID: reservationID,
		Amount:        amount,
		Status:        "SUCCESS",
		Details:       map[string]string{"business_id": businessID},
	})
}

func (a *Logger) LogError(userID, reservationID string, err error) {
	a.log(Event{
		Timestamp:     time.Now(),
		EventType:     "ERROR",
		UserID:        userID,
		ReservationID: reservationID,
		Status:        "FAILED",
		Details:       map[string]string{"error": err.Error()},
	})
}

func (a *Logger) log(event Event) {
	data, _ := json.Marshal(event)
	log.Printf("AUDIT: %s", string(data))
}
