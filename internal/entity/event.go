package entity

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Event types published by the form service.
const (
	EventFormSaved         = "form.saved"
	EventFormDeleted       = "form.deleted"
	EventResponseSubmitted = "response.submitted"
	EventAdminLoggedIn     = "admin.logged_in"
	EventAdminLoginFailed  = "admin.login_failed"
	EventResponsesExported = "responses.exported"
)

type (
	Event struct {
		ID        string          `json:"id"`
		Payload   json.RawMessage `json:"payload"`
		Type      string          `json:"type"`
		Timestamp time.Time       `json:"timestamp"`
	}

	// FormRef is the payload of form and admin events.
	FormRef struct {
		FormID string `json:"form_id"`
	}

	// ResponseSubmitted is the payload of EventResponseSubmitted.
	ResponseSubmitted struct {
		FormID      string    `json:"form_id"`
		SubmittedAt time.Time `json:"submitted_at"`
	}

	// ResponsesExported is the payload of EventResponsesExported.
	ResponsesExported struct {
		FormID        string `json:"form_id"`
		ResponseCount int    `json:"response_count"`
	}
)

// NewEvent wraps an encoded payload into an event with a fresh ID.
func NewEvent(eventType string, payload []byte) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Payload:   payload,
		Type:      eventType,
		Timestamp: time.Now(),
	}
}

// Decode unmarshals the payload into v.
func (e *Event) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}

func (e *Event) Validate() error {
	if e.ID == "" {
		return errors.New("event_id is nil")
	}

	if e.Payload == nil {
		return errors.New("payload is nil")
	}

	if e.Type == "" {
		return errors.New("type is nil")
	}

	return nil
}
