package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Type names an authentication event.
type Type string

const (
	UserRegistered Type = "user.registered"
	UserLoggedIn   Type = "user.logged_in"
	TokenRefreshed Type = "token.refreshed"
	UserLoggedOut  Type = "user.logged_out"
)

// Source is stamped on every event emitted by this service.
const Source = "codecompass.auth"

// Event is the JSON payload written to the events topic. It never carries
// credentials or token strings.
type Event struct {
	ID        string            `json:"id"`
	Type      Type              `json:"type"`
	Source    string            `json:"source"`
	Subject   string            `json:"subject"`
	Email     string            `json:"email,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Data      map[string]string `json:"data,omitempty"`
}

// New creates an event for subject with a fresh ID.
func New(t Type, subject, email string) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		Source:    Source,
		Subject:   subject,
		Email:     email,
		Timestamp: time.Now().UTC(),
	}
}

// With returns a copy of e with an extra data attribute.
func (e Event) With(key, value string) Event {
	data := make(map[string]string, len(e.Data)+1)
	for k, v := range e.Data {
		data[k] = v
	}
	data[key] = value
	e.Data = data
	return e
}

// ToJSON marshals the event.
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}
