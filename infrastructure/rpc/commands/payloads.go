package commands

import "time"

// Wire payloads shared by the gateway client and the service dispatcher.
// Both sides encode and decode these exact shapes.

type IDPayload struct {
	ID      string  `json:"id"`
	ActorID *string `json:"actor_id,omitempty"`
}

type EmailPayload struct {
	Email string `json:"email"`
}

type UsernamePayload struct {
	Username string `json:"username"`
}

type UserIDPayload struct {
	UserID string `json:"user_id"`
}

type PagePayload struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

type LockStatusResult struct {
	Locked bool `json:"locked"`
}

type LogsByUserPayload struct {
	UserID string `json:"user_id"`
	Limit  int    `json:"limit"`
}

type LogsByActionPayload struct {
	Action string `json:"action"`
	Limit  int    `json:"limit"`
}

type LogsByDateRangePayload struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Limit int       `json:"limit"`
}
