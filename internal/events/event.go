package events

import (
	"time"

	"userdb/internal/users/domain/model"
)

// ResumeToken identifies a position in the event stream. It is the Redis
// stream entry ID of the last event a consumer has seen.
type ResumeToken string

// UserEvent is a user lifecycle change as published to the Redis feed.
type UserEvent struct {
	Type        string      `json:"type"`
	UserID      string      `json:"user_id"`
	Email       string      `json:"email,omitempty"`
	Status      string      `json:"status,omitempty"`
	Timestamp   time.Time   `json:"timestamp"`
	ResumeToken ResumeToken `json:"resume_token,omitempty"`
}

// NewUserEvent builds an event for the given lifecycle type and user.
func NewUserEvent(eventType string, user *model.User) UserEvent {
	ev := UserEvent{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
	}
	if user != nil {
		ev.UserID = user.ID
		ev.Email = user.Email
		ev.Status = string(user.Status)
	}
	return ev
}
