package model

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserStatus enumerates the user account lifecycle states.
type UserStatus string

const (
	StatusActive    UserStatus = "active"
	StatusInactive  UserStatus = "inactive"
	StatusSuspended UserStatus = "suspended"
)

const (
	maxNameLength = 100
	maxUserAge    = 150
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// User represents a user document in the directory.
type User struct {
	ID           string             `json:"id" bson:"id,omitempty"`
	ObjectID     primitive.ObjectID `json:"-" bson:"_id,omitempty"`
	Name         string             `json:"name" bson:"name"`
	Email        string             `json:"email" bson:"email"`
	Age          *int               `json:"age,omitempty" bson:"age,omitempty"`
	Status       UserStatus         `json:"status" bson:"status"`
	PasswordHash string             `json:"-" bson:"password_hash,omitempty"`
	CreatedAt    time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at" bson:"updated_at"`
}

// IsValidStatus reports whether s is one of the known account states.
func IsValidStatus(s UserStatus) bool {
	switch s {
	case StatusActive, StatusInactive, StatusSuspended:
		return true
	}
	return false
}

// ValidateEmail checks the email address format.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email is required")
	}
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}
	return nil
}

// ValidateFields checks the invariants every persisted user must hold.
func (u *User) ValidateFields() error {
	name := strings.TrimSpace(u.Name)
	if name == "" {
		return fmt.Errorf("name is required")
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("name must be at most %d characters", maxNameLength)
	}
	if err := ValidateEmail(u.Email); err != nil {
		return err
	}
	if u.Age != nil && (*u.Age < 0 || *u.Age > maxUserAge) {
		return fmt.Errorf("age must be between 0 and %d", maxUserAge)
	}
	if !IsValidStatus(u.Status) {
		return fmt.Errorf("status must be one of active, inactive, suspended")
	}
	return nil
}

// CanAuthenticate reports whether the account state permits login.
func (u *User) CanAuthenticate() bool {
	return u.Status == StatusActive
}
