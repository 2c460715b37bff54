package models

import (
	"time"
)

// User is a credential record for an authenticating principal
type User struct {
	ID           string
	Username     string
	Email        string // optional; used for block alerts
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
