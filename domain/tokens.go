package domain

import (
	"time"

	"github.com/google/uuid"
)

// Token is a bearer token granting access as a local account
type Token struct {
	Token     string
	AccountId uuid.UUID
	CreatedAt time.Time
}
