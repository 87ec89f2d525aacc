package auth

import (
	"time"

	"github.com/botica-erp/botica-erp/internal/shared"
)

// User represents an account that can sign in.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         shared.Role
	BranchID     int64
	IsActive     bool
	CreatedAt    time.Time
}
