package domain

import "time"

// AccountRole distinguishes self-service accounts from operators who run the
// review/hold/suspend workflow.
type AccountRole string

const (
	AccountRoleUser     AccountRole = "USER"
	AccountRoleOperator AccountRole = "OPERATOR"
)

// Account is the credential-bearing identity a Profile belongs to.
type Account struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         AccountRole
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
