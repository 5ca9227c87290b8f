package users

import "time"

// Roles. An unset role reads back as RoleCustomer.
const (
	RoleCustomer = "customer"
	RoleManager  = "manager"
	RoleAdmin    = "admin"
)

// Account statuses.
const (
	StatusActive    = "active"
	StatusSuspended = "Suspended"
)

// User represents the item stored in the Users DynamoDB table.
type User struct {
	UserID          string    `dynamodbav:"user_id" json:"id"` // PK, derived from email
	Email           string    `dynamodbav:"email" json:"email"`
	Name            string    `dynamodbav:"name,omitempty" json:"name,omitempty"`
	Image           string    `dynamodbav:"image,omitempty" json:"image,omitempty"`
	Role            string    `dynamodbav:"role,omitempty" json:"role,omitempty"`
	Status          string    `dynamodbav:"status" json:"status"`
	SuspendFeedback string    `dynamodbav:"suspend_feedback,omitempty" json:"suspendFeedback,omitempty"`
	CreatedAt       time.Time `dynamodbav:"created_at" json:"created_at"`
	LastLoggedIn    time.Time `dynamodbav:"last_loggedIn" json:"last_loggedIn"`
}

// EffectiveRole resolves the implicit default.
func (u User) EffectiveRole() string {
	if u.Role == "" {
		return RoleCustomer
	}
	return u.Role
}

// Suspended reports whether the account is blocked.
func (u User) Suspended() bool { return u.Status == StatusSuspended }

// ValidRole reports whether role may be assigned. Assigning "customer" clears the role.
func ValidRole(role string) bool {
	switch role {
	case RoleCustomer, RoleManager, RoleAdmin:
		return true
	}
	return false
}
