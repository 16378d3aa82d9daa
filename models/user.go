package models

type UserRole string

const (
	RoleAdmin  UserRole = "admin"
	RolePlayer UserRole = "player"
)

// Actor is the authenticated caller of an engine operation.
type Actor struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	ClientID string   `json:"-"`
}
