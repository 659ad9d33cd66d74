package domain

import "time"

// Role ids mirror the roles table the users.role foreign key points at.
const (
	RoleAdmin   = 1
	RoleRegular = 2
)

// RoleName returns the label used by RBAC middleware and metrics.
func RoleName(role int) string {
	switch role {
	case RoleAdmin:
		return "admin"
	case RoleRegular:
		return "regular"
	default:
		return "unknown"
	}
}

// User models an identity record as held by the record store.
// PasswordHash never leaves the process: it is excluded from JSON.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"fullName,omitempty"`
	Bio          string    `json:"bio,omitempty"`
	Role         int       `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Snapshot is the subset of a user safe to embed in a client-visible token.
// The type has no password field, so no encoding of it can carry one.
type Snapshot struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	FullName  string    `json:"fullName,omitempty"`
	Bio       string    `json:"bio,omitempty"`
	Role      int       `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Snapshot copies the token-safe attributes of u.
func (u *User) Snapshot() Snapshot {
	return Snapshot{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		FullName:  u.FullName,
		Bio:       u.Bio,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// Redacted returns a copy of u with the password digest cleared.
func (u *User) Redacted() *User {
	if u == nil {
		return nil
	}
	clone := *u
	clone.PasswordHash = ""
	return &clone
}

// UserChanges is an accepted, allow-listed set of attribute changes.
// Empty strings mean "leave unchanged". Password is plaintext until the
// service layer replaces it with a digest in UserUpdate.
type UserChanges struct {
	Email    string
	Username string
	Password string
	FullName string
	Bio      string
}

// IsEmpty reports whether the change set would not touch any attribute.
func (c UserChanges) IsEmpty() bool {
	return c == UserChanges{}
}

// UserUpdate is what the record store receives: all values already final.
type UserUpdate struct {
	Email        string
	Username     string
	PasswordHash string
	FullName     string
	Bio          string
	UpdatedAt    time.Time
}

// Page selects a window of a listing. Zero Limit means "everything".
type Page struct {
	Limit  int
	Offset int
}
