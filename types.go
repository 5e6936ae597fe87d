package edusession

import (
	"github.com/edusoft/edusession/store"
)

// Role identifies the dashboard a user is entitled to.
type Role string

const (
	// RoleAdmin is an exported role accepted by the platform backend.
	RoleAdmin Role = "admin"
	// RoleTeacher is an exported role accepted by the platform backend.
	RoleTeacher Role = "teacher"
	// RoleStudent is an exported role accepted by the platform backend.
	RoleStudent Role = "student"
)

// Valid reports whether r is one of the three platform roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return true
	}
	return false
}

// User is the session-scoped user projection held by [State] and returned
// by [Client] operations.
//
// Invariant: Authenticated == true implies Role, Phone, and Name are all
// non-empty. The logged-out value is the fixed sentinel [Anonymous].
type User struct {
	Authenticated bool
	Role          Role
	Phone         string
	Name          string
}

// Anonymous returns the unauthenticated sentinel: all fields zero.
func Anonymous() User {
	return User{}
}

// Complete reports whether the user satisfies the authenticated-user
// invariant (role, phone, and name all present).
func (u User) Complete() bool {
	return u.Role != "" && u.Phone != "" && u.Name != ""
}

// TokenPair is the opaque credential pair persisted by the store.
type TokenPair = store.TokenPair

// CachedUser converts the user into its persisted projection.
func (u User) CachedUser() store.CachedUser {
	return store.CachedUser{
		Authenticated: u.Authenticated,
		Role:          string(u.Role),
		Phone:         u.Phone,
		Name:          u.Name,
	}
}

// UserFromCache reconstructs a User from the persisted projection. The
// result is advisory only until the backend init check confirms it.
func UserFromCache(c store.CachedUser) User {
	return User{
		Authenticated: c.Authenticated,
		Role:          Role(c.Role),
		Phone:         c.Phone,
		Name:          c.Name,
	}
}

// RegisterRequest is the input for [Client.Register]. Phone, Password, Name,
// and Role are required; ClassID is required for students and Subject for
// teachers (the backend enforces both).
type RegisterRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     Role   `json:"role"`
	ClassID  string `json:"classId,omitempty"`
	Subject  string `json:"subject,omitempty"`
}

// sessionEnvelope is the backend response shape shared by the login and
// register endpoints.
type sessionEnvelope struct {
	Token        string      `json:"token"`
	RefreshToken string      `json:"refreshToken"`
	ExpiresIn    int64       `json:"expiresIn"`
	User         profileBody `json:"user"`
}

// profileBody is the backend user payload (login/register envelope and
// GET /auth/me). Extra backend fields are ignored.
type profileBody struct {
	Role  string `json:"role"`
	Phone string `json:"phone"`
	Name  string `json:"name"`
}

func (p profileBody) user() User {
	return User{
		Authenticated: true,
		Role:          Role(p.Role),
		Phone:         p.Phone,
		Name:          p.Name,
	}
}
