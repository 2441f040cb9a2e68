// ABOUTME: User represents an operator registered with chat2db
// ABOUTME: Admins may change schema memory; users may only query and modify data
package models

import (
	"errors"
	"strings"
)

// Operator roles
const (
	UserRoleAdmin = "admin"
	UserRoleUser  = "user"
)

// User is one registry entry
type User struct {
	ID       string `json:"-"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// IsAdmin reports whether the user holds the admin role
func (u User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

// ValidateUser checks the fields required for registration
func ValidateUser(username, role string) error {
	if strings.TrimSpace(username) == "" {
		return errors.New("username cannot be empty")
	}
	if role != UserRoleAdmin && role != UserRoleUser {
		return errors.New("role must be admin or user")
	}
	return nil
}
