// ABOUTME: User model for the owner of categories and entries.
package models

import "time"

// User owns categories and entries. The password hash never leaves the process.
type User struct {
	ID           int64      `json:"id" yaml:"id"`
	Username     string     `json:"username" yaml:"username"`
	Email        string     `json:"email" yaml:"email"`
	PasswordHash string     `json:"-" yaml:"-"`
	CreatedAt    time.Time  `json:"created_at" yaml:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" yaml:"updated_at"`
	IsActive     bool       `json:"is_active" yaml:"is_active"`
	LastLogin    *time.Time `json:"last_login,omitempty" yaml:"last_login,omitempty"`
}
