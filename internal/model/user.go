package model

import "time"

// UserRole determines authorization level
type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// User is a platform account. Account CRUD lives outside this service;
// the notification core only reads users to resolve recipients and to
// check that a chat principal still exists.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         UserRole  `json:"role"`
	DigestOptIn  bool      `json:"digest_opt_in"`
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
}
