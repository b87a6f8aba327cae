package models

import "github.com/golang-jwt/jwt/v5"

// UserRole scopes what an authenticated caller may do.
type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleTeacher UserRole = "teacher"
	RoleStudent UserRole = "student"
)

// JWTClaims are the access-token claims issued by the identity service.
type JWTClaims struct {
	UserID string   `json:"user_id"`
	Name   string   `json:"name"`
	Role   UserRole `json:"role"`
	jwt.RegisteredClaims
}
