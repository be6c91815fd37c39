package models

import "github.com/golang-jwt/jwt/v5"

// ClientRole scopes what a bearer token may call.
type ClientRole string

const (
	RoleService ClientRole = "SERVICE"
	RoleAdmin   ClientRole = "ADMIN"
	RoleTutor   ClientRole = "TUTOR"
)

// JWTClaims is the payload of tokens presented to the orchestrator API.
type JWTClaims struct {
	UserID string     `json:"user_id"`
	Role   ClientRole `json:"role"`
	jwt.RegisteredClaims
}
