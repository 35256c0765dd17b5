package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a student or teacher.
type LoginRequest struct {
	Role     UserRole `json:"role" validate:"required,oneof=STUDENT TEACHER"`
	Email    string   `json:"email" validate:"required,email"`
	Password string   `json:"password" validate:"required"`
}

// LoginResponse returns the issued token and a greeting for the user.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	Message     string    `json:"message"`
	User        UserInfo  `json:"user"`
	IssuedAt    time.Time `json:"issued_at"`
}

// RegisterStudentRequest is the payload of student self-registration.
type RegisterStudentRequest struct {
	ID          int64  `json:"id" validate:"required,gt=0"`
	LastName    string `json:"last_name" validate:"required"`
	FirstName   string `json:"first_name" validate:"required"`
	DateOfBirth string `json:"date_of_birth" validate:"required,datetime=2006-01-02"`
	Gender      Gender `json:"gender" validate:"required,oneof=Male Female NotConcerned"`
	Level       Level  `json:"level" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=6"`
}

// RegisterTeacherRequest is the payload of teacher registration.
type RegisterTeacherRequest struct {
	LastName   string `json:"last_name" validate:"required"`
	FirstName  string `json:"first_name" validate:"required"`
	Department string `json:"department"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=6"`
}

// RegisterResponse reports the created account.
type RegisterResponse struct {
	Message string   `json:"message"`
	User    UserInfo `json:"user"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID        int64    `json:"id"`
	Email     string   `json:"email"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Role      UserRole `json:"role"`
	Level     Level    `json:"level,omitempty"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID   int64    `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}
