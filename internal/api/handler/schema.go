package handler

import (
	"time"

	"github.com/crmcore/authcore/internal/core/domain"
	"github.com/crmcore/authcore/internal/core/ports"
)

type registerRequest struct {
	Username  string `json:"username"  validate:"required,username"`
	Email     string `json:"email"     validate:"required,email,max=254"`
	Password  string `json:"password"  validate:"required,min=6,bcryptmax"`
	FirstName string `json:"firstName" validate:"max=100"`
	LastName  string `json:"lastName"  validate:"max=100"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword"     validate:"required,min=6,bcryptmax"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

type updateProfileRequest struct {
	Email     string `json:"email"     validate:"omitempty,email,max=254"`
	FirstName string `json:"firstName" validate:"max=100"`
	LastName  string `json:"lastName"  validate:"max=100"`
}

func (r updateProfileRequest) toDomain() domain.Profile {
	return domain.Profile{Email: r.Email, FirstName: r.FirstName, LastName: r.LastName}
}

type createUserRequest struct {
	registerRequest
	Role string `json:"role" validate:"required,role"`
}

type listUsersQuery struct {
	Page   int    `query:"page"   validate:"gte=0"`
	Limit  int    `query:"limit"  validate:"gte=0"`
	Role   string `query:"role"   validate:"omitempty,role"`
	Active string `query:"active" validate:"omitempty,oneof=true false"`
}

type setActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

type changeRoleRequest struct {
	Role string `json:"role" validate:"required,role"`
}

// authResponse is returned by register and login.
type authResponse struct {
	Token     string      `json:"token"`
	TokenType string      `json:"tokenType"`
	UserID    string      `json:"userId"`
	Username  string      `json:"username"`
	Email     string      `json:"email"`
	FirstName string      `json:"firstName"`
	LastName  string      `json:"lastName"`
	Role      domain.Role `json:"role"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

func newAuthResponse(res *ports.AuthResult) authResponse {
	return authResponse{
		Token:     res.Token.Value,
		TokenType: domain.TokenType,
		UserID:    res.Identity.ID,
		Username:  res.Identity.Username,
		Email:     res.Identity.Email,
		FirstName: res.Identity.FirstName,
		LastName:  res.Identity.LastName,
		Role:      res.Identity.Role,
		ExpiresAt: res.Token.ExpiresAt,
	}
}

// identityResponse is the public projection of an identity.
type identityResponse struct {
	ID        string      `json:"id"`
	Username  string      `json:"username"`
	Email     string      `json:"email"`
	FirstName string      `json:"firstName"`
	LastName  string      `json:"lastName"`
	Role      domain.Role `json:"role"`
	Active    bool        `json:"active"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

func newIdentityResponse(i *domain.Identity) identityResponse {
	return identityResponse{
		ID:        i.ID,
		Username:  i.Username,
		Email:     i.Email,
		FirstName: i.FirstName,
		LastName:  i.LastName,
		Role:      i.Role,
		Active:    i.Active,
		CreatedAt: i.CreatedAt,
		UpdatedAt: i.UpdatedAt,
	}
}

type listUsersResponse struct {
	Items      []identityResponse `json:"items"`
	Total      int64              `json:"total"`
	Page       int                `json:"page"`
	Limit      int                `json:"limit"`
	TotalPages int                `json:"totalPages"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// ErrorBody is the envelope every error response uses.
type ErrorBody struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}
