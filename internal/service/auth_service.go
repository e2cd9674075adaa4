package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dealership/internal/middleware"
	"dealership/internal/upstream"
)

type LoginRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required"`
	Password    string `json:"password" binding:"required"`
}

type LoginResult struct {
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type"`
	UserID      string     `json:"user_id,omitempty"`
	Role        string     `json:"role,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

type AuthService interface {
	Login(ctx context.Context, req LoginRequest) (LoginResult, error)
}

type authService struct {
	api *upstream.Client
	now Clock
}

func NewAuthService(api *upstream.Client, now Clock) AuthService {
	if now == nil {
		now = time.Now
	}
	return &authService{api: api, now: now}
}

// Login delegates to the API and reports the role carried by the returned token.
func (s *authService) Login(ctx context.Context, req LoginRequest) (LoginResult, error) {
	phone := strings.TrimSpace(req.PhoneNumber)
	if phone == "" || req.Password == "" {
		return LoginResult{}, fmt.Errorf("%w: phone_number and password are required", ErrInvalidInput)
	}

	tok, err := s.api.Login(ctx, phone, req.Password)
	if err != nil {
		return LoginResult{}, fmt.Errorf("login: %w", err)
	}

	res := LoginResult{AccessToken: tok.AccessToken, TokenType: tok.TokenType}
	if res.TokenType == "" {
		res.TokenType = "bearer"
	}
	// Opaque tokens are fine; the claims are informational.
	if claims, err := middleware.ParseToken(tok.AccessToken, s.now()); err == nil {
		res.UserID = claims.Subject
		res.Role = claims.Role
		if !claims.ExpiresAt.IsZero() {
			exp := claims.ExpiresAt
			res.ExpiresAt = &exp
		}
	}
	return res, nil
}
