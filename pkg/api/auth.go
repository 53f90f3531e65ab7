package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/model"
	gojwt "github.com/golang-jwt/jwt/v5"
)

// ErrNoUserClaim is returned for tokens without a user_id claim.
var ErrNoUserClaim = errors.New("token has no user_id claim")

// AuthResult is the outcome of a login or signup.
type AuthResult struct {
	Message string     `json:"message"`
	Token   string     `json:"token"`
	User    model.User `json:"user"`
}

// Credentials logs an existing user in.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Signup registers a new user.
type Signup struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Password string `json:"password"`
}

func (c *Client) Login(ctx context.Context, creds Credentials) (AuthResult, error) {
	var out AuthResult
	err := c.do(ctx, http.MethodPost, "/auth/login", creds, &out)

	return out, err
}

func (c *Client) Signup(ctx context.Context, in Signup) (AuthResult, error) {
	var out AuthResult
	err := c.do(ctx, http.MethodPost, "/auth/signup", in, &out)

	return out, err
}

// TokenClaims is what the client reads from its own bearer token. The signature is not
// verified: the server does that on every request.
type TokenClaims struct {
	UserID    string
	ExpiresAt *time.Time
}

// ParseTokenUnverified extracts the user id and expiry from a bearer token.
func ParseTokenUnverified(token string) (TokenClaims, error) {
	parser := gojwt.NewParser()

	parsed, _, err := parser.ParseUnverified(token, gojwt.MapClaims{})
	if err != nil {
		return TokenClaims{}, fmt.Errorf("error parsing token: %w", err)
	}

	claims, _ := parsed.Claims.(gojwt.MapClaims)

	var out TokenClaims

	if userID, ok := claims["user_id"].(string); ok {
		out.UserID = userID
	}

	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		t := exp.Time
		out.ExpiresAt = &t
	}

	if out.UserID == "" {
		return out, ErrNoUserClaim
	}

	return out, nil
}

// Expired reports whether the claims carry an expiry before now.
func (t TokenClaims) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && !now.Before(*t.ExpiresAt)
}
