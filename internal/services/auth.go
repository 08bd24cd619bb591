package services

import (
	"context"
	"net/http"

	"expensetracker/internal/cache"
	"expensetracker/internal/core"
)

type (
	// LoginRequest is the POST /auth/login body.
	LoginRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	// LoginResponse carries the session the server issued.
	LoginResponse struct {
		Token string    `json:"token"`
		User  core.User `json:"user"`
	}

	// RegisterRequest is the POST /auth/register body.
	RegisterRequest struct {
		Username     string `json:"username"`
		Email        string `json:"email"`
		PasswordHash string `json:"password_hash"`
	}

	// VerifyRequest is the POST /auth/verify body.
	VerifyRequest struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
)

// Login authenticates and, on success, populates the credential store. This
// is the one mutation whose success hook touches state outside the cache.
func (c *Client) Login(ctx context.Context, req LoginRequest) (LoginResponse, error) {
	return cache.Mutate(ctx, c.store, cache.Mutation[LoginRequest, LoginResponse]{
		Endpoint: "login",
		Do: func(ctx context.Context, arg LoginRequest) (LoginResponse, error) {
			var out LoginResponse
			err := c.gw.Send(ctx, http.MethodPost, "/auth/login", arg, &out)
			return out, err
		},
		OnSuccess: func(ctx context.Context, _ LoginRequest, res LoginResponse) error {
			return c.creds.SetCredentials(ctx, res.User, res.Token)
		},
	}, req)
}

// Register creates an account. The session starts only after Login.
func (c *Client) Register(ctx context.Context, req RegisterRequest) error {
	_, err := cache.Mutate(ctx, c.store, cache.Mutation[RegisterRequest, struct{}]{
		Endpoint: "register",
		Do: func(ctx context.Context, arg RegisterRequest) (struct{}, error) {
			return struct{}{}, c.gw.Send(ctx, http.MethodPost, "/auth/register", arg, nil)
		},
	}, req)
	return err
}

// Verify confirms the email verification code.
func (c *Client) Verify(ctx context.Context, req VerifyRequest) error {
	_, err := cache.Mutate(ctx, c.store, cache.Mutation[VerifyRequest, struct{}]{
		Endpoint: "verify",
		Do: func(ctx context.Context, arg VerifyRequest) (struct{}, error) {
			return struct{}{}, c.gw.Send(ctx, http.MethodPost, "/auth/verify", arg, nil)
		},
	}, req)
	return err
}

// Logout clears the stored credentials and resets the cache so nothing from
// the old session can be served to the next one.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.creds.Clear(ctx); err != nil {
		return err
	}
	c.store.Reset()
	c.log.InfoContext(ctx, "Logged out")
	return nil
}
