package api

import (
	"context"
	"net/http"
)

// Login exchanges credentials for a token and the account profile.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	var out AuthResult
	_, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/api/auth/login",
		body:   map[string]string{"email": email, "password": password},
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account. The backend emails a verification link and
// returns the confirmation message.
func (c *Client) Register(ctx context.Context, r Registration) (string, error) {
	env, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/api/auth/register",
		body:   r,
	})
	if err != nil {
		return "", err
	}
	return env.Message, nil
}

// Me returns the profile behind the current token.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var out User
	if _, err := c.do(ctx, request{method: http.MethodGet, path: "/api/auth/me", out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout ends the server-side session.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.do(ctx, request{method: http.MethodPost, path: "/api/auth/logout"})
	return err
}

// ForgotPassword asks the backend to email a reset link.
func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	return c.message(ctx, http.MethodPost, "/api/auth/forgot-password", map[string]string{"email": email})
}

// ResetPassword sets a new password using the emailed token.
func (c *Client) ResetPassword(ctx context.Context, token, password string) (string, error) {
	return c.message(ctx, http.MethodPost, "/api/auth/reset-password", map[string]string{"token": token, "password": password})
}

// VerifyEmail confirms an address using the emailed token.
func (c *Client) VerifyEmail(ctx context.Context, token string) (string, error) {
	return c.message(ctx, http.MethodPost, "/api/auth/verify-email", map[string]string{"token": token})
}

// ResendVerification sends another verification email.
func (c *Client) ResendVerification(ctx context.Context, email string) (string, error) {
	return c.message(ctx, http.MethodPost, "/api/auth/resend-verification", map[string]string{"email": email})
}

// GoogleSignInURL is where a browser starts the Google OAuth flow.
func (c *Client) GoogleSignInURL() string {
	return c.baseURL + "/api/auth/google"
}

func (c *Client) message(ctx context.Context, method, path string, body interface{}) (string, error) {
	env, err := c.do(ctx, request{method: method, path: path, body: body})
	if err != nil {
		return "", err
	}
	return env.Message, nil
}
