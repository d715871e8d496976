package backend

import (
	"context"
	"net/http"

	"github.com/schooldesk/console/types"
)

// LoginRequest is the credential payload of the login endpoint.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the login endpoint's answer. AccessToken is empty when
// the backend refused the credentials without an error status.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Message     string `json:"message,omitempty"`
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResponse, error) {
	var resp LoginResponse
	err := c.Do(ctx, http.MethodPost, "/auth/login", "", LoginRequest{Email: email, Password: password}, &resp)
	return resp, err
}

// Me returns the user owning token.
func (c *Client) Me(ctx context.Context, token string) (types.User, error) {
	var user types.User
	if err := c.Do(ctx, http.MethodGet, "/auth/me", token, nil, &user); err != nil {
		return types.User{}, err
	}
	return user, nil
}

// Logout revokes token on the backend.
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.Do(ctx, http.MethodPost, "/auth/logout", token, nil, nil)
}

// UpdateProfile saves the current user's editable fields.
func (c *Client) UpdateProfile(ctx context.Context, token string, profile types.ProfileUpdate) error {
	return c.Do(ctx, http.MethodPost, "/update_profile", token, profile, nil)
}
