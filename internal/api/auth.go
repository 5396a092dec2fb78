package api

import (
	"context"
	"errors"
	"net/http"

	"storedesk/internal/forms"
	"storedesk/internal/models"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	RoleID   int    `json:"role_id"`
}

// Login exchanges credentials for a session. The backend takes the email or
// phone under the same "email" key.
func (c *Client) Login(ctx context.Context, in forms.LoginInput) (*models.Session, error) {
	return c.authenticate(ctx, "/auth/login", loginRequest{Email: in.Identifier, Password: in.Password})
}

func (c *Client) Register(ctx context.Context, in forms.RegisterInput) (*models.Session, error) {
	return c.authenticate(ctx, "/auth/register", registerRequest{
		Name:     in.Name,
		Email:    in.Identifier(),
		Password: in.Password,
		RoleID:   in.RoleID,
	})
}

func (c *Client) authenticate(ctx context.Context, path string, body any) (*models.Session, error) {
	var s models.Session
	if err := c.send(ctx, http.MethodPost, path, body, &s); err != nil {
		return nil, err
	}
	if s.Token == "" {
		return nil, errors.New("auth response carried no token")
	}
	return &s, nil
}
