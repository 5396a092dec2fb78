package api

import (
	"context"
	"fmt"
	"net/http"

	"storedesk/internal/forms"
	"storedesk/internal/models"
)

// Profile returns the user together with the store or driver record
// attached to it.
func (c *Client) Profile(ctx context.Context, userID int64) (*models.Profile, error) {
	p, err := getData[models.Profile](ctx, c, fmt.Sprintf("/users/profile/%d", userID))
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) CreateStore(ctx context.Context, in forms.StoreInput) (*models.Store, error) {
	s, err := sendData[models.Store](ctx, c, http.MethodPost, "/stores/create", in)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ToggleAvailability flips whether the driver accepts deliveries.
func (c *Client) ToggleAvailability(ctx context.Context, driverID int64) (*models.Driver, error) {
	d, err := sendData[models.Driver](ctx, c, http.MethodPatch, fmt.Sprintf("/drivers/%d/toggle-availability", driverID), nil)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
