package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"storedesk/internal/models"
)

func (c *Client) Notifications(ctx context.Context, notifiableID int64, typ models.NotifiableType) ([]models.Notification, error) {
	q := url.Values{}
	q.Set("notifiable_id", strconv.FormatInt(notifiableID, 10))
	q.Set("notifiable_type", string(typ))
	return getData[[]models.Notification](ctx, c, "/notifications/?"+q.Encode())
}

func (c *Client) MarkNotificationRead(ctx context.Context, id int64) error {
	return c.send(ctx, http.MethodPut, fmt.Sprintf("/notifications/read/%d", id), nil, nil)
}
