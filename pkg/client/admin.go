package client

import (
	"context"

	"github.com/bobbylite/enrollhub/internal/api"
	"github.com/bobbylite/enrollhub/internal/core"
)

// ListAudits retrieves the latest audit entries from the server, limited to the specified number.
func (c *Client) ListAudits(ctx context.Context, limit uint) ([]core.AuditEntry, error) {
	var resp []core.AuditEntry
	_, err := c.get(ctx, c.url().
		setPath(api.ListAuditsRoute).
		addQueryParam("limit", limit).
		build(), &resp)
	return resp, err
}
