package client

import (
	"context"
	"fmt"

	"github.com/bobbylite/enrollhub/internal/api"
	"github.com/bobbylite/enrollhub/internal/core"
)

// ListUsers retrieves all identities in the directory.
func (c *Client) ListUsers(ctx context.Context) ([]core.User, error) {
	var resp []core.User
	_, err := c.get(ctx, c.url().
		setPath(api.ListUsersRoute).
		build(), &resp)
	return resp, err
}

// ListGroups retrieves all groups in the directory.
func (c *Client) ListGroups(ctx context.Context) ([]core.Group, error) {
	var resp []core.Group
	_, err := c.get(ctx, c.url().
		setPath(api.ListGroupsRoute).
		build(), &resp)
	return resp, err
}

// MemberOfGroups retrieves the groups a user is a member of.
func (c *Client) MemberOfGroups(ctx context.Context, userID string) ([]core.Group, error) {
	var resp []core.Group
	_, err := c.get(ctx, c.url().
		setPath(api.MemberOfGroupsRoute).
		setPathParam("id", userID).
		build(), &resp)
	return resp, err
}

// ProvisionMembership adds a user to a group directly.
func (c *Client) ProvisionMembership(ctx context.Context, userID, groupID string) error {
	var resp api.MembershipResponse
	_, err := c.post(ctx, c.url().
		setPath(api.MembershipRoute).
		setPathParam("id", userID).
		setPathParam("groupID", groupID).
		build(), nil, &resp)
	if err != nil {
		return err
	}
	if resp.Status != "provisioned" {
		return fmt.Errorf("unexpected response status: %s", resp.Status)
	}
	return nil
}

// DeprovisionMembership removes a user from a group.
func (c *Client) DeprovisionMembership(ctx context.Context, userID, groupID string) error {
	var resp api.MembershipResponse
	_, err := c.delete(ctx, c.url().
		setPath(api.MembershipRoute).
		setPathParam("id", userID).
		setPathParam("groupID", groupID).
		build(), &resp)
	if err != nil {
		return err
	}
	if resp.Status != "deprovisioned" {
		return fmt.Errorf("unexpected response status: %s", resp.Status)
	}
	return nil
}
