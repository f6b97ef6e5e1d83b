package client

import (
	"context"

	"github.com/bobbylite/enrollhub/internal/api"
	"github.com/bobbylite/enrollhub/internal/core"
)

// BeginEnrollment invites a new user by email.
func (c *Client) BeginEnrollment(ctx context.Context, groupID, email string) (*core.EmailInvitation, error) {
	var resp core.EmailInvitation
	_, err := c.post(ctx, c.url().
		setPath(api.BeginEnrollmentRoute).
		build(), api.BeginEnrollmentPayload{
		GroupID: groupID,
		Email:   email,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// CompleteEnrollment creates the invitee's identity in the directory.
func (c *Client) CompleteEnrollment(ctx context.Context, payload api.CompleteEnrollmentPayload) (*core.EnrolledIdentity, error) {
	var resp core.EnrolledIdentity
	_, err := c.post(ctx, c.url().
		setPath(api.CompleteEnrollmentRoute).
		build(), payload, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// VerifyEnrollment verifies an enrolled identity and submits its access request.
func (c *Client) VerifyEnrollment(ctx context.Context, invitationID, verificationCode string) (*core.AccessRequest, error) {
	var resp core.AccessRequest
	_, err := c.post(ctx, c.url().
		setPath(api.VerifyEnrollmentRoute).
		build(), api.VerifyEnrollmentPayload{
		InvitationID:     invitationID,
		VerificationCode: verificationCode,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListInvitations retrieves the invitations that have not been consumed yet.
func (c *Client) ListInvitations(ctx context.Context) ([]core.EmailInvitation, error) {
	var resp []core.EmailInvitation
	_, err := c.get(ctx, c.url().
		setPath(api.ListInvitationsRoute).
		build(), &resp)
	return resp, err
}
