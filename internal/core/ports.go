package core

import "context"

// Directory is the identity-management platform consumed by the workflow.
// Implementation: PingOne management API client.
type Directory interface {
	// Users lists all identities in the configured environment.
	Users(ctx context.Context) ([]User, error)

	// Groups lists all authorization groups in the configured environment.
	Groups(ctx context.Context) ([]Group, error)

	// MemberOfGroups lists the groups a user is a direct member of.
	MemberOfGroups(ctx context.Context, userID string) ([]Group, error)

	// ProvisionGroupMembership adds the user to the group. Idempotent intent.
	ProvisionGroupMembership(ctx context.Context, userID, groupID string) error

	// DeprovisionGroupMembership removes the user from the group.
	DeprovisionGroupMembership(ctx context.Context, userID, groupID string) error

	// CreateUser submits a new identity and returns the created user.
	CreateUser(ctx context.Context, identity NewIdentity) (*User, error)

	// VerifyUser submits the verification code for a newly created identity.
	VerifyUser(ctx context.Context, userID, verificationCode string) error
}

// EmailSender delivers transactional mail.
// Implementation: MailGun messages API client.
type EmailSender interface {
	Send(ctx context.Context, to, subject, html string) error
}

// Archive is the durable store that access requests are appended to once
// they reach a state requiring administrative action.
type Archive interface {
	Append(ctx context.Context, req AccessRequest) error
	List(ctx context.Context) ([]AccessRequest, error)
}
