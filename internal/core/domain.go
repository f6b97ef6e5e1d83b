package core

import "time"

// RequestTTL is how long an access request stays actionable before it is
// considered expired.
const RequestTTL = 7 * 24 * time.Hour

// RequestStatus is the lifecycle state of an AccessRequest.
// Transitions are one-way: Pending -> Approved or Pending -> Denied.
type RequestStatus string

const (
	RequestPending  RequestStatus = "Pending"
	RequestApproved RequestStatus = "Approved"
	RequestDenied   RequestStatus = "Denied"
)

// AccessRequest represents a user's request to join an authorization group.
type AccessRequest struct {
	// ID is the unique identifier of the request, generated at creation.
	ID string `json:"id"`

	// UserID is the directory identifier of the requester.
	UserID string `json:"user_id"`

	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`

	// GroupID is the directory identifier of the target group.
	GroupID   string `json:"group_id"`
	GroupName string `json:"group_name,omitempty"`

	RequestedAt time.Time `json:"requested_at"`
	ExpiresAt   time.Time `json:"expires_at"`

	Status RequestStatus `json:"status"`
}

// Expired reports whether the request is past its expiration timestamp.
func (r AccessRequest) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// InvitationStatus is the delivery state of an EmailInvitation.
type InvitationStatus string

const (
	InvitationPending InvitationStatus = "Pending"
	InvitationSent    InvitationStatus = "Sent"
	InvitationFailed  InvitationStatus = "Failed"
)

// EmailInvitation is the first stage of an enrollment. It is created when
// enrollment begins and consumed (by invitation ID) once the corresponding
// directory identity has been created.
type EmailInvitation struct {
	// ID is the generated invitation identifier embedded in the magic link.
	ID string `json:"invitationId"`

	GroupID   string           `json:"group_id"`
	Email     string           `json:"email"`
	Status    InvitationStatus `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
}

// User is a directory identity as returned by the identity platform.
type User struct {
	ID         string `json:"id"`
	Username   string `json:"username,omitempty"`
	Email      string `json:"email,omitempty"`
	GivenName  string `json:"given_name,omitempty"`
	FamilyName string `json:"family_name,omitempty"`
	Enabled    bool   `json:"enabled,omitempty"`
}

// Group is an authorization group in the directory.
type Group struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// EnrolledIdentity links a freshly created directory identity to the
// invitation that produced it. It exists between identity creation and
// identity verification.
type EnrolledIdentity struct {
	User *User `json:"user"`

	// InvitationID is the invitation this identity was created from.
	InvitationID string `json:"invitation_id"`

	// GroupID is the group the invitation targeted, carried over because the
	// invitation itself is consumed when the identity is created.
	GroupID string `json:"group_id"`
}

// NewIdentity is the payload submitted to create a directory identity as
// part of completing an enrollment.
type NewIdentity struct {
	InvitationID string `json:"invitationId"`

	Email      string `json:"email"`
	Username   string `json:"username"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Password   string `json:"password,omitempty"`

	// PopulationID selects the directory population the identity is created
	// in. Optional; the platform default applies when empty.
	PopulationID string `json:"population_id,omitempty"`
}
