package enrollment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/bobbylite/enrollhub/internal/core"
	"github.com/bobbylite/enrollhub/internal/mailgun"
	"github.com/bobbylite/enrollhub/internal/requests"
)

// Config carries the workflow's enrollment settings.
type Config struct {
	// MagicLinkBaseURL is the public base URL magic links point at.
	MagicLinkBaseURL string

	// BirthrightGroupID is the group every verified identity is provisioned
	// into automatically.
	BirthrightGroupID string

	// PopulationID is the directory population new identities are created in.
	PopulationID string

	// InvitationTTL bounds how long an unconsumed invitation stays active.
	// Zero means invitations never expire.
	InvitationTTL time.Duration
}

// Workflow drives an enrollee through
// Invited -> Identity-Created -> Verified -> Access-Requested.
//
// Invitations and just-created identities are transient, kept in memory and
// keyed by invitation id; only when a request reaches the state requiring
// administrative action is it written to the durable archive.
type Workflow struct {
	mu          sync.Mutex
	invitations map[string]core.EmailInvitation
	identities  map[string]core.EnrolledIdentity

	directory core.Directory
	mailer    core.EmailSender
	archive   core.Archive
	store     *requests.Store
	auditor   core.Auditor

	cfg Config
	now func() time.Time
}

func NewWorkflow(
	directory core.Directory,
	mailer core.EmailSender,
	archive core.Archive,
	store *requests.Store,
	auditor core.Auditor,
	cfg Config,
) *Workflow {
	return &Workflow{
		invitations: make(map[string]core.EmailInvitation),
		identities:  make(map[string]core.EnrolledIdentity),
		directory:   directory,
		mailer:      mailer,
		archive:     archive,
		store:       store,
		auditor:     auditor,
		cfg:         cfg,
		now:         time.Now,
	}
}

// Begin generates an invitation, mails the magic link and retains the
// invitation only when the mail went out. An email failure is recorded in
// the returned invitation's status, never surfaced as an error to the
// caller.
func (w *Workflow) Begin(ctx context.Context, groupID, email string) (core.EmailInvitation, error) {
	logger := log.Ctx(ctx)

	if groupID == "" {
		return core.EmailInvitation{}, core.ValidationError{Field: "groupId"}
	}
	if email == "" {
		return core.EmailInvitation{}, core.ValidationError{Field: "email"}
	}

	invitation := core.EmailInvitation{
		ID:        uuid.NewString(),
		GroupID:   groupID,
		Email:     email,
		Status:    core.InvitationPending,
		CreatedAt: w.now(),
	}

	entry := core.AuditEntry{
		Time:         invitation.CreatedAt,
		Action:       "enrollment.begin",
		InvitationID: invitation.ID,
		GroupID:      groupID,
		Email:        email,
	}
	defer w.audit(ctx, &entry)

	link, err := BuildMagicLink(w.cfg.MagicLinkBaseURL, invitation.ID)
	if err != nil {
		entry.Error = err.Error()
		return core.EmailInvitation{}, err
	}

	if err := w.mailer.Send(ctx, email, "Enrollment Invitation", mailgun.InvitationBody(link)); err != nil {
		invitation.Status = core.InvitationFailed
		entry.Error = err.Error()
		logger.Error().Err(err).
			Str("email", email).
			Str("invitation_id", invitation.ID).
			Msg("failed to send enrollment email")
		return invitation, nil
	}

	invitation.Status = core.InvitationSent
	w.mu.Lock()
	w.invitations[invitation.ID] = invitation
	w.mu.Unlock()

	entry.Success = true
	logger.Info().
		Str("email", email).
		Str("invitation_id", invitation.ID).
		Msg("enrollment email sent")

	return invitation, nil
}

// Complete submits the identity payload to the directory and, on success,
// consumes the matching invitation (by invitation id) and records the
// enrolled identity.
func (w *Workflow) Complete(ctx context.Context, identity core.NewIdentity) (core.EnrolledIdentity, error) {
	logger := log.Ctx(ctx)

	if identity.InvitationID == "" {
		return core.EnrolledIdentity{}, core.ValidationError{Field: "invitationId"}
	}

	entry := core.AuditEntry{
		Time:         w.now(),
		Action:       "enrollment.complete",
		InvitationID: identity.InvitationID,
		Email:        identity.Email,
	}
	defer w.audit(ctx, &entry)

	// consume the invitation at lookup time, so of two concurrent
	// completions of the same link exactly one proceeds to CreateUser
	w.mu.Lock()
	invitation, ok := w.invitations[identity.InvitationID]
	if ok {
		delete(w.invitations, identity.InvitationID)
	}
	w.mu.Unlock()
	if !ok {
		entry.Error = "invitation not found"
		return core.EnrolledIdentity{}, fmt.Errorf("invitation %s: %w", identity.InvitationID, core.ErrNotFound)
	}

	if identity.PopulationID == "" {
		identity.PopulationID = w.cfg.PopulationID
	}

	user, err := w.directory.CreateUser(ctx, identity)
	if err != nil {
		// restore the invitation so the enrollee can retry the same link
		w.mu.Lock()
		w.invitations[invitation.ID] = invitation
		w.mu.Unlock()

		entry.Error = err.Error()
		return core.EnrolledIdentity{}, fmt.Errorf("creating directory identity: %w", err)
	}

	enrolled := core.EnrolledIdentity{
		User:         user,
		InvitationID: invitation.ID,
		GroupID:      invitation.GroupID,
	}

	w.mu.Lock()
	w.identities[invitation.ID] = enrolled
	w.mu.Unlock()

	entry.Success = true
	entry.UserID = user.ID
	entry.GroupID = invitation.GroupID

	logger.Info().
		Str("invitation_id", invitation.ID).
		Str("user_id", user.ID).
		Msg("directory identity created")

	return enrolled, nil
}

// Verify submits the verification code for the identity created from the
// invitation. On success the enrollee is provisioned into the birth-right
// group and a Pending access request carrying the resolved names is
// persisted to the durable archive and queued for administrative action.
func (w *Workflow) Verify(ctx context.Context, invitationID, verificationCode string) (core.AccessRequest, error) {
	logger := log.Ctx(ctx)

	if invitationID == "" {
		return core.AccessRequest{}, core.ValidationError{Field: "invitationId"}
	}
	if verificationCode == "" {
		return core.AccessRequest{}, core.ValidationError{Field: "verificationCode"}
	}

	entry := core.AuditEntry{
		Time:         w.now(),
		Action:       "enrollment.verify",
		InvitationID: invitationID,
	}
	defer w.audit(ctx, &entry)

	// consume the identity at lookup time, so of two concurrent
	// verifications exactly one gets to file the access request
	w.mu.Lock()
	enrolled, ok := w.identities[invitationID]
	if ok {
		delete(w.identities, invitationID)
	}
	w.mu.Unlock()
	if !ok {
		entry.Error = "enrolled identity not found"
		return core.AccessRequest{}, fmt.Errorf("enrolled identity for invitation %s: %w", invitationID, core.ErrNotFound)
	}
	entry.UserID = enrolled.User.ID
	entry.GroupID = enrolled.GroupID

	// every failure below restores the identity so verification can be retried
	restore := func() {
		w.mu.Lock()
		w.identities[invitationID] = enrolled
		w.mu.Unlock()
	}

	group, err := w.resolveGroup(ctx, enrolled.GroupID)
	if err != nil {
		restore()
		entry.Error = err.Error()
		return core.AccessRequest{}, err
	}

	if err := w.directory.VerifyUser(ctx, enrolled.User.ID, verificationCode); err != nil {
		restore()
		entry.Error = err.Error()
		return core.AccessRequest{}, fmt.Errorf("verifying identity: %w", err)
	}

	logger.Info().
		Str("user_id", enrolled.User.ID).
		Str("group_id", w.cfg.BirthrightGroupID).
		Msg("provisioning birth-right group membership")
	if err := w.directory.ProvisionGroupMembership(ctx, enrolled.User.ID, w.cfg.BirthrightGroupID); err != nil {
		restore()
		entry.Error = err.Error()
		return core.AccessRequest{}, fmt.Errorf("provisioning birth-right group: %w", err)
	}

	now := w.now()
	req := core.AccessRequest{
		ID:          uuid.NewString(),
		UserID:      enrolled.User.ID,
		FirstName:   enrolled.User.GivenName,
		LastName:    enrolled.User.FamilyName,
		GroupID:     group.ID,
		GroupName:   group.Name,
		RequestedAt: now,
		ExpiresAt:   now.Add(core.RequestTTL),
		Status:      core.RequestPending,
	}

	if err := w.archive.Append(ctx, req); err != nil {
		restore()
		entry.Error = err.Error()
		return core.AccessRequest{}, fmt.Errorf("persisting access request: %w", err)
	}

	submitted, ruleName, err := w.store.Submit(ctx, req)
	if err != nil {
		restore()
		entry.Error = err.Error()
		return core.AccessRequest{}, err
	}

	entry.Success = true
	entry.RequestID = submitted.ID
	entry.PolicyName = ruleName

	logger.Info().
		Str("user_id", enrolled.User.ID).
		Str("request_id", submitted.ID).
		Msg("enrollment verified")

	return submitted, nil
}

// ActiveInvitations returns the retained (Sent) invitations.
func (w *Workflow) ActiveInvitations() []core.EmailInvitation {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]core.EmailInvitation, 0, len(w.invitations))
	for _, inv := range w.invitations {
		out = append(out, inv)
	}
	return out
}

// SweepExpiredInvitations drops unconsumed invitations older than the
// configured TTL and returns how many were removed.
func (w *Workflow) SweepExpiredInvitations() int {
	if w.cfg.InvitationTTL <= 0 {
		return 0
	}

	cutoff := w.now().Add(-w.cfg.InvitationTTL)

	w.mu.Lock()
	defer w.mu.Unlock()

	removed := 0
	for id, inv := range w.invitations {
		if inv.CreatedAt.Before(cutoff) {
			delete(w.invitations, id)
			removed++
		}
	}
	return removed
}

func (w *Workflow) resolveGroup(ctx context.Context, groupID string) (core.Group, error) {
	groups, err := w.directory.Groups(ctx)
	if err != nil {
		return core.Group{}, fmt.Errorf("resolving group: %w", err)
	}
	for _, g := range groups {
		if g.ID == groupID {
			return g, nil
		}
	}
	return core.Group{}, fmt.Errorf("group %s: %w", groupID, core.ErrNotFound)
}

func (w *Workflow) audit(ctx context.Context, entry *core.AuditEntry) {
	if w.auditor == nil {
		return
	}
	if err := w.auditor.Log(*entry); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to write audit log entry")
	}
}
