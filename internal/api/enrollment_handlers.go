package api

import (
	"net/http"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/bobbylite/enrollhub/internal/api/presenter"
	"github.com/bobbylite/enrollhub/internal/core"
)

type BeginEnrollmentPayload struct {
	// GroupID is the group the invitee will request access to after
	// completing enrollment.
	GroupID string `json:"groupId"`

	// Email receives the invitation with the magic link.
	Email string `json:"email"`
}

// handleBeginEnrollment invites a new user by email.
func (s *Server) handleBeginEnrollment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)

	var payload BeginEnrollmentPayload
	if err := DecodePayload(r, &payload, false); err != nil {
		logger.Warn().Err(err).Msg("failed to decode begin enrollment payload")
		presenter.Error(w, r, "invalid request payload", http.StatusBadRequest)
		return
	}

	invitation, err := s.workflow.Begin(ctx, payload.GroupID, payload.Email)
	if err != nil {
		logger.Warn().Err(err).Msg("begin enrollment failed")
		presenter.Err(w, r, err, "begin enrollment failed")
		return
	}

	logger.Info().
		Str("invitation_id", invitation.ID).
		Str("status", string(invitation.Status)).
		Msg("invitation created")

	presenter.JSON(w, r, invitation, http.StatusCreated)
}

type CompleteEnrollmentPayload struct {
	InvitationID string `json:"invitationId"`
	Email        string `json:"email"`
	Username     string `json:"username"`
	GivenName    string `json:"givenName"`
	FamilyName   string `json:"familyName"`
	Password     string `json:"password"`
}

// handleCompleteEnrollment creates the invitee's identity in the directory.
func (s *Server) handleCompleteEnrollment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)

	var payload CompleteEnrollmentPayload
	if err := DecodePayload(r, &payload, false); err != nil {
		logger.Warn().Err(err).Msg("failed to decode complete enrollment payload")
		presenter.Error(w, r, "invalid request payload", http.StatusBadRequest)
		return
	}

	logger.UpdateContext(func(c zerolog.Context) zerolog.Context {
		return c.Str("invitation_id", payload.InvitationID)
	})

	identity, err := s.workflow.Complete(ctx, core.NewIdentity{
		InvitationID: payload.InvitationID,
		Email:        payload.Email,
		Username:     payload.Username,
		GivenName:    payload.GivenName,
		FamilyName:   payload.FamilyName,
		Password:     payload.Password,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("complete enrollment failed")
		presenter.Err(w, r, err, "complete enrollment failed")
		return
	}

	logger.Info().
		Str("user_id", identity.User.ID).
		Msg("identity created")

	presenter.JSON(w, r, identity, http.StatusCreated)
}

type VerifyEnrollmentPayload struct {
	InvitationID     string `json:"invitationId"`
	VerificationCode string `json:"verificationCode"`
}

// handleVerifyEnrollment verifies the invitee's identity and submits their
// access request.
func (s *Server) handleVerifyEnrollment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)

	var payload VerifyEnrollmentPayload
	if err := DecodePayload(r, &payload, false); err != nil {
		logger.Warn().Err(err).Msg("failed to decode verify enrollment payload")
		presenter.Error(w, r, "invalid request payload", http.StatusBadRequest)
		return
	}

	logger.UpdateContext(func(c zerolog.Context) zerolog.Context {
		return c.Str("invitation_id", payload.InvitationID)
	})

	request, err := s.workflow.Verify(ctx, payload.InvitationID, payload.VerificationCode)
	if err != nil {
		logger.Warn().Err(err).Msg("verify enrollment failed")
		presenter.Err(w, r, err, "verify enrollment failed")
		return
	}

	logger.Info().
		Str("request_id", request.ID).
		Str("status", string(request.Status)).
		Msg("enrollment verified, access request submitted")

	presenter.JSON(w, r, request, http.StatusCreated)
}

// handleListInvitations responds with the invitations that have not been
// consumed yet.
func (s *Server) handleListInvitations(w http.ResponseWriter, r *http.Request) {
	presenter.JSON(w, r, s.workflow.ActiveInvitations(), http.StatusOK)
}
