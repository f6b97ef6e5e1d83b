package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/bobbylite/enrollhub/internal/api/middleware"
	"github.com/bobbylite/enrollhub/internal/api/presenter"
	"github.com/bobbylite/enrollhub/internal/core"
	"github.com/bobbylite/enrollhub/internal/requests"
)

// handleListRequests responds with the requests still awaiting a decision.
func (s *Server) handleListRequests(w http.ResponseWriter, r *http.Request) {
	presenter.JSON(w, r, s.store.Active(), http.StatusOK)
}

// handleRequestHistory responds with the requests that have been decided.
func (s *Server) handleRequestHistory(w http.ResponseWriter, r *http.Request) {
	presenter.JSON(w, r, s.store.History(), http.StatusOK)
}

type CreatePayload struct {
	UserID  string `json:"userId"`
	GroupID string `json:"groupId"`
}

type CreateResponse struct {
	Request core.AccessRequest `json:"request"`

	// AutoApprovedBy names the rule that approved the request at creation,
	// if any.
	AutoApprovedBy string `json:"autoApprovedBy,omitempty"`
}

// handleCreateRequest submits an access request on behalf of an existing user.
func (s *Server) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)
	reqID := middleware.CorrelationID(ctx)

	var payload CreatePayload
	if err := DecodePayload(r, &payload, false); err != nil {
		logger.Warn().Err(err).Msg("failed to decode create request payload")
		presenter.Error(w, r, "invalid request payload", http.StatusBadRequest)
		return
	}

	auditEntry := core.AuditEntry{
		ID:      reqID,
		Time:    time.Now(),
		Action:  "request.create",
		UserID:  payload.UserID,
		GroupID: payload.GroupID,
	}
	defer func() {
		if err := s.auditor.Log(auditEntry); err != nil {
			logger.Error().Err(err).Msg("failed to write audit log")
		}
	}()

	request, ruleName, err := s.store.Create(ctx, payload.UserID, payload.GroupID)
	if err != nil {
		logger.Warn().Err(err).Msg("create request failed")
		presenter.Err(w, r, err, "create request failed")
		auditEntry.Error = err.Error()
		return
	}
	auditEntry.RequestID = request.ID
	auditEntry.PolicyName = ruleName
	auditEntry.Success = true

	logger.Info().
		Str("request_id", request.ID).
		Str("status", string(request.Status)).
		Msg("access request created")

	presenter.JSON(w, r, CreateResponse{
		Request:        request,
		AutoApprovedBy: ruleName,
	}, http.StatusCreated)
}

type ApproveResponse struct {
	Request core.AccessRequest `json:"request"`

	// Provisioned reports whether the group membership was granted. The
	// approval itself is final either way.
	Provisioned bool   `json:"provisioned"`
	Warning     string `json:"warning,omitempty"`
}

// handleApproveRequest approves a pending access request and provisions the
// group membership.
func (s *Server) handleApproveRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)
	reqID := middleware.CorrelationID(ctx)

	requestID := r.PathValue("id")
	if requestID == "" {
		presenter.Error(w, r, "missing request id", http.StatusBadRequest)
		return
	}

	logger.UpdateContext(func(c zerolog.Context) zerolog.Context {
		return c.Str("request_id", requestID)
	})

	auditEntry := core.AuditEntry{
		ID:        reqID,
		Time:      time.Now(),
		Action:    "request.approve",
		RequestID: requestID,
	}
	defer func() {
		if err := s.auditor.Log(auditEntry); err != nil {
			logger.Error().Err(err).Msg("failed to write audit log")
		}
	}()

	request, err := s.store.Approve(ctx, requestID)

	var provErr *requests.ProvisioningError
	if errors.As(err, &provErr) {
		// the approval is committed, only the membership grant failed
		logger.Error().Err(provErr.Err).Msg("request approved but provisioning failed")
		auditEntry.Success = true
		auditEntry.UserID = request.UserID
		auditEntry.GroupID = request.GroupID
		auditEntry.Error = provErr.Err.Error()

		presenter.JSON(w, r, ApproveResponse{
			Request:     request,
			Provisioned: false,
			Warning:     provErr.Err.Error(),
		}, http.StatusBadGateway)
		return
	}
	if err != nil {
		logger.Warn().Err(err).Msg("approve request failed")
		presenter.Err(w, r, err, "approve request failed")
		auditEntry.Error = err.Error()
		return
	}
	auditEntry.Success = true
	auditEntry.UserID = request.UserID
	auditEntry.GroupID = request.GroupID

	logger.Info().Msg("access request approved")

	presenter.JSON(w, r, ApproveResponse{
		Request:     request,
		Provisioned: true,
	}, http.StatusOK)
}

// handleDenyRequest denies a pending access request.
func (s *Server) handleDenyRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)
	reqID := middleware.CorrelationID(ctx)

	requestID := r.PathValue("id")
	if requestID == "" {
		presenter.Error(w, r, "missing request id", http.StatusBadRequest)
		return
	}

	auditEntry := core.AuditEntry{
		ID:        reqID,
		Time:      time.Now(),
		Action:    "request.deny",
		RequestID: requestID,
	}
	defer func() {
		if err := s.auditor.Log(auditEntry); err != nil {
			logger.Error().Err(err).Msg("failed to write audit log")
		}
	}()

	request, err := s.store.Deny(ctx, requestID)
	if err != nil {
		logger.Warn().Err(err).Str("request_id", requestID).Msg("deny request failed")
		presenter.Err(w, r, err, "deny request failed")
		auditEntry.Error = err.Error()
		return
	}
	auditEntry.Success = true
	auditEntry.UserID = request.UserID
	auditEntry.GroupID = request.GroupID

	logger.Info().Str("request_id", requestID).Msg("access request denied")

	presenter.JSON(w, r, request, http.StatusOK)
}
