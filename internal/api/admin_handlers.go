package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bobbylite/enrollhub/internal/api/middleware"
	"github.com/bobbylite/enrollhub/internal/api/presenter"
	"github.com/bobbylite/enrollhub/internal/core"
)

// handleListUsers responds with all identities in the directory.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)

	users, err := s.directory.Users(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("failed to list users")
		presenter.Err(w, r, err, "failed to list users")
		return
	}
	presenter.JSON(w, r, users, http.StatusOK)
}

// handleListGroups responds with all groups in the directory.
func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)

	groups, err := s.directory.Groups(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("failed to list groups")
		presenter.Err(w, r, err, "failed to list groups")
		return
	}
	presenter.JSON(w, r, groups, http.StatusOK)
}

// handleMemberOfGroups responds with the groups a user is a member of.
func (s *Server) handleMemberOfGroups(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)

	userID := r.PathValue("id")
	if userID == "" {
		presenter.Error(w, r, "missing user id", http.StatusBadRequest)
		return
	}

	groups, err := s.directory.MemberOfGroups(ctx, userID)
	if err != nil {
		logger.Error().Err(err).Str("user_id", userID).Msg("failed to list memberships")
		presenter.Err(w, r, err, "failed to list memberships")
		return
	}
	presenter.JSON(w, r, groups, http.StatusOK)
}

type MembershipResponse struct {
	Status string `json:"status"`
}

// handleProvisionMembership adds a user to a group directly, bypassing the
// request queue.
func (s *Server) handleProvisionMembership(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)
	reqID := middleware.CorrelationID(ctx)

	userID := r.PathValue("id")
	groupID := r.PathValue("groupID")
	if userID == "" || groupID == "" {
		presenter.Error(w, r, "missing user or group id", http.StatusBadRequest)
		return
	}

	auditEntry := core.AuditEntry{
		ID:      reqID,
		Time:    time.Now(),
		Action:  "membership.provision",
		UserID:  userID,
		GroupID: groupID,
	}
	defer func() {
		if err := s.auditor.Log(auditEntry); err != nil {
			logger.Error().Err(err).Msg("failed to write audit log")
		}
	}()

	if err := s.directory.ProvisionGroupMembership(ctx, userID, groupID); err != nil {
		logger.Error().Err(err).
			Str("user_id", userID).
			Str("group_id", groupID).
			Msg("failed to provision membership")
		presenter.Err(w, r, err, "failed to provision membership")
		auditEntry.Error = err.Error()
		return
	}
	auditEntry.Success = true

	logger.Info().
		Str("user_id", userID).
		Str("group_id", groupID).
		Msg("membership provisioned")

	presenter.JSON(w, r, MembershipResponse{Status: "provisioned"}, http.StatusCreated)
}

// handleDeprovisionMembership removes a user from a group.
func (s *Server) handleDeprovisionMembership(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)
	reqID := middleware.CorrelationID(ctx)

	userID := r.PathValue("id")
	groupID := r.PathValue("groupID")
	if userID == "" || groupID == "" {
		presenter.Error(w, r, "missing user or group id", http.StatusBadRequest)
		return
	}

	auditEntry := core.AuditEntry{
		ID:      reqID,
		Time:    time.Now(),
		Action:  "membership.deprovision",
		UserID:  userID,
		GroupID: groupID,
	}
	defer func() {
		if err := s.auditor.Log(auditEntry); err != nil {
			logger.Error().Err(err).Msg("failed to write audit log")
		}
	}()

	if err := s.directory.DeprovisionGroupMembership(ctx, userID, groupID); err != nil {
		logger.Error().Err(err).
			Str("user_id", userID).
			Str("group_id", groupID).
			Msg("failed to deprovision membership")
		presenter.Err(w, r, err, "failed to deprovision membership")
		auditEntry.Error = err.Error()
		return
	}
	auditEntry.Success = true

	logger.Info().
		Str("user_id", userID).
		Str("group_id", groupID).
		Msg("membership deprovisioned")

	presenter.JSON(w, r, MembershipResponse{Status: "deprovisioned"}, http.StatusOK)
}

// queryableAuditor is implemented by audit backends that keep entries
// retrievable, e.g. the in-memory auditor.
type queryableAuditor interface {
	GetRecent(limit int) ([]core.AuditEntry, error)
	Find(filter func(entry core.AuditEntry) bool, limit int) ([]core.AuditEntry, error)
}

// handleAdminAudit processes requests to retrieve audit log entries.
func (s *Server) handleAdminAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)

	queryable, ok := s.auditor.(queryableAuditor)
	if !ok {
		presenter.Error(w, r, "audit backend does not support queries", http.StatusNotImplemented)
		return
	}

	// filters
	q := r.URL.Query()
	limitStr := q.Get("limit")

	filterCorrelationID := q.Get("correlation_id")
	filterRequestID := q.Get("request_id")
	filterUserID := q.Get("user_id")

	limit := 50
	if limitStr != "" {
		v, err := strconv.Atoi(limitStr)
		if err != nil {
			logger.Warn().Err(err).Str("limit", limitStr).Msg("invalid limit parameter")
			presenter.Error(w, r, "invalid limit parameter", http.StatusBadRequest)
			return
		}
		limit = v
	}

	var entries []core.AuditEntry
	var err error

	if filterCorrelationID != "" || filterRequestID != "" || filterUserID != "" {
		logger.Info().Msgf("applying audit log filters")
		entries, err = queryable.Find(func(entry core.AuditEntry) bool {
			if filterCorrelationID != "" && entry.ID != filterCorrelationID {
				return false
			}
			if filterRequestID != "" && entry.RequestID != filterRequestID {
				return false
			}
			if filterUserID != "" && entry.UserID != filterUserID {
				return false
			}
			return true
		}, limit)
	} else {
		logger.Debug().Msgf("retrieving recent audit log entries")
		entries, err = queryable.GetRecent(limit)
	}

	if err != nil {
		logger.Error().Err(err).Msg("failed to retrieve audit logs")
		presenter.Error(w, r, "failed to retrieve audit logs", http.StatusInternalServerError)
		return
	}

	presenter.JSON(w, r, entries, http.StatusOK)
}
