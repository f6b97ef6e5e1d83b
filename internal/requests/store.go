package requests

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/bobbylite/enrollhub/internal/core"
	"github.com/bobbylite/enrollhub/internal/policy"
)

// Provisioner issues the group-membership call that follows an approval.
// Satisfied by the PingOne client.
type Provisioner interface {
	ProvisionGroupMembership(ctx context.Context, userID, groupID string) error
}

// ProvisioningError reports that a request was approved and moved to history
// but the downstream membership call failed. The status transition is NOT
// rolled back; the caller must be able to tell "request actioned but
// provisioning failed" from "request not actioned".
type ProvisioningError struct {
	Request core.AccessRequest
	Err     error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("request %s approved but provisioning failed: %v", e.Request.ID, e.Err)
}

func (e *ProvisioningError) Unwrap() error {
	return e.Err
}

// Store owns the active and history collections of access requests. A single
// mutex serializes all mutations, which guarantees that concurrent approve
// and deny calls targeting the same id resolve to exactly one terminal
// transition.
type Store struct {
	mu      sync.Mutex
	active  []core.AccessRequest
	history []core.AccessRequest

	provisioner Provisioner
	policies    *policy.Manager
	now         func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithPolicies enables auto-approval rule evaluation at creation time.
func WithPolicies(m *policy.Manager) Option {
	return func(s *Store) {
		s.policies = m
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func NewStore(provisioner Provisioner, opts ...Option) *Store {
	s := &Store{
		provisioner: provisioner,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create constructs a new Pending request and appends it to the active
// collection. There is no duplicate check; the enrollment workflow is
// expected to create at most one per user. When an auto-approval rule
// matches, the request is approved immediately and the applied rule name is
// returned.
func (s *Store) Create(ctx context.Context, userID, groupID string) (core.AccessRequest, string, error) {
	if userID == "" {
		return core.AccessRequest{}, "", core.ValidationError{Field: "userId"}
	}
	if groupID == "" {
		return core.AccessRequest{}, "", core.ValidationError{Field: "groupId"}
	}

	now := s.now()
	req := core.AccessRequest{
		ID:          uuid.NewString(),
		UserID:      userID,
		GroupID:     groupID,
		RequestedAt: now,
		ExpiresAt:   now.Add(core.RequestTTL),
		Status:      core.RequestPending,
	}
	return s.submit(ctx, req)
}

// Submit appends a pre-built Pending request, e.g. one carrying resolved
// names from the enrollment workflow.
func (s *Store) Submit(ctx context.Context, req core.AccessRequest) (core.AccessRequest, string, error) {
	if req.ID == "" {
		return core.AccessRequest{}, "", core.ValidationError{Field: "id"}
	}
	if req.Status != core.RequestPending {
		return core.AccessRequest{}, "", fmt.Errorf("request %s: %w: submitted with status %s", req.ID, core.ErrInvalidState, req.Status)
	}
	return s.submit(ctx, req)
}

func (s *Store) submit(ctx context.Context, req core.AccessRequest) (core.AccessRequest, string, error) {
	s.mu.Lock()
	s.active = append(s.active, req)
	s.mu.Unlock()

	log.Ctx(ctx).Info().
		Str("request_id", req.ID).
		Str("user_id", req.UserID).
		Str("group_id", req.GroupID).
		Msg("created access request")

	rule := s.matchAutoApprove(req)
	if rule == nil {
		return req, "", nil
	}

	log.Ctx(ctx).Info().
		Str("request_id", req.ID).
		Str("rule", rule.Name).
		Msg("auto-approving access request by policy")

	approved, err := s.Approve(ctx, req.ID)
	if err != nil {
		return approved, rule.Name, err
	}
	return approved, rule.Name, nil
}

func (s *Store) matchAutoApprove(req core.AccessRequest) *policy.Rule {
	if s.policies == nil {
		return nil
	}
	rule, err := s.policies.Engine().Evaluate(req)
	if err != nil || !rule.AutoApprove {
		return nil
	}
	return rule
}

// Approve marks the request Approved, moves it to history and provisions the
// requested membership. A provisioning failure after the move is reported as
// *ProvisioningError and the transition stays committed.
func (s *Store) Approve(ctx context.Context, requestID string) (core.AccessRequest, error) {
	req, err := s.finalize(requestID, core.RequestApproved)
	if err != nil {
		return core.AccessRequest{}, err
	}

	log.Ctx(ctx).Info().
		Str("request_id", req.ID).
		Str("user_id", req.UserID).
		Str("group_id", req.GroupID).
		Msg("approved access request")

	if err := s.provisioner.ProvisionGroupMembership(ctx, req.UserID, req.GroupID); err != nil {
		return req, &ProvisioningError{Request: req, Err: err}
	}
	return req, nil
}

// Deny marks the request Denied and moves it to history. No provisioning
// call is made.
func (s *Store) Deny(ctx context.Context, requestID string) (core.AccessRequest, error) {
	req, err := s.finalize(requestID, core.RequestDenied)
	if err != nil {
		return core.AccessRequest{}, err
	}

	log.Ctx(ctx).Info().
		Str("request_id", req.ID).
		Str("user_id", req.UserID).
		Str("group_id", req.GroupID).
		Msg("denied access request")

	return req, nil
}

// finalize performs the terminal transition under the store lock: lookup,
// status change, move to history, removal from active. After it returns, any
// second terminal call on the same id observes ErrNotFound.
func (s *Store) finalize(requestID string, status core.RequestStatus) (core.AccessRequest, error) {
	if requestID == "" {
		return core.AccessRequest{}, core.ValidationError{Field: "requestId"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, r := range s.active {
		if r.ID == requestID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return core.AccessRequest{}, fmt.Errorf("access request %s: %w", requestID, core.ErrNotFound)
	}

	req := s.active[idx]
	if req.UserID == "" || req.GroupID == "" {
		return core.AccessRequest{}, fmt.Errorf("access request %s: %w: missing user or group", requestID, core.ErrInvalidState)
	}

	req.Status = status
	s.history = append(s.history, req)
	s.active = append(s.active[:idx], s.active[idx+1:]...)
	return req, nil
}

// Active returns the pending requests in insertion order.
func (s *Store) Active() []core.AccessRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]core.AccessRequest, len(s.active))
	copy(out, s.active)
	return out
}

// History returns the finalized requests in the order they were finalized.
func (s *Store) History() []core.AccessRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]core.AccessRequest, len(s.history))
	copy(out, s.history)
	return out
}

// ExpiredPending returns active requests whose expiration timestamp has
// passed. They stay in the active collection; expiry is reported, not acted
// on, because the status set is closed.
func (s *Store) ExpiredPending() []core.AccessRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var out []core.AccessRequest
	for _, r := range s.active {
		if r.Expired(now) {
			out = append(out, r)
		}
	}
	return out
}
