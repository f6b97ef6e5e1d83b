package enrollment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bobbylite/enrollhub/internal/core"
	"github.com/bobbylite/enrollhub/internal/requests"
)

type fakeDirectory struct {
	mu sync.Mutex

	groups []core.Group

	createdUsers []core.NewIdentity
	createErr    error
	createGate   func()

	verified   []string
	verifyErr  error
	verifyGate func()

	provisioned  []string
	provisionErr error
}

func (d *fakeDirectory) Users(context.Context) ([]core.User, error) { return nil, nil }

func (d *fakeDirectory) Groups(context.Context) ([]core.Group, error) { return d.groups, nil }

func (d *fakeDirectory) MemberOfGroups(context.Context, string) ([]core.Group, error) {
	return nil, nil
}

func (d *fakeDirectory) ProvisionGroupMembership(_ context.Context, userID, groupID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.provisionErr != nil {
		return d.provisionErr
	}
	d.provisioned = append(d.provisioned, userID+"/"+groupID)
	return nil
}

func (d *fakeDirectory) DeprovisionGroupMembership(context.Context, string, string) error {
	return nil
}

func (d *fakeDirectory) CreateUser(_ context.Context, identity core.NewIdentity) (*core.User, error) {
	if d.createGate != nil {
		d.createGate()
	}
	if d.createErr != nil {
		return nil, d.createErr
	}
	d.mu.Lock()
	d.createdUsers = append(d.createdUsers, identity)
	d.mu.Unlock()
	return &core.User{
		ID:         "user-" + identity.Username,
		Username:   identity.Username,
		Email:      identity.Email,
		GivenName:  identity.GivenName,
		FamilyName: identity.FamilyName,
	}, nil
}

func (d *fakeDirectory) VerifyUser(_ context.Context, userID, code string) error {
	if d.verifyGate != nil {
		d.verifyGate()
	}
	if d.verifyErr != nil {
		return d.verifyErr
	}
	d.mu.Lock()
	d.verified = append(d.verified, userID+"/"+code)
	d.mu.Unlock()
	return nil
}

type fakeMailer struct {
	sent []string
	html []string
	err  error
}

func (m *fakeMailer) Send(_ context.Context, to, _, html string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, to)
	m.html = append(m.html, html)
	return nil
}

type fakeArchive struct {
	appended []core.AccessRequest
	err      error
}

func (a *fakeArchive) Append(_ context.Context, req core.AccessRequest) error {
	if a.err != nil {
		return a.err
	}
	a.appended = append(a.appended, req)
	return nil
}

func (a *fakeArchive) List(context.Context) ([]core.AccessRequest, error) {
	return a.appended, nil
}

type testStack struct {
	directory *fakeDirectory
	mailer    *fakeMailer
	archive   *fakeArchive
	store     *requests.Store
	workflow  *Workflow
}

func newTestStack(cfg Config) *testStack {
	directory := &fakeDirectory{
		groups: []core.Group{
			{ID: "g1", Name: "Engineering"},
			{ID: "g2", Name: "Vendors"},
		},
	}
	mailer := &fakeMailer{}
	archive := &fakeArchive{}
	store := requests.NewStore(directory)
	if cfg.MagicLinkBaseURL == "" {
		cfg.MagicLinkBaseURL = "https://enroll.example.com"
	}
	if cfg.BirthrightGroupID == "" {
		cfg.BirthrightGroupID = "g-birthright"
	}
	return &testStack{
		directory: directory,
		mailer:    mailer,
		archive:   archive,
		store:     store,
		workflow:  NewWorkflow(directory, mailer, archive, store, nil, cfg),
	}
}

func (ts *testStack) begin(t *testing.T) core.EmailInvitation {
	t.Helper()
	inv, err := ts.workflow.Begin(context.Background(), "g1", "new@example.com")
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	return inv
}

func (ts *testStack) complete(t *testing.T, invitationID string) core.EnrolledIdentity {
	t.Helper()
	enrolled, err := ts.workflow.Complete(context.Background(), core.NewIdentity{
		InvitationID: invitationID,
		Email:        "new@example.com",
		Username:     "newbie",
		GivenName:    "New",
		FamilyName:   "Bee",
		Password:     "hunter2!",
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	return enrolled
}

func TestWorkflow_Begin(t *testing.T) {
	ts := newTestStack(Config{})

	inv := ts.begin(t)
	if inv.Status != core.InvitationSent {
		t.Errorf("Begin() status = %s, want %s", inv.Status, core.InvitationSent)
	}
	if len(ts.mailer.sent) != 1 || ts.mailer.sent[0] != "new@example.com" {
		t.Errorf("mailer sent to %v, want [new@example.com]", ts.mailer.sent)
	}
	if !strings.Contains(ts.mailer.html[0], "invitationId="+inv.ID) {
		t.Errorf("mail body %q does not carry the magic link", ts.mailer.html[0])
	}

	active := ts.workflow.ActiveInvitations()
	if len(active) != 1 || active[0].ID != inv.ID {
		t.Errorf("ActiveInvitations() = %v, want the sent invitation", active)
	}
}

func TestWorkflow_BeginValidation(t *testing.T) {
	tests := []struct {
		name    string
		groupID string
		email   string
	}{
		{name: "empty group", groupID: "", email: "a@example.com"},
		{name: "empty email", groupID: "g1", email: ""},
	}
	ts := newTestStack(Config{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ts.workflow.Begin(context.Background(), tt.groupID, tt.email)
			var vErr core.ValidationError
			if !errors.As(err, &vErr) {
				t.Errorf("Begin() error = %v, want ValidationError", err)
			}
		})
	}
}

func TestWorkflow_BeginMailFailure(t *testing.T) {
	ts := newTestStack(Config{})
	ts.mailer.err = fmt.Errorf("smtp relay down")

	// A delivery failure is reported in the invitation status, not as an
	// error, and the invitation is not retained.
	inv, err := ts.workflow.Begin(context.Background(), "g1", "new@example.com")
	if err != nil {
		t.Fatalf("Begin() error = %v, want nil on mail failure", err)
	}
	if inv.Status != core.InvitationFailed {
		t.Errorf("Begin() status = %s, want %s", inv.Status, core.InvitationFailed)
	}
	if got := ts.workflow.ActiveInvitations(); len(got) != 0 {
		t.Errorf("ActiveInvitations() = %v, want empty", got)
	}
}

func TestWorkflow_Complete(t *testing.T) {
	ts := newTestStack(Config{PopulationID: "pop-1"})
	inv := ts.begin(t)

	enrolled := ts.complete(t, inv.ID)
	if enrolled.User == nil || enrolled.User.Username != "newbie" {
		t.Fatalf("Complete() user = %v, want the created identity", enrolled.User)
	}
	if enrolled.GroupID != "g1" {
		t.Errorf("Complete() groupID = %s, want g1", enrolled.GroupID)
	}
	if got := ts.directory.createdUsers[0].PopulationID; got != "pop-1" {
		t.Errorf("CreateUser populationID = %s, want the configured default", got)
	}

	// The invitation is consumed; the same link cannot be completed twice.
	if got := ts.workflow.ActiveInvitations(); len(got) != 0 {
		t.Errorf("ActiveInvitations() = %v, want empty after completion", got)
	}
	_, err := ts.workflow.Complete(context.Background(), core.NewIdentity{InvitationID: inv.ID})
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("second Complete() error = %v, want ErrNotFound", err)
	}
}

func TestWorkflow_CompleteUnknownInvitation(t *testing.T) {
	ts := newTestStack(Config{})

	_, err := ts.workflow.Complete(context.Background(), core.NewIdentity{InvitationID: "nope"})
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Complete() error = %v, want ErrNotFound", err)
	}
}

func TestWorkflow_CompleteDirectoryFailureKeepsInvitation(t *testing.T) {
	ts := newTestStack(Config{})
	inv := ts.begin(t)
	ts.directory.createErr = fmt.Errorf("directory unavailable")

	if _, err := ts.workflow.Complete(context.Background(), core.NewIdentity{InvitationID: inv.ID}); err == nil {
		t.Fatal("Complete() error = nil, want directory failure")
	}
	// The invitation survives, so the enrollee can retry with the same link.
	if got := ts.workflow.ActiveInvitations(); len(got) != 1 {
		t.Errorf("ActiveInvitations() = %v, want the invitation retained", got)
	}
}

func TestWorkflow_CompleteConcurrentSameInvitation(t *testing.T) {
	ts := newTestStack(Config{})
	inv := ts.begin(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	ts.directory.createGate = func() {
		entered <- struct{}{}
		<-release
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := ts.workflow.Complete(context.Background(), core.NewIdentity{
			InvitationID: inv.ID,
			Username:     "newbie",
		})
		errCh <- err
	}()
	<-entered

	// While the first completion is still talking to the directory, the
	// same link must already be spent for everyone else.
	_, err := ts.workflow.Complete(context.Background(), core.NewIdentity{
		InvitationID: inv.ID,
		Username:     "imposter",
	})
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("overlapping Complete() error = %v, want ErrNotFound", err)
	}

	close(release)
	if err := <-errCh; err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got := len(ts.directory.createdUsers); got != 1 {
		t.Errorf("directory identities created = %d, want 1", got)
	}
}

func TestWorkflow_VerifyConcurrentSameInvitation(t *testing.T) {
	ts := newTestStack(Config{})
	inv := ts.begin(t)
	ts.complete(t, inv.ID)

	entered := make(chan struct{})
	release := make(chan struct{})
	ts.directory.verifyGate = func() {
		entered <- struct{}{}
		<-release
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := ts.workflow.Verify(context.Background(), inv.ID, "123456")
		errCh <- err
	}()
	<-entered

	_, err := ts.workflow.Verify(context.Background(), inv.ID, "123456")
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("overlapping Verify() error = %v, want ErrNotFound", err)
	}

	close(release)
	if err := <-errCh; err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if got := len(ts.archive.appended); got != 1 {
		t.Errorf("archived requests = %d, want 1", got)
	}
	if got := len(ts.store.Active()); got != 1 {
		t.Errorf("pending requests = %d, want 1", got)
	}
}

func TestWorkflow_Verify(t *testing.T) {
	ts := newTestStack(Config{})
	inv := ts.begin(t)
	enrolled := ts.complete(t, inv.ID)

	req, err := ts.workflow.Verify(context.Background(), inv.ID, "123456")
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}

	if req.Status != core.RequestPending {
		t.Errorf("Verify() request status = %s, want %s", req.Status, core.RequestPending)
	}
	if req.UserID != enrolled.User.ID {
		t.Errorf("Verify() request userID = %s, want %s", req.UserID, enrolled.User.ID)
	}
	if req.GroupName != "Engineering" {
		t.Errorf("Verify() request groupName = %s, want the resolved name", req.GroupName)
	}
	if req.FirstName != "New" || req.LastName != "Bee" {
		t.Errorf("Verify() names = %s %s, want New Bee", req.FirstName, req.LastName)
	}

	if len(ts.directory.verified) != 1 {
		t.Errorf("VerifyUser called %d times, want 1", len(ts.directory.verified))
	}
	want := enrolled.User.ID + "/g-birthright"
	if len(ts.directory.provisioned) != 1 || ts.directory.provisioned[0] != want {
		t.Errorf("provisioned = %v, want [%s]", ts.directory.provisioned, want)
	}
	if len(ts.archive.appended) != 1 || ts.archive.appended[0].ID != req.ID {
		t.Errorf("archive = %v, want the submitted request", ts.archive.appended)
	}
	if active := ts.store.Active(); len(active) != 1 || active[0].ID != req.ID {
		t.Errorf("store.Active() = %v, want the queued request", active)
	}

	// The transient identity is gone; verifying again fails.
	if _, err := ts.workflow.Verify(context.Background(), inv.ID, "123456"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("second Verify() error = %v, want ErrNotFound", err)
	}
}

func TestWorkflow_VerifyFailures(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(ts *testStack)
	}{
		{
			name:    "code rejected",
			prepare: func(ts *testStack) { ts.directory.verifyErr = fmt.Errorf("bad code") },
		},
		{
			name:    "birthright provisioning fails",
			prepare: func(ts *testStack) { ts.directory.provisionErr = fmt.Errorf("quota") },
		},
		{
			name:    "archive append fails",
			prepare: func(ts *testStack) { ts.archive.err = fmt.Errorf("disk full") },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestStack(Config{})
			inv := ts.begin(t)
			ts.complete(t, inv.ID)
			tt.prepare(ts)

			if _, err := ts.workflow.Verify(context.Background(), inv.ID, "123456"); err == nil {
				t.Fatal("Verify() error = nil, want failure")
			}
			if got := ts.store.Active(); len(got) != 0 {
				t.Errorf("store.Active() = %v, want no queued request", got)
			}
			// The identity is retained so verification can be retried.
			ts.directory.verifyErr = nil
			ts.directory.provisionErr = nil
			ts.archive.err = nil
			if _, err := ts.workflow.Verify(context.Background(), inv.ID, "123456"); err != nil {
				t.Errorf("retried Verify() error = %v", err)
			}
		})
	}
}

func TestWorkflow_SweepExpiredInvitations(t *testing.T) {
	ts := newTestStack(Config{InvitationTTL: time.Hour})

	old := ts.begin(t)
	fresh := ts.begin(t)

	// Age the first invitation past the TTL.
	ts.workflow.mu.Lock()
	inv := ts.workflow.invitations[old.ID]
	inv.CreatedAt = time.Now().Add(-2 * time.Hour)
	ts.workflow.invitations[old.ID] = inv
	ts.workflow.mu.Unlock()

	if removed := ts.workflow.SweepExpiredInvitations(); removed != 1 {
		t.Errorf("SweepExpiredInvitations() = %d, want 1", removed)
	}
	active := ts.workflow.ActiveInvitations()
	if len(active) != 1 || active[0].ID != fresh.ID {
		t.Errorf("ActiveInvitations() = %v, want only the fresh invitation", active)
	}
}

func TestWorkflow_SweepDisabledWithoutTTL(t *testing.T) {
	ts := newTestStack(Config{})
	ts.begin(t)

	if removed := ts.workflow.SweepExpiredInvitations(); removed != 0 {
		t.Errorf("SweepExpiredInvitations() = %d, want 0 when no TTL is set", removed)
	}
}
