package pingone

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"

	"github.com/bobbylite/enrollhub/internal/core"
	"github.com/bobbylite/enrollhub/internal/httpx"
)

// newTestStack spins up a token endpoint plus an API server and returns a
// client wired against both.
func newTestStack(t *testing.T, api http.HandlerFunc) (*Client, *atomic.Int32) {
	t.Helper()

	var grants atomic.Int32
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parsing token form: %v", err)
		}
		if got := r.PostForm.Get("grant_type"); got != "client_credentials" {
			t.Errorf("grant_type = %q, want client_credentials", got)
		}
		if got := r.PostForm.Get("client_id"); got != "cid" {
			t.Errorf("client_id = %q, want cid", got)
		}
		if got := r.PostForm.Get("client_secret"); got != "csecret" {
			t.Errorf("client_secret = %q, want csecret", got)
		}
		grants.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "token_type": "Bearer"})
	}))
	t.Cleanup(tokenServer.Close)

	apiServer := httptest.NewServer(api)
	t.Cleanup(apiServer.Close)

	auth := NewAuthenticator(tokenServer.URL, "cid", "csecret")
	return NewClient(apiServer.URL, "env-1", auth, httpx.NewTokenCache()), &grants
}

func TestClient_Users(t *testing.T) {
	client, grants := newTestStack(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/environments/env-1/users" {
			t.Errorf("path = %q, want /environments/env-1/users", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q, want 'Bearer tok'", got)
		}
		_, _ = w.Write([]byte(`{"_embedded": {"users": [
			{"id": "u1", "username": "jdoe", "email": "jdoe@example.com", "enabled": true,
			 "name": {"given": "Jane", "family": "Doe"}}
		]}}`))
	})

	users, err := client.Users(context.Background())
	if err != nil {
		t.Fatalf("Users() error = %v", err)
	}

	want := []core.User{{
		ID:         "u1",
		Username:   "jdoe",
		Email:      "jdoe@example.com",
		GivenName:  "Jane",
		FamilyName: "Doe",
		Enabled:    true,
	}}
	if !reflect.DeepEqual(users, want) {
		t.Errorf("Users() = %+v, want %+v", users, want)
	}
	if got := grants.Load(); got != 1 {
		t.Errorf("grant count = %d, want 1", got)
	}
}

func TestClient_Groups(t *testing.T) {
	client, _ := newTestStack(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"_embedded": {"groups": [{"id": "g1", "name": "Engineering"}]}}`))
	})

	groups, err := client.Groups(context.Background())
	if err != nil {
		t.Fatalf("Groups() error = %v", err)
	}
	want := []core.Group{{ID: "g1", Name: "Engineering"}}
	if !reflect.DeepEqual(groups, want) {
		t.Errorf("Groups() = %+v, want %+v", groups, want)
	}
}

func TestClient_MemberOfGroups(t *testing.T) {
	client, _ := newTestStack(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/environments/env-1/users/u1/memberOfGroups" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"_embedded": {"groupMemberships": [{"id": "g1", "name": "Engineering"}]}}`))
	})

	groups, err := client.MemberOfGroups(context.Background(), "u1")
	if err != nil {
		t.Fatalf("MemberOfGroups() error = %v", err)
	}
	if len(groups) != 1 || groups[0].ID != "g1" {
		t.Errorf("MemberOfGroups() = %+v, want one group g1", groups)
	}
}

func TestClient_MemberOfGroups_EmptyUserID(t *testing.T) {
	client, _ := newTestStack(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request reached upstream despite validation failure")
	})

	_, err := client.MemberOfGroups(context.Background(), "")
	var validationErr core.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("MemberOfGroups() error = %v, want ValidationError", err)
	}
}

func TestClient_ProvisionGroupMembership(t *testing.T) {
	client, _ := newTestStack(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			t.Errorf("method = %q, want POST", r.Method)
		}
		if r.URL.Path != "/environments/env-1/users/u1/memberOfGroups" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decoding payload: %v", err)
		}
		if payload["id"] != "g1" {
			t.Errorf("payload id = %q, want g1", payload["id"])
		}
		w.WriteHeader(http.StatusCreated)
	})

	if err := client.ProvisionGroupMembership(context.Background(), "u1", "g1"); err != nil {
		t.Fatalf("ProvisionGroupMembership() error = %v", err)
	}
}

func TestClient_DeprovisionGroupMembership(t *testing.T) {
	client, _ := newTestStack(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "DELETE" {
			t.Errorf("method = %q, want DELETE", r.Method)
		}
		if r.URL.Path != "/environments/env-1/users/u1/memberOfGroups/g1" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	if err := client.DeprovisionGroupMembership(context.Background(), "u1", "g1"); err != nil {
		t.Fatalf("DeprovisionGroupMembership() error = %v", err)
	}
}

func TestClient_CreateUser(t *testing.T) {
	client, _ := newTestStack(t, func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decoding payload: %v", err)
		}
		if payload["email"] != "new@example.com" {
			t.Errorf("email = %v", payload["email"])
		}
		lifecycle, _ := payload["lifecycle"].(map[string]any)
		if lifecycle["status"] != "VERIFICATION_REQUIRED" {
			t.Errorf("lifecycle status = %v, want VERIFICATION_REQUIRED", lifecycle["status"])
		}
		_, _ = w.Write([]byte(`{"id": "u9", "username": "newbie", "email": "new@example.com",
			"name": {"given": "New", "family": "User"}}`))
	})

	user, err := client.CreateUser(context.Background(), core.NewIdentity{
		Email:      "new@example.com",
		Username:   "newbie",
		GivenName:  "New",
		FamilyName: "User",
		Password:   "hunter2!",
	})
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if user.ID != "u9" || user.GivenName != "New" {
		t.Errorf("CreateUser() = %+v", user)
	}
}

func TestClient_VerifyUser(t *testing.T) {
	client, _ := newTestStack(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/environments/env-1/users/u1" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var payload map[string]string
		_ = json.NewDecoder(r.Body).Decode(&payload)
		if payload["verificationCode"] != "123456" {
			t.Errorf("verificationCode = %q, want 123456", payload["verificationCode"])
		}
		w.WriteHeader(http.StatusOK)
	})

	if err := client.VerifyUser(context.Background(), "u1", "123456"); err != nil {
		t.Fatalf("VerifyUser() error = %v", err)
	}
}

func TestClient_UpstreamError(t *testing.T) {
	client, _ := newTestStack(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	})

	_, err := client.Users(context.Background())
	var upstreamErr *core.UpstreamError
	if !errors.As(err, &upstreamErr) {
		t.Fatalf("Users() error = %v, want UpstreamError", err)
	}
	if upstreamErr.Status != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", upstreamErr.Status)
	}
	if upstreamErr.Op != "pingone.users" {
		t.Errorf("op = %q, want pingone.users", upstreamErr.Op)
	}
}

func TestClient_RetryAfterTokenRejection(t *testing.T) {
	var requests atomic.Int32

	client, grants := newTestStack(t, func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"_embedded": {"groups": []}}`))
	})

	if _, err := client.Groups(context.Background()); err != nil {
		t.Fatalf("Groups() error = %v", err)
	}

	// one grant for the cold cache, one for the rejected request
	if got := grants.Load(); got != 2 {
		t.Errorf("grant count = %d, want 2", got)
	}
	if got := requests.Load(); got != 2 {
		t.Errorf("request count = %d, want 2", got)
	}
}

func TestAuthenticator_GrantFailure(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer tokenServer.Close()

	auth := NewAuthenticator(tokenServer.URL, "cid", "bad")
	_, err := auth.Authenticate(context.Background())

	var authErr *core.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("Authenticate() error = %v, want AuthError", err)
	}
}

func TestAuthenticator_EmptyToken(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"token_type": "Bearer"}`))
	}))
	defer tokenServer.Close()

	auth := NewAuthenticator(tokenServer.URL, "cid", "csecret")
	_, err := auth.Authenticate(context.Background())

	var authErr *core.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("Authenticate() error = %v, want AuthError", err)
	}
}
