package pingone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/bobbylite/enrollhub/internal/core"
	"github.com/bobbylite/enrollhub/internal/httpx"
)

var _ core.Directory = (*Client)(nil)

// Client talks to the PingOne management API. All requests go through a
// BearerRetryTransport sharing one token cache, so concurrent callers reuse
// the same token and a rejected request triggers exactly one refresh and one
// retry.
type Client struct {
	baseURL       string
	environmentID string
	httpClient    *http.Client
}

func NewClient(baseURL, environmentID string, auth *Authenticator, cache *httpx.TokenCache) *Client {
	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		environmentID: environmentID,
		httpClient: &http.Client{
			Transport: &httpx.BearerRetryTransport{
				Cache:   cache,
				Refresh: auth.Authenticate,
			},
		},
	}
}

func (c *Client) Users(ctx context.Context) ([]core.User, error) {
	var env envelope
	if err := c.get(ctx, "pingone.users", c.environmentPath("users"), &env); err != nil {
		return nil, err
	}

	users := make([]core.User, 0, len(env.Embedded.Users))
	for _, u := range env.Embedded.Users {
		users = append(users, toUser(u))
	}
	return users, nil
}

func (c *Client) Groups(ctx context.Context) ([]core.Group, error) {
	var env envelope
	if err := c.get(ctx, "pingone.groups", c.environmentPath("groups"), &env); err != nil {
		return nil, err
	}

	groups := make([]core.Group, 0, len(env.Embedded.Groups))
	for _, g := range env.Embedded.Groups {
		groups = append(groups, core.Group{ID: g.ID, Name: g.Name})
	}
	return groups, nil
}

func (c *Client) MemberOfGroups(ctx context.Context, userID string) ([]core.Group, error) {
	if userID == "" {
		return nil, core.ValidationError{Field: "userId"}
	}

	var env envelope
	path := c.environmentPath("users/" + userID + "/memberOfGroups")
	if err := c.get(ctx, "pingone.memberships", path, &env); err != nil {
		return nil, err
	}

	groups := make([]core.Group, 0, len(env.Embedded.GroupMemberships))
	for _, g := range env.Embedded.GroupMemberships {
		groups = append(groups, core.Group{ID: g.ID, Name: g.Name})
	}
	return groups, nil
}

func (c *Client) ProvisionGroupMembership(ctx context.Context, userID, groupID string) error {
	if userID == "" {
		return core.ValidationError{Field: "userId"}
	}
	if groupID == "" {
		return core.ValidationError{Field: "groupId"}
	}

	log.Ctx(ctx).Info().
		Str("user_id", userID).
		Str("group_id", groupID).
		Msg("provisioning group membership")

	path := c.environmentPath("users/" + userID + "/memberOfGroups")
	return c.send(ctx, "pingone.provision", "POST", path, provisionMembershipRequest{ID: groupID}, nil)
}

func (c *Client) DeprovisionGroupMembership(ctx context.Context, userID, groupID string) error {
	if userID == "" {
		return core.ValidationError{Field: "userId"}
	}
	if groupID == "" {
		return core.ValidationError{Field: "groupId"}
	}

	log.Ctx(ctx).Info().
		Str("user_id", userID).
		Str("group_id", groupID).
		Msg("deprovisioning group membership")

	path := c.environmentPath("users/" + userID + "/memberOfGroups/" + groupID)
	return c.send(ctx, "pingone.deprovision", "DELETE", path, nil, nil)
}

func (c *Client) CreateUser(ctx context.Context, identity core.NewIdentity) (*core.User, error) {
	if identity.Email == "" {
		return nil, core.ValidationError{Field: "email"}
	}
	if identity.Username == "" {
		return nil, core.ValidationError{Field: "username"}
	}

	payload := createUserRequest{
		Email:    identity.Email,
		Username: identity.Username,
		Name: apiUserName{
			Given:  identity.GivenName,
			Family: identity.FamilyName,
		},
	}
	if identity.PopulationID != "" {
		payload.Population = &apiPopulation{ID: identity.PopulationID}
	}
	if identity.Password != "" {
		payload.Password = &apiPassword{Value: identity.Password, ForceChange: false}
		payload.Lifecycle = &apiLifecycle{Status: "VERIFICATION_REQUIRED"}
	}

	var created apiUser
	if err := c.send(ctx, "pingone.create_user", "POST", c.environmentPath("users"), payload, &created); err != nil {
		return nil, err
	}

	user := toUser(created)
	return &user, nil
}

func (c *Client) VerifyUser(ctx context.Context, userID, verificationCode string) error {
	if userID == "" {
		return core.ValidationError{Field: "userId"}
	}
	if verificationCode == "" {
		return core.ValidationError{Field: "verificationCode"}
	}

	path := c.environmentPath("users/" + userID)
	return c.send(ctx, "pingone.verify_user", "POST", path, verifyUserRequest{VerificationCode: verificationCode}, nil)
}

func (c *Client) environmentPath(suffix string) string {
	return fmt.Sprintf("%s/environments/%s/%s", c.baseURL, c.environmentID, suffix)
}

func (c *Client) get(ctx context.Context, op, url string, result any) error {
	return c.send(ctx, op, "GET", url, nil, result)
}

func (c *Client) send(ctx context.Context, op, method, url string, payload, result any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("%s: marshalling payload: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("%s: creating request: %w", op, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: performing request: %w", op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &core.UpstreamError{Op: op, Status: resp.StatusCode, Body: string(raw)}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			// an unparsable body from a 2xx is still an upstream failure
			return &core.UpstreamError{Op: op, Status: resp.StatusCode, Body: "unparsable response body: " + err.Error()}
		}
	}
	return nil
}

func toUser(u apiUser) core.User {
	return core.User{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		GivenName:  u.Name.Given,
		FamilyName: u.Name.Family,
		Enabled:    u.Enabled,
	}
}
