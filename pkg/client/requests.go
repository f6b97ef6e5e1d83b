package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/bobbylite/enrollhub/internal/api"
	"github.com/bobbylite/enrollhub/internal/core"
)

// ListRequests retrieves the access requests still awaiting a decision.
func (c *Client) ListRequests(ctx context.Context) ([]core.AccessRequest, error) {
	var resp []core.AccessRequest
	_, err := c.get(ctx, c.url().
		setPath(api.ListRequestsRoute).
		build(), &resp)
	return resp, err
}

// RequestHistory retrieves the access requests that have been decided.
func (c *Client) RequestHistory(ctx context.Context) ([]core.AccessRequest, error) {
	var resp []core.AccessRequest
	_, err := c.get(ctx, c.url().
		setPath(api.RequestHistoryRoute).
		build(), &resp)
	return resp, err
}

// CreateRequest submits an access request for an existing user.
func (c *Client) CreateRequest(ctx context.Context, userID, groupID string) (*api.CreateResponse, error) {
	var resp api.CreateResponse
	_, err := c.post(ctx, c.url().
		setPath(api.CreateRequestRoute).
		build(), api.CreatePayload{
		UserID:  userID,
		GroupID: groupID,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ApproveRequest approves a pending access request.
// The returned response reports whether provisioning succeeded; an approval
// with failed provisioning is still committed.
func (c *Client) ApproveRequest(ctx context.Context, requestID string) (*api.ApproveResponse, error) {
	// we do this request manually because the server responds with a
	// regular payload even on provisioning failure (status 502), which the
	// helper methods would treat as an opaque error.
	req, err := http.NewRequestWithContext(ctx, "POST", c.url().
		setPath(api.ApproveRequestRoute).
		setPathParam("id", requestID).
		build(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connection failed: %w", err)
	}
	defer func(body io.ReadCloser) {
		_ = body.Close()
	}(resp.Body)

	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusBadGateway {
		return nil, parseErrorResponse(resp)
	}

	var result api.ApproveResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if result.Request.ID == "" {
		// a 502 without a committed approval is a plain upstream error
		return nil, fmt.Errorf("api error: approve failed with status %d", resp.StatusCode)
	}
	return &result, nil
}

// DenyRequest denies a pending access request.
func (c *Client) DenyRequest(ctx context.Context, requestID string) (*core.AccessRequest, error) {
	var resp core.AccessRequest
	_, err := c.post(ctx, c.url().
		setPath(api.DenyRequestRoute).
		setPathParam("id", requestID).
		build(), nil, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
