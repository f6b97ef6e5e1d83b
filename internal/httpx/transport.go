package httpx

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
)

// RefreshFunc performs an authentication call against the token endpoint and
// returns a fresh bearer token.
type RefreshFunc func(ctx context.Context) (string, error)

// BearerRetryTransport is an http.RoundTripper that injects the cached bearer
// token into outgoing requests and retries exactly once after forcing a
// refresh when the response looks like an authentication failure.
//
// The retry policy is parameterized by IsAuthFailure so it can be tested
// independently of any particular upstream.
type BearerRetryTransport struct {
	// Base is the underlying transport. http.DefaultTransport when nil.
	Base http.RoundTripper

	// Cache is the shared token cache. Reads are not atomic with respect to
	// concurrent refreshes; a caller may pick up a token that a concurrent
	// refresh just invalidated, which the single retry tolerates.
	Cache *TokenCache

	// Refresh performs the client-credentials grant and returns a new token.
	Refresh RefreshFunc

	// IsAuthFailure decides whether a response warrants the one-shot
	// refresh-and-retry. Defaults to 401/403.
	IsAuthFailure func(*http.Response) bool
}

func (t *BearerRetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token := t.Cache.Read()
	if token == "" {
		// never authenticated before, so a grant failure here aborts the call
		fresh, err := t.Refresh(req.Context())
		if err != nil {
			return nil, err
		}
		t.Cache.Write(fresh)
		token = fresh
	}

	resp, err := t.send(req, token)
	if err != nil {
		return nil, err
	}
	if !t.isAuthFailure(resp) {
		return resp, nil
	}
	_ = resp.Body.Close()

	log.Ctx(req.Context()).Debug().
		Int("status", resp.StatusCode).
		Str("url", req.URL.Path).
		Msg("auth failure from upstream, refreshing token and retrying once")

	fresh, err := t.Refresh(req.Context())
	if err != nil {
		return nil, fmt.Errorf("re-authentication after rejected request: %w", err)
	}
	t.Cache.Write(fresh)

	// a single retry, whatever comes back is the final answer
	return t.send(req, fresh)
}

func (t *BearerRetryTransport) send(req *http.Request, token string) (*http.Response, error) {
	clone, err := cloneRequest(req)
	if err != nil {
		return nil, err
	}
	clone.Header.Set("Authorization", "Bearer "+token)
	return t.base().RoundTrip(clone)
}

func (t *BearerRetryTransport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *BearerRetryTransport) isAuthFailure(resp *http.Response) bool {
	if t.IsAuthFailure != nil {
		return t.IsAuthFailure(resp)
	}
	return resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden
}

// BasicAuthTransport injects a static Basic-auth credential and retries the
// request once on 400/401/403. There is no token to refresh; the retry covers
// transient rejections from the email provider.
type BasicAuthTransport struct {
	Base http.RoundTripper

	Username string
	Password string
}

func (t *BasicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.send(req)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		_ = resp.Body.Close()
		log.Ctx(req.Context()).Debug().
			Int("status", resp.StatusCode).
			Msg("request rejected, retrying once")
		return t.send(req)
	}
	return resp, nil
}

func (t *BasicAuthTransport) send(req *http.Request) (*http.Response, error) {
	clone, err := cloneRequest(req)
	if err != nil {
		return nil, err
	}
	credential := base64.StdEncoding.EncodeToString([]byte(t.Username + ":" + t.Password))
	clone.Header.Set("Authorization", "Basic "+credential)
	clone.Header.Set("Accept", "application/json")

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(clone)
}

// cloneRequest returns a copy of req safe to send again. The body is rebuilt
// from GetBody, which is set automatically for buffered request bodies.
func cloneRequest(req *http.Request) (*http.Request, error) {
	clone := req.Clone(req.Context())
	if req.Body == nil || req.GetBody == nil {
		return clone, nil
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("rebuilding request body: %w", err)
	}
	clone.Body = body
	return clone, nil
}
