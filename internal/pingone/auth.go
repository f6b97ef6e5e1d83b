package pingone

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/bobbylite/enrollhub/internal/core"
)

// Authenticator performs the client-credentials grant against the PingOne
// token endpoint. Every successful grant overwrites the shared token cache
// through BearerRetryTransport.
type Authenticator struct {
	tokenEndpoint string
	clientID      string
	clientSecret  string

	// httpClient deliberately has no auth transport; the token endpoint
	// authenticates via the form body, not a bearer header.
	httpClient *http.Client
}

func NewAuthenticator(tokenEndpoint, clientID, clientSecret string) *Authenticator {
	return &Authenticator{
		tokenEndpoint: tokenEndpoint,
		clientID:      clientID,
		clientSecret:  clientSecret,
		httpClient:    http.DefaultClient,
	}
}

// Authenticate exchanges the configured client id/secret for a bearer token.
// All failure modes are reported as core.AuthError.
func (a *Authenticator) Authenticate(ctx context.Context) (string, error) {
	log.Ctx(ctx).Debug().Msg("authenticating against token endpoint")

	form := url.Values{}
	form.Set("client_id", a.clientID)
	form.Set("client_secret", a.clientSecret)
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, "POST", a.tokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", &core.AuthError{Wrapped: fmt.Errorf("creating token request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", &core.AuthError{Wrapped: fmt.Errorf("performing token request: %w", err)}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &core.AuthError{
			Wrapped: fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, string(body)),
		}
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", &core.AuthError{Wrapped: fmt.Errorf("decoding token response: %w", err)}
	}
	if token.AccessToken == "" {
		return "", &core.AuthError{Wrapped: fmt.Errorf("token response contained no access token")}
	}

	return token.AccessToken, nil
}
