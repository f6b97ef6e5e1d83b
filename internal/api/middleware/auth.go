package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
)

const adminRole = "admin"

// TokenVerifier checks the session token of an admin API caller.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) error
}

// AdminAuth is a middleware that rejects requests without a valid admin
// session token.
// TODO(future): replace the single admin role check with per-route RBAC.
func AdminAuth(verifier TokenVerifier) func(handler http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			tokenStr := strings.TrimPrefix(auth, "Bearer ")

			if tokenStr == "" {
				unauthorized(w, r, "login required")
				return
			}

			if err := verifier.Verify(r.Context(), tokenStr); err != nil {
				unauthorized(w, r, "invalid session token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":          msg,
		"correlation_id": CorrelationID(r.Context()),
	})
}

// HMACVerifier validates admin tokens signed with a shared HMAC key.
// The token must carry the "admin" role in its "roles" claim.
type HMACVerifier struct {
	signingKey []byte
}

func NewHMACVerifier(signingKey []byte) *HMACVerifier {
	return &HMACVerifier{signingKey: signingKey}
}

func (v *HMACVerifier) Verify(_ context.Context, tokenStr string) error {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return v.signingKey, nil
	})
	if err != nil || !token.Valid {
		return fmt.Errorf("parsing session token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return fmt.Errorf("invalid claims")
	}

	roles, ok := claims["roles"].([]any)
	if !ok {
		return fmt.Errorf("invalid claims")
	}

	for _, roleAny := range roles {
		roleStr, ok := roleAny.(string)
		if !ok {
			continue
		}
		if roleStr == adminRole {
			return nil
		}
	}
	return fmt.Errorf("insufficient privileges")
}

// OIDCVerifier validates admin tokens against an OIDC issuer. The ID token
// must carry the "admin" role in its "roles" claim.
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

func NewOIDCVerifier(ctx context.Context, issuerURL, clientID string) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("creating oidc provider: %w", err)
	}
	return &OIDCVerifier{
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

func (v *OIDCVerifier) Verify(ctx context.Context, tokenStr string) error {
	idToken, err := v.verifier.Verify(ctx, tokenStr)
	if err != nil {
		return fmt.Errorf("oidc verification failed: %w", err)
	}

	var claims struct {
		Roles []string `json:"roles"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return fmt.Errorf("extracting oidc claims: %w", err)
	}

	for _, role := range claims.Roles {
		if role == adminRole {
			return nil
		}
	}
	return fmt.Errorf("insufficient privileges")
}
