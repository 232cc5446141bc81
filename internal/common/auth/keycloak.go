package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"accelerator-admin/internal/common/errors"
	httpclient "accelerator-admin/internal/common/http"
)

// KeycloakClient resolves access tokens through the realm's introspection
// endpoint.
type KeycloakClient struct {
	baseURL      string
	realm        string
	clientID     string
	clientSecret string
	httpClient   *httpclient.Client
}

// TokenInfo holds the fields of the introspection response we use.
type TokenInfo struct {
	Active      bool   `json:"active"`
	Sub         string `json:"sub,omitempty"`
	Email       string `json:"email,omitempty"`
	Username    string `json:"username,omitempty"`
	Exp         int64  `json:"exp,omitempty"`
	RealmAccess struct {
		Roles []string `json:"roles"`
	} `json:"realm_access"`
}

func NewKeycloakClient(baseURL, realm, clientID, clientSecret string, timeout time.Duration) *KeycloakClient {
	return &KeycloakClient{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		realm:        realm,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   httpclient.NewClient(timeout),
	}
}

// Resolve introspects token and maps an active token to an Actor.
func (k *KeycloakClient) Resolve(ctx context.Context, token string) (*Actor, error) {
	info, err := k.introspect(ctx, token)
	if err != nil {
		return nil, err
	}
	if !info.Active {
		return nil, errors.NewUnauthenticatedError("token is not active")
	}
	if info.Sub == "" {
		return nil, errors.NewUnauthenticatedError("token has no subject")
	}
	return &Actor{
		ID:    info.Sub,
		Email: info.Email,
		Roles: info.RealmAccess.Roles,
	}, nil
}

func (k *KeycloakClient) introspect(ctx context.Context, token string) (*TokenInfo, error) {
	endpoint := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token/introspect", k.baseURL, url.PathEscape(k.realm))

	form := url.Values{}
	form.Set("token", token)
	form.Set("token_type_hint", "access_token")
	form.Set("client_id", k.clientID)
	form.Set("client_secret", k.clientSecret)

	resp, err := k.httpClient.PostForm(ctx, endpoint, form)
	if err != nil {
		return nil, errors.NewUpstreamFailureError("keycloak", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("introspection returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		if httpclient.IsTransientStatus(resp.StatusCode) {
			return nil, errors.NewUpstreamFailureError("keycloak", err)
		}
		// A client misconfiguration rejects every token, not just this one.
		se := errors.NewUpstreamFailureError("keycloak", err)
		se.Retryable = false
		return nil, se
	}

	var info TokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, errors.NewUpstreamFailureError("keycloak", fmt.Errorf("decode introspection response: %w", err))
	}
	return &info, nil
}
