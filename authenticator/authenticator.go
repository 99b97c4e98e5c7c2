package authenticator

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Google endpoints used when the host does not override them
const (
	GoogleAuthorizationEndpoint = "https://accounts.google.com/o/oauth2/v2/auth"
	GoogleTokenEndpoint         = "https://oauth2.googleapis.com/token"
	GoogleIssuer                = "https://accounts.google.com"
)

// ClientConfig holds the registered OAuth client. It is built once by the host
// and never mutated afterwards.
type ClientConfig struct {
	ClientID              string
	ClientSecret          string
	RedirectURI           string
	AuthorizationEndpoint string
	TokenEndpoint         string
	Scopes                []string
}

// Validate checks that every required field is present and well formed
func (c ClientConfig) Validate() error {
	if c.ClientID == "" {
		return errors.New("client ID is required")
	}
	if c.ClientSecret == "" {
		return errors.New("client secret is required")
	}
	if c.RedirectURI == "" {
		return errors.New("redirect URI is required")
	}

	endpoints := []struct {
		name  string
		value string
	}{
		{"redirect URI", c.RedirectURI},
		{"authorization endpoint", c.AuthorizationEndpoint},
		{"token endpoint", c.TokenEndpoint},
	}
	for _, endpoint := range endpoints {
		u, err := url.Parse(endpoint.value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", endpoint.name, err)
		}
		if !u.IsAbs() || u.Host == "" {
			return fmt.Errorf("%s must be an absolute URL", endpoint.name)
		}
	}

	return nil
}

// normalizedScopes trims and de-duplicates scopes while keeping their order
func (c ClientConfig) normalizedScopes() []string {
	seen := make(map[string]struct{}, len(c.Scopes))
	scopes := make([]string, 0, len(c.Scopes))
	for _, scope := range c.Scopes {
		scope = strings.TrimSpace(scope)
		if scope == "" {
			continue
		}
		if _, ok := seen[scope]; ok {
			continue
		}
		seen[scope] = struct{}{}
		scopes = append(scopes, scope)
	}
	return scopes
}

// LoginRequest is what BeginLogin hands back to the host
type LoginRequest struct {
	AuthURL   string
	State     string
	AttemptID string
	ExpiresAt time.Time
}

// Callback holds the query parameters the provider redirected back with
type Callback struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// CallbackFromQuery extracts a Callback from the redirect query string
func CallbackFromQuery(q url.Values) Callback {
	return Callback{
		Code:             q.Get("code"),
		State:            q.Get("state"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	}
}

// Credential is the result of a successful code exchange. The caller owns it;
// the flow never stores it.
type Credential struct {
	AttemptID    string
	AccessToken  string
	TokenType    string
	ExpiresAt    time.Time
	RefreshToken string
	IDToken      string
	Scope        string
}

// String hides token material so credentials can be logged safely
func (c *Credential) String() string {
	return fmt.Sprintf("Credential{attempt=%s type=%s expires_at=%s refresh=%t id_token=%t}",
		c.AttemptID, c.TokenType, c.ExpiresAt.Format(time.RFC3339), c.RefreshToken != "", c.IDToken != "")
}
