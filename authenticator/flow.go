package authenticator

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"golang.org/x/oauth2"

	"github.com/blogem/oauth-login/logging"
	"github.com/blogem/oauth-login/models"
	"github.com/blogem/oauth-login/repositories"
)

const (
	DefaultStateTTL        = 10 * time.Minute
	DefaultExchangeTimeout = 10 * time.Second

	// 32 bytes gives 256 bits of entropy, 43 base64url characters
	stateTokenBytes = 32

	maxProviderErrorLen = 512
	redacted            = "[REDACTED]"
)

// Clock returns the current time
type Clock func() time.Time

// AuthorizationCodeFlow runs the three steps of the OAuth 2.0 authorization
// code grant: build the authorization URL, validate the callback, and
// exchange the code for a Credential.
type AuthorizationCodeFlow struct {
	config          ClientConfig
	oauth           *oauth2.Config
	states          repositories.FlowStateRepository
	clock           Clock
	httpClient      *http.Client
	stateTTL        time.Duration
	exchangeTimeout time.Duration
	authURLParams   []oauth2.AuthCodeOption
}

// Option configures an AuthorizationCodeFlow
type Option func(*AuthorizationCodeFlow)

// WithClock replaces the wall clock, mainly for tests
func WithClock(clock Clock) Option {
	return func(f *AuthorizationCodeFlow) { f.clock = clock }
}

// WithHTTPClient sets the client used for the token exchange
func WithHTTPClient(client *http.Client) Option {
	return func(f *AuthorizationCodeFlow) { f.httpClient = client }
}

// WithStateTTL sets how long an issued state may wait for its callback
func WithStateTTL(ttl time.Duration) Option {
	return func(f *AuthorizationCodeFlow) {
		if ttl > 0 {
			f.stateTTL = ttl
		}
	}
}

// WithExchangeTimeout bounds the token endpoint call
func WithExchangeTimeout(timeout time.Duration) Option {
	return func(f *AuthorizationCodeFlow) {
		if timeout > 0 {
			f.exchangeTimeout = timeout
		}
	}
}

// WithAuthURLParams appends provider specific parameters to the authorization URL
func WithAuthURLParams(opts ...oauth2.AuthCodeOption) Option {
	return func(f *AuthorizationCodeFlow) { f.authURLParams = append(f.authURLParams, opts...) }
}

// OfflineAccess asks Google for a refresh token and forces the consent screen
func OfflineAccess() []oauth2.AuthCodeOption {
	return []oauth2.AuthCodeOption{
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	}
}

// NewAuthorizationCodeFlow creates a flow for the given client backed by states
func NewAuthorizationCodeFlow(cfg ClientConfig, states repositories.FlowStateRepository, opts ...Option) (*AuthorizationCodeFlow, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if states == nil {
		return nil, errors.New("flow state repository is required")
	}

	cfg.Scopes = cfg.normalizedScopes()

	f := &AuthorizationCodeFlow{
		config: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthorizationEndpoint,
				TokenURL: cfg.TokenEndpoint,
				// Credentials go in the form body. Auto-detect would retry the
				// exchange with another auth style, replaying the code.
				AuthStyle: oauth2.AuthStyleInParams,
			},
			Scopes: cfg.Scopes,
		},
		states:          states,
		clock:           time.Now,
		httpClient:      http.DefaultClient,
		stateTTL:        DefaultStateTTL,
		exchangeTimeout: DefaultExchangeTimeout,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

// BeginLogin issues a fresh state and returns the URL to send the browser to.
// It never touches the network.
func (f *AuthorizationCodeFlow) BeginLogin(ctx context.Context) (*LoginRequest, error) {
	token, err := generateStateToken()
	if err != nil {
		return nil, err
	}

	now := f.clock()
	state := &models.FlowState{
		ID:         ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		StateToken: token,
		Phase:      models.PhaseIssued,
		CreatedAt:  now,
		ExpiresAt:  now.Add(f.stateTTL),
	}

	authURL := f.oauth.AuthCodeURL(token, f.authURLParams...)

	state.Phase = models.PhaseAwaitingCallback
	if err := f.states.Create(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to record flow state: %w", err)
	}

	logging.FromContext(ctx).Debug("login attempt issued",
		"attempt_id", state.ID,
		"expires_at", state.ExpiresAt,
	)

	return &LoginRequest{
		AuthURL:   authURL,
		State:     token,
		AttemptID: state.ID,
		ExpiresAt: state.ExpiresAt,
	}, nil
}

// HandleCallback validates the redirect and, when the user granted access,
// exchanges the code. The state is consumed before anything else so that a
// replayed callback fails even if this one is still in flight.
func (f *AuthorizationCodeFlow) HandleCallback(ctx context.Context, cb Callback) (*Credential, error) {
	log := logging.FromContext(ctx)

	if cb.State == "" {
		log.Warn("rejected callback without state")
		return nil, &FlowError{Kind: KindInvalidState, Reason: "missing state parameter"}
	}

	now := f.clock()
	state, err := f.states.Consume(ctx, cb.State, now)
	if errors.Is(err, repositories.ErrStateNotFound) {
		log.Warn("rejected callback with unknown or reused state, possible CSRF")
		return nil, &FlowError{Kind: KindInvalidState, Reason: "unknown or already used state"}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to consume flow state: %w", err)
	}

	log = log.With("attempt_id", state.ID)

	if state.IsExpired(now) {
		f.finish(ctx, state.ID, models.PhaseFailed)
		log.Warn("rejected callback with expired state", "expired_at", state.ExpiresAt)
		return nil, &FlowError{Kind: KindInvalidState, AttemptID: state.ID, Reason: "state expired"}
	}

	cred, err := f.redeem(ctx, state.ID, cb)
	if err != nil {
		f.finish(ctx, state.ID, models.PhaseFailed)
		log.Info("login attempt failed", "error", err)
		return nil, err
	}

	f.finish(ctx, state.ID, models.PhaseCompleted)
	log.Info("login attempt completed", "token_type", cred.TokenType, "expires_at", cred.ExpiresAt)
	return cred, nil
}

// redeem handles the provider outcome for an already consumed state
func (f *AuthorizationCodeFlow) redeem(ctx context.Context, attemptID string, cb Callback) (*Credential, error) {
	if cb.Error != "" {
		reason := cb.Error
		if cb.ErrorDescription != "" {
			reason += ": " + cb.ErrorDescription
		}
		return nil, &FlowError{Kind: KindAuthorizationDenied, AttemptID: attemptID, Reason: reason}
	}

	if cb.Code == "" {
		return nil, &FlowError{
			Kind:      KindAuthorizationDenied,
			AttemptID: attemptID,
			Reason:    "invalid_request: authorization code missing",
		}
	}

	cred, err := f.exchangeCode(ctx, cb.Code)
	if err != nil {
		var flowErr *FlowError
		if errors.As(err, &flowErr) {
			flowErr.AttemptID = attemptID
		}
		return nil, err
	}

	cred.AttemptID = attemptID
	return cred, nil
}

// exchangeCode makes exactly one POST to the token endpoint. It is never
// retried: the provider rejects a replayed authorization code.
func (f *AuthorizationCodeFlow) exchangeCode(ctx context.Context, code string) (*Credential, error) {
	ctx, cancel := context.WithTimeout(ctx, f.exchangeTimeout)
	defer cancel()

	ctx = context.WithValue(ctx, oauth2.HTTPClient, f.httpClient)

	token, err := f.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, f.mapExchangeError(ctx, err)
	}

	expiresAt := token.Expiry
	if seconds := expiresIn(token); seconds > 0 {
		expiresAt = f.clock().Add(time.Duration(seconds) * time.Second)
	}

	cred := &Credential{
		AccessToken:  token.AccessToken,
		TokenType:    token.Type(),
		ExpiresAt:    expiresAt,
		RefreshToken: token.RefreshToken,
	}
	if idToken, ok := token.Extra("id_token").(string); ok {
		cred.IDToken = idToken
	}
	if scope, ok := token.Extra("scope").(string); ok {
		cred.Scope = scope
	}

	return cred, nil
}

// mapExchangeError turns an Exchange failure into a FlowError. ctx is the
// exchange context: x/oauth2 does not always wrap a deadline hit while the
// body is read.
func (f *AuthorizationCodeFlow) mapExchangeError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || isTimeout(err) {
		return &FlowError{
			Kind:    KindTokenExchangeTimeout,
			Timeout: f.exchangeTimeout,
			Err:     context.DeadlineExceeded,
		}
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		status := 0
		if retrieveErr.Response != nil {
			status = retrieveErr.Response.StatusCode
		}
		return &FlowError{
			Kind:          KindTokenExchangeFailed,
			Status:        status,
			ProviderError: f.providerError(providerErrorText(retrieveErr)),
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &FlowError{
			Kind:   KindTokenExchangeFailed,
			Reason: "token endpoint unreachable",
			Err:    errors.New(f.redact(urlErr.Err.Error())),
		}
	}

	// The endpoint answered 2xx but the body was unusable, e.g. no access_token
	return &FlowError{
		Kind:          KindTokenExchangeFailed,
		Status:        http.StatusOK,
		ProviderError: f.providerError(strings.TrimPrefix(err.Error(), "oauth2: ")),
	}
}

// providerError redacts before truncating so a cut never splits the secret
func (f *AuthorizationCodeFlow) providerError(s string) string {
	return truncate(f.redact(strings.TrimSpace(s)), maxProviderErrorLen)
}

func (f *AuthorizationCodeFlow) redact(s string) string {
	if f.config.ClientSecret == "" {
		return s
	}
	return strings.ReplaceAll(s, f.config.ClientSecret, redacted)
}

// finish records the terminal phase. The outcome is already decided, so
// failures are logged rather than returned.
func (f *AuthorizationCodeFlow) finish(ctx context.Context, attemptID string, phase models.FlowPhase) {
	ctx = context.WithoutCancel(ctx)
	if err := f.states.Finish(ctx, attemptID, phase, f.clock()); err != nil {
		logging.FromContext(ctx).Error("failed to record login attempt outcome",
			"attempt_id", attemptID,
			"phase", phase,
			"error", err,
		)
	}
}

func providerErrorText(err *oauth2.RetrieveError) string {
	if err.ErrorCode != "" {
		if err.ErrorDescription != "" {
			return err.ErrorCode + ": " + err.ErrorDescription
		}
		return err.ErrorCode
	}

	return string(err.Body)
}

// truncate cuts s to at most n bytes on a rune boundary
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// expiresIn reads the token lifetime in seconds. x/oauth2 only fills
// ExpiresIn for JSON responses; form encoded ones keep it in Extra.
func expiresIn(token *oauth2.Token) int64 {
	if token.ExpiresIn > 0 {
		return token.ExpiresIn
	}
	switch v := token.Extra("expires_in").(type) {
	case string:
		seconds, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err == nil {
			return seconds
		}
	case float64:
		return int64(v)
	}
	return 0
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// generateStateToken returns an unguessable, URL-safe state value
func generateStateToken() (string, error) {
	buf := make([]byte, stateTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate state token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
