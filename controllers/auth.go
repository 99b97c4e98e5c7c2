package controllers

import (
	"context"
	"errors"
	"net/http"

	"gitea.com/go-chi/session"

	"github.com/blogem/oauth-login/authenticator"
	"github.com/blogem/oauth-login/logging"
	"github.com/blogem/oauth-login/middleware"
	"github.com/blogem/oauth-login/services"
	"github.com/blogem/oauth-login/userctx"
)

// LoginFlow is the part of the authorization code flow the controllers drive
type LoginFlow interface {
	BeginLogin(ctx context.Context) (*authenticator.LoginRequest, error)
	HandleCallback(ctx context.Context, cb authenticator.Callback) (*authenticator.Credential, error)
}

// AuthController handles sign in, the OAuth callback and sign out
type AuthController struct {
	parent      *Controllers
	audit       services.AuditService
	flow        LoginFlow
	verifier    authenticator.IdentityVerifier
	stateCookie *StateCookie
}

// NewAuthController creates a new auth controller
func NewAuthController(parent *Controllers, audit services.AuditService, flow LoginFlow, verifier authenticator.IdentityVerifier, stateCookie *StateCookie) *AuthController {
	return &AuthController{
		parent:      parent,
		audit:       audit,
		flow:        flow,
		verifier:    verifier,
		stateCookie: stateCookie,
	}
}

func requestMeta(r *http.Request) services.RequestMeta {
	return services.RequestMeta{
		IPAddress: middleware.ClientIP(r),
		UserAgent: middleware.UserAgent(r),
	}
}

// Login handles GET /login
func (ac *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logging.FromContext(ctx)

	req, err := ac.flow.BeginLogin(ctx)
	if err != nil {
		log.Error("failed to begin login", "error", err)
		ac.parent.renderError(w, r, http.StatusInternalServerError, "Could not start sign in. Please try again.", "")
		return
	}

	if err := ac.stateCookie.Set(w, req.State, req.ExpiresAt); err != nil {
		log.Error("failed to set state cookie", "attempt_id", req.AttemptID, "error", err)
		ac.parent.renderError(w, r, http.StatusInternalServerError, "Could not start sign in. Please try again.", "")
		return
	}

	ac.audit.LoginStarted(ctx, req.AttemptID, requestMeta(r))
	log.Info("redirecting to authorization endpoint", "attempt_id", req.AttemptID)

	http.Redirect(w, r, req.AuthURL, http.StatusFound)
}

// Callback handles GET /callback
func (ac *AuthController) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logging.FromContext(ctx)
	meta := requestMeta(r)

	cb := authenticator.CallbackFromQuery(r.URL.Query())

	// The cookie is single use whatever happens next
	cookieErr := ac.stateCookie.Verify(r, cb.State)
	ac.stateCookie.Clear(w)

	if cookieErr != nil {
		log.Warn("rejected callback, state cookie check failed", "error", cookieErr)
		ac.audit.LoginFailed(ctx, "", authenticator.KindInvalidState.String(), meta)

		message := "Invalid state. Please try signing in again."
		switch {
		case errors.Is(cookieErr, ErrStateCookieMissing):
			message = "Your sign-in session was not found. Please try signing in again."
		case errors.Is(cookieErr, ErrStateCookieMismatch):
			message = "State mismatch. Please try signing in again."
		}
		ac.parent.renderError(w, r, http.StatusBadRequest, message, cookieErr.Error())
		return
	}

	cred, err := ac.flow.HandleCallback(ctx, cb)
	if err != nil {
		status, message, outcome, attemptID := describeFlowError(err)
		if outcome == "error" {
			log.Error("callback failed", "error", err)
		}
		ac.audit.LoginFailed(ctx, attemptID, outcome, meta)
		ac.parent.renderError(w, r, status, message, err.Error())
		return
	}

	profile, err := ac.verifier.VerifyIdentity(ctx, cred)
	if err != nil {
		log.Warn("failed to verify identity", "attempt_id", cred.AttemptID, "error", err)
		ac.audit.LoginFailed(ctx, cred.AttemptID, "identity_verification_failed", meta)

		message := "Could not verify your Google identity."
		if errors.Is(err, authenticator.ErrNoIDToken) {
			message = "Google did not return an ID token. Check that the openid scope is requested."
		}
		ac.parent.renderError(w, r, http.StatusBadGateway, message, err.Error())
		return
	}

	sess := session.GetSession(r)
	// New session id on privilege change
	store, err := sess.RegenerateID(w, r)
	if err != nil {
		log.Error("failed to regenerate session", "attempt_id", cred.AttemptID, "error", err)
		ac.parent.renderError(w, r, http.StatusInternalServerError, "Sign-in failed due to a server error.", "")
		return
	}
	if err := userctx.SaveToSession(store, profile); err != nil {
		log.Error("failed to save session", "attempt_id", cred.AttemptID, "error", err)
		ac.parent.renderError(w, r, http.StatusInternalServerError, "Sign-in failed due to a server error.", "")
		return
	}

	ac.audit.LoginCompleted(ctx, cred.AttemptID, profile.Email, meta)
	log.Info("user signed in",
		"attempt_id", cred.AttemptID,
		"subject", profile.ShortSubject(),
		"email_verified", profile.EmailVerified,
	)

	http.Redirect(w, r, "/welcome", http.StatusFound)
}

// Logout handles GET /logout
func (ac *AuthController) Logout(w http.ResponseWriter, r *http.Request) {
	sess := session.GetSession(r)

	if user := userctx.FromSession(sess); user != nil {
		ac.audit.Logout(r.Context(), user.Email, requestMeta(r))
		logging.FromContext(r.Context()).Info("user signed out", "subject", user.ShortSubject())
	}
	userctx.ClearSession(sess)

	http.Redirect(w, r, "/", http.StatusFound)
}

// describeFlowError maps a HandleCallback error to the response
func describeFlowError(err error) (status int, message, outcome, attemptID string) {
	var flowErr *authenticator.FlowError
	if !errors.As(err, &flowErr) {
		return http.StatusInternalServerError, "Sign-in failed due to a server error.", "error", ""
	}

	outcome = flowErr.Kind.String()
	attemptID = flowErr.AttemptID

	switch flowErr.Kind {
	case authenticator.KindInvalidState:
		return http.StatusBadRequest, "Invalid or expired sign-in request. Please try again.", outcome, attemptID
	case authenticator.KindAuthorizationDenied:
		return http.StatusUnauthorized, "Authorization denied: " + flowErr.Reason, outcome, attemptID
	case authenticator.KindTokenExchangeTimeout:
		return http.StatusGatewayTimeout, "Google did not respond in time. Please try again.", outcome, attemptID
	default:
		return http.StatusBadGateway, "Could not complete sign in with Google. Please try again.", outcome, attemptID
	}
}
