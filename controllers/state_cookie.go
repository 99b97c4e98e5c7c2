package controllers

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// StateCookieName binds the browser that started a login to its state
const StateCookieName = "oauth_state"

var (
	ErrStateCookieMissing  = errors.New("state cookie missing")
	ErrStateCookieInvalid  = errors.New("state cookie invalid or expired")
	ErrStateCookieMismatch = errors.New("state does not match state cookie")
)

type stateClaims struct {
	State string `json:"state"`
	jwt.RegisteredClaims
}

// StateCookie issues and checks the signed oauth_state cookie
type StateCookie struct {
	secret []byte
	secure bool
	now    func() time.Time
}

// NewStateCookie creates a cookie signer. secure marks the cookie HTTPS only.
func NewStateCookie(secret string, secure bool) *StateCookie {
	return &StateCookie{
		secret: []byte(secret),
		secure: secure,
		now:    time.Now,
	}
}

// Set writes the signed state, valid until expiresAt
func (c *StateCookie) Set(w http.ResponseWriter, state string, expiresAt time.Time) error {
	now := c.now()
	claims := stateClaims{
		State: state,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return fmt.Errorf("failed to sign state cookie: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     StateCookieName,
		Value:    signed,
		Path:     "/",
		MaxAge:   max(int(expiresAt.Sub(now).Seconds()), 1),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Verify checks the cookie signature and expiry and that it carries state
func (c *StateCookie) Verify(r *http.Request, state string) error {
	cookie, err := r.Cookie(StateCookieName)
	if err != nil || cookie.Value == "" {
		return ErrStateCookieMissing
	}

	var claims stateClaims
	_, err = jwt.ParseWithClaims(cookie.Value, &claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStateCookieInvalid, err)
	}

	if state == "" || subtle.ConstantTimeCompare([]byte(claims.State), []byte(state)) != 1 {
		return ErrStateCookieMismatch
	}
	return nil
}

// Clear removes the cookie; a state is only ever good for one callback
func (c *StateCookie) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
