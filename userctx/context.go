package userctx

import (
	"context"

	"github.com/blogem/oauth-login/models"
)

// Context key type
type contextKey string

const userKey contextKey = "user"

// SetUser adds the signed-in user's profile to the request context
func SetUser(ctx context.Context, user *models.UserProfile) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// GetUser retrieves the signed-in user's profile, or nil
func GetUser(ctx context.Context) *models.UserProfile {
	user, _ := ctx.Value(userKey).(*models.UserProfile)
	return user
}

// GetUserEmail retrieves user email from request context
func GetUserEmail(ctx context.Context) string {
	if user := GetUser(ctx); user != nil && user.Email != "" {
		return user.Email
	}
	return "anonymous"
}

// GetUserID retrieves user ID from request context
func GetUserID(ctx context.Context) string {
	if user := GetUser(ctx); user != nil {
		return user.Subject
	}
	return ""
}
