package userctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/blogem/oauth-login/models"
)

func TestUserContext(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, GetUser(ctx))
	assert.Equal(t, "anonymous", GetUserEmail(ctx))
	assert.Empty(t, GetUserID(ctx))

	ctx = SetUser(ctx, &models.UserProfile{Subject: "sub-1", Email: "ada@example.com"})
	assert.Equal(t, "ada@example.com", GetUserEmail(ctx))
	assert.Equal(t, "sub-1", GetUserID(ctx))
}

type mapSession map[any]any

func (m mapSession) Set(key, value any) error { m[key] = value; return nil }
func (m mapSession) Get(key any) any          { return m[key] }
func (m mapSession) Delete(key any) error     { delete(m, key); return nil }

func TestSessionRoundTrip(t *testing.T) {
	sess := mapSession{}
	assert.Nil(t, FromSession(sess))

	err := SaveToSession(sess, &models.UserProfile{
		Subject:       "109876543210",
		Email:         "ada@example.com",
		EmailVerified: true,
	})
	assert.NoError(t, err)

	user := FromSession(sess)
	if assert.NotNil(t, user) {
		assert.Equal(t, "109876543210", user.Subject)
		assert.Equal(t, "ada@example.com", user.Email)
		assert.Equal(t, "ada@example.com", user.Name, "display name falls back to email")
		assert.Equal(t, models.DefaultPicture, user.Picture)
		assert.True(t, user.EmailVerified)
	}

	ClearSession(sess)
	assert.Nil(t, FromSession(sess))
	assert.Empty(t, sess)
}
