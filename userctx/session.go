package userctx

import "github.com/blogem/oauth-login/models"

// Session keys holding the signed-in user
const (
	SessionUserID       = "user_id"
	SessionUserEmail    = "user_email"
	SessionUserName     = "user_name"
	SessionUserPicture  = "user_picture"
	SessionUserVerified = "user_verified"
)

var sessionKeys = []string{
	SessionUserID,
	SessionUserEmail,
	SessionUserName,
	SessionUserPicture,
	SessionUserVerified,
}

// SessionStore is the part of a server side session the user helpers need
type SessionStore interface {
	Set(key, value any) error
	Get(key any) any
	Delete(key any) error
}

// SaveToSession stores the profile fields in the session
func SaveToSession(sess SessionStore, user *models.UserProfile) error {
	values := map[string]any{
		SessionUserID:       user.Subject,
		SessionUserEmail:    user.Email,
		SessionUserName:     user.DisplayName(),
		SessionUserPicture:  user.PictureURL(),
		SessionUserVerified: user.EmailVerified,
	}
	for _, key := range sessionKeys {
		if err := sess.Set(key, values[key]); err != nil {
			return err
		}
	}
	return nil
}

// FromSession rebuilds the signed-in user, or returns nil when nobody is
func FromSession(sess SessionStore) *models.UserProfile {
	id, ok := sess.Get(SessionUserID).(string)
	if !ok || id == "" {
		return nil
	}

	user := &models.UserProfile{Subject: id}
	user.Email, _ = sess.Get(SessionUserEmail).(string)
	user.Name, _ = sess.Get(SessionUserName).(string)
	user.Picture, _ = sess.Get(SessionUserPicture).(string)
	user.EmailVerified, _ = sess.Get(SessionUserVerified).(bool)
	return user
}

// ClearSession removes the user from the session
func ClearSession(sess SessionStore) {
	for _, key := range sessionKeys {
		_ = sess.Delete(key)
	}
}
