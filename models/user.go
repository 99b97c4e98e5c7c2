package models

// UserProfile holds the identity claims taken from a verified ID token
type UserProfile struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// DefaultPicture is shown when the provider returned no avatar
const DefaultPicture = "https://via.placeholder.com/100"

// DisplayName returns the best human readable name available.
// Falls back from name to email to subject, and finally "User".
func (u *UserProfile) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	if u.Email != "" {
		return u.Email
	}
	if u.Subject != "" {
		return u.Subject
	}
	return "User"
}

// PictureURL returns the avatar URL or the placeholder
func (u *UserProfile) PictureURL() string {
	if u.Picture == "" {
		return DefaultPicture
	}
	return u.Picture
}

// ShortSubject truncates the subject for display
func (u *UserProfile) ShortSubject() string {
	if len(u.Subject) <= 12 {
		return u.Subject
	}
	return u.Subject[:12] + "..."
}
