package model

// Identity is the caller as supplied by the auth collaborator. UserID is an
// opaque, stable identifier; the display fields are informational only.
type Identity struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	Email       string `json:"email,omitempty"`
}

// IsAnonymous reports whether no user is attached.
func (i Identity) IsAnonymous() bool {
	return i.UserID == ""
}
