package domain

import "time"

// User statuses stored in the users.status column.
const (
	StatusOnline  = "online"
	StatusAway    = "away"
	StatusBusy    = "busy"
	StatusOffline = "offline"
)

// Attachment kinds stored alongside an attachment ref.
const (
	AttachmentImage = "image"
	AttachmentVideo = "video"
)

// User represents a chat member. Email and PasswordHash are nil for "ghost"
// accounts created through the join path; such users cannot authenticate
// with credentials until they register.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	DisplayName  *string    `json:"display_name,omitempty"`
	Bio          *string    `json:"bio,omitempty"`
	Pronouns     *string    `json:"pronouns,omitempty"`
	CustomColor  *string    `json:"custom_color,omitempty"`
	AvatarURL    *string    `json:"avatar_url,omitempty"`
	BannerURL    *string    `json:"banner_url,omitempty"`
	Status       string     `json:"status"`
	StatusText   *string    `json:"status_text,omitempty"`
	Timezone     string     `json:"timezone"`
	DarkMode     bool       `json:"dark_mode"`
	Email        *string    `json:"email,omitempty"`
	PasswordHash *string    `json:"-"`
	IsSuspended  bool       `json:"is_suspended"`
	CreatedAt    time.Time  `json:"created_at"`
	LastSeen     time.Time  `json:"last_seen"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

// HasCredentials reports whether the user completed registration.
func (u *User) HasCredentials() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// Message is a durable chat message. Immutable after creation except for the
// attachment fields, which the expiry sweeper may null out together.
type Message struct {
	ID                  int64      `json:"id"`
	AuthorID            int64      `json:"author_id"`
	Text                string     `json:"text"`
	HasMarkdown         bool       `json:"has_markdown"`
	AttachmentKind      *string    `json:"attachment_kind,omitempty"`
	AttachmentRef       *string    `json:"attachment_ref,omitempty"`
	AttachmentExpiresAt *time.Time `json:"attachment_expires_at,omitempty"`
	GifURL              *string    `json:"gif_url,omitempty"`
	Mentions            []string   `json:"mentions"`
	CreatedAt           time.Time  `json:"created_at"`
}

// EnrichedMessage joins a message with its author's display attributes so
// broadcast and REST consumers never need a second lookup.
type EnrichedMessage struct {
	Message
	Username    string  `json:"username"`
	DisplayName *string `json:"display_name,omitempty"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
	CustomColor *string `json:"custom_color,omitempty"`
}

// AuthorName returns the name clients should render for the author.
func (m *EnrichedMessage) AuthorName() string {
	if m.DisplayName != nil && *m.DisplayName != "" {
		return *m.DisplayName
	}
	return m.Username
}

// ProfilePatch is a typed partial update for a user profile. A nil field
// means "leave unchanged"; for the double-pointer fields a non-nil outer
// pointer wrapping nil clears the column.
type ProfilePatch struct {
	DisplayName **string
	Bio         **string
	Pronouns    **string
	CustomColor **string
	AvatarURL   **string
	BannerURL   **string
	Status      *string
	StatusText  **string
	Timezone    *string
	DarkMode    *bool
}

// IsEmpty reports whether the patch carries no changes.
func (p *ProfilePatch) IsEmpty() bool {
	return p.DisplayName == nil && p.Bio == nil && p.Pronouns == nil &&
		p.CustomColor == nil && p.AvatarURL == nil && p.BannerURL == nil &&
		p.Status == nil && p.StatusText == nil && p.Timezone == nil &&
		p.DarkMode == nil
}

// AuthorCount is one row of the top-authors statistic.
type AuthorCount struct {
	Username string `json:"username"`
	Count    int    `json:"count"`
}

// ExpiredAttachment identifies a message whose attachment outlived its TTL.
type ExpiredAttachment struct {
	MessageID     int64
	AttachmentRef string
}
