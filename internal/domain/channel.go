package domain

import "time"

// ChannelID names a voice channel for presence purposes. Persisted
// channels use their decimal database id; ad-hoc rooms any string.
type ChannelID string

const (
	ChannelTypeVoice = "voice"
	ChannelTypeText  = "text"
)

// Channel is a persisted channel row inside a server.
type Channel struct {
	ID        int64     `json:"id"`
	ServerID  int64     `json:"server_id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	OwnerID   UserID    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Server is a guild-like container of channels.
type Server struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	OwnerID     UserID    `json:"owner_id"`
	InviteCode  string    `json:"invite_code"`
	Role        string    `json:"role,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
)
