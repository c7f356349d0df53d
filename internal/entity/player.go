package entity

import "time"

// Identity carries the stable, transport-independent attributes of a
// player. UserID is set for authenticated players and survives reconnects;
// anonymous players are re-identified by their color association.
type Identity struct {
	UserID      string `json:"user_id,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// Player is one of up to two match participants. ConnectionID is the live
// transport session and is reassigned on reconnect; it must never be used
// as a stable identity key.
type Player struct {
	ConnectionID string    `json:"connection_id"`
	UserID       string    `json:"user_id,omitempty"`
	Color        Color     `json:"color"`
	DisplayName  string    `json:"display_name,omitempty"`
	AvatarURL    string    `json:"avatar_url,omitempty"`
	Connected    bool      `json:"connected"`
	LastSeenAt   time.Time `json:"last_seen_at"`
}
