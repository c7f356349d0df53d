package websocket

import (
	"encoding/json"

	"github.com/rocketscienceinc/goblet-backend/internal/entity"
)

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Payload is the single request/response envelope shared by all actions.
// Coordinates and the stack index are pointers so a missing field can be
// told apart from a legitimate zero.
type Payload struct {
	ConnectionID string       `json:"connection_id,omitempty"`
	MatchID      string       `json:"match_id,omitempty"`
	Code         string       `json:"code,omitempty"`
	Color        entity.Color `json:"color,omitempty"`
	Public       bool         `json:"public,omitempty"`
	WantsCode    bool         `json:"wants_code,omitempty"`
	BoardSize    int          `json:"board_size,omitempty"`

	UserID      string `json:"user_id,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`

	StackIndex *int `json:"stack_index,omitempty"`
	Row        *int `json:"row,omitempty"`
	Col        *int `json:"col,omitempty"`
	FromRow    *int `json:"from_row,omitempty"`
	FromCol    *int `json:"from_col,omitempty"`
	ToRow      *int `json:"to_row,omitempty"`
	ToCol      *int `json:"to_col,omitempty"`

	Match  *entity.Snapshot `json:"match,omitempty"`
	Error  string           `json:"error,omitempty"`
	Reason string           `json:"reason,omitempty"`
}

func (that *Payload) identity() *entity.Identity {
	if that.UserID == "" && that.DisplayName == "" && that.AvatarURL == "" {
		return nil
	}

	return &entity.Identity{
		UserID:      that.UserID,
		DisplayName: that.DisplayName,
		AvatarURL:   that.AvatarURL,
	}
}
