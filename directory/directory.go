package directory

import (
	"context"
	"errors"
)

var (
	ErrGuildNotFound   = errors.New("guild not found")
	ErrChannelNotFound = errors.New("channel not found")
	ErrMessageNotFound = errors.New("message not found")
)

// A user known to the chat transport. IDs are opaque numeric strings ("snowflakes").
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// A single message in a guild channel.
type Message struct {
	ID        string `json:"id"`
	GuildID   string `json:"guildId"`
	ChannelID string `json:"channelId"`
	Author    User   `json:"author"`
	Text      string `json:"text"`
}

// Interface to the chat transport: message/membership lookups and content removal.
// The moderation core consumes this; the transport binding implements it.
type Directory interface {
	ResolveMessage(ctx context.Context, guildID, channelID, messageID string) (*Message, error)
	ChannelMembers(ctx context.Context, guildID, channelID string) ([]User, error)
	// Removes all of the user's messages from the regular channel; returns how many
	// were removed.
	PurgeUserMessages(ctx context.Context, userID string) (int, error)
}
