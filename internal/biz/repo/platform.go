package repo

import (
	"context"
)

// Outbound is a message to be sent to a channel
type Outbound struct {
	Text     string
	ImageURL string // optional, attached as an image
}

// PlatformRepo is the chat platform interface
// Responsible for messages, reactions and role membership on the platform
type PlatformRepo interface {
	// SendMessage sends a message and returns the platform message id
	SendMessage(ctx context.Context, channelID string, msg Outbound) (string, error)

	// AddReaction attaches an emoji reaction as the bot
	AddReaction(ctx context.Context, channelID, messageID, emoji string) error

	// ReactionUsers lists the non-bot users holding an emoji reaction on a message
	ReactionUsers(ctx context.Context, channelID, messageID, emoji string) ([]string, error)

	// ChannelGuild resolves the guild a channel belongs to
	ChannelGuild(ctx context.Context, channelID string) (string, error)

	// HasRole reports whether a guild member holds a role
	HasRole(ctx context.Context, guildID, userID, roleID string) (bool, error)

	// GrantRole adds a role to a guild member
	GrantRole(ctx context.Context, guildID, userID, roleID string) error

	// RevokeRole removes a role from a guild member
	RevokeRole(ctx context.Context, guildID, userID, roleID string) error

	// RoleHolders lists the guild members currently holding a role
	RoleHolders(ctx context.Context, guildID, roleID string) ([]string, error)
}
