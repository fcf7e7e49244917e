package data

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"

	"github.com/recruitbot/recruit-bot/internal/biz/domain"
	"github.com/recruitbot/recruit-bot/internal/biz/repo"
	"github.com/recruitbot/recruit-bot/internal/infra/discord"
)

// discordAPI is the part of the Discord client the repository uses
type discordAPI interface {
	SendMessage(ctx context.Context, channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error)
	AddReaction(ctx context.Context, channelID, messageID, emoji string) error
	ReactionUsers(ctx context.Context, channelID, messageID, emoji, afterID string) ([]*discordgo.User, error)
	Channel(ctx context.Context, channelID string) (*discordgo.Channel, error)
	Member(ctx context.Context, guildID, userID string) (*discordgo.Member, error)
	Members(ctx context.Context, guildID, afterID string) ([]*discordgo.Member, error)
	AddRole(ctx context.Context, guildID, userID, roleID string) error
	RemoveRole(ctx context.Context, guildID, userID, roleID string) error
}

// discordRepo implements the platform repository on Discord
type discordRepo struct {
	client discordAPI
}

// NewDiscordRepo creates a new Discord repository
func NewDiscordRepo(client discordAPI) repo.PlatformRepo {
	return &discordRepo{client: client}
}

// SendMessage sends text with the image as an embed
func (r *discordRepo) SendMessage(ctx context.Context, channelID string, out repo.Outbound) (string, error) {
	msg := &discordgo.MessageSend{Content: out.Text}
	if out.ImageURL != "" {
		msg.Embeds = []*discordgo.MessageEmbed{
			{Image: &discordgo.MessageEmbedImage{URL: out.ImageURL}},
		}
	}

	sent, err := r.client.SendMessage(ctx, channelID, msg)
	if err != nil {
		return "", errors.Wrapf(err, "send message to %s", channelID)
	}
	return sent.ID, nil
}

// AddReaction adds the bot's reaction to a message
func (r *discordRepo) AddReaction(ctx context.Context, channelID, messageID, emoji string) error {
	if err := r.client.AddReaction(ctx, channelID, messageID, emoji); err != nil {
		return errors.Wrapf(err, "react to %s", messageID)
	}
	return nil
}

// ReactionUsers lists every non-bot user who reacted with emoji
func (r *discordRepo) ReactionUsers(ctx context.Context, channelID, messageID, emoji string) ([]string, error) {
	var ids []string
	after := ""
	for {
		users, err := r.client.ReactionUsers(ctx, channelID, messageID, emoji, after)
		if err != nil {
			return nil, domain.Classify(domain.ErrMessageUnavailable, err, "list reactions on %s", messageID)
		}
		for _, u := range users {
			if u == nil || u.Bot {
				continue
			}
			ids = append(ids, u.ID)
		}
		if len(users) < discord.ReactionPageSize || users[len(users)-1] == nil {
			return ids, nil
		}
		after = users[len(users)-1].ID
	}
}

// ChannelGuild returns the guild a channel belongs to
func (r *discordRepo) ChannelGuild(ctx context.Context, channelID string) (string, error) {
	ch, err := r.client.Channel(ctx, channelID)
	if err != nil {
		return "", errors.Wrapf(err, "fetch channel %s", channelID)
	}
	if ch.GuildID == "" {
		return "", errors.Newf("channel %s is not in a guild", channelID)
	}
	return ch.GuildID, nil
}

// HasRole reports whether the member holds roleID. A member who left the
// guild holds no roles.
func (r *discordRepo) HasRole(ctx context.Context, guildID, userID, roleID string) (bool, error) {
	m, err := r.client.Member(ctx, guildID, userID)
	if err != nil {
		if discord.IsNotFound(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, "fetch member %s", userID)
	}
	for _, id := range m.Roles {
		if id == roleID {
			return true, nil
		}
	}
	return false, nil
}

// GrantRole adds roleID to the member
func (r *discordRepo) GrantRole(ctx context.Context, guildID, userID, roleID string) error {
	if err := r.client.AddRole(ctx, guildID, userID, roleID); err != nil {
		return errors.Wrapf(err, "add role %s to %s", roleID, userID)
	}
	return nil
}

// RevokeRole removes roleID from the member
func (r *discordRepo) RevokeRole(ctx context.Context, guildID, userID, roleID string) error {
	if err := r.client.RemoveRole(ctx, guildID, userID, roleID); err != nil {
		return errors.Wrapf(err, "remove role %s from %s", roleID, userID)
	}
	return nil
}

// RoleHolders lists every guild member holding roleID
func (r *discordRepo) RoleHolders(ctx context.Context, guildID, roleID string) ([]string, error) {
	var ids []string
	after := ""
	for {
		members, err := r.client.Members(ctx, guildID, after)
		if err != nil {
			return nil, errors.Wrapf(err, "list members of %s", guildID)
		}
		for _, m := range members {
			if m == nil || m.User == nil {
				continue
			}
			for _, id := range m.Roles {
				if id == roleID {
					ids = append(ids, m.User.ID)
					break
				}
			}
		}
		if len(members) < discord.MemberPageSize {
			return ids, nil
		}
		last := members[len(members)-1]
		if last == nil || last.User == nil {
			return ids, nil
		}
		after = last.User.ID
	}
}
