package discord

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
)

// Page sizes accepted by the Discord API
const (
	ReactionPageSize = 100
	MemberPageSize   = 1000
)

// Intents the bot needs: slash commands, channel text for dialog answers,
// reactions for acknowledgments and members for role lookups
const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMembers |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsGuildMessageReactions |
	discordgo.IntentsMessageContent

// Handlers are the gateway callbacks. Nil handlers are not registered.
type Handlers struct {
	Interaction    func(*discordgo.InteractionCreate)
	Message        func(*discordgo.MessageCreate)
	ReactionAdd    func(*discordgo.MessageReactionAdd)
	ReactionRemove func(*discordgo.MessageReactionRemove)
}

// Client wraps a discordgo session
type Client struct {
	appID   string
	guildID string
	session *discordgo.Session
	log     *slog.Logger

	mu      sync.Mutex
	started bool
	removes []func()
}

// NewClient creates a new Discord client. The token may be given with or
// without the "Bot " prefix.
func NewClient(token, appID, guildID string, debug bool, log *slog.Logger) (*Client, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("discord token is empty")
	}
	if !strings.HasPrefix(token, "Bot ") {
		token = "Bot " + token
	}

	s, err := discordgo.New(token)
	if err != nil {
		return nil, errors.Wrap(err, "create discord session")
	}
	s.Identify.Intents = Intents
	s.LogLevel = discordgo.LogError
	if debug {
		s.LogLevel = discordgo.LogInformational
	}

	return &Client{
		appID:   appID,
		guildID: guildID,
		session: s,
		log:     log.With("component", "discord"),
	}, nil
}

// BotUserID returns the connected bot's user id, or "" before Start
func (c *Client) BotUserID() string {
	if c.session.State == nil || c.session.State.User == nil {
		return ""
	}
	return c.session.State.User.ID
}

// Start registers h and opens the gateway connection
func (c *Client) Start(h Handlers) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return nil
	}

	if h.Interaction != nil {
		c.removes = append(c.removes, c.session.AddHandler(func(_ *discordgo.Session, ev *discordgo.InteractionCreate) {
			h.Interaction(ev)
		}))
	}
	if h.Message != nil {
		c.removes = append(c.removes, c.session.AddHandler(func(_ *discordgo.Session, ev *discordgo.MessageCreate) {
			h.Message(ev)
		}))
	}
	if h.ReactionAdd != nil {
		c.removes = append(c.removes, c.session.AddHandler(func(_ *discordgo.Session, ev *discordgo.MessageReactionAdd) {
			h.ReactionAdd(ev)
		}))
	}
	if h.ReactionRemove != nil {
		c.removes = append(c.removes, c.session.AddHandler(func(_ *discordgo.Session, ev *discordgo.MessageReactionRemove) {
			h.ReactionRemove(ev)
		}))
	}

	c.log.Info("opening gateway connection")
	if err := c.session.Open(); err != nil {
		c.removeHandlersLocked()
		return errors.Wrap(err, "open discord gateway")
	}
	c.started = true
	c.log.Info("gateway connected", "user", c.BotUserID())
	return nil
}

// Stop closes the gateway connection
func (c *Client) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started {
		return nil
	}
	c.started = false
	c.removeHandlersLocked()
	if err := c.session.Close(); err != nil {
		return errors.Wrap(err, "close discord gateway")
	}
	c.log.Info("gateway closed")
	return nil
}

func (c *Client) removeHandlersLocked() {
	for _, remove := range c.removes {
		remove()
	}
	c.removes = nil
}

// RegisterCommands overwrites the application's slash commands. Commands are
// guild-scoped when a guild id is configured, global otherwise.
func (c *Client) RegisterCommands(ctx context.Context, commands []*discordgo.ApplicationCommand) error {
	appID := c.appID
	if appID == "" {
		appID = c.BotUserID()
	}
	if appID == "" {
		return errors.New("application id unknown")
	}

	registered, err := c.session.ApplicationCommandBulkOverwrite(appID, c.guildID, commands, discordgo.WithContext(ctx))
	if err != nil {
		return errors.Wrap(err, "register commands")
	}
	c.log.Info("commands registered", "count", len(registered), "guild", c.guildID)
	return nil
}

// SendMessage sends a message with optional embeds and components
func (c *Client) SendMessage(ctx context.Context, channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error) {
	return c.session.ChannelMessageSendComplex(channelID, msg, discordgo.WithContext(ctx))
}

// AddReaction adds the bot's reaction to a message
func (c *Client) AddReaction(ctx context.Context, channelID, messageID, emoji string) error {
	return c.session.MessageReactionAdd(channelID, messageID, emoji, discordgo.WithContext(ctx))
}

// ReactionUsers returns one page of users who reacted with emoji
func (c *Client) ReactionUsers(ctx context.Context, channelID, messageID, emoji, afterID string) ([]*discordgo.User, error) {
	return c.session.MessageReactions(channelID, messageID, emoji, ReactionPageSize, "", afterID, discordgo.WithContext(ctx))
}

// Channel fetches a channel
func (c *Client) Channel(ctx context.Context, channelID string) (*discordgo.Channel, error) {
	return c.session.Channel(channelID, discordgo.WithContext(ctx))
}

// Member fetches a guild member
func (c *Client) Member(ctx context.Context, guildID, userID string) (*discordgo.Member, error) {
	return c.session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
}

// Members returns one page of guild members
func (c *Client) Members(ctx context.Context, guildID, afterID string) ([]*discordgo.Member, error) {
	return c.session.GuildMembers(guildID, afterID, MemberPageSize, discordgo.WithContext(ctx))
}

// AddRole adds a role to a guild member
func (c *Client) AddRole(ctx context.Context, guildID, userID, roleID string) error {
	return c.session.GuildMemberRoleAdd(guildID, userID, roleID, discordgo.WithContext(ctx))
}

// RemoveRole removes a role from a guild member
func (c *Client) RemoveRole(ctx context.Context, guildID, userID, roleID string) error {
	return c.session.GuildMemberRoleRemove(guildID, userID, roleID, discordgo.WithContext(ctx))
}

// Respond sends the initial response to an interaction
func (c *Client) Respond(ctx context.Context, i *discordgo.Interaction, resp *discordgo.InteractionResponse) error {
	return c.session.InteractionRespond(i, resp, discordgo.WithContext(ctx))
}

// Followup sends a followup message to an interaction
func (c *Client) Followup(ctx context.Context, i *discordgo.Interaction, params *discordgo.WebhookParams) error {
	_, err := c.session.FollowupMessageCreate(i, true, params, discordgo.WithContext(ctx))
	return err
}

// IsNotFound reports whether err is a Discord "unknown resource" error
func IsNotFound(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) || restErr.Message == nil {
		return false
	}
	switch restErr.Message.Code {
	case discordgo.ErrCodeUnknownMember,
		discordgo.ErrCodeUnknownMessage,
		discordgo.ErrCodeUnknownChannel:
		return true
	}
	return false
}
