package server

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/patrickmn/go-cache"

	"github.com/recruitbot/recruit-bot/internal/biz/domain"
	"github.com/recruitbot/recruit-bot/internal/biz/usecase"
	"github.com/recruitbot/recruit-bot/internal/infra/discord"
)

const (
	customIDPrefix = "recruit:tmpl:"
	dedupTTL       = 5 * time.Minute
	handlerTimeout = 30 * time.Second
)

// templateCustomID encodes a template choice button
func templateCustomID(flowID, patternID string) string {
	return customIDPrefix + flowID + ":" + patternID
}

// parseTemplateCustomID decodes a template choice button
func parseTemplateCustomID(customID string) (flowID, patternID string, ok bool) {
	rest, found := strings.CutPrefix(customID, customIDPrefix)
	if !found {
		return "", "", false
	}
	flowID, patternID, found = strings.Cut(rest, ":")
	if !found || flowID == "" || patternID == "" {
		return "", "", false
	}
	return flowID, patternID, true
}

// gateway is the part of the Discord client the server drives
type gateway interface {
	interactionAPI
	Start(h discord.Handlers) error
	Stop() error
	RegisterCommands(ctx context.Context, commands []*discordgo.ApplicationCommand) error
	BotUserID() string
}

// DiscordServer routes Discord gateway events to the usecases
type DiscordServer struct {
	client       gateway
	catalog      *domain.Catalog
	campaignUC   *usecase.CampaignUsecase
	membershipUC *usecase.MembershipUsecase
	inbox        *usecase.Inbox
	log          *slog.Logger

	// Duplicate gateway deliveries
	seen *cache.Cache

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDiscordServer creates a new Discord server
func NewDiscordServer(
	client gateway,
	catalog *domain.Catalog,
	campaignUC *usecase.CampaignUsecase,
	membershipUC *usecase.MembershipUsecase,
	inbox *usecase.Inbox,
	log *slog.Logger,
) *DiscordServer {
	return &DiscordServer{
		client:       client,
		catalog:      catalog,
		campaignUC:   campaignUC,
		membershipUC: membershipUC,
		inbox:        inbox,
		log:          log.With("component", "server"),
		seen:         cache.New(dedupTTL, 2*dedupTTL),
		ctx:          context.Background(),
	}
}

// Start connects to Discord and registers slash commands. Handlers and
// launched dialogs run under ctx.
func (s *DiscordServer) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	err := s.client.Start(discord.Handlers{
		Interaction:    s.handleInteraction,
		Message:        s.handleMessage,
		ReactionAdd:    s.handleReactionAdd,
		ReactionRemove: s.handleReactionRemove,
	})
	if err != nil {
		return err
	}

	if err := s.client.RegisterCommands(s.ctx, s.commands()); err != nil {
		// Commands from a previous run stay usable
		s.log.Error("register commands failed", "error", err)
	}
	return nil
}

// Stop disconnects and waits for running dialogs to end
func (s *DiscordServer) Stop() error {
	if s.cancel != nil {
		s.cancel()
	}
	err := s.client.Stop()
	s.wg.Wait()
	s.log.Info("server stopped")
	return err
}

func (s *DiscordServer) commands() []*discordgo.ApplicationCommand {
	var cmds []*discordgo.ApplicationCommand
	for _, id := range s.catalog.TypeIDs() {
		t, _ := s.catalog.Type(id)
		cmds = append(cmds, &discordgo.ApplicationCommand{
			Name:        t.ID,
			Description: t.DisplayName + "の募集メッセージを作成",
		})
	}
	return cmds
}

// firstSeen reports whether key has not been handled within the dedup window
func (s *DiscordServer) firstSeen(key string) bool {
	return s.seen.Add(key, struct{}{}, cache.DefaultExpiration) == nil
}

func (s *DiscordServer) handleInteraction(ev *discordgo.InteractionCreate) {
	if ev.Interaction == nil || !s.firstSeen("interaction:"+ev.ID) {
		return
	}

	switch ev.Type {
	case discordgo.InteractionApplicationCommand:
		s.handleCommand(ev.Interaction)
	case discordgo.InteractionMessageComponent:
		s.handleComponent(ev.Interaction)
	}
}

// handleCommand starts a configuration flow in its own goroutine; the flow
// blocks on user input for up to a few minutes
func (s *DiscordServer) handleCommand(i *discordgo.Interaction) {
	inv := domain.Invocation{
		CampaignTypeID: i.ApplicationCommandData().Name,
		InitiatorID:    interactionUserID(i),
		ChannelID:      i.ChannelID,
		GuildID:        i.GuildID,
	}
	s.log.Info("command received", "type", inv.CampaignTypeID, "user", inv.InitiatorID, "channel", inv.ChannelID)

	responder := newInteractionResponder(s.client, i)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := s.campaignUC.Launch(s.ctx, inv, responder); err != nil {
			s.log.Info("launch ended without campaign", "type", inv.CampaignTypeID, "error", err)
		}
	}()
}

func (s *DiscordServer) handleComponent(i *discordgo.Interaction) {
	ctx, cancel := context.WithTimeout(s.ctx, handlerTimeout)
	defer cancel()

	customID := i.MessageComponentData().CustomID
	flowID, patternID, ok := parseTemplateCustomID(customID)
	if !ok {
		return
	}

	delivered := s.inbox.Deliver(domain.DialogInput{
		Kind:      domain.InputTemplateChoice,
		FlowID:    flowID,
		ChannelID: i.ChannelID,
		UserID:    interactionUserID(i),
		Value:     patternID,
	})

	resp := &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    "✔️ " + s.patternLabel(patternID),
			Components: []discordgo.MessageComponent{},
		},
	}
	if !delivered {
		resp = &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content: "⌛ この選択肢は期限切れです。もう一度コマンドを実行してください。",
				Flags:   discordgo.MessageFlagsEphemeral,
			},
		}
	}
	if err := s.client.Respond(ctx, i, resp); err != nil {
		s.log.Warn("respond to button failed", "custom_id", customID, "error", err)
	}
}

func (s *DiscordServer) patternLabel(patternID string) string {
	if p, ok := s.catalog.Patterns[patternID]; ok && p.Label != "" {
		return p.Label
	}
	return "Template " + patternID
}

func (s *DiscordServer) handleMessage(ev *discordgo.MessageCreate) {
	m := ev.Message
	if m == nil || m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}
	if !s.firstSeen("message:" + m.ID) {
		return
	}

	if s.inbox.Deliver(domain.DialogInput{
		Kind:      domain.InputText,
		ChannelID: m.ChannelID,
		UserID:    m.Author.ID,
		Value:     m.Content,
	}) {
		s.log.Debug("dialog input delivered", "channel", m.ChannelID, "user", m.Author.ID)
	}
}

func (s *DiscordServer) handleReactionAdd(ev *discordgo.MessageReactionAdd) {
	r := ev.MessageReaction
	if r == nil {
		return
	}
	if ev.Member != nil && ev.Member.User != nil && ev.Member.User.Bot {
		return
	}
	s.handleAck(r, domain.AckAdd)
}

func (s *DiscordServer) handleReactionRemove(ev *discordgo.MessageReactionRemove) {
	if ev.MessageReaction == nil {
		return
	}
	s.handleAck(ev.MessageReaction, domain.AckRemove)
}

// handleAck forwards acknowledgment changes. Reactions are not deduplicated:
// grant and revoke are idempotent and a user may legitimately toggle.
func (s *DiscordServer) handleAck(r *discordgo.MessageReaction, dir domain.AckDirection) {
	if r.Emoji.Name != domain.AckEmoji || r.UserID == "" || r.UserID == s.client.BotUserID() {
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, handlerTimeout)
	defer cancel()

	ev := domain.AckEvent{
		MessageID: r.MessageID,
		ChannelID: r.ChannelID,
		GuildID:   r.GuildID,
		UserID:    r.UserID,
		Direction: dir,
	}
	if err := s.membershipUC.OnAcknowledgmentChanged(ctx, ev); err != nil {
		s.log.Warn("acknowledgment sync failed",
			"direction", dir.String(), "message", r.MessageID, "user", r.UserID, "error", err)
	}
}

func interactionUserID(i *discordgo.Interaction) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}
