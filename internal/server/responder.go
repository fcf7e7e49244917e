package server

import (
	"context"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/recruitbot/recruit-bot/internal/biz/domain"
)

// interactionAPI is the part of the Discord client used to answer interactions
type interactionAPI interface {
	Respond(ctx context.Context, i *discordgo.Interaction, resp *discordgo.InteractionResponse) error
	Followup(ctx context.Context, i *discordgo.Interaction, params *discordgo.WebhookParams) error
}

// interactionResponder talks to the initiator of a slash command. All
// messages are ephemeral. The first message is the interaction response,
// every later one a followup.
type interactionResponder struct {
	api         interactionAPI
	interaction *discordgo.Interaction

	mu        sync.Mutex
	responded bool
}

func newInteractionResponder(api interactionAPI, i *discordgo.Interaction) *interactionResponder {
	return &interactionResponder{api: api, interaction: i}
}

// OfferTemplates shows one button per template option
func (r *interactionResponder) OfferTemplates(ctx context.Context, flowID, prompt string, options []domain.TemplateOption) error {
	buttons := make([]discordgo.MessageComponent, 0, len(options))
	for _, opt := range options {
		buttons = append(buttons, discordgo.Button{
			Label:    opt.Label,
			Style:    buttonStyle(opt.Style),
			CustomID: templateCustomID(flowID, opt.PatternID),
		})
	}
	return r.send(ctx, prompt, rows(buttons))
}

// Prompt asks the initiator for the next input
func (r *interactionResponder) Prompt(ctx context.Context, text string) error {
	return r.send(ctx, text, nil)
}

// Report tells the initiator how the flow ended
func (r *interactionResponder) Report(ctx context.Context, text string) error {
	return r.send(ctx, text, nil)
}

func (r *interactionResponder) send(ctx context.Context, text string, components []discordgo.MessageComponent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.responded {
		err := r.api.Respond(ctx, r.interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content:    text,
				Components: components,
				Flags:      discordgo.MessageFlagsEphemeral,
			},
		})
		if err != nil {
			return err
		}
		r.responded = true
		return nil
	}

	return r.api.Followup(ctx, r.interaction, &discordgo.WebhookParams{
		Content:    text,
		Components: components,
		Flags:      discordgo.MessageFlagsEphemeral,
	})
}

// Discord allows at most five buttons per action row
const maxButtonsPerRow = 5

func rows(buttons []discordgo.MessageComponent) []discordgo.MessageComponent {
	var result []discordgo.MessageComponent
	for len(buttons) > 0 {
		n := len(buttons)
		if n > maxButtonsPerRow {
			n = maxButtonsPerRow
		}
		result = append(result, discordgo.ActionsRow{Components: buttons[:n]})
		buttons = buttons[n:]
	}
	return result
}

func buttonStyle(style string) discordgo.ButtonStyle {
	switch style {
	case "secondary":
		return discordgo.SecondaryButton
	case "success":
		return discordgo.SuccessButton
	case "danger":
		return discordgo.DangerButton
	default:
		return discordgo.PrimaryButton
	}
}
