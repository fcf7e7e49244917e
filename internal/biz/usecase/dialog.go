package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/recruitbot/recruit-bot/internal/biz/domain"
	"github.com/recruitbot/recruit-bot/internal/biz/repo"
)

// DialogConfig represents dialog timing configuration
type DialogConfig struct {
	TemplateTimeout time.Duration // template choice step
	TextTimeout     time.Duration // deadline and conditions steps
	Location        *time.Location
}

// DefaultDialogConfig returns the default dialog timing
func DefaultDialogConfig() DialogConfig {
	return DialogConfig{
		TemplateTimeout: 30 * time.Second,
		TextTimeout:     60 * time.Second,
		Location:        time.Local,
	}
}

// DialogUsecase drives the campaign configuration dialog:
// template choice -> deadline -> optional conditions -> complete.
// No platform state is written until the flow completes.
type DialogUsecase struct {
	catalog *domain.Catalog
	inbox   *Inbox
	config  DialogConfig
	log     *slog.Logger

	newFlowID func() string
}

// NewDialogUsecase creates a new dialog usecase
func NewDialogUsecase(catalog *domain.Catalog, inbox *Inbox, config DialogConfig, log *slog.Logger) *DialogUsecase {
	if config.Location == nil {
		config.Location = time.Local
	}
	return &DialogUsecase{
		catalog:   catalog,
		inbox:     inbox,
		config:    config,
		log:       log.With("component", "dialog"),
		newFlowID: func() string { return uuid.NewString() },
	}
}

// flow holds the values collected so far; it is dropped on failure
type flow struct {
	id      string
	inv     domain.Invocation
	ctype   *domain.CampaignType
	state   domain.DialogState
	mailbox *Mailbox
	draft   domain.CampaignDraft
}

// RunConfigurationFlow runs one dialog to completion. On failure the error is
// a *domain.DialogError and no draft is returned.
func (uc *DialogUsecase) RunConfigurationFlow(ctx context.Context, inv domain.Invocation, responder repo.Responder) (*domain.CampaignDraft, error) {
	ctype, ok := uc.catalog.Type(inv.CampaignTypeID)
	if !ok {
		return nil, &domain.DialogError{
			State: domain.DialogAwaitingTemplateChoice,
			Err:   errors.Wrapf(domain.ErrUnknownCampaignType, "%q", inv.CampaignTypeID),
		}
	}

	f := &flow{
		id:    uc.newFlowID(),
		inv:   inv,
		ctype: ctype,
		state: domain.DialogAwaitingTemplateChoice,
	}

	mailbox, err := uc.inbox.Open(f.id, inv.ChannelID, inv.InitiatorID)
	if err != nil {
		return nil, &domain.DialogError{State: f.state, Err: err}
	}
	defer mailbox.Close()
	f.mailbox = mailbox

	uc.log.Info("dialog started", "flow", f.id, "type", ctype.ID, "initiator", inv.InitiatorID)

	for f.state != domain.DialogComplete {
		var err error
		switch f.state {
		case domain.DialogAwaitingTemplateChoice:
			err = uc.awaitTemplate(ctx, f, responder)
		case domain.DialogAwaitingDeadlineInput:
			err = uc.awaitDeadline(ctx, f, responder)
		case domain.DialogAwaitingConditions:
			err = uc.awaitConditions(ctx, f, responder)
		}
		if err != nil {
			uc.log.Info("dialog failed", "flow", f.id, "state", f.state.String(), "error", err)
			return nil, &domain.DialogError{State: f.state, Err: err}
		}
	}

	draft := f.draft
	uc.log.Info("dialog complete", "flow", f.id, "type", ctype.ID, "pattern", draft.PatternID, "deadline", draft.Deadline)
	return &draft, nil
}

func (uc *DialogUsecase) awaitTemplate(ctx context.Context, f *flow, responder repo.Responder) error {
	options := uc.catalog.Options(f.ctype)
	if len(options) == 0 {
		return errors.Wrapf(domain.ErrTemplateUnavailable, "type %s has no templates", f.ctype.ID)
	}
	if err := responder.OfferTemplates(ctx, f.id, uc.catalog.Messages.TemplatePrompt, options); err != nil {
		return domain.Classify(domain.ErrPlatformUnavailable, err, "offer templates")
	}

	in, err := f.mailbox.Next(ctx, domain.InputTemplateChoice, uc.config.TemplateTimeout)
	if err != nil {
		return err
	}
	if !f.ctype.HasTemplate(in.Value) {
		return errors.Wrapf(domain.ErrTemplateUnavailable, "pattern %q for type %s", in.Value, f.ctype.ID)
	}

	f.draft = domain.CampaignDraft{
		CampaignTypeID: f.ctype.ID,
		InitiatorID:    f.inv.InitiatorID,
		ChannelID:      f.inv.ChannelID,
		GuildID:        f.inv.GuildID,
		PatternID:      in.Value,
	}
	f.state = domain.DialogAwaitingDeadlineInput
	return nil
}

func (uc *DialogUsecase) awaitDeadline(ctx context.Context, f *flow, responder repo.Responder) error {
	if err := responder.Prompt(ctx, uc.catalog.Messages.DeadlinePrompt); err != nil {
		return domain.Classify(domain.ErrPlatformUnavailable, err, "prompt deadline")
	}

	in, err := f.mailbox.Next(ctx, domain.InputText, uc.config.TextTimeout)
	if err != nil {
		return err
	}
	deadline, err := domain.ParseDeadline(in.Value, uc.config.Location)
	if err != nil {
		return err
	}

	f.draft.Deadline = deadline
	if f.ctype.AskConditions {
		f.state = domain.DialogAwaitingConditions
	} else {
		f.state = domain.DialogComplete
	}
	return nil
}

func (uc *DialogUsecase) awaitConditions(ctx context.Context, f *flow, responder repo.Responder) error {
	if err := responder.Prompt(ctx, uc.catalog.Messages.ConditionPrompt); err != nil {
		return domain.Classify(domain.ErrPlatformUnavailable, err, "prompt conditions")
	}

	in, err := f.mailbox.Next(ctx, domain.InputText, uc.config.TextTimeout)
	if err != nil {
		return err
	}

	text := strings.TrimSpace(in.Value)
	if uc.isSkip(text) {
		text = ""
	}
	f.draft.Conditions = text
	f.state = domain.DialogComplete
	return nil
}

func (uc *DialogUsecase) isSkip(text string) bool {
	for _, w := range uc.catalog.Messages.SkipWords {
		if strings.EqualFold(text, w) {
			return true
		}
	}
	return false
}
