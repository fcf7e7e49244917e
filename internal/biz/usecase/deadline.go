package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/recruitbot/recruit-bot/internal/biz/domain"
	"github.com/recruitbot/recruit-bot/internal/biz/repo"
)

// DeadlineConfig represents deadline scheduling configuration
type DeadlineConfig struct {
	Period   time.Duration // polling granularity, also the firing window width
	Reminder domain.ReminderPolicy
}

// TickResult summarizes one tick
type TickResult struct {
	Reminded []string // campaign type ids
	Closed   []string
	Retired  []string // expired without a notice
}

// DeadlineUsecase fires reminders and closing notices. A notice fires at most
// once, on the tick whose window [instant, instant+Period) contains now.
// A tick missed entirely (process down) skips that notice for good.
type DeadlineUsecase struct {
	catalog  *domain.Catalog
	store    *CampaignStore
	platform repo.PlatformRepo
	renderer *Renderer
	config   DeadlineConfig
	log      *slog.Logger
}

// NewDeadlineUsecase creates a new deadline usecase
func NewDeadlineUsecase(
	catalog *domain.Catalog,
	store *CampaignStore,
	platform repo.PlatformRepo,
	renderer *Renderer,
	config DeadlineConfig,
	log *slog.Logger,
) *DeadlineUsecase {
	if config.Period <= 0 {
		config.Period = time.Minute
	}
	return &DeadlineUsecase{
		catalog:  catalog,
		store:    store,
		platform: platform,
		renderer: renderer,
		config:   config,
		log:      log.With("component", "deadline"),
	}
}

// Period returns the polling period
func (uc *DeadlineUsecase) Period() time.Duration {
	return uc.config.Period
}

// Tick evaluates every stored campaign at now. Failures on one campaign are
// logged and do not stop the others.
func (uc *DeadlineUsecase) Tick(ctx context.Context, now time.Time) TickResult {
	var result TickResult

	for _, c := range uc.store.All() {
		typeID := c.CampaignTypeID
		closeWin := c.CloseWindow(uc.config.Period)

		if closeWin.Passed(now) {
			if uc.retire(ctx, c) {
				result.Retired = append(result.Retired, typeID)
			}
			continue
		}
		if !c.IsPublished() {
			continue
		}

		ctype, ok := uc.catalog.Type(typeID)
		if !ok {
			uc.log.Warn("campaign type no longer in catalog", "type", typeID)
			continue
		}

		if !c.ReminderFired && c.ReminderWindow(uc.config.Reminder, uc.config.Period).Contains(now) {
			if uc.remind(ctx, ctype, c) {
				result.Reminded = append(result.Reminded, typeID)
			}
		}

		if !c.DeadlineFired && closeWin.Contains(now) {
			if uc.close(ctx, ctype, c) {
				result.Closed = append(result.Closed, typeID)
			}
		}
	}

	return result
}

func (uc *DeadlineUsecase) remind(ctx context.Context, ctype *domain.CampaignType, c *domain.Campaign) bool {
	text, err := uc.renderer.Reminder(ctype, c)
	if err != nil {
		uc.log.Error("render reminder failed", "type", ctype.ID, "error", err)
		return false
	}
	if _, err := uc.platform.SendMessage(ctx, c.ChannelID, repo.Outbound{Text: text}); err != nil {
		uc.log.Warn("send reminder failed", "type", ctype.ID, "channel", c.ChannelID, "error", err)
		return false
	}

	_, err = uc.store.Mutate(ctx, ctype.ID, func(cur *domain.Campaign) Mutation {
		if cur.AnnouncementMessageID != c.AnnouncementMessageID {
			return MutationNone
		}
		cur.ReminderFired = true
		return MutationSave
	})
	if err != nil {
		uc.log.Warn("persist reminder flag failed", "type", ctype.ID, "error", err)
	}

	uc.log.Info("reminder sent", "type", ctype.ID, "deadline", c.Deadline)
	return true
}

func (uc *DeadlineUsecase) close(ctx context.Context, ctype *domain.CampaignType, c *domain.Campaign) bool {
	text, err := uc.renderer.Closing(ctype, c)
	if err != nil {
		uc.log.Error("render closing notice failed", "type", ctype.ID, "error", err)
		return false
	}
	if _, err := uc.platform.SendMessage(ctx, c.ChannelID, repo.Outbound{Text: text}); err != nil {
		uc.log.Warn("send closing notice failed", "type", ctype.ID, "channel", c.ChannelID, "error", err)
		return false
	}

	// Flag and delete in one step; the record is no longer active.
	_, err = uc.store.Mutate(ctx, ctype.ID, func(cur *domain.Campaign) Mutation {
		if cur.AnnouncementMessageID != c.AnnouncementMessageID {
			return MutationNone
		}
		cur.DeadlineFired = true
		return MutationDelete
	})
	if err != nil {
		uc.log.Warn("persist campaign retirement failed", "type", ctype.ID, "error", err)
	}

	uc.log.Info("campaign closed", "type", ctype.ID, "deadline", c.Deadline)
	return true
}

func (uc *DeadlineUsecase) retire(ctx context.Context, c *domain.Campaign) bool {
	changed, err := uc.store.Mutate(ctx, c.CampaignTypeID, func(cur *domain.Campaign) Mutation {
		if cur.AnnouncementMessageID != c.AnnouncementMessageID || !cur.Deadline.Equal(c.Deadline) {
			return MutationNone
		}
		return MutationDelete
	})
	if err != nil {
		uc.log.Warn("persist campaign retirement failed", "type", c.CampaignTypeID, "error", err)
	}
	if changed {
		uc.log.Info("expired campaign retired without notice", "type", c.CampaignTypeID, "deadline", c.Deadline)
	}
	return changed
}
