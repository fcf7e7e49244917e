package usecase

import (
	"context"
	"log/slog"

	"github.com/recruitbot/recruit-bot/internal/biz/domain"
	"github.com/recruitbot/recruit-bot/internal/biz/repo"
)

// PublishedAnnouncement is the result of a successful publish
type PublishedAnnouncement struct {
	ChannelID string
	MessageID string
	Text      string
}

// AnnouncementUsecase publishes campaign announcements.
// Publish is not idempotent: callers invoke it once per completed draft.
type AnnouncementUsecase struct {
	platform repo.PlatformRepo
	renderer *Renderer
	log      *slog.Logger
}

// NewAnnouncementUsecase creates a new announcement usecase
func NewAnnouncementUsecase(platform repo.PlatformRepo, renderer *Renderer, log *slog.Logger) *AnnouncementUsecase {
	return &AnnouncementUsecase{
		platform: platform,
		renderer: renderer,
		log:      log.With("component", "publisher"),
	}
}

// Publish renders the draft, sends it with the optional banner and attaches
// the acknowledgment marker
func (uc *AnnouncementUsecase) Publish(ctx context.Context, ctype *domain.CampaignType, draft *domain.CampaignDraft) (*PublishedAnnouncement, error) {
	text, err := uc.renderer.Announcement(ctype, draft)
	if err != nil {
		return nil, err
	}

	msgID, err := uc.platform.SendMessage(ctx, draft.ChannelID, repo.Outbound{
		Text:     text,
		ImageURL: ctype.BannerURL,
	})
	if err != nil {
		return nil, domain.Classify(domain.ErrChannelUnavailable, err, "send announcement to %s", draft.ChannelID)
	}

	if err := uc.platform.AddReaction(ctx, draft.ChannelID, msgID, domain.AckEmoji); err != nil {
		// The announcement is out; members can still add the marker themselves.
		uc.log.Warn("attach acknowledgment marker failed", "message", msgID, "error", err)
	}

	uc.log.Info("announcement published", "type", ctype.ID, "channel", draft.ChannelID, "message", msgID)
	return &PublishedAnnouncement{
		ChannelID: draft.ChannelID,
		MessageID: msgID,
		Text:      text,
	}, nil
}
