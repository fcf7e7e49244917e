package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/recruitbot/recruit-bot/internal/biz/domain"
	"github.com/recruitbot/recruit-bot/internal/biz/repo"
)

// CampaignUsecase runs the campaign lifecycle:
// dialog -> supersede -> store -> publish -> store
type CampaignUsecase struct {
	catalog      *domain.Catalog
	store        *CampaignStore
	dialog       *DialogUsecase
	announcement *AnnouncementUsecase
	membership   *MembershipUsecase
	renderer     *Renderer
	log          *slog.Logger

	launchMu sync.Mutex // supersede-then-store is one critical section
	now      func() time.Time
}

// NewCampaignUsecase creates a new campaign usecase
func NewCampaignUsecase(
	catalog *domain.Catalog,
	store *CampaignStore,
	dialog *DialogUsecase,
	announcement *AnnouncementUsecase,
	membership *MembershipUsecase,
	renderer *Renderer,
	log *slog.Logger,
) *CampaignUsecase {
	return &CampaignUsecase{
		catalog:      catalog,
		store:        store,
		dialog:       dialog,
		announcement: announcement,
		membership:   membership,
		renderer:     renderer,
		log:          log.With("component", "campaign"),
		now:          time.Now,
	}
}

// Launch runs a configuration dialog for inv and, once it completes,
// replaces the active campaign of the type with the new one. Failures are
// reported to the initiator through responder and returned.
func (uc *CampaignUsecase) Launch(ctx context.Context, inv domain.Invocation, responder repo.Responder) (*domain.Campaign, error) {
	draft, err := uc.dialog.RunConfigurationFlow(ctx, inv, responder)
	if err != nil {
		uc.report(ctx, responder, DescribeError(err))
		return nil, err
	}

	ctype, _ := uc.catalog.Type(draft.CampaignTypeID)

	c, err := uc.activate(ctx, ctype, draft)
	if err != nil {
		uc.log.Error("launch failed", "type", ctype.ID, "error", err)
		uc.report(ctx, responder, DescribeError(err))
		return nil, err
	}

	text, err := uc.renderer.Created(ctype, c)
	if err != nil {
		uc.log.Warn("render confirmation failed", "type", ctype.ID, "error", err)
		text = "OK"
	}
	uc.report(ctx, responder, text)
	return c, nil
}

// activate supersedes the previous campaign of the type, stores the new one
// and publishes its announcement, putting the previous one back if publishing
// fails
func (uc *CampaignUsecase) activate(ctx context.Context, ctype *domain.CampaignType, draft *domain.CampaignDraft) (*domain.Campaign, error) {
	uc.launchMu.Lock()
	defer uc.launchMu.Unlock()

	prev := uc.store.Get(ctype.ID)
	if prev != nil {
		revoked, err := uc.membership.Supersede(ctx, prev)
		if err != nil {
			// Grants may be left on the old announcement; the new campaign still goes out.
			uc.log.Warn("supersede incomplete", "type", ctype.ID, "revoked", revoked, "error", err)
		}
	}

	c := domain.NewCampaign(draft, uc.now())
	if err := uc.store.Put(ctx, ctype.ID, c); err != nil {
		uc.log.Warn("campaign stored in memory only", "type", ctype.ID, "error", err)
	}

	published, err := uc.announcement.Publish(ctx, ctype, draft)
	if err != nil {
		uc.restore(ctx, ctype.ID, prev)
		return nil, err
	}

	c.AnnouncementMessageID = published.MessageID
	if err := uc.store.Put(ctx, ctype.ID, c); err != nil {
		uc.log.Warn("campaign stored in memory only", "type", ctype.ID, "error", err)
	}

	uc.log.Info("campaign launched", "type", ctype.ID, "message", published.MessageID, "deadline", c.Deadline)
	return c.Clone(), nil
}

// restore puts prev back after a failed publish so its announcement keeps
// its reminder and closing notice. Grants revoked by the supersede stay
// revoked; members re-acknowledging get them back.
func (uc *CampaignUsecase) restore(ctx context.Context, typeID string, prev *domain.Campaign) {
	var err error
	if prev != nil {
		err = uc.store.Put(ctx, typeID, prev)
	} else {
		err = uc.store.Delete(ctx, typeID)
	}
	if err != nil {
		uc.log.Warn("restore after failed publish not persisted", "type", typeID, "error", err)
	}
}

func (uc *CampaignUsecase) report(ctx context.Context, responder repo.Responder, text string) {
	if err := responder.Report(ctx, text); err != nil {
		uc.log.Warn("report to initiator failed", "error", err)
	}
}

// DescribeError maps an error to the message shown to the initiator
func DescribeError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrInvalidDate):
		return "⚠️ 日付形式が正しくありません。YYYY-MM-DDで入力してください。"
	case errors.Is(err, domain.ErrFlowInProgress):
		return "⚠️ 募集設定がすでに進行中です。"
	case errors.Is(err, domain.ErrTemplateUnavailable), errors.Is(err, domain.ErrTemplateMissing):
		return "⚠️ このテンプレートは使用できません。"
	case errors.Is(err, domain.ErrUnknownCampaignType):
		return "⚠️ 不明な大会種別です。"
	case errors.Is(err, domain.ErrDialogTimeout):
		return "⌛ 時間切れです。もう一度コマンドを実行してください。"
	case errors.Is(err, domain.ErrChannelUnavailable):
		return "⚠️ このチャンネルに募集メッセージを送信できませんでした。"
	case errors.Is(err, domain.ErrPlatformUnavailable):
		return "⚠️ Discordとの通信に失敗しました。"
	case errors.Is(err, domain.ErrPersistence):
		return "⚠️ 募集の保存に失敗しました。"
	default:
		return "⚠️ エラーが発生しました。"
	}
}
