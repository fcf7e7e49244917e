package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/recruitbot/recruit-bot/internal/biz/domain"
	"github.com/recruitbot/recruit-bot/internal/biz/repo"
)

// MembershipUsecase keeps membership grants in sync with acknowledgments
type MembershipUsecase struct {
	catalog  *domain.Catalog
	store    *CampaignStore
	platform repo.PlatformRepo
	log      *slog.Logger

	// Held shared by ack handlers, exclusively while an announcement is
	// detached, so no grant lands on an announcement being superseded.
	syncMu sync.RWMutex

	supersedeTimeout time.Duration
}

// NewMembershipUsecase creates a new membership usecase
func NewMembershipUsecase(
	catalog *domain.Catalog,
	store *CampaignStore,
	platform repo.PlatformRepo,
	supersedeTimeout time.Duration,
	log *slog.Logger,
) *MembershipUsecase {
	if supersedeTimeout <= 0 {
		supersedeTimeout = 30 * time.Second
	}
	return &MembershipUsecase{
		catalog:          catalog,
		store:            store,
		platform:         platform,
		supersedeTimeout: supersedeTimeout,
		log:              log.With("component", "membership"),
	}
}

// OnAcknowledgmentChanged grants or revokes the campaign's role for one user.
// Events on messages that are not a tracked announcement are ignored.
func (uc *MembershipUsecase) OnAcknowledgmentChanged(ctx context.Context, ev domain.AckEvent) error {
	uc.syncMu.RLock()
	defer uc.syncMu.RUnlock()

	c := uc.store.FindByAnnouncement(ev.MessageID)
	if c == nil {
		return nil
	}
	ctype, ok := uc.catalog.Type(c.CampaignTypeID)
	if !ok || !ctype.HasGrant() {
		return nil
	}

	guildID := ev.GuildID
	if guildID == "" {
		guildID = c.GuildID
	}
	if guildID == "" {
		var err error
		if guildID, err = uc.platform.ChannelGuild(ctx, c.ChannelID); err != nil {
			return domain.Classify(domain.ErrChannelUnavailable, err, "resolve guild of %s", c.ChannelID)
		}
	}

	switch ev.Direction {
	case domain.AckAdd:
		return uc.grant(ctx, guildID, ev.UserID, ctype)
	case domain.AckRemove:
		_, err := uc.revoke(ctx, guildID, ev.UserID, ctype)
		return err
	}
	return nil
}

// Supersede detaches prev's announcement from the store, so later
// acknowledgments on it are ignored, and then revokes the grants tied to it.
// It must run before the replacing campaign is stored. Per-user failures are
// logged and skipped; the returned count is the number of roles actually
// removed.
func (uc *MembershipUsecase) Supersede(ctx context.Context, prev *domain.Campaign) (int, error) {
	if prev == nil || !prev.IsPublished() {
		return 0, nil
	}
	ctype, ok := uc.catalog.Type(prev.CampaignTypeID)
	if !ok || !ctype.HasGrant() {
		return 0, nil
	}
	uc.detach(ctx, prev)

	ctx, cancel := context.WithTimeout(ctx, uc.supersedeTimeout)
	defer cancel()

	guildID := prev.GuildID
	if guildID == "" {
		var err error
		if guildID, err = uc.platform.ChannelGuild(ctx, prev.ChannelID); err != nil {
			return 0, domain.Classify(domain.ErrChannelUnavailable, err, "resolve guild of %s", prev.ChannelID)
		}
	}

	users, err := uc.platform.ReactionUsers(ctx, prev.ChannelID, prev.AnnouncementMessageID, domain.AckEmoji)
	if err != nil {
		// Old announcement is gone; fall back to everyone holding the role.
		uc.log.Warn("list acknowledgments failed, revoking from all role holders",
			"type", ctype.ID, "message", prev.AnnouncementMessageID, "error", err)
		users, err = uc.platform.RoleHolders(ctx, guildID, ctype.GrantRoleID)
		if err != nil {
			return 0, domain.Classify(domain.ErrPlatformUnavailable, err, "list holders of role %s", ctype.GrantRoleID)
		}
	}

	revoked := 0
	for i, userID := range users {
		if ctx.Err() != nil {
			uc.log.Warn("supersede interrupted", "type", ctype.ID, "revoked", revoked, "remaining", len(users)-i)
			break
		}
		changed, err := uc.revoke(ctx, guildID, userID, ctype)
		if err != nil {
			uc.log.Warn("revoke failed, skipping user", "type", ctype.ID, "user", userID, "error", err)
			continue
		}
		if changed {
			revoked++
		}
	}

	uc.log.Info("previous grants revoked", "type", ctype.ID, "message", prev.AnnouncementMessageID, "users", revoked)
	return revoked, nil
}

// detach clears prev's announcement id in the store. Taking syncMu
// exclusively waits out acknowledgments already being applied, so their
// reactions are visible to the listing that follows.
func (uc *MembershipUsecase) detach(ctx context.Context, prev *domain.Campaign) {
	uc.syncMu.Lock()
	defer uc.syncMu.Unlock()

	_, err := uc.store.Mutate(ctx, prev.CampaignTypeID, func(cur *domain.Campaign) Mutation {
		if cur.AnnouncementMessageID != prev.AnnouncementMessageID {
			return MutationNone
		}
		cur.AnnouncementMessageID = ""
		return MutationSave
	})
	if err != nil {
		uc.log.Warn("persist detached announcement failed", "type", prev.CampaignTypeID, "error", err)
	}
}

func (uc *MembershipUsecase) grant(ctx context.Context, guildID, userID string, ctype *domain.CampaignType) error {
	has, err := uc.platform.HasRole(ctx, guildID, userID, ctype.GrantRoleID)
	if err != nil {
		return domain.Classify(domain.ErrMemberUnavailable, err, "look up member %s", userID)
	}
	if has {
		return nil
	}
	if err := uc.platform.GrantRole(ctx, guildID, userID, ctype.GrantRoleID); err != nil {
		return domain.Classify(domain.ErrPlatformUnavailable, err, "grant role %s to %s", ctype.GrantRoleID, userID)
	}
	uc.log.Info("role granted", "type", ctype.ID, "user", userID)
	return nil
}

// revoke reports whether the role was actually removed
func (uc *MembershipUsecase) revoke(ctx context.Context, guildID, userID string, ctype *domain.CampaignType) (bool, error) {
	has, err := uc.platform.HasRole(ctx, guildID, userID, ctype.GrantRoleID)
	if err != nil {
		return false, domain.Classify(domain.ErrMemberUnavailable, err, "look up member %s", userID)
	}
	if !has {
		return false, nil
	}
	if err := uc.platform.RevokeRole(ctx, guildID, userID, ctype.GrantRoleID); err != nil {
		return false, domain.Classify(domain.ErrPlatformUnavailable, err, "revoke role %s from %s", ctype.GrantRoleID, userID)
	}
	uc.log.Info("role revoked", "type", ctype.ID, "user", userID)
	return true, nil
}
