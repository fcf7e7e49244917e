package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recruitbot/recruit-bot/internal/biz/domain"
)

func newTestMembership(t *testing.T, platform *mockPlatformRepo) (*MembershipUsecase, *CampaignStore) {
	t.Helper()
	store := NewCampaignStore(newMockDocRepo(), testLogger())
	uc := NewMembershipUsecase(testCatalog(), store, platform, time.Second, testLogger())
	return uc, store
}

func ackEvent(messageID, userID string, dir domain.AckDirection) domain.AckEvent {
	return domain.AckEvent{MessageID: messageID, ChannelID: "c1", GuildID: "guild-1", UserID: userID, Direction: dir}
}

func TestOnAcknowledgmentChanged_GrantRevokeIdempotent(t *testing.T) {
	ctx := context.Background()
	platform := newMockPlatformRepo()
	uc, store := newTestMembership(t, platform)
	require.NoError(t, store.Put(ctx, "beta", testCampaign("beta", "m1", time.Now())))

	require.NoError(t, uc.OnAcknowledgmentChanged(ctx, ackEvent("m1", "u1", domain.AckAdd)))
	assert.True(t, platform.hasRole("u1", "role-beta"))
	assert.Equal(t, 1, platform.grantCalls)

	// Already held: no platform call
	require.NoError(t, uc.OnAcknowledgmentChanged(ctx, ackEvent("m1", "u1", domain.AckAdd)))
	assert.Equal(t, 1, platform.grantCalls)

	require.NoError(t, uc.OnAcknowledgmentChanged(ctx, ackEvent("m1", "u1", domain.AckRemove)))
	assert.False(t, platform.hasRole("u1", "role-beta"))
	assert.Equal(t, 1, platform.revokeCalls)

	// Already absent: no platform call
	require.NoError(t, uc.OnAcknowledgmentChanged(ctx, ackEvent("m1", "u1", domain.AckRemove)))
	assert.Equal(t, 1, platform.revokeCalls)
}

func TestOnAcknowledgmentChanged_Ignored(t *testing.T) {
	ctx := context.Background()
	platform := newMockPlatformRepo()
	uc, store := newTestMembership(t, platform)
	// alpha has no grant role
	require.NoError(t, store.Put(ctx, "alpha", testCampaign("alpha", "m1", time.Now())))
	require.NoError(t, store.Put(ctx, "beta", testCampaign("beta", "m2", time.Now())))

	require.NoError(t, uc.OnAcknowledgmentChanged(ctx, ackEvent("m1", "u1", domain.AckAdd)))
	require.NoError(t, uc.OnAcknowledgmentChanged(ctx, ackEvent("unrelated", "u1", domain.AckAdd)))

	assert.Equal(t, 0, platform.grantCalls)
	assert.False(t, platform.hasRole("u1", "role-beta"))
}

func TestOnAcknowledgmentChanged_ResolvesGuildFromChannel(t *testing.T) {
	ctx := context.Background()
	platform := newMockPlatformRepo()
	uc, store := newTestMembership(t, platform)
	c := testCampaign("beta", "m1", time.Now())
	c.GuildID = ""
	require.NoError(t, store.Put(ctx, "beta", c))

	ev := ackEvent("m1", "u1", domain.AckAdd)
	ev.GuildID = ""
	require.NoError(t, uc.OnAcknowledgmentChanged(ctx, ev))
	assert.True(t, platform.hasRole("u1", "role-beta"))
}

func TestSupersede_RevokesAcknowledgedUsers(t *testing.T) {
	ctx := context.Background()
	platform := newMockPlatformRepo()
	uc, _ := newTestMembership(t, platform)

	for _, u := range []string{"u1", "u2", "u3"} {
		platform.setRole(u, "role-beta")
	}
	platform.setRole("u4", "role-beta") // did not acknowledge the old announcement
	platform.ackUsers["m1"] = []string{"u1", "u2", "u3", "u5"}
	platform.revokeErrFor["u2"] = errBoom

	revoked, err := uc.Supersede(ctx, testCampaign("beta", "m1", time.Now()))
	require.NoError(t, err)
	assert.Equal(t, 2, revoked)

	assert.False(t, platform.hasRole("u1", "role-beta"))
	assert.True(t, platform.hasRole("u2", "role-beta"), "failure is skipped, not retried")
	assert.False(t, platform.hasRole("u3", "role-beta"))
	assert.True(t, platform.hasRole("u4", "role-beta"))
}

func TestSupersede_FallsBackToRoleHolders(t *testing.T) {
	ctx := context.Background()
	platform := newMockPlatformRepo()
	uc, _ := newTestMembership(t, platform)

	platform.setRole("u1", "role-beta")
	platform.setRole("u2", "role-beta")
	platform.reactionsErr = errBoom

	revoked, err := uc.Supersede(ctx, testCampaign("beta", "m1", time.Now()))
	require.NoError(t, err)
	assert.Equal(t, 2, revoked)
	assert.False(t, platform.hasRole("u1", "role-beta"))
	assert.False(t, platform.hasRole("u2", "role-beta"))
}

func TestSupersede_NoOp(t *testing.T) {
	ctx := context.Background()
	platform := newMockPlatformRepo()
	uc, _ := newTestMembership(t, platform)
	platform.setRole("u1", "role-beta")
	platform.ackUsers["m1"] = []string{"u1"}

	tests := []struct {
		name string
		prev *domain.Campaign
	}{
		{"nil", nil},
		{"unpublished", testCampaign("beta", "", time.Now())},
		{"no grant role", testCampaign("alpha", "m1", time.Now())},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			revoked, err := uc.Supersede(ctx, tt.prev)
			require.NoError(t, err)
			assert.Equal(t, 0, revoked)
		})
	}
	assert.True(t, platform.hasRole("u1", "role-beta"))
}

func TestSupersede_DetachesAnnouncement(t *testing.T) {
	ctx := context.Background()
	platform := newMockPlatformRepo()
	uc, store := newTestMembership(t, platform)

	prev := testCampaign("beta", "m1", time.Now())
	require.NoError(t, store.Put(ctx, "beta", prev))

	_, err := uc.Supersede(ctx, prev)
	require.NoError(t, err)

	assert.Nil(t, store.FindByAnnouncement("m1"))
	assert.Empty(t, store.Get("beta").AnnouncementMessageID)

	require.NoError(t, uc.OnAcknowledgmentChanged(ctx, ackEvent("m1", "u1", domain.AckAdd)))
	assert.Equal(t, 0, platform.grantCalls)
}
