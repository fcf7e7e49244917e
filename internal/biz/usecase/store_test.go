package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recruitbot/recruit-bot/internal/biz/domain"
)

func testCampaign(typeID, messageID string, deadline time.Time) *domain.Campaign {
	return &domain.Campaign{
		CampaignTypeID:        typeID,
		Deadline:              deadline,
		PatternID:             "1",
		ChannelID:             "c1",
		GuildID:               "guild-1",
		AnnouncementMessageID: messageID,
	}
}

func TestCampaignStore_PutGetCopies(t *testing.T) {
	ctx := context.Background()
	docRepo := newMockDocRepo()
	store := NewCampaignStore(docRepo, testLogger())

	c := testCampaign("alpha", "m1", time.Date(2025, 9, 20, 0, 0, 0, 0, jst))
	require.NoError(t, store.Put(ctx, "alpha", c))

	// Mutating the caller's value or a returned copy does not leak in
	c.PatternID = "changed"
	got := store.Get("alpha")
	require.NotNil(t, got)
	assert.Equal(t, "1", got.PatternID)
	got.ReminderFired = true
	assert.False(t, store.Get("alpha").ReminderFired)

	// Flushed synchronously
	if diff := cmp.Diff(store.Get("alpha"), docRepo.saved("alpha")); diff != "" {
		t.Errorf("saved document mismatch (-store +saved):\n%s", diff)
	}

	assert.Nil(t, store.Get("beta"))
}

func TestCampaignStore_LoadDegradesToEmpty(t *testing.T) {
	docRepo := newMockDocRepo()
	docRepo.loadErr = errBoom
	store := NewCampaignStore(docRepo, testLogger())

	loaded := store.Load(context.Background())
	assert.Empty(t, loaded)
	assert.Empty(t, store.All())
}

func TestCampaignStore_LoadRestoresTypeIDs(t *testing.T) {
	docRepo := newMockDocRepo()
	docRepo.doc["alpha"] = &domain.Campaign{AnnouncementMessageID: "m1"}
	store := NewCampaignStore(docRepo, testLogger())

	store.Load(context.Background())
	got := store.Get("alpha")
	require.NotNil(t, got)
	assert.Equal(t, "alpha", got.CampaignTypeID)
}

func TestCampaignStore_SaveFailureKeepsMemory(t *testing.T) {
	ctx := context.Background()
	docRepo := newMockDocRepo()
	docRepo.saveErr = errBoom
	store := NewCampaignStore(docRepo, testLogger())

	err := store.Put(ctx, "alpha", testCampaign("alpha", "m1", time.Now()))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrPersistence))
	assert.NotNil(t, store.Get("alpha"))

	// The next mutation saves the whole set again
	docRepo.saveErr = nil
	require.NoError(t, store.Put(ctx, "beta", testCampaign("beta", "m2", time.Now())))
	assert.NotNil(t, docRepo.saved("alpha"))
	assert.NotNil(t, docRepo.saved("beta"))
}

func TestCampaignStore_Mutate(t *testing.T) {
	ctx := context.Background()
	docRepo := newMockDocRepo()
	store := NewCampaignStore(docRepo, testLogger())
	require.NoError(t, store.Put(ctx, "alpha", testCampaign("alpha", "m1", time.Now())))

	changed, err := store.Mutate(ctx, "alpha", func(c *domain.Campaign) Mutation {
		c.ReminderFired = true
		return MutationSave
	})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, store.Get("alpha").ReminderFired)
	assert.True(t, docRepo.saved("alpha").ReminderFired)

	saves := docRepo.saves
	changed, err = store.Mutate(ctx, "alpha", func(c *domain.Campaign) Mutation {
		c.DeadlineFired = true
		return MutationNone
	})
	require.NoError(t, err)
	assert.False(t, changed)
	assert.False(t, store.Get("alpha").DeadlineFired)
	assert.Equal(t, saves, docRepo.saves)

	changed, err = store.Mutate(ctx, "alpha", func(c *domain.Campaign) Mutation { return MutationDelete })
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Nil(t, store.Get("alpha"))
	assert.Nil(t, docRepo.saved("alpha"))

	called := false
	changed, err = store.Mutate(ctx, "missing", func(c *domain.Campaign) Mutation {
		called = true
		return MutationSave
	})
	require.NoError(t, err)
	assert.False(t, changed)
	assert.False(t, called)
}

func TestCampaignStore_FindByAnnouncement(t *testing.T) {
	ctx := context.Background()
	store := NewCampaignStore(newMockDocRepo(), testLogger())
	require.NoError(t, store.Put(ctx, "alpha", testCampaign("alpha", "m1", time.Now())))
	require.NoError(t, store.Put(ctx, "beta", testCampaign("beta", "", time.Now())))

	got := store.FindByAnnouncement("m1")
	require.NotNil(t, got)
	assert.Equal(t, "alpha", got.CampaignTypeID)

	assert.Nil(t, store.FindByAnnouncement(""))
	assert.Nil(t, store.FindByAnnouncement("m9"))
}

func TestCampaignStore_AllOrderedAndDelete(t *testing.T) {
	ctx := context.Background()
	store := NewCampaignStore(newMockDocRepo(), testLogger())
	require.NoError(t, store.Put(ctx, "beta", testCampaign("beta", "m2", time.Now())))
	require.NoError(t, store.Put(ctx, "alpha", testCampaign("alpha", "m1", time.Now())))

	all := store.All()
	require.Len(t, all, 2)
	assert.Equal(t, "alpha", all[0].CampaignTypeID)
	assert.Equal(t, "beta", all[1].CampaignTypeID)

	require.NoError(t, store.Delete(ctx, "alpha"))
	require.NoError(t, store.Delete(ctx, "alpha"))
	assert.Len(t, store.All(), 1)
}
