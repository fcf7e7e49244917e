package data

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recruitbot/recruit-bot/internal/biz/domain"
	"github.com/recruitbot/recruit-bot/internal/biz/repo"
)

func sampleCampaigns() map[string]*domain.Campaign {
	jst := time.FixedZone("JST", 9*60*60)
	return map[string]*domain.Campaign{
		"nrc": {
			CampaignTypeID:        "nrc",
			Deadline:              time.Date(2025, 9, 20, 0, 0, 0, 0, jst),
			PatternID:             "2",
			Conditions:            "9 players",
			ChannelID:             "c1",
			GuildID:               "g1",
			InitiatorID:           "u1",
			AnnouncementMessageID: "m1",
			ReminderFired:         true,
			CreatedAt:             time.Date(2025, 9, 1, 10, 0, 0, 0, jst),
		},
		"league": {
			CampaignTypeID: "league",
			Deadline:       time.Date(2025, 10, 1, 0, 0, 0, 0, jst),
			PatternID:      "1",
			ChannelID:      "c2",
		},
	}
}

func openDocRepo(t *testing.T, driver string) (repo.CampaignDocRepo, string) {
	t.Helper()
	name := "tasks.json"
	if driver == DriverSQLite {
		name = "campaigns.db"
	}
	path := filepath.Join(t.TempDir(), "nested", name)
	r, err := NewCampaignDocRepo(driver, path)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r, path
}

func TestCampaignDocRepo_RoundTrip(t *testing.T) {
	for _, driver := range []string{DriverJSON, DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			r, _ := openDocRepo(t, driver)

			empty, err := r.Load(ctx)
			require.NoError(t, err)
			assert.Empty(t, empty)

			want := sampleCampaigns()
			require.NoError(t, r.Save(ctx, want))

			got, err := r.Load(ctx)
			require.NoError(t, err)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("Load() mismatch (-want +got):\n%s", diff)
			}

			// Save replaces the whole set
			delete(want, "league")
			require.NoError(t, r.Save(ctx, want))
			got, err = r.Load(ctx)
			require.NoError(t, err)
			assert.Len(t, got, 1)
			assert.Contains(t, got, "nrc")
		})
	}
}

func TestCampaignJSONRepo_EmptyFile(t *testing.T) {
	r, path := openDocRepo(t, DriverJSON)
	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0644))

	got, err := r.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCampaignJSONRepo_CorruptFile(t *testing.T) {
	r, path := openDocRepo(t, DriverJSON)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := r.Load(context.Background())
	assert.Error(t, err)
}

func TestCampaignJSONRepo_NoTempFilesLeft(t *testing.T) {
	ctx := context.Background()
	r, path := openDocRepo(t, DriverJSON)
	require.NoError(t, r.Save(ctx, sampleCampaigns()))
	require.NoError(t, r.Save(ctx, nil))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, filepath.Base(path), entries[0].Name())

	got, err := r.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCampaignSQLiteRepo_SkipsUndecodableRows(t *testing.T) {
	ctx := context.Background()
	r, _ := openDocRepo(t, DriverSQLite)
	require.NoError(t, r.Save(ctx, sampleCampaigns()))

	sqlRepo := r.(*campaignSQLiteRepo)
	_, err := sqlRepo.db.ExecContext(ctx, `UPDATE campaigns SET doc = '{broken' WHERE type_id = 'league'`)
	require.NoError(t, err)

	got, err := r.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, "nrc", got["nrc"].CampaignTypeID)
}

func TestNewCampaignDocRepo_UnknownDriver(t *testing.T) {
	_, err := NewCampaignDocRepo("redis", filepath.Join(t.TempDir(), "x"))
	assert.Error(t, err)
}
