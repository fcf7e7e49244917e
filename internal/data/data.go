package data

import (
	"github.com/cockroachdb/errors"

	"github.com/recruitbot/recruit-bot/internal/biz/repo"
	"github.com/recruitbot/recruit-bot/internal/infra/discord"
)

// Store drivers
const (
	DriverJSON   = "json"
	DriverSQLite = "sqlite"
)

// Repositories contains all repositories
type Repositories struct {
	Platform repo.PlatformRepo
	Campaign repo.CampaignDocRepo
}

// NewRepositories creates all repositories
func NewRepositories(discordClient *discord.Client, storeDriver, storePath string) (*Repositories, error) {
	campaignRepo, err := NewCampaignDocRepo(storeDriver, storePath)
	if err != nil {
		return nil, err
	}

	return &Repositories{
		Platform: NewDiscordRepo(discordClient),
		Campaign: campaignRepo,
	}, nil
}

// NewCampaignDocRepo opens the campaign document store for driver
func NewCampaignDocRepo(driver, path string) (repo.CampaignDocRepo, error) {
	switch driver {
	case DriverJSON, "":
		return NewCampaignJSONRepo(path)
	case DriverSQLite:
		return NewCampaignSQLiteRepo(path)
	default:
		return nil, errors.Newf("unknown store driver %q", driver)
	}
}

// Close releases repository resources
func (r *Repositories) Close() error {
	return r.Campaign.Close()
}
