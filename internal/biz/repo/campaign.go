package repo

import (
	"context"

	"github.com/recruitbot/recruit-bot/internal/biz/domain"
)

// CampaignDocRepo is the durable campaign document interface
// The whole set of active campaigns is loaded and saved as one document
type CampaignDocRepo interface {
	// Load reads the stored document. A missing document yields an empty map.
	Load(ctx context.Context) (map[string]*domain.Campaign, error)

	// Save replaces the stored document
	Save(ctx context.Context, campaigns map[string]*domain.Campaign) error

	// Close releases the underlying storage
	Close() error
}
