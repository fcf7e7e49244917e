package data

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/recruitbot/recruit-bot/internal/biz/domain"
	"github.com/recruitbot/recruit-bot/internal/biz/repo"
)

// campaignJSONRepo stores the campaign set as one JSON document
type campaignJSONRepo struct {
	path string
	mu   sync.Mutex
}

// NewCampaignJSONRepo creates a JSON file campaign repository
func NewCampaignJSONRepo(path string) (repo.CampaignDocRepo, error) {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrap(err, "create store directory")
	}
	return &campaignJSONRepo{path: path}, nil
}

// Load reads the document. A missing or empty file is an empty set.
func (r *campaignJSONRepo) Load(ctx context.Context) (map[string]*domain.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]*domain.Campaign{}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", r.path)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]*domain.Campaign{}, nil
	}

	var campaigns map[string]*domain.Campaign
	if err := json.Unmarshal(data, &campaigns); err != nil {
		return nil, errors.Wrapf(err, "decode %s", r.path)
	}
	if campaigns == nil {
		campaigns = map[string]*domain.Campaign{}
	}
	return campaigns, nil
}

// Save writes the document to a temp file and renames it into place
func (r *campaignJSONRepo) Save(ctx context.Context, campaigns map[string]*domain.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if campaigns == nil {
		campaigns = map[string]*domain.Campaign{}
	}
	data, err := json.MarshalIndent(campaigns, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode campaigns")
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "write %s", tmpName)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "sync %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "close %s", tmpName)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		return errors.Wrapf(err, "rename to %s", r.path)
	}
	return nil
}

// Close is a no-op
func (r *campaignJSONRepo) Close() error {
	return nil
}
