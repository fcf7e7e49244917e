package usecase

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/recruitbot/recruit-bot/internal/biz/domain"
	"github.com/recruitbot/recruit-bot/internal/biz/repo"
)

// Mutation is the outcome of a Mutate callback
type Mutation int

const (
	MutationNone Mutation = iota
	MutationSave
	MutationDelete
)

// CampaignStore owns the active campaigns, one per campaign type.
// Every mutation flushes the full set to the document repo before returning.
// Callers only ever see copies.
type CampaignStore struct {
	docRepo repo.CampaignDocRepo
	log     *slog.Logger

	mu        sync.Mutex
	campaigns map[string]*domain.Campaign
}

// NewCampaignStore creates an empty store backed by docRepo
func NewCampaignStore(docRepo repo.CampaignDocRepo, log *slog.Logger) *CampaignStore {
	return &CampaignStore{
		docRepo:   docRepo,
		log:       log.With("component", "store"),
		campaigns: make(map[string]*domain.Campaign),
	}
}

// Load reads the durable document into memory. Read failures and corrupt
// data degrade to an empty store instead of failing startup.
func (s *CampaignStore) Load(ctx context.Context) map[string]*domain.Campaign {
	s.mu.Lock()
	defer s.mu.Unlock()

	loaded, err := s.docRepo.Load(ctx)
	if err != nil {
		s.log.Warn("load campaigns failed, starting empty", "error", err)
		loaded = nil
	}

	s.campaigns = make(map[string]*domain.Campaign, len(loaded))
	for typeID, c := range loaded {
		if c == nil || typeID == "" {
			continue
		}
		cp := c.Clone()
		cp.CampaignTypeID = typeID
		s.campaigns[typeID] = cp
	}

	s.log.Info("campaigns loaded", "count", len(s.campaigns))
	return s.snapshotLocked()
}

// Get returns a copy of the campaign for typeID, or nil
func (s *CampaignStore) Get(typeID string) *domain.Campaign {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.campaigns[typeID].Clone()
}

// Put stores c as the active campaign for typeID and flushes
func (s *CampaignStore) Put(ctx context.Context, typeID string, c *domain.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := c.Clone()
	cp.CampaignTypeID = typeID
	s.campaigns[typeID] = cp
	return s.flushLocked(ctx)
}

// Delete removes the campaign for typeID and flushes
func (s *CampaignStore) Delete(ctx context.Context, typeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.campaigns[typeID]; !ok {
		return nil
	}
	delete(s.campaigns, typeID)
	return s.flushLocked(ctx)
}

// Mutate runs fn on a copy of the campaign for typeID and applies the result
// in the same critical section. It reports whether anything changed.
// fn is not called when no campaign exists for typeID.
func (s *CampaignStore) Mutate(ctx context.Context, typeID string, fn func(c *domain.Campaign) Mutation) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.campaigns[typeID]
	if !ok {
		return false, nil
	}

	cp := cur.Clone()
	switch fn(cp) {
	case MutationSave:
		cp.CampaignTypeID = typeID
		s.campaigns[typeID] = cp
	case MutationDelete:
		delete(s.campaigns, typeID)
	default:
		return false, nil
	}
	return true, s.flushLocked(ctx)
}

// FindByAnnouncement returns a copy of the published campaign whose
// announcement is messageID, or nil
func (s *CampaignStore) FindByAnnouncement(messageID string) *domain.Campaign {
	if messageID == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.campaigns {
		if c.AnnouncementMessageID == messageID {
			return c.Clone()
		}
	}
	return nil
}

// All returns copies of every stored campaign ordered by type id
func (s *CampaignStore) All() []*domain.Campaign {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]*domain.Campaign, 0, len(s.campaigns))
	for _, c := range s.campaigns {
		result = append(result, c.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CampaignTypeID < result[j].CampaignTypeID
	})
	return result
}

// flushLocked saves the full set. On failure the in-memory state is kept and
// the next mutation retries the save implicitly.
func (s *CampaignStore) flushLocked(ctx context.Context) error {
	if err := s.docRepo.Save(ctx, s.snapshotLocked()); err != nil {
		s.log.Error("save campaigns failed, keeping in-memory state", "error", err)
		return domain.Classify(domain.ErrPersistence, err, "save campaigns")
	}
	return nil
}

func (s *CampaignStore) snapshotLocked() map[string]*domain.Campaign {
	out := make(map[string]*domain.Campaign, len(s.campaigns))
	for typeID, c := range s.campaigns {
		out[typeID] = c.Clone()
	}
	return out
}
