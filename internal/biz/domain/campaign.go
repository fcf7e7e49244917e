package domain

import (
	"sort"
	"time"
)

// AckEmoji is the acknowledgment marker attached to every announcement
const AckEmoji = "✅"

// Template is one announcement pattern available to a campaign type
type Template struct {
	PatternID string
	Body      string // text/template source, rendered against RenderData
}

// Pattern describes how a pattern id is offered in the template choice step
type Pattern struct {
	ID    string
	Label string
	Style string // primary, secondary, success, danger
}

// CampaignType is the immutable configuration of one competition type
type CampaignType struct {
	ID            string
	DisplayName   string
	BannerURL     string // optional
	Templates     map[string]Template
	GrantRoleID   string // optional membership grant
	AskConditions bool
}

// HasGrant reports whether acknowledgments on this type toggle a role
func (t *CampaignType) HasGrant() bool {
	return t.GrantRoleID != ""
}

// HasTemplate reports whether patternID is offered by this type
func (t *CampaignType) HasTemplate(patternID string) bool {
	_, ok := t.Templates[patternID]
	return ok
}

// PatternIDs returns the available pattern ids in ascending order
func (t *CampaignType) PatternIDs() []string {
	ids := make([]string, 0, len(t.Templates))
	for id := range t.Templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// CampaignDraft is the validated output of one configuration dialog
type CampaignDraft struct {
	CampaignTypeID string
	InitiatorID    string
	ChannelID      string
	GuildID        string
	PatternID      string
	Deadline       time.Time
	Conditions     string
}

// Campaign is the durable record of the active recruitment for a campaign type
type Campaign struct {
	CampaignTypeID        string    `json:"campaign_type_id"`
	Deadline              time.Time `json:"deadline"`
	PatternID             string    `json:"pattern_id"`
	Conditions            string    `json:"conditions,omitempty"`
	ChannelID             string    `json:"channel_id"`
	GuildID               string    `json:"guild_id,omitempty"`
	InitiatorID           string    `json:"initiator_id,omitempty"`
	AnnouncementMessageID string    `json:"announcement_message_id,omitempty"`
	ReminderFired         bool      `json:"reminder_fired"`
	DeadlineFired         bool      `json:"deadline_fired"`
	CreatedAt             time.Time `json:"created_at"`
}

// NewCampaign creates an unpublished campaign from a completed draft
func NewCampaign(draft *CampaignDraft, now time.Time) *Campaign {
	return &Campaign{
		CampaignTypeID: draft.CampaignTypeID,
		Deadline:       draft.Deadline,
		PatternID:      draft.PatternID,
		Conditions:     draft.Conditions,
		ChannelID:      draft.ChannelID,
		GuildID:        draft.GuildID,
		InitiatorID:    draft.InitiatorID,
		CreatedAt:      now,
	}
}

// IsPublished reports whether the announcement has been sent.
// Unpublished campaigns are only visible to retirement logic.
func (c *Campaign) IsPublished() bool {
	return c.AnnouncementMessageID != ""
}

// Clone returns an independent copy
func (c *Campaign) Clone() *Campaign {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

// AckDirection is the direction of an acknowledgment change
type AckDirection int

const (
	AckAdd AckDirection = iota
	AckRemove
)

func (d AckDirection) String() string {
	if d == AckRemove {
		return "remove"
	}
	return "add"
}

// AckEvent is an acknowledgment marker added to or removed from a message
type AckEvent struct {
	MessageID string
	ChannelID string
	GuildID   string
	UserID    string
	Direction AckDirection
}
