package domain

import "sort"

// Messages contains the user-facing texts. Announcement, Reminder and Closing
// are text/template sources rendered against RenderData.
type Messages struct {
	Announcement    string
	Reminder        string
	Closing         string
	TemplatePrompt  string
	DeadlinePrompt  string
	ConditionPrompt string
	Created         string
	SkipWords       []string
}

// RenderData is the data available to announcement and notice templates
type RenderData struct {
	DisplayName string
	Body        string
	Deadline    string
	Conditions  string
}

// Catalog is the read-only set of campaign types loaded at startup
type Catalog struct {
	Types    map[string]*CampaignType
	Patterns map[string]Pattern
	Messages Messages
}

// Type looks up a campaign type by id
func (c *Catalog) Type(id string) (*CampaignType, bool) {
	t, ok := c.Types[id]
	return t, ok
}

// TypeIDs returns all campaign type ids in ascending order
func (c *Catalog) TypeIDs() []string {
	ids := make([]string, 0, len(c.Types))
	for id := range c.Types {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Options returns the template choices offered for a type. Only patterns the
// type actually provides are included.
func (c *Catalog) Options(t *CampaignType) []TemplateOption {
	var opts []TemplateOption
	for _, id := range t.PatternIDs() {
		opt := TemplateOption{PatternID: id, Label: "Template " + id, Style: "primary"}
		if p, ok := c.Patterns[id]; ok {
			if p.Label != "" {
				opt.Label = p.Label
			}
			if p.Style != "" {
				opt.Style = p.Style
			}
		}
		opts = append(opts, opt)
	}
	return opts
}
