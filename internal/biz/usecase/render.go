package usecase

import (
	"strings"
	"text/template"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/recruitbot/recruit-bot/internal/biz/domain"
)

// DeadlineDisplayLayout is how deadlines appear in messages
const DeadlineDisplayLayout = "2006/01/02 15:04"

// Renderer renders announcement and notice texts from the catalog.
// All templates are parsed up front so a bad catalog fails at startup.
type Renderer struct {
	catalog *domain.Catalog
	loc     *time.Location

	announcement *template.Template
	reminder     *template.Template
	closing      *template.Template
	created      *template.Template
	bodies       map[string]*template.Template // typeID/patternID
}

// NewRenderer parses every template in the catalog
func NewRenderer(catalog *domain.Catalog, loc *time.Location) (*Renderer, error) {
	if loc == nil {
		loc = time.Local
	}
	r := &Renderer{
		catalog: catalog,
		loc:     loc,
		bodies:  make(map[string]*template.Template),
	}

	var err error
	if r.announcement, err = parse("announcement", catalog.Messages.Announcement); err != nil {
		return nil, err
	}
	if r.reminder, err = parse("reminder", catalog.Messages.Reminder); err != nil {
		return nil, err
	}
	if r.closing, err = parse("closing", catalog.Messages.Closing); err != nil {
		return nil, err
	}
	if r.created, err = parse("created", catalog.Messages.Created); err != nil {
		return nil, err
	}

	for typeID, t := range catalog.Types {
		for patternID, tmpl := range t.Templates {
			name := bodyKey(typeID, patternID)
			body, err := parse(name, tmpl.Body)
			if err != nil {
				return nil, err
			}
			r.bodies[name] = body
		}
	}
	return r, nil
}

// Announcement renders the announcement text for a draft
func (r *Renderer) Announcement(t *domain.CampaignType, draft *domain.CampaignDraft) (string, error) {
	body, ok := r.bodies[bodyKey(t.ID, draft.PatternID)]
	if !ok || !t.HasTemplate(draft.PatternID) {
		return "", errors.Wrapf(domain.ErrTemplateMissing, "type %s pattern %s", t.ID, draft.PatternID)
	}

	data := r.data(t, draft.Deadline, draft.Conditions)
	rendered, err := execute(body, data)
	if err != nil {
		return "", err
	}
	data.Body = rendered
	return execute(r.announcement, data)
}

// Reminder renders the reminder notice for a campaign
func (r *Renderer) Reminder(t *domain.CampaignType, c *domain.Campaign) (string, error) {
	return execute(r.reminder, r.data(t, c.Deadline, c.Conditions))
}

// Closing renders the closing notice for a campaign
func (r *Renderer) Closing(t *domain.CampaignType, c *domain.Campaign) (string, error) {
	return execute(r.closing, r.data(t, c.Deadline, c.Conditions))
}

// Created renders the confirmation shown to the initiator
func (r *Renderer) Created(t *domain.CampaignType, c *domain.Campaign) (string, error) {
	return execute(r.created, r.data(t, c.Deadline, c.Conditions))
}

func (r *Renderer) data(t *domain.CampaignType, deadline time.Time, conditions string) domain.RenderData {
	return domain.RenderData{
		DisplayName: t.DisplayName,
		Deadline:    deadline.In(r.loc).Format(DeadlineDisplayLayout),
		Conditions:  conditions,
	}
}

func bodyKey(typeID, patternID string) string {
	return typeID + "/" + patternID
}

func parse(name, src string) (*template.Template, error) {
	t, err := template.New(name).Option("missingkey=error").Parse(src)
	if err != nil {
		return nil, errors.Wrapf(err, "parse template %s", name)
	}
	return t, nil
}

func execute(t *template.Template, data domain.RenderData) (string, error) {
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", errors.Wrapf(err, "render %s", t.Name())
	}
	return sb.String(), nil
}
