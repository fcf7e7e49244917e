package domain

import (
	"fmt"
)

// DialogState is a state of the campaign configuration dialog
type DialogState int

const (
	DialogAwaitingTemplateChoice DialogState = iota
	DialogAwaitingDeadlineInput
	DialogAwaitingConditions
	DialogComplete
	DialogFailed
)

func (s DialogState) String() string {
	switch s {
	case DialogAwaitingTemplateChoice:
		return "awaiting_template_choice"
	case DialogAwaitingDeadlineInput:
		return "awaiting_deadline_input"
	case DialogAwaitingConditions:
		return "awaiting_conditions"
	case DialogComplete:
		return "complete"
	case DialogFailed:
		return "failed"
	default:
		return fmt.Sprintf("dialog_state(%d)", int(s))
	}
}

// DialogError reports the state a dialog failed in
type DialogError struct {
	State DialogState // state that was active when the flow failed
	Err   error
}

func (e *DialogError) Error() string {
	return fmt.Sprintf("dialog failed in %s: %v", e.State, e.Err)
}

func (e *DialogError) Unwrap() error {
	return e.Err
}

// Invocation identifies who started a configuration flow and where
type Invocation struct {
	CampaignTypeID string
	InitiatorID    string
	ChannelID      string
	GuildID        string
}

// InputKind distinguishes dialog inputs
type InputKind int

const (
	InputTemplateChoice InputKind = iota
	InputText
)

// DialogInput is one user input routed to a waiting dialog
type DialogInput struct {
	Kind      InputKind
	FlowID    string // set for template choices
	ChannelID string
	UserID    string
	Value     string
}

// TemplateOption is one choice offered in the template step
type TemplateOption struct {
	PatternID string
	Label     string
	Style     string
}
