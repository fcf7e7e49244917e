package repo

import (
	"context"

	"github.com/recruitbot/recruit-bot/internal/biz/domain"
)

// Responder talks back to the initiator of one configuration flow
type Responder interface {
	// OfferTemplates shows the template choices for flowID
	OfferTemplates(ctx context.Context, flowID, prompt string, options []domain.TemplateOption) error

	// Prompt asks the initiator for the next free-text input
	Prompt(ctx context.Context, text string) error

	// Report tells the initiator how the flow ended
	Report(ctx context.Context, text string) error
}
