package biz

import (
	"github.com/recruitbot/recruit-bot/internal/biz/usecase"
)

// Usecases contains all usecases
type Usecases struct {
	Campaign   *usecase.CampaignUsecase
	Dialog     *usecase.DialogUsecase
	Membership *usecase.MembershipUsecase
	Deadline   *usecase.DeadlineUsecase
	Inbox      *usecase.Inbox
	Store      *usecase.CampaignStore
}
