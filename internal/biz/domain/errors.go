package domain

import (
	"github.com/cockroachdb/errors"
)

// Error categories. Every error returned by the campaign lifecycle matches
// exactly one of these with errors.Is.
var (
	ErrInputValidation     = errors.New("input validation")
	ErrDialogTimeout       = errors.New("dialog timeout")
	ErrPlatformUnavailable = errors.New("platform unavailable")
	ErrPersistence         = errors.New("persistence")
)

// Specific errors, each wrapping its category
var (
	ErrInvalidDate         = errors.Wrap(ErrInputValidation, "invalid deadline date")
	ErrTemplateUnavailable = errors.Wrap(ErrInputValidation, "template not available")
	ErrTemplateMissing     = errors.Wrap(ErrInputValidation, "template missing")
	ErrUnknownCampaignType = errors.Wrap(ErrInputValidation, "unknown campaign type")
	ErrFlowInProgress      = errors.Wrap(ErrInputValidation, "configuration already in progress")

	ErrChannelUnavailable = errors.Wrap(ErrPlatformUnavailable, "channel unavailable")
	ErrMemberUnavailable  = errors.Wrap(ErrPlatformUnavailable, "member unavailable")
	ErrMessageUnavailable = errors.Wrap(ErrPlatformUnavailable, "message unavailable")
)

// Classify attaches cause to sentinel: errors.Is matches the sentinel and its
// category, and the cause is kept as a secondary error for %+v output.
func Classify(sentinel, cause error, format string, args ...interface{}) error {
	err := errors.Wrapf(sentinel, format, args...)
	if cause != nil {
		err = errors.WithSecondaryError(err, cause)
	}
	return err
}
