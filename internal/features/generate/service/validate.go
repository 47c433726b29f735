package service

import (
	"strings"
	"unicode/utf8"

	apperrors "github.com/anonymousgrouphp-collab/skillbun/internal/common/errors"
	"github.com/anonymousgrouphp-collab/skillbun/internal/features/generate/models"
)

// Client-safe rejection messages. Deliberately vague: they never echo the
// offending content or the exact bound that tripped.
const (
	msgInvalidFormat   = "Invalid request format."
	msgPayloadTooLarge = "Conversation payload too large."
	msgTooManyTurns    = "Conversation too long. Please start a new quiz."
)

// ValidatePayload enforces the structural and size bounds on an inbound
// conversation. Checks run in order and short-circuit on the first failure;
// the cumulative length is tracked incrementally so an oversized payload is
// rejected as soon as the running total crosses the bound. The returned
// error carries an internal reason tag for logs and a generic client message.
func ValidatePayload(req *models.GenerateRequest) *apperrors.AppError {
	if req == nil || len(req.Contents) == 0 {
		return apperrors.New(apperrors.CodeValidation, msgInvalidFormat).WithReason("empty_contents")
	}

	totalTextLength := 0
	for _, item := range req.Contents {
		if item.Role != models.RoleUser && item.Role != models.RoleModel {
			return apperrors.New(apperrors.CodeValidation, msgInvalidFormat).WithReason("invalid_role")
		}
		if len(item.Parts) == 0 || len(item.Parts) > models.MaxPartsPerItem {
			return apperrors.New(apperrors.CodeValidation, msgInvalidFormat).WithReason("invalid_parts")
		}
		for _, part := range item.Parts {
			text := strings.TrimSpace(part.Text)
			if text == "" {
				return apperrors.New(apperrors.CodeValidation, msgInvalidFormat).WithReason("empty_text")
			}
			length := utf8.RuneCountInString(text)
			if length > models.MaxTextLengthPerPart {
				return apperrors.New(apperrors.CodeValidation, msgInvalidFormat).WithReason("part_too_long")
			}
			totalTextLength += length
			if totalTextLength > models.MaxTotalTextLength {
				return apperrors.New(apperrors.CodeValidation, msgPayloadTooLarge).WithReason("payload_too_large")
			}
		}
	}

	if len(req.Contents) > models.MaxContentItems {
		return apperrors.New(apperrors.CodeValidation, msgTooManyTurns).WithReason("too_many_turns")
	}
	return nil
}
