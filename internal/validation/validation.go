package validation

import (
	"conversation-runtime/server/internal/errors"
	"strings"
)

// ValidateCreateSessionRequest validates STORY_LOADED's HTTP body.
func ValidateCreateSessionRequest(storyID string, knownChats []string) error {
	if storyID == "" {
		return errors.New(errors.ErrValidationFailed, "storyId is required")
	}
	if len(knownChats) > 100 {
		return errors.NewWithDetails(
			errors.ErrValidationFailed,
			"too many known chats",
			map[string]interface{}{"max_allowed": 100, "actual": len(knownChats)},
		)
	}
	return nil
}

// ValidateChooseRequest validates CHOOSE{index}'s HTTP body.
func ValidateChooseRequest(index int) error {
	if index < 0 {
		return errors.New(errors.ErrInvalidChoice, "choice index must be non-negative")
	}
	return nil
}

// ValidateOpenChatRequest validates OPEN_CHAT{chatId}'s HTTP body.
func ValidateOpenChatRequest(chatID string) error {
	if chatID == "" {
		return errors.New(errors.ErrValidationFailed, "chatId is required")
	}
	return nil
}

// ValidatePagination validates limit/offset query parameters.
func ValidatePagination(limit, offset int) error {
	if limit < 0 || limit > 100 {
		return errors.NewWithDetails(
			errors.ErrValidationFailed,
			"limit must be between 0 and 100",
			map[string]interface{}{"limit": limit},
		)
	}
	if offset < 0 {
		return errors.NewWithDetails(
			errors.ErrValidationFailed,
			"offset must be non-negative",
			map[string]interface{}{"offset": offset},
		)
	}
	return nil
}

// SanitizeString strips control characters from user input before it
// reaches any downstream component.
func SanitizeString(input string) string {
	input = strings.TrimSpace(input)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, input)
}
