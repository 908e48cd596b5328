package services

import (
	"fmt"
	"unicode/utf8"
)

const (
	maxTitleLen       = 80
	maxDescriptionLen = 200
	maxCommentLen     = 1000
)

// validateTitleDescription checks the shared title/description bounds.
// entity is the possessive noun used in messages ("project", "issue").
func validateTitleDescription(entity, title, description string) error {
	if title == "" {
		return NewValidation(fmt.Sprintf("Please provide the %s's title.", entity))
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return NewValidation(fmt.Sprintf("%s's title can not be more than %d characters.", capitalize(entity), maxTitleLen))
	}
	if description == "" {
		return NewValidation(fmt.Sprintf("Please provide the %s's description.", entity))
	}
	if utf8.RuneCountInString(description) > maxDescriptionLen {
		return NewValidation(fmt.Sprintf("%s's description can not be more than %d characters.", capitalize(entity), maxDescriptionLen))
	}
	return nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
