// Package textutil validates and splits user input.
package textutil

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/fclairamb/commonkit/internal/apperrors"
)

var emailRegex = regexp.MustCompile(`^[\w.-]+@[\w.-]+\.\w+$`)

// IsValidEmail reports whether s looks like name@domain.tld.
func IsValidEmail(s string) bool {
	return emailRegex.MatchString(s)
}

// ParseList splits a comma-separated input and parses each trimmed item.
func ParseList[T any](input string, parse func(string) (T, error)) ([]T, error) {
	if strings.TrimSpace(input) == "" {
		return nil, apperrors.ErrEmptyInput
	}

	parts := strings.Split(input, ",")
	items := make([]T, 0, len(parts))
	for i, part := range parts {
		item, err := parse(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("item %d %q: %w", i+1, strings.TrimSpace(part), err)
		}
		items = append(items, item)
	}

	return items, nil
}
