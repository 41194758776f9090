package library

import (
	"fmt"
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`^[\w.%+-]+@[\w.-]+\.[a-zA-Z]{2,}$`)

// ValidEmail reports whether email looks like local@domain.tld.
func ValidEmail(email string) bool { return emailPattern.MatchString(email) }

func normalizeBook(b Book) Book {
	b.ISBN = strings.TrimSpace(b.ISBN)
	b.Title = strings.TrimSpace(b.Title)
	b.Author = strings.TrimSpace(b.Author)
	b.Genre = strings.TrimSpace(b.Genre)
	return b
}

func validateBook(b Book) error {
	if b.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if b.Quantity < 0 {
		return fmt.Errorf("%w: quantity must not be negative, got %d", ErrInvalidInput, b.Quantity)
	}
	return nil
}

func validateUser(u User) error {
	if u.Name == "" || u.Email == "" {
		return fmt.Errorf("%w: name and email are required", ErrInvalidInput)
	}
	if !ValidEmail(u.Email) {
		return fmt.Errorf("%w: invalid email address %q", ErrInvalidInput, u.Email)
	}
	return nil
}
