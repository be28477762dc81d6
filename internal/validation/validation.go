package validation

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/julianstephens/habitbell/internal/constants"
	apperrors "github.com/julianstephens/habitbell/internal/errors"
	"github.com/julianstephens/habitbell/internal/models"
)

// Title trims and NFC-normalizes a habit title. Titles key the habit log,
// so two visually identical titles must compare equal byte for byte.
func Title(raw string) (string, error) {
	title := norm.NFC.String(strings.TrimSpace(raw))
	if title == "" {
		return "", apperrors.Validation("title", "must not be empty")
	}
	if n := utf8.RuneCountInString(title); n > constants.MaxTitleLength {
		return "", apperrors.Validation("title", "must be at most %d characters, got %d", constants.MaxTitleLength, n)
	}
	for _, r := range title {
		if unicode.IsControl(r) {
			return "", apperrors.Validation("title", "must not contain control characters")
		}
	}
	return title, nil
}

// Time validates a reminder time and returns it as zero-padded HH:MM.
// Single-digit hours ("8:30") are accepted; seconds are not.
func Time(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	hh, mm, ok := strings.Cut(s, ":")
	if !ok || len(hh) < 1 || len(hh) > 2 || len(mm) != 2 {
		return "", apperrors.Validation("time", "expected HH:MM, got %q", raw)
	}
	if !digits(hh) || !digits(mm) {
		return "", apperrors.Validation("time", "expected HH:MM, got %q", raw)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return "", apperrors.Validation("time", "hour must be 00-23, got %q", raw)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return "", apperrors.Validation("time", "minute must be 00-59, got %q", raw)
	}
	return fmt.Sprintf("%02d:%02d", hour, minute), nil
}

// digits reports whether s is all ASCII digits; Atoi alone would take a sign.
func digits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Status validates a log outcome
func Status(raw string) (models.Status, error) {
	s := models.Status(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", apperrors.Validation("status", "must be %q or %q, got %q", models.StatusDone, models.StatusMissed, raw)
	}
	return s, nil
}

// Days validates a history window length
func Days(days int) error {
	if days < 1 {
		return apperrors.Validation("days", "must be at least 1, got %d", days)
	}
	return nil
}

// UserID validates a chat user identifier
func UserID(id int64) error {
	if id == 0 {
		return apperrors.Validation("user", "must be set")
	}
	return nil
}
