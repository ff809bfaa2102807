package service

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"
)

const (
	nameMinLen     = 3
	nameMaxLen     = 96
	emailMaxLen    = 96
	passwordMinLen = 8
	// bcrypt учитывает только первые 72 байта.
	passwordMaxLen = 72
)

const passwordSpecials = "@$!%*#?&"

// normalizeEmail проверяет формат адреса и приводит его к нижнему регистру.
func normalizeEmail(raw string) (string, error) {
	email := strings.TrimSpace(raw)
	if email == "" || len(email) > emailMaxLen {
		return "", fmt.Errorf("%w: email is invalid", ErrInvalidArgument)
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: email is invalid", ErrInvalidArgument)
	}

	return strings.ToLower(email), nil
}

func validateName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if n := utf8.RuneCountInString(name); n < nameMinLen || n > nameMaxLen {
		return "", fmt.Errorf("%w: name must be %d..%d characters", ErrInvalidArgument, nameMinLen, nameMaxLen)
	}

	return name, nil
}

// validatePassword: не короче 8 символов, хотя бы одна латинская буква,
// цифра и спецсимвол из @$!%*#?&; другие символы не допускаются.
func validatePassword(pw string) error {
	if len(pw) < passwordMinLen || len(pw) > passwordMaxLen {
		return fmt.Errorf("%w: password must be %d..%d characters", ErrInvalidArgument, passwordMinLen, passwordMaxLen)
	}

	var hasLetter, hasDigit, hasSpecial bool
	for _, r := range pw {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			hasLetter = true
		case r >= '0' && r <= '9':
			hasDigit = true
		case strings.ContainsRune(passwordSpecials, r):
			hasSpecial = true
		default:
			return fmt.Errorf("%w: password contains unsupported character", ErrInvalidArgument)
		}
	}

	if !(hasLetter && hasDigit && hasSpecial) {
		return fmt.Errorf("%w: password needs a letter, a digit and one of %s", ErrInvalidArgument, passwordSpecials)
	}

	return nil
}
