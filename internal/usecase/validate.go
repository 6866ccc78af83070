package usecase

import (
	"net/mail"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/b2bflow/front-forms/internal/domain"
)

const (
	maxNameLen     = 120
	maxCompanyLen  = 160
	minPhoneDigits = 10
	maxPhoneDigits = 13
)

// validateAnswer checks the format of an answer for step and returns it trimmed.
func validateAnswer(step domain.Step, raw string) (string, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return "", validationError("empty_answer")
	}
	switch step {
	case domain.StepName:
		if utf8.RuneCountInString(v) > maxNameLen {
			return "", validationError("name_too_long")
		}
	case domain.StepPhone:
		if !validPhone(v) {
			return "", validationError("invalid_phone")
		}
	case domain.StepEmail:
		if !validEmail(v) {
			return "", validationError("invalid_email")
		}
	case domain.StepCompany:
		if utf8.RuneCountInString(v) > maxCompanyLen {
			return "", validationError("company_too_long")
		}
	case domain.StepSegment, domain.StepProduct, domain.StepRevenue, domain.StepHeadcount:
		if !slices.Contains(PromptFor(step).Options, v) {
			return "", validationError("unknown_option")
		}
	}
	return v, nil
}

// validPhone accepts digits with the usual separators, 10 to 13 digits in total.
func validPhone(s string) bool {
	digits := 0
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == '+' || r == '(' || r == ')' || r == '-' || r == '.' || r == ' ':
		default:
			return false
		}
	}
	return digits >= minPhoneDigits && digits <= maxPhoneDigits
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}
	at := strings.LastIndex(s, "@")
	return at > 0 && strings.Contains(s[at+1:], ".")
}
