package draft

import (
	"regexp"
	"strings"
	"time"

	"github.com/nhle/taskboard/internal/apperrors"
)

const dateLayout = "2006-01-02"

var (
	// textPattern admits letters, marks, digits, punctuation, symbols and
	// whitespace; control characters are rejected.
	textPattern = regexp.MustCompile(`^[\p{L}\p{M}\p{N}\p{P}\p{S}\s]+$`)

	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 ()/-]{2,}$`)
)

func validateTask(title, description, date, category string) *apperrors.ValidationError {
	verr := apperrors.NewValidationError()

	checkText(verr, "title", "Title", title)
	checkText(verr, "description", "Description", description)

	if strings.TrimSpace(category) == "" {
		verr.Add("category", "Category is required")
	}

	date = strings.TrimSpace(date)
	if _, err := time.Parse(dateLayout, date); date == "" {
		verr.Add("date", "Due date is required")
	} else if err != nil {
		verr.Add("date", "Use the format YYYY-MM-DD")
	}

	return verr
}

func checkText(verr *apperrors.ValidationError, field, label, value string) {
	value = strings.TrimSpace(value)
	switch {
	case value == "":
		verr.Add(field, label+" is required")
	case !textPattern.MatchString(value):
		verr.Add(field, label+" contains characters that are not allowed")
	}
}

func validateContact(name, email, phone string) *apperrors.ValidationError {
	verr := apperrors.NewValidationError()

	checkText(verr, "name", "Name", name)

	if email = strings.TrimSpace(email); email != "" && !emailPattern.MatchString(email) {
		verr.Add("email", "Enter a valid email address")
	}
	if phone = strings.TrimSpace(phone); phone != "" && !phonePattern.MatchString(phone) {
		verr.Add("phone", "Enter a valid phone number")
	}

	return verr
}

// startOfDay returns midnight UTC of t's calendar date, matching how due
// dates are parsed.
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
