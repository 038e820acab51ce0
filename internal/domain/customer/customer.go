package customer

import (
	"net/mail"
	"strings"
	"unicode"

	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/platform/apperror"
	"github.com/google/uuid"
)

// Info is the contact detail collected at checkout. Phone is the lookup key.
type Info struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
}

// Normalize trims fields and reduces the phone number to its ten national digits.
func (i Info) Normalize() Info {
	return Info{
		Name:  strings.Join(strings.Fields(i.Name), " "),
		Phone: NormalizePhone(i.Phone),
		Email: strings.ToLower(strings.TrimSpace(i.Email)),
	}
}

// Validate reports the first missing or malformed field.
func (i Info) Validate() error {
	n := i.Normalize()
	if n.Name == "" {
		return apperror.NewValidationError("customer name is required").WithDetail("field", "name")
	}
	if len(n.Phone) != 10 {
		return apperror.NewValidationError("enter a 10 digit mobile number").WithDetail("field", "phone")
	}
	if n.Email != "" {
		if _, err := mail.ParseAddress(n.Email); err != nil {
			return apperror.NewValidationError("email address is not valid").WithDetail("field", "email")
		}
	}
	return nil
}

// NormalizePhone strips formatting and the +91 or leading 0 trunk prefix.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	switch {
	case len(digits) == 12 && strings.HasPrefix(digits, "91"):
		return digits[2:]
	case len(digits) == 11 && strings.HasPrefix(digits, "0"):
		return digits[1:]
	}
	return digits
}

// Profile is a persisted customer.
type Profile struct {
	ID    uuid.UUID
	Name  string
	Phone string
	Email string
}
