package customer

import (
	"testing"

	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/platform/apperror"
	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"98765 43210":     "9876543210",
		"+91 98765-43210": "9876543210",
		"09876543210":     "9876543210",
		"12345":           "12345",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizePhone(in), in)
	}
}

func TestInfoValidate(t *testing.T) {
	cases := []struct {
		name  string
		info  Info
		field string
	}{
		{"ok", Info{Name: "Asha", Phone: "+919876543210"}, ""},
		{"ok with email", Info{Name: "Asha", Phone: "9876543210", Email: "asha@example.com"}, ""},
		{"missing name", Info{Name: "  ", Phone: "9876543210"}, "name"},
		{"short phone", Info{Name: "Asha", Phone: "98765"}, "phone"},
		{"bad email", Info{Name: "Asha", Phone: "9876543210", Email: "asha@"}, "email"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.info.Validate()
			if tc.field == "" {
				assert.NoError(t, err)
				return
			}
			appErr, ok := apperror.As(err)
			if assert.True(t, ok) {
				assert.Equal(t, apperror.KindValidation, appErr.Kind)
				assert.Equal(t, tc.field, appErr.Details["field"])
			}
		})
	}
}
