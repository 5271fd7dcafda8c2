package utils

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string  `json:"name" validate:"required,min=2"`
	Phone string  `json:"phone" validate:"required,phone"`
	State string  `json:"state" validate:"omitempty,oneof=unread read"`
	Bio   *string `json:"bio" validate:"omitempty,max=3"`
}

func TestValidatorPhone(t *testing.T) {
	for _, phone := range []string{"+15551234567", "96170123456", "+12"} {
		assert.True(t, IsValidPhone(phone), phone)
	}
	for _, phone := range []string{"", "+0123", "abc", "+1234567890123456", "1"} {
		assert.False(t, IsValidPhone(phone), phone)
	}
}

func TestValidationMessageUsesJSONNames(t *testing.T) {
	v := NewValidator()

	err := v.Validate(&sample{Name: "a", Phone: "+15551234567"})
	require.Error(t, err)
	assert.Equal(t, "name must be at least 2 characters", ValidationMessage(err))

	err = v.Validate(&sample{Name: "ab", Phone: "nope"})
	require.Error(t, err)
	assert.Equal(t, "phone must be a valid phone number", ValidationMessage(err))

	err = v.Validate(&sample{Name: "ab", Phone: "+15551234567", State: "gone"})
	require.Error(t, err)
	assert.Equal(t, "state must be one of: unread, read", ValidationMessage(err))

	long := "toolong"
	err = v.Validate(&sample{Name: "ab", Phone: "+15551234567", Bio: &long})
	require.Error(t, err)
	assert.Equal(t, "bio must be at most 3 characters", ValidationMessage(err))

	assert.NoError(t, v.Validate(&sample{Name: "ab", Phone: "+15551234567"}))
}

func TestQRCodePNG(t *testing.T) {
	data, err := QRCodePNG("nestfire://user/abc", 200)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
	assert.Equal(t, 200, img.Bounds().Dy())
}
