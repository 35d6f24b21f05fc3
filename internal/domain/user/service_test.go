package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidEmail(t *testing.T) {
	assert.True(t, isValidEmail("asha@store.in"))
	assert.False(t, isValidEmail("asha@localhost"))
	assert.False(t, isValidEmail("Asha <asha@store.in>"))
	assert.False(t, isValidEmail("not-an-email"))
}

func TestIsStrongPassword(t *testing.T) {
	tests := []struct {
		password string
		want     bool
	}{
		{"Passw0rd1", true},
		{"password", false},
		{"12345678", false},
		{"Ab1", false},
		{"Abcdefghij1234567890x", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isStrongPassword(tt.password), tt.password)
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "asha@store.in", NormalizeEmail("  Asha@Store.IN "))
}
