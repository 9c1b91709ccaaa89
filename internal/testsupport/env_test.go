package testsupport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIntValue(t *testing.T) {
	t.Setenv("TEST_SMTP_PORT", "2525")
	assert.Equal(t, 2525, intValue("TEST_SMTP_PORT", 587))

	t.Setenv("TEST_SMTP_PORT", "nope")
	assert.Equal(t, 587, intValue("TEST_SMTP_PORT", 587))
}

func TestNewStore(t *testing.T) {
	store := NewStore(t)
	assert.Zero(t, store.Len())
	assert.FileExists(t, store.Path())
}
