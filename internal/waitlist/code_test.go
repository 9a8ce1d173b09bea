package waitlist

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInviteCode(t *testing.T) {
	code, err := NewInviteCode()
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(code)
	require.NoError(t, err, "code must be url-safe base64")
	assert.Len(t, raw, 32)

	other, err := NewInviteCode()
	require.NoError(t, err)
	assert.NotEqual(t, code, other)
}
