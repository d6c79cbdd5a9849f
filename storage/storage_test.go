package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAvatarKey(t *testing.T) {
	key, err := AvatarKey("u1", "image/PNG")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "avatars/u1/"))
	assert.True(t, strings.HasSuffix(key, ".png"))

	other, err := AvatarKey("u1", "image/png")
	require.NoError(t, err)
	assert.NotEqual(t, key, other, "every upload gets a fresh key")

	_, err = AvatarKey("u1", "application/pdf")
	assert.Error(t, err)
}

func TestResolvePublicURL(t *testing.T) {
	base, err := parsePublicBaseURL("https://cdn.example.com/media")
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.com/media/avatars/u1/a.png", resolvePublicURL(base, "avatars/u1/a.png"))
	assert.Equal(t, "https://cdn.example.com/media/avatars/u1/a.png", resolvePublicURL(base, "/avatars/u1/a.png"))
	assert.Equal(t, "", resolvePublicURL(base, ""))
	assert.Equal(t, "", resolvePublicURL(nil, "avatars/u1/a.png"))
}

func TestParsePublicBaseURL_RejectsRelative(t *testing.T) {
	_, err := parsePublicBaseURL("cdn.example.com")
	assert.Error(t, err)
}
