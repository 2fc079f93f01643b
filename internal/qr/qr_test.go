package qr

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataURL(t *testing.T) {
	g := NewGenerator()

	url, err := g.DataURL(map[string]any{
		"id":   "pi_123",
		"user": "u1",
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(url, "data:image/png;base64,"))
	assert.Greater(t, len(url), len("data:image/png;base64,"))
}

func TestDataURLUnmarshalablePayload(t *testing.T) {
	g := NewGenerator()

	_, err := g.DataURL(map[string]any{"fn": func() {}})
	assert.Error(t, err)
}
