package utils_test

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitchd/go-auth-broker/internal/utils"
)

func TestRandomToken(t *testing.T) {
	token := utils.RandomToken(32)

	decoded, err := base64.RawURLEncoding.DecodeString(token)
	require.NoError(t, err)
	assert.Len(t, decoded, 32)
}

func TestRandomTokenIsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		token := utils.RandomToken(16)
		require.False(t, seen[token])
		seen[token] = true
	}
}
