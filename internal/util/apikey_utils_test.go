package util

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCredential(t *testing.T) {
	key, secret, err := GenerateCredential()
	require.NoError(t, err)

	rawKey, err := hex.DecodeString(key)
	require.NoError(t, err)
	assert.Len(t, rawKey, 16)

	rawSecret, err := hex.DecodeString(secret)
	require.NoError(t, err)
	assert.Len(t, rawSecret, 32)

	key2, secret2, err := GenerateCredential()
	require.NoError(t, err)
	assert.NotEqual(t, key, key2)
	assert.NotEqual(t, secret, secret2)
}

func TestNewRequestIDIsBoundToKey(t *testing.T) {
	a, err := NewRequestID("abcd")
	require.NoError(t, err)
	b, err := NewRequestID("abcd")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(a, "abcd-"))
	assert.Len(t, a, len("abcd-")+16)
	assert.NotEqual(t, a, b)
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "abcd***", MaskKey("abcdef0123456789"))
	assert.Equal(t, "***", MaskKey("abc"))
	assert.NotContains(t, MaskKey("0123456789abcdef"), "4567")
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "ab****yz", MaskSecret("abcdwxyz"))
	assert.Equal(t, "****", MaskSecret("abc"))
}
