package util

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignChallengeUsesBase64(t *testing.T) {
	mac := hmac.New(sha256.New, []byte("secret"))
	mac.Write([]byte("nonce"))
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	assert.Equal(t, want, SignChallenge("secret", "nonce"))
}

func TestVerifyChallengeSignature(t *testing.T) {
	sig := SignChallenge("secret", "nonce")

	assert.True(t, VerifyChallengeSignature("secret", "nonce", sig))
	assert.False(t, VerifyChallengeSignature("other", "nonce", sig))
	assert.False(t, VerifyChallengeSignature("secret", "other", sig))
	assert.False(t, VerifyChallengeSignature("secret", "nonce", "not base64!"))

	mac := hmac.New(sha256.New, []byte("secret"))
	mac.Write([]byte("nonce"))
	hexSig := hex.EncodeToString(mac.Sum(nil))
	assert.False(t, VerifyChallengeSignature("secret", "nonce", hexSig), "hex encoding is not accepted")
}
