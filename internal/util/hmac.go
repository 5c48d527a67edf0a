package util

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// SignChallenge computes HMAC-SHA256(secret, challenge) in the encoding
// clients must use: standard base64 with padding.
func SignChallenge(secret, challenge string) string {
	return base64.StdEncoding.EncodeToString(challengeMAC(secret, challenge))
}

// VerifyChallengeSignature compares a client supplied signature against the
// expected one in constant time. Signatures that are not valid base64 fail.
func VerifyChallengeSignature(secret, challenge, signature string) bool {
	provided, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(provided, challengeMAC(secret, challenge))
}

func challengeMAC(secret, challenge string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(challenge))
	return mac.Sum(nil)
}
