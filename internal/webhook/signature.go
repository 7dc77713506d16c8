package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

const signaturePrefix = "sha256="

// Sign returns the x-signature header value of a body: "sha256=<hex HMAC-SHA256(secret, body)>"
func Sign(secret string, body []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(body)
	return signaturePrefix + hex.EncodeToString(h.Sum(nil))
}

// Verify checks a signature header against a body in constant time
func Verify(secret string, body []byte, signature string) bool {
	if !strings.HasPrefix(signature, signaturePrefix) {
		return false
	}
	got, err := hex.DecodeString(strings.TrimPrefix(signature, signaturePrefix))
	if err != nil {
		return false
	}
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(body)
	return hmac.Equal(got, h.Sum(nil))
}

// SignedBody builds the canonical delivery body and its signature
func SignedBody(canon canonicalizer, secret string, body DeliveryBody) ([]byte, string, error) {
	payload, err := canon.Marshal(body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to canonicalize webhook body: %w", err)
	}
	return payload, Sign(secret, payload), nil
}

type canonicalizer interface {
	Marshal(v interface{}) ([]byte, error)
}
