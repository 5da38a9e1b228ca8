package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// VerifySignature checks header (expected form "sha256=<hex>") against an
// HMAC-SHA256 of body keyed by secret, timing-safe per SPEC_FULL.md §5's
// constant-time requirement. Grounded on the teacher's attestation verifier
// (crypto/subtle-style constant-time comparison), realized here with the
// stdlib's purpose-built hmac.Equal rather than a hand-rolled compare.
func VerifySignature(header string, body []byte, secret string) bool {
	const prefix = "sha256="
	hexDigest, ok := strings.CutPrefix(header, prefix)
	if !ok {
		return false
	}
	got, err := hex.DecodeString(hexDigest)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	want := mac.Sum(nil)

	return hmac.Equal(got, want)
}

// ExtractCaptureSecret looks for a secret in the locations SPEC_FULL.md §6
// allows during capture-mode: headers x-hook-secret / x-webhook-secret /
// webhook-secret, or body keys secret / webhook_secret / verification_token.
func ExtractCaptureSecret(headers map[string]string, bodyFields map[string]any) (string, bool) {
	for _, h := range []string{"x-hook-secret", "x-webhook-secret", "webhook-secret"} {
		if v, ok := headers[h]; ok && v != "" {
			return v, true
		}
	}
	for _, k := range []string{"secret", "webhook_secret", "verification_token"} {
		if v, ok := bodyFields[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s, true
			}
		}
	}
	return "", false
}
