package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
)

// Outbound notification pushes are signed with a body HMAC so collaborators
// can check provenance without shared infrastructure.

const (
	SignatureHeader = "X-Signature"
	SchemeHeader    = "X-Signature-Scheme"
	EventIDHeader   = "X-Event-Id"
	EventTypeHeader = "X-Event-Type"
	Scheme          = "generic-hmac-sha256/v1"
)

// Sign stamps the HMAC and event headers for an outbound push.
func Sign(headers http.Header, eventID, eventType string, rawBody []byte, secret string) error {
	if strings.TrimSpace(secret) == "" {
		return fmt.Errorf("webhook secret is empty")
	}
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(rawBody)
	headers.Set(SignatureHeader, hex.EncodeToString(mac.Sum(nil)))
	headers.Set(SchemeHeader, Scheme)
	headers.Set(EventIDHeader, eventID)
	headers.Set(EventTypeHeader, eventType)
	return nil
}

// Verify checks a signed push the way a receiving collaborator would.
// Pushes declaring an unknown signature scheme never verify.
func Verify(headers http.Header, rawBody []byte, secret string) (bool, error) {
	if strings.TrimSpace(secret) == "" {
		return false, fmt.Errorf("webhook secret is empty")
	}
	if scheme := headers.Get(SchemeHeader); scheme != "" && scheme != Scheme {
		return false, nil
	}
	sigHex := strings.TrimSpace(headers.Get(SignatureHeader))
	if sigHex == "" {
		return false, nil
	}
	provided, err := hex.DecodeString(sigHex)
	if err != nil {
		return false, nil
	}
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(rawBody)
	return hmac.Equal(mac.Sum(nil), provided), nil
}
