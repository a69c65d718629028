package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"
)

// The deed protocol does not require asymmetric cryptography: it requires
// that the same (content hash, role) pair never produces the same signature
// value across time. A timestamp-salted one-way hash satisfies that.

const Version = "dsg-v1"

var (
	ErrUnsupportedVersion = errors.New("unsupported signature version")
	ErrInvalidSignedAt    = errors.New("invalid signed_at")
	ErrSignatureMismatch  = errors.New("signature mismatch")
)

// Envelope carries everything needed to re-derive and check a deed signature.
type Envelope struct {
	Version       string    `json:"version"`
	ContentHash   string    `json:"content_hash"`
	SignerRole    string    `json:"signer_role"`
	WalletAddress string    `json:"wallet_address"`
	SignedAt      time.Time `json:"signed_at"`
	Signature     string    `json:"signature"`
}

// Generate signs contentHash for role at the given instant.
func Generate(contentHash, role, walletAddress string, at time.Time) Envelope {
	at = at.UTC()
	return Envelope{
		Version:       Version,
		ContentHash:   contentHash,
		SignerRole:    role,
		WalletAddress: walletAddress,
		SignedAt:      at,
		Signature:     digest(contentHash, role, walletAddress, at),
	}
}

// Verify recomputes the digest and compares it in constant time.
func Verify(env Envelope) error {
	if strings.TrimSpace(env.Version) != Version {
		return ErrUnsupportedVersion
	}
	if env.SignedAt.IsZero() {
		return ErrInvalidSignedAt
	}
	want := digest(env.ContentHash, env.SignerRole, env.WalletAddress, env.SignedAt.UTC())
	if !hmac.Equal([]byte(want), []byte(env.Signature)) {
		return ErrSignatureMismatch
	}
	return nil
}

func digest(contentHash, role, walletAddress string, at time.Time) string {
	var b strings.Builder
	b.WriteString(Version)
	b.WriteString("\n")
	b.WriteString(contentHash)
	b.WriteString("\n")
	b.WriteString(role)
	b.WriteString("\n")
	b.WriteString(walletAddress)
	b.WriteString("\n")
	b.WriteString(at.Format(time.RFC3339Nano))
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
