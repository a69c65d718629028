package evidence

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"time"
)

// Generator produces the on-ledger evidence the core records against deeds
// and notes. A real deployment can swap in an actual ledger client without
// changing any state machine contract.
type Generator interface {
	TxHash() string
	BlockNumber() int64
	TokenID() string
	Registry() string
}

// Simulated generates deterministic-looking evidence from crypto/rand.
// It records hashes and identifiers only; there is no consensus behind them.
type Simulated struct {
	registry string
}

func NewSimulated() *Simulated {
	return &Simulated{registry: "0x" + randomHex(20)}
}

func (s *Simulated) Registry() string {
	return s.registry
}

func (s *Simulated) TxHash() string {
	return "0x" + randomHex(32)
}

func (s *Simulated) BlockNumber() int64 {
	var b [4]byte
	_, _ = rand.Read(b[:])
	// plausible mainnet-ish height range
	return 18_000_000 + int64(binary.BigEndian.Uint32(b[:])%2_000_000)
}

func (s *Simulated) TokenID() string {
	return fmt.Sprintf("TKN-%d-%s", time.Now().UTC().Unix(), randomHex(4))
}

// NoteNumber mints a collision-resistant note number: date plus random suffix.
func NoteNumber(at time.Time) string {
	return fmt.Sprintf("RN-%s-%s", at.UTC().Format("20060102"), randomHex(5))
}

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
