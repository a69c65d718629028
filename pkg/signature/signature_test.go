package signature

import (
	"testing"
	"time"
)

func TestGenerateVerifyRoundTrip(t *testing.T) {
	env := Generate("sha256:abc", "assignor", "0xwallet", time.Now())
	if err := Verify(env); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestVerifyRejectsTampering(t *testing.T) {
	env := Generate("sha256:abc", "assignor", "0xwallet", time.Now())
	env.SignerRole = "procuring_entity"
	if err := Verify(env); err != ErrSignatureMismatch {
		t.Fatalf("expected ErrSignatureMismatch, got %v", err)
	}
}

func TestVerifyRejectsUnknownVersion(t *testing.T) {
	env := Generate("sha256:abc", "assignor", "0xwallet", time.Now())
	env.Version = "dsg-v9"
	if err := Verify(env); err != ErrUnsupportedVersion {
		t.Fatalf("expected ErrUnsupportedVersion, got %v", err)
	}
}

func TestSameHashRoleNeverCollidesAcrossTime(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	a := Generate("sha256:abc", "assignor", "0xwallet", t0)
	b := Generate("sha256:abc", "assignor", "0xwallet", t0.Add(time.Nanosecond))
	if a.Signature == b.Signature {
		t.Fatalf("signatures for distinct instants must differ")
	}
	c := Generate("sha256:abc", "assignor", "0xwallet", t0)
	if a.Signature != c.Signature {
		t.Fatalf("signature must be a pure function of its inputs")
	}
}
