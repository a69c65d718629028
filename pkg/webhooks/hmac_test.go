package webhooks

import (
	"net/http"
	"testing"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	h := http.Header{}
	body := []byte(`{"notification_id":"ntf_1"}`)
	if err := Sign(h, "evt_1", "notification.created", body, "secret"); err != nil {
		t.Fatalf("sign: %v", err)
	}
	ok, err := Verify(h, body, "secret")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Fatalf("expected valid signature")
	}
	if got := h.Get(SchemeHeader); got != Scheme {
		t.Fatalf("scheme header = %q", got)
	}
}

func TestVerifyRejectsUnknownScheme(t *testing.T) {
	h := http.Header{}
	body := []byte(`{}`)
	_ = Sign(h, "evt_1", "notification.created", body, "secret")
	h.Set(SchemeHeader, "stripe-v1")
	ok, err := Verify(h, body, "secret")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if ok {
		t.Fatalf("expected unknown scheme to fail verification")
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	h := http.Header{}
	body := []byte(`{}`)
	_ = Sign(h, "evt_1", "notification.created", body, "secret")
	ok, err := Verify(h, body, "other")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if ok {
		t.Fatalf("expected invalid signature")
	}
}

func TestVerifyMissingHeader(t *testing.T) {
	ok, err := Verify(http.Header{}, []byte(`{}`), "secret")
	if err != nil || ok {
		t.Fatalf("expected ok=false, err=nil; got ok=%v err=%v", ok, err)
	}
}

func TestSignEmptySecret(t *testing.T) {
	if err := Sign(http.Header{}, "evt", "typ", nil, " "); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}
