package notify

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"payablelane/pkg/domain"
	"payablelane/pkg/webhooks"
	"payablelane/services/settlement/internal/memstore"
)

type capturingPublisher struct {
	mu   sync.Mutex
	keys []string
}

func (p *capturingPublisher) Publish(_ context.Context, eventType string, payload []byte, partitionKey string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, partitionKey)
	return nil
}

func TestDispatcherPersistsAndFansOut(t *testing.T) {
	st := memstore.New()
	pub := &capturingPublisher{}
	d := NewDispatcher(Options{
		Repository: st.Notifications(),
		Directory:  StaticDirectory{domain.RoleSPV: {"spv_1", "spv_2"}},
		Publisher:  pub,
	})

	d.ToIdentity("sup_1", "Bill certified", "Bill INV-1 has been certified.")
	d.ToRole(domain.RoleSPV, "Bill awaiting offer", "Bill INV-2 is awaiting an offer.")
	d.Close()

	rows, err := st.Notifications().ListByRecipient(context.Background(), "sup_1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 || rows[0].Title != "Bill certified" {
		t.Fatalf("unexpected supplier rows: %+v", rows)
	}
	for _, rcpt := range []string{"spv_1", "spv_2"} {
		rows, err := st.Notifications().ListByRecipient(context.Background(), rcpt)
		if err != nil || len(rows) != 1 {
			t.Fatalf("role fan-out missed %s: %v %v", rcpt, rows, err)
		}
	}
	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.keys) != 3 {
		t.Fatalf("expected 3 published messages, got %d", len(pub.keys))
	}
}

type failingPublisher struct {
	mu    sync.Mutex
	calls int
}

func (p *failingPublisher) Publish(_ context.Context, _ string, _ []byte, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return errors.New("broker unavailable")
}

type flakySaveRepo struct {
	Repository
	mu     sync.Mutex
	failed bool
}

func (r *flakySaveRepo) Save(ctx context.Context, row domain.Notification) error {
	r.mu.Lock()
	first := !r.failed
	r.failed = true
	r.mu.Unlock()
	if first {
		return errors.New("store unavailable")
	}
	return r.Repository.Save(ctx, row)
}

func TestDispatcherSwallowsDeliveryFailures(t *testing.T) {
	st := memstore.New()
	repo := &flakySaveRepo{Repository: st.Notifications()}
	pub := &failingPublisher{}
	d := NewDispatcher(Options{Repository: repo, Publisher: pub})

	d.ToIdentity("sup_1", "first", "m")
	d.ToIdentity("sup_1", "second", "m")
	d.Close()

	rows, err := st.Notifications().ListByRecipient(context.Background(), "sup_1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 || rows[0].Title != "second" {
		t.Fatalf("worker did not keep delivering past the failed save: %+v", rows)
	}
	pub.mu.Lock()
	defer pub.mu.Unlock()
	if pub.calls != 2 {
		t.Fatalf("publish attempts = %d, want 2", pub.calls)
	}
}

func TestDispatcherUnreadAndMarkRead(t *testing.T) {
	st := memstore.New()
	d := NewDispatcher(Options{Repository: st.Notifications()})
	d.ToIdentity("sup_1", "a", "m")
	d.ToIdentity("sup_1", "b", "m")
	d.Close()

	ctx := context.Background()
	n, err := st.Notifications().UnreadCount(ctx, "sup_1")
	if err != nil || n != 2 {
		t.Fatalf("unread = %d, err %v", n, err)
	}
	rows, _ := st.Notifications().ListByRecipient(ctx, "sup_1")
	if err := st.Notifications().MarkRead(ctx, "sup_1", rows[0].NotificationID, time.Now()); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	n, _ = st.Notifications().UnreadCount(ctx, "sup_1")
	if n != 1 {
		t.Fatalf("unread after mark = %d", n)
	}
}

func TestWebhookPublisherSignsBody(t *testing.T) {
	const secret = "wh-secret"
	var gotBody []byte
	var verified bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf, _ := io.ReadAll(r.Body)
		gotBody = buf
		ok, err := webhooks.Verify(r.Header, buf, secret)
		if err != nil {
			t.Errorf("verify: %v", err)
		}
		verified = ok
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	p := NewWebhookPublisher(srv.URL, secret)
	if err := p.Publish(context.Background(), "notification.created", []byte(`{"x":1}`), "sup_1"); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if string(gotBody) != `{"x":1}` {
		t.Fatalf("body = %q", gotBody)
	}
	if !verified {
		t.Fatalf("signature did not verify")
	}
}
