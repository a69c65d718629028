package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestHandlerServesOwnRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.Transition("bill", "certified")
	m.TransitionError("deed")
	m.NotificationSent()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Result().Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	for _, name := range []string{
		"settlement_transitions_total",
		"settlement_transition_errors_total",
		"settlement_notifications_sent_total",
	} {
		if !strings.Contains(string(body), name) {
			t.Fatalf("metric %s not exposed:\n%s", name, body)
		}
	}
}
