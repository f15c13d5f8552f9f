package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"bess-trader/internal/config"
	"bess-trader/internal/models"
	"bess-trader/internal/signal"
)

type recordingChannel struct {
	name     string
	enabled  bool
	err      error
	received []Notification
}

func (c *recordingChannel) Name() string    { return c.name }
func (c *recordingChannel) IsEnabled() bool { return c.enabled }
func (c *recordingChannel) Send(ctx context.Context, n Notification) error {
	c.received = append(c.received, n)
	return c.err
}

func completedSession() *models.SessionRecord {
	rec := models.NewSessionRecord("TATAPOWER.NS", "Tata Power")
	rec.PriceSummary = "Price: ₹103.00 | 5-Day Change: 3.00%"
	rec.NewsSummary = "- Coal supply stable"
	rec.Recommendation = "**DISCHARGE** Evening peak pricing justifies selling stored energy."
	rec.CompletedAt = rec.StartedAt.Add(2 * time.Second)
	return &rec
}

func TestMultiNotifierFansOut(t *testing.T) {
	a := &recordingChannel{name: "a", enabled: true}
	b := &recordingChannel{name: "b", enabled: true}
	disabled := &recordingChannel{name: "c", enabled: false}

	mn := NewMultiNotifier(&config.NotificationConfig{Level: "all"})
	mn.AddChannel(a)
	mn.AddChannel(b)
	mn.AddChannel(disabled)

	if err := mn.Send(context.Background(), Notification{Type: NotificationInfo, Title: "t"}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if len(a.received) != 1 || len(b.received) != 1 {
		t.Errorf("enabled channels received %d/%d, want 1/1", len(a.received), len(b.received))
	}
	if len(disabled.received) != 0 {
		t.Errorf("disabled channel received %d notifications", len(disabled.received))
	}
}

func TestMultiNotifierAggregatesChannelErrors(t *testing.T) {
	ok := &recordingChannel{name: "ok", enabled: true}
	bad := &recordingChannel{name: "bad", enabled: true, err: errors.New("boom")}

	mn := NewMultiNotifier(&config.NotificationConfig{Level: "all"})
	mn.AddChannel(ok)
	mn.AddChannel(bad)

	err := mn.Send(context.Background(), Notification{Type: NotificationInfo, Title: "t"})
	if err == nil {
		t.Fatal("expected aggregated error")
	}
	if !strings.Contains(err.Error(), "bad: boom") {
		t.Errorf("error %q does not name the failing channel", err)
	}
	if len(ok.received) != 1 {
		t.Error("healthy channel skipped because a sibling failed")
	}
}

func TestMultiNotifierLevelFilter(t *testing.T) {
	tests := []struct {
		level    string
		notType  NotificationType
		expected bool
	}{
		{"all", NotificationInfo, true},
		{"all", NotificationDecision, true},
		{"decisions_only", NotificationDecision, true},
		{"decisions_only", NotificationError, false},
		{"decisions_only", NotificationInfo, false},
		{"errors_only", NotificationError, true},
		{"errors_only", NotificationDecision, false},
	}

	for _, tt := range tests {
		ch := &recordingChannel{name: "ch", enabled: true}
		mn := NewMultiNotifier(&config.NotificationConfig{Level: tt.level})
		mn.AddChannel(ch)

		if err := mn.Send(context.Background(), Notification{Type: tt.notType}); err != nil {
			t.Fatalf("Send: %v", err)
		}

		got := len(ch.received) == 1
		if got != tt.expected {
			t.Errorf("level %s type %s: delivered=%v, want %v", tt.level, tt.notType, got, tt.expected)
		}
	}
}

func TestSendDecisionContent(t *testing.T) {
	ch := &recordingChannel{name: "ch", enabled: true}
	mn := NewMultiNotifier(&config.NotificationConfig{Level: "all"})
	mn.AddChannel(ch)

	rec := completedSession()
	if err := mn.SendDecision(context.Background(), rec, signal.Discharge); err != nil {
		t.Fatalf("SendDecision: %v", err)
	}

	if len(ch.received) != 1 {
		t.Fatalf("received %d notifications, want 1", len(ch.received))
	}
	n := ch.received[0]

	if n.Type != NotificationDecision {
		t.Errorf("Type = %q, want decision", n.Type)
	}
	if !strings.Contains(n.Title, "DISCHARGE") || !strings.Contains(n.Title, "TATAPOWER.NS") {
		t.Errorf("Title = %q missing signal or symbol", n.Title)
	}
	if !strings.Contains(n.Message, "Tata Power") {
		t.Errorf("Message = %q missing company", n.Message)
	}
	if !strings.Contains(n.Message, "Headline: DISCHARGE Evening peak pricing justifies selling stored energy") {
		t.Errorf("Message = %q missing headline", n.Message)
	}
	if n.Data["session_id"] != rec.ID {
		t.Errorf("Data[session_id] = %v, want %s", n.Data["session_id"], rec.ID)
	}
	if n.Data["signal"] != "DISCHARGE" {
		t.Errorf("Data[signal] = %v", n.Data["signal"])
	}
}

func TestWebhookNotifierPostsPayload(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %s", ct)
		}
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	w := NewWebhookNotifier(config.WebhookConfig{Enabled: true, URL: srv.URL})
	n := Notification{
		Type:      NotificationDecision,
		Title:     "🔴 Dispatch Call: DISCHARGE TATAPOWER.NS",
		Message:   "Asset: Tata Power",
		Data:      map[string]interface{}{"symbol": "TATAPOWER.NS"},
		Timestamp: time.Now(),
	}

	if err := w.Send(context.Background(), n); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if got["type"] != "decision" {
		t.Errorf("payload type = %v", got["type"])
	}
	if got["title"] != n.Title {
		t.Errorf("payload title = %v", got["title"])
	}
	data, ok := got["data"].(map[string]interface{})
	if !ok || data["symbol"] != "TATAPOWER.NS" {
		t.Errorf("payload data = %v", got["data"])
	}
}

func TestWebhookNotifierRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	w := NewWebhookNotifier(config.WebhookConfig{Enabled: true, URL: srv.URL})
	w.retryCfg.InitialDelay = time.Millisecond

	if err := w.Send(context.Background(), Notification{Type: NotificationInfo, Timestamp: time.Now()}); err != nil {
		t.Fatalf("Send after retries: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("server saw %d calls, want 3", calls.Load())
	}
}

func TestWebhookNotifierGivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	w := NewWebhookNotifier(config.WebhookConfig{Enabled: true, URL: srv.URL})
	w.retryCfg.InitialDelay = time.Millisecond

	err := w.Send(context.Background(), Notification{Type: NotificationInfo, Timestamp: time.Now()})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls.Load() != int32(w.retryCfg.MaxAttempts) {
		t.Errorf("server saw %d calls, want %d", calls.Load(), w.retryCfg.MaxAttempts)
	}
}

func TestWebhookNotifierDisabledWithoutURL(t *testing.T) {
	w := NewWebhookNotifier(config.WebhookConfig{Enabled: true, URL: ""})
	if w.IsEnabled() {
		t.Error("webhook enabled without a URL")
	}
	if err := w.Send(context.Background(), Notification{}); err != nil {
		t.Errorf("disabled Send returned %v", err)
	}
}

func TestEscapeHTML(t *testing.T) {
	got := escapeHTML(`<b>Tata & Sons</b>`)
	want := `&lt;b&gt;Tata &amp; Sons&lt;/b&gt;`
	if got != want {
		t.Errorf("escapeHTML = %q, want %q", got, want)
	}
}

func TestNewMultiNotifierBuildsConfiguredChannels(t *testing.T) {
	cfg := &config.NotificationConfig{
		Enabled: true,
		Level:   "all",
		Webhook: config.WebhookConfig{Enabled: true, URL: "https://example.com/hook"},
		Telegram: config.TelegramConfig{
			Enabled: true, BotToken: "token", ChatID: "42",
		},
	}

	mn := NewMultiNotifier(cfg)
	if len(mn.channels) != 2 {
		t.Fatalf("channel count = %d, want 2", len(mn.channels))
	}
	names := []string{mn.channels[0].Name(), mn.channels[1].Name()}
	if names[0] != "webhook" || names[1] != "telegram" {
		t.Errorf("channels = %v", names)
	}
}
