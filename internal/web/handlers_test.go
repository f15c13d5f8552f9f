package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"bess-trader/internal/config"
	apperrors "bess-trader/internal/errors"
	"bess-trader/internal/models"
	"bess-trader/internal/notify"
	"bess-trader/internal/signal"
	"bess-trader/internal/store"
	"bess-trader/internal/stream"
)

// stubRunner completes every record with canned summaries, or fails with
// a fixed error.
type stubRunner struct {
	mu     sync.Mutex
	err    error
	calls  int
	gotRec models.SessionRecord
}

func (r *stubRunner) Execute(_ context.Context, rec models.SessionRecord) (*models.SessionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.gotRec = rec
	if r.err != nil {
		return nil, r.err
	}

	done := rec.
		With(models.FieldPriceSummary, "Price: ₹103.00 | 5-Day Change: 3.00%").
		With(models.FieldNewsSummary, "- Coal supply steady").
		With(models.FieldRecommendation, "**CHARGE** Off-peak pricing favors storing energy.")
	done.CompletedAt = time.Now()
	return &done, nil
}

func (r *stubRunner) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func (r *stubRunner) lastRecord() models.SessionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gotRec
}

// memStore is an in-memory SessionStore safe for the detached run
// goroutine.
type memStore struct {
	mu       sync.Mutex
	sessions map[string]models.SessionRecord
}

func newMemStore() *memStore {
	return &memStore{sessions: make(map[string]models.SessionRecord)}
}

func (m *memStore) SaveSession(_ context.Context, rec *models.SessionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[rec.ID] = *rec
	return nil
}

func (m *memStore) GetSessions(_ context.Context, filter store.SessionFilter) ([]models.SessionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.SessionRecord
	for _, rec := range m.sessions {
		if filter.Symbol != "" && rec.Symbol != filter.Symbol {
			continue
		}
		out = append(out, rec)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func (m *memStore) GetSessionByID(_ context.Context, id string) (*models.SessionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.sessions[id]
	if !ok {
		return nil, apperrors.Wrapf(apperrors.ErrSessionNotFound, "id %s", id)
	}
	return &rec, nil
}

func (m *memStore) CountSessions(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions), nil
}

func (m *memStore) Close() error { return nil }

func (m *memStore) get(id string) (models.SessionRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.sessions[id]
	return rec, ok
}

// recordingNotifier captures decision notifications.
type recordingNotifier struct {
	mu        sync.Mutex
	decisions []signal.Signal
}

func (n *recordingNotifier) Send(context.Context, notify.Notification) error { return nil }

func (n *recordingNotifier) SendDecision(_ context.Context, _ *models.SessionRecord, sig signal.Signal) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.decisions = append(n.decisions, sig)
	return nil
}

func (n *recordingNotifier) SendError(context.Context, error, string) error { return nil }

func (n *recordingNotifier) decisionCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.decisions)
}

func newTestServer(runner Runner, st store.SessionStore, hub *stream.Hub, notifier notify.Notifier) *Server {
	cfg := &config.Config{}
	cfg.Desk.DefaultSymbol = "TATAPOWER.NS"
	cfg.Desk.DefaultCompany = "Tata Power"
	cfg.Server.Addr = ":0"

	return NewServer(cfg, Deps{
		Runner:   runner,
		Store:    st,
		Hub:      hub,
		Notifier: notifier,
		Logger:   zerolog.Nop(),
	})
}

func doJSON(s *Server, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response envelope: %v (body %q)", err, rec.Body.String())
	}
	return resp
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestAPIRunSuccess(t *testing.T) {
	runner := &stubRunner{}
	st := newMemStore()
	s := newTestServer(runner, st, nil, nil)

	rec := doJSON(s, http.MethodPost, "/api/run", `{"symbol":"TATAPOWER.NS"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %q)", rec.Code, rec.Body.String())
	}

	resp := decodeEnvelope(t, rec)
	if resp.Status != "success" {
		t.Fatalf("envelope status = %q, want success", resp.Status)
	}

	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("data is %T, want object", resp.Data)
	}
	if data["signal"] != "CHARGE" {
		t.Errorf("signal = %v, want CHARGE", data["signal"])
	}
	if data["headline"] == "" {
		t.Error("headline should not be empty")
	}

	if got := runner.lastRecord().CompanyName; got != "Tata Power" {
		t.Errorf("company = %q, want default company for default symbol", got)
	}

	count, _ := st.CountSessions(context.Background())
	if count != 1 {
		t.Errorf("stored sessions = %d, want 1", count)
	}
}

func TestAPIRunCompanyFallsBackToSymbol(t *testing.T) {
	runner := &stubRunner{}
	s := newTestServer(runner, newMemStore(), nil, nil)

	rec := doJSON(s, http.MethodPost, "/api/run", `{"symbol":"NTPC.NS"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	if got := runner.lastRecord().CompanyName; got != "NTPC.NS" {
		t.Errorf("company = %q, want symbol fallback without a resolver", got)
	}
}

func TestAPIRunInvalidBody(t *testing.T) {
	s := newTestServer(&stubRunner{}, newMemStore(), nil, nil)

	rec := doJSON(s, http.MethodPost, "/api/run", `{"symbol":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAPIRunErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{
			name:       "missing credential is unprocessable",
			err:        apperrors.Wrapf(apperrors.ErrMissingCredential, "stage news preflight"),
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "validation error is bad request",
			err:        apperrors.NewValidationError("symbol", "symbol is required"),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "completion error is bad gateway",
			err:        apperrors.NewCompletionError("news", "sonar-pro", apperrors.New("backend down")),
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "anything else is internal",
			err:        apperrors.New("disk on fire"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(&stubRunner{err: tt.err}, newMemStore(), nil, nil)

			rec := doJSON(s, http.MethodPost, "/api/run", `{"symbol":"TATAPOWER.NS"}`)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %q)", rec.Code, tt.wantStatus, rec.Body.String())
			}

			resp := decodeEnvelope(t, rec)
			if resp.Status != "error" {
				t.Errorf("envelope status = %q, want error", resp.Status)
			}
		})
	}
}

func TestAPIRunMissingCredentialNamesTheFix(t *testing.T) {
	err := apperrors.Wrapf(apperrors.ErrMissingCredential, "stage news preflight")
	s := newTestServer(&stubRunner{err: err}, newMemStore(), nil, nil)

	rec := doJSON(s, http.MethodPost, "/api/run", `{}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "PERPLEXITY_API_KEY") {
		t.Errorf("response should tell the caller which credential to set, got %q", rec.Body.String())
	}
}

func TestAPISessions(t *testing.T) {
	st := newMemStore()
	first := models.NewSessionRecord("TATAPOWER.NS", "Tata Power")
	second := models.NewSessionRecord("NTPC.NS", "NTPC")
	_ = st.SaveSession(context.Background(), &first)
	_ = st.SaveSession(context.Background(), &second)

	s := newTestServer(&stubRunner{}, st, nil, nil)

	t.Run("filters by symbol", func(t *testing.T) {
		rec := doJSON(s, http.MethodGet, "/api/sessions?symbol=NTPC.NS", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}

		resp := decodeEnvelope(t, rec)
		list, ok := resp.Data.([]interface{})
		if !ok {
			t.Fatalf("data is %T, want array", resp.Data)
		}
		if len(list) != 1 {
			t.Fatalf("got %d sessions, want 1", len(list))
		}
	})

	t.Run("rejects non-numeric limit", func(t *testing.T) {
		rec := doJSON(s, http.MethodGet, "/api/sessions?limit=abc", "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("rejects zero limit", func(t *testing.T) {
		rec := doJSON(s, http.MethodGet, "/api/sessions?limit=0", "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("rejects malformed since", func(t *testing.T) {
		rec := doJSON(s, http.MethodGet, "/api/sessions?since=yesterday", "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})
}

func TestAPISessionsEmptyListIsNotNull(t *testing.T) {
	s := newTestServer(&stubRunner{}, newMemStore(), nil, nil)

	rec := doJSON(s, http.MethodGet, "/api/sessions", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"data":[]`) {
		t.Errorf("empty list should serialize as [], got %q", rec.Body.String())
	}
}

func TestAPISessionByID(t *testing.T) {
	st := newMemStore()
	stored := models.NewSessionRecord("TATAPOWER.NS", "Tata Power")
	stored = stored.With(models.FieldRecommendation, "**HOLD** Waiting on the policy announcement.")
	_ = st.SaveSession(context.Background(), &stored)

	s := newTestServer(&stubRunner{}, st, nil, nil)

	t.Run("found", func(t *testing.T) {
		rec := doJSON(s, http.MethodGet, "/api/sessions/"+stored.ID, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), stored.ID) {
			t.Error("response should include the session id")
		}
	})

	t.Run("missing", func(t *testing.T) {
		rec := doJSON(s, http.MethodGet, "/api/sessions/no-such-id", "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
	})
}

func TestAPIHealth(t *testing.T) {
	hub := stream.NewHub()
	s := newTestServer(&stubRunner{}, newMemStore(), hub, nil)

	rec := doJSON(s, http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	resp := decodeEnvelope(t, rec)
	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("data is %T, want object", resp.Data)
	}
	if data["status"] != "healthy" {
		t.Errorf("status = %v, want healthy", data["status"])
	}
	if data["service"] != "bess-trader" {
		t.Errorf("service = %v, want bess-trader", data["service"])
	}
	if _, ok := data["sessions"]; !ok {
		t.Error("health should report the session count")
	}
	if _, ok := data["hub"]; !ok {
		t.Error("health should report hub metrics when a hub is wired")
	}
}

func TestIndexPage(t *testing.T) {
	st := newMemStore()
	done := models.NewSessionRecord("TATAPOWER.NS", "Tata Power")
	done = done.With(models.FieldRecommendation, "**DISCHARGE** Evening peak pricing justifies selling stored energy.")
	done.CompletedAt = time.Now()
	_ = st.SaveSession(context.Background(), &done)

	s := newTestServer(&stubRunner{}, st, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "TATAPOWER.NS") {
		t.Error("index should prefill the default symbol")
	}
	if !strings.Contains(body, "Tata Power") {
		t.Error("index should prefill the default company")
	}
	if !strings.Contains(body, "DISCHARGE") {
		t.Error("index should list the recent session's signal")
	}
	if !strings.Contains(body, "sig-red") {
		t.Error("a discharge signal should carry the red class")
	}
}

func TestRunFormStartsDetachedRun(t *testing.T) {
	runner := &stubRunner{}
	st := newMemStore()
	notifier := &recordingNotifier{}
	s := newTestServer(runner, st, nil, notifier)

	form := url.Values{}
	form.Set("symbol", "TATAPOWER.NS")
	req := httptest.NewRequest(http.MethodPost, "/run", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}

	location := rec.Header().Get("Location")
	if !strings.HasPrefix(location, "/sessions/") {
		t.Fatalf("location = %q, want /sessions/<id>", location)
	}
	id := strings.TrimPrefix(location, "/sessions/")

	// The shell row lands before the redirect so the session page resolves
	// immediately.
	if _, ok := st.get(id); !ok {
		t.Fatal("session row should exist before the run completes")
	}

	waitFor(t, 2*time.Second, func() bool {
		stored, ok := st.get(id)
		return ok && !stored.CompletedAt.IsZero()
	})

	if runner.callCount() != 1 {
		t.Errorf("runner calls = %d, want 1", runner.callCount())
	}

	waitFor(t, 2*time.Second, func() bool {
		return notifier.decisionCount() == 1
	})
}

func TestRunFormRejectsBlankSymbol(t *testing.T) {
	s := newTestServer(&stubRunner{}, newMemStore(), nil, nil)
	s.cfg.Desk.DefaultSymbol = ""

	form := url.Values{}
	form.Set("symbol", "   ")
	req := httptest.NewRequest(http.MethodPost, "/run", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSessionPage(t *testing.T) {
	st := newMemStore()
	done := models.NewSessionRecord("TATAPOWER.NS", "Tata Power")
	done = done.
		With(models.FieldPriceSummary, "Price: ₹412.35 | 5-Day Change: -1.20%").
		With(models.FieldNewsSummary, "- Monsoon demand dip").
		With(models.FieldRecommendation, "**DISCHARGE** Evening peak pricing justifies selling stored energy.")
	done.CompletedAt = time.Now()
	_ = st.SaveSession(context.Background(), &done)

	s := newTestServer(&stubRunner{}, st, nil, nil)

	t.Run("renders a finished session", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/sessions/"+done.ID, nil)
		rec := httptest.NewRecorder()
		s.echo.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		body := rec.Body.String()
		if !strings.Contains(body, "DISCHARGE") {
			t.Error("page should show the signal")
		}
		if !strings.Contains(body, "412.35") {
			t.Error("page should show the price summary")
		}
		if !strings.Contains(body, "Monsoon demand dip") {
			t.Error("page should show the news summary")
		}
	})

	t.Run("running session subscribes to the event stream", func(t *testing.T) {
		running := models.NewSessionRecord("NTPC.NS", "NTPC")
		_ = st.SaveSession(context.Background(), &running)

		req := httptest.NewRequest(http.MethodGet, "/sessions/"+running.ID, nil)
		rec := httptest.NewRecorder()
		s.echo.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "/events/"+running.ID) {
			t.Error("running session page should reference its event stream")
		}
	})

	t.Run("missing session renders not found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/sessions/no-such-id", nil)
		rec := httptest.NewRecorder()
		s.echo.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Session not found") {
			t.Error("page should say the session was not found")
		}
	})
}

func TestEventStream(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := stream.NewHub()
	hub.Start(ctx)
	defer hub.Stop()

	s := newTestServer(&stubRunner{}, newMemStore(), hub, nil)

	sessionID := "stream-session"
	go func() {
		deadline := time.Now().Add(2 * time.Second)
		for hub.SubscriberCount(sessionID) == 0 && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}
		hub.Publish(models.ProgressEvent{
			SessionID: sessionID,
			Stage:     "market_data",
			Status:    models.StageCompleted,
			At:        time.Now(),
		})
		hub.Publish(models.ProgressEvent{
			SessionID: sessionID,
			Stage:     models.StagePipeline,
			Status:    models.StageCompleted,
			At:        time.Now(),
		})
	}()

	req := httptest.NewRequest(http.MethodGet, "/events/"+sessionID, nil)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	body := rec.Body.String()
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q, want text/event-stream", ct)
	}
	if !strings.Contains(body, "data: ") {
		t.Fatalf("stream should contain SSE data frames, got %q", body)
	}
	if !strings.Contains(body, "market_data") {
		t.Error("stream should carry the stage event")
	}
	if !strings.Contains(body, models.StagePipeline) {
		t.Error("stream should end with the terminal pipeline event")
	}
}

func TestEventStreamWithoutHub(t *testing.T) {
	s := newTestServer(&stubRunner{}, newMemStore(), nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/events/any", nil)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}
