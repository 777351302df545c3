package controltower

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"activation_backend/platform/logger"
)

type testConfig struct {
	url string
}

func (c testConfig) GetControlTowerURL() string           { return c.url }
func (c testConfig) GetControlTowerAPIKey() string        { return "ct-key" }
func (c testConfig) GetControlTowerWebhookSecret() string { return "" }
func (c testConfig) IsControlTowerEnabled() bool          { return c.url != "" }

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := NewClient(testConfig{url: url}, logger.NewWithWriter("test", io.Discard))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestSyncPipelineStatusTranslatesCodes(t *testing.T) {
	var got map[string]any
	var path, auth, key string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		auth = r.Header.Get("Authorization")
		key = r.Header.Get(headerIdempotencyKey)
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	err := c.SyncPipelineStatus(context.Background(), PipelineStatusUpdate{
		IdempotencyKey:  "evt-1",
		JCCUserID:       "jcc-42",
		TrialPipelineID: "p-1",
		Status:          "killed",
		KillReason:      "duplicate",
		OccurredAt:      time.Date(2026, 3, 3, 14, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "/v1/trial-users/jcc-42/status" {
		t.Fatalf("unexpected path %s", path)
	}
	if auth != "Bearer ct-key" || key != "evt-1" {
		t.Fatalf("unexpected headers auth=%q key=%q", auth, key)
	}
	if got["status"] != "churned" || got["killReason"] != "DUPLICATE_ACCOUNT" {
		t.Fatalf("unexpected payload %v", got)
	}
}

func TestSyncRejectsUnmappedStatusWithoutCalling(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	if err := c.SyncPipelineStatus(context.Background(), PipelineStatusUpdate{JCCUserID: "j", Status: "paused"}); err == nil {
		t.Fatal("expected error for unmapped status")
	}
	if err := c.SyncMeeting(context.Background(), MeetingUpdate{JCCUserID: "", Status: "scheduled"}); err == nil {
		t.Fatal("expected error without jcc user id")
	}
	if called {
		t.Fatal("expected no request")
	}
}

func TestSyncSurfacesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	err := c.SyncMeeting(context.Background(), MeetingUpdate{JCCUserID: "j", Status: "completed"})
	if err == nil {
		t.Fatal("expected error on 502")
	}
}

func TestDisabledClientIsNil(t *testing.T) {
	c, err := NewClient(testConfig{}, nil)
	if err != nil || c != nil {
		t.Fatalf("expected nil client, got %v %v", c, err)
	}
	if err := c.SyncMeeting(context.Background(), MeetingUpdate{}); err != nil {
		t.Fatalf("nil client should drop updates, got %v", err)
	}
}

func TestMappingCoversEveryKillReason(t *testing.T) {
	m, err := LoadMapping()
	if err != nil {
		t.Fatalf("load mapping: %v", err)
	}
	for _, reason := range []string{"no_response", "not_interested", "duplicate", "bad_fit", "other"} {
		if m.KillReason(reason) == "" {
			t.Errorf("kill reason %q has no mapping", reason)
		}
	}
	if m.KillReason("unexpected") != "OTHER" {
		t.Error("expected unknown kill reasons to fall back to OTHER")
	}
	for _, status := range []string{"queued", "scheduled", "no_show", "completed", "activated", "killed"} {
		if _, err := m.Status(status); err != nil {
			t.Errorf("status %q: %v", status, err)
		}
	}
	if _, err := parseMapping([]byte("statuses: {}")); err == nil {
		t.Error("expected error for empty mapping")
	}
}
