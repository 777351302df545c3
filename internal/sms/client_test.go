package sms

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"activation_backend/platform/logger"
)

type testConfig struct {
	baseURL string
}

func (c testConfig) GetTwilioAccountSID() string { return "AC123" }
func (c testConfig) GetTwilioAuthToken() string  { return "token" }
func (c testConfig) GetTwilioFromNumber() string { return "+15005550006" }
func (c testConfig) GetTwilioBaseURL() string    { return c.baseURL }
func (c testConfig) IsSMSEnabled() bool          { return c.baseURL != "" }

func TestSendMessagePostsForm(t *testing.T) {
	var form url.Values
	var user, pass string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2010-04-01/Accounts/AC123/Messages.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		user, pass, _ = r.BasicAuth()
		body, _ := io.ReadAll(r.Body)
		form, _ = url.ParseQuery(string(body))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM1"}`))
	}))
	defer srv.Close()

	c := NewClient(testConfig{baseURL: srv.URL}, logger.NewWithWriter("test", io.Discard))
	if err := c.SendMessage(context.Background(), "(415) 555-2671", "See you at 9"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user != "AC123" || pass != "token" {
		t.Fatalf("unexpected basic auth %q:%q", user, pass)
	}
	if form.Get("To") != "+14155552671" || form.Get("From") != "+15005550006" || form.Get("Body") != "See you at 9" {
		t.Fatalf("unexpected form %v", form)
	}
}

func TestSendMessageSurfacesTwilioError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":21211,"message":"Invalid 'To' Phone Number"}`))
	}))
	defer srv.Close()

	c := NewClient(testConfig{baseURL: srv.URL}, logger.NewWithWriter("test", io.Discard))
	err := c.SendMessage(context.Background(), "+14155552671", "hi")
	if err == nil || !strings.Contains(err.Error(), "21211") {
		t.Fatalf("expected twilio error code, got %v", err)
	}
}

func TestNilClientIsNoop(t *testing.T) {
	c := NewClient(testConfig{}, nil)
	if c != nil {
		t.Fatal("expected nil client when not configured")
	}
	if err := c.SendMessage(context.Background(), "+14155552671", "hi"); err != nil {
		t.Fatalf("expected nil client to be a no-op, got %v", err)
	}
}
