package notify

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewServiceWithoutTopicIsNoop(t *testing.T) {
	svc := NewService("")
	if err := svc.NotifyRetitled(context.Background(), "abc", "Title"); err != nil {
		t.Errorf("noop service should never fail: %v", err)
	}
	if err := svc.NotifyCycleCompleted(context.Background(), 1, 2, time.Second); err != nil {
		t.Errorf("noop service should never fail: %v", err)
	}
}

func TestNtfySendsRetitledMessage(t *testing.T) {
	var gotTitle, gotTags, gotBody string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTitle = r.Header.Get("Title")
		gotTags = r.Header.Get("Tags")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
	}))
	defer srv.Close()

	svc := NewService(srv.URL)
	if err := svc.NotifyRetitled(context.Background(), "abcXYZ123", "Great Clip"); err != nil {
		t.Fatalf("NotifyRetitled failed: %v", err)
	}

	if gotTitle != "tubetag - Title Updated" {
		t.Errorf("unexpected title header: %q", gotTitle)
	}
	if !strings.Contains(gotTags, "retitled") {
		t.Errorf("expected retitled tag, got %q", gotTags)
	}
	if !strings.Contains(gotBody, "abcXYZ123") || !strings.Contains(gotBody, "Great Clip") {
		t.Errorf("unexpected message body: %q", gotBody)
	}
}

func TestNtfyServerErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	svc := NewService(srv.URL)
	if err := svc.NotifyCycleCompleted(context.Background(), 0, 0, 0); err == nil {
		t.Fatal("expected error for 403 response")
	}
}
