package jellyfin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/arne/tubetag/internal/util"
)

func authHandler(t *testing.T, token, userID string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/Users/AuthenticateByName" {
			http.NotFound(w, r)
			return
		}
		authz := r.Header.Get("X-Emby-Authorization")
		if !strings.Contains(authz, `Client="tubetag"`) || !strings.Contains(authz, "DeviceId=") {
			t.Errorf("missing or malformed X-Emby-Authorization header: %q", authz)
		}

		var creds map[string]string
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			t.Errorf("failed to decode credentials: %v", err)
		}
		if creds["Username"] != "alice" || creds["Pw"] != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		json.NewEncoder(w).Encode(map[string]any{
			"AccessToken": token,
			"User":        map[string]string{"Id": userID},
		})
	}
}

func TestAuthenticateStoresTokenAndUser(t *testing.T) {
	srv := httptest.NewServer(authHandler(t, "tok-123", "user-1"))
	defer srv.Close()

	client := NewClient(srv.URL, "alice", "secret")
	if err := client.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	if client.UserID() != "user-1" {
		t.Errorf("expected user ID user-1, got %s", client.UserID())
	}
}

func TestAuthenticateRejectedLeavesClientUnauthenticated(t *testing.T) {
	srv := httptest.NewServer(authHandler(t, "tok-123", "user-1"))
	defer srv.Close()

	client := NewClient(srv.URL, "alice", "wrong")
	if err := client.Authenticate(context.Background()); err == nil {
		t.Fatal("expected authentication to fail")
	}

	// Calls without a token must refuse instead of sending requests
	_, err := client.Get(context.Background(), "Items/42", nil)
	if !errors.Is(err, util.ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestSearchItems(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/Users/AuthenticateByName", authHandler(t, "tok", "user-1"))
	mux.HandleFunc("/Users/user-1/Items", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Emby-Token") != "tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		q := r.URL.Query()
		if q.Get("SearchTerm") != "abcXYZ123" {
			t.Errorf("expected SearchTerm abcXYZ123, got %q", q.Get("SearchTerm"))
		}
		if q.Get("Recursive") != "true" || q.Get("Limit") != "5" || q.Get("IncludeItemTypes") != "All" {
			t.Errorf("unexpected search parameters: %v", q)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"Items": []map[string]string{
				{"Id": "42", "Name": "abcXYZ123", "ParentId": "7"},
			},
			"TotalRecordCount": 1,
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewClient(srv.URL, "alice", "secret")
	if err := client.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	items, err := client.SearchItems(context.Background(), "abcXYZ123")
	if err != nil {
		t.Fatalf("SearchItems failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].ID != "42" || items[0].ParentID != "7" {
		t.Errorf("unexpected item: %+v", items[0])
	}
}

func TestItemRoundTripPreservesUnknownFields(t *testing.T) {
	stored := map[string]any{
		"Id":             "42",
		"Name":           "abcXYZ123",
		"ParentId":       "7",
		"Overview":       "some description",
		"ProductionYear": float64(2021),
		"Tags":           []any{"archive"},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/Users/AuthenticateByName", authHandler(t, "tok", "user-1"))
	mux.HandleFunc("/Items/42", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(stored)
		case http.MethodPost:
			var updated map[string]any
			if err := json.NewDecoder(r.Body).Decode(&updated); err != nil {
				t.Errorf("failed to decode update: %v", err)
			}
			stored = updated
			w.WriteHeader(http.StatusNoContent)
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewClient(srv.URL, "alice", "secret")
	if err := client.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	item, err := client.GetItem(context.Background(), "42")
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}

	item["Name"] = "Great Clip"
	if err := client.UpdateItem(context.Background(), "42", item); err != nil {
		t.Fatalf("UpdateItem failed: %v", err)
	}

	if stored["Name"] != "Great Clip" {
		t.Errorf("expected Name to be rewritten, got %v", stored["Name"])
	}
	// Every field other than Name must round-trip unchanged
	if stored["Overview"] != "some description" {
		t.Errorf("Overview changed: %v", stored["Overview"])
	}
	if stored["ProductionYear"] != float64(2021) {
		t.Errorf("ProductionYear changed: %v", stored["ProductionYear"])
	}
	if tags, ok := stored["Tags"].([]any); !ok || len(tags) != 1 || tags[0] != "archive" {
		t.Errorf("Tags changed: %v", stored["Tags"])
	}
}

func TestRefreshLibrary(t *testing.T) {
	var gotBody map[string]string

	mux := http.NewServeMux()
	mux.HandleFunc("/Users/AuthenticateByName", authHandler(t, "tok", "user-1"))
	mux.HandleFunc("/Library/Refresh", func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("failed to decode refresh body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewClient(srv.URL, "alice", "secret")
	if err := client.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	if err := client.RefreshLibrary(context.Background(), "7"); err != nil {
		t.Fatalf("RefreshLibrary failed: %v", err)
	}
	if gotBody["LibraryId"] != "7" {
		t.Errorf("expected LibraryId 7, got %v", gotBody)
	}
}

func TestGetSurfacesServerErrors(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/Users/AuthenticateByName", authHandler(t, "tok", "user-1"))
	mux.HandleFunc("/Items/broken", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewClient(srv.URL, "alice", "secret")
	if err := client.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	_, err := client.Get(context.Background(), "Items/broken", url.Values{})
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
}
