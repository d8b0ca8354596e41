package push

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/time/rate"

	"glanced/internal/island"
)

func unlimited(w *Webhook) *Webhook {
	w.limiter = rate.NewLimiter(rate.Inf, 1)
	return w
}

func TestWebhookDeliver(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	wh := unlimited(NewWebhook(srv.URL, 0))
	err := wh.Deliver(context.Background(), "tok-1234", "act-1", map[string]any{
		"intelligentIslandType": "dashboard",
	})
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	if got["device_token"] != "tok-1234" {
		t.Errorf("device_token = %v", got["device_token"])
	}
	if got["activity_id"] != "act-1" {
		t.Errorf("activity_id = %v", got["activity_id"])
	}
	if got["event"] != "update" {
		t.Errorf("event = %v", got["event"])
	}
	if _, ok := got["timestamp"].(float64); !ok {
		t.Errorf("timestamp missing or not numeric: %v", got["timestamp"])
	}
	cs, ok := got["content-state"].(map[string]any)
	if !ok || cs["intelligentIslandType"] != "dashboard" {
		t.Errorf("content-state = %v", got["content-state"])
	}
}

func TestWebhookGoneMapsToTokenGone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer srv.Close()

	wh := unlimited(NewWebhook(srv.URL, 0))
	err := wh.Deliver(context.Background(), "tok", "act", nil)
	if !errors.Is(err, island.ErrTokenGone) {
		t.Errorf("err = %v, want ErrTokenGone", err)
	}
}

func TestWebhookServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	wh := unlimited(NewWebhook(srv.URL, 0))
	err := wh.Deliver(context.Background(), "tok", "act", nil)
	if err == nil {
		t.Fatal("expected error on 500")
	}
	if errors.Is(err, island.ErrTokenGone) {
		t.Error("500 must not map to ErrTokenGone")
	}
}
