package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"glanced/internal/island"
	"glanced/internal/registry"
)

// minTokenLen rejects obviously bogus registration tokens. Real device
// tokens are 64 hex characters; 32 leaves headroom for other platforms.
const minTokenLen = 32

func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	type deviceJSON struct {
		Token             string    `json:"token"`
		UserID            string    `json:"user_id,omitempty"`
		CurrentIslandType string    `json:"current_island_type,omitempty"`
		LastIslandType    string    `json:"last_island_type,omitempty"`
		IsSubscribed      bool      `json:"is_subscribed"`
		RegisteredAt      time.Time `json:"registered_at"`
		LastUpdate        time.Time `json:"last_update,omitempty"`
		LastPushAt        time.Time `json:"last_push_at,omitempty"`
	}

	snapshot := s.reg.Snapshot()
	out := make([]deviceJSON, len(snapshot))
	for i, d := range snapshot {
		out[i] = deviceJSON{
			Token:             registry.Redact(d.Token),
			UserID:            d.UserID,
			CurrentIslandType: d.CurrentIslandType,
			LastIslandType:    d.LastIslandType,
			IsSubscribed:      d.IsSubscribed,
			RegisteredAt:      d.RegisteredAt,
			LastUpdate:        d.LastUpdate,
			LastPushAt:        d.LastPushAt,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"count":   len(out),
		"devices": out,
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DeviceToken           string `json:"device_token"`
		ActivityID            string `json:"activity_id"`
		UserID                string `json:"user_id"`
		LiveActivityPushToken string `json:"live_activity_push_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	if len(req.DeviceToken) < minTokenLen {
		http.Error(w, `{"error":"device_token too short"}`, http.StatusBadRequest)
		return
	}
	if req.ActivityID == "" {
		req.ActivityID = uuid.NewString()
	}

	now := time.Now()
	s.reg.Register(&registry.Device{
		Token:      req.DeviceToken,
		ActivityID: req.ActivityID,
		UserID:     req.UserID,
		PushToken:  req.LiveActivityPushToken,
	}, now)

	// First update goes out before the response so the device has content
	// the moment registration returns.
	if _, err := s.rotator.Rotate(r.Context(), req.DeviceToken); err != nil {
		log.Printf("register: initial rotation for %s: %v", registry.Redact(req.DeviceToken), err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{
		"status":      "registered",
		"activity_id": req.ActivityID,
	})
}

func (s *Server) handleUnregister(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	if !s.reg.Unregister(token) {
		http.Error(w, `{"error":"device not registered"}`, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "unregistered"})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	var state registry.SyncState
	if err := json.NewDecoder(r.Body).Decode(&state); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}

	if err := s.reg.ApplySync(token, state, time.Now()); err != nil {
		http.Error(w, `{"error":"device not registered"}`, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "synced"})
}

// handleData is the narrow variant of sync: calendar and mail only, for
// clients that refresh those on a faster cadence than the full state.
func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	var req struct {
		CalendarEvents []registry.CalendarEvent `json:"calendar_events"`
		Email          *registry.EmailData      `json:"email_data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}

	state := registry.SyncState{
		CalendarEvents: req.CalendarEvents,
		Email:          req.Email,
	}
	if err := s.reg.ApplySync(token, state, time.Now()); err != nil {
		http.Error(w, `{"error":"device not registered"}`, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "updated"})
}

// handleUpdate pushes caller-supplied content state directly, bypassing
// the scorer. Used for debugging and for client-driven one-off updates.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	var req struct {
		ContentState map[string]any `json:"content_state"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	if req.ContentState == nil {
		http.Error(w, `{"error":"content_state required"}`, http.StatusBadRequest)
		return
	}

	dev, err := s.reg.Acquire(token)
	if err != nil {
		http.Error(w, `{"error":"device not registered"}`, http.StatusNotFound)
		return
	}
	target := dev.DeliveryTarget()
	activityID := dev.ActivityID
	dev.Unlock()

	if err := s.deliverer.Deliver(r.Context(), target, activityID, req.ContentState); err != nil {
		if errors.Is(err, island.ErrTokenGone) {
			s.reg.Unregister(token)
			http.Error(w, `{"error":"device token gone"}`, http.StatusGone)
			return
		}
		log.Printf("update: delivery to %s failed: %v", registry.Redact(token), err)
		http.Error(w, `{"error":"delivery failed"}`, http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "pushed"})
}

func (s *Server) handleRotate(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	selected, err := s.rotator.Rotate(r.Context(), token)
	if err != nil {
		http.Error(w, `{"error":"device not registered"}`, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":      "rotated",
		"island_type": string(selected),
	})
}
