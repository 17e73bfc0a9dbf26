package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/DoyleJ11/tsuro-backend/internal/hub"
	"github.com/DoyleJ11/tsuro-backend/internal/protocol"
	"github.com/DoyleJ11/tsuro-backend/internal/room"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// inspectTimeout bounds how long a listing waits on any one room.
const inspectTimeout = 500 * time.Millisecond

type RoomSummary struct {
	Code        string             `json:"code"`
	Name        string             `json:"name"`
	Phase       protocol.RoomPhase `json:"phase"`
	Players     int                `json:"players"`
	Connections int                `json:"connections"`
	Version     int                `json:"version"`
}

func summarize(v room.View) RoomSummary {
	return RoomSummary{
		Code:        v.Code,
		Name:        v.Name,
		Phase:       v.Phase,
		Players:     v.NumPlayers,
		Connections: v.NumClients,
		Version:     v.Version,
	}
}

func CreateRoom(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Name string `json:"name"`
		}
		if r.ContentLength != 0 {
			if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1024)).Decode(&body); err != nil {
				http.Error(w, "bad json", http.StatusBadRequest)
				return
			}
		}
		rm, err := h.Create(r.Context(), body.Name)
		if errors.Is(err, protocol.ErrRoomNameTooLong) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err != nil {
			log.Error("create room", zap.Error(err))
			http.Error(w, "failed to create room", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusCreated, struct {
			Code string `json:"code"`
		}{Code: rm.Code()})
	}
}

func ListRooms(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rooms, err := h.List(r.Context())
		if err != nil {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		out := make([]RoomSummary, 0, len(rooms))
		for _, rm := range rooms {
			ctx, cancel := context.WithTimeout(r.Context(), inspectTimeout)
			v, err := rm.View(ctx)
			cancel()
			if err != nil {
				// closed between List and View
				continue
			}
			out = append(out, summarize(v))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func GetRoom(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rm, err := h.Get(r.Context(), chi.URLParam(r, "code"))
		if errors.Is(err, room.ErrNotFound) {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), inspectTimeout)
		defer cancel()
		v, err := rm.View(ctx)
		if err != nil {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, summarize(v))
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
