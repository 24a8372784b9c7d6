package main

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
)

const maxBodySize = 1 << 14

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // Non-browser clients don't send Origin
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

func extractIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// AuthResponse is returned by the account endpoints
type AuthResponse struct {
	Token    string   `json:"token"`
	Identity string   `json:"identity"`
	Info     UserInfo `json:"info"`
	Guest    bool     `json:"guest,omitempty"`
}

// LiveAuthResponse carries a room token
type LiveAuthResponse struct {
	Token string `json:"token"`
	Room  string `json:"room"`
}

// StatsResponse is served by /api/stats
type StatsResponse struct {
	Peers   int            `json:"peers"`
	Rooms   []RoomInfo     `json:"rooms"`
	Events  map[string]int `json:"events"`
	Dropped int            `json:"dropped"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorMsg{Msg: msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(v)
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(h[len("Bearer "):])
	}
	return ""
}

// SetupRoutes configures HTTP routes. google may be nil.
func SetupRoutes(hub *Hub, cfg *Config, google *GoogleAuth) *http.ServeMux {
	mux := http.NewServeMux()
	log := componentLog("http")

	if cfg.ClientDir != "" {
		fs := http.FileServer(http.Dir(cfg.ClientDir))
		mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-cache")
			fs.ServeHTTP(w, r)
		}))
	}

	// WebSocket endpoint
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ip := extractIP(r)
		if !hub.CanAccept(ip) {
			http.Error(w, "too many connections", http.StatusServiceUnavailable)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.WithError(err).Warn("upgrade failed")
			return
		}

		hub.TrackConnect(ip)

		client := NewClient(hub, conn, ip)
		hub.register <- client

		go client.WritePump()
		go client.ReadPump()
	})

	mux.HandleFunc("POST /api/register", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Name     string `json:"name"`
			Password string `json:"password"`
		}
		if err := decodeBody(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "bad request")
			return
		}
		acc, token, err := hub.auth.Register(r.Context(), req.Email, req.Name, req.Password)
		if errors.Is(err, ErrUserExists) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, AuthResponse{Token: token, Identity: acc.Email, Info: acc.Info()})
	})

	mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := decodeBody(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "bad request")
			return
		}
		acc, token, err := hub.auth.Login(r.Context(), req.Email, req.Password, extractIP(r))
		switch {
		case errors.Is(err, ErrRateLimited):
			writeError(w, http.StatusTooManyRequests, err.Error())
			return
		case errors.Is(err, ErrBadLogin):
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		case err != nil:
			log.WithError(err).Error("login")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, AuthResponse{Token: token, Identity: acc.Email, Info: acc.Info()})
	})

	mux.HandleFunc("POST /api/guest", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name string `json:"name"`
		}
		// an empty body is fine
		_ = decodeBody(w, r, &req)
		acc, token, err := hub.auth.Guest(r.Context(), req.Name)
		if err != nil {
			log.WithError(err).Error("guest")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, AuthResponse{Token: token, Identity: acc.Email, Info: acc.Info(), Guest: true})
	})

	// Exchanges an account token for a room token
	mux.HandleFunc("POST /api/live-auth", func(w http.ResponseWriter, r *http.Request) {
		claims, err := hub.auth.ValidateAccountToken(bearerToken(r))
		if err != nil {
			writeError(w, http.StatusUnauthorized, ErrUnauthorized.Error())
			return
		}
		var req struct {
			Room string `json:"room"`
		}
		if err := decodeBody(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "bad request")
			return
		}
		if req.Room == "" {
			req.Room = DefaultRoomID
		}
		if !ValidRoomID(req.Room) {
			writeError(w, http.StatusBadRequest, "invalid room")
			return
		}
		token, err := hub.auth.RoomToken(*claims, req.Room)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, LiveAuthResponse{Token: token, Room: req.Room})
	})

	mux.HandleFunc("GET /api/rooms", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, hub.rooms.List())
	})

	mux.HandleFunc("GET /api/rooms/{room}/qr", func(w http.ResponseWriter, r *http.Request) {
		room := r.PathValue("room")
		if !ValidRoomID(room) {
			http.Error(w, "invalid room", http.StatusBadRequest)
			return
		}
		png, err := JoinQR(cfg.PublicURL, room)
		if err != nil {
			http.Error(w, "qr failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Write(png)
	})

	mux.HandleFunc("GET /api/stats", func(w http.ResponseWriter, r *http.Request) {
		resp := StatsResponse{
			Peers: hub.ClientCount(),
			Rooms: hub.rooms.List(),
		}
		if hub.events != nil {
			counts, err := hub.events.Counts(r.Context(), 1)
			if err != nil {
				log.WithError(err).Warn("event counts")
			}
			resp.Events = counts
			resp.Dropped = hub.events.Dropped()
		}
		writeJSON(w, http.StatusOK, resp)
	})

	if google != nil {
		mux.HandleFunc("GET /api/auth/google/login", google.Login)
		mux.HandleFunc("GET /api/auth/google/callback", google.Callback)
	}

	return mux
}
