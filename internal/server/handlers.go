// Package server exposes the HTTP handlers: WebSocket upgrades, the
// signup/login surface, and the health check.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/haneul-lab/lobbychat/internal/auth"
)

// ServeWS handles WebSocket upgrade requests. It upgrades the HTTP
// connection, creates a Client in the unauthenticated state, and registers
// it with the hub, which launches the read/write pumps.
func (g *Gateway) ServeWS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Warn(r.Context(), "WebSocket upgrade failed", "addr", r.RemoteAddr, "error", err)
		return
	}

	client := NewClient(conn, g, r.RemoteAddr)

	select {
	case g.hub.register <- client:
	case <-g.hub.ctx.Done():
		_ = conn.Close()
	}
}

// HealthHandler provides a simple health check endpoint that returns server status.
func (g *Gateway) HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "Lobby chat server is running!")
}

type signupRequest struct {
	LoginID  string `json:"loginId"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Nickname string `json:"nickname"`
}

type signupResponse struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
}

type loginRequest struct {
	LoginID  string `json:"loginId"`
	Password string `json:"password"`
}

type loginResponse struct {
	Message  string `json:"message"`
	UserID   string `json:"userId"`
	Nickname string `json:"nickname"`
	Name     string `json:"name"`
}

// SignupHandler implements POST /signup, the HTTP alternative to the
// socket-based register event.
func (g *Gateway) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	ctx, cancel := g.storeContext()
	defer cancel()

	userID, err := g.auth.Register(ctx, req.LoginID, req.Password, req.Name, req.Nickname)
	if err != nil {
		if g.metrics != nil {
			g.metrics.RecordAuthFailure()
		}

		var validationErr *auth.ValidationError
		switch {
		case errors.As(err, &validationErr):
			writeJSONError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, auth.ErrLoginTaken):
			writeJSONError(w, http.StatusConflict, err.Error())
		default:
			g.log.Error(ctx, "signup failed against store", "error", err)
			writeJSONError(w, http.StatusInternalServerError, "something went wrong, try again later")
		}
		return
	}

	writeJSON(w, http.StatusCreated, signupResponse{Message: "registration complete", UserID: userID})
}

// LoginHandler implements POST /login. Unknown login ids and wrong
// passwords surface the same response.
func (g *Gateway) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	ctx, cancel := g.storeContext()
	defer cancel()

	identity, err := g.auth.Login(ctx, req.LoginID, req.Password)
	if err != nil {
		if g.metrics != nil {
			g.metrics.RecordAuthFailure()
		}

		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		g.log.Error(ctx, "login failed against store", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "something went wrong, try again later")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Message:  "login successful",
		UserID:   identity.UserID,
		Nickname: identity.Nickname,
		Name:     identity.Name,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
