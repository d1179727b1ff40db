// Package httpapi exposes the relay's HTTP surface: account registration,
// login, the WebSocket upgrade, health checking, and the built-in test page.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/nexuschat/relay/internal/bot"
	"github.com/nexuschat/relay/internal/config"
	"github.com/nexuschat/relay/internal/identity"
	"github.com/nexuschat/relay/internal/relay"
	"github.com/nexuschat/relay/internal/store"
)

// API bundles the handlers with their collaborators.
type API struct {
	cfg      config.Config
	store    *store.Store
	resolver identity.Resolver
	sink     relay.MessageSink
	registry *relay.Registry
	caster   *relay.Broadcaster
	bot      *bot.Bot
	upgrader websocket.Upgrader
	validate *validator.Validate
	log      zerolog.Logger
}

// New wires the HTTP surface. The store doubles as session resolver and
// message sink; b may be nil when the auto-responder is disabled.
func New(cfg config.Config, st *store.Store, registry *relay.Registry, caster *relay.Broadcaster, b *bot.Bot, log zerolog.Logger) *API {
	a := &API{
		cfg:      cfg,
		store:    st,
		resolver: st,
		sink:     st,
		registry: registry,
		caster:   caster,
		bot:      b,
		validate: validator.New(),
		log:      log,
	}
	origins := newOriginPolicy(cfg.AllowedOrigins, log)
	a.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     origins.check,
	}
	return a
}

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=32"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// handleRegister creates a new account.
func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	if err := a.validate.Struct(req); err != nil {
		http.Error(w, "Username must be 3-32 characters and password at least 8", http.StatusBadRequest)
		return
	}

	if _, err := a.store.CreateUser(req.Username, req.Password); err != nil {
		if errors.Is(err, store.ErrUserExists) {
			http.Error(w, "Username already exists", http.StatusBadRequest)
			return
		}
		a.log.Error().Err(err).Msg("user registration failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	a.writeJSON(w, map[string]string{"msg": "User registered successfully"})
}

// handleLogin verifies credentials and sets the session cookie.
func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	if err := a.validate.Struct(req); err != nil {
		http.Error(w, "Username and password are required", http.StatusBadRequest)
		return
	}

	user, err := a.store.Authenticate(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, store.ErrInvalidCredentials) {
			http.Error(w, "Invalid username or password", http.StatusUnauthorized)
			return
		}
		a.log.Error().Err(err).Msg("login failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	sess, err := a.store.CreateSession(user)
	if err != nil {
		a.log.Error().Err(err).Msg("session creation failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sess.Token,
		Path:     "/",
		HttpOnly: true,
	})
	a.writeJSON(w, map[string]string{"msg": "Login successful"})
}

// handleHealth is a plain-text liveness probe.
func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprint(w, "Relay server is running!")
}

func (a *API) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.Error().Err(err).Msg("response encoding failed")
	}
}
