package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/nexuschat/relay/internal/relay"
)

const writeTimeout = 10 * time.Second

// SessionCookie is the cookie carrying the opaque session token.
const SessionCookie = "session_id"

// wsTransport adapts a gorilla connection to the relay.Transport contract.
type wsTransport struct {
	conn *websocket.Conn
}

func (t *wsTransport) Send(frame string) error {
	if err := t.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return t.conn.WriteMessage(websocket.TextMessage, []byte(frame))
}

func (t *wsTransport) Receive() (string, error) {
	_, data, err := t.conn.ReadMessage()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (t *wsTransport) Close() error {
	return t.conn.Close()
}

// throttledTransport drops over-limit inbound messages instead of
// propagating them to the session loop.
type throttledTransport struct {
	relay.Transport
	bucket *tokenBucket
	log    zerolog.Logger
}

func (t *throttledTransport) Receive() (string, error) {
	for {
		frame, err := t.Transport.Receive()
		if err != nil {
			return "", err
		}
		if !t.bucket.allow() {
			t.log.Warn().Msg("rate limit exceeded, discarding message")
			continue
		}
		return frame, nil
	}
}

// handleWS upgrades the request, resolves the session cookie into an
// identity (absent or invalid tokens degrade to anonymous), and hands the
// connection to its own relay session loop.
func (a *API) handleWS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.log.Error().Err(err).Str("remote", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}
	conn.SetReadLimit(a.cfg.MaxMessageSize)

	var token string
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		token = cookie.Value
	}
	id, resolved := a.resolver.Resolve(r.Context(), token)
	if !resolved && token != "" {
		a.log.Debug().Str("remote", r.RemoteAddr).Msg("session token did not resolve, continuing as anonymous")
	}

	var transport relay.Transport = &wsTransport{conn: conn}
	transport = &throttledTransport{
		Transport: transport,
		bucket:    newTokenBucket(a.cfg.RateLimitBurst, a.cfg.RateLimitRefill),
		log:       a.log.With().Str("remote", r.RemoteAddr).Logger(),
	}

	c := relay.NewConn(transport, id, a.log)
	session := relay.NewSession(c, a.registry, a.caster, a.sink, a.log)
	session.SetPersistTimeout(a.cfg.PersistTimeout)
	if a.bot != nil {
		session.OnMessage(a.bot.Observe)
	}
	go session.Run()
}
