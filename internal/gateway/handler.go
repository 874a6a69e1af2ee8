package gateway

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ravenfell/gametable/internal/config"
	"github.com/ravenfell/gametable/internal/game/combat"
	"github.com/ravenfell/gametable/internal/observability"
)

// Handler upgrades HTTP requests to websocket connections and runs the
// per-connection pumps. The route is /combat?session=<id>&token=<jwt>.
type Handler struct {
	admission *Admission
	cfg       config.WebsocketConfig
	upgrader  websocket.Upgrader
	logger    *zap.Logger
}

// NewHandler creates a websocket Handler backed by the given admission
// controller.
func NewHandler(admission *Admission, cfg config.WebsocketConfig, logger *zap.Logger) *Handler {
	return &Handler{
		admission: admission,
		cfg:       cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	token := r.URL.Query().Get("token")
	if sessionID == "" {
		http.Error(w, "missing session parameter", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	sock := &wsSocket{conn: conn, writeTimeout: h.cfg.WriteTimeout}
	sess, link, err := h.admission.Admit(sock, sessionID, token)
	if err != nil {
		// Admit already signalled and closed the connection.
		h.logger.Info("connection rejected",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return
	}

	go h.writePump(sock, link)
	h.readPump(sock, sess, link)
}

// readPump feeds inbound messages to the session until the connection drops,
// then releases the player's slot. Runs on the ServeHTTP goroutine.
func (h *Handler) readPump(sock *wsSocket, sess *combat.Session, link *combat.Link) {
	defer sess.DetachPlayer(link.PlayerID(), link)

	plog := observability.PlayerLogger(h.logger, sess.ID(), link.PlayerID())

	sock.conn.SetReadLimit(h.cfg.ReadLimit)
	_ = sock.conn.SetReadDeadline(time.Now().Add(h.cfg.PongTimeout))
	sock.conn.SetPongHandler(func(string) error {
		return sock.conn.SetReadDeadline(time.Now().Add(h.cfg.PongTimeout))
	})

	for {
		_, data, err := sock.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				plog.Warn("websocket read failed", zap.Error(err))
			}
			return
		}
		// Rejections are reported to the sender by the session itself.
		_ = sess.HandleAction(link.PlayerID(), data)
	}
}

// writePump drains the link's outbound channel onto the wire and keeps the
// connection alive with pings. It exits when the link closes, closing the
// connection so the read pump unblocks.
func (h *Handler) writePump(sock *wsSocket, link *combat.Link) {
	pingInterval := h.cfg.PongTimeout * 9 / 10
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = sock.Close()
	}()

	for {
		select {
		case data, ok := <-link.Outbound():
			if !ok {
				_ = sock.writeControl(websocket.CloseMessage)
				return
			}
			if err := sock.WriteMessage(data); err != nil {
				return
			}
		case <-ticker.C:
			if err := sock.writeControl(websocket.PingMessage); err != nil {
				return
			}
		}
	}
}

// wsSocket adapts a gorilla websocket connection to the Socket interface,
// serialising writes and applying the configured write deadline.
type wsSocket struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
}

func (s *wsSocket) WriteMessage(data []byte) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *wsSocket) writeControl(messageType int) error {
	return s.conn.WriteControl(messageType, nil, time.Now().Add(s.writeTimeout))
}

func (s *wsSocket) Close() error {
	return s.conn.Close()
}
