package handlers

import (
	"net/http"
	"time"

	"github.com/ami-notifications/notifier/internal/authz"
	"github.com/ami-notifications/notifier/internal/eventbus"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = (streamPongWait * 9) / 10
)

// StreamHandler upgrades to a WebSocket and relays the caller's
// notification events until either side disconnects.
type StreamHandler struct {
	bus      *eventbus.Bus
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

func NewStreamHandler(bus *eventbus.Bus, allowedOrigins []string, logger zerolog.Logger) *StreamHandler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = struct{}{}
	}
	return &StreamHandler{
		bus: bus,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || len(allowed) == 0 {
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
		},
		logger: logger.With().Str("handler", "stream").Logger(),
	}
}

func (h *StreamHandler) Serve(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		http.Error(w, "Missing user context", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client.
		h.logger.Debug().Err(err).Str("user_id", userID).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	sub := h.bus.Subscribe(userID)
	defer sub.Close()

	log := h.logger.With().Str("user_id", userID).Logger()
	log.Debug().Msg("stream opened")

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(streamPongWait))
		})
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(streamPingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			log.Debug().Msg("stream closed by client")
			return
		case evt, ok := <-sub.C():
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteJSON(evt); err != nil {
				log.Debug().Err(err).Msg("stream write failed")
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return
			}
		}
	}
}
