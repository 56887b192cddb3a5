// Package ws exposes the chat service over websocket connections.
// One connection carries one session: the op envelope stands in for
// capability invocations, the push pump is the outbound delivery
// capability, and closing the connection releases the session handle.
package ws

import (
	"chatroomd/services"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

type Gateway struct {
	log              *slog.Logger
	service          services.IChatService
	upgrader         websocket.Upgrader
	bufferSize       int
	writeTimeout     time.Duration
	maxContentLength int
}

func NewGateway(log *slog.Logger, service services.IChatService,
	bufferSize int, writeTimeout time.Duration, maxContentLength int) *Gateway {
	return &Gateway{
		log:     log,
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		bufferSize:       bufferSize,
		writeTimeout:     writeTimeout,
		maxContentLength: maxContentLength,
	}
}

func (g *Gateway) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", g.handleWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func (g *Gateway) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Warn("Websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := newConnection(g, conn, r.RemoteAddr)
	c.serve()
}
