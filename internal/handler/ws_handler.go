package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"callrelay/internal/app/signaling"
	"callrelay/internal/pkg/errs"
	"callrelay/internal/pkg/limiter"
	"callrelay/internal/pkg/logx"
	"callrelay/internal/pkg/randx"
	"callrelay/internal/pkg/resp"
)

// HandleWebSocket upgrades the request, registers the connection with the
// Manager and runs its pumps until the socket closes.
func HandleWebSocket(manager *signaling.Manager, upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := limiter.ClientIP(r)

		if !rateLimiter.Allow(ip) {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", ip)
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		client := signaling.NewClient(randx.ConnectionID(), manager, conn)
		manager.Connect(client)

		go client.WritePump()

		logx.Debug("WebSocket connection established", "conn_id", client.ID())

		client.ReadPump()
	}
}
