/*
Package handler provides the HTTP handlers and routing setup for the call relay.

This file defines the main Router, applying logging, CORS and per-IP rate limits
before delegating to the token, call-duration and WebSocket handlers.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"callrelay/internal/pkg/limiter"
	"callrelay/internal/pkg/logx"
	"callrelay/internal/pkg/resp"
)

const (
	TokenRate      = 1
	TokenBurst     = 10
	ConnectRate    = 0.5
	ConnectBurst   = 10
	HistoryRate    = 2
	HistoryBurst   = 20
	wsReadBuffer   = 4096
	wsWriteBuffer  = 4096
	corsMaxAgeSecs = 300
)

// Router builds the chi routing table.
func Router(deps *AppDeps) http.Handler {
	tokenLimiter := limiter.NewIPRateLimiter(rate.Limit(TokenRate), TokenBurst)
	connectLimiter := limiter.NewIPRateLimiter(rate.Limit(ConnectRate), ConnectBurst)
	historyLimiter := limiter.NewIPRateLimiter(rate.Limit(HistoryRate), HistoryBurst)

	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	wsUpgrader := websocket.Upgrader{
		ReadBufferSize:  wsReadBuffer,
		WriteBufferSize: wsWriteBuffer,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.IsDevelopment() {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins: corsAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         corsMaxAgeSecs,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, map[string]any{
			"status":  "ok",
			"service": "callrelay",
			"stats":   deps.Manager.Stats(),
		})
	})

	r.With(middleware.NoCache, tokenLimiter.Middleware).Get("/token", HandleToken(deps))

	r.Group(func(hist chi.Router) {
		hist.Use(historyLimiter.Middleware)
		hist.Post("/call-duration", HandleCallDuration(deps))
		hist.Post("/reset-call-duration", HandleResetCallDuration(deps))
	})

	r.Get("/ws", HandleWebSocket(deps.Manager, wsUpgrader, connectLimiter))

	return r
}
