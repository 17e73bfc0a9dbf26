package ws

import (
	"net/http"
	"time"

	"github.com/DoyleJ11/tsuro-backend/internal/hub"
	"github.com/DoyleJ11/tsuro-backend/internal/metrics"
	"github.com/coder/websocket"
	"go.uber.org/zap"
)

type Options struct {
	OutboxSize      int
	PingInterval    time.Duration
	WriteTimeout    time.Duration
	MaxMessageBytes int64
	// AllowedOrigins are host patterns for cross-origin browsers. Same-origin
	// requests are always accepted.
	AllowedOrigins []string
	Logger         *zap.Logger
	Metrics        *metrics.Metrics
}

func (o Options) withDefaults() Options {
	if o.OutboxSize <= 0 {
		o.OutboxSize = 64
	}
	if o.PingInterval <= 0 {
		o.PingInterval = 25 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 3 * time.Second
	}
	if o.MaxMessageBytes <= 0 {
		o.MaxMessageBytes = 8192
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Handler upgrades the request and runs one session per connection. Rooms
// are created and joined with messages on the socket.
func Handler(h *hub.Hub, opts Options) http.HandlerFunc {
	opts = opts.withDefaults()
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: opts.AllowedOrigins,
		})
		if err != nil {
			opts.Logger.Debug("websocket accept failed", zap.Error(err))
			return
		}
		newSession(conn, h, opts).run(r.Context())
	}
}
