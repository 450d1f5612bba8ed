package server

import (
	"context"
	"time"

	"github.com/gorilla/websocket"

	"github.com/haneul-lab/lobbychat/internal/auth"
	"github.com/haneul-lab/lobbychat/internal/logging"
	"github.com/haneul-lab/lobbychat/internal/messages"
	"github.com/haneul-lab/lobbychat/internal/metrics"
)

// Gateway owns the connection lifecycle: it upgrades HTTP requests, hands
// each connection to the hub's registry, and gives clients access to the
// auth service and the message store for history replay. There is no
// ambient global state; everything a connection needs is reached through
// its gateway.
type Gateway struct {
	cfg      Config
	hub      *Hub
	auth     *auth.Service
	history  messages.Repository
	log      logging.Logger
	metrics  *metrics.Collector
	origins  *originChecker
	upgrader websocket.Upgrader
}

// NewGateway wires a gateway and its hub. collector may be nil when metrics
// are not wanted, e.g. in tests.
func NewGateway(cfg *Config, authService *auth.Service, store messages.Repository, log logging.Logger, collector *metrics.Collector) *Gateway {
	sanitized := sanitizeConfig(*cfg)

	g := &Gateway{
		cfg:     sanitized,
		auth:    authService,
		history: store,
		log:     log,
		metrics: collector,
	}
	g.hub = NewHub(store, sanitized.StoreTimeout, log, collector)
	g.origins = newOriginChecker(sanitized.AllowedOrigins, log)
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     g.origins.check,
	}

	return g
}

// Start launches the hub's run loop. It must be called before serving
// connections.
func (g *Gateway) Start() {
	go g.hub.Run()
	g.log.Info(context.Background(), "hub started and ready to manage WebSocket connections")
}

// Shutdown gracefully stops the hub, waiting up to timeout for the pump
// goroutines to finish.
func (g *Gateway) Shutdown(timeout time.Duration) error {
	return g.hub.Shutdown(timeout)
}

// storeContext bounds one store round-trip.
func (g *Gateway) storeContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), g.cfg.StoreTimeout)
}
