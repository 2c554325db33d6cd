// Package httpapi is a read-only observability surface for a
// znp.Mediator: health/status/metrics endpoints plus a websocket event
// stream. Generalized from the teacher's own httpServer package (which
// served zhub-specific HTML/JSON) into a protocol-agnostic surface over
// the mediator's event router.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"znp/znp"
)

// Server is the Gin-backed HTTP surface.
type Server struct {
	srv       *http.Server
	hub       *wsHub
	log       zerolog.Logger
	mediator  *znp.Mediator
	startedAt time.Time
	unsubs    []func()
}

// statusResponse is the body of GET /status.
type statusResponse struct {
	UptimeSeconds   float64 `json:"uptimeSeconds"`
	PendingHandlers int     `json:"pendingHandlers"`
}

// NewServer builds the router and wires every event-router subscriber
// list into the websocket hub. Call Start to begin serving. registry is
// the same *prometheus.Registry passed to znp.NewMetrics, so /metrics
// actually serves the znp_* series instead of the default gatherer's
// (empty, for this process) collection.
func NewServer(addr string, mediator *znp.Mediator, registry *prometheus.Registry, log zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.Default())

	hub := newWSHub(log)
	s := &Server{
		hub:       hub,
		log:       log,
		mediator:  mediator,
		startedAt: time.Now(),
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, statusResponse{
			UptimeSeconds:   time.Since(s.startedAt).Seconds(),
			PendingHandlers: mediator.PendingHandlerCount(),
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	router.GET("/events", func(c *gin.Context) {
		hub.handle(c.Writer, c.Request)
	})

	s.subscribeEvents()

	s.srv = &http.Server{Addr: addr, Handler: router}
	return s
}

// subscribeEvents wires every event-router subscriber list into the
// websocket hub so /events broadcasts everything the mediator sees.
func (s *Server) subscribeEvents() {
	s.unsubs = append(s.unsubs,
		s.mediator.OnReset(func(v znp.ResetInfo) { s.hub.publish("sys_reset", v) }),
		s.mediator.OnStateChange(func(v znp.DeviceState) { s.hub.publish("zdo_state_change", v.String()) }),
		s.mediator.OnEndDeviceAnnounce(func(v znp.EndDeviceAnnounce) { s.hub.publish("zdo_end_device_announce", v) }),
		s.mediator.OnTrustCenterDevice(func(v znp.TrustCenterDevice) { s.hub.publish("zdo_trust_center_device", v) }),
		s.mediator.OnPermitJoin(func(v uint8) { s.hub.publish("zdo_permit_join", v) }),
		s.mediator.OnIncomingMsg(func(v znp.IncomingMsg) { s.hub.publish("af_incoming_msg", v) }),
	)
}

// Start begins serving in the background, in the style of the
// teacher's HttpServer.Start: errors other than a clean shutdown are
// logged, not returned, since the caller has already moved on.
func (s *Server) Start() {
	go s.hub.run()
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error().Err(err).Msg("httpapi: listen failed")
		}
	}()
}

// Stop gracefully shuts the server and hub down, unsubscribing from
// every event list it registered.
func (s *Server) Stop() {
	for _, unsub := range s.unsubs {
		unsub()
	}
	s.hub.stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		s.log.Error().Err(err).Msg("httpapi: shutdown failed")
	}
}
