package supervisor

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// AdminServer is the localhost-only admin HTTP surface: Prometheus
// metrics plus a couple of operational read endpoints.
type AdminServer struct {
	engine *gin.Engine
	sup    *Supervisor
}

// NewAdminServer builds the admin router. handler serves /metrics; it
// should be built for the Prometheus registry metrics.New registered
// against (promhttp.HandlerFor).
func NewAdminServer(sup *Supervisor, handler http.Handler) *AdminServer {
	if !sup.debug {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())

	a := &AdminServer{engine: engine, sup: sup}
	engine.GET("/metrics", gin.WrapH(handler))
	engine.GET("/healthz", a.healthz)
	return a
}

func (a *AdminServer) healthz(c *gin.Context) {
	a.sup.mu.Lock()
	running := a.sup.cmd != nil
	a.sup.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"worker_running": running})
}

// ListenAndServe binds to 127.0.0.1:port. Binding to localhost only is
// deliberate: this surface is operator tooling, never a public API.
func (a *AdminServer) ListenAndServe(port int) error {
	return a.engine.Run(fmt.Sprintf("127.0.0.1:%d", port))
}

// MetricsHandler returns promhttp.Handler(), which serves the default
// Prometheus registry only; metrics registered on a separate registry
// passed to metrics.New do not appear in it.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
