// Command supervisor spawns and monitors the worker binary, relays its
// upward events, and serves a localhost admin surface (spec section 4.3).
// The chat transport SDK is the out-of-scope collaborator named in
// spec.md's non-goals; logChat below is the minimal stand-in that logs
// what a real transport would have posted, so the supervisor/worker pair
// is runnable without one wired in.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"github.com/jukeproc/juked/internal/metrics"
	"github.com/jukeproc/juked/internal/supervisor"
	"github.com/jukeproc/juked/pkg/chatmsg"
)

var (
	workerPath = pflag.StringP("worker", "w", "juked-worker", "Path to the worker binary")
	adminPort  = pflag.IntP("admin-port", "p", 9090, "Localhost admin surface port (metrics, healthz)")
	debug      = pflag.BoolP("debug", "d", false, "Enable debug mode")
)

// logChat is the stand-in ChatPoster: every notice goes to the log
// instead of a real chat platform.
type logChat struct {
	mu     sync.Mutex
	nextID int
}

func (c *logChat) Post(n chatmsg.Notice) (string, error) {
	c.mu.Lock()
	c.nextID++
	id := strconv.Itoa(c.nextID)
	c.mu.Unlock()
	log.Printf("[CHAT] (pinned=%v) %s", n.Pinned, n.Text)
	return id, nil
}

func (c *logChat) Unpin(id string) error {
	log.Printf("[CHAT] unpin %s", id)
	return nil
}

func (c *logChat) Delete(id string) error {
	log.Printf("[CHAT] delete %s", id)
	return nil
}

func (c *logChat) ListPinned() ([]string, error) { return nil, nil }

func main() {
	pflag.Parse()

	if *debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	sup := supervisor.New(*workerPath, nil, &logChat{}, m, *debug)

	ctx, cancel := context.WithCancel(context.Background())
	if err := sup.Start(ctx); err != nil {
		log.Fatalf("[MAIN] start worker: %v", err)
	}

	admin := supervisor.NewAdminServer(sup, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	go func() {
		if err := admin.ListenAndServe(*adminPort); err != nil {
			log.Printf("[MAIN] admin server: %v", err)
		}
	}()

	setupGracefulShutdown(cancel, sup)
	<-ctx.Done()
}

func setupGracefulShutdown(cancel context.CancelFunc, sup *supervisor.Supervisor) {
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		sig := <-c
		log.Printf("[MAIN] received signal: %v", sig)
		if err := sup.Shutdown(false); err != nil {
			log.Printf("[MAIN] shutdown worker: %v", err)
		}
		cancel()
	}()
}
