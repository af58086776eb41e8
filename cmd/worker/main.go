// Command worker runs the audio queue engine and the chat command
// dispatch table described in spec sections 4 and 6. It is always
// spawned by the supervisor binary, which owns its stdin/stdout as the
// IPC pipe (spec section 4.3); running it standalone still works, it
// just never receives a downward ShutDown and never reports upward.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/spf13/pflag"
	"golang.org/x/time/rate"

	"github.com/jukeproc/juked/internal/audioqueue"
	"github.com/jukeproc/juked/internal/config"
	"github.com/jukeproc/juked/internal/ipc"
	"github.com/jukeproc/juked/internal/platform"
	"github.com/jukeproc/juked/internal/retry"
	"github.com/jukeproc/juked/internal/settings"
	"github.com/jukeproc/juked/internal/source"
	"github.com/jukeproc/juked/internal/worker"
)

var (
	configPath = pflag.StringP("config", "c", "", "Path to configuration file")
	debug      = pflag.BoolP("debug", "d", false, "Enable debug mode")
	standalone = pflag.Bool("standalone", false, "Run without an IPC connection to a supervisor")
)

func main() {
	pflag.Parse()

	if *debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[MAIN] load config: %v", err)
	}
	if *debug {
		cfg.Debug = true
	}

	configDir, err := platform.GetConfigDir()
	if err != nil {
		log.Fatalf("[MAIN] resolve config dir: %v", err)
	}
	store, err := settings.Load(filepath.Join(configDir, "worker-settings.json"))
	if err != nil {
		log.Fatalf("[MAIN] load settings: %v", err)
	}

	if err := source.WipeRoot(cfg.Storage.ResourceRoot); err != nil {
		log.Printf("[MAIN] wipe resource root: %v", err)
	}

	player, err := audioqueue.NewPlayer(cfg.Audio.SampleRate, cfg.Debug)
	if err != nil {
		log.Fatalf("[MAIN] init audio player: %v", err)
	}

	vals := store.Get()
	queue := audioqueue.NewQueue(audioqueue.Config{
		FFmpegPath:    cfg.FFmpegPath,
		SampleRate:    cfg.Audio.SampleRate,
		RefreshPeriod: vals.AsyncSleepRefreshRate,
		QuietHours:    settings.QuietHoursFunc(store),
		Volume: audioqueue.VolumeConfig{
			HundredPercentRatio: vals.HundredPercentVolumeValue,
			MaxAbsolutePercent:  vals.MaxAbsoluteVolume * 100,
		},
		Debug: cfg.Debug,
	}, player)
	defer queue.Close()

	httpClient := retryablehttp.NewClient()
	httpClient.RetryMax = cfg.API.Retries
	httpClient.HTTPClient.Timeout = time.Duration(cfg.API.Timeout) * time.Second
	if !cfg.Debug {
		httpClient.Logger = nil
	}

	var channel *ipc.Channel
	if !*standalone {
		channel = ipc.NewChannel(os.Stdin, os.Stdout)
	}

	limiter := rate.NewLimiter(rate.Limit(cfg.API.RateLimit.RequestsPerSecond), cfg.API.RateLimit.BurstSize)

	// resolver is left nil: the media-fetcher SDK is an out-of-scope
	// collaborator (spec section 1); uploaded-blob and local-file sources
	// work without it, search-mode/URL-mode queueing requires a concrete
	// Resolver to be wired in by a deployment that has one.
	w := worker.New(worker.Config{
		FFmpegPath:   cfg.FFmpegPath,
		SfxDir:       cfg.Storage.SfxDir,
		ResourceRoot: cfg.Storage.ResourceRoot,
		Debug:        cfg.Debug,
		RetryPolicy:  retry.Policy{Limiter: limiter},
	}, queue, store, nil, channel, httpClient)

	ctx, cancel := context.WithCancel(context.Background())
	setupGracefulShutdown(cancel)

	if err := w.Run(ctx); err != nil {
		log.Fatalf("[MAIN] worker scheduler exited: %v", err)
	}
}

func setupGracefulShutdown(cancel context.CancelFunc) {
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		sig := <-c
		log.Printf("[MAIN] received signal: %v", sig)
		cancel()
	}()
}
