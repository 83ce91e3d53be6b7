package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/corazawaf/coraza/v3"
)

// App bundles the live state behind the public listener
type App struct {
	Config   Config
	Greeting *Greeting
	WAF      *WAFHolder
	Limiter  *RateLimiter
	Latency  *LatencyRecorder
}

// newApp builds the runtime state described by config
func newApp(config Config) (*App, error) {
	greeting, err := NewGreeting(config.Greeting)
	if err != nil {
		return nil, err
	}

	var waf coraza.WAF
	if config.WAF.Enabled {
		waf, err = initializeWAF(config.WAF.CoreRuleSet, config.WAF.CustomRulesPath)
		if err != nil {
			return nil, err
		}
	}

	return &App{
		Config:   config,
		Greeting: greeting,
		WAF:      NewWAFHolder(waf),
		Limiter:  newLimiterFromConfig(config.RateLimit),
		Latency:  NewLatencyRecorder(latencyWindow),
	}, nil
}

// Handler returns the public handler: latency recording, rate limiting,
// WAF inspection and finally the router.
func (a *App) Handler() http.Handler {
	var h http.Handler = createRouter(a.Greeting)
	h = wafMiddleware(a.WAF, h)
	h = rateLimit(a.Limiter, h)
	return recordLatency(a.Latency, h)
}

func main() {
	configPath := flag.String("config", "", "Path to configuration file (built-in defaults when empty)")
	flag.Parse()

	config, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	app, err := newApp(config)
	if err != nil {
		log.Fatalf("Failed to initialize server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *configPath != "" {
		go watchConfig(ctx.Done(), *configPath, app.Greeting, nil)
	}
	if config.WAF.Enabled && config.WAF.CustomRulesPath != "" {
		go watchRulesDirectory(ctx.Done(), config.WAF.CoreRuleSet, config.WAF.CustomRulesPath, app.WAF, nil)
	}

	if config.Debug.PprofListen != "" {
		go func() {
			log.Printf("Starting pprof on %s", config.Debug.PprofListen)
			if err := http.ListenAndServe(config.Debug.PprofListen, nil); err != nil {
				log.Printf("pprof server error: %v", err)
			}
		}()
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests.
// Listen errors are returned immediately.
func (a *App) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              a.Config.Server.Listen,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Greeter server starting on %s", a.Config.Server.Listen)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Printf("Shutting down greeter server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()

	err := server.Shutdown(shutdownCtx)
	if lerr := <-errCh; lerr != nil && !errors.Is(lerr, http.ErrServerClosed) && err == nil {
		err = lerr
	}

	if summary, serr := a.Latency.Summary(); serr != nil {
		log.Printf("Failed to summarize latency: %v", serr)
	} else {
		log.Printf("Latency summary: %s", summary)
	}

	return err
}
