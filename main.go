package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/chinmina/imagga-bridge/internal/audit"
	"github.com/chinmina/imagga-bridge/internal/config"
	"github.com/chinmina/imagga-bridge/internal/imagga"
	"github.com/chinmina/imagga-bridge/internal/observe"
	"github.com/chinmina/imagga-bridge/internal/server"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/justinas/alice"
)

func configureServerRoutes(cfg config.Config, suggester KeywordSuggester) http.Handler {
	// the mux configures HTTP telemetry for every route except the health check
	mux := observe.NewMux()

	auditor := audit.Middleware()
	requestLimiter := maxRequestSize(cfg.Server.MaxUploadBytes)

	keywordRouteMiddleware := alice.New(requestLimiter, auditor)
	standardRouteMiddleware := alice.New(maxRequestSize(20 << 10)) // 20 KB

	mux.Handle("POST /keywords", keywordRouteMiddleware.Then(handlePostKeywords(suggester, os.TempDir())))

	// healthchecks are not included in telemetry
	mux.HandleUntraced("GET /healthcheck", standardRouteMiddleware.Then(handleHealthCheck()))

	return mux
}

func main() {
	configureLogging()

	logBuildInfo()

	err := launchServer()
	if err != nil {
		log.Fatal().Err(err).Msg("server failed to start")
	}
}

func launchServer() error {
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("configuration load failed: %w", err)
	}

	hooks := &server.ShutdownHooks{}

	// configure telemetry, including wrapping default HTTP client
	shutdownTelemetry, err := observe.Configure(ctx, cfg.Observe)
	if err != nil {
		return fmt.Errorf("telemetry bootstrap failed: %w", err)
	}
	hooks.Add("telemetry", shutdownTelemetry)

	http.DefaultTransport = observe.HTTPTransport(
		configureHTTPTransport(cfg.Server),
		cfg.Observe,
	)
	http.DefaultClient = &http.Client{
		Transport: http.DefaultTransport,
		Timeout:   time.Duration(cfg.Server.OutgoingHTTPTimeoutSeconds) * time.Second,
	}

	// setup the adapter and its caches
	factory, caches, err := imagga.Setup(ctx, cfg.Cache, imagga.WithHTTPClient(http.DefaultClient))
	if err != nil {
		return fmt.Errorf("cache configuration failed: %w", err)
	}
	hooks.AddCloser("cache", caches)

	adapter, err := factory.Create(cfg.Imagga.Settings)
	if err != nil {
		return fmt.Errorf("imagga configuration failed: %w", err)
	}
	log.Info().Str("adapter", factory.ID()).Stringer("config", adapter).Msg("keyword adapter ready")

	// start the server
	srv := &http.Server{
		Handler:           configureServerRoutes(cfg, adapter),
		MaxHeaderBytes:    20 << 10,         // 20 KB
		ReadHeaderTimeout: 20 * time.Second, // Prevent Slowloris attacks
	}

	listener, err := server.Listen(cfg.Server.Port)
	if err != nil {
		return fmt.Errorf("server listen failed: %w", err)
	}

	err = server.Serve(ctx, srv, listener, time.Duration(cfg.Server.ShutdownTimeoutSeconds)*time.Second, hooks)
	if err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

func configureLogging() {
	// Set global level to the minimum: allows the Open Telemetry logging to be
	// configured separately. However, it means that any logger that sets its
	// level will log as this effectively disables the global level.
	zerolog.SetGlobalLevel(zerolog.Level(-128))

	// default level is Info
	log.Logger = log.Level(zerolog.InfoLevel)

	if os.Getenv("ENV") == "development" {
		log.Logger = log.
			Output(zerolog.ConsoleWriter{Out: os.Stdout}).
			Level(zerolog.DebugLevel)
	}

	zerolog.DefaultContextLogger = &log.Logger
}

func logBuildInfo() {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	ev := log.Info()
	for _, v := range buildInfo.Settings {
		if strings.HasPrefix(v.Key, "vcs.") ||
			strings.HasPrefix(v.Key, "GO") ||
			v.Key == "CGO_ENABLED" {
			ev = ev.Str(v.Key, v.Value)
		}
	}

	ev.Msg("build information")
}

func configureHTTPTransport(cfg config.ServerConfig) *http.Transport {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	transport.MaxIdleConns = cfg.OutgoingHTTPMaxIdleConns
	transport.MaxConnsPerHost = cfg.OutgoingHTTPMaxConnsPerHost

	return transport
}
