package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/justinas/alice"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/reelgate/reelgate/internal/audit"
	"github.com/reelgate/reelgate/internal/config"
	"github.com/reelgate/reelgate/internal/observe"
	"github.com/reelgate/reelgate/internal/radarr"
	"github.com/reelgate/reelgate/internal/server"
)

func configureServerRoutes(cfg config.Config, client radarr.Client) http.Handler {
	// wrap a mux such that HTTP telemetry is configured by default
	muxWithoutTelemetry := http.NewServeMux()
	mux := observe.NewMux(muxWithoutTelemetry)

	// request bodies on this API are small; anything bigger is abuse
	requestLimitBytes := int64(20 << 10) // 20 KB
	requestLimiter := maxRequestSize(requestLimitBytes)

	auditor := audit.Middleware()
	authorizer := tokenAuthorizer(cfg.Server.ProxyToken)

	authorizedRouteMiddleware := alice.New(requestLimiter, auditor, authorizer)
	standardRouteMiddleware := alice.New(requestLimiter)

	mux.Handle("GET /search", authorizedRouteMiddleware.Then(handleSearch(client)))
	mux.Handle("GET /movies", authorizedRouteMiddleware.Then(handleMovies(client)))
	mux.Handle("GET /movie/{id}", authorizedRouteMiddleware.Then(handleMovie(client)))
	mux.Handle("POST /movie/add", authorizedRouteMiddleware.Then(handleAddMovie(client)))
	mux.Handle("GET /releases/{movieID}", authorizedRouteMiddleware.Then(handleReleases(client)))
	mux.Handle("POST /download", authorizedRouteMiddleware.Then(handleDownload(client)))
	mux.Handle("GET /queue", authorizedRouteMiddleware.Then(handleQueue(client)))
	mux.Handle("GET /wanted", authorizedRouteMiddleware.Then(handleWanted(client)))
	mux.Handle("GET /status", authorizedRouteMiddleware.Then(handleStatus(client)))
	mux.Handle("GET /qualityprofiles", authorizedRouteMiddleware.Then(handleQualityProfiles(client)))

	// generic forward for upstream endpoints without a convenience route
	mux.Handle("/api/{endpoint...}", authorizedRouteMiddleware.Then(handlePassthrough(client)))

	// healthchecks are not included in telemetry or authorization
	muxWithoutTelemetry.Handle("GET /health", standardRouteMiddleware.Then(handleHealthCheck()))

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

	applyLogLevel(cfg.Server.LogLevel)

	// configure telemetry, including wrapping the default HTTP client used
	// for upstream calls
	shutdownTelemetry, err := observe.Configure(ctx, cfg.Observe)
	if err != nil {
		return fmt.Errorf("telemetry bootstrap failed: %w", err)
	}

	http.DefaultTransport = observe.HTTPTransport(
		configureHTTPTransport(cfg.Server),
		cfg.Observe,
	)
	http.DefaultClient = &http.Client{
		Transport: http.DefaultTransport,
	}

	client, err := radarr.New(cfg.Radarr)
	if err != nil {
		return fmt.Errorf("radarr configuration failed: %w", err)
	}

	handler := configureServerRoutes(cfg, client)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Addr, cfg.Server.Port),
		Handler:           handler,
		MaxHeaderBytes:    20 << 10,         // 20 KB
		ReadHeaderTimeout: 20 * time.Second, // Prevent Slowloris attacks
	}

	hooks := &server.ShutdownHooks{}
	hooks.AddContext("telemetry", shutdownTelemetry)

	err = server.Run(httpServer, hooks, time.Duration(cfg.Server.ShutdownTimeoutSeconds)*time.Second)
	if err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

func configureLogging() {
	// default level is Info; LOG_LEVEL is applied once config is loaded
	log.Logger = log.Level(zerolog.InfoLevel)

	if os.Getenv("ENV") == "development" {
		log.Logger = log.
			Output(zerolog.ConsoleWriter{Out: os.Stdout}).
			Level(zerolog.DebugLevel)
	}

	zerolog.DefaultContextLogger = &log.Logger
}

func applyLogLevel(level string) {
	parsed, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		log.Warn().Str("level", level).Msg("unknown log level, keeping default")
		return
	}

	log.Logger = log.Level(parsed)
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
