package gateway

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	apiv1 "github.com/tanagardigil-gorkem/assistme-api/pkg/api/v1"
	"github.com/tanagardigil-gorkem/assistme-api/pkg/auth"
	"github.com/tanagardigil-gorkem/assistme-api/pkg/common"
	"github.com/tanagardigil-gorkem/assistme-api/pkg/integrations"
	"github.com/tanagardigil-gorkem/assistme-api/pkg/providers"
	"github.com/tanagardigil-gorkem/assistme-api/pkg/repository"
	"github.com/tanagardigil-gorkem/assistme-api/pkg/secrets"
	"github.com/tanagardigil-gorkem/assistme-api/pkg/services/dashboard"
	"github.com/tanagardigil-gorkem/assistme-api/pkg/services/news"
	"github.com/tanagardigil-gorkem/assistme-api/pkg/services/summary"
	"github.com/tanagardigil-gorkem/assistme-api/pkg/services/weather"
	"github.com/tanagardigil-gorkem/assistme-api/pkg/types"
)

const stateSweepInterval = 5 * time.Minute

type Gateway struct {
	Config      types.AppConfig
	RedisClient *common.RedisClient
	BackendRepo *repository.PostgresBackend
	httpServer  *http.Server
	echo        *echo.Echo
	ctx         context.Context
	cancelFunc  context.CancelFunc

	baseRouteGroup *echo.Group

	registry   *providers.Registry
	manager    *integrations.Manager
	summarizer *summary.Summarizer

	weatherService   *weather.Service
	newsService      *news.Service
	dashboardService *dashboard.Service
}

func NewGateway() (*Gateway, error) {
	configManager, err := common.NewConfigManager[types.AppConfig]()
	if err != nil {
		return nil, err
	}
	config := configManager.GetConfig()

	// Setup logging
	if config.DebugMode {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	}
	if config.PrettyLogs {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}

	backendRepo, err := repository.NewPostgresBackend(config.Database.Postgres)
	if err != nil {
		return nil, err
	}
	if err := backendRepo.RunMigrations(); err != nil {
		return nil, fmt.Errorf("failed to run postgres migrations: %w", err)
	}

	// Redis is optional: without it, refresh locking falls back to the
	// database row lock alone.
	var redisClient *common.RedisClient
	if config.Database.Redis.IsConfigured() {
		redisClient, err = common.NewRedisClient(config.Database.Redis, common.WithClientName("AssistmeGateway"))
		if err != nil {
			return nil, err
		}
	} else {
		log.Info().Msg("redis not configured, cross-process refresh locking disabled")
	}

	cipher, err := secrets.NewTokenCipher(config.Encryption.Secret)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	upstream := common.NewUpstreamClient(config.Upstream)

	registry := providers.NewRegistry()
	registry.Register(providers.NewGmailProvider(config.OAuth.Google, upstream.HTTPClient()))

	manager := integrations.NewManager(registry, backendRepo, cipher, redisClient, config.OAuth)

	summarizer, err := summary.NewSummarizer(ctx, config.Summary)
	if err != nil {
		cancel()
		return nil, err
	}
	if summarizer == nil {
		log.Info().Msg("email summaries disabled, no gemini api key configured")
	}

	weatherService := weather.NewService(upstream, config.Weather)
	newsService := news.NewService(upstream, config.News)
	dashboardService := dashboard.NewService(weatherService, newsService, manager, backendRepo, summarizer)

	gateway := &Gateway{
		Config:           config,
		RedisClient:      redisClient,
		BackendRepo:      backendRepo,
		ctx:              ctx,
		cancelFunc:       cancel,
		registry:         registry,
		manager:          manager,
		summarizer:       summarizer,
		weatherService:   weatherService,
		newsService:      newsService,
		dashboardService: dashboardService,
	}

	return gateway, nil
}

func (g *Gateway) initHTTP() error {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Pre(middleware.RemoveTrailingSlash())

	if g.Config.Gateway.HTTP.EnablePrettyLogs {
		e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
			Format: "${time_rfc3339} ${method} ${uri} ${status} ${latency_human}\n",
		}))
	}

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: g.Config.Gateway.HTTP.CORS.AllowedOrigins,
		AllowHeaders: g.Config.Gateway.HTTP.CORS.AllowedHeaders,
		AllowMethods: g.Config.Gateway.HTTP.CORS.AllowedMethods,
	}))

	e.Use(middleware.Recover())

	validator, err := auth.NewJWTValidator(g.Config.Auth, g.BackendRepo)
	if err != nil {
		return err
	}
	e.Use(auth.HTTPMiddleware(validator))

	g.echo = e
	g.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", g.Config.Gateway.HTTP.Host, g.Config.Gateway.HTTP.Port),
		Handler: e,
	}

	g.baseRouteGroup = e.Group(apiv1.HttpServerBaseRoute)
	return nil
}

func (g *Gateway) registerServices() error {
	apiv1.NewHealthGroup(g.baseRouteGroup.Group("/health"), g.BackendRepo)
	apiv1.NewIntegrationsGroup(g.baseRouteGroup.Group("/integrations"), g.manager, g.summarizer)
	apiv1.NewWeatherGroup(g.baseRouteGroup.Group("/weather"), g.weatherService)
	apiv1.NewNewsGroup(g.baseRouteGroup.Group("/news"), g.newsService)
	apiv1.NewTasksGroup(g.baseRouteGroup.Group("/tasks"), g.BackendRepo)
	apiv1.NewDashboardGroup(g.baseRouteGroup.Group("/dashboard"), g.dashboardService)

	go g.manager.RunStateSweeper(g.ctx, stateSweepInterval)

	log.Info().
		Int("providers", len(g.registry.List())).
		Msg("integration, weather, news, tasks, and dashboard APIs registered")

	return nil
}

// StartAsync starts the gateway server without blocking
func (g *Gateway) StartAsync() error {
	if err := g.initHTTP(); err != nil {
		return fmt.Errorf("failed to initialize http server: %w", err)
	}

	if err := g.registerServices(); err != nil {
		return fmt.Errorf("failed to register services: %w", err)
	}

	go func() {
		addr := fmt.Sprintf("%s:%d", g.Config.Gateway.HTTP.Host, g.Config.Gateway.HTTP.Port)
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			log.Error().Err(err).Msg("failed to listen on http")
			return
		}

		if err := g.httpServer.Serve(lis); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("http server error")
		}
	}()

	log.Info().
		Str("host", g.Config.Gateway.HTTP.Host).
		Int("port", g.Config.Gateway.HTTP.Port).
		Msg("gateway http server running")

	return nil
}

// Start is the gateway entry point
func (g *Gateway) Start() error {
	if err := g.StartAsync(); err != nil {
		return err
	}

	terminationSignal := make(chan os.Signal, 1)
	signal.Notify(terminationSignal, os.Interrupt, syscall.SIGTERM)
	<-terminationSignal

	log.Info().Msg("termination signal received. shutting down...")
	g.shutdown()

	return nil
}

// Shutdown gracefully shuts down the gateway
func (g *Gateway) Shutdown() {
	g.shutdown()
}

func (g *Gateway) shutdown() {
	timeout := g.Config.Gateway.ShutdownTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		return g.httpServer.Shutdown(ctx)
	})

	eg.Go(func() error {
		return g.BackendRepo.Close()
	})

	if g.RedisClient != nil {
		eg.Go(func() error {
			return g.RedisClient.Close()
		})
	}

	g.cancelFunc()

	if err := eg.Wait(); err != nil {
		log.Error().Err(err).Msg("failed to shutdown gateway gracefully")
	}

	log.Info().Msg("gateway stopped")
}
