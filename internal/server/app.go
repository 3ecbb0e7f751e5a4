// Package server wires the bountyboard components together and runs them:
// the REST API, the gRPC health endpoint and the scheduled leaderboard
// refresh. It owns startup (database, migrations, object store, cache) and
// graceful shutdown on SIGINT/SIGTERM/SIGQUIT.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/bountyboard/internal/logging"
	"github.com/dmitrijs2005/bountyboard/internal/server/cache"
	"github.com/dmitrijs2005/bountyboard/internal/server/config"
	"github.com/dmitrijs2005/bountyboard/internal/server/httpapi"
	"github.com/dmitrijs2005/bountyboard/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/bountyboard/internal/server/scheduler"
	"github.com/dmitrijs2005/bountyboard/internal/server/services"
	"github.com/dmitrijs2005/bountyboard/internal/server/storage"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"

	gs "github.com/dmitrijs2005/bountyboard/internal/server/grpc"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	redis       *redis.Client
	handler     http.Handler
	health      *gs.HealthServer
	scheduler   *scheduler.Scheduler
	leaderboard *services.LeaderboardService
}

// NewApp connects to every backing service, applies migrations and builds
// the components. Redis is optional: an empty address disables caching.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewJSONLogger(os.Stdout, slog.LevelInfo)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	store, err := storage.NewS3Store(ctx, c)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("object store init error: %w", err)
	}

	app := &App{config: c, logger: logger, db: db}

	var lbCache cache.LeaderboardCache = cache.NoopLeaderboardCache{}
	if c.RedisAddr != "" {
		rdb, err := cache.NewRedisClient(ctx, c.RedisAddr, c.RedisPassword, c.RedisDB)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("redis init error: %w", err)
		}
		app.redis = rdb
		lbCache = cache.NewRedisLeaderboardCache(rdb, c.LeaderboardCacheTTL)
	}

	users := services.NewUserService(db, rm, store, c, logger)
	challenges := services.NewChallengeService(db, rm, store, logger)
	submissions := services.NewSubmissionService(db, rm, store, logger)
	adjudication := services.NewAdjudicationService(db, rm, lbCache, logger)
	app.leaderboard = services.NewLeaderboardService(db, rm, store, lbCache, logger)
	images := services.NewImageService(store, logger)

	gin.SetMode(gin.ReleaseMode)
	h := httpapi.NewHandler(users, challenges, submissions, adjudication, app.leaderboard, images, logger,
		httpapi.WithSecureCookie(secureOrigins(c.CORSAllowedOrigins)))

	app.handler = cors.New(cors.Options{
		AllowedOrigins:   c.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(h.Router())

	if c.GRPCHealthAddr != "" {
		app.health = gs.NewHealthServer(c.GRPCHealthAddr, logger, app.probes())
	}

	if c.LeaderboardRefreshSpec != "" {
		app.scheduler = scheduler.New(logger)
		if err := app.scheduler.AddLeaderboardRefresh(c.LeaderboardRefreshSpec, app.leaderboard); err != nil {
			app.close()
			return nil, err
		}
	}

	return app, nil
}

func (app *App) probes() map[string]gs.Probe {
	p := map[string]gs.Probe{
		"postgres": app.db.PingContext,
	}
	if app.redis != nil {
		p["redis"] = func(ctx context.Context) error { return app.redis.Ping(ctx).Err() }
	}
	return p
}

// secureOrigins reports whether every allowed origin is served over https,
// in which case the session cookie is marked Secure.
func secureOrigins(origins []string) bool {
	if len(origins) == 0 {
		return false
	}
	for _, o := range origins {
		if !strings.HasPrefix(o, "https://") {
			return false
		}
	}
	return true
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	srv := &http.Server{
		Addr:              app.config.HTTPAddr,
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "http shutdown error", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", app.config.HTTPAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startHealthServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.health.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run blocks until a termination signal arrives or a component fails, then
// waits for every component to stop and releases connections.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	if app.health != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startHealthServer(ctx, cancelFunc)
		}()
	}

	if app.scheduler != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.scheduler.Run(ctx)
		}()
	}

	wg.Wait()
	app.close()

	app.logger.Info(context.WithoutCancel(ctx), "App stopped")
}

func (app *App) close() {
	if app.redis != nil {
		_ = app.redis.Close()
	}
	if app.db != nil {
		_ = app.db.Close()
	}
}
