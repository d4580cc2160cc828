package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/ukydev/fleet-tracking/internal/auth"
	"github.com/ukydev/fleet-tracking/internal/config"
	"github.com/ukydev/fleet-tracking/internal/db"
	"github.com/ukydev/fleet-tracking/internal/fleet"
	"github.com/ukydev/fleet-tracking/internal/gpswox"
	"github.com/ukydev/fleet-tracking/internal/handlers"
	"github.com/ukydev/fleet-tracking/internal/middleware"
	"github.com/ukydev/fleet-tracking/internal/models"
	"github.com/ukydev/fleet-tracking/internal/publisher"
	"github.com/ukydev/fleet-tracking/internal/service"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the tracking API server",
	Long:  `Launches the HTTP server exposing the gpswox and gpswox-reports endpoints.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// components holds what the server opened and must close on shutdown.
type components struct {
	tracker     *service.Tracker
	authService *auth.Service
	closers     []func()
}

func (c *components) close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

// buildComponents wires the provider client, optional stores and the
// tracker. Optional backends that fail to connect are logged and skipped.
func buildComponents(ctx context.Context, cfg *config.Config, logger *log.Logger) (*components, error) {
	c := &components{}

	var cache gpswox.TokenCache = gpswox.NewMemoryTokenCache()
	if cfg.Redis.Addr != "" {
		redisCache, err := gpswox.NewRedisTokenCache(gpswox.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Key:      cfg.Redis.Key,
		}, logger)
		if err != nil {
			logger.WithError(err).Warn("Redis unavailable, keeping the session token in memory")
		} else {
			cache = redisCache
			c.closers = append(c.closers, func() { _ = redisCache.Close() })
		}
	}

	requestPolicy := gpswox.RetryPolicy{MaxRetries: cfg.GPSWox.MaxRetries, Timeout: cfg.GPSWox.RequestTimeout}
	fetcher := gpswox.NewFetcher(&http.Client{}, logger)
	authenticator := gpswox.NewAuthenticator(fetcher, cache, cfg.GPSWox.SessionTTL, requestPolicy, logger)
	client := gpswox.NewClient(fetcher, authenticator, gpswox.ClientConfig{
		RequestPolicy:    requestPolicy,
		ProbePolicy:      gpswox.RetryPolicy{MaxRetries: cfg.GPSWox.ProbeRetries, Timeout: cfg.GPSWox.ProbeTimeout},
		DriverEndpoints:  cfg.GPSWox.DriverEndpoints,
		HistoryEndpoints: cfg.GPSWox.HistoryEndpoints,
	}, logger)

	var opts []service.Option
	if cfg.Mongo.URI != "" {
		mongoClient, err := db.ConnectMongo(ctx, cfg.Mongo.URI)
		if err != nil {
			logger.WithError(err).Warn("MongoDB unavailable, report snapshots disabled")
		} else {
			store := db.NewMongoSnapshotCollection(mongoClient, cfg.Mongo.Database, cfg.Mongo.Collection)
			if err := store.EnsureIndexes(ctx); err != nil {
				logger.WithError(err).Warn("Failed to create snapshot indexes")
			}
			opts = append(opts, service.WithSnapshotStore(store))
			c.closers = append(c.closers, func() { _ = mongoClient.Disconnect(context.Background()) })
			logger.WithField("collection", cfg.Mongo.Collection).Info("Report snapshots enabled")
		}
	}
	if cfg.MQTT.BrokerURL != "" {
		pub, err := publisher.NewMQTTPublisher(publisher.Config{
			BrokerURL: cfg.MQTT.BrokerURL,
			ClientID:  cfg.MQTT.ClientID,
			Username:  cfg.MQTT.Username,
			Password:  cfg.MQTT.Password,
			Topic:     cfg.MQTT.Topic,
			QoS:       cfg.MQTT.QoS,
		}, logger)
		if err != nil {
			logger.WithError(err).Warn("MQTT broker unavailable, report publishing disabled")
		} else {
			opts = append(opts, service.WithPublisher(pub))
			c.closers = append(c.closers, pub.Close)
		}
	}

	c.tracker = service.NewTracker(client, service.Config{
		BaseURL:          cfg.GPSWox.APIURL,
		Email:            cfg.GPSWox.Email,
		Password:         cfg.GPSWox.Password,
		HistoryBatchSize: cfg.GPSWox.HistoryBatchSize,
		Thresholds: fleet.Thresholds{
			OverspeedKmh: cfg.Report.OverspeedKmh,
			HighKmh:      cfg.Report.HighKmh,
			CriticalKmh:  cfg.Report.CriticalKmh,
			MovingKmh:    cfg.Report.MovingKmh,
			StopMinutes:  cfg.Report.StopMinutes,
		},
	}, logger, opts...)

	if cfg.Auth.Enabled {
		authService, err := newAuthService(cfg.Auth)
		if err != nil {
			c.close()
			return nil, err
		}
		c.authService = authService
	}
	return c, nil
}

func newAuthService(a config.AuthConfig) (*auth.Service, error) {
	return auth.NewService(auth.Config{
		JWTSecret:        a.JWTSecret,
		TokenExpiry:      a.TokenExpiry,
		ClientID:         a.ClientID,
		ClientSecretHash: a.ClientSecretHash,
		ClientRole:       models.Role(a.ClientRole),
	})
}

// newRouter registers the routes and wraps them in the middleware chain.
// authService is nil when bearer tokens are disabled.
func newRouter(tracker handlers.Tracker, authService *auth.Service, server config.ServerConfig, logger log.FieldLogger) http.Handler {
	tracking := handlers.NewTrackingHandler(tracker, logger)

	r := mux.NewRouter()
	methods := []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	for _, prefix := range []string{"/api", ""} {
		r.HandleFunc(prefix+"/gpswox", tracking.GPSWox).Methods(methods...)
		r.HandleFunc(prefix+"/gpswox-reports", tracking.GPSWoxReports).Methods(methods...)
	}
	r.HandleFunc("/health", tracking.Health).Methods(http.MethodGet)

	var snapshots http.Handler = http.HandlerFunc(tracking.Snapshots)
	var chain http.Handler = r
	if authService != nil {
		authHandler := handlers.NewAuthHandler(authService, logger)
		r.HandleFunc("/api/auth/token", authHandler.Token).Methods(http.MethodPost, http.MethodOptions)

		authMiddleware := middleware.NewAuthMiddleware(authService)
		snapshots = authMiddleware.RequireRole(models.RoleAdmin)(snapshots)
		chain = authMiddleware.Authenticate(chain)
	}
	r.Handle("/api/reports/snapshots", snapshots).Methods(http.MethodGet, http.MethodOptions)

	limiter := middleware.NewRateLimitMiddleware()
	limiter.TrustProxy = server.TrustProxy
	chain = limiter.RateLimit(server.RateLimit, server.RateWindowSec)(chain)
	chain = middleware.CORS(chain)
	chain = middleware.RequestLogger(logger)(chain)
	return middleware.RequestID(chain)
}

func runServer(ctx context.Context) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Initializing fleet tracking service...")
	comps, err := buildComponents(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer comps.close()

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      newRouter(comps.tracker, comps.authService, cfg.Server, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithFields(log.Fields{
			"addr":          addr,
			"auth_enabled":  comps.authService != nil,
			"provider_host": cfg.GPSWox.APIURL,
		}).Info("Tracking API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Warn("Shutdown signal received, initiating graceful shutdown...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Fleet tracking service stopped")
	return nil
}
