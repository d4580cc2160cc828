package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func envInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return def
}

func envString(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// simulate ticks the fleet until ctx is done.
func simulate(ctx context.Context, f *Fleet, interval time.Duration) error {
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
			f.Tick(interval)
		}
	}
}

func main() {
	_ = godotenv.Load()

	fleetSize := envInt("FLEET_SIZE", 10)
	addr := envString("SIM_ADDR", ":8090")
	email := envString("SIM_EMAIL", envString("GPSWOX_EMAIL", "demo@fleet.example"))
	password := envString("SIM_PASSWORD", envString("GPSWOX_PASSWORD", "demo"))

	interval := 2 * time.Second
	if n := envInt("SIM_TICK_SECONDS", 0); n >= 1 {
		interval = time.Duration(n) * time.Second
	}

	log.WithFields(log.Fields{
		"fleet_size": fleetSize,
		"addr":       addr,
		"interval":   interval,
	}).Info("Starting GPS provider simulation")

	fleet := NewFleet(fleetSize, time.Now().UnixNano(), envInt("SIM_MAX_HISTORY", 5000), time.Now)
	provider := NewProvider(fleet, email, password, log.StandardLogger())

	srv := &http.Server{
		Addr:              addr,
		Handler:           provider.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return simulate(ctx, fleet, interval) })
	g.Go(func() error {
		log.WithField("base_url", "http://localhost"+addr).Info("Mock provider listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Fatal("Simulation stopped")
	}
	log.Info("Simulation stopped")
}
