package main

import (
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/ukydev/fleet-tracking/internal/config"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  *log.Logger
)

var rootCmd = &cobra.Command{
	Use:   "fleet-tracking",
	Short: "GPS tracking gateway for the fleet dashboard.",
	Long: `Authenticates against the GPS provider, normalizes devices, drivers
and position history, and serves vehicle lists and fleet reports.`,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		logger, err = newLogger(cfg.Log)
		if err != nil {
			return err
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "optional config file (yaml, json or toml)")
}

// newLogger builds the process logger from the log settings.
func newLogger(c config.LogConfig) (*log.Logger, error) {
	l := log.New()
	l.SetOutput(os.Stdout)

	level, err := log.ParseLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", c.Level, err)
	}
	l.SetLevel(level)

	switch strings.ToLower(c.Format) {
	case "", "json":
		l.SetFormatter(&log.JSONFormatter{})
	case "text":
		l.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("invalid log format %q", c.Format)
	}
	return l, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fleet-tracking: %v\n", err)
		os.Exit(1)
	}
}
