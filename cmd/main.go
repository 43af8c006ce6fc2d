package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"garden_insights/internal/config"
	"garden_insights/internal/handlers"
	"garden_insights/internal/logger"
	"garden_insights/internal/notify"
	"garden_insights/internal/repository"
	"garden_insights/internal/repository/db"
	"garden_insights/internal/server"
	"garden_insights/internal/service"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// Version is set at build time with -ldflags.
var Version = "dev"

const shutdownTimeout = 10 * time.Second

var configDir string

var rootCmd = &cobra.Command{
	Use:           "garden-insights",
	Short:         "Simulated garden sensors with explained insights",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the cycle scheduler (default)",
	RunE:  runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "configs", "directory holding config.yml")
	rootCmd.AddCommand(serveCmd, seedCmd, evaluateCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app holds everything a command needs; close releases it.
type app struct {
	cfg       *config.Config
	log       *logger.Logger
	db        *sql.DB
	publisher notify.Publisher
	services  *service.Service
}

func bootstrap() (*app, error) {
	cfg, err := config.Load(configDir)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	log := logger.GetWithFormat(cfg.LogLevel, cfg.LogFormat)

	conn, err := db.InitDB(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("init sqlite %s: %w", cfg.DBPath, err)
	}

	var publisher notify.Publisher = notify.Nop{}
	if cfg.Notify.Enabled() {
		kp, err := notify.NewKafkaPublisher(cfg.Notify.Brokers, cfg.Notify.Topic, log)
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("kafka publisher: %w", err)
		}
		publisher = kp
		log.Infow("kafka_publisher_enabled", "brokers", cfg.Notify.Brokers, "topic", cfg.Notify.Topic)
	}

	services := service.NewService(repository.NewRepository(conn), service.Options{
		Log:          log,
		Publisher:    publisher,
		Location:     cfg.Simulation.Location,
		Workers:      cfg.Simulation.Workers,
		CycleTimeout: cfg.Simulation.CycleTimeout,
	})
	return &app{cfg: cfg, log: log, db: conn, publisher: publisher, services: services}, nil
}

func (a *app) close() {
	if err := a.publisher.Close(); err != nil {
		a.log.Warnw("publisher_close_failed", "err", err)
	}
	if err := a.db.Close(); err != nil {
		a.log.Errorw("sqlite_close_failed", "err", err)
	}
	_ = a.log.Sync()
}

// runServe serves HTTP and runs scheduled cycles until SIGINT or SIGTERM.
// Either side failing stops the other.
func runServe(cmd *cobra.Command, _ []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &server.Server{}
	apiHandler := handlers.NewHandler(a.services, a.log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Infow("http_listening", "port", a.cfg.Port)
		if err := srv.Run(a.cfg.Port, apiHandler.InitRoutes()); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return a.services.Cycles.Run(gctx, a.cfg.Simulation.Schedule, a.cfg.Simulation.Location)
	})
	g.Go(func() error {
		<-gctx.Done()
		a.log.Infow("shutting down server...")

		// allow in-flight requests to complete
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
