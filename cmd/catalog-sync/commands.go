package main

import (
	"encoding/json"
	"errors"
	"net"
	"strings"

	"github.com/fekuna/omnipos-catalog-sync/config"
	"github.com/fekuna/omnipos-catalog-sync/internal/product/dto"
	"github.com/fekuna/omnipos-catalog-sync/internal/product/listener"
	"github.com/fekuna/omnipos-catalog-sync/internal/scheduler"
	"github.com/fekuna/omnipos-catalog-sync/pkg/broker"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

func newRootCommand(cfg *config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "catalog-sync",
		Short:         "Ingest vendor product feeds and reconcile them into the catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCommand(cfg), newServeCommand(cfg))
	return root
}

func newRunCommand(cfg *config.Config) *cobra.Command {
	var (
		file       string
		jsonReport bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one ingest-and-reconcile pass and exit",
		Example: `  catalog-sync run                       # ingest INGEST_FILE
  catalog-sync run --file feeds/vendor.txt
  catalog-sync run --json > report.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newApplication(ctx, cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			report, err := app.useCase.RunOnce(ctx, &dto.RunInput{FilePath: file})
			if report != nil && jsonReport {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if encErr := enc.Encode(report); encErr != nil {
					return errors.Join(err, encErr)
				}
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "feed file to ingest (default INGEST_FILE)")
	cmd.Flags().BoolVar(&jsonReport, "json", false, "print the run report as JSON")
	return cmd
}

func newServeCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run scheduled syncs and expose gRPC health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newApplication(ctx, cfg)
			if err != nil {
				return err
			}
			defer app.Close()
			appLogger := app.logger

			if cfg.Kafka.Enabled && cfg.Kafka.SyncTopic != "" {
				consumer := broker.NewConsumer(&broker.ConsumerConfig{
					Brokers: cfg.Kafka.Brokers,
					Topic:   cfg.Kafka.SyncTopic,
					GroupID: cfg.Kafka.GroupID,
				})
				defer consumer.Close()
				go listener.NewSyncListener(consumer, app.useCase, cfg.Ingest.Dir, appLogger).Start(ctx)
			}

			schedule := scheduler.ForEnv(cfg.Server.AppEnv, cfg.Ingest.Schedule)
			sched := scheduler.New(app.useCase, schedule, cfg.Ingest.File, appLogger)
			if err := sched.Start(ctx); err != nil {
				return err
			}

			port := cfg.Server.GRPCPort
			if !strings.HasPrefix(port, ":") {
				port = ":" + port
			}
			lis, err := net.Listen("tcp", port)
			if err != nil {
				sched.Stop()
				return err
			}

			grpcServer := grpc.NewServer()
			healthServer := health.NewServer()
			healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
			healthpb.RegisterHealthServer(grpcServer, healthServer)
			reflection.Register(grpcServer)

			appLogger.Info("Starting gRPC server", zap.String("port", port))

			// Graceful Shutdown
			serveErr := make(chan error, 1)
			go func() {
				serveErr <- grpcServer.Serve(lis)
			}()

			select {
			case <-ctx.Done():
			case err = <-serveErr:
				appLogger.Error("gRPC server stopped", zap.Error(err))
			}

			appLogger.Info("Shutting down server...")
			healthServer.Shutdown()
			sched.Stop()
			grpcServer.GracefulStop()
			appLogger.Info("Server stopped")
			return err
		},
	}
}
