package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk-service/internal/api/http"
	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/worker"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:           "helpdesk",
	Short:         "Help-desk ticket lifecycle engine",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the scheduled auto-close sweep",
	RunE:  runServe,
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one auto-close sweep and exit",
	RunE:  runSweep,
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for local testing",
	RunE:  runToken,
}

var (
	demoCatalogFlag bool
	tokenUserIDFlag int64
	tokenRoleFlag   string
	tokenNameFlag   string
)

func init() {
	serveCmd.Flags().BoolVar(&demoCatalogFlag, "demo-catalog", false, "Seed a demo catalog when running on the in-memory store")
	tokenCmd.Flags().Int64Var(&tokenUserIDFlag, "user-id", 0, "User or technician id")
	tokenCmd.Flags().StringVar(&tokenRoleFlag, "role", string(domain.RoleEmployee), "empleado, tecnico or administrador")
	tokenCmd.Flags().StringVar(&tokenNameFlag, "name", "", "Display name")
	_ = tokenCmd.MarkFlagRequired("user-id")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	eng, err := bootstrap(ctx, demoCatalogFlag)
	if err != nil {
		return err
	}
	defer eng.Close()
	logger := eng.logger

	worker.StartNotificationWorker(eng.notifications, eng.forwarder, eng.dispatcher)
	sweeper := worker.NewAutoCloseWorker(eng.autoClose, eng.cfg.Engine.SweepSchedule, logger)
	if err := sweeper.Start(ctx); err != nil {
		return err
	}
	defer sweeper.Stop()

	app := fiber.New(fiber.Config{AppName: eng.cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, eng.metrics, eng.cfg.App.RequestTimeout())

	dependencies := map[string]handlers.Pinger{"postgres": nil, "redis": nil}
	if eng.pg.Enabled() {
		dependencies["postgres"] = eng.pg
	}
	if eng.redis.Handle() != nil {
		dependencies["redis"] = eng.redis
	}
	tokens := auth.NewTokenManager(eng.cfg.Auth.JWTSecret, eng.cfg.Auth.AccessTokenTTLMinutes)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(eng.cfg.App.Name, eng.cfg.App.Version, dependencies),
		Tickets:        handlers.NewTicketsHandler(eng.tickets),
		Assignment:     handlers.NewAssignmentHandler(eng.assignment),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, eng.store.Technicians()),
		Metrics:        eng.metrics,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(eng.cfg.App.Addr())
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("fiber listen: %w", err)
	case sig := <-shutdownSignal():
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}
	return app.ShutdownWithTimeout(10 * time.Second)
}

func runSweep(cmd *cobra.Command, _ []string) error {
	eng, err := bootstrap(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer eng.Close()

	worker.StartNotificationWorker(eng.notifications, eng.forwarder, eng.dispatcher)
	result, err := eng.autoClose.Sweep(cmd.Context())
	if err != nil {
		return fmt.Errorf("auto-close sweep: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "closed %d ticket(s) finished at or before %s\n",
		len(result.Closed), result.Cutoff.Format(time.RFC3339))
	return nil
}

func runToken(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	role := domain.Role(tokenRoleFlag)
	if !role.Valid() {
		return fmt.Errorf("unknown role %q", tokenRoleFlag)
	}
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	token, expiresAt, err := tokens.GenerateToken(domain.Principal{UserID: tokenUserIDFlag, Name: tokenNameFlag, Role: role})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\n# expires %s\n", token, expiresAt.Format(time.RFC3339))
	return nil
}

func shutdownSignal() <-chan os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	return sigCh
}
