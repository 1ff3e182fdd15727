package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tbourn/slowpoke-bot/internal/bot"
	httpapi "github.com/tbourn/slowpoke-bot/internal/http"
	"github.com/tbourn/slowpoke-bot/internal/observability"
	"github.com/tbourn/slowpoke-bot/internal/repo"
	"github.com/tbourn/slowpoke-bot/internal/services"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot with its HTTP endpoints and the retention sweeper",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

// adminTenants exposes tenant enumeration and statistics to the admin API.
type adminTenants struct {
	services.FactoryProvider
	*services.DedupService
}

func runServe(cmd *cobra.Command, _ []string) error {
	if err := cfg.RequireBot(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.Setup(ctx, cfg.OTEL, version)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn().Err(err).Msg("tracing shutdown")
		}
	}()

	settings, err := repo.OpenSettings(cfg.SettingsPath)
	if err != nil {
		return err
	}
	defer settings.Close()

	factory, err := openFactory()
	if err != nil {
		return err
	}
	defer factory.Close()
	stores := services.FactoryProvider{Factory: factory}

	b, err := bot.New(bot.Options{
		Token:         cfg.BotToken,
		BotName:       cfg.BotName,
		OwnerID:       cfg.OwnerID,
		OpTimeout:     cfg.OpTimeout,
		ReplyRPS:      cfg.ReplyRPS,
		ReplyBurst:    cfg.ReplyBurst,
		WebhookURL:    webhookURL(),
		WebhookSecret: cfg.WebhookSecret,
	}, stores, settings)
	if err != nil {
		return err
	}

	sweeper := services.NewSweeper(stores, cfg.CleanPeriod, services.DefaultTenantTimeout)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	deps := httpapi.Deps{
		Tenants: adminTenants{FactoryProvider: stores, DedupService: b.Dedup},
		Sweeper: sweeper,
	}
	if b.WebhookMode() {
		deps.Webhook = b.WebhookHandler()
	}
	httpapi.RegisterRoutes(r, cfg, deps)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
	httpErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErr <- err
		}
	}()

	botErr := make(chan error, 1)
	go func() { botErr <- b.Run(ctx) }()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown requested")
	case err := <-httpErr:
		runErr = fmt.Errorf("http server: %w", err)
	case err := <-botErr:
		if err != nil {
			runErr = err
		}
	}
	stop()

	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
	log.Info().Msg("stopped")
	return runErr
}

// webhookURL is empty outside webhook mode so the bot long-polls.
func webhookURL() string {
	if !cfg.WebhookMode {
		return ""
	}
	return cfg.WebhookURL
}
