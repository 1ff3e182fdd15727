package bot

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-telegram/bot"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/slowpoke-bot/internal/services"
)

// Options configure the Telegram client and handler.
type Options struct {
	Token      string
	BotName    string
	OwnerID    int64
	OpTimeout  time.Duration
	ReplyRPS   float64
	ReplyBurst int

	// WebhookURL enables webhook mode when set; updates must then be fed
	// through Bot.WebhookHandler.
	WebhookURL    string
	WebhookSecret string

	// extra client options, used by tests
	clientOpts []bot.Option
}

// Bot bundles the Telegram client with the dedup pipeline it feeds.
type Bot struct {
	Client  *bot.Bot
	Handler *Handler
	Sink    *TelegramSink
	Dedup   *services.DedupService

	webhookURL    string
	webhookSecret string
}

// New creates the Telegram client and wires handler, sink and dedup service.
func New(opts Options, stores services.TenantProvider, settings services.Settings) (*Bot, error) {
	sink := NewTelegramSink(nil, opts.ReplyRPS, opts.ReplyBurst)
	dedup := &services.DedupService{Stores: stores, Settings: settings, Sink: sink}
	h := &Handler{
		Dedup:     dedup,
		BotName:   opts.BotName,
		OwnerID:   opts.OwnerID,
		OpTimeout: opts.OpTimeout,
	}

	bopts := []bot.Option{
		bot.WithDefaultHandler(h.Handle),
		bot.WithErrorsHandler(func(err error) {
			log.Warn().Err(err).Msg("telegram client error")
		}),
	}
	if opts.WebhookSecret != "" {
		bopts = append(bopts, bot.WithWebhookSecretToken(opts.WebhookSecret))
	}
	bopts = append(bopts, opts.clientOpts...)

	client, err := bot.New(opts.Token, bopts...)
	if err != nil {
		return nil, fmt.Errorf("telegram client: %w", err)
	}
	sink.API = client
	h.API = client

	return &Bot{
		Client:        client,
		Handler:       h,
		Sink:          sink,
		Dedup:         dedup,
		webhookURL:    opts.WebhookURL,
		webhookSecret: opts.WebhookSecret,
	}, nil
}

// WebhookMode reports whether updates arrive through WebhookHandler.
func (b *Bot) WebhookMode() bool { return b.webhookURL != "" }

// WebhookHandler serves Telegram webhook calls.
func (b *Bot) WebhookHandler() http.HandlerFunc { return b.Client.WebhookHandler() }

// Run receives updates until ctx is done. In webhook mode it registers the
// webhook and processes what WebhookHandler receives; otherwise it removes
// any webhook and long-polls.
func (b *Bot) Run(ctx context.Context) error {
	if b.WebhookMode() {
		if _, err := b.Client.SetWebhook(ctx, &bot.SetWebhookParams{
			URL:         b.webhookURL,
			SecretToken: b.webhookSecret,
		}); err != nil {
			return fmt.Errorf("set webhook: %w", err)
		}
		log.Info().Str("url", b.webhookURL).Msg("webhook mode activated")
		b.Client.StartWebhook(ctx)
		return nil
	}

	if _, err := b.Client.DeleteWebhook(ctx, &bot.DeleteWebhookParams{}); err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	log.Info().Msg("long polling mode activated")
	b.Client.Start(ctx)
	return nil
}
