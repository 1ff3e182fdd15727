package bot

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/slowpoke-bot/internal/services"
)

// api is the subset of *bot.Bot the transport uses.
type api interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendPhoto(ctx context.Context, params *bot.SendPhotoParams) (*models.Message, error)
}

// TelegramSink delivers duplicate replies to Telegram, throttled per chat.
type TelegramSink struct {
	API     api
	limiter *chatLimiter
}

// NewTelegramSink returns a sink limited to rps replies per second per chat.
func NewTelegramSink(a api, rps float64, burst int) *TelegramSink {
	return &TelegramSink{API: a, limiter: newChatLimiter(rps, burst)}
}

// Send implements services.ReplySink. Replies over the chat's rate are
// dropped without error.
func (s *TelegramSink) Send(ctx context.Context, r services.Reply) error {
	if !s.limiter.Allow(r.TenantID) {
		repliesThrottled.Inc()
		log.Debug().Int64("tenant_id", r.TenantID).Msg("reply throttled")
		return nil
	}

	var rp *models.ReplyParameters
	if r.ReplyTo != 0 {
		rp = &models.ReplyParameters{MessageID: r.ReplyTo, AllowSendingWithoutReply: true}
	}

	if r.Asset != "" {
		_, err := s.API.SendPhoto(ctx, &bot.SendPhotoParams{
			ChatID:          r.TenantID,
			Photo:           &models.InputFileString{Data: r.Asset},
			ReplyParameters: rp,
		})
		return err
	}
	_, err := s.API.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:          r.TenantID,
		Text:            r.Text,
		ReplyParameters: rp,
	})
	return err
}
