// Package bot is the Telegram transport: it turns updates into dedup events
// and commands, and delivers replies.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/slowpoke-bot/internal/services"
)

const (
	aboutText = "Questions and suggestions are welcome at " +
		"https://github.com/ZaMaZaN4iK/slowpoke-telegram. Thanks!"
	helpText      = "The bot simply tells whether you are a Slowpoke or not :)"
	helpAdminText = "To set the reply image, answer a message with an image with /setimage."

	deniedText       = "You are not allowed to do that."
	missingReplyText = "To set the image, reply with /setimage to the message that has it."
	missingPhotoText = "Cannot find a photo in the quoted message."
	imageSetText     = "Reply image updated."
	imageFailText    = "Could not save the image, try again later."
	noSlowpokesText  = "No slowpokes here yet."
	statsFailText    = "Statistics are not available right now."

	statsLimit = 10
)

// Handler routes updates. Commands are answered first; anything else is
// checked as a forward, and only non-forwarded messages are checked for
// links.
type Handler struct {
	Dedup     *services.DedupService
	API       api
	BotName   string
	OwnerID   int64
	OpTimeout time.Duration
}

// Handle is a bot.HandlerFunc. Replies go through h.API, which is set once
// the client exists.
func (h *Handler) Handle(ctx context.Context, _ *bot.Bot, u *models.Update) {
	h.handle(ctx, u)
}

func (h *Handler) handle(ctx context.Context, u *models.Update) {
	if u == nil || u.Message == nil {
		return
	}
	msg := u.Message
	if h.OpTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.OpTimeout)
		defer cancel()
	}

	if name, ok := parseCommand(msg.Text, h.BotName); ok && h.command(ctx, name, msg) {
		updates.WithLabelValues("command").Inc()
		return
	}

	lg := log.With().Int64("tenant_id", msg.Chat.ID).Int("message_id", msg.ID).Logger()

	if mid, sender, ok := forwardKey(msg); ok {
		updates.WithLabelValues("forward").Inc()
		out, err := h.Dedup.HandleForward(ctx, services.ForwardEvent{
			TenantID:   msg.Chat.ID,
			MessageID:  mid,
			SenderID:   sender,
			FromUserID: fromID(msg),
			ReplyTo:    msg.ID,
		})
		if err != nil {
			lg.Warn().Err(err).Msg("forward dropped")
			return
		}
		lg.Debug().Stringer("outcome", out).Int64("origin", sender).Msg("forward checked")
		return
	}

	links := extractLinks(msg)
	if len(links) == 0 {
		updates.WithLabelValues("ignored").Inc()
		return
	}
	updates.WithLabelValues("link").Inc()
	out, err := h.Dedup.HandleLink(ctx, services.LinkEvent{
		TenantID:   msg.Chat.ID,
		URLs:       links,
		FromUserID: fromID(msg),
		ReplyTo:    msg.ID,
	})
	if err != nil {
		lg.Warn().Err(err).Msg("link check incomplete")
	}
	lg.Debug().Stringer("outcome", out).Int("links", len(links)).Msg("links checked")
}

// command runs a known command and reports whether name was one.
func (h *Handler) command(ctx context.Context, name string, msg *models.Message) bool {
	switch name {
	case "about":
		h.reply(ctx, msg, aboutText)
	case "help":
		if h.isOwner(msg) {
			h.reply(ctx, msg, helpText+" "+helpAdminText)
		} else {
			h.reply(ctx, msg, helpText)
		}
	case "setimage":
		h.setImage(ctx, msg)
	case "stats":
		h.stats(ctx, msg)
	default:
		return false
	}
	return true
}

func (h *Handler) setImage(ctx context.Context, msg *models.Message) {
	if !h.isOwner(msg) {
		h.reply(ctx, msg, deniedText)
		return
	}
	if msg.ReplyToMessage == nil {
		h.reply(ctx, msg, missingReplyText)
		return
	}
	err := h.Dedup.SetReplyImage(ctx, true, largestPhoto(msg.ReplyToMessage.Photo))
	switch {
	case err == nil:
		h.reply(ctx, msg, imageSetText)
	case errors.Is(err, services.ErrNoPhoto):
		h.reply(ctx, msg, missingPhotoText)
	default:
		log.Error().Err(err).Msg("cannot store reply image")
		h.reply(ctx, msg, imageFailText)
	}
}

func (h *Handler) stats(ctx context.Context, msg *models.Message) {
	top, err := h.Dedup.Slowpokes(ctx, msg.Chat.ID, statsLimit)
	if err != nil {
		log.Warn().Err(err).Int64("tenant_id", msg.Chat.ID).Msg("cannot read slowpoke stats")
		h.reply(ctx, msg, statsFailText)
		return
	}
	if len(top) == 0 {
		h.reply(ctx, msg, noSlowpokesText)
		return
	}
	var sb strings.Builder
	sb.WriteString("Top slowpokes:")
	for i, s := range top {
		fmt.Fprintf(&sb, "\n%d. user %d: %d", i+1, s.UserID, s.Count)
	}
	h.reply(ctx, msg, sb.String())
}

func (h *Handler) reply(ctx context.Context, msg *models.Message, text string) {
	_, err := h.API.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:          msg.Chat.ID,
		Text:            text,
		ReplyParameters: &models.ReplyParameters{MessageID: msg.ID, AllowSendingWithoutReply: true},
	})
	if err != nil {
		log.Warn().Err(err).Int64("tenant_id", msg.Chat.ID).Msg("cannot send a response")
	}
}

func (h *Handler) isOwner(msg *models.Message) bool {
	return h.OwnerID != 0 && msg.From != nil && msg.From.ID == h.OwnerID
}

func fromID(msg *models.Message) int64 {
	if msg.From == nil {
		return 0
	}
	return msg.From.ID
}

// largestPhoto returns the file id of the biggest size Telegram offers.
func largestPhoto(sizes []models.PhotoSize) string {
	if len(sizes) == 0 {
		return ""
	}
	return sizes[len(sizes)-1].FileID
}
