// Package services – DedupService
//
// DedupService decides whether an inbound forward or link is new or a repeat
// inside the retention window of its chat, and triggers the reply side effect
// for repeats. Algorithm per event:
//
//  1. Resolve the chat's TenantStore (created on first use).
//  2. Check for a live record.
//  3. Duplicate: reply with the configured image, or a notice when none is
//     configured. The existing record is left untouched, so the window stays
//     anchored to the first sighting.
//  4. New: record it. Losing an insert race (ErrAlreadyRecorded) means
//     another event recorded it first; that is handled as a duplicate.
//
// Storage failures are returned to the caller, which logs and drops the
// event; the chat never sees an error message.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/slowpoke-bot/internal/domain"
	"github.com/tbourn/slowpoke-bot/internal/repo"
)

// DefaultNoAssetText is replied to duplicates when no image is configured.
const DefaultNoAssetText = "Slowpoke! (no reply image configured yet)"

const (
	kindForward = "forward"
	kindLink    = "link"
)

// Outcome is the dedup decision for one event.
type Outcome int

const (
	// OutcomeNew means the event was recorded as a first sighting.
	OutcomeNew Outcome = iota
	// OutcomeDuplicate means the event repeats a live record.
	OutcomeDuplicate
)

func (o Outcome) String() string {
	if o == OutcomeDuplicate {
		return "duplicate"
	}
	return "new"
}

// ForwardEvent is a forwarded channel post seen in a chat.
type ForwardEvent struct {
	TenantID   int64 // chat the forward was posted in
	MessageID  int64 // post id inside its origin
	SenderID   int64 // origin (channel) id
	FromUserID int64 // user who forwarded it
	ReplyTo    int   // message to reply to in the chat
}

// LinkEvent carries the normalized links of one chat message.
type LinkEvent struct {
	TenantID   int64
	URLs       []string
	FromUserID int64
	ReplyTo    int
}

// Reply is what the sink delivers to a chat: either an asset (image file id)
// or a plain text notice.
type Reply struct {
	TenantID int64
	ReplyTo  int
	Asset    string
	Text     string
}

// ReplySink delivers replies. Failures are logged by the caller, not retried.
type ReplySink interface {
	Send(ctx context.Context, r Reply) error
}

// DedupService implements the dedup policy on top of a TenantProvider and the
// global Settings.
type DedupService struct {
	Stores   TenantProvider
	Settings Settings
	Sink     ReplySink

	// NoAssetText overrides DefaultNoAssetText.
	NoAssetText string
}

// HandleForward applies the dedup policy to a forwarded post.
func (s *DedupService) HandleForward(ctx context.Context, ev ForwardEvent) (Outcome, error) {
	ctx, span := otel.Tracer("services/DedupService").Start(ctx, "HandleForward",
		trace.WithAttributes(
			attribute.Int64("tenant.id", ev.TenantID),
			attribute.Int64("forward.message_id", ev.MessageID),
			attribute.Int64("forward.sender_id", ev.SenderID),
		),
	)
	defer span.End()

	store, err := s.Stores.GetOrCreate(ctx, ev.TenantID)
	if err != nil {
		dedupEvents.WithLabelValues(kindForward, "error").Inc()
		span.RecordError(err)
		return OutcomeNew, fmt.Errorf("tenant store: %w", err)
	}

	dup, err := checkThenRecord(kindForward,
		func() (bool, error) { return store.HasRecentForward(ctx, ev.MessageID, ev.SenderID) },
		func() error { return store.RecordForward(ctx, ev.MessageID, ev.SenderID, ev.FromUserID) },
	)
	if err != nil {
		span.RecordError(err)
		return OutcomeNew, err
	}
	if !dup {
		return OutcomeNew, nil
	}
	s.onDuplicate(ctx, store, ev.TenantID, ev.FromUserID, ev.ReplyTo)
	return OutcomeDuplicate, nil
}

// HandleLink applies the dedup policy to every link of one message. All links
// are checked and new ones recorded; a single reply is sent if any of them is
// a duplicate. Per-link storage failures do not stop the remaining links and
// are returned joined.
func (s *DedupService) HandleLink(ctx context.Context, ev LinkEvent) (Outcome, error) {
	if len(ev.URLs) == 0 {
		return OutcomeNew, ErrEmptyEvent
	}
	ctx, span := otel.Tracer("services/DedupService").Start(ctx, "HandleLink",
		trace.WithAttributes(
			attribute.Int64("tenant.id", ev.TenantID),
			attribute.Int("links.count", len(ev.URLs)),
		),
	)
	defer span.End()

	store, err := s.Stores.GetOrCreate(ctx, ev.TenantID)
	if err != nil {
		dedupEvents.WithLabelValues(kindLink, "error").Inc()
		span.RecordError(err)
		return OutcomeNew, fmt.Errorf("tenant store: %w", err)
	}

	var (
		anyDup bool
		errs   []error
	)
	for _, u := range ev.URLs {
		dup, err := checkThenRecord(kindLink,
			func() (bool, error) { return store.HasRecentLink(ctx, u) },
			func() error { return store.RecordLink(ctx, u) },
		)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		anyDup = anyDup || dup
	}
	if anyDup {
		s.onDuplicate(ctx, store, ev.TenantID, ev.FromUserID, ev.ReplyTo)
		return OutcomeDuplicate, errors.Join(errs...)
	}
	if len(errs) > 0 {
		span.RecordError(errors.Join(errs...))
	}
	return OutcomeNew, errors.Join(errs...)
}

// checkThenRecord runs steps 2 and 4 of the policy and reports whether the
// event is a duplicate.
func checkThenRecord(kind string, check func() (bool, error), record func() error) (bool, error) {
	seen, err := check()
	if err != nil {
		dedupEvents.WithLabelValues(kind, "error").Inc()
		return false, fmt.Errorf("check %s: %w", kind, err)
	}
	if seen {
		dedupEvents.WithLabelValues(kind, "duplicate").Inc()
		return true, nil
	}

	switch err := record(); {
	case err == nil:
		dedupEvents.WithLabelValues(kind, "new").Inc()
		return false, nil
	case errors.Is(err, repo.ErrAlreadyRecorded):
		dedupEvents.WithLabelValues(kind, "race").Inc()
		return true, nil
	default:
		dedupEvents.WithLabelValues(kind, "error").Inc()
		return false, fmt.Errorf("record %s: %w", kind, err)
	}
}

// onDuplicate counts the slowpoke and replies. Nothing here fails the event.
func (s *DedupService) onDuplicate(ctx context.Context, store TenantStore, tenantID, userID int64, replyTo int) {
	lg := log.With().Int64("tenant_id", tenantID).Int64("user_id", userID).Logger()

	if userID != 0 {
		if err := store.RecordSlowpoke(ctx, userID); err != nil {
			lg.Warn().Err(err).Msg("cannot record slowpoke")
		}
	}

	reply := Reply{TenantID: tenantID, ReplyTo: replyTo}
	asset, err := s.Settings.Get(ctx, repo.SettingImageFileID)
	switch {
	case err == nil:
		reply.Asset = asset
	case errors.Is(err, repo.ErrNotFound):
		reply.Text = s.noAssetText()
	default:
		// Storage failure: stay silent in the chat.
		replies.WithLabelValues("skipped").Inc()
		lg.Error().Err(err).Msg("cannot read reply image setting")
		return
	}

	if err := s.Sink.Send(ctx, reply); err != nil {
		replies.WithLabelValues("failed").Inc()
		lg.Warn().Err(err).Msg("cannot send a reply")
		return
	}
	if reply.Asset != "" {
		replies.WithLabelValues("asset").Inc()
	} else {
		replies.WithLabelValues("notice").Inc()
	}
}

func (s *DedupService) noAssetText() string {
	if s.NoAssetText != "" {
		return s.NoAssetText
	}
	return DefaultNoAssetText
}

// SetReplyImage stores the reply image file id. Only the owner may call it;
// isOwner is decided by the transport.
func (s *DedupService) SetReplyImage(ctx context.Context, isOwner bool, fileID string) error {
	if !isOwner {
		return ErrNotOwner
	}
	if fileID == "" {
		return ErrNoPhoto
	}
	if err := s.Settings.Set(ctx, repo.SettingImageFileID, fileID); err != nil {
		return err
	}
	log.Info().Str("file_id", fileID).Msg("reply image updated")
	return nil
}

// Slowpokes returns the chat's top late posters inside the retention window.
func (s *DedupService) Slowpokes(ctx context.Context, tenantID int64, limit int) ([]domain.SlowpokeCount, error) {
	store, err := s.Stores.GetOrCreate(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("tenant store: %w", err)
	}
	return store.TopSlowpokes(ctx, limit)
}
