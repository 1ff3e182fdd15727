// Package repo implements the persistence layer for tenant stores, backed by
// GORM. This file provides the per-chat TenantStore: duplicate lookups,
// first-sighting inserts, slowpoke statistics and retention purging.
//
// Error semantics:
//   - A live record with the same key makes Record* return ErrAlreadyRecorded.
//     A row that is older than the retention window but not yet purged is
//     replaced instead, so the window is always anchored to a live sighting.
//   - Every other failure is returned as *StorageError; nothing is swallowed
//     here. Callers decide whether to retry, log or drop.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/slowpoke-bot/internal/domain"
)

// TenantStore is the persistent store of a single chat. It is safe for
// concurrent use; the underlying pool bounds the number of connections.
type TenantStore struct {
	id        int64
	db        *gorm.DB
	retention time.Duration
	now       func() time.Time
}

func newTenantStore(id int64, db *gorm.DB, retention time.Duration, now func() time.Time) *TenantStore {
	if now == nil {
		now = time.Now
	}
	return &TenantStore{id: id, db: db, retention: retention, now: now}
}

// ID returns the tenant (chat) id this store belongs to.
func (s *TenantStore) ID() int64 { return s.id }

// cutoff is the oldest SeenAt still inside the retention window.
func (s *TenantStore) cutoff() time.Time {
	return s.now().UTC().Add(-s.retention)
}

// HasRecentForward reports whether the post (messageID, senderID) was seen
// inside the retention window. It never deletes anything.
func (s *TenantStore) HasRecentForward(ctx context.Context, messageID, senderID int64) (bool, error) {
	var found bool
	err := s.db.WithContext(ctx).Raw(
		"SELECT EXISTS(SELECT 1 FROM forwarded_messages WHERE message_id = ? AND sender_id = ? AND seen_at >= ?)",
		messageID, senderID, s.cutoff(),
	).Scan(&found).Error
	if err != nil {
		return false, storageErr("has recent forward", s.id, err)
	}
	return found, nil
}

// RecordForward stores the first sighting of (messageID, senderID) with
// SeenAt = now. It returns ErrAlreadyRecorded if a live row exists.
func (s *TenantStore) RecordForward(ctx context.Context, messageID, senderID, forwardedBy int64) error {
	rec := &domain.ForwardedMessage{
		MessageID:   messageID,
		SenderID:    senderID,
		ForwardedBy: forwardedBy,
		SeenAt:      s.now().UTC(),
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "message_id"}, {Name: "sender_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"forwarded_by", "seen_at"}),
		Where:     s.expiredOnly("forwarded_messages"),
	}).Create(rec)
	return s.insertResult("record forward", res)
}

// HasRecentLink reports whether the normalized URL was seen inside the
// retention window.
func (s *TenantStore) HasRecentLink(ctx context.Context, url string) (bool, error) {
	var found bool
	err := s.db.WithContext(ctx).Raw(
		"SELECT EXISTS(SELECT 1 FROM links WHERE url = ? AND seen_at >= ?)",
		url, s.cutoff(),
	).Scan(&found).Error
	if err != nil {
		return false, storageErr("has recent link", s.id, err)
	}
	return found, nil
}

// RecordLink stores the first sighting of a normalized URL.
func (s *TenantStore) RecordLink(ctx context.Context, url string) error {
	rec := &domain.Link{URL: url, SeenAt: s.now().UTC()}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "url"}},
		DoUpdates: clause.AssignmentColumns([]string{"seen_at"}),
		Where:     s.expiredOnly("links"),
	}).Create(rec)
	return s.insertResult("record link", res)
}

// RecordSlowpoke counts one late post for userID.
func (s *TenantStore) RecordSlowpoke(ctx context.Context, userID int64) error {
	rec := &domain.Slowpoke{UserID: userID, SeenAt: s.now().UTC()}
	return storageErr("record slowpoke", s.id, s.db.WithContext(ctx).Create(rec).Error)
}

// TopSlowpokes returns users ordered by the number of late posts inside the
// retention window (ties broken by user id). limit <= 0 returns all.
func (s *TenantStore) TopSlowpokes(ctx context.Context, limit int) ([]domain.SlowpokeCount, error) {
	var out []domain.SlowpokeCount
	q := s.db.WithContext(ctx).
		Model(&domain.Slowpoke{}).
		Select("user_id, COUNT(*) AS count").
		Where("seen_at >= ?", s.cutoff()).
		Group("user_id").
		Order("count DESC, user_id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(&out).Error; err != nil {
		return nil, storageErr("top slowpokes", s.id, err)
	}
	return out, nil
}

// PurgeExpired deletes every record older than the retention window and
// returns how many rows were removed. The three deletes run in a single
// transaction so readers never observe a partially purged store.
func (s *TenantStore) PurgeExpired(ctx context.Context) (int64, error) {
	cutoff := s.cutoff()
	var removed int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range domain.TenantModels() {
			res := tx.Where("seen_at < ?", cutoff).Delete(model)
			if res.Error != nil {
				return res.Error
			}
			removed += res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, storageErr("purge expired", s.id, err)
	}
	return removed, nil
}

// Close releases the store's connection pool.
func (s *TenantStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return storageErr("close", s.id, err)
	}
	return storageErr("close", s.id, sqlDB.Close())
}

// expiredOnly limits an upsert's DO UPDATE branch to rows that already fell
// out of the retention window.
func (s *TenantStore) expiredOnly(table string) clause.Where {
	return clause.Where{Exprs: []clause.Expression{
		clause.Expr{SQL: table + ".seen_at < ?", Vars: []interface{}{s.cutoff()}},
	}}
}

func (s *TenantStore) insertResult(op string, res *gorm.DB) error {
	if res.Error != nil {
		if isDuplicate(res.Error) {
			return ErrAlreadyRecorded
		}
		return storageErr(op, s.id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrAlreadyRecorded
	}
	return nil
}
