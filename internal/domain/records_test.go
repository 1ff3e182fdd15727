package domain

import (
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newDomainDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

func TestTableNames(t *testing.T) {
	if (ForwardedMessage{}).TableName() != "forwarded_messages" {
		t.Fatalf("ForwardedMessage.TableName() = %q", (ForwardedMessage{}).TableName())
	}
	if (Link{}).TableName() != "links" {
		t.Fatalf("Link.TableName() = %q", (Link{}).TableName())
	}
	if (Slowpoke{}).TableName() != "slowpokes" {
		t.Fatalf("Slowpoke.TableName() = %q", (Slowpoke{}).TableName())
	}
}

func TestMigrations_TablesAndIndexes(t *testing.T) {
	db := newDomainDB(t)

	if err := db.AutoMigrate(TenantModels()...); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	// Second run must be a no-op.
	if err := db.AutoMigrate(TenantModels()...); err != nil {
		t.Fatalf("automigrate (again): %v", err)
	}

	m := db.Migrator()
	for _, tbl := range TenantModels() {
		if !m.HasTable(tbl) {
			t.Fatalf("expected table for %T to exist", tbl)
		}
	}
	if !m.HasIndex(&ForwardedMessage{}, "idx_forwarded_seen_at") {
		t.Fatalf("expected index idx_forwarded_seen_at")
	}
	if !m.HasIndex(&Link{}, "idx_links_seen_at") {
		t.Fatalf("expected index idx_links_seen_at")
	}
	if !m.HasIndex(&Slowpoke{}, "idx_slowpokes_user") {
		t.Fatalf("expected index idx_slowpokes_user")
	}
}

func TestForwardedMessage_CompositeKey(t *testing.T) {
	db := newDomainDB(t)
	if err := db.AutoMigrate(TenantModels()...); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	now := time.Now().UTC()

	// Same message id from two different origins is two rows.
	if err := db.Create(&ForwardedMessage{MessageID: 100, SenderID: 7, SeenAt: now}).Error; err != nil {
		t.Fatalf("insert 100/7: %v", err)
	}
	if err := db.Create(&ForwardedMessage{MessageID: 100, SenderID: 8, SeenAt: now}).Error; err != nil {
		t.Fatalf("insert 100/8: %v", err)
	}
	// Same pair again violates the primary key.
	if err := db.Create(&ForwardedMessage{MessageID: 100, SenderID: 7, SeenAt: now}).Error; err == nil {
		t.Fatalf("expected primary key violation for duplicate (100, 7)")
	}

	var n int64
	if err := db.Model(&ForwardedMessage{}).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("rows = %d; want 2", n)
	}
}
