// Package domain defines the persistence models of a single chat's dedup
// store. These types are mapped with GORM; every chat (tenant) gets its own
// SQLite file holding exactly these tables.
package domain

import "time"

// ForwardedMessage records the first sighting of a forwarded channel post in a
// chat. Telegram message ids are only unique inside their origin chat, so the
// primary key is the pair (MessageID, SenderID).
//
// Fields:
//   - MessageID: id of the post inside its origin chat.
//   - SenderID: id of the origin (channel) the post was published in.
//   - ForwardedBy: user that forwarded it first; metadata only.
//   - SeenAt: first sighting in UTC. Never refreshed while the row is live.
type ForwardedMessage struct {
	MessageID   int64     `gorm:"primaryKey;autoIncrement:false"`
	SenderID    int64     `gorm:"primaryKey;autoIncrement:false"`
	ForwardedBy int64     `gorm:"not null;default:0"`
	SeenAt      time.Time `gorm:"not null;index:idx_forwarded_seen_at"`
}

// TableName returns the database table name for ForwardedMessage.
func (ForwardedMessage) TableName() string { return "forwarded_messages" }

// Link records the first sighting of a normalized URL in a chat.
type Link struct {
	URL    string    `gorm:"type:text;primaryKey"`
	SeenAt time.Time `gorm:"not null;index:idx_links_seen_at"`
}

// TableName returns the database table name for Link.
func (Link) TableName() string { return "links" }

// Slowpoke is one "late" post: a user shared something the chat had already
// seen. Rows are aggregated per user for the /stats command.
type Slowpoke struct {
	ID     uint      `gorm:"primaryKey"`
	UserID int64     `gorm:"not null;index:idx_slowpokes_user"`
	SeenAt time.Time `gorm:"not null;index:idx_slowpokes_seen_at"`
}

// TableName returns the database table name for Slowpoke.
func (Slowpoke) TableName() string { return "slowpokes" }

// SlowpokeCount is a per-user aggregate of Slowpoke rows.
type SlowpokeCount struct {
	UserID int64
	Count  int64
}

// TenantModels lists every model migrated into a tenant store.
func TenantModels() []any {
	return []any{&ForwardedMessage{}, &Link{}, &Slowpoke{}}
}
