package services

import (
	"context"

	"github.com/tbourn/slowpoke-bot/internal/domain"
	"github.com/tbourn/slowpoke-bot/internal/repo"
)

// TenantStore is the per-chat storage the services depend on.
// *repo.TenantStore implements it.
type TenantStore interface {
	HasRecentForward(ctx context.Context, messageID, senderID int64) (bool, error)
	RecordForward(ctx context.Context, messageID, senderID, forwardedBy int64) error
	HasRecentLink(ctx context.Context, url string) (bool, error)
	RecordLink(ctx context.Context, url string) error
	RecordSlowpoke(ctx context.Context, userID int64) error
	TopSlowpokes(ctx context.Context, limit int) ([]domain.SlowpokeCount, error)
	PurgeExpired(ctx context.Context) (int64, error)
}

// TenantProvider resolves tenant stores and enumerates tenants on disk.
type TenantProvider interface {
	GetOrCreate(ctx context.Context, tenantID int64) (TenantStore, error)
	ListKnownTenants(ctx context.Context) ([]int64, error)
}

// Settings is the global key-value store. Get returns repo.ErrNotFound for
// absent keys.
type Settings interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// FactoryProvider adapts *repo.Factory to TenantProvider. This keeps services
// decoupled from the concrete repo type while reusing it as is.
type FactoryProvider struct {
	Factory *repo.Factory
}

// GetOrCreate proxies repo.Factory.GetOrCreate.
func (p FactoryProvider) GetOrCreate(ctx context.Context, tenantID int64) (TenantStore, error) {
	s, err := p.Factory.GetOrCreate(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ListKnownTenants proxies repo.Factory.ListKnownTenants.
func (p FactoryProvider) ListKnownTenants(ctx context.Context) ([]int64, error) {
	return p.Factory.ListKnownTenants(ctx)
}
