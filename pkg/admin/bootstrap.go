package admin

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"

	"github.com/relayforge/topicrelay/pkg/logger"
	"github.com/relayforge/topicrelay/pkg/store"
	"github.com/relayforge/topicrelay/pkg/transport"
	"github.com/relayforge/topicrelay/pkg/webhook"
)

// Bootstrap registers webhooks on startup: the admin bot first, then
// every active tenant. A tenant whose credential was revoked since the
// last run is deactivated instead of failing startup.
type Bootstrap struct {
	dir        *store.TenantDirectory
	factory    transport.Factory
	adminAPI   transport.API
	adminToken string
	domain     string
}

func NewBootstrap(dir *store.TenantDirectory, factory transport.Factory, adminAPI transport.API, adminToken, domain string) *Bootstrap {
	return &Bootstrap{
		dir:        dir,
		factory:    factory,
		adminAPI:   adminAPI,
		adminToken: adminToken,
		domain:     domain,
	}
}

func (b *Bootstrap) Up(ctx context.Context) error {
	if err := transport.SetupAdminCommands(ctx, b.adminAPI); err != nil {
		return fmt.Errorf("admin commands: %w", err)
	}
	err := b.adminAPI.SetWebhook(ctx, &telego.SetWebhookParams{
		URL: b.domain + webhook.AdminPath(b.adminToken),
	})
	if err != nil {
		return fmt.Errorf("admin webhook: %w", err)
	}

	tenants, err := b.dir.AllActive(ctx)
	if err != nil {
		return fmt.Errorf("list tenants: %w", err)
	}

	for _, t := range tenants {
		if err := b.upTenant(ctx, t); err != nil {
			if !transport.IsUnauthorized(err) {
				return fmt.Errorf("tenant %d webhook: %w", t.ID, err)
			}
			logger.WarnCF("admin", "Tenant credential revoked, deactivating", map[string]any{
				"tenant_id": t.ID,
			})
			if err := b.dir.SetActive(ctx, t.ID, false); err != nil {
				return fmt.Errorf("deactivate tenant %d: %w", t.ID, err)
			}
		}
	}

	logger.InfoCF("admin", "Webhooks registered", map[string]any{"tenants": len(tenants)})
	return nil
}

func (b *Bootstrap) upTenant(ctx context.Context, t store.Tenant) error {
	api, err := b.factory(t.Token)
	if err != nil {
		return err
	}
	if err := transport.SetupCommands(ctx, api); err != nil {
		return err
	}
	return api.SetWebhook(ctx, &telego.SetWebhookParams{
		URL: b.domain + webhook.BotPath(t.Token),
	})
}

// Down removes every command menu and webhook so a stopped instance
// does not keep receiving deliveries. Best-effort per tenant.
func (b *Bootstrap) Down(ctx context.Context) {
	tenants, err := b.dir.AllActive(ctx)
	if err != nil {
		logger.ErrorCF("admin", "Cannot list tenants for teardown", map[string]any{
			"error": err.Error(),
		})
	}
	for _, t := range tenants {
		api, err := b.factory(t.Token)
		if err != nil {
			continue
		}
		if err := transport.DeleteCommands(ctx, api); err != nil {
			logger.DebugCF("admin", "Tenant command removal failed", map[string]any{
				"tenant_id": t.ID,
				"error":     err.Error(),
			})
		}
		if err := api.DeleteWebhook(ctx, &telego.DeleteWebhookParams{}); err != nil {
			logger.DebugCF("admin", "Tenant webhook removal failed", map[string]any{
				"tenant_id": t.ID,
				"error":     err.Error(),
			})
		}
	}

	if err := transport.DeleteAdminCommands(ctx, b.adminAPI); err != nil {
		logger.DebugCF("admin", "Admin command removal failed", map[string]any{
			"error": err.Error(),
		})
	}
	if err := b.adminAPI.DeleteWebhook(ctx, &telego.DeleteWebhookParams{}); err != nil {
		logger.DebugCF("admin", "Admin webhook removal failed", map[string]any{
			"error": err.Error(),
		})
	}
}
