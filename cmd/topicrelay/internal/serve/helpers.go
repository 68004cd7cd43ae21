package serve

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/relayforge/topicrelay/cmd/topicrelay/internal"
	"github.com/relayforge/topicrelay/pkg/admin"
	"github.com/relayforge/topicrelay/pkg/logger"
	"github.com/relayforge/topicrelay/pkg/queue"
	"github.com/relayforge/topicrelay/pkg/relay"
	"github.com/relayforge/topicrelay/pkg/store"
	"github.com/relayforge/topicrelay/pkg/transport"
	"github.com/relayforge/topicrelay/pkg/webhook"
)

func serveCmd(debug bool) error {
	if debug {
		logger.SetLevel(logger.DEBUG)
		fmt.Println("Debug mode enabled")
	}

	cfg, err := internal.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if cfg.Admin.Token == "" {
		return errors.New("admin token is not configured")
	}
	if cfg.Webhook.Domain == "" {
		return errors.New("webhook domain is not configured")
	}

	db, err := store.Open(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("error opening store: %w", err)
	}
	fmt.Printf("✓ Store opened at %s\n", cfg.Storage.Path)

	adminAPI, err := transport.Telego(cfg.Admin.Token)
	if err != nil {
		db.Close()
		return fmt.Errorf("error creating admin transport: %w", err)
	}

	binder := relay.NewBinder(db.Users())
	pipeline := relay.NewPipeline(
		db.Users(),
		binder,
		db.Texts(),
		time.Duration(cfg.Relay.AckDeleteSeconds)*time.Second,
	)

	dispatcher := relay.NewDispatcher(relay.DispatcherConfig{
		Directory:      db.Tenants(),
		Ledger:         db.Users(),
		Pipeline:       pipeline,
		Binder:         binder,
		Factory:        transport.Telego,
		Notifier:       admin.NewNotifier(adminAPI),
		CacheTTL:       time.Duration(cfg.Relay.TenantCacheTTLSeconds) * time.Second,
		DebounceWindow: time.Duration(cfg.Relay.DebounceWindowMS) * time.Millisecond,
		SlidingWindow:  cfg.Relay.SlidingWindow,
	})

	updates := queue.New(cfg.Relay.QueueSize)
	server := webhook.NewServer(cfg.App.Host, cfg.App.Port, cfg.Admin.Token, updates)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bootstrap := admin.NewBootstrap(
		db.Tenants(),
		transport.Telego,
		adminAPI,
		cfg.Admin.Token,
		cfg.Webhook.Domain,
	)
	if err := bootstrap.Up(ctx); err != nil {
		db.Close()
		return fmt.Errorf("error registering webhooks: %w", err)
	}
	fmt.Println("✓ Webhooks registered")

	go dispatcher.Run(ctx, updates)
	go func() {
		if err := server.Start(); err != nil {
			logger.ErrorCF("serve", "Webhook server error", map[string]any{"error": err.Error()})
		}
	}()
	fmt.Printf("✓ Webhook server started on %s:%d\n", cfg.App.Host, cfg.App.Port)
	fmt.Println("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	<-sigChan

	fmt.Println("\nShutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	bootstrap.Down(shutdownCtx)
	if err := server.Stop(shutdownCtx); err != nil {
		logger.WarnCF("serve", "Webhook server shutdown error", map[string]any{"error": err.Error()})
	}
	updates.Close()
	cancel()
	dispatcher.Stop()
	if err := db.Close(); err != nil {
		logger.WarnCF("serve", "Store close error", map[string]any{"error": err.Error()})
	}
	fmt.Println("✓ Stopped")

	return nil
}
