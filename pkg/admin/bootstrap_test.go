package admin

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/mymmrac/telego"
	"github.com/mymmrac/telego/telegoapi"

	"github.com/relayforge/topicrelay/pkg/store"
	"github.com/relayforge/topicrelay/pkg/transport"
)

// stubAPI implements transport.API with just enough behavior for the
// bootstrap paths: webhook and command registration plus NotifyOwner's
// SendMessage.
type stubAPI struct {
	mu             sync.Mutex
	webhookURLs    []string
	deletes        int
	setCommands    int
	deleteCommands int
	sent           []string
	failWith       error
}

func (s *stubAPI) GetMe(context.Context) (*telego.User, error) { return &telego.User{ID: 1}, nil }

func (s *stubAPI) SendMessage(_ context.Context, p *telego.SendMessageParams) (*telego.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, p.Text)
	return &telego.Message{MessageID: 1, Text: p.Text}, nil
}

func (s *stubAPI) CopyMessage(context.Context, *telego.CopyMessageParams) (*telego.MessageID, error) {
	return nil, nil
}

func (s *stubAPI) CopyMessages(context.Context, *telego.CopyMessagesParams) ([]telego.MessageID, error) {
	return nil, nil
}

func (s *stubAPI) CreateForumTopic(context.Context, *telego.CreateForumTopicParams) (*telego.ForumTopic, error) {
	return nil, nil
}

func (s *stubAPI) DeleteMessage(context.Context, *telego.DeleteMessageParams) error    { return nil }
func (s *stubAPI) PinChatMessage(context.Context, *telego.PinChatMessageParams) error  { return nil }
func (s *stubAPI) UnpinChatMessage(context.Context, *telego.UnpinChatMessageParams) error {
	return nil
}

func (s *stubAPI) SetWebhook(_ context.Context, p *telego.SetWebhookParams) error {
	if s.failWith != nil {
		return s.failWith
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.webhookURLs = append(s.webhookURLs, p.URL)
	return nil
}

func (s *stubAPI) DeleteWebhook(context.Context, *telego.DeleteWebhookParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes++
	return nil
}

func (s *stubAPI) SetMyCommands(context.Context, *telego.SetMyCommandsParams) error {
	if s.failWith != nil {
		return s.failWith
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setCommands++
	return nil
}

func (s *stubAPI) DeleteMyCommands(context.Context, *telego.DeleteMyCommandsParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteCommands++
	return nil
}

func openDirectory(t *testing.T) *store.TenantDirectory {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "relay.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s.Tenants()
}

func TestBootstrapUpRegistersWebhooks(t *testing.T) {
	ctx := context.Background()
	dir := openDirectory(t)

	for _, tenant := range []store.Tenant{
		{ID: 1, OwnerID: 10, Token: "1:AA", IsActive: true},
		{ID: 2, OwnerID: 10, Token: "2:BB", IsActive: true},
	} {
		if err := dir.Put(ctx, tenant); err != nil {
			t.Fatalf("put tenant: %v", err)
		}
	}

	adminAPI := &stubAPI{}
	apis := map[string]*stubAPI{"1:AA": {}, "2:BB": {}}
	factory := func(token string) (transport.API, error) { return apis[token], nil }

	b := NewBootstrap(dir, factory, adminAPI, "9:ADMIN", "https://relay.example.com")
	if err := b.Up(ctx); err != nil {
		t.Fatalf("up: %v", err)
	}

	if len(adminAPI.webhookURLs) != 1 || adminAPI.webhookURLs[0] != "https://relay.example.com/webhook/admin/9:ADMIN" {
		t.Fatalf("admin webhook urls: %v", adminAPI.webhookURLs)
	}
	// The admin menu is private-chat only, in both languages.
	if adminAPI.setCommands != 2 {
		t.Fatalf("admin SetMyCommands calls = %d, want 2", adminAPI.setCommands)
	}
	for token, api := range apis {
		want := "https://relay.example.com/webhook/bot/" + token
		if len(api.webhookURLs) != 1 || api.webhookURLs[0] != want {
			t.Fatalf("tenant %s webhook urls: %v", token, api.webhookURLs)
		}
		// Private and group scopes, in both languages.
		if api.setCommands != 4 {
			t.Fatalf("tenant %s SetMyCommands calls = %d, want 4", token, api.setCommands)
		}
	}
}

func TestBootstrapUpDeactivatesRevokedTenant(t *testing.T) {
	ctx := context.Background()
	dir := openDirectory(t)

	for _, tenant := range []store.Tenant{
		{ID: 1, OwnerID: 10, Token: "1:AA", IsActive: true},
		{ID: 2, OwnerID: 10, Token: "2:BB", IsActive: true},
	} {
		if err := dir.Put(ctx, tenant); err != nil {
			t.Fatalf("put tenant: %v", err)
		}
	}

	revoked := &stubAPI{failWith: &telegoapi.Error{ErrorCode: 401, Description: "Unauthorized"}}
	healthy := &stubAPI{}
	factory := func(token string) (transport.API, error) {
		if token == "1:AA" {
			return revoked, nil
		}
		return healthy, nil
	}

	b := NewBootstrap(dir, factory, &stubAPI{}, "9:ADMIN", "https://relay.example.com")
	if err := b.Up(ctx); err != nil {
		t.Fatalf("up: %v", err)
	}

	tenant, err := dir.Get(ctx, 1)
	if err != nil {
		t.Fatalf("get tenant: %v", err)
	}
	if tenant.IsActive {
		t.Fatal("revoked tenant should be deactivated")
	}
	if len(healthy.webhookURLs) != 1 {
		t.Fatal("healthy tenant should still be registered")
	}
}

func TestBootstrapDownRemovesWebhooks(t *testing.T) {
	ctx := context.Background()
	dir := openDirectory(t)
	if err := dir.Put(ctx, store.Tenant{ID: 1, OwnerID: 10, Token: "1:AA", IsActive: true}); err != nil {
		t.Fatalf("put tenant: %v", err)
	}

	adminAPI := &stubAPI{}
	tenantAPI := &stubAPI{}
	factory := func(string) (transport.API, error) { return tenantAPI, nil }

	b := NewBootstrap(dir, factory, adminAPI, "9:ADMIN", "https://relay.example.com")
	b.Down(ctx)

	if tenantAPI.deletes != 1 {
		t.Fatalf("tenant webhook deletes = %d, want 1", tenantAPI.deletes)
	}
	if adminAPI.deletes != 1 {
		t.Fatalf("admin webhook deletes = %d, want 1", adminAPI.deletes)
	}
	// Command menus go away with the webhooks: both scopes in both
	// languages for the tenant, private-chat scope for the admin bot.
	if tenantAPI.deleteCommands != 4 {
		t.Fatalf("tenant DeleteMyCommands calls = %d, want 4", tenantAPI.deleteCommands)
	}
	if adminAPI.deleteCommands != 2 {
		t.Fatalf("admin DeleteMyCommands calls = %d, want 2", adminAPI.deleteCommands)
	}
}

func TestNotifierSendsToOwner(t *testing.T) {
	api := &stubAPI{}
	n := NewNotifier(api)
	if err := n.NotifyOwner(context.Background(), 42, "connected"); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(api.sent) != 1 || api.sent[0] != "connected" {
		t.Fatalf("sent: %v", api.sent)
	}
}
