package relay

import (
	"context"
	"errors"
	"fmt"

	"github.com/mymmrac/telego"

	"github.com/relayforge/topicrelay/pkg/logger"
	"github.com/relayforge/topicrelay/pkg/store"
	"github.com/relayforge/topicrelay/pkg/transport"
)

// Telegram caps forum topic names.
const topicTitleMaxRunes = 128

// topicIconEmojiID matches the icon the original operator groups use.
const topicIconEmojiID = "5417915203100613993"

// ErrNoGroup is returned when the tenant has no bound operator group,
// so no thread can exist yet.
var ErrNoGroup = errors.New("tenant has no bound group")

// Binder maps an end-user to a discussion thread inside the tenant
// group, creating the topic lazily.
//
// Creation is intentionally not serialized: two concurrent first
// contacts for one user may both create a topic, and the ledger keeps
// the later binding (last write wins).
type Binder struct {
	ledger *store.UserLedger
}

func NewBinder(ledger *store.UserLedger) *Binder {
	return &Binder{ledger: ledger}
}

// Resolve returns the user's thread id, creating the topic on first
// use. An existing binding is returned optimistically without a remote
// check; a stale binding surfaces later as thread-not-found and goes
// through Create again.
func (b *Binder) Resolve(ctx context.Context, api transport.API, tenant store.Tenant, user *store.User) (int, error) {
	if user.ThreadID != 0 {
		return user.ThreadID, nil
	}
	return b.Create(ctx, api, tenant, user)
}

// Create mints a fresh topic titled with the user's display name,
// persists the binding and updates user in place.
func (b *Binder) Create(ctx context.Context, api transport.API, tenant store.Tenant, user *store.User) (int, error) {
	if tenant.GroupID == 0 {
		return 0, ErrNoGroup
	}

	topic, err := api.CreateForumTopic(ctx, &telego.CreateForumTopicParams{
		ChatID:            transport.ChatID(tenant.GroupID),
		Name:              truncateTitle(user.FullName),
		IconCustomEmojiID: topicIconEmojiID,
	})
	if err != nil {
		return 0, fmt.Errorf("create forum topic: %w", err)
	}

	if err := b.ledger.SetThread(ctx, tenant.ID, user.ID, topic.MessageThreadID); err != nil {
		// The topic exists remotely but the binding was lost; the next
		// contact will create another topic and rebind.
		logger.ErrorCF("binder", "Failed to persist thread binding", map[string]any{
			"tenant_id": tenant.ID,
			"user_id":   user.ID,
			"thread_id": topic.MessageThreadID,
			"error":     err.Error(),
		})
		return 0, err
	}

	user.ThreadID = topic.MessageThreadID
	logger.InfoCF("binder", "Created topic", map[string]any{
		"tenant_id": tenant.ID,
		"user_id":   user.ID,
		"thread_id": topic.MessageThreadID,
	})
	return topic.MessageThreadID, nil
}

func truncateTitle(name string) string {
	if name == "" {
		return "Feedback"
	}
	runes := []rune(name)
	if len(runes) <= topicTitleMaxRunes {
		return name
	}
	return string(runes[:topicTitleMaxRunes])
}
