// Package admin holds the admin-bot side of the platform: owner
// notifications and webhook lifecycle for the whole tenant fleet.
package admin

import (
	"context"

	"github.com/mymmrac/telego"

	"github.com/relayforge/topicrelay/pkg/transport"
)

// Notifier sends service notices to tenant owners through the admin
// bot's own credential.
type Notifier struct {
	api transport.API
}

func NewNotifier(api transport.API) *Notifier {
	return &Notifier{api: api}
}

func (n *Notifier) NotifyOwner(ctx context.Context, ownerID int64, text string) error {
	_, err := n.api.SendMessage(ctx, &telego.SendMessageParams{
		ChatID:    transport.ChatID(ownerID),
		Text:      text,
		ParseMode: telego.ModeHTML,
	})
	return err
}
