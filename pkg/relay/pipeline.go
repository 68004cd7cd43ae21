package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/mymmrac/telego"

	"github.com/relayforge/topicrelay/pkg/logger"
	"github.com/relayforge/topicrelay/pkg/store"
	"github.com/relayforge/topicrelay/pkg/texts"
	"github.com/relayforge/topicrelay/pkg/transport"
)

// Pipeline performs one relay pass per event. It is state-free: all
// durable state lives in the ledger, all transient state in the event.
type Pipeline struct {
	ledger *store.UserLedger
	binder *Binder
	texts  Texts
	ackTTL time.Duration
}

func NewPipeline(ledger *store.UserLedger, binder *Binder, txts Texts, ackTTL time.Duration) *Pipeline {
	return &Pipeline{
		ledger: ledger,
		binder: binder,
		texts:  txts,
		ackTTL: ackTTL,
	}
}

// RelayUserToGroup copies a private message or album into the user's
// thread. Banned and silenced users are dropped silently. A stale
// thread binding triggers exactly one recreate-and-retry; a second
// failure is a hard relay failure reported into the group.
func (p *Pipeline) RelayUserToGroup(ctx context.Context, ev *Event) error {
	user := ev.User
	if user.IsBanned || user.IsSilenced {
		return nil
	}

	threadID, err := p.binder.Resolve(ctx, ev.API, ev.Tenant, user)
	if err != nil {
		logger.WarnCF("pipeline", "Cannot resolve thread", map[string]any{
			"tenant_id":  ev.Tenant.ID,
			"user_id":    user.ID,
			"request_id": ev.RequestID,
			"error":      err.Error(),
		})
		return err
	}

	err = p.copyToThread(ctx, ev, threadID)
	if transport.IsThreadNotFound(err) {
		threadID, err = p.binder.Create(ctx, ev.API, ev.Tenant, user)
		if err == nil {
			err = p.copyToThread(ctx, ev, threadID)
		}
	}

	if err != nil {
		code := texts.MessageNotSent
		if transport.IsBlockedByUser(err) {
			code = texts.BlockedByUser
		}
		p.ack(ctx, ev.API, ev.Tenant.GroupID, threadID, 0, p.texts.Get(ctx, code, ev.Lang))
		return fmt.Errorf("relay to thread %d: %w", threadID, err)
	}

	last := ev.Messages[len(ev.Messages)-1]
	p.ack(ctx, ev.API, last.Chat.ID, 0, last.MessageID, p.texts.Get(ctx, texts.MessageSent, ev.Lang))
	return nil
}

// RelayGroupToUser copies a thread reply to the user's private chat.
// Failures never propagate to the operator beyond a status line in the
// thread.
func (p *Pipeline) RelayGroupToUser(ctx context.Context, ev *Event) error {
	user := ev.User

	code := texts.MessageSentToUser
	if err := p.copyToUser(ctx, ev); err != nil {
		switch {
		case transport.IsBlockedByUser(err):
			code = texts.BlockedByUser
		default:
			code = texts.MessageNotSent
		}
		logger.DebugCF("pipeline", "Group relay failed", map[string]any{
			"tenant_id":  ev.Tenant.ID,
			"user_id":    user.ID,
			"request_id": ev.RequestID,
			"error":      err.Error(),
		})
	}

	last := ev.Messages[len(ev.Messages)-1]
	p.ack(ctx, ev.API, ev.Tenant.GroupID, user.ThreadID, last.MessageID, p.texts.Get(ctx, code, ev.Lang))
	return nil
}

// HandleStart answers the /start command with the welcome text.
func (p *Pipeline) HandleStart(ctx context.Context, ev *Event, msg *telego.Message) error {
	text := fmt.Sprintf(p.texts.Get(ctx, texts.WelcomeMessage, ev.Lang), displayName(msg.From))
	_, err := ev.API.SendMessage(ctx, &telego.SendMessageParams{
		ChatID:    transport.ChatID(msg.Chat.ID),
		Text:      text,
		ParseMode: telego.ModeHTML,
	})
	return err
}

// NotifyEdited reminds the user that edits are not relayed. The notice
// is cosmetic: it is deleted after the ack delay and failures are
// ignored.
func (p *Pipeline) NotifyEdited(ctx context.Context, ev *Event, msg *telego.Message) {
	p.ack(ctx, ev.API, msg.Chat.ID, 0, msg.MessageID, p.texts.Get(ctx, texts.MessageEdited, ev.Lang))
}

// DropThreadNotice deletes transport noise (pin and topic service
// messages) from the group instead of relaying it.
func (p *Pipeline) DropThreadNotice(ctx context.Context, api transport.API, chatID int64, messageID int) {
	err := api.DeleteMessage(ctx, &telego.DeleteMessageParams{
		ChatID:    transport.ChatID(chatID),
		MessageID: messageID,
	})
	if err != nil {
		logger.DebugCF("pipeline", "Failed to delete service message", map[string]any{
			"chat_id":    chatID,
			"message_id": messageID,
			"error":      err.Error(),
		})
	}
}

func (p *Pipeline) copyToThread(ctx context.Context, ev *Event, threadID int) error {
	from := transport.ChatID(ev.Messages[0].Chat.ID)
	to := transport.ChatID(ev.Tenant.GroupID)

	if len(ev.Messages) == 1 {
		_, err := ev.API.CopyMessage(ctx, &telego.CopyMessageParams{
			ChatID:          to,
			MessageThreadID: threadID,
			FromChatID:      from,
			MessageID:       ev.Messages[0].MessageID,
		})
		return err
	}

	_, err := ev.API.CopyMessages(ctx, &telego.CopyMessagesParams{
		ChatID:          to,
		MessageThreadID: threadID,
		FromChatID:      from,
		MessageIDs:      messageIDs(ev.Messages),
	})
	return err
}

func (p *Pipeline) copyToUser(ctx context.Context, ev *Event) error {
	from := transport.ChatID(ev.Tenant.GroupID)
	to := transport.ChatID(ev.User.ID)

	if len(ev.Messages) == 1 {
		_, err := ev.API.CopyMessage(ctx, &telego.CopyMessageParams{
			ChatID:     to,
			FromChatID: from,
			MessageID:  ev.Messages[0].MessageID,
		})
		return err
	}

	_, err := ev.API.CopyMessages(ctx, &telego.CopyMessagesParams{
		ChatID:     to,
		FromChatID: from,
		MessageIDs: messageIDs(ev.Messages),
	})
	return err
}

// ack posts a short-lived status line and schedules its deletion.
// Both steps are best-effort; failures are logged and discarded.
func (p *Pipeline) ack(ctx context.Context, api transport.API, chatID int64, threadID, replyTo int, text string) {
	if text == "" {
		return
	}
	params := &telego.SendMessageParams{
		ChatID:          transport.ChatID(chatID),
		MessageThreadID: threadID,
		Text:            text,
		ParseMode:       telego.ModeHTML,
	}
	if replyTo != 0 {
		params.ReplyParameters = &telego.ReplyParameters{MessageID: replyTo}
	}
	msg, err := api.SendMessage(ctx, params)
	if err != nil {
		logger.DebugCF("pipeline", "Ack failed", map[string]any{
			"chat_id": chatID,
			"error":   err.Error(),
		})
		return
	}
	p.scheduleDelete(api, chatID, msg.MessageID)
}

// scheduleDelete removes a status line after the ack delay. Detached
// timer, no result contract.
func (p *Pipeline) scheduleDelete(api transport.API, chatID int64, messageID int) {
	time.AfterFunc(p.ackTTL, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = api.DeleteMessage(ctx, &telego.DeleteMessageParams{
			ChatID:    transport.ChatID(chatID),
			MessageID: messageID,
		})
	})
}

func messageIDs(msgs []telego.Message) []int {
	ids := make([]int, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.MessageID)
	}
	return ids
}
