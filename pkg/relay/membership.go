package relay

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"

	"github.com/relayforge/topicrelay/pkg/texts"
	"github.com/relayforge/topicrelay/pkg/transport"
)

// HandlePrivateMembership reacts to the tenant bot's membership change
// in a user's private chat: the ledger records the new state and a
// started/stopped notice lands in the user's thread. A stale thread
// binding is recovered once, same as the relay path.
func (p *Pipeline) HandlePrivateMembership(ctx context.Context, ev *Event, upd *telego.ChatMemberUpdated) error {
	user := ev.User
	status := upd.NewChatMember.MemberStatus()

	if err := p.ledger.SetState(ctx, ev.Tenant.ID, user.ID, status); err != nil {
		return err
	}
	user.State = status

	code := texts.UserStoppedBot
	if status == telego.MemberStatusMember {
		code = texts.UserStartedBot
	}
	text := fmt.Sprintf(p.texts.Get(ctx, code, ev.Lang), mention(user.ID, user.FullName))

	threadID, err := p.binder.Resolve(ctx, ev.API, ev.Tenant, user)
	if err != nil {
		return err
	}

	err = p.sendNotice(ctx, ev, threadID, text)
	if transport.IsThreadNotFound(err) {
		threadID, err = p.binder.Create(ctx, ev.API, ev.Tenant, user)
		if err == nil {
			err = p.sendNotice(ctx, ev, threadID, text)
		}
	}
	return err
}

// AnnounceUser posts the one-time started notice into a freshly
// created topic so operators see who the thread belongs to.
func (p *Pipeline) AnnounceUser(ctx context.Context, ev *Event) error {
	if ev.User.ThreadID == 0 {
		return nil
	}
	text := fmt.Sprintf(
		p.texts.Get(ctx, texts.UserStartedBot, ev.Lang),
		mention(ev.User.ID, ev.User.FullName),
	)
	return p.sendNotice(ctx, ev, ev.User.ThreadID, text)
}

func (p *Pipeline) sendNotice(ctx context.Context, ev *Event, threadID int, text string) error {
	_, err := ev.API.SendMessage(ctx, &telego.SendMessageParams{
		ChatID:          transport.ChatID(ev.Tenant.GroupID),
		MessageThreadID: threadID,
		Text:            text,
		ParseMode:       telego.ModeHTML,
	})
	return err
}
