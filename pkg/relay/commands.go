package relay

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/mymmrac/telego"

	"github.com/relayforge/topicrelay/pkg/logger"
	"github.com/relayforge/topicrelay/pkg/texts"
	"github.com/relayforge/topicrelay/pkg/transport"
)

// parseCommand extracts the command name from a message text like
// "/ban" or "/ban@tenantbot", or returns "" for ordinary text.
func parseCommand(text string) string {
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	cmd := strings.Fields(text)[0][1:]
	if at := strings.Index(cmd, "@"); at >= 0 {
		cmd = cmd[:at]
	}
	return cmd
}

// HandleCommand executes an operator command inside a user's thread.
// Commands mutate the ledger and reply in the thread; they never touch
// the private side, so they work regardless of ban or silence state.
func (p *Pipeline) HandleCommand(ctx context.Context, ev *Event, cmd string, msg *telego.Message) error {
	switch cmd {
	case "ban":
		return p.setBan(ctx, ev, msg, true)
	case "unban":
		return p.setBan(ctx, ev, msg, false)
	case "silence":
		return p.toggleSilence(ctx, ev, msg)
	case "info":
		return p.replyInfo(ctx, ev, msg)
	default:
		return nil
	}
}

func (p *Pipeline) setBan(ctx context.Context, ev *Event, msg *telego.Message, banned bool) error {
	if err := p.ledger.SetBanned(ctx, ev.Tenant.ID, ev.User.ID, banned); err != nil {
		return err
	}
	ev.User.IsBanned = banned

	code := texts.UserUnblocked
	if banned {
		code = texts.UserBlocked
	}
	return p.replyInThread(ctx, ev, msg, p.texts.Get(ctx, code, ev.Lang))
}

// toggleSilence flips silent mode. While active the status message is
// pinned in the thread as a visible marker; disabling unpins it.
func (p *Pipeline) toggleSilence(ctx context.Context, ev *Event, msg *telego.Message) error {
	user := ev.User

	if user.IsSilenced {
		if user.SilenceMsgID != 0 {
			err := ev.API.UnpinChatMessage(ctx, &telego.UnpinChatMessageParams{
				ChatID:    transport.ChatID(ev.Tenant.GroupID),
				MessageID: user.SilenceMsgID,
			})
			if err != nil {
				logger.DebugCF("commands", "Unpin failed", map[string]any{
					"tenant_id": ev.Tenant.ID,
					"error":     err.Error(),
				})
			}
		}
		if err := p.ledger.SetSilence(ctx, ev.Tenant.ID, user.ID, false, 0); err != nil {
			return err
		}
		user.IsSilenced = false
		user.SilenceMsgID = 0
		return p.replyInThread(ctx, ev, msg, p.texts.Get(ctx, texts.SilentModeDisabled, ev.Lang))
	}

	reply, err := p.sendInThread(ctx, ev, msg, p.texts.Get(ctx, texts.SilentModeEnabled, ev.Lang))
	if err != nil {
		return err
	}
	err = ev.API.PinChatMessage(ctx, &telego.PinChatMessageParams{
		ChatID:              transport.ChatID(ev.Tenant.GroupID),
		MessageID:           reply.MessageID,
		DisableNotification: true,
	})
	if err != nil {
		logger.DebugCF("commands", "Pin failed", map[string]any{
			"tenant_id": ev.Tenant.ID,
			"error":     err.Error(),
		})
	}
	if err := p.ledger.SetSilence(ctx, ev.Tenant.ID, user.ID, true, reply.MessageID); err != nil {
		return err
	}
	user.IsSilenced = true
	user.SilenceMsgID = reply.MessageID
	return nil
}

func (p *Pipeline) replyInfo(ctx context.Context, ev *Event, msg *telego.Message) error {
	user := ev.User

	username := "-"
	if user.Username != "" {
		username = "@" + user.Username
	}
	banned := "No"
	if user.IsBanned {
		banned = "Yes"
	}

	text := fmt.Sprintf(
		"<b>ID:</b>\n- <code>%d</code>\n"+
			"<b>Name:</b>\n- %s\n"+
			"<b>Status:</b>\n- %s\n"+
			"<b>Username:</b>\n- %s\n"+
			"<b>Blocked:</b>\n- %s\n"+
			"<b>Registration date:</b>\n- %s",
		user.ID,
		html.EscapeString(user.FullName),
		user.State,
		username,
		banned,
		user.CreatedAt.Format("2006-01-02 15:04"),
	)
	return p.replyInThread(ctx, ev, msg, text)
}

// replyInThread posts a persistent status reply; command replies are
// not scheduled for deletion.
func (p *Pipeline) replyInThread(ctx context.Context, ev *Event, msg *telego.Message, text string) error {
	_, err := p.sendInThread(ctx, ev, msg, text)
	return err
}

func (p *Pipeline) sendInThread(ctx context.Context, ev *Event, msg *telego.Message, text string) (*telego.Message, error) {
	params := &telego.SendMessageParams{
		ChatID:          transport.ChatID(ev.Tenant.GroupID),
		MessageThreadID: ev.User.ThreadID,
		Text:            text,
		ParseMode:       telego.ModeHTML,
	}
	if msg != nil {
		params.ReplyParameters = &telego.ReplyParameters{MessageID: msg.MessageID}
	}
	return ev.API.SendMessage(ctx, params)
}
