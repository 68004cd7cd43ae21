// Package transport wraps the Telegram Bot API surface the relay core
// consumes. Every call is keyed by a tenant credential: an API value is
// built from a token and passed explicitly through the call chain.
package transport

import (
	"context"

	"github.com/mymmrac/telego"
)

// API is the slice of the Bot API the relay uses. *telego.Bot
// implements it; tests substitute fakes.
type API interface {
	GetMe(ctx context.Context) (*telego.User, error)
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
	CopyMessage(ctx context.Context, params *telego.CopyMessageParams) (*telego.MessageID, error)
	CopyMessages(ctx context.Context, params *telego.CopyMessagesParams) ([]telego.MessageID, error)
	CreateForumTopic(ctx context.Context, params *telego.CreateForumTopicParams) (*telego.ForumTopic, error)
	DeleteMessage(ctx context.Context, params *telego.DeleteMessageParams) error
	PinChatMessage(ctx context.Context, params *telego.PinChatMessageParams) error
	UnpinChatMessage(ctx context.Context, params *telego.UnpinChatMessageParams) error
	SetWebhook(ctx context.Context, params *telego.SetWebhookParams) error
	DeleteWebhook(ctx context.Context, params *telego.DeleteWebhookParams) error
	SetMyCommands(ctx context.Context, params *telego.SetMyCommandsParams) error
	DeleteMyCommands(ctx context.Context, params *telego.DeleteMyCommandsParams) error
}

// Factory builds a short-lived API value from a tenant credential.
// Values must not be memoized beyond the tenant cache TTL, so a revoked
// credential cannot leak into later calls.
type Factory func(token string) (API, error)

// Telego is the production Factory backed by telego.
func Telego(token string) (API, error) {
	return telego.NewBot(token, telego.WithDiscardLogger())
}

// ChatID wraps a numeric chat id in the Bot API's chat reference.
func ChatID(id int64) telego.ChatID {
	return telego.ChatID{ID: id}
}
