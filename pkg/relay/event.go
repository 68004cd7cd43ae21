// Package relay implements the multi-tenant relay engine: dispatching
// webhook updates to tenant context, aggregating album bursts, binding
// users to discussion threads, and copying messages in both directions.
package relay

import (
	"context"
	"fmt"
	"html"

	"github.com/mymmrac/telego"

	"github.com/relayforge/topicrelay/pkg/store"
	"github.com/relayforge/topicrelay/pkg/texts"
	"github.com/relayforge/topicrelay/pkg/transport"
)

// Direction tells which way an event flows.
type Direction int

const (
	// UserToGroup is a private message relayed into the user's thread.
	UserToGroup Direction = iota
	// GroupToUser is a thread reply relayed to the user's private chat.
	GroupToUser
)

// Event is one unit of relay work after aggregation: a single message
// or an ordered album batch, together with the resolved tenant and
// user context. Events are transient; they live for one pipeline pass.
type Event struct {
	Direction Direction
	Tenant    store.Tenant
	User      *store.User
	Messages  []telego.Message
	Lang      string
	API       transport.API
	RequestID string
}

// Texts resolves canned messages; implemented by the text store, and
// by the builtin table in tests.
type Texts interface {
	Get(ctx context.Context, code texts.Code, lang string) string
}

// BuiltinTexts serves the builtin table without a store overlay.
type BuiltinTexts struct{}

func (BuiltinTexts) Get(_ context.Context, code texts.Code, lang string) string {
	return texts.Lookup(code, lang)
}

// mention renders an HTML link to the user's profile.
func mention(id int64, name string) string {
	return fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, id, html.EscapeString(name))
}

// displayName joins the Telegram first and last name.
func displayName(u *telego.User) string {
	if u == nil {
		return ""
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
