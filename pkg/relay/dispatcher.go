package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mymmrac/telego"

	"github.com/relayforge/topicrelay/pkg/logger"
	"github.com/relayforge/topicrelay/pkg/queue"
	"github.com/relayforge/topicrelay/pkg/store"
	"github.com/relayforge/topicrelay/pkg/transport"
)

// editedCoalesce suppresses repeated edited-message notices from the
// same user within this interval.
const editedCoalesce = 5 * time.Second

// OwnerNotifier delivers connect/disconnect notices to a tenant owner
// through the admin bot.
type OwnerNotifier interface {
	NotifyOwner(ctx context.Context, ownerID int64, text string) error
}

// DispatcherConfig wires the dispatcher's collaborators.
type DispatcherConfig struct {
	Directory *store.TenantDirectory
	Ledger    *store.UserLedger
	Pipeline  *Pipeline
	Binder    *Binder
	Factory   transport.Factory
	Notifier  OwnerNotifier
	CacheTTL  time.Duration

	DebounceWindow time.Duration
	SlidingWindow  bool
}

// Dispatcher is the entry point for webhook updates: it resolves the
// tenant behind the credential, attaches user context and hands the
// event to the aggregation gate and relay pipeline. Failures are
// tenant-scoped; one tenant's trouble never touches another's traffic.
type Dispatcher struct {
	dir      *store.TenantDirectory
	ledger   *store.UserLedger
	pipeline *Pipeline
	binder   *Binder
	gate     *Gate
	factory  transport.Factory
	notifier OwnerNotifier
	cacheTTL time.Duration

	mu    sync.Mutex
	cache map[string]*tenantEntry

	now func() time.Time
}

type tenantEntry struct {
	tenant  store.Tenant
	api     transport.API
	expires time.Time
}

func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	d := &Dispatcher{
		dir:      cfg.Directory,
		ledger:   cfg.Ledger,
		pipeline: cfg.Pipeline,
		binder:   cfg.Binder,
		factory:  cfg.Factory,
		notifier: cfg.Notifier,
		cacheTTL: cfg.CacheTTL,
		cache:    make(map[string]*tenantEntry),
		now:      time.Now,
	}
	d.gate = NewGate(cfg.DebounceWindow, cfg.SlidingWindow, d.deliver)
	return d
}

// Run consumes the update queue until ctx is cancelled. Each envelope
// is processed on its own goroutine so slow tenants do not block
// others.
func (d *Dispatcher) Run(ctx context.Context, q *queue.Queue) {
	for {
		env, ok := q.Consume(ctx)
		if !ok {
			return
		}
		go d.HandleEnvelope(ctx, env)
	}
}

// Stop cancels pending aggregation windows.
func (d *Dispatcher) Stop() {
	d.gate.Stop()
}

// HandleEnvelope processes one webhook delivery end to end.
func (d *Dispatcher) HandleEnvelope(ctx context.Context, env queue.Envelope) {
	if env.Admin {
		// The admin menu is driven by an external workflow; the relay
		// core only acknowledges its traffic.
		logger.DebugCF("dispatcher", "Admin update ignored by relay core", map[string]any{
			"request_id": env.RequestID,
		})
		return
	}

	entry := d.resolveTenant(ctx, env.Token, env.RequestID)
	if entry == nil {
		return
	}
	d.dispatch(ctx, entry, env)
}

// resolveTenant maps a webhook credential to its tenant record: first
// through the short-lived cache, then by asking the transport for the
// credential's own identity and looking the directory up by it.
// Unknown, revoked and inactive tenants are dropped silently; a race
// with deactivation is expected, not an error.
func (d *Dispatcher) resolveTenant(ctx context.Context, token, requestID string) *tenantEntry {
	d.mu.Lock()
	if e, ok := d.cache[token]; ok && d.now().Before(e.expires) {
		entry := *e
		d.mu.Unlock()
		if !entry.tenant.IsActive {
			return nil
		}
		return &entry
	}
	d.mu.Unlock()

	api, err := d.factory(token)
	if err != nil {
		logger.DebugCF("dispatcher", "Credential rejected", map[string]any{
			"request_id": requestID,
			"error":      err.Error(),
		})
		return nil
	}

	me, err := api.GetMe(ctx)
	if err != nil {
		// Revoked between directory read and call; swallow.
		logger.DebugCF("dispatcher", "Identity lookup failed", map[string]any{
			"request_id":   requestID,
			"unauthorized": transport.IsUnauthorized(err),
			"error":        err.Error(),
		})
		return nil
	}

	tenant, err := d.dir.Get(ctx, me.ID)
	if errors.Is(err, store.ErrNotFound) {
		logger.DebugCF("dispatcher", "Unknown tenant", map[string]any{
			"request_id": requestID,
			"tenant_id":  me.ID,
		})
		return nil
	}
	if err != nil {
		logger.ErrorCF("dispatcher", "Directory lookup failed", map[string]any{
			"request_id": requestID,
			"tenant_id":  me.ID,
			"error":      err.Error(),
		})
		return nil
	}
	if !tenant.IsActive {
		logger.DebugCF("dispatcher", "Inactive tenant", map[string]any{
			"request_id": requestID,
			"tenant_id":  tenant.ID,
		})
		return nil
	}

	entry := &tenantEntry{tenant: *tenant, api: api, expires: d.now().Add(d.cacheTTL)}
	d.mu.Lock()
	d.cache[token] = entry
	d.mu.Unlock()

	copied := *entry
	return &copied
}

// invalidate drops every cached resolution of the given tenant so the
// next call re-reads the directory.
func (d *Dispatcher) invalidate(tenantID int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for token, e := range d.cache {
		if e.tenant.ID == tenantID {
			delete(d.cache, token)
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, entry *tenantEntry, env queue.Envelope) {
	upd := env.Update
	switch {
	case upd.Message != nil:
		d.handleMessage(ctx, entry, upd.Message, env.RequestID)
	case upd.EditedMessage != nil:
		d.handleEdited(ctx, entry, upd.EditedMessage, env.RequestID)
	case upd.MyChatMember != nil:
		d.handleMembership(ctx, entry, upd.MyChatMember, env.RequestID)
	}
}

func (d *Dispatcher) handleMessage(ctx context.Context, entry *tenantEntry, msg *telego.Message, requestID string) {
	switch msg.Chat.Type {
	case telego.ChatTypePrivate:
		d.handlePrivateMessage(ctx, entry, msg, requestID)
	case telego.ChatTypeGroup, telego.ChatTypeSupergroup:
		if msg.Chat.ID == entry.tenant.GroupID {
			d.handleGroupMessage(ctx, entry, msg, requestID)
		}
	}
}

func (d *Dispatcher) handlePrivateMessage(ctx context.Context, entry *tenantEntry, msg *telego.Message, requestID string) {
	if msg.From == nil {
		return
	}
	ev, err := d.privateEvent(ctx, entry, msg.From, requestID)
	if err != nil {
		logger.ErrorCF("dispatcher", "Ledger unavailable, dropping event", map[string]any{
			"request_id": requestID,
			"tenant_id":  entry.tenant.ID,
			"error":      err.Error(),
		})
		return
	}

	if parseCommand(msg.Text) == "start" {
		if err := d.pipeline.HandleStart(ctx, ev, msg); err != nil {
			logger.DebugCF("dispatcher", "Start reply failed", map[string]any{
				"request_id": requestID,
				"error":      err.Error(),
			})
		}
		return
	}

	ev.Direction = UserToGroup
	ev.Messages = []telego.Message{*msg}

	key := ""
	if msg.MediaGroupID != "" {
		key = fmt.Sprintf("u:%d:%d:%s", entry.tenant.ID, msg.From.ID, msg.MediaGroupID)
	}
	d.gate.Admit(key, ev)
}

func (d *Dispatcher) handleGroupMessage(ctx context.Context, entry *tenantEntry, msg *telego.Message, requestID string) {
	threadID := msg.MessageThreadID
	if threadID == 0 {
		return
	}

	if msg.PinnedMessage != nil || msg.ForumTopicEdited != nil ||
		msg.ForumTopicClosed != nil || msg.ForumTopicReopened != nil {
		d.pipeline.DropThreadNotice(ctx, entry.api, msg.Chat.ID, msg.MessageID)
		return
	}

	user, err := d.ledger.GetByThread(ctx, entry.tenant.ID, threadID)
	if errors.Is(err, store.ErrNotFound) {
		// A topic that belongs to no relayed user; leave it alone.
		return
	}
	if err != nil {
		logger.ErrorCF("dispatcher", "Ledger unavailable, dropping event", map[string]any{
			"request_id": requestID,
			"tenant_id":  entry.tenant.ID,
			"error":      err.Error(),
		})
		return
	}
	if msg.From == nil || msg.From.IsBot {
		return
	}

	ev := &Event{
		Direction: GroupToUser,
		Tenant:    entry.tenant,
		User:      user,
		Lang:      msg.From.LanguageCode,
		API:       entry.api,
		RequestID: requestID,
		Messages:  []telego.Message{*msg},
	}

	if cmd := parseCommand(msg.Text); cmd != "" {
		if err := d.pipeline.HandleCommand(ctx, ev, cmd, msg); err != nil {
			logger.ErrorCF("dispatcher", "Command failed", map[string]any{
				"request_id": requestID,
				"tenant_id":  entry.tenant.ID,
				"command":    cmd,
				"error":      err.Error(),
			})
		}
		return
	}

	key := ""
	if msg.MediaGroupID != "" {
		key = fmt.Sprintf("g:%d:%d:%s", entry.tenant.ID, threadID, msg.MediaGroupID)
	}
	d.gate.Admit(key, ev)
}

func (d *Dispatcher) handleEdited(ctx context.Context, entry *tenantEntry, msg *telego.Message, requestID string) {
	if msg.Chat.Type != telego.ChatTypePrivate || msg.From == nil {
		return
	}
	ev, err := d.privateEvent(ctx, entry, msg.From, requestID)
	if err != nil {
		return
	}
	key := fmt.Sprintf("edited:%d:%d", entry.tenant.ID, msg.From.ID)
	if !d.gate.Allow(key, editedCoalesce) {
		return
	}
	d.pipeline.NotifyEdited(ctx, ev, msg)
}

func (d *Dispatcher) handleMembership(ctx context.Context, entry *tenantEntry, upd *telego.ChatMemberUpdated, requestID string) {
	switch upd.Chat.Type {
	case telego.ChatTypePrivate:
		ev, err := d.privateEvent(ctx, entry, &upd.From, requestID)
		if err != nil {
			return
		}
		if err := d.pipeline.HandlePrivateMembership(ctx, ev, upd); err != nil {
			logger.DebugCF("dispatcher", "Membership notice failed", map[string]any{
				"request_id": requestID,
				"tenant_id":  entry.tenant.ID,
				"error":      err.Error(),
			})
		}
	case telego.ChatTypeGroup, telego.ChatTypeSupergroup:
		d.handleGroupMembership(ctx, entry, upd, requestID)
	}
}

// handleGroupMembership binds or unbinds the operator group when the
// tenant bot itself is added to or removed from it, and tells the
// owner through the admin bot.
func (d *Dispatcher) handleGroupMembership(ctx context.Context, entry *tenantEntry, upd *telego.ChatMemberUpdated, requestID string) {
	member := upd.NewChatMember.MemberUser()
	if !member.IsBot || member.ID != entry.tenant.ID {
		return
	}

	var text string
	switch upd.NewChatMember.MemberStatus() {
	case telego.MemberStatusMember, telego.MemberStatusAdministrator:
		if err := d.dir.SetGroupID(ctx, entry.tenant.ID, upd.Chat.ID); err != nil {
			logger.ErrorCF("dispatcher", "Group bind failed", map[string]any{
				"request_id": requestID,
				"tenant_id":  entry.tenant.ID,
				"error":      err.Error(),
			})
			return
		}
		text = fmt.Sprintf("Bot @%s connected to group %q.", entry.tenant.Username, upd.Chat.Title)
	case telego.MemberStatusLeft, telego.MemberStatusBanned:
		if upd.Chat.ID != entry.tenant.GroupID {
			return
		}
		if err := d.dir.SetGroupID(ctx, entry.tenant.ID, 0); err != nil {
			logger.ErrorCF("dispatcher", "Group unbind failed", map[string]any{
				"request_id": requestID,
				"tenant_id":  entry.tenant.ID,
				"error":      err.Error(),
			})
			return
		}
		text = fmt.Sprintf("Bot @%s disconnected from group %q.", entry.tenant.Username, upd.Chat.Title)
	default:
		return
	}

	d.invalidate(entry.tenant.ID)

	if d.notifier != nil {
		if err := d.notifier.NotifyOwner(ctx, entry.tenant.OwnerID, text); err != nil {
			logger.DebugCF("dispatcher", "Owner notice failed", map[string]any{
				"request_id": requestID,
				"tenant_id":  entry.tenant.ID,
				"error":      err.Error(),
			})
		}
	}
}

// privateEvent builds the event context for a private-chat update,
// creating the ledger row on first contact. A user whose topic does
// not exist yet gets one, together with the started notice.
func (d *Dispatcher) privateEvent(ctx context.Context, entry *tenantEntry, from *telego.User, requestID string) (*Event, error) {
	user, err := d.ledger.CreateOrUpdate(
		ctx, entry.tenant.ID, from.ID,
		from.Username, displayName(from), from.LanguageCode,
	)
	if err != nil {
		return nil, err
	}

	ev := &Event{
		Tenant:    entry.tenant,
		User:      user,
		Lang:      from.LanguageCode,
		API:       entry.api,
		RequestID: requestID,
	}

	if user.ThreadID == 0 && entry.tenant.GroupID != 0 && !user.IsBanned {
		if _, err := d.binder.Create(ctx, entry.api, entry.tenant, user); err != nil {
			logger.WarnCF("dispatcher", "First-contact topic creation failed", map[string]any{
				"request_id": requestID,
				"tenant_id":  entry.tenant.ID,
				"user_id":    user.ID,
				"error":      err.Error(),
			})
		} else if err := d.pipeline.AnnounceUser(ctx, ev); err != nil {
			logger.DebugCF("dispatcher", "Started notice failed", map[string]any{
				"request_id": requestID,
				"tenant_id":  entry.tenant.ID,
				"error":      err.Error(),
			})
		}
	}
	return ev, nil
}

// deliver routes a flushed batch to the pipeline by direction.
func (d *Dispatcher) deliver(ev *Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var err error
	switch ev.Direction {
	case UserToGroup:
		err = d.pipeline.RelayUserToGroup(ctx, ev)
	case GroupToUser:
		err = d.pipeline.RelayGroupToUser(ctx, ev)
	}
	if err != nil {
		logger.WarnCF("dispatcher", "Relay failed", map[string]any{
			"request_id": ev.RequestID,
			"tenant_id":  ev.Tenant.ID,
			"user_id":    ev.User.ID,
			"error":      err.Error(),
		})
	}
}
