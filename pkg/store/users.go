package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// User is one end-user of a tenant bot.
//
// ThreadID is the thread-binding: zero until a topic has been created
// for the user. The binding may go stale if the topic is deleted
// out-of-band; callers must treat "thread not found" as recoverable
// and rebind through the topic binder.
type User struct {
	TenantID     int64
	ID           int64
	Username     string
	FullName     string
	LanguageCode string
	State        string
	IsBanned     bool
	IsSilenced   bool
	SilenceMsgID int
	ThreadID     int
	CreatedAt    time.Time
}

// UserLedger is the durable per-tenant user store.
type UserLedger struct {
	sqlDB *sql.DB
}

const userColumns = "tenant_id, id, username, full_name, language_code, state, " +
	"is_banned, is_silenced, silence_msg_id, thread_id, created_at"

func scanUser(scan func(dest ...any) error) (*User, error) {
	var u User
	var banned, silenced, created int64
	err := scan(
		&u.TenantID, &u.ID, &u.Username, &u.FullName, &u.LanguageCode, &u.State,
		&banned, &silenced, &u.SilenceMsgID, &u.ThreadID, &created,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.IsBanned = banned != 0
	u.IsSilenced = silenced != 0
	u.CreatedAt = fromMillis(created)
	return &u, nil
}

// Get returns the user with the given id within a tenant.
func (l *UserLedger) Get(ctx context.Context, tenantID, id int64) (*User, error) {
	row := l.sqlDB.QueryRowContext(
		ctx,
		`SELECT `+userColumns+` FROM users WHERE tenant_id = ? AND id = ?`,
		tenantID, id,
	)
	return scanUser(row.Scan)
}

// GetByThread returns the user bound to the given thread, or
// ErrNotFound when the thread belongs to no relayed user.
func (l *UserLedger) GetByThread(ctx context.Context, tenantID int64, threadID int) (*User, error) {
	row := l.sqlDB.QueryRowContext(
		ctx,
		`SELECT `+userColumns+` FROM users WHERE tenant_id = ? AND thread_id = ?`,
		tenantID, threadID,
	)
	return scanUser(row.Scan)
}

// CreateOrUpdate inserts the user on first contact with default policy
// flags, or refreshes the identity fields on subsequent contacts, and
// returns the stored row.
func (l *UserLedger) CreateOrUpdate(ctx context.Context, tenantID, id int64, username, fullName, languageCode string) (*User, error) {
	_, err := l.sqlDB.ExecContext(
		ctx,
		`INSERT INTO users (tenant_id, id, username, full_name, language_code, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (tenant_id, id) DO UPDATE SET
		   username = excluded.username,
		   full_name = excluded.full_name,
		   language_code = excluded.language_code`,
		tenantID, id, username, fullName, languageCode, toMillis(time.Now()),
	)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return l.Get(ctx, tenantID, id)
}

// SetThread persists the thread-binding. Last write wins: concurrent
// first contacts may both create a topic and the later binding sticks.
func (l *UserLedger) SetThread(ctx context.Context, tenantID, id int64, threadID int) error {
	_, err := l.sqlDB.ExecContext(
		ctx,
		`UPDATE users SET thread_id = ? WHERE tenant_id = ? AND id = ?`,
		threadID, tenantID, id,
	)
	if err != nil {
		return fmt.Errorf("set user thread: %w", err)
	}
	return nil
}

// SetBanned flips the ban flag.
func (l *UserLedger) SetBanned(ctx context.Context, tenantID, id int64, banned bool) error {
	_, err := l.sqlDB.ExecContext(
		ctx,
		`UPDATE users SET is_banned = ? WHERE tenant_id = ? AND id = ?`,
		boolInt(banned), tenantID, id,
	)
	if err != nil {
		return fmt.Errorf("set user banned: %w", err)
	}
	return nil
}

// SetSilence flips the silence flag, remembering the pinned status
// message while silence is active.
func (l *UserLedger) SetSilence(ctx context.Context, tenantID, id int64, silenced bool, msgID int) error {
	_, err := l.sqlDB.ExecContext(
		ctx,
		`UPDATE users SET is_silenced = ?, silence_msg_id = ? WHERE tenant_id = ? AND id = ?`,
		boolInt(silenced), msgID, tenantID, id,
	)
	if err != nil {
		return fmt.Errorf("set user silence: %w", err)
	}
	return nil
}

// SetState records the user's membership state in the private chat
// ("member" while the bot is usable, "kicked" after the user stopped it).
func (l *UserLedger) SetState(ctx context.Context, tenantID, id int64, state string) error {
	_, err := l.sqlDB.ExecContext(
		ctx,
		`UPDATE users SET state = ? WHERE tenant_id = ? AND id = ?`,
		state, tenantID, id,
	)
	if err != nil {
		return fmt.Errorf("set user state: %w", err)
	}
	return nil
}
