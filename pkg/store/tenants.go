package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Tenant is one managed child bot and its bound operator group.
//
// The tenant id is the bot's own Telegram user id, so resolving a
// credential's runtime identity and looking up the directory use the
// same key. GroupID is zero until the bot has been connected to a
// group. Tenants are created and (de)activated by the admin workflow;
// the relay core only reads them and binds/unbinds the group.
type Tenant struct {
	ID        int64
	OwnerID   int64
	GroupID   int64
	Token     string
	Username  string
	IsActive  bool
	CreatedAt time.Time
}

// TenantDirectory is the durable tenant store.
type TenantDirectory struct {
	sqlDB *sql.DB
}

const tenantColumns = "id, owner_id, group_id, token, username, is_active, created_at"

func scanTenant(row *sql.Row) (*Tenant, error) {
	var t Tenant
	var active int64
	var created int64
	err := row.Scan(&t.ID, &t.OwnerID, &t.GroupID, &t.Token, &t.Username, &active, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan tenant: %w", err)
	}
	t.IsActive = active != 0
	t.CreatedAt = fromMillis(created)
	return &t, nil
}

// Get returns the tenant with the given id.
func (d *TenantDirectory) Get(ctx context.Context, id int64) (*Tenant, error) {
	row := d.sqlDB.QueryRowContext(
		ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = ?`, id,
	)
	return scanTenant(row)
}

// Put inserts or replaces a tenant record.
func (d *TenantDirectory) Put(ctx context.Context, t Tenant) error {
	if t.ID == 0 {
		return fmt.Errorf("tenant id is required")
	}
	createdAt := t.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := d.sqlDB.ExecContext(
		ctx,
		`INSERT INTO tenants (id, owner_id, group_id, token, username, is_active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   owner_id = excluded.owner_id,
		   group_id = excluded.group_id,
		   token = excluded.token,
		   username = excluded.username,
		   is_active = excluded.is_active`,
		t.ID, t.OwnerID, t.GroupID, t.Token, t.Username, boolInt(t.IsActive), toMillis(createdAt),
	)
	if err != nil {
		return fmt.Errorf("put tenant: %w", err)
	}
	return nil
}

// SetGroupID binds (or, with zero, unbinds) the tenant's group chat.
func (d *TenantDirectory) SetGroupID(ctx context.Context, id, groupID int64) error {
	_, err := d.sqlDB.ExecContext(
		ctx,
		`UPDATE tenants SET group_id = ? WHERE id = ?`, groupID, id,
	)
	if err != nil {
		return fmt.Errorf("set tenant group: %w", err)
	}
	return nil
}

// SetActive flips the activation flag.
func (d *TenantDirectory) SetActive(ctx context.Context, id int64, active bool) error {
	_, err := d.sqlDB.ExecContext(
		ctx,
		`UPDATE tenants SET is_active = ? WHERE id = ?`, boolInt(active), id,
	)
	if err != nil {
		return fmt.Errorf("set tenant active: %w", err)
	}
	return nil
}

// AllActive returns every active tenant, used for webhook bootstrap.
func (d *TenantDirectory) AllActive(ctx context.Context) ([]Tenant, error) {
	rows, err := d.sqlDB.QueryContext(
		ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE is_active = 1 ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query active tenants: %w", err)
	}
	defer rows.Close()

	var tenants []Tenant
	for rows.Next() {
		var t Tenant
		var active, created int64
		if err := rows.Scan(&t.ID, &t.OwnerID, &t.GroupID, &t.Token, &t.Username, &active, &created); err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		t.IsActive = active != 0
		t.CreatedAt = fromMillis(created)
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
