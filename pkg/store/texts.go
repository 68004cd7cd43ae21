package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/relayforge/topicrelay/pkg/texts"
)

// TextStore overlays operator-edited canned texts on the builtin table.
type TextStore struct {
	sqlDB *sql.DB
}

// Get returns the stored text for code in the given language, falling
// back to the builtin table when the row is missing or empty.
func (t *TextStore) Get(ctx context.Context, code texts.Code, lang string) string {
	var en, ru string
	err := t.sqlDB.QueryRowContext(
		ctx,
		`SELECT en, ru FROM texts WHERE code = ?`, string(code),
	).Scan(&en, &ru)
	if err != nil {
		return texts.Lookup(code, lang)
	}
	if lang == "ru" && ru != "" {
		return ru
	}
	if en != "" {
		return en
	}
	return texts.Lookup(code, lang)
}

// Set stores an operator override for code. Used by the external admin
// workflow; the relay core only reads.
func (t *TextStore) Set(ctx context.Context, code texts.Code, en, ru string) error {
	res, err := t.sqlDB.ExecContext(
		ctx,
		`UPDATE texts SET en = ?, ru = ?, updated_at = ? WHERE code = ?`,
		en, ru, toMillis(time.Now()), string(code),
	)
	if err != nil {
		return fmt.Errorf("set text: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
