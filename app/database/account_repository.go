package database

import (
	"database/sql"
	"fmt"
	"time"
)

var _ AccountRepository = (*AccountRepositoryImpl)(nil)

// AccountRepositoryImpl handles database operations for tracked accounts,
// including the per-account ingestion watermark.
type AccountRepositoryImpl struct {
	db *DB
}

func NewAccountRepository(db *DB) *AccountRepositoryImpl {
	return &AccountRepositoryImpl{db: db}
}

func (r *AccountRepositoryImpl) UpsertAccount(name, channel string) error {
	_, err := r.db.Exec(`
		INSERT INTO accounts (name, channel)
		VALUES (?, ?)
		ON CONFLICT (name) DO UPDATE SET
			channel = excluded.channel,
			updated_at = CURRENT_TIMESTAMP
	`, name, channel)
	if err != nil {
		return fmt.Errorf("failed to upsert account: %w", err)
	}

	return nil
}

func (r *AccountRepositoryImpl) SetUserID(name, userID string) error {
	_, err := r.db.Exec(`
		UPDATE accounts
		SET user_id = ?, updated_at = CURRENT_TIMESTAMP
		WHERE name = ?
	`, userID, name)
	if err != nil {
		return fmt.Errorf("failed to set account user id: %w", err)
	}

	return nil
}

func (r *AccountRepositoryImpl) GetAccount(name string) (*Account, error) {
	var account Account
	var userID sql.NullString
	err := r.db.QueryRow(`
		SELECT name, COALESCE(user_id, ''), channel, last_ingested_at, created_at, updated_at
		FROM accounts
		WHERE name = ?
	`, name).Scan(&account.Name, &userID, &account.Channel,
		&account.LastIngestedAt, &account.CreatedAt, &account.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	account.UserID = userID.String
	return &account, nil
}

func (r *AccountRepositoryImpl) GetAccountCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM accounts").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get account count: %w", err)
	}
	return count, nil
}

// GetWatermark returns the last confirmed-ingested instant for an account,
// or nil when no cycle has completed yet.
func (r *AccountRepositoryImpl) GetWatermark(name string) (*time.Time, error) {
	var watermark *time.Time
	err := r.db.QueryRow(`
		SELECT last_ingested_at FROM accounts WHERE name = ?
	`, name).Scan(&watermark)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get watermark: %w", err)
	}

	return watermark, nil
}

// AdvanceWatermark moves the watermark forward. Monotonicity is enforced
// here: a candidate that is not strictly greater than the stored value is a
// no-op.
func (r *AccountRepositoryImpl) AdvanceWatermark(name string, candidateMax time.Time) error {
	_, err := r.db.Exec(`
		UPDATE accounts
		SET last_ingested_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE name = ?
		  AND (last_ingested_at IS NULL OR last_ingested_at < ?)
	`, candidateMax.UTC(), name, candidateMax.UTC())
	if err != nil {
		return fmt.Errorf("failed to advance watermark: %w", err)
	}

	return nil
}
