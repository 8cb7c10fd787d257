package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/eaglebank/accounts/shared/models"
	"github.com/jmoiron/sqlx"
)

const accountColumns = `id, name, email, address, phone_number, date_joined`

// AccountWriteRepository handles all state-mutating operations for accounts.
// Each call runs in its own transaction against the SQL store (source of truth).
type AccountWriteRepository struct {
	db *sqlx.DB
}

func NewAccountWriteRepository(db *sqlx.DB) *AccountWriteRepository {
	return &AccountWriteRepository{db: db}
}

// Create inserts account and fills in its ID and DateJoined.
func (r *AccountWriteRepository) Create(ctx context.Context, account *models.Account) error {
	if err := checkRequired(account); err != nil {
		return err
	}
	if account.DateJoined.IsZero() {
		account.DateJoined = time.Now().UTC().Truncate(time.Microsecond)
	}

	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := ensureEmailFree(ctx, tx, account.Email, 0); err != nil {
			return err
		}

		query := tx.Rebind(`
			INSERT INTO accounts (name, email, address, phone_number, date_joined)
			VALUES (?, ?, ?, ?, ?)
			RETURNING id
		`)
		err := tx.QueryRowxContext(ctx, query,
			account.Name, account.Email, account.Address, account.PhoneNumber, account.DateJoined,
		).Scan(&account.ID)
		if err != nil {
			return fmt.Errorf("failed to create account: %w", mapWriteErr(err))
		}
		return nil
	})
}

// Update overwrites name, email, address and phone number of the row with
// account.ID. DateJoined is reloaded from the store, never written.
func (r *AccountWriteRepository) Update(ctx context.Context, account *models.Account) error {
	if err := checkRequired(account); err != nil {
		return err
	}

	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		var joined time.Time
		err := tx.GetContext(ctx, &joined, tx.Rebind(`SELECT date_joined FROM accounts WHERE id = ?`), account.ID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("account %d: %w", account.ID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to get account: %w", err)
		}

		if err := ensureEmailFree(ctx, tx, account.Email, account.ID); err != nil {
			return err
		}

		query := tx.Rebind(`
			UPDATE accounts
			SET name = ?, email = ?, address = ?, phone_number = ?
			WHERE id = ?
		`)
		result, err := tx.ExecContext(ctx, query,
			account.Name, account.Email, account.Address, account.PhoneNumber, account.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update account: %w", mapWriteErr(err))
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check rows affected: %w", err)
		}
		if rows == 0 {
			return fmt.Errorf("account %d: %w", account.ID, ErrNotFound)
		}

		account.DateJoined = joined
		return nil
	})
}

// Delete removes the row permanently. It reports whether a row existed;
// deleting an absent account is not an error.
func (r *AccountWriteRepository) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM accounts WHERE id = ?`), id)
	if err != nil {
		return false, fmt.Errorf("failed to delete account: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return rows > 0, nil
}

func (r *AccountWriteRepository) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", mapWriteErr(err))
	}
	return nil
}

// ensureEmailFree fails with ErrConflict when email belongs to an account
// other than exceptID. The UNIQUE index still guards concurrent writers.
func ensureEmailFree(ctx context.Context, tx *sqlx.Tx, email string, exceptID int64) error {
	var ownerID int64
	err := tx.GetContext(ctx, &ownerID, tx.Rebind(`SELECT id FROM accounts WHERE email = ?`), email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to check email: %w", err)
	}
	if ownerID != exceptID {
		return fmt.Errorf("email %q: %w", email, ErrConflict)
	}
	return nil
}

func checkRequired(account *models.Account) error {
	var missing []string
	if strings.TrimSpace(account.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(account.Email) == "" {
		missing = append(missing, "email")
	}
	if len(missing) > 0 {
		return Invalidf("missing %s", strings.Join(missing, ", "))
	}
	return nil
}

func mapWriteErr(err error) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	if column, ok := valueTooLong(err); ok {
		if column == "" {
			return Invalidf("value too long")
		}
		return Invalidf("%s too long", column)
	}
	return err
}
