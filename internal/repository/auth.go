// Package repository provides persistence implementations for accounts and
// boards on top of database/sql. Queries are written with '?' placeholders
// and rebound for the open dialect.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/atinyakov/trellix/internal/db"
	"github.com/atinyakov/trellix/internal/models"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// AuthRepository stores accounts and their password credentials.
type AuthRepository struct {
	// DB is the database handle for executing queries.
	DB      *sql.DB
	dialect db.Dialect
}

// NewAuthRepository creates an AuthRepository over db speaking dialect.
func NewAuthRepository(conn *sql.DB, dialect db.Dialect) *AuthRepository {
	return &AuthRepository{DB: conn, dialect: dialect}
}

// CreateAccount inserts the account and its credential atomically.
// A taken email yields models.ErrDuplicateEmail and leaves no rows behind.
func (r *AuthRepository) CreateAccount(ctx context.Context, account models.Account, credential models.Credential) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		r.dialect.Rebind(`INSERT INTO accounts (id, email) VALUES (?, ?)`),
		account.ID, account.Email,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return models.ErrDuplicateEmail
		}
		return fmt.Errorf("insert account: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		r.dialect.Rebind(`INSERT INTO passwords (account_id, hash, salt) VALUES (?, ?, ?)`),
		account.ID, credential.Hash, credential.Salt,
	)
	if err != nil {
		return fmt.Errorf("insert password: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit account: %w", err)
	}
	return nil
}

// GetCredentialByEmail looks up the account with exactly this email together
// with its credential. The credential is nil when the account has none.
// An unknown email yields models.ErrNotFound.
func (r *AuthRepository) GetCredentialByEmail(ctx context.Context, email string) (*models.Account, *models.Credential, error) {
	var (
		account    models.Account
		hash, salt sql.NullString
	)
	err := r.DB.QueryRowContext(ctx, r.dialect.Rebind(`
		SELECT a.id, a.email, p.hash, p.salt
		FROM accounts a
		LEFT JOIN passwords p ON p.account_id = a.id
		WHERE a.email = ?
	`), email).Scan(&account.ID, &account.Email, &hash, &salt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, models.ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("lookup account: %w", err)
	}

	if !hash.Valid || !salt.Valid {
		return &account, nil, nil
	}
	return &account, &models.Credential{
		AccountID: account.ID,
		Hash:      hash.String,
		Salt:      salt.String,
	}, nil
}

// isUniqueViolation recognises unique-constraint failures from both drivers.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
		return strings.Contains(liteErr.Error(), "UNIQUE constraint failed")
	}
	return false
}
