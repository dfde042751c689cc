package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

type AccountRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Account, error)
	FindByUsername(ctx context.Context, username string) (*entity.Account, error)
	Upsert(ctx context.Context, account *entity.Account) error
}

type accountRepository struct {
	conn *sql.DB
}

func NewAccountRepository(conn *sql.DB) AccountRepository {
	return &accountRepository{
		conn: conn,
	}
}

func (that *accountRepository) GetByID(ctx context.Context, id string) (*entity.Account, error) {
	query := `SELECT id, username, created_at, updated_at FROM accounts WHERE id = ?`

	return that.scanOne(ctx, query, id)
}

// FindByUsername matches usernames case-insensitively.
func (that *accountRepository) FindByUsername(ctx context.Context, username string) (*entity.Account, error) {
	query := `SELECT id, username, created_at, updated_at FROM accounts WHERE username = ? COLLATE NOCASE`

	return that.scanOne(ctx, query, username)
}

// Upsert creates the account or renames it. A username held by another account yields apperror.ErrUsernameTaken.
func (that *accountRepository) Upsert(ctx context.Context, account *entity.Account) error {
	query := `INSERT INTO accounts (id, username, created_at, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET username = excluded.username, updated_at = excluded.updated_at`

	now := time.Now()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now

	_, err := that.conn.ExecContext(ctx, query,
		account.ID,
		account.Username,
		account.CreatedAt.UnixMilli(),
		account.UpdatedAt.UnixMilli(),
	)
	if isUniqueViolation(err) {
		return apperror.ErrUsernameTaken
	}
	if err != nil {
		return fmt.Errorf("can't save account: %w", err)
	}

	return nil
}

func (that *accountRepository) scanOne(ctx context.Context, query string, arg string) (*entity.Account, error) {
	var (
		account   entity.Account
		createdAt int64
		updatedAt int64
	)

	err := that.conn.QueryRowContext(ctx, query, arg).Scan(&account.ID, &account.Username, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("can't find account: %w", err)
	}

	account.CreatedAt = time.UnixMilli(createdAt)
	account.UpdatedAt = time.UnixMilli(updatedAt)

	return &account, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}

	return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}
