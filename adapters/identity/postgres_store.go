package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/layer-3/garuda/core"
	"github.com/layer-3/garuda/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id                 TEXT PRIMARY KEY,
	email              TEXT NOT NULL,
	name               TEXT NOT NULL DEFAULT '',
	stellar_public_key TEXT NOT NULL DEFAULT '',
	is_custodial       BOOLEAN NOT NULL DEFAULT FALSE,
	email_verified     BOOLEAN NOT NULL DEFAULT FALSE,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS account_links (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL REFERENCES users (id),
	provider_id TEXT NOT NULL,
	account_id  TEXT NOT NULL,
	scope       TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (provider_id, account_id)
);

CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL REFERENCES users (id),
	token      TEXT NOT NULL UNIQUE,
	login_type TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

type userRow struct {
	ID               string `db:"id"`
	Email            string `db:"email"`
	Name             string `db:"name"`
	StellarPublicKey string `db:"stellar_public_key"`
	IsCustodial      bool   `db:"is_custodial"`
	EmailVerified    bool   `db:"email_verified"`
}

type linkRow struct {
	ID         string `db:"id"`
	UserID     string `db:"user_id"`
	ProviderID string `db:"provider_id"`
	AccountID  string `db:"account_id"`
	Scope      string `db:"scope"`
}

type sessionRow struct {
	ID        string `db:"id"`
	UserID    string `db:"user_id"`
	Token     string `db:"token"`
	LoginType string `db:"login_type"`
}

// PostgresStore is a Postgres implementation of the IdentityStore interface.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore connects to Postgres and ensures the identity schema
// exists.
func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to ensure identity schema: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// FindAccountLink returns the link for a (provider, account) pair, or
// (nil, nil) if the account has never logged in.
func (s *PostgresStore) FindAccountLink(ctx context.Context, providerID, accountID string) (*core.AccountLink, error) {
	var row linkRow
	err := s.db.GetContext(ctx, &row, `
SELECT id, user_id, provider_id, account_id, scope
FROM account_links
WHERE provider_id = $1 AND account_id = $2
`, providerID, accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account link: %w", err)
	}

	return &core.AccountLink{
		ID:         row.ID,
		UserID:     row.UserID,
		ProviderID: row.ProviderID,
		AccountID:  row.AccountID,
		Scope:      row.Scope,
	}, nil
}

// CreateAccountLink stores a new account link.
func (s *PostgresStore) CreateAccountLink(ctx context.Context, link *core.AccountLink) error {
	_, err := s.db.NamedExecContext(ctx, `
INSERT INTO account_links (id, user_id, provider_id, account_id, scope)
VALUES (:id, :user_id, :provider_id, :account_id, :scope)
`, linkRow{
		ID:         link.ID,
		UserID:     link.UserID,
		ProviderID: link.ProviderID,
		AccountID:  link.AccountID,
		Scope:      link.Scope,
	})
	if err != nil {
		return fmt.Errorf("failed to create account link: %w", err)
	}
	return nil
}

// CreateUser stores a new user.
func (s *PostgresStore) CreateUser(ctx context.Context, user *core.User) error {
	_, err := s.db.NamedExecContext(ctx, `
INSERT INTO users (id, email, name, stellar_public_key, is_custodial, email_verified)
VALUES (:id, :email, :name, :stellar_public_key, :is_custodial, :email_verified)
`, userRow{
		ID:               user.ID,
		Email:            user.Email,
		Name:             user.Name,
		StellarPublicKey: user.StellarPublicKey,
		IsCustodial:      user.IsCustodial,
		EmailVerified:    user.EmailVerified,
	})
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUser returns a user by id, or (nil, nil) if it does not exist.
func (s *PostgresStore) GetUser(ctx context.Context, id string) (*core.User, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row, `
SELECT id, email, name, stellar_public_key, is_custodial, email_verified
FROM users
WHERE id = $1
`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &core.User{
		ID:               row.ID,
		Email:            row.Email,
		Name:             row.Name,
		StellarPublicKey: row.StellarPublicKey,
		IsCustodial:      row.IsCustodial,
		EmailVerified:    row.EmailVerified,
	}, nil
}

// SetUserPublicKey caches a custodial public key on the user row.
func (s *PostgresStore) SetUserPublicKey(ctx context.Context, userID, publicKey string) error {
	_, err := s.db.ExecContext(ctx, `
UPDATE users SET stellar_public_key = $2 WHERE id = $1
`, userID, publicKey)
	if err != nil {
		return fmt.Errorf("failed to set user public key: %w", err)
	}
	return nil
}

// CreateSession stores a new session.
func (s *PostgresStore) CreateSession(ctx context.Context, session *core.Session) error {
	_, err := s.db.NamedExecContext(ctx, `
INSERT INTO sessions (id, user_id, token, login_type)
VALUES (:id, :user_id, :token, :login_type)
`, sessionRow{
		ID:        session.ID,
		UserID:    session.UserID,
		Token:     session.Token,
		LoginType: session.LoginType,
	})
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetSessionByToken returns the session carrying a token, or (nil, nil) if
// no such session exists.
func (s *PostgresStore) GetSessionByToken(ctx context.Context, token string) (*core.Session, error) {
	var row sessionRow
	err := s.db.GetContext(ctx, &row, `
SELECT id, user_id, token, login_type
FROM sessions
WHERE token = $1
`, token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return &core.Session{
		ID:        row.ID,
		UserID:    row.UserID,
		Token:     row.Token,
		LoginType: row.LoginType,
	}, nil
}

// DeleteSession removes a session by id.
func (s *PostgresStore) DeleteSession(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

var _ ports.IdentityStore = (*PostgresStore)(nil)
