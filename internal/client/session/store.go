// Package session persists the CLI login between runs in a local SQLite
// file, as key/value metadata.
package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/idgate/internal/client/session/migrations"
	"github.com/dmitrijs2005/idgate/internal/dbx"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

const (
	keyUserID   = "user_id"
	keyUserName = "user_name"
	keyVerified = "identity_verified"
	keyToken    = "token"
)

// Session is what the CLI remembers about the logged-in user.
type Session struct {
	UserID           string
	UserName         string
	IdentityVerified bool
	Token            string
}

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite file at dsn and applies migrations.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("session migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns the stored session, or nil when nobody is logged in.
func (s *Store) Load(ctx context.Context) (*Session, error) {
	repo := newMetadataRepository(s.db)

	values, err := repo.List(ctx)
	if err != nil {
		return nil, err
	}

	id := string(values[keyUserID])
	if id == "" {
		return nil, nil
	}

	return &Session{
		UserID:           id,
		UserName:         string(values[keyUserName]),
		IdentityVerified: string(values[keyVerified]) == "true",
		Token:            string(values[keyToken]),
	}, nil
}

// Save replaces the stored session atomically.
func (s *Store) Save(ctx context.Context, sess *Session) error {
	if sess == nil || sess.UserID == "" {
		return errors.New("session without user id")
	}

	verified := "false"
	if sess.IdentityVerified {
		verified = "true"
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := newMetadataRepository(tx)
		if err := repo.Clear(ctx); err != nil {
			return err
		}
		for k, v := range map[string]string{
			keyUserID:   sess.UserID,
			keyUserName: sess.UserName,
			keyVerified: verified,
			keyToken:    sess.Token,
		} {
			if err := repo.Set(ctx, k, []byte(v)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Clear forgets the stored session.
func (s *Store) Clear(ctx context.Context) error {
	return newMetadataRepository(s.db).Clear(ctx)
}
