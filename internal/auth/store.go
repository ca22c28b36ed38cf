package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"
)

// Store persists a single OAuth token in the credentials table. The table
// holds at most one row, so saving always replaces the previous token.
type Store struct {
	db *sql.DB
}

// NewStore creates a token store backed by the given database. Migrations
// must have been run before the store is used.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// SaveToken writes the token, replacing any previously stored one.
func (s *Store) SaveToken(ctx context.Context, token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("cannot save empty token")
	}

	var expiry any
	if !token.Expiry.IsZero() {
		expiry = token.Expiry.UTC().Format(time.RFC3339)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credentials (id, access_token, token_type, refresh_token, expiry, updated_at)
		VALUES (1, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (id) DO UPDATE SET
			access_token = excluded.access_token,
			token_type = excluded.token_type,
			refresh_token = excluded.refresh_token,
			expiry = excluded.expiry,
			updated_at = CURRENT_TIMESTAMP
	`, token.AccessToken, token.TokenType, token.RefreshToken, expiry)
	if err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	return nil
}

// LoadToken returns the stored token, or (nil, nil) when none is stored.
func (s *Store) LoadToken(ctx context.Context) (*oauth2.Token, error) {
	var (
		token  oauth2.Token
		expiry sql.NullString
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT access_token, token_type, refresh_token, expiry
		FROM credentials WHERE id = 1
	`).Scan(&token.AccessToken, &token.TokenType, &token.RefreshToken, &expiry)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load token: %w", err)
	}

	if expiry.Valid && expiry.String != "" {
		t, err := time.Parse(time.RFC3339, expiry.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse token expiry: %w", err)
		}
		token.Expiry = t
	}

	return &token, nil
}

// DeleteToken removes the stored token. Deleting when nothing is stored is
// not an error.
func (s *Store) DeleteToken(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM credentials WHERE id = 1"); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}
