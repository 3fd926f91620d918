package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"robopost/domain/model"
)

const credentialPlatform = "x"

// CredentialRepository stores the single bot credential in PostgreSQL, keyed
// by platform so a future multi-platform bot can share the table.
type CredentialRepository struct{ db *sql.DB }

func NewCredentialRepository(db *sql.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// EnsureCredentialSchema creates the credential table when missing. Safe to
// call at startup.
func EnsureCredentialSchema(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ddl := `CREATE TABLE IF NOT EXISTS bot_credentials (
		platform TEXT PRIMARY KEY,
		access_token TEXT NOT NULL,
		refresh_token TEXT NOT NULL DEFAULT '',
		client_id TEXT NOT NULL DEFAULT '',
		client_secret TEXT NOT NULL DEFAULT '',
		obtained_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("creating bot_credentials table: %w", err)
	}
	return nil
}

func (r *CredentialRepository) Load() (*model.Credential, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	row := r.db.QueryRowContext(ctx,
		`SELECT access_token, refresh_token, client_id, client_secret, obtained_at FROM bot_credentials WHERE platform=$1`,
		credentialPlatform)
	cred := &model.Credential{}
	if err := row.Scan(&cred.AccessToken, &cred.RefreshToken, &cred.ClientID, &cred.ClientSecret, &cred.ObtainedAt); err != nil {
		if err == sql.ErrNoRows {
			return &model.Credential{}, nil
		}
		return nil, fmt.Errorf("loading credential: %w", err)
	}
	return cred, nil
}

func (r *CredentialRepository) Save(cred *model.Credential) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	now := time.Now().UTC()
	obtained := cred.ObtainedAt
	if obtained.IsZero() {
		obtained = now
	}
	q := `INSERT INTO bot_credentials (platform, access_token, refresh_token, client_id, client_secret, obtained_at, updated_at)
		  VALUES ($1,$2,$3,$4,$5,$6,$7)
		  ON CONFLICT (platform) DO UPDATE SET
			access_token=EXCLUDED.access_token,
			refresh_token=EXCLUDED.refresh_token,
			client_id=EXCLUDED.client_id,
			client_secret=EXCLUDED.client_secret,
			obtained_at=EXCLUDED.obtained_at,
			updated_at=EXCLUDED.updated_at`
	if _, err := r.db.ExecContext(ctx, q, credentialPlatform, cred.AccessToken, cred.RefreshToken, cred.ClientID, cred.ClientSecret, obtained, now); err != nil {
		return fmt.Errorf("saving credential: %w", err)
	}
	return nil
}
