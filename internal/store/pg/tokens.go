package pg

import (
	"context"
	"database/sql"
	"time"

	"sentra.org/internal/auth"
)

type tokenStore struct{ db *sql.DB }

func (s *tokenStore) RecordRefreshIssued(ctx context.Context, jti, userID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		insert into refresh_tokens (jti, user_id, expires_at, revoked)
		values ($1, $2, $3, false)
		on conflict (jti) do nothing
	`, jti, userID, expiresAt)
	return mapConstraintErr(err)
}

func (s *tokenStore) FindRefresh(ctx context.Context, jti string) (*auth.RefreshTokenRecord, error) {
	var rec auth.RefreshTokenRecord
	err := s.db.QueryRowContext(ctx, `
		select jti, user_id, created_at, expires_at, revoked, coalesce(replaced_by, '')
		from refresh_tokens where jti=$1
	`, jti).Scan(&rec.JTI, &rec.UserID, &rec.CreatedAt, &rec.ExpiresAt, &rec.Revoked, &rec.ReplacedBy)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, auth.ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (s *tokenStore) RevokeRefresh(ctx context.Context, jti, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		update refresh_tokens set revoked=true
		where jti=$1 and user_id=$2 and revoked=false
	`, jti, userID)
	return err
}

func (s *tokenStore) RevokeAllRefresh(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		update refresh_tokens set revoked=true
		where user_id=$1 and revoked=false
	`, userID)
	return err
}

func (s *tokenStore) BlacklistAccess(ctx context.Context, entry *auth.RevokedAccessToken) error {
	_, err := s.db.ExecContext(ctx, `
		insert into revoked_access_tokens (jti, user_id, created_at, expires_at)
		values ($1, $2, $3, $4)
		on conflict (jti) do nothing
	`, entry.JTI, entry.UserID, entry.CreatedAt, entry.ExpiresAt)
	return mapConstraintErr(err)
}

func (s *tokenStore) IsAccessBlacklisted(ctx context.Context, jti string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`select exists(select 1 from revoked_access_tokens where jti=$1)`, jti).
		Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}
