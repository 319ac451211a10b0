package pg

import (
	"context"
	"database/sql"
	"fmt"

	"sentra.org/internal/auth"
	"sentra.org/internal/ids"
)

type userStore struct{ db *sql.DB }

const userColumns = `id, email, first_name, middle_name, last_name, password_hash, is_active, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*auth.User, error) {
	var u auth.User
	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.MiddleName, &u.LastName,
		&u.PasswordHash, &u.Active, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, auth.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *userStore) Create(ctx context.Context, u *auth.User) error {
	if u.ID == "" {
		u.ID = ids.New()
	}
	row := s.db.QueryRowContext(ctx, `
		insert into users (id, email, first_name, middle_name, last_name, password_hash, is_active)
		values ($1, $2, $3, $4, $5, $6, $7)
		returning created_at, updated_at
	`, u.ID, u.Email, u.FirstName, u.MiddleName, u.LastName, u.PasswordHash, u.Active)
	if err := row.Scan(&u.CreatedAt, &u.UpdatedAt); err != nil {
		return mapConstraintErr(err)
	}
	return nil
}

func (s *userStore) Find(ctx context.Context, id string) (*auth.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where id=$1`, id))
}

func (s *userStore) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where email=$1`, email))
}

func (s *userStore) Update(ctx context.Context, id string, upd auth.UserUpdate) (*auth.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `
		update users set
			first_name  = coalesce($2, first_name),
			middle_name = coalesce($3, middle_name),
			last_name   = coalesce($4, last_name),
			updated_at  = now()
		where id=$1
		returning `+userColumns,
		id, upd.FirstName, upd.MiddleName, upd.LastName))
}

func (s *userStore) Roles(ctx context.Context, userID string) ([]auth.Role, error) {
	rows, err := s.db.QueryContext(ctx, `
		select r.id, r.name from roles r
		join user_roles ur on ur.role_id = r.id
		where ur.user_id = $1
		order by r.name
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []auth.Role
	for rows.Next() {
		var r auth.Role
		if err := rows.Scan(&r.ID, &r.Name); err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}

func (s *userStore) AssignRole(ctx context.Context, userID, roleID string) error {
	_, err := s.db.ExecContext(ctx, `
		insert into user_roles (user_id, role_id) values ($1, $2)
		on conflict do nothing
	`, userID, roleID)
	return mapConstraintErr(err)
}

func (s *userStore) RemoveRole(ctx context.Context, userID, roleID string) error {
	_, err := s.db.ExecContext(ctx,
		`delete from user_roles where user_id=$1 and role_id=$2`, userID, roleID)
	return err
}

// Deactivate runs the whole cascade in one transaction: partial revocation
// must never be observable.
func (s *userStore) Deactivate(ctx context.Context, userID string, access *auth.RevokedAccessToken) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if access != nil {
		if _, err := tx.ExecContext(ctx, `
			insert into revoked_access_tokens (jti, user_id, created_at, expires_at)
			values ($1, $2, $3, $4)
			on conflict (jti) do nothing
		`, access.JTI, access.UserID, access.CreatedAt, access.ExpiresAt); err != nil {
			return fmt.Errorf("blacklist access token: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, `
		update refresh_tokens set revoked=true
		where user_id=$1 and revoked=false
	`, userID); err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		update users set is_active=false, updated_at=now() where id=$1
	`, userID)
	if err != nil {
		return fmt.Errorf("deactivate user: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return auth.ErrNotFound
	}
	return tx.Commit()
}
