package pg

import (
	"context"
	"database/sql"

	"sentra.org/internal/auth"
	"sentra.org/internal/ids"
	"sentra.org/internal/items"
)

type itemStore struct{ db *sql.DB }

const itemColumns = `i.id, i.title, i.owner_id, u.email, i.created_at, i.updated_at`

func scanItem(row interface{ Scan(...any) error }) (*items.Item, error) {
	var it items.Item
	err := row.Scan(&it.ID, &it.Title, &it.OwnerID, &it.OwnerEmail, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, auth.ErrNotFound
		}
		return nil, err
	}
	return &it, nil
}

func (s *itemStore) Create(ctx context.Context, it *items.Item) error {
	if it.ID == "" {
		it.ID = ids.New()
	}
	err := s.db.QueryRowContext(ctx, `
		insert into items (id, title, owner_id)
		values ($1, $2, $3)
		returning created_at, updated_at
	`, it.ID, it.Title, it.OwnerID).Scan(&it.CreatedAt, &it.UpdatedAt)
	return mapConstraintErr(err)
}

func (s *itemStore) Find(ctx context.Context, id string) (*items.Item, error) {
	return scanItem(s.db.QueryRowContext(ctx, `
		select `+itemColumns+`
		from items i join users u on u.id = i.owner_id
		where i.id=$1
	`, id))
}

// List applies the caller's read scope as a row filter. ScopeNone short
// circuits to an empty result without touching the database.
func (s *itemStore) List(ctx context.Context, scope auth.Scope, requesterID string) ([]items.Item, error) {
	if scope == auth.ScopeNone {
		return nil, nil
	}

	query := `
		select ` + itemColumns + `
		from items i join users u on u.id = i.owner_id`
	var args []any
	if scope == auth.ScopeOwn {
		query += ` where i.owner_id=$1`
		args = append(args, requesterID)
	}
	query += ` order by i.created_at desc`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []items.Item
	for rows.Next() {
		var it items.Item
		if err := rows.Scan(&it.ID, &it.Title, &it.OwnerID, &it.OwnerEmail, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *itemStore) Update(ctx context.Context, id string, upd items.Update) (*items.Item, error) {
	var it items.Item
	err := s.db.QueryRowContext(ctx, `
		update items set
			title = coalesce($2, title),
			updated_at = now()
		where id=$1
		returning id, title, owner_id, created_at, updated_at
	`, id, upd.Title).Scan(&it.ID, &it.Title, &it.OwnerID, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, auth.ErrNotFound
		}
		return nil, err
	}
	var email string
	if err := s.db.QueryRowContext(ctx,
		`select email from users where id=$1`, it.OwnerID).Scan(&email); err == nil {
		it.OwnerEmail = email
	}
	return &it, nil
}

func (s *itemStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from items where id=$1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return auth.ErrNotFound
	}
	return nil
}
