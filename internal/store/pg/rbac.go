package pg

import (
	"context"
	"database/sql"

	"sentra.org/internal/auth"
	"sentra.org/internal/ids"
)

// Role store ---------------------------------------------------------------

type roleStore struct{ db *sql.DB }

func (s *roleStore) Create(ctx context.Context, role *auth.Role) error {
	if role.ID == "" {
		role.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into roles (id, name) values ($1, $2)`, role.ID, role.Name)
	return mapConstraintErr(err)
}

func (s *roleStore) List(ctx context.Context) ([]auth.Role, error) {
	rows, err := s.db.QueryContext(ctx, `select id, name from roles order by name`)
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

func (s *roleStore) Find(ctx context.Context, id string) (*auth.Role, error) {
	var r auth.Role
	err := s.db.QueryRowContext(ctx,
		`select id, name from roles where id=$1`, id).Scan(&r.ID, &r.Name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, auth.ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

func (s *roleStore) Update(ctx context.Context, id, name string) (*auth.Role, error) {
	var r auth.Role
	err := s.db.QueryRowContext(ctx,
		`update roles set name=$2 where id=$1 returning id, name`, id, name).
		Scan(&r.ID, &r.Name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, auth.ErrNotFound
		}
		return nil, mapConstraintErr(err)
	}
	return &r, nil
}

func (s *roleStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from roles where id=$1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return auth.ErrNotFound
	}
	return nil
}

// Element store ------------------------------------------------------------

type elementStore struct{ db *sql.DB }

func (s *elementStore) Create(ctx context.Context, el *auth.Element) error {
	if el.ID == "" {
		el.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into elements (id, code, name) values ($1, $2, $3)`,
		el.ID, el.Code, el.Name)
	return mapConstraintErr(err)
}

func (s *elementStore) List(ctx context.Context) ([]auth.Element, error) {
	rows, err := s.db.QueryContext(ctx, `select id, code, name from elements order by code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var elements []auth.Element
	for rows.Next() {
		var el auth.Element
		if err := rows.Scan(&el.ID, &el.Code, &el.Name); err != nil {
			return nil, err
		}
		elements = append(elements, el)
	}
	return elements, rows.Err()
}

func (s *elementStore) Find(ctx context.Context, id string) (*auth.Element, error) {
	return s.findOne(ctx, `select id, code, name from elements where id=$1`, id)
}

func (s *elementStore) FindByCode(ctx context.Context, code string) (*auth.Element, error) {
	return s.findOne(ctx, `select id, code, name from elements where code=$1`, code)
}

func (s *elementStore) findOne(ctx context.Context, query, arg string) (*auth.Element, error) {
	var el auth.Element
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&el.ID, &el.Code, &el.Name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, auth.ErrNotFound
		}
		return nil, err
	}
	return &el, nil
}

func (s *elementStore) Update(ctx context.Context, id string, code, name *string) (*auth.Element, error) {
	var el auth.Element
	err := s.db.QueryRowContext(ctx, `
		update elements set
			code = coalesce($2, code),
			name = coalesce($3, name)
		where id=$1
		returning id, code, name
	`, id, code, name).Scan(&el.ID, &el.Code, &el.Name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, auth.ErrNotFound
		}
		return nil, mapConstraintErr(err)
	}
	return &el, nil
}

func (s *elementStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from elements where id=$1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return auth.ErrNotFound
	}
	return nil
}

// Rule store ---------------------------------------------------------------

type ruleStore struct{ db *sql.DB }

const ruleColumns = `id, role_id, element_id, read, read_all, "create", update_own, update_all, delete_own, delete_all`

func scanRule(row interface{ Scan(...any) error }) (*auth.AccessRule, error) {
	var r auth.AccessRule
	err := row.Scan(&r.ID, &r.RoleID, &r.ElementID,
		&r.Read, &r.ReadAll, &r.Create, &r.Update, &r.UpdateAll, &r.Delete, &r.DeleteAll)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, auth.ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

func (s *ruleStore) Create(ctx context.Context, rule *auth.AccessRule) error {
	if rule.ID == "" {
		rule.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx, `
		insert into access_rules
			(id, role_id, element_id, read, read_all, "create", update_own, update_all, delete_own, delete_all)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, rule.ID, rule.RoleID, rule.ElementID,
		rule.Read, rule.ReadAll, rule.Create, rule.Update, rule.UpdateAll, rule.Delete, rule.DeleteAll)
	return mapConstraintErr(err)
}

func (s *ruleStore) List(ctx context.Context) ([]auth.AccessRule, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+ruleColumns+` from access_rules order by role_id, element_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRules(rows)
}

func (s *ruleStore) Find(ctx context.Context, id string) (*auth.AccessRule, error) {
	return scanRule(s.db.QueryRowContext(ctx,
		`select `+ruleColumns+` from access_rules where id=$1`, id))
}

func (s *ruleStore) Update(ctx context.Context, rule *auth.AccessRule) error {
	res, err := s.db.ExecContext(ctx, `
		update access_rules set
			read=$2, read_all=$3, "create"=$4,
			update_own=$5, update_all=$6, delete_own=$7, delete_all=$8
		where id=$1
	`, rule.ID,
		rule.Read, rule.ReadAll, rule.Create, rule.Update, rule.UpdateAll, rule.Delete, rule.DeleteAll)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return auth.ErrNotFound
	}
	return nil
}

func (s *ruleStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from access_rules where id=$1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return auth.ErrNotFound
	}
	return nil
}

// RulesFor fetches the explicit rows for a role set against one element
// code. The aggregation itself happens in the engine; this returns raw rows.
func (s *ruleStore) RulesFor(ctx context.Context, roleIDs []string, elementCode string) ([]auth.AccessRule, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		select ar.id, ar.role_id, ar.element_id,
		       ar.read, ar.read_all, ar."create",
		       ar.update_own, ar.update_all, ar.delete_own, ar.delete_all
		from access_rules ar
		join elements el on el.id = ar.element_id
		where el.code = $1 and ar.role_id = any($2)
	`, elementCode, roleIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRules(rows)
}

func collectRules(rows *sql.Rows) ([]auth.AccessRule, error) {
	var rules []auth.AccessRule
	for rows.Next() {
		var r auth.AccessRule
		if err := rows.Scan(&r.ID, &r.RoleID, &r.ElementID,
			&r.Read, &r.ReadAll, &r.Create, &r.Update, &r.UpdateAll, &r.Delete, &r.DeleteAll); err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}
