package index

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/starford/navgate/internal/access"
	"github.com/starford/navgate/internal/apperr"
)

// PolicyRow represents one indexed policy file and its grants.
type PolicyRow struct {
	Path        string
	Actor       string
	Superuser   bool
	Checksum    string
	Permissions []string
	UpdatedAt   time.Time
}

// UpsertPolicy inserts or replaces a policy and its grants within a
// transaction. A second file claiming an actor that is already indexed under
// another path fails with apperr.ErrConflict.
func (db *DB) UpsertPolicy(p PolicyRow) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO policies (path, actor, superuser, checksum, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			actor      = excluded.actor,
			superuser  = excluded.superuser,
			checksum   = excluded.checksum,
			updated_at = excluded.updated_at
	`, p.Path, p.Actor, p.Superuser, p.Checksum, p.UpdatedAt)
	if err != nil {
		var sqlErr sqlite3.Error
		if errors.As(err, &sqlErr) && sqlErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return fmt.Errorf("index: actor %q already defined elsewhere: %w", p.Actor, apperr.ErrConflict)
		}
		return fmt.Errorf("index: upsert policy: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM grants WHERE path = ?`, p.Path); err != nil {
		return fmt.Errorf("index: clear grants: %w", err)
	}
	if len(p.Permissions) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO grants (path, permission) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare grant insert: %w", err)
		}
		defer stmt.Close()
		for _, perm := range p.Permissions {
			if _, err := stmt.Exec(p.Path, perm); err != nil {
				return fmt.Errorf("index: insert grant: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeletePolicy removes a policy and its grants. It returns the actor that
// was indexed under path, or "" if there was none.
func (db *DB) DeletePolicy(path string) (string, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return "", fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var actor string
	err = tx.QueryRow(`SELECT actor FROM policies WHERE path = ?`, path).Scan(&actor)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: lookup policy: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM grants WHERE path = ?`, path); err != nil {
		return "", fmt.Errorf("index: delete grants: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM policies WHERE path = ?`, path); err != nil {
		return "", fmt.Errorf("index: delete policy: %w", err)
	}
	return actor, tx.Commit()
}

// GetChecksum returns the stored checksum for a path, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM policies WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// ActorAt returns the actor indexed under path, or empty string if none.
func (db *DB) ActorAt(path string) (string, error) {
	var actor string
	err := db.conn.QueryRow(`SELECT actor FROM policies WHERE path = ?`, path).Scan(&actor)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: actor at %s: %w", path, err)
	}
	return actor, nil
}

// AllChecksums returns path -> checksum for every indexed policy.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM policies`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// GetPolicy returns the policy indexed for actor.
func (db *DB) GetPolicy(actor string) (*PolicyRow, error) {
	var row PolicyRow
	err := db.conn.QueryRow(`
		SELECT path, actor, superuser, checksum, updated_at
		FROM policies WHERE actor = ?
	`, actor).Scan(&row.Path, &row.Actor, &row.Superuser, &row.Checksum, &row.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: actor %q: %w", actor, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: get policy: %w", err)
	}
	perms, err := db.permissions(row.Path)
	if err != nil {
		return nil, err
	}
	row.Permissions = perms
	return &row, nil
}

// ListActors returns every indexed policy ordered by actor.
func (db *DB) ListActors() ([]PolicyRow, error) {
	rows, err := db.conn.Query(`
		SELECT path, actor, superuser, checksum, updated_at
		FROM policies ORDER BY actor
	`)
	if err != nil {
		return nil, fmt.Errorf("index: list actors: %w", err)
	}
	var out []PolicyRow
	for rows.Next() {
		var r PolicyRow
		if err := rows.Scan(&r.Path, &r.Actor, &r.Superuser, &r.Checksum, &r.UpdatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		perms, err := db.permissions(out[i].Path)
		if err != nil {
			return nil, err
		}
		out[i].Permissions = perms
	}
	return out, nil
}

// Capabilities returns the capability set granted to actor. An actor with
// no policy yields apperr.ErrNotFound; callers decide how to fail closed.
func (db *DB) Capabilities(actor string) (access.Grants, error) {
	p, err := db.GetPolicy(actor)
	if err != nil {
		return access.None(), err
	}
	return access.NewGrants(p.Actor, p.Superuser, p.Permissions...), nil
}

// Holders returns the actors that hold permission, either by an explicit
// grant or as superusers, sorted by name.
func (db *DB) Holders(permission string) ([]string, error) {
	rows, err := db.conn.Query(`
		SELECT p.actor FROM policies p
		JOIN grants g ON g.path = p.path
		WHERE g.permission = ?
		UNION
		SELECT actor FROM policies WHERE superuser = 1
	`, permission)
	if err != nil {
		return nil, fmt.Errorf("index: holders: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	sort.Strings(out)
	return out, rows.Err()
}

func (db *DB) permissions(path string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT permission FROM grants WHERE path = ? ORDER BY permission`, path)
	if err != nil {
		return nil, fmt.Errorf("index: permissions: %w", err)
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
