// Package store provides the sqlite backed domain source and rule sink
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/projectdiscovery/subnoise"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS domains (
	name       TEXT NOT NULL,
	project_id TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS rules (
	regexp     TEXT NOT NULL,
	project_id TEXT NOT NULL
);`

// SQLiteStore reads domains from the domains table and writes rules
// to the rules table of a sqlite database
type SQLiteStore struct {
	db *sql.DB
}

// Open opens or creates a sqlite database at path and makes sure
// the domains and rules tables exist
func Open(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// sqlite allows a single writer at a time
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetAllDomains returns every row of the domains table in insertion order
func (s *SQLiteStore) GetAllDomains(ctx context.Context) ([]subnoise.Domain, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name, project_id FROM domains ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("query domains: %w", err)
	}
	defer rows.Close()

	var domains []subnoise.Domain
	for rows.Next() {
		var d subnoise.Domain
		if err := rows.Scan(&d.Name, &d.ProjectID); err != nil {
			return nil, fmt.Errorf("scan domain: %w", err)
		}
		domains = append(domains, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate domains: %w", err)
	}
	return domains, nil
}

// AddDomains inserts domains in a single transaction
func (s *SQLiteStore) AddDomains(ctx context.Context, domains ...subnoise.Domain) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO domains (name, project_id) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("prepare insert domain: %w", err)
	}
	defer stmt.Close()
	for _, d := range domains {
		if _, err := stmt.ExecContext(ctx, d.Name, d.ProjectID); err != nil {
			return fmt.Errorf("insert domain %s: %w", d.Name, err)
		}
	}
	return tx.Commit()
}

// Rules returns every stored rule in insertion order
func (s *SQLiteStore) Rules(ctx context.Context) ([]subnoise.Rule, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT regexp, project_id FROM rules ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()

	var rules []subnoise.Rule
	for rows.Next() {
		var r subnoise.Rule
		if err := rows.Scan(&r.Pattern, &r.ProjectID); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rules: %w", err)
	}
	return rules, nil
}

func (s *SQLiteStore) InsertRule(ctx context.Context, rule subnoise.Rule) error {
	return insertRule(ctx, s.db, rule)
}

func (s *SQLiteStore) DeleteRules(ctx context.Context, filter *subnoise.RuleFilter) error {
	return deleteRules(ctx, s.db, filter)
}

// BeginRules starts a transaction over the rules table
func (s *SQLiteStore) BeginRules(ctx context.Context) (subnoise.RuleTx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &ruleTx{tx: tx}, nil
}

// execer is satisfied by both *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertRule(ctx context.Context, db execer, rule subnoise.Rule) error {
	if _, err := db.ExecContext(ctx, "INSERT INTO rules (regexp, project_id) VALUES (?, ?)", rule.Pattern, rule.ProjectID); err != nil {
		return fmt.Errorf("insert rule %s: %w", rule.Pattern, err)
	}
	return nil
}

func deleteRules(ctx context.Context, db execer, filter *subnoise.RuleFilter) error {
	var err error
	if filter == nil {
		_, err = db.ExecContext(ctx, "DELETE FROM rules")
	} else {
		_, err = db.ExecContext(ctx, "DELETE FROM rules WHERE project_id = ?", filter.ProjectID)
	}
	if err != nil {
		return fmt.Errorf("delete rules: %w", err)
	}
	return nil
}

type ruleTx struct {
	tx *sql.Tx
}

func (t *ruleTx) InsertRule(ctx context.Context, rule subnoise.Rule) error {
	return insertRule(ctx, t.tx, rule)
}

func (t *ruleTx) DeleteRules(ctx context.Context, filter *subnoise.RuleFilter) error {
	return deleteRules(ctx, t.tx, filter)
}

func (t *ruleTx) Commit() error {
	return t.tx.Commit()
}

func (t *ruleTx) Rollback() error {
	return t.tx.Rollback()
}
