package data

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// Schema migrations for the policy tables (gate_policies,
// gate_policy_version). Applied at startup when RunMigrationsOnStart is
// set, and by the test harness before each database-backed suite.
//
//go:embed migrations/*.sql
var schemaFS embed.FS

// RunMigrations brings the policy schema up to date. Each pending
// migration runs in its own transaction together with its
// schema_migrations record, so a failed migration leaves no partial
// state. Safe to call repeatedly.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return err
	}

	pending, err := pendingMigrations(applied)
	if err != nil {
		return err
	}

	logger := slog.Default().With("component", "schema")
	for _, name := range pending {
		if err := applySchemaFile(ctx, db, logger, name); err != nil {
			return err
		}
	}
	return nil
}

// appliedVersions reads the already-recorded migration versions.
func appliedVersions(ctx context.Context, db *sql.DB) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("read applied versions: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	applied := map[string]bool{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan applied version: %w", err)
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read applied versions: %w", err)
	}
	return applied, nil
}

// pendingMigrations lists embedded .sql files not yet applied, in
// lexical (version) order.
func pendingMigrations(applied map[string]bool) ([]string, error) {
	entries, err := schemaFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("read embedded migrations: %w", err)
	}

	var pending []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		if !applied[strings.TrimSuffix(name, ".sql")] {
			pending = append(pending, name)
		}
	}
	sort.Strings(pending)
	return pending, nil
}

func applySchemaFile(ctx context.Context, db *sql.DB, logger *slog.Logger, name string) error {
	version := strings.TrimSuffix(name, ".sql")

	stmts, err := schemaFS.ReadFile("migrations/" + name)
	if err != nil {
		return fmt.Errorf("read migration %s: %w", name, err)
	}

	logger.InfoContext(ctx, "applying schema migration", "version", version)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %s: %w", name, err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			logger.ErrorContext(ctx, "rollback failed", "error", rbErr, "version", version)
		}
	}()

	if _, err := tx.ExecContext(ctx, string(stmts)); err != nil {
		return fmt.Errorf("exec migration %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, version); err != nil {
		return fmt.Errorf("record migration %s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", name, err)
	}
	return nil
}
