package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/filegate/filegate/internal/data/pgxutil"
	domainauth "github.com/filegate/filegate/internal/domain/auth"
	"github.com/filegate/filegate/internal/domain/policy"
	"github.com/filegate/filegate/internal/ports"
)

// PolicyRepo is a Postgres-backed policy store for multi-node deployments
// where every instance must observe the same policies and watermark.
// Policy rows and the watermark are written in one transaction, so readers
// never see a policy change without the matching watermark bump.
type PolicyRepo struct {
	DB *sql.DB
}

var _ ports.PolicyStore = (*PolicyRepo)(nil)

// NewPolicyRepo creates a new PolicyRepo.
func NewPolicyRepo(db *sql.DB) *PolicyRepo {
	return &PolicyRepo{DB: db}
}

const (
	scopeGlobal    = "global"
	scopeDirectory = "directory"
)

func (r *PolicyRepo) mapErr(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgerrcode.IsIntegrityConstraintViolation(pgErr.Code) {
			return fmt.Errorf("%w: %s", policy.ErrValidation, pgErr.Message)
		}
		if pgerrcode.IsConnectionException(pgErr.Code) {
			return fmt.Errorf("%w: %s", ErrStoreUnavailable, pgErr.Message)
		}
	}
	return err
}

func scanPolicy(row pgx.Row) (policy.Policy, error) {
	var (
		methods    []string
		roles      []string
		ciphertext sql.NullString
	)
	if err := row.Scan(&methods, &roles, &ciphertext); err != nil {
		return policy.Policy{}, err
	}
	p := policy.Policy{
		AllowedRoles:       roles,
		PasswordCiphertext: ciphertext.String,
	}
	for _, m := range methods {
		p.Methods = append(p.Methods, policy.Method(m))
	}
	p.Methods = policy.NormalizeMethods(p.Methods)
	return p, nil
}

func methodStrings(methods []policy.Method) []string {
	out := make([]string, 0, len(methods))
	for _, m := range methods {
		out = append(out, string(m))
	}
	return out
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

const selectPolicyQuery = `
	SELECT methods, allowed_roles, password_ciphertext
	FROM gate_policies
	WHERE scope = $1 AND path = $2`

// Global returns the stored global policy, or the default when unset.
func (r *PolicyRepo) Global(ctx context.Context) (policy.Policy, error) {
	var p policy.Policy
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		var scanErr error
		p, scanErr = scanPolicy(conn.QueryRow(ctx, selectPolicyQuery, scopeGlobal, ""))
		return scanErr
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return policy.DefaultGlobal(), nil
	}
	if err != nil {
		return policy.Policy{}, r.mapErr(err)
	}
	return p, nil
}

// SetGlobal replaces the global policy, retaining the stored ciphertext
// when simple_password is selected without a new password.
func (r *PolicyRepo) SetGlobal(ctx context.Context, p policy.Policy) error {
	p.Methods = policy.NormalizeMethods(p.Methods)
	err := pgxutil.WithPgxTx(ctx, r.DB, func(tx pgx.Tx) error {
		if p.HasMethod(policy.MethodSimplePassword) && p.PasswordCiphertext == "" {
			prev, err := r.previousCiphertext(ctx, tx, scopeGlobal, "")
			if err != nil {
				return err
			}
			p.PasswordCiphertext = prev
		}
		if err := r.upsert(ctx, tx, scopeGlobal, "", p); err != nil {
			return err
		}
		return r.bump(ctx, tx)
	})
	return r.mapErr(err)
}

// Directory returns the override for the exact normalized path, if any.
func (r *PolicyRepo) Directory(ctx context.Context, dir string) (policy.Policy, bool, error) {
	var p policy.Policy
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		var scanErr error
		p, scanErr = scanPolicy(conn.QueryRow(ctx, selectPolicyQuery,
			scopeDirectory, policy.NormalizeDirKey(dir)))
		return scanErr
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return policy.Policy{}, false, nil
	}
	if err != nil {
		return policy.Policy{}, false, r.mapErr(err)
	}
	return p, true, nil
}

// Directories returns all overrides keyed by normalized path.
func (r *PolicyRepo) Directories(ctx context.Context) (map[string]policy.Policy, error) {
	out := map[string]policy.Policy{}
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT path, methods, allowed_roles, password_ciphertext
			FROM gate_policies
			WHERE scope = $1
			ORDER BY path`, scopeDirectory)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				path       string
				methods    []string
				roles      []string
				ciphertext sql.NullString
			)
			if err := rows.Scan(&path, &methods, &roles, &ciphertext); err != nil {
				return err
			}
			p := policy.Policy{AllowedRoles: roles, PasswordCiphertext: ciphertext.String}
			for _, m := range methods {
				p.Methods = append(p.Methods, policy.Method(m))
			}
			out[path] = p
		}
		return rows.Err()
	})
	if err != nil {
		return nil, r.mapErr(err)
	}
	return out, nil
}

// SetDirectory upserts a directory override after validation.
func (r *PolicyRepo) SetDirectory(ctx context.Context, dir string, p policy.Policy) error {
	key := policy.NormalizeDirKey(dir)
	err := pgxutil.WithPgxTx(ctx, r.DB, func(tx pgx.Tx) error {
		prev, err := r.previousCiphertext(ctx, tx, scopeDirectory, key)
		if err != nil {
			return err
		}
		validated, err := policy.ValidateUpsert(p, prev)
		if err != nil {
			return err
		}
		if err := r.upsert(ctx, tx, scopeDirectory, key, validated); err != nil {
			return err
		}
		return r.bump(ctx, tx)
	})
	return r.mapErr(err)
}

// RemoveDirectory deletes an override, bumping the watermark only when a
// row was actually removed.
func (r *PolicyRepo) RemoveDirectory(ctx context.Context, dir string) error {
	err := pgxutil.WithPgxTx(ctx, r.DB, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			DELETE FROM gate_policies
			WHERE scope = $1 AND path = $2`,
			scopeDirectory, policy.NormalizeDirKey(dir))
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		return r.bump(ctx, tx)
	})
	return r.mapErr(err)
}

// Effective returns the directory override for the exact path when one
// exists, else the global policy. No ancestor inheritance.
func (r *PolicyRepo) Effective(ctx context.Context, dir string) (policy.Policy, domainauth.Scope, error) {
	p, ok, err := r.Directory(ctx, dir)
	if err != nil {
		return policy.Policy{}, domainauth.ScopeGlobal, err
	}
	if ok {
		return p, domainauth.ScopeDirectory, nil
	}
	p, err = r.Global(ctx)
	if err != nil {
		return policy.Policy{}, domainauth.ScopeGlobal, err
	}
	return p, domainauth.ScopeGlobal, nil
}

// LastChanged returns the watermark, or the zero time before any mutation.
func (r *PolicyRepo) LastChanged(ctx context.Context) (time.Time, error) {
	var lastChanged time.Time
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		return conn.QueryRow(ctx,
			`SELECT last_changed FROM gate_policy_version WHERE id = 1`,
		).Scan(&lastChanged)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, r.mapErr(err)
	}
	return lastChanged, nil
}

func (r *PolicyRepo) previousCiphertext(ctx context.Context, tx pgx.Tx, scope, path string) (string, error) {
	var prev sql.NullString
	err := tx.QueryRow(ctx, `
		SELECT password_ciphertext FROM gate_policies
		WHERE scope = $1 AND path = $2
		FOR UPDATE`, scope, path).Scan(&prev)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return prev.String, nil
}

func (r *PolicyRepo) upsert(ctx context.Context, tx pgx.Tx, scope, path string, p policy.Policy) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO gate_policies (scope, path, methods, allowed_roles, password_ciphertext)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (scope, path) DO UPDATE SET
			methods = EXCLUDED.methods,
			allowed_roles = EXCLUDED.allowed_roles,
			password_ciphertext = EXCLUDED.password_ciphertext,
			updated_at = now()`,
		scope, path, methodStrings(p.Methods), p.AllowedRoles, nullable(p.PasswordCiphertext))
	return err
}

// bump advances the watermark inside the caller's transaction. GREATEST
// keeps it monotonic even when now() stalls within the clock resolution.
func (r *PolicyRepo) bump(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO gate_policy_version (id, last_changed)
		VALUES (1, now())
		ON CONFLICT (id) DO UPDATE SET
			last_changed = GREATEST(now(), gate_policy_version.last_changed + interval '1 microsecond')`)
	return err
}
