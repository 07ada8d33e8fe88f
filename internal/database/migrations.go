package database

import (
	"context"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var schemaFS embed.FS

const schemaDir = "migrations"

// migrationLockKey is the pg_advisory_lock key held while migrating, so
// replicas starting together apply each script once.
const migrationLockKey int64 = 0x6a6f75726e616c

// ErrChecksumMismatch is returned when an applied script was edited afterwards.
var ErrChecksumMismatch = errors.New("applied migration differs from its script")

// Migration is one versioned schema change.
type Migration struct {
	Version  int
	Name     string
	UpSQL    string
	DownSQL  string
	Checksum string
}

// MigrationRecord is a row of schema_migrations.
type MigrationRecord struct {
	Version   int       `db:"version"`
	Name      string    `db:"name"`
	Checksum  string    `db:"checksum"`
	AppliedAt time.Time `db:"applied_at"`
}

// Migrator applies and rolls back migrations.
type Migrator struct {
	pool       *Pool
	migrations []Migration
}

// NewSchemaMigrator creates a Migrator for the embedded journal schema.
func NewSchemaMigrator(pool *Pool) (*Migrator, error) {
	return NewMigrator(pool, schemaFS, schemaDir)
}

// SchemaMigrations returns the embedded journal schema in version order.
func SchemaMigrations() ([]Migration, error) {
	return loadMigrations(schemaFS, schemaDir)
}

// NewMigrator creates a Migrator from the NNN_name.{up,down}.sql files in dir.
func NewMigrator(pool *Pool, fsys fs.FS, dir string) (*Migrator, error) {
	migrations, err := loadMigrations(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}
	return NewMigratorWithMigrations(pool, migrations), nil
}

// NewMigratorWithMigrations creates a Migrator from in-memory migrations.
// Missing checksums are computed from UpSQL.
func NewMigratorWithMigrations(pool *Pool, migrations []Migration) *Migrator {
	ms := slices.Clone(migrations)
	for i := range ms {
		if ms[i].Checksum == "" {
			ms[i].Checksum = checksum(ms[i].UpSQL)
		}
	}
	slices.SortFunc(ms, func(a, b Migration) int { return a.Version - b.Version })
	return &Migrator{pool: pool, migrations: ms}
}

// parseFileName splits "001_create_users.up.sql" into 1, "create_users", "up".
func parseFileName(name string) (version int, label, direction string, ok bool) {
	base, found := strings.CutSuffix(name, ".sql")
	if !found {
		return 0, "", "", false
	}
	switch {
	case strings.HasSuffix(base, ".up"):
		direction = "up"
	case strings.HasSuffix(base, ".down"):
		direction = "down"
	default:
		return 0, "", "", false
	}
	base = strings.TrimSuffix(base, "."+direction)

	num, label, found := strings.Cut(base, "_")
	if !found || label == "" {
		return 0, "", "", false
	}
	version, err := strconv.Atoi(num)
	if err != nil || version <= 0 {
		return 0, "", "", false
	}
	return version, label, direction, true
}

func loadMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}

	byVersion := make(map[int]*Migration)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version, label, direction, ok := parseFileName(entry.Name())
		if !ok {
			continue
		}

		content, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", entry.Name(), err)
		}

		m, exists := byVersion[version]
		if !exists {
			m = &Migration{Version: version, Name: label}
			byVersion[version] = m
		}
		if m.Name != label {
			return nil, fmt.Errorf("migration %d has two names: %s and %s", version, m.Name, label)
		}
		if direction == "up" {
			m.UpSQL = string(content)
		} else {
			m.DownSQL = string(content)
		}
	}

	migrations := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		if strings.TrimSpace(m.UpSQL) == "" {
			return nil, fmt.Errorf("migration %d (%s) has no up script", m.Version, m.Name)
		}
		m.Checksum = checksum(m.UpSQL)
		migrations = append(migrations, *m)
	}
	slices.SortFunc(migrations, func(a, b Migration) int { return a.Version - b.Version })
	return migrations, nil
}

func checksum(sql string) string {
	sum := sha256.Sum256([]byte(sql))
	return hex.EncodeToString(sum[:])
}

const createMigrationsTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		name       VARCHAR(255) NOT NULL,
		checksum   CHAR(64) NOT NULL DEFAULT '',
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)
`

// EnsureMigrationsTable creates schema_migrations if needed.
func (m *Migrator) EnsureMigrationsTable(ctx context.Context) error {
	_, err := m.pool.Exec(ctx, createMigrationsTable)
	return err
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func appliedMigrations(ctx context.Context, q querier) ([]MigrationRecord, error) {
	rows, err := q.Query(ctx, `SELECT version, name, TRIM(checksum) AS checksum, applied_at FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[MigrationRecord])
}

// AppliedMigrations returns recorded migrations in version order.
func (m *Migrator) AppliedMigrations(ctx context.Context) ([]MigrationRecord, error) {
	return appliedMigrations(ctx, m.pool)
}

// PendingMigrations returns known migrations that are not yet recorded.
func (m *Migrator) PendingMigrations(ctx context.Context) ([]Migration, error) {
	applied, err := m.AppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}
	return m.pending(applied)
}

// pending also verifies that every applied script still matches its checksum.
func (m *Migrator) pending(applied []MigrationRecord) ([]Migration, error) {
	done := make(map[int]string, len(applied))
	for _, r := range applied {
		done[r.Version] = r.Checksum
	}

	var out []Migration
	for _, mig := range m.migrations {
		sum, ok := done[mig.Version]
		if !ok {
			out = append(out, mig)
			continue
		}
		if sum != "" && sum != mig.Checksum {
			return nil, fmt.Errorf("%w: %d (%s)", ErrChecksumMismatch, mig.Version, mig.Name)
		}
	}
	return out, nil
}

// withLock runs fn on a dedicated connection holding the migration lock.
func (m *Migrator) withLock(ctx context.Context, fn func(*pgxpool.Conn) error) error {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock($1)`, migrationLockKey); err != nil {
		return fmt.Errorf("failed to take migration lock: %w", err)
	}
	defer func() {
		_, _ = conn.Exec(context.WithoutCancel(ctx), `SELECT pg_advisory_unlock($1)`, migrationLockKey)
	}()

	return fn(conn)
}

// Up applies every pending migration in order and returns how many ran.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	applied := 0
	err := m.withLock(ctx, func(conn *pgxpool.Conn) error {
		if _, err := conn.Exec(ctx, createMigrationsTable); err != nil {
			return fmt.Errorf("failed to ensure migrations table: %w", err)
		}
		records, err := appliedMigrations(ctx, conn)
		if err != nil {
			return err
		}
		pending, err := m.pending(records)
		if err != nil {
			return err
		}

		for _, mig := range pending {
			err := pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
				if _, err := tx.Exec(ctx, mig.UpSQL); err != nil {
					return fmt.Errorf("failed to execute up SQL: %w", err)
				}
				_, err := tx.Exec(ctx,
					`INSERT INTO schema_migrations (version, name, checksum) VALUES ($1, $2, $3)`,
					mig.Version, mig.Name, mig.Checksum)
				return err
			})
			if err != nil {
				return fmt.Errorf("failed to apply migration %d (%s): %w", mig.Version, mig.Name, err)
			}
			applied++
		}
		return nil
	})
	return applied, err
}

// Down rolls back the most recently applied migration. It is a no-op when
// nothing is applied.
func (m *Migrator) Down(ctx context.Context) error {
	return m.withLock(ctx, func(conn *pgxpool.Conn) error {
		if _, err := conn.Exec(ctx, createMigrationsTable); err != nil {
			return fmt.Errorf("failed to ensure migrations table: %w", err)
		}
		records, err := appliedMigrations(ctx, conn)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		last := records[len(records)-1]

		i := slices.IndexFunc(m.migrations, func(mig Migration) bool { return mig.Version == last.Version })
		if i < 0 {
			return fmt.Errorf("migration %d not found", last.Version)
		}
		mig := m.migrations[i]

		return pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
			if mig.DownSQL != "" {
				if _, err := tx.Exec(ctx, mig.DownSQL); err != nil {
					return fmt.Errorf("failed to execute down SQL: %w", err)
				}
			}
			_, err := tx.Exec(ctx, `DELETE FROM schema_migrations WHERE version = $1`, mig.Version)
			return err
		})
	})
}

// CurrentVersion returns the highest applied version, or 0.
func (m *Migrator) CurrentVersion(ctx context.Context) (int, error) {
	var version int
	err := m.pool.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version)
	return version, err
}
