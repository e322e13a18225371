package postgres

import (
	"cmp"
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Миграции лежат в sql/migrations парами NNNN_name.up.sql и NNNN_name.down.sql.
const (
	migrationsDir = "sql/migrations"
	// schemaLockID — ключ pg_advisory_lock, общий для всех экземпляров витрины.
	schemaLockID   = int64(0x7e571e5)
	lockTimeout    = 5 * time.Second
	schemaTableDDL = `
CREATE TABLE IF NOT EXISTS store_schema_migrations (
    version    BIGINT PRIMARY KEY,
    name       TEXT NOT NULL,
    checksum   TEXT NOT NULL,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`
)

// ErrMigrationDrift — файл уже применённой миграции изменился.
var ErrMigrationDrift = errors.New("applied migration does not match embedded file")

var (
	//go:embed sql/migrations/*.sql
	embeddedMigrations embed.FS

	migrationFileRE = regexp.MustCompile(`^(\d+)_(\w+)\.(up|down)\.sql$`)
)

type migration struct {
	Version int64
	Name    string
	Up      string
	Down    string
}

func (m migration) label() string {
	return fmt.Sprintf("%04d_%s", m.Version, m.Name)
}

func (m migration) checksum() string {
	sum := sha256.Sum256([]byte(m.Up))
	return hex.EncodeToString(sum[:])
}

// MigrateUp применяет steps ожидающих миграций; 0 — все.
func (s *Store) MigrateUp(ctx context.Context, steps int) error {
	return s.withSchemaLock(ctx, func(conn *sql.Conn, all []migration) error {
		applied, err := appliedChecksums(ctx, conn)
		if err != nil {
			return err
		}
		pending, err := planUp(all, applied, steps)
		if err != nil {
			return err
		}
		for _, m := range pending {
			err := inTx(ctx, conn, "migration "+m.label(), func(tx *sql.Tx) error {
				if _, err := tx.ExecContext(ctx, m.Up); err != nil {
					return fmt.Errorf("up %s: %w", m.label(), err)
				}
				_, err := tx.ExecContext(ctx,
					`INSERT INTO store_schema_migrations (version, name, checksum) VALUES ($1, $2, $3)`,
					m.Version, m.Name, m.checksum())
				return err
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// MigrateDown откатывает steps последних миграций; steps <= 0 — одну.
func (s *Store) MigrateDown(ctx context.Context, steps int) error {
	if steps <= 0 {
		steps = 1
	}
	return s.withSchemaLock(ctx, func(conn *sql.Conn, all []migration) error {
		versions, err := latestVersions(ctx, conn, steps)
		if err != nil {
			return err
		}
		rollback, err := planDown(all, versions)
		if err != nil {
			return err
		}
		for _, m := range rollback {
			err := inTx(ctx, conn, "rollback "+m.label(), func(tx *sql.Tx) error {
				if _, err := tx.ExecContext(ctx, m.Down); err != nil {
					return fmt.Errorf("down %s: %w", m.label(), err)
				}
				_, err := tx.ExecContext(ctx, `DELETE FROM store_schema_migrations WHERE version = $1`, m.Version)
				return err
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// MigrationStatus возвращает последнюю применённую версию и число применённых миграций.
func (s *Store) MigrationStatus(ctx context.Context) (version int64, count int, err error) {
	if s == nil || s.db == nil {
		return 0, 0, errStoreNotInitialized
	}
	queryCtx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	if _, err := s.db.ExecContext(queryCtx, schemaTableDDL); err != nil {
		return 0, 0, fmt.Errorf("ensure migration table: %w", err)
	}
	err = s.db.QueryRowContext(queryCtx,
		`SELECT COALESCE(MAX(version), 0), COUNT(*) FROM store_schema_migrations`,
	).Scan(&version, &count)
	if err != nil {
		return 0, 0, fmt.Errorf("query migration status: %w", err)
	}
	return version, count, nil
}

// withSchemaLock держит advisory lock на отдельном соединении, пока работает fn.
func (s *Store) withSchemaLock(ctx context.Context, fn func(*sql.Conn, []migration) error) error {
	if s == nil || s.db == nil {
		return errStoreNotInitialized
	}
	all, err := parseMigrations(embeddedMigrations)
	if err != nil {
		return err
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire db connection: %w", err)
	}
	defer conn.Close()

	lockCtx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()
	if _, err := conn.ExecContext(lockCtx, `SELECT pg_advisory_lock($1)`, schemaLockID); err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}
	defer func() {
		_, _ = conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, schemaLockID)
	}()

	if _, err := conn.ExecContext(ctx, schemaTableDDL); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}
	return fn(conn, all)
}

// planUp выбирает ожидающие миграции и сверяет контрольные суммы применённых.
func planUp(all []migration, applied map[int64]string, steps int) ([]migration, error) {
	var pending []migration
	for _, m := range all {
		sum, ok := applied[m.Version]
		if !ok {
			if steps <= 0 || len(pending) < steps {
				pending = append(pending, m)
			}
			continue
		}
		if sum != m.checksum() {
			return nil, fmt.Errorf("%w: %s", ErrMigrationDrift, m.label())
		}
	}
	return pending, nil
}

// planDown сопоставляет версии из базы (по убыванию) с известными миграциями.
func planDown(all []migration, versions []int64) ([]migration, error) {
	out := make([]migration, 0, len(versions))
	for _, v := range versions {
		i := slices.IndexFunc(all, func(m migration) bool { return m.Version == v })
		if i < 0 {
			return nil, fmt.Errorf("cannot roll back unknown migration version %d", v)
		}
		out = append(out, all[i])
	}
	return out, nil
}

func appliedChecksums(ctx context.Context, conn *sql.Conn) (map[int64]string, error) {
	rows, err := conn.QueryContext(ctx, `SELECT version, checksum FROM store_schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int64]string)
	for rows.Next() {
		var (
			version int64
			sum     string
		)
		if err := rows.Scan(&version, &sum); err != nil {
			return nil, fmt.Errorf("scan applied migration: %w", err)
		}
		applied[version] = sum
	}
	return applied, rows.Err()
}

func latestVersions(ctx context.Context, conn *sql.Conn, limit int) ([]int64, error) {
	rows, err := conn.QueryContext(ctx,
		`SELECT version FROM store_schema_migrations ORDER BY version DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query latest migrations: %w", err)
	}
	defer rows.Close()

	var versions []int64
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan latest migration: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// parseMigrations читает пары up/down и сортирует их по версии.
// Файлы не .sql пропускаются.
func parseMigrations(fsys fs.FS) ([]migration, error) {
	entries, err := fs.ReadDir(fsys, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}

	byVersion := make(map[int64]*migration)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || path.Ext(name) != ".sql" {
			continue
		}
		parts := migrationFileRE.FindStringSubmatch(name)
		if parts == nil {
			return nil, fmt.Errorf("invalid migration file name: %s", name)
		}
		version, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse migration version %s: %w", name, err)
		}

		raw, err := fs.ReadFile(fsys, path.Join(migrationsDir, name))
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		body := strings.TrimSpace(string(raw))
		if body == "" {
			return nil, fmt.Errorf("migration file is empty: %s", name)
		}

		m, ok := byVersion[version]
		if !ok {
			m = &migration{Version: version, Name: parts[2]}
			byVersion[version] = m
		}
		if m.Name != parts[2] {
			return nil, fmt.Errorf("migration %d has two names: %s and %s", version, m.Name, parts[2])
		}
		target := &m.Up
		if parts[3] == "down" {
			target = &m.Down
		}
		if *target != "" {
			return nil, fmt.Errorf("duplicate %s migration for version %d", parts[3], version)
		}
		*target = body
	}
	if len(byVersion) == 0 {
		return nil, errors.New("no migration files found")
	}

	out := make([]migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.Up == "" || m.Down == "" {
			return nil, fmt.Errorf("migration %s must have both up and down files", m.label())
		}
		out = append(out, *m)
	}
	slices.SortFunc(out, func(a, b migration) int { return cmp.Compare(a.Version, b.Version) })
	return out, nil
}
