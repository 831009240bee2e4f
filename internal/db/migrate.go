package db

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Migration is one numbered schema change, read from NNN_name.sql.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

type Migrator struct {
	db *pgxpool.Pool
	fs fs.FS
}

// NewMigrator returns a migrator over the migrations embedded in the binary.
func NewMigrator(db *pgxpool.Pool) *Migrator {
	sub, err := fs.Sub(embeddedMigrations, "migrations")
	if err != nil {
		// the embed pattern above guarantees the directory
		panic(err)
	}
	return &Migrator{db: db, fs: sub}
}

// ReadMigrations parses migration files from fsys, sorted by version.
func ReadMigrations(fsys fs.FS) ([]Migration, error) {
	files, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	var migrations []Migration
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".sql") {
			continue
		}

		versionStr, name, found := strings.Cut(file.Name(), "_")
		if !found {
			return nil, fmt.Errorf("invalid migration filename %s, expected NNN_name.sql", file.Name())
		}
		version, err := strconv.Atoi(versionStr)
		if err != nil || version < 1 {
			return nil, fmt.Errorf("invalid migration version in %s", file.Name())
		}

		content, err := fs.ReadFile(fsys, file.Name())
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", file.Name(), err)
		}

		migrations = append(migrations, Migration{
			Version: version,
			Name:    strings.TrimSuffix(name, ".sql"),
			SQL:     string(content),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	for i := 1; i < len(migrations); i++ {
		if migrations[i].Version == migrations[i-1].Version {
			return nil, fmt.Errorf("duplicate migration version %d", migrations[i].Version)
		}
	}

	return migrations, nil
}

// CurrentVersion returns the applied schema version, 0 for a fresh database.
func (m *Migrator) CurrentVersion(ctx context.Context) (int, error) {
	if _, err := m.db.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)`); err != nil {
		return 0, fmt.Errorf("ensure schema_version table: %w", err)
	}

	var version int
	err := m.db.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("get schema version: %w", err)
	}
	return version, nil
}

// Apply runs every pending migration, each in its own transaction, and
// returns how many were applied.
func (m *Migrator) Apply(ctx context.Context) (int, error) {
	current, err := m.CurrentVersion(ctx)
	if err != nil {
		return 0, err
	}

	migrations, err := ReadMigrations(m.fs)
	if err != nil {
		return 0, err
	}
	if len(migrations) == 0 {
		return 0, errors.New("no migrations found")
	}

	latest := migrations[len(migrations)-1].Version
	if current > latest {
		return 0, fmt.Errorf("database schema version %d is newer than supported %d", current, latest)
	}

	applied := 0
	for _, migration := range migrations {
		if migration.Version <= current {
			continue
		}
		log.Infof("applying migration %03d_%s", migration.Version, migration.Name)
		if err := m.applyOne(ctx, migration); err != nil {
			return applied, fmt.Errorf("migration %d (%s): %w", migration.Version, migration.Name, err)
		}
		applied++
	}

	if applied == 0 {
		log.Debugf("database schema is up to date (version %d)", current)
	}
	return applied, nil
}

func (m *Migrator) applyOne(ctx context.Context, migration Migration) (err error) {
	tx, err := m.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
				err = fmt.Errorf("rollback: %w: %w", rollbackErr, err)
			}
			return
		}
		err = tx.Commit(ctx)
	}()

	if _, err = tx.Exec(ctx, migration.SQL); err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `INSERT INTO schema_version (version) VALUES ($1)`, migration.Version)
	return err
}
