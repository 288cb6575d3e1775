// Package migration applies the ledger schema with golang-migrate and
// scaffolds new numbered migration files.
package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

// Migrator runs migrations against one Postgres database
type Migrator struct {
	m   *migrate.Migrate
	log *zap.Logger
}

// Option selects the migration source. The last one wins.
type Option func(*source)

type source struct {
	fsys fs.FS
	dir  string
}

// WithFS reads migrations from fsys, normally the embedded migrations.FS
func WithFS(fsys fs.FS) Option {
	return func(s *source) { *s = source{fsys: fsys} }
}

// WithPath reads migrations from an absolute directory on disk
func WithPath(dir string) Option {
	return func(s *source) { *s = source{dir: dir} }
}

// New opens a migrator over db. The caller keeps ownership of db until Close.
func New(db *sql.DB, log *zap.Logger, opts ...Option) (*Migrator, error) {
	var src source
	for _, opt := range opts {
		opt(&src)
	}
	if log == nil {
		log = zap.NewNop()
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("postgres migrate driver: %w", err)
	}

	var m *migrate.Migrate
	switch {
	case src.fsys != nil:
		d, err := iofs.New(src.fsys, ".")
		if err != nil {
			return nil, fmt.Errorf("open migration fs: %w", err)
		}
		m, err = migrate.NewWithInstance("iofs", d, "postgres", driver)
		if err != nil {
			return nil, fmt.Errorf("init migrate: %w", err)
		}
	case src.dir != "":
		m, err = migrate.NewWithDatabaseInstance("file://"+src.dir, "postgres", driver)
		if err != nil {
			return nil, fmt.Errorf("init migrate: %w", err)
		}
	default:
		return nil, errors.New("migration: no source configured")
	}

	return &Migrator{m: m, log: log}, nil
}

// apply runs one golang-migrate operation; ErrNoChange is success
func (mg *Migrator) apply(op string, fn func() error, fields ...zap.Field) error {
	mg.log.Info("Migrating", append(fields, zap.String("op", op))...)
	err := fn()
	if errors.Is(err, migrate.ErrNoChange) {
		mg.log.Info("Schema already current", zap.String("op", op))
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate %s: %w", op, err)
	}

	version, dirty, err := mg.Version()
	if err != nil {
		return err
	}
	mg.log.Info("Migration finished",
		zap.String("op", op),
		zap.Uint("version", version),
		zap.Bool("dirty", dirty),
	)
	return nil
}

// Up applies every pending migration
func (mg *Migrator) Up() error { return mg.apply("up", mg.m.Up) }

// Down rolls back every applied migration
func (mg *Migrator) Down() error { return mg.apply("down", mg.m.Down) }

// Steps applies n migrations; negative n rolls back
func (mg *Migrator) Steps(n int) error {
	return mg.apply("steps", func() error { return mg.m.Steps(n) }, zap.Int("steps", n))
}

// GoTo migrates up or down to version
func (mg *Migrator) GoTo(version uint) error {
	return mg.apply("goto", func() error { return mg.m.Migrate(version) }, zap.Uint("target", version))
}

// Version returns the applied version; 0 when nothing is applied
func (mg *Migrator) Version() (uint, bool, error) {
	version, dirty, err := mg.m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return 0, false, nil
	case err != nil:
		return 0, false, fmt.Errorf("read migration version: %w", err)
	}
	return version, dirty, nil
}

// Force records version as applied and clean without running anything.
// Use it to recover from a dirty state.
func (mg *Migrator) Force(version int) error {
	mg.log.Warn("Forcing migration version", zap.Int("version", version))
	if err := mg.m.Force(version); err != nil {
		return fmt.Errorf("force version %d: %w", version, err)
	}
	return nil
}

// Close releases the source and the migrate driver
func (mg *Migrator) Close() error {
	srcErr, dbErr := mg.m.Close()
	return errors.Join(srcErr, dbErr)
}
