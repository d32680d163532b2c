package migration

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	// Blank import required for PostgreSQL driver registration for migrations
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"pxocore/internal/app/server/config"
)

//go:embed sql/*.sql
var embedded embed.FS

// EmbeddedSource адрес встроенных в бинарник миграций
const EmbeddedSource = "iofs://sql"

// Migrator методы migrate.Migrate, которые нужны раннеру
type Migrator interface {
	Up() error
	Down() error
	Close() (error, error)
}

// MigrationEngine создает мигратор по источнику и адресу базы
type MigrationEngine func(sourceURL, databaseURL string) (Migrator, error)

type Migration struct {
	cfg    *config.Config
	engine MigrationEngine
}

func NewMigration(conf *config.Config, engine MigrationEngine) *Migration {
	return &Migration{
		cfg:    conf,
		engine: engine,
	}
}

// DefaultEngine мигратор на golang-migrate
func DefaultEngine(sourceURL, databaseURL string) (Migrator, error) {
	if sourceURL == EmbeddedSource {
		src, err := iofs.New(embedded, "sql")
		if err != nil {
			return nil, fmt.Errorf("open embedded migrations: %w", err)
		}
		return migrate.NewWithSourceInstance("iofs", src, databaseURL)
	}
	return migrate.New(sourceURL, databaseURL)
}

// SourceURL каталог MIGRATIONS_PATH или встроенные миграции
func (mg *Migration) SourceURL() string {
	if mg.cfg.DB.Migrations == "" {
		return EmbeddedSource
	}
	return "file://" + mg.cfg.DB.Migrations
}

func (mg *Migration) Up() error {
	return mg.run(func(m Migrator) error { return m.Up() })
}

func (mg *Migration) Down() error {
	return mg.run(func(m Migrator) error { return m.Down() })
}

func (mg *Migration) run(step func(m Migrator) error) (err error) {
	m, err := mg.engine(mg.SourceURL(), mg.cfg.DB.DatabaseURI)
	if err != nil {
		return err
	}
	defer func() {
		serr, dberr := m.Close()
		if serr != nil {
			err = errors.Join(err, fmt.Errorf("migration source error: %w", serr))
		}
		if dberr != nil {
			err = errors.Join(err, fmt.Errorf("migration database error: %w", dberr))
		}
	}()

	if err := step(m); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration: %w", err)
	}
	return nil
}
