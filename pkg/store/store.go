package store

import (
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Stores bundles every table-level store the console uses.
type Stores struct {
	Identities IdentityStore
	Positions  PositionStore
	Messages   MessageStore
	AccessLogs AccessLogStore
	Incidents  IncidentStore
}

// Open connects to postgres and pings it.
func Open(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return db, nil
}

// Migrate applies any pending schema migrations.
func Migrate(db *sqlx.DB) error {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}
	driver, err := postgres.WithInstance(db.DB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("preparing migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("preparing migrations: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

// NewStores builds the store set over one shared connection pool.
func NewStores(db *sqlx.DB) Stores {
	return Stores{
		Identities: NewIdentityStore(db),
		Positions:  NewPositionStore(db),
		Messages:   NewMessageStore(db),
		AccessLogs: NewAccessLogStore(db),
		Incidents:  NewIncidentStore(db),
	}
}
