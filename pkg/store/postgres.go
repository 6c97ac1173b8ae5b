package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"

	"github.com/golang-migrate/migrate/v4"
	mpostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Postgres is a postgres-backed snapshot store.
type Postgres struct {
	opts *Options
	pool *pgxpool.Pool
}

// NewPostgres returns a new Postgres snapshot store, applying any pending
// schema migrations first.
func NewPostgres(opts *Options) (*Postgres, error) {
	opts.SetDefaults()
	if err := migrateUp(opts.URL); err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(context.Background(), opts.URL)
	return &Postgres{opts: opts, pool: pool}, err
}

func migrateUp(url string) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return err
	}

	db, err := sql.Open("postgres", url)
	if err != nil {
		return err
	}
	defer db.Close()

	driver, err := mpostgres.WithInstance(db, &mpostgres.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := p.pool.QueryRow(ctx,
		`SELECT value FROM snapshots WHERE scope = $1 AND key = $2;`,
		p.opts.Scope, key,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (p *Postgres) Set(ctx context.Context, key string, value string) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO snapshots (scope, key, value, updated_at) VALUES ($1, $2, $3, now())
		 ON CONFLICT (scope, key) DO UPDATE SET value = $3, updated_at = now();`,
		p.opts.Scope, key, value,
	)
	return err
}

func (p *Postgres) Delete(ctx context.Context, key string) error {
	_, err := p.pool.Exec(ctx,
		`DELETE FROM snapshots WHERE scope = $1 AND key = $2;`,
		p.opts.Scope, key,
	)
	return err
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
