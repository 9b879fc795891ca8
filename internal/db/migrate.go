package db

import (
	"embed"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	// registers the pgx5:// database scheme
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies every pending embedded migration. ErrNoChange is not an error.
func Migrate(dsn string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("open migration source: %w", err)
	}

	target, err := MigrationURL(dsn)
	if err != nil {
		return err
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, target)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// MigrationURL turns a postgres DSN (URL or key=value form) into the pgx5://
// URL golang-migrate expects.
func MigrationURL(dsn string) (string, error) {
	lower := strings.ToLower(dsn)
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(lower, prefix) {
			return "pgx5://" + dsn[len(prefix):], nil
		}
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return "", fmt.Errorf("parse postgres dsn: %w", err)
	}
	cc := cfg.ConnConfig

	u := &url.URL{
		Scheme: "pgx5",
		Host:   cc.Host + ":" + strconv.Itoa(int(cc.Port)),
		Path:   "/" + cc.Database,
	}
	if cc.Password != "" {
		u.User = url.UserPassword(cc.User, cc.Password)
	} else if cc.User != "" {
		u.User = url.User(cc.User)
	}
	q := url.Values{}
	if cc.TLSConfig == nil {
		q.Set("sslmode", "disable")
	} else {
		q.Set("sslmode", "require")
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}
