// Package connect resolves destination settings and opens verified
// connections, creating the target database on first use when allowed.
package connect

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"order-etl/internal/dialect"
	"order-etl/internal/logging"
)

// Options controls Open.
type Options struct {
	// AutoCreate issues CREATE DATABASE when the target does not exist.
	// Read-only commands leave it off.
	AutoCreate bool
	// PingTimeout bounds each connection attempt; zero means 10 seconds.
	PingTimeout time.Duration
}

// Open connects to cfg's database and pings it. When the server reports the
// database as unknown and opts.AutoCreate is set, the database is created via
// the dialect's admin database and the original connection is retried once.
// Without AutoCreate a missing file database is reported, not created.
func Open(ctx context.Context, d dialect.Dialect, cfg ConnectionConfig, opts Options) (*sql.DB, error) {
	logger := logging.WithFields(ctx, "driver", d.DriverName(), "target", cfg.String())

	if fd, ok := d.(dialect.FileDatabase); ok && !opts.AutoCreate {
		if path := fd.DatabaseFile(cfg.Info()); path != "" {
			if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
				return nil, &ConnectionError{Op: "connect", Err: fmt.Errorf("%w: %s", ErrDatabaseNotFound, path)}
			}
		}
	}

	db, err := openAndPing(ctx, d, cfg.Info(), opts)
	if err == nil {
		return db, nil
	}
	if !opts.AutoCreate || !d.IsUnknownDatabase(err) || d.CreateDatabaseQuery(cfg.Database) == "" {
		return nil, &ConnectionError{Op: "connect", Err: err}
	}

	logger.Info("database does not exist, creating it", "database", cfg.Database)
	if err := createDatabase(ctx, d, cfg, opts); err != nil {
		return nil, err
	}

	db, err = openAndPing(ctx, d, cfg.Info(), opts)
	if err != nil {
		return nil, &ConnectionError{Op: "connect", Err: err}
	}
	return db, nil
}

func createDatabase(ctx context.Context, d dialect.Dialect, cfg ConnectionConfig, opts Options) error {
	admin := cfg.Info()
	admin.Database = d.AdminDatabase()

	db, err := openAndPing(ctx, d, admin, opts)
	if err != nil {
		return &ConnectionError{Op: "create_database", Err: err}
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, d.CreateDatabaseQuery(cfg.Database)); err != nil {
		if d.IsDatabaseExists(err) {
			// another process created it between our attempts
			logging.FromContext(ctx).Debug("database already exists", "database", cfg.Database)
			return nil
		}
		return &ConnectionError{Op: "create_database", Err: err}
	}
	return nil
}

func openAndPing(ctx context.Context, d dialect.Dialect, info dialect.ConnInfo, opts Options) (*sql.DB, error) {
	db, err := sql.Open(d.DriverName(), d.DSN(info))
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	timeout := opts.PingTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Probe runs the dialect's trivial query and reports whether it succeeded.
func Probe(ctx context.Context, db *sql.DB, d dialect.Dialect) bool {
	if db == nil {
		return false
	}
	var one int
	if err := db.QueryRowContext(ctx, d.ProbeQuery()).Scan(&one); err != nil {
		logging.FromContext(ctx).Debug("probe failed", "error", err)
		return false
	}
	return true
}
