package connect_test

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	_ "modernc.org/sqlite"

	"order-etl/internal/connect"
	"order-etl/internal/dialect"
)

func env(values map[string]string) connect.LookupFunc {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestResolveConfig_Complete(t *testing.T) {
	cfg, err := connect.ResolveConfig("POSTGRES", env(map[string]string{
		"POSTGRES_USER":     "u",
		"POSTGRES_PASSWORD": "p",
		"POSTGRES_HOST":     "db",
		"POSTGRES_PORT":     "6543",
		"POSTGRES_DATABASE": "shop",
	}), nil)
	if err != nil {
		t.Fatalf("ResolveConfig() error = %v", err)
	}
	want := connect.ConnectionConfig{User: "u", Password: "p", Host: "db", Port: 6543, Database: "shop"}
	if cfg != want {
		t.Errorf("got %+v, want %+v", cfg, want)
	}
}

func TestResolveConfig_MissingListsExactlyUnset(t *testing.T) {
	_, err := connect.ResolveConfig("POSTGRES", env(map[string]string{
		"POSTGRES_USER":     "u",
		"POSTGRES_PASSWORD": "",
		"POSTGRES_PORT":     "5432",
	}), nil)

	var cfgErr *connect.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigError, got %v", err)
	}
	want := []string{"POSTGRES_PASSWORD", "POSTGRES_HOST", "POSTGRES_DATABASE"}
	if !reflect.DeepEqual(cfgErr.Missing, want) {
		t.Errorf("Missing = %v, want %v", cfgErr.Missing, want)
	}
	if len(cfgErr.Invalid) != 0 {
		t.Errorf("Invalid = %v, want none", cfgErr.Invalid)
	}
}

func TestResolveConfig_HostAndPasswordUnset(t *testing.T) {
	_, err := connect.ResolveConfig("POSTGRES", env(map[string]string{
		"POSTGRES_USER":     "u",
		"POSTGRES_PORT":     "5432",
		"POSTGRES_DATABASE": "shop",
	}), nil)

	var cfgErr *connect.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigError, got %v", err)
	}
	if want := []string{"POSTGRES_PASSWORD", "POSTGRES_HOST"}; !reflect.DeepEqual(cfgErr.Missing, want) {
		t.Errorf("Missing = %v, want %v", cfgErr.Missing, want)
	}
}

func TestResolveConfig_InvalidPort(t *testing.T) {
	_, err := connect.ResolveConfig("MYSQL", env(map[string]string{
		"MYSQL_USER":     "u",
		"MYSQL_PASSWORD": "p",
		"MYSQL_HOST":     "h",
		"MYSQL_PORT":     "abc",
		"MYSQL_DATABASE": "d",
	}), nil)

	var cfgErr *connect.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigError, got %v", err)
	}
	if !reflect.DeepEqual(cfgErr.Invalid, []string{"MYSQL_PORT"}) {
		t.Errorf("Invalid = %v", cfgErr.Invalid)
	}
}

func TestResolveConfig_DemoDefaults(t *testing.T) {
	d := &dialect.MysqlDialect{}
	cfg, err := connect.ResolveConfig("POSTGRES", env(map[string]string{
		"POSTGRES_HOST": "override",
	}), connect.DemoDefaults(d))
	if err != nil {
		t.Fatalf("ResolveConfig() error = %v", err)
	}
	if cfg.Host != "override" || cfg.User != "etl_user" || cfg.Port != 3306 || cfg.Database != "etl_db" {
		t.Errorf("unexpected demo config %+v", cfg)
	}
}

func TestResolveConfig_ProcessEnvironment(t *testing.T) {
	t.Setenv("ETL_USER", "u")
	t.Setenv("ETL_PASSWORD", "p")
	t.Setenv("ETL_HOST", "h")
	t.Setenv("ETL_PORT", "1")
	t.Setenv("ETL_DATABASE", "d")

	cfg, err := connect.ResolveConfig("etl", nil, nil)
	if err != nil {
		t.Fatalf("ResolveConfig() error = %v", err)
	}
	if cfg.Database != "d" {
		t.Errorf("Database = %q", cfg.Database)
	}
}

func TestOpenAndProbe_Sqlite(t *testing.T) {
	ctx := context.Background()
	d := &dialect.SqliteDialect{}
	cfg := connect.ConnectionConfig{Database: filepath.Join(t.TempDir(), "etl.db")}

	db, err := connect.Open(ctx, d, cfg, connect.Options{AutoCreate: true})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	if !connect.Probe(ctx, db, d) {
		t.Error("Probe() = false on a live connection")
	}

	db.Close()
	if connect.Probe(ctx, db, d) {
		t.Error("Probe() = true on a closed connection")
	}
}

func TestOpen_ReadOnlyDoesNotCreateFile(t *testing.T) {
	d := &dialect.SqliteDialect{}
	path := filepath.Join(t.TempDir(), "etl.db")
	cfg := connect.ConnectionConfig{Database: path}

	_, err := connect.Open(context.Background(), d, cfg, connect.Options{})
	if !errors.Is(err, connect.ErrDatabaseNotFound) {
		t.Fatalf("expected ErrDatabaseNotFound, got %v", err)
	}
	if _, statErr := os.Stat(path); !errors.Is(statErr, fs.ErrNotExist) {
		t.Errorf("read-only open left a file behind: %v", statErr)
	}

	db, err := connect.Open(context.Background(), d, cfg, connect.Options{AutoCreate: true})
	if err != nil {
		t.Fatalf("Open(AutoCreate) error = %v", err)
	}
	db.Close()

	db, err = connect.Open(context.Background(), d, cfg, connect.Options{})
	if err != nil {
		t.Fatalf("Open() on existing file error = %v", err)
	}
	db.Close()
}

func TestOpen_ConnectionError(t *testing.T) {
	d := &dialect.SqliteDialect{}
	// parent directory does not exist
	cfg := connect.ConnectionConfig{Database: filepath.Join(t.TempDir(), "missing", "etl.db")}

	_, err := connect.Open(context.Background(), d, cfg, connect.Options{})
	var connErr *connect.ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected *ConnectionError, got %v", err)
	}
	if connErr.Op != "connect" {
		t.Errorf("Op = %q", connErr.Op)
	}
}

// autoCreateDialect is SQLite with a server-style database lifecycle: the
// target "shop" is unknown until it has been created through "admin".
type autoCreateDialect struct {
	*dialect.SqliteDialect
	dir string

	unknown      bool   // report connection failures as unknown database
	createQuery  string // statement run on the admin database
	existsOnFail bool   // treat a failed create as "already exists"
	neverCreated bool   // the target stays unreachable after create

	targetOpens, adminOpens int
}

func (d *autoCreateDialect) DSN(info dialect.ConnInfo) string {
	path := filepath.Join(d.dir, info.Database+".db")
	switch info.Database {
	case "admin":
		d.adminOpens++
	case "shop":
		d.targetOpens++
		if d.targetOpens == 1 || d.neverCreated {
			path = filepath.Join(d.dir, "missing", "shop.db")
		}
	}
	return d.SqliteDialect.DSN(dialect.ConnInfo{Database: path})
}

func (d *autoCreateDialect) AdminDatabase() string { return "admin" }

// DatabaseFile is empty so the server-style lifecycle above is used.
func (d *autoCreateDialect) DatabaseFile(dialect.ConnInfo) string { return "" }

func (d *autoCreateDialect) CreateDatabaseQuery(name string) string { return d.createQuery }

func (d *autoCreateDialect) IsUnknownDatabase(err error) bool { return d.unknown && err != nil }

func (d *autoCreateDialect) IsDatabaseExists(err error) bool { return d.existsOnFail && err != nil }

func newAutoCreateDialect(t *testing.T) *autoCreateDialect {
	return &autoCreateDialect{
		SqliteDialect: &dialect.SqliteDialect{},
		dir:           t.TempDir(),
		unknown:       true,
		createQuery:   `CREATE TABLE IF NOT EXISTS "databases" ("name" TEXT)`,
	}
}

func TestOpen_AutoCreate(t *testing.T) {
	cfg := connect.ConnectionConfig{Database: "shop"}

	cases := []struct {
		name       string
		setup      func(d *autoCreateDialect)
		autoCreate bool
		wantOp     string // "" means Open succeeds
		wantTarget int
		wantAdmin  int
	}{
		{"creates then retries once", func(d *autoCreateDialect) {}, true, "", 2, 1},
		{"already exists is ignored", func(d *autoCreateDialect) {
			d.createQuery = `SELECT * FROM "no_such_table"`
			d.existsOnFail = true
		}, true, "", 2, 1},
		{"other create failure is returned", func(d *autoCreateDialect) {
			d.createQuery = `SELECT * FROM "no_such_table"`
		}, true, "create_database", 1, 1},
		{"retry is not repeated", func(d *autoCreateDialect) {
			d.neverCreated = true
		}, true, "connect", 2, 1},
		{"other connect failure skips create", func(d *autoCreateDialect) {
			d.unknown = false
		}, true, "connect", 1, 0},
		{"read-only open never creates", func(d *autoCreateDialect) {}, false, "connect", 1, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := newAutoCreateDialect(t)
			tc.setup(d)

			db, err := connect.Open(context.Background(), d, cfg, connect.Options{AutoCreate: tc.autoCreate})
			if tc.wantOp == "" {
				if err != nil {
					t.Fatalf("Open() error = %v", err)
				}
				db.Close()
			} else {
				var connErr *connect.ConnectionError
				if !errors.As(err, &connErr) {
					t.Fatalf("expected *ConnectionError, got %v", err)
				}
				if connErr.Op != tc.wantOp {
					t.Errorf("Op = %q, want %q", connErr.Op, tc.wantOp)
				}
			}
			if d.targetOpens != tc.wantTarget {
				t.Errorf("target opened %d times, want %d", d.targetOpens, tc.wantTarget)
			}
			if d.adminOpens != tc.wantAdmin {
				t.Errorf("admin opened %d times, want %d", d.adminOpens, tc.wantAdmin)
			}
		})
	}
}
