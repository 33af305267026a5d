// Package engine loads datasets into the destination in foreign-key order
// inside a single transaction.
package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"order-etl/internal/connect"
	"order-etl/internal/dialect"
	"order-etl/internal/logging"
	"order-etl/internal/schema"
)

// Loader truncates and reloads every table of a registry.
type Loader struct {
	DB       *sql.DB
	Dialect  dialect.Dialect
	Registry *schema.Registry

	// BatchRows caps rows per INSERT; zero uses the dialect maximum.
	BatchRows int
	// OnTable is called after each table's rows are inserted.
	OnTable func(table string, rows int)
}

func NewLoader(db *sql.DB, d dialect.Dialect, reg *schema.Registry) *Loader {
	return &Loader{DB: db, Dialect: d, Registry: reg}
}

// Load replaces the contents of every registry table with datasets, keyed
// by table name. Either every table holds exactly its dataset's rows
// afterwards or the store is left as it was. Results are in load order.
func (l *Loader) Load(ctx context.Context, datasets map[string]*schema.Dataset) ([]schema.LoadResult, error) {
	return l.load(ctx, l.Registry.LoadOrder(), datasets)
}

func (l *Loader) load(ctx context.Context, order []*schema.TableSpec, datasets map[string]*schema.Dataset) ([]schema.LoadResult, error) {
	logger := logging.WithFields(ctx, "driver", l.Dialect.DriverName())

	if !connect.Probe(ctx, l.DB, l.Dialect) {
		return nil, &connect.ConnectionError{Op: "probe", Err: connect.ErrProbeFailed}
	}

	// Project everything before touching the store.
	rows := make(map[string][][]any, len(order))
	for _, t := range order {
		ds, ok := datasets[t.Name]
		if !ok {
			logger.Warn("no dataset for table, it will be left empty", "table", t.Name)
		}
		projected, err := schema.Project(t, ds)
		if err != nil {
			return nil, &LoadError{Table: t.Name, Op: OpProject, Err: err}
		}
		rows[t.Name] = projected
	}

	if err := l.ensureTables(ctx, order); err != nil {
		return nil, err
	}

	tx, err := l.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, &LoadError{Op: OpBegin, Err: err}
	}
	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				logger.Error("rollback failed", "error", rbErr)
			} else {
				logger.Warn("load rolled back")
			}
		}
	}()

	if err := l.Dialect.BeforeLoad(ctx, tx); err != nil {
		return nil, &LoadError{Op: OpBegin, Err: err}
	}

	for _, q := range l.Dialect.TruncateQueries(order) {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return nil, &LoadError{Op: OpTruncate, Err: fmt.Errorf("%s: %w", q, err)}
		}
	}

	for _, t := range order {
		n, err := l.insertTable(ctx, tx, t, rows[t.Name])
		if err != nil {
			return nil, err
		}
		logger.Info("table loaded", "table", t.Name, "rows", n)
		if l.OnTable != nil {
			l.OnTable(t.Name, n)
		}
	}

	if err := l.Dialect.AfterLoad(ctx, tx); err != nil {
		return nil, &LoadError{Op: OpCommit, Err: err}
	}

	if l.Dialect.TransactionalDDL() {
		for _, t := range order {
			if err := resetIdentity(ctx, tx, l.Dialect, t); err != nil {
				return nil, err
			}
		}
	}

	results := make([]schema.LoadResult, 0, len(order))
	for _, t := range order {
		results = append(results, schema.LoadResult{TableName: t.Name, Target: len(rows[t.Name])})
	}
	results, err = VerifyCounts(ctx, tx, l.Dialect, results)
	if err != nil {
		return results, err
	}

	if err := tx.Commit(); err != nil {
		return results, &LoadError{Op: OpCommit, Err: err}
	}
	committed = true

	// DDL would have committed the transaction early on these dialects.
	if !l.Dialect.TransactionalDDL() {
		for _, t := range order {
			if err := resetIdentity(ctx, l.DB, l.Dialect, t); err != nil {
				return results, err
			}
		}
	}

	return results, nil
}

// stagingSuffix names the copy LoadSingleTable fills when DDL cannot join
// the transaction.
const stagingSuffix = "_staging"

// LoadSingleTable drops and recreates t, then fills it with ds. No ordering
// or identity handling applies; t must not be referenced by other tables.
// When the dialect's DDL commits implicitly, the rows go into a staging copy
// that replaces t only after the insert has committed, so a failed load
// leaves the previous contents in place.
func (l *Loader) LoadSingleTable(ctx context.Context, t *schema.TableSpec, ds *schema.Dataset) (schema.LoadResult, error) {
	result := schema.LoadResult{TableName: t.Name}

	if !connect.Probe(ctx, l.DB, l.Dialect) {
		return result, &connect.ConnectionError{Op: "probe", Err: connect.ErrProbeFailed}
	}

	rows, err := schema.Project(t, ds)
	if err != nil {
		return result, &LoadError{Table: t.Name, Op: OpProject, Err: err}
	}
	result.Target = len(rows)

	if l.Dialect.TransactionalDDL() {
		result, err = l.fillTable(ctx, t, rows, result, true)
	} else {
		result, err = l.fillStaged(ctx, t, rows, result)
	}
	if err != nil {
		return result, err
	}

	logging.WithFields(ctx, "table", t.Name).Info("table replaced", "rows", result.Actual)
	if l.OnTable != nil {
		l.OnTable(t.Name, result.Actual)
	}
	return result, nil
}

// fillStaged loads rows into a fresh staging copy of t and swaps it in after
// commit.
func (l *Loader) fillStaged(ctx context.Context, t *schema.TableSpec, rows [][]any, result schema.LoadResult) (schema.LoadResult, error) {
	staging := *t
	staging.Name = t.Name + stagingSuffix

	if err := l.recreate(ctx, l.DB, &staging); err != nil {
		return result, reportAs(err, t.Name)
	}

	result, err := l.fillTable(ctx, &staging, rows, result, false)
	if err != nil {
		if _, dropErr := l.DB.ExecContext(ctx, l.Dialect.DropTableQuery(staging.Name)); dropErr != nil {
			logging.FromContext(ctx).Warn("failed to drop staging table", "table", staging.Name, "error", dropErr)
		}
		return result, reportAs(err, t.Name)
	}

	if _, err := l.DB.ExecContext(ctx, l.Dialect.DropTableQuery(t.Name)); err != nil {
		return result, &LoadError{Table: t.Name, Op: OpDrop, Err: err}
	}
	if _, err := l.DB.ExecContext(ctx, l.Dialect.RenameTableQuery(staging.Name, t.Name)); err != nil {
		return result, &LoadError{Table: t.Name, Op: OpRename, Err: err}
	}
	return result, nil
}

// fillTable inserts rows into into inside one transaction, recreating the
// table first when withDDL is set, and verifies the count before commit.
// The returned result keeps result.TableName.
func (l *Loader) fillTable(ctx context.Context, into *schema.TableSpec, rows [][]any, result schema.LoadResult, withDDL bool) (schema.LoadResult, error) {
	tx, err := l.DB.BeginTx(ctx, nil)
	if err != nil {
		return result, &LoadError{Table: into.Name, Op: OpBegin, Err: err}
	}
	defer tx.Rollback()

	if err := l.Dialect.BeforeLoad(ctx, tx); err != nil {
		return result, &LoadError{Table: into.Name, Op: OpBegin, Err: err}
	}
	if withDDL {
		if err := l.recreate(ctx, tx, into); err != nil {
			return result, err
		}
	}

	if _, err := l.insertTable(ctx, tx, into, rows); err != nil {
		return result, err
	}

	check := result
	check.TableName = into.Name
	verified, err := VerifyCounts(ctx, tx, l.Dialect, []schema.LoadResult{check})
	verified[0].TableName = result.TableName
	if err != nil {
		return verified[0], err
	}

	if err := tx.Commit(); err != nil {
		return verified[0], &LoadError{Table: into.Name, Op: OpCommit, Err: err}
	}
	return verified[0], nil
}

// reportAs reports a staging failure against the table being replaced.
func reportAs(err error, table string) error {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		loadErr.Table = table
	}
	return err
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (l *Loader) recreate(ctx context.Context, ex execer, t *schema.TableSpec) error {
	if _, err := ex.ExecContext(ctx, l.Dialect.DropTableQuery(t.Name)); err != nil {
		return &LoadError{Table: t.Name, Op: OpDrop, Err: err}
	}
	if _, err := ex.ExecContext(ctx, l.Dialect.CreateTableQuery(t)); err != nil {
		return &LoadError{Table: t.Name, Op: OpCreate, Err: err}
	}
	return nil
}

// ensureTables creates registry tables missing from the destination,
// parents first. Existing tables are left untouched.
func (l *Loader) ensureTables(ctx context.Context, order []*schema.TableSpec) error {
	existing, err := listTables(ctx, l.DB, l.Dialect)
	if err != nil {
		return &LoadError{Op: OpCreate, Err: err}
	}
	for _, t := range order {
		if existing[strings.ToLower(t.Name)] {
			continue
		}
		if _, err := l.DB.ExecContext(ctx, l.Dialect.CreateTableQuery(t)); err != nil {
			return &LoadError{Table: t.Name, Op: OpCreate, Err: err}
		}
		logging.FromContext(ctx).Debug("table created", "table", t.Name)
	}
	return nil
}

func listTables(ctx context.Context, db *sql.DB, d dialect.Dialect) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, d.TablesQuery())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names[strings.ToLower(name)] = true
	}
	return names, rows.Err()
}

// insertTable writes rows with multi-row INSERT statements sized to the
// dialect's parameter limit.
func (l *Loader) insertTable(ctx context.Context, tx *sql.Tx, t *schema.TableSpec, rows [][]any) (int, error) {
	if err := l.Dialect.BeforeTable(ctx, tx, t); err != nil {
		return 0, &LoadError{Table: t.Name, Op: OpInsert, Err: err}
	}

	cols := t.ColumnNames()
	batch := dialect.BatchRows(l.Dialect, len(cols), l.BatchRows)
	fullQuery := ""
	inserted := 0

	for start := 0; start < len(rows); start += batch {
		end := start + batch
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		query := fullQuery
		if len(chunk) != batch || query == "" {
			query = l.Dialect.InsertQuery(t.Name, cols, len(chunk))
			if len(chunk) == batch {
				fullQuery = query
			}
		}

		args := make([]any, 0, len(chunk)*len(cols))
		for _, r := range chunk {
			for _, v := range r {
				args = append(args, l.Dialect.BindValue(v))
			}
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return inserted, &LoadError{Table: t.Name, Op: OpInsert, Err: err}
		}
		inserted += len(chunk)
	}

	if err := l.Dialect.AfterTable(ctx, tx, t); err != nil {
		return inserted, &LoadError{Table: t.Name, Op: OpInsert, Err: err}
	}
	return inserted, nil
}

// resetIdentity moves t's identity generator past the largest loaded id.
func resetIdentity(ctx context.Context, ex execer, d dialect.Dialect, t *schema.TableSpec) error {
	if !t.HasIdentity() {
		return nil
	}
	var maxValue sql.NullInt64
	q := fmt.Sprintf("SELECT MAX(%s) FROM %s", d.QuoteIdentifier(t.Identity), d.QuoteIdentifier(t.Name))
	if err := ex.QueryRowContext(ctx, q).Scan(&maxValue); err != nil {
		return &LoadError{Table: t.Name, Op: OpIdentity, Err: err}
	}
	for _, stmt := range d.IdentityResetQueries(t.Name, t.Identity, maxValue) {
		if _, err := ex.ExecContext(ctx, stmt); err != nil {
			return &LoadError{Table: t.Name, Op: OpIdentity, Err: fmt.Errorf("%s: %w", stmt, err)}
		}
	}
	return nil
}
