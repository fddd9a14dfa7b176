package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
)

//go:embed migrations/*/*.sql
var migrationsFS embed.FS

// sqliteDriverName is go-sqlite3 plus the unicode_lower() SQL function.
// SQLite's built-in LOWER() folds ASCII only.
const sqliteDriverName = "sqlite3_reviews"

func init() {
	sql.Register(sqliteDriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("unicode_lower", strings.ToLower, true)
		},
	})
}

// Dialect carries the statements that differ between MySQL and SQLite.
type Dialect struct {
	Driver               string
	sqlDriver            string
	upsertReview         string
	insertCategoryPrefix string
	// fold lowercases a text column the same way strings.ToLower does.
	fold string
}

var (
	MySQL = Dialect{
		Driver:               "mysql",
		sqlDriver:            "mysql",
		upsertReview:         upsertReviewMySQL,
		insertCategoryPrefix: "INSERT IGNORE INTO review_categories (review_id, category, rating) VALUES ",
		fold:                 "LOWER",
	}
	SQLite = Dialect{
		Driver:               "sqlite3",
		sqlDriver:            sqliteDriverName,
		upsertReview:         upsertReviewSQLite,
		insertCategoryPrefix: "INSERT OR IGNORE INTO review_categories (review_id, category, rating) VALUES ",
		fold:                 "unicode_lower",
	}
)

func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case MySQL.Driver:
		return MySQL, nil
	case SQLite.Driver, "sqlite":
		return SQLite, nil
	}
	return Dialect{}, fmt.Errorf("unsupported db driver %q", driver)
}

// Open connects and pings. SQLite gets a single connection so writers never
// contend for the file lock.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, Dialect, error) {
	d, err := DialectFor(driver)
	if err != nil {
		return nil, Dialect{}, err
	}
	db, err := sql.Open(d.sqlDriver, dsn)
	if err != nil {
		return nil, Dialect{}, fmt.Errorf("sql.Open: %w", err)
	}
	if d.Driver == SQLite.Driver {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, Dialect{}, fmt.Errorf("ping %s: %w", d.Driver, err)
	}
	return db, d, nil
}

// SQLiteDSN enables foreign keys (cascade on review_categories) and a busy timeout.
func SQLiteDSN(p string) string {
	return "file:" + p + "?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL"
}

// Migrate applies the embedded schema for the dialect. Statements are
// idempotent, so it is safe on every start.
func Migrate(ctx context.Context, db *sql.DB, d Dialect) error {
	dir := path.Join("migrations", d.Driver)
	ents, err := migrationsFS.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && path.Ext(e.Name()) == ".sql" {
			files = append(files, path.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	for _, f := range files {
		b, err := migrationsFS.ReadFile(f)
		if err != nil {
			return fmt.Errorf("read %s: %w", f, err)
		}
		for _, stmt := range splitStatements(string(b)) {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("exec %s: %w", f, err)
			}
		}
	}
	return nil
}

// splitStatements splits on ';' at line end; the drivers run one statement per Exec.
func splitStatements(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ";\n") {
		if stmt := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(part), ";")); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
