package database

import (
	"database/sql"
	"net/url"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/trezcool/goose"

	"github.com/trezcool/masomo/core"
	appfs "github.com/trezcool/masomo/fs"
)

// MigrationsDir is the directory of the embedded goose migrations.
const MigrationsDir = "migrations"

// maintenanceDB is the database every postgres cluster carries; roles and databases are created from it.
const maintenanceDB = "postgres"

// dsn builds the connection URL of dbName. The admin credentials are used when asked for and configured.
func dsn(dbName string, admin bool, conf *core.Config) string {
	dbc := conf.Database
	user := url.UserPassword(dbc.User, dbc.Password)
	if admin && dbc.AdminUser != "" {
		user = url.UserPassword(dbc.AdminUser, dbc.AdminPassword)
	}

	q := make(url.Values)
	q.Set("sslmode", "require")
	if dbc.DisableTLS {
		q.Set("sslmode", "disable")
	}
	q.Set("timezone", "utc")
	q.Set("application_name", conf.AppName)

	u := url.URL{
		Scheme:   dbc.Engine,
		User:     user,
		Host:     dbc.Address(),
		Path:     dbName,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// Open returns a handle on the documents database. No connection is made until first use.
func Open(conf *core.Config) (*sql.DB, error) {
	return sql.Open(conf.Database.Engine, dsn(conf.Database.Name, false, conf))
}

// waitReady pings db until it answers, waiting 100ms longer after each failed attempt.
func waitReady(db *sql.DB, attempts int) (err error) {
	for i := 1; i <= attempts; i++ {
		if err = db.Ping(); err == nil {
			return nil
		}
		time.Sleep(time.Duration(i) * 100 * time.Millisecond)
	}
	return errors.Wrap(err, "DB ping timeout")
}

func exists(db *sql.DB, query, name string) (bool, error) {
	var found bool
	err := db.QueryRow(query, name).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return found, err
}

func ensureRole(db *sql.DB, dbc core.DatabaseConfig) error {
	if dbc.User == "" {
		return nil
	}
	found, err := exists(db, "SELECT true FROM pg_roles WHERE rolname = $1", dbc.User)
	if err != nil {
		return errors.Wrap(err, "checking app user")
	}
	if found {
		return nil
	}

	// DDL statements take no bind parameters
	q := "CREATE USER " + pq.QuoteIdentifier(dbc.User) + " CREATEDB ENCRYPTED PASSWORD " + pq.QuoteLiteral(dbc.Password)
	_, err = db.Exec(q)
	return errors.Wrap(err, "creating app user")
}

func ensureDatabase(db *sql.DB, name string) error {
	found, err := exists(db, "SELECT true FROM pg_database WHERE datname = $1", name)
	if err != nil {
		return errors.Wrap(err, "checking DB")
	}
	if found {
		return nil
	}
	_, err = db.Exec("CREATE DATABASE " + pq.QuoteIdentifier(name))
	return errors.Wrap(err, "creating database")
}

// CreateIfNotExist creates the app role (as admin) and then the documents database (as the app role),
// so that the app role owns the database.
func CreateIfNotExist(conf *core.Config) error {
	admin, err := sql.Open(conf.Database.Engine, dsn(maintenanceDB, true, conf))
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = admin.Close() }()

	if err = waitReady(admin, 30); err != nil {
		return errors.Wrap(err, "pinging database")
	}
	if err = ensureRole(admin, conf.Database); err != nil {
		return err
	}

	app, err := sql.Open(conf.Database.Engine, dsn(maintenanceDB, false, conf))
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = app.Close() }()

	return ensureDatabase(app, conf.Database.Name)
}

// Migrate applies every pending migration.
func Migrate(db *sql.DB) error {
	return errors.Wrap(goose.Up(db, appfs.FS, MigrationsDir), "migrating database")
}
