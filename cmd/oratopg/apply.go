package main

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"

	"github.com/kestrelsql/oratopg/internal/cli"
)

// driverName maps the --driver flag to a registered database/sql driver
// name, following the teacher's migrate.go pattern of selecting a driver
// by string rather than hardcoding one.
func driverName(flag string) (string, error) {
	switch flag {
	case "", "pgx":
		return "pgx", nil
	case "lib-pq", "postgres":
		return "postgres", nil
	default:
		return "", fmt.Errorf("unknown --driver %q (want pgx or lib-pq)", flag)
	}
}

// applyToDatabase opens a connection with the selected driver and executes
// translated PostgreSQL text against it. Used by `translate --apply` to
// verify a translation not just by shape but by actually running it.
func applyToDatabase(dsn, driverFlag, sqlText string) error {
	driver, err := driverName(driverFlag)
	if err != nil {
		return cli.GeneralError("resolving --driver", err)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return cli.DBConnectError("opening database connection", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		return cli.DBConnectError("connecting to database", err)
	}

	if _, err := db.Exec(sqlText); err != nil {
		return cli.TransformError("applying translated SQL", err)
	}
	return nil
}
